// Package core provides the chemistry, tolerance and container types shared by
// the digestion, index and search packages.
package core

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688

	// Mass difference between C13 and C12, used for isotope error windows.
	C13C12MassDiff = 1.0033548378
)

// Neutral losses and additions used by the ion series.
const (
	MassH2O = 2*MassH + MassO
	MassNH3 = MassN + 3*MassH
	MassCO  = MassC + MassO
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

// Mass returns the monoisotopic mass of the composition.
func (c AminoAcidComposition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS
}

// AminoAcidMasses maps amino acid one-letter codes to the elemental composition
// of the residue (amino acid minus water).
var AminoAcidMasses = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1, S: 0},
	'R': {C: 6, H: 12, N: 4, O: 1, S: 0},
	'N': {C: 4, H: 6, N: 2, O: 2, S: 0},
	'D': {C: 4, H: 5, N: 1, O: 3, S: 0},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3, S: 0},
	'Q': {C: 5, H: 8, N: 2, O: 2, S: 0},
	'G': {C: 2, H: 3, N: 1, O: 1, S: 0},
	'H': {C: 6, H: 7, N: 3, O: 1, S: 0},
	'I': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'L': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'K': {C: 6, H: 12, N: 2, O: 1, S: 0},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1, S: 0},
	'P': {C: 5, H: 7, N: 1, O: 1, S: 0},
	'S': {C: 3, H: 5, N: 1, O: 2, S: 0},
	'T': {C: 4, H: 7, N: 1, O: 2, S: 0},
	'W': {C: 11, H: 10, N: 2, O: 1, S: 0},
	'Y': {C: 9, H: 9, N: 1, O: 2, S: 0},
	'V': {C: 5, H: 9, N: 1, O: 1, S: 0},
}

// residueMasses caches AminoAcidMasses as plain masses, indexed by ASCII code.
var residueMasses [128]float64

func init() {
	for aa, comp := range AminoAcidMasses {
		residueMasses[aa] = comp.Mass()
	}
}

// ResidueMass returns the monoisotopic residue mass of aa. The second return
// value is false for symbols outside the standard residue table (X, B, Z, U, ...).
func ResidueMass(aa rune) (float64, bool) {
	if aa < 0 || int(aa) >= len(residueMasses) || residueMasses[aa] == 0 {
		return 0, false
	}
	return residueMasses[aa], true
}

// IsSupportedResidue reports whether aa has a known residue mass.
func IsSupportedResidue(aa rune) bool {
	_, ok := ResidueMass(aa)
	return ok
}

// HasUnsupportedResidue reports whether sequence contains any symbol without a residue mass.
func HasUnsupportedResidue(sequence string) bool {
	for _, aa := range sequence {
		if !IsSupportedResidue(aa) {
			return true
		}
	}
	return false
}

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modifications, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	return MassToMZ(CalculateNeutralMass(sequence, modifications), charge)
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide.
// Unsupported residues contribute no mass.
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	mass := MassH2O
	for _, aa := range sequence {
		m, _ := ResidueMass(aa)
		mass += m
	}

	for _, mod := range modifications {
		mass += mod.Mass
	}

	return mass
}

// MassToMZ converts a neutral mass to the m/z of the [M+zH]z+ ion.
func MassToMZ(mass float64, charge int) float64 {
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// ChargedToSinglyCharged converts an m/z observed at charge z to the m/z of the
// same species carrying a single proton.
func ChargedToSinglyCharged(mz float64, charge int) float64 {
	return mz*float64(charge) - float64(charge-1)*ProtonMass
}
