package core

import (
	"fmt"
	"sort"
	"strings"
)

// Protein is a database entry to digest.
type Protein struct {
	Identifier  string
	Description string
	Sequence    string
}

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0-based position; -1 for N-term, len(seq) for C-term
	Name     string // Modification name (e.g., "Carbamidomethyl", "Oxidation")
}

// Peptide is a candidate produced by digestion and modification expansion.
// ProteinIndex refers into the protein list the index was built from.
type Peptide struct {
	Sequence          string
	ProteinIndex      int
	Start             int // offset of the peptide in the protein sequence
	ModificationIndex int // which modified form of the sequence this is
	Modifications     []Modification
	MZ                float64 // monoisotopic [M+H]+
}

// Fragment is a theoretical fragment ion referencing its peptide by index.
type Fragment struct {
	PeptideIndex int
	MZ           float64
}

// TotalModMass returns the sum of all modification masses.
func (p *Peptide) TotalModMass() float64 {
	total := 0.0
	for _, mod := range p.Modifications {
		total += mod.Mass
	}
	return total
}

// ModString returns modifications in the format "mass@pos;mass@pos;..."
func (p *Peptide) ModString() string {
	if len(p.Modifications) == 0 {
		return ""
	}

	var parts []string
	for _, mod := range p.Modifications {
		parts = append(parts, fmt.Sprintf("%.6f@%d", mod.Mass, mod.Position))
	}
	return strings.Join(parts, ";")
}

// ModifiedSequence renders the sequence with bracketed modification names,
// e.g. "(Acetyl)PEPM(Oxidation)TIDE".
func (p *Peptide) ModifiedSequence() string {
	if len(p.Modifications) == 0 {
		return p.Sequence
	}

	mods := make([]Modification, len(p.Modifications))
	copy(mods, p.Modifications)
	sort.SliceStable(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })

	label := func(m Modification) string {
		if m.Name != "" {
			return "(" + m.Name + ")"
		}
		return fmt.Sprintf("[%+.4f]", m.Mass)
	}

	var b strings.Builder
	k := 0
	for ; k < len(mods) && mods[k].Position < 0; k++ {
		b.WriteString(label(mods[k]))
	}
	for i, aa := range p.Sequence {
		b.WriteRune(aa)
		for ; k < len(mods) && mods[k].Position == i; k++ {
			b.WriteString(label(mods[k]))
		}
	}
	for ; k < len(mods); k++ {
		b.WriteString(label(mods[k]))
	}
	return b.String()
}
