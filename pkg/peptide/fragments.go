package peptide

import (
	"sort"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

// FragmentIons holds the settings that shape a theoretical spectrum.
type FragmentIons struct {
	Ions              IonTypes
	AddFirstPrefixIon bool
	MinMZ             float64
	MaxMZ             float64 // 0 = no limit
}

// FragmentIons returns the fragment settings of the configuration.
func (c *Config) FragmentIons() FragmentIons {
	return FragmentIons{
		Ions:              c.Ions,
		AddFirstPrefixIon: c.AddFirstPrefixIon,
		MinMZ:             c.MinFragmentMZ,
		MaxMZ:             c.MaxFragmentMZ,
	}
}

func (f FragmentIons) inRange(mz float64) bool {
	return mz >= f.MinMZ && (f.MaxMZ <= 0 || mz <= f.MaxMZ)
}

// TheoreticalFragments returns the singly charged fragment m/z values of a
// modified peptide, sorted ascending and restricted to the fragment window.
// N-terminal modifications shift the prefix ions, C-terminal ones the suffix ions.
func TheoreticalFragments(seq string, mods []core.Modification, f FragmentIons) []float64 {
	n := len(seq)
	if n < 2 {
		return nil
	}

	residues := make([]float64, n)
	for i := 0; i < n; i++ {
		residues[i], _ = core.ResidueMass(rune(seq[i]))
	}
	var nterm, cterm float64
	for _, m := range mods {
		switch {
		case m.Position < 0:
			nterm += m.Mass
		case m.Position >= n:
			cterm += m.Mass
		default:
			residues[m.Position] += m.Mass
		}
	}

	first := 2
	if f.AddFirstPrefixIon {
		first = 1
	}

	var out []float64
	add := func(mz float64) {
		if f.inRange(mz) {
			out = append(out, mz)
		}
	}

	prefix := nterm
	for k := 1; k < n; k++ {
		prefix += residues[k-1]
		if k < first {
			continue
		}
		b := prefix + core.ProtonMass
		if f.Ions.A {
			add(b - core.MassCO)
		}
		if f.Ions.B {
			add(b)
		}
		if f.Ions.C {
			add(b + core.MassNH3)
		}
	}

	suffix := cterm
	for k := 1; k < n; k++ {
		suffix += residues[n-k]
		y := suffix + core.MassH2O + core.ProtonMass
		if f.Ions.X {
			add(y + core.MassCO - 2*core.MassH)
		}
		if f.Ions.Y {
			add(y)
		}
		if f.Ions.Z {
			add(y - core.MassNH3)
		}
	}

	sort.Float64s(out)
	return out
}
