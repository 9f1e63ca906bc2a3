package filter

import (
	"math"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/pkg/errors"
)

// Deisotoping configures isotope cluster detection. A zero MaxCharge turns it off.
type Deisotoping struct {
	Tolerance          core.Tolerance
	MinCharge          int
	MaxCharge          int
	MinIsotopePeaks    int  // cluster size, monoisotopic peak included
	MaxIsotopePeaks    int
	KeepOnlyDeisotoped bool // drop peaks that start no cluster
	SingleCharge       bool // move monoisotopic peaks to their singly charged m/z
}

// DefaultDeisotoping looks for 3 to 10 peak clusters at charges 1 to 3 and
// converts them to single charge.
func DefaultDeisotoping(tol core.Tolerance) Deisotoping {
	return Deisotoping{
		Tolerance:       tol,
		MinCharge:       1,
		MaxCharge:       3,
		MinIsotopePeaks: 3,
		MaxIsotopePeaks: 10,
		SingleCharge:    true,
	}
}

func (d *Deisotoping) enabled() bool { return d.MaxCharge > 0 }

func (d *Deisotoping) validate() error {
	if d.MinCharge < 1 || d.MaxCharge < d.MinCharge {
		return errors.Errorf("invalid deisotoping charge range [%d, %d]", d.MinCharge, d.MaxCharge)
	}
	if d.MinIsotopePeaks < 2 || d.MaxIsotopePeaks < d.MinIsotopePeaks {
		return errors.Errorf("invalid isotope peak range [%d, %d]", d.MinIsotopePeaks, d.MaxIsotopePeaks)
	}
	return d.Tolerance.Validate()
}

// apply removes the isotope peaks of every cluster found and records the
// cluster charge of its monoisotopic peak in the charge meta array, 0 for
// peaks outside any cluster. Converted peaks carry charge 1.
func (d *Deisotoping) apply(spec *core.Spectrum) error {
	if err := d.validate(); err != nil {
		return err
	}
	if len(spec.Peaks) == 0 {
		return nil
	}
	spec.SortByPosition()

	n := len(spec.Peaks)
	charges := make([]int, n)
	isotope := make([]bool, n)
	var cluster []int

	for i := 0; i < n; i++ {
		if isotope[i] {
			continue
		}
		for z := d.MaxCharge; z >= d.MinCharge; z-- {
			cluster = d.extend(spec, cluster[:0], i, z, isotope)
			if len(cluster)+1 < d.MinIsotopePeaks {
				continue
			}
			charges[i] = z
			for _, j := range cluster {
				isotope[j] = true
			}
			break
		}
	}

	var indices []int
	for i := range spec.Peaks {
		if isotope[i] || (d.KeepOnlyDeisotoped && charges[i] == 0) {
			continue
		}
		indices = append(indices, i)
	}

	kept := make([]int, len(indices))
	for k, i := range indices {
		kept[k] = charges[i]
	}
	spec.Select(indices)

	if d.SingleCharge {
		for k := range spec.Peaks {
			if kept[k] > 1 {
				spec.Peaks[k].MZ = core.ChargedToSinglyCharged(spec.Peaks[k].MZ, kept[k])
				kept[k] = 1
			}
		}
	}

	if arr := spec.IntegerArray(core.MetaCharge); arr != nil {
		arr.Data = kept
	} else {
		spec.IntegerArrays = append(spec.IntegerArrays, core.IntegerDataArray{Name: core.MetaCharge, Data: kept})
	}
	spec.SortByPosition()
	return nil
}

// extend appends to dst the peaks following mono at isotope spacing for
// charge z, stopping at the first missing or claimed isotope.
func (d *Deisotoping) extend(spec *core.Spectrum, dst []int, mono, z int, isotope []bool) []int {
	n := len(spec.Peaks)
	from := mono + 1
	for k := 1; k < d.MaxIsotopePeaks; k++ {
		expected := spec.Peaks[mono].MZ + float64(k)*core.C13C12MassDiff/float64(z)
		lo, hi := d.Tolerance.Window(expected)

		best := -1
		for j := spec.MZBeginIn(from, lo, n); j < n && spec.Peaks[j].MZ <= hi; j++ {
			if isotope[j] {
				continue
			}
			if best < 0 || math.Abs(spec.Peaks[j].MZ-expected) < math.Abs(spec.Peaks[best].MZ-expected) {
				best = j
			}
		}
		if best < 0 {
			break
		}
		dst = append(dst, best)
		from = best + 1
	}
	return dst
}
