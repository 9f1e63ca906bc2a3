package filter

import (
	"testing"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

// isotopeSpectrum holds a doubly charged cluster at 500 and a two peak
// singly charged pair at 400 that is too short to count.
func isotopeSpectrum() *core.Spectrum {
	return &core.Spectrum{
		Container: core.Container[core.Peak]{
			Peaks: []core.Peak{
				{MZ: 300, Intensity: 50},
				{MZ: 400, Intensity: 40},
				{MZ: 400 + core.C13C12MassDiff, Intensity: 30},
				{MZ: 500, Intensity: 100},
				{MZ: 500 + core.C13C12MassDiff/2, Intensity: 80},
				{MZ: 500 + core.C13C12MassDiff, Intensity: 60},
			},
			StringArrays: []core.StringDataArray{
				{Name: core.MetaAnnotation, Data: []string{"", "", "", "y4^2", "", ""}},
			},
		},
	}
}

func TestDeisotope(t *testing.T) {
	tol := core.Tolerance{Value: 10, Unit: core.PPM}
	single := core.ChargedToSinglyCharged(500, 2)

	keepOnly := DefaultDeisotoping(tol)
	keepOnly.KeepOnlyDeisotoped = true
	multi := DefaultDeisotoping(tol)
	multi.SingleCharge = false

	tests := []struct {
		name    string
		d       Deisotoping
		want    []float64
		charges []int
	}{
		{"single charge", DefaultDeisotoping(tol), []float64{300, 400, 400 + core.C13C12MassDiff, single}, []int{0, 0, 0, 1}},
		{"keep only deisotoped", keepOnly, []float64{single}, []int{1}},
		{"keep charge", multi, []float64{300, 400, 400 + core.C13C12MassDiff, 500}, []int{0, 0, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := isotopeSpectrum()
			cfg := Config{Deisotope: tt.d}
			if err := cfg.Apply(spec); err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if got := mzs(spec); !equal(got, tt.want) {
				t.Errorf("peaks = %v, want %v", got, tt.want)
			}
			if _, ok := spec.MetaArraysAligned(); !ok {
				t.Fatal("meta arrays out of step with peaks")
			}
			charges := spec.IntegerArray(core.MetaCharge)
			if charges == nil {
				t.Fatal("no charge array")
			}
			for i, want := range tt.charges {
				if charges.Data[i] != want {
					t.Errorf("charge[%d] = %d, want %d", i, charges.Data[i], want)
				}
			}
		})
	}
}

func TestDeisotopeBeforeTopN(t *testing.T) {
	spec := isotopeSpectrum()
	cfg := Config{Deisotope: DefaultDeisotoping(core.Tolerance{Value: 10, Unit: core.PPM}), TopN: 2}
	if err := cfg.Apply(spec); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	// isotope peaks are gone before the most intense peaks are picked
	want := []float64{300, core.ChargedToSinglyCharged(500, 2)}
	if got := mzs(spec); !equal(got, want) {
		t.Errorf("peaks = %v, want %v", got, want)
	}
}

func TestDeisotopeInvalid(t *testing.T) {
	tol := core.Tolerance{Value: 10, Unit: core.PPM}
	tests := []struct {
		name string
		d    Deisotoping
	}{
		{"zero min charge", Deisotoping{Tolerance: tol, MaxCharge: 3, MinIsotopePeaks: 3, MaxIsotopePeaks: 10}},
		{"inverted isotope range", Deisotoping{Tolerance: tol, MinCharge: 1, MaxCharge: 3, MinIsotopePeaks: 5, MaxIsotopePeaks: 3}},
		{"negative tolerance", Deisotoping{Tolerance: core.Tolerance{Value: -1}, MinCharge: 1, MaxCharge: 3, MinIsotopePeaks: 3, MaxIsotopePeaks: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Deisotope: tt.d}
			if err := cfg.Apply(isotopeSpectrum()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
