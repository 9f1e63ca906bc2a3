package filter

import (
	"testing"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

func annotatedSpectrum() *core.Spectrum {
	peaks := []core.Peak{
		{MZ: 100, Intensity: 10},
		{MZ: 150, Intensity: 80},
		{MZ: 200, Intensity: 100},
		{MZ: 250, Intensity: 5},
		{MZ: 300, Intensity: 40},
		{MZ: 350, Intensity: 0},
	}
	return &core.Spectrum{
		Container: core.Container[core.Peak]{
			Peaks: peaks,
			StringArrays: []core.StringDataArray{
				{Name: core.MetaAnnotation, Data: []string{"b2", "y1", "y2^2", "", "a3", "?"}},
			},
			IntegerArrays: []core.IntegerDataArray{
				{Name: core.MetaCharge, Data: []int{1, 1, 2, 0, 1, 0}},
			},
		},
	}
}

func mzs(spec *core.Spectrum) []float64 {
	out := make([]float64, len(spec.Peaks))
	for i, p := range spec.Peaks {
		out[i] = p.MZ
	}
	return out
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []float64
	}{
		{"no filters", Config{}, []float64{100, 150, 200, 250, 300, 350}},
		{"ion types", Config{IonTypes: []string{"y"}}, []float64{150, 200}},
		{"ion types and charge", Config{IonTypes: []string{"b", "y"}, MaxIonCharge: 1}, []float64{100, 150}},
		{"intensity cutoff", Config{IntensityCutoff: 40}, []float64{150, 200, 300}},
		{"top n", Config{TopN: 2}, []float64{150, 200}},
		{"window mower", Config{WindowSize: 100, WindowPeaks: 1}, []float64{150, 200, 300}},
		{"combined", Config{IntensityCutoff: 5, TopN: 3}, []float64{150, 200, 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := annotatedSpectrum()
			if err := tt.cfg.Apply(spec); err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if got := mzs(spec); !equal(got, tt.want) {
				t.Errorf("peaks = %v, want %v", got, tt.want)
			}
			if _, ok := spec.MetaArraysAligned(); !ok {
				t.Error("meta arrays out of step with peaks")
			}
		})
	}
}

func TestApplyKeepsMetaAligned(t *testing.T) {
	spec := annotatedSpectrum()
	cfg := Config{TopN: 3}
	if err := cfg.Apply(spec); err != nil {
		t.Fatal(err)
	}

	want := map[float64]string{150: "y1", 200: "y2^2", 300: "a3"}
	ann := spec.StringArray(core.MetaAnnotation)
	charge := spec.IntegerArray(core.MetaCharge)
	for i, p := range spec.Peaks {
		if ann.Data[i] != want[p.MZ] {
			t.Errorf("peak %.0f annotation = %q, want %q", p.MZ, ann.Data[i], want[p.MZ])
		}
	}
	if charge.Data[1] != 2 {
		t.Errorf("charge of peak 200 = %d, want 2", charge.Data[1])
	}
}

func TestApplyErrors(t *testing.T) {
	spec := annotatedSpectrum()
	spec.StringArrays[0].Data = spec.StringArrays[0].Data[:2]
	cfg := Config{}
	if err := cfg.Apply(spec); err == nil {
		t.Error("expected error for misaligned meta array")
	}

	plain := &core.Spectrum{Container: core.Container[core.Peak]{Peaks: []core.Peak{{MZ: 100, Intensity: 1}}}}
	cfg = Config{IonTypes: []string{"b"}}
	if err := cfg.Apply(plain); err == nil {
		t.Error("expected error for ion type filter without annotations")
	}
}

func TestParseIonAnnotation(t *testing.T) {
	tests := []struct {
		annotation string
		ionType    string
		position   int
		charge     int
		wantErr    bool
	}{
		{"y3", "y", 3, 1, false},
		{"b2^2", "b", 2, 2, false},
		{"y10^3", "y", 10, 3, false},
		{"b5-H2O", "b", 5, 1, false},
		{"", "", 0, 0, true},
		{"?", "", 0, 0, true},
		{"Y3", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.annotation, func(t *testing.T) {
			info, err := parseIonAnnotation(tt.annotation)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseIonAnnotation(%q) error = %v, wantErr %v", tt.annotation, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if info.ionType != tt.ionType || info.position != tt.position || info.charge != tt.charge {
				t.Errorf("parseIonAnnotation(%q) = %+v", tt.annotation, info)
			}
		})
	}
}

func TestRemoveZeroIntensityPeaks(t *testing.T) {
	spec := annotatedSpectrum()
	RemoveZeroIntensityPeaks(spec)
	if got := mzs(spec); !equal(got, []float64{100, 150, 200, 250, 300}) {
		t.Errorf("peaks = %v", got)
	}
	if ann := spec.StringArray(core.MetaAnnotation); len(ann.Data) != 5 || ann.Data[4] != "a3" {
		t.Errorf("annotations = %v", ann.Data)
	}
}
