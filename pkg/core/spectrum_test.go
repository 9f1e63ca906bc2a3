package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

func newTestSpectrum(mzs ...float64) *Spectrum {
	spec := &Spectrum{}
	for i, mz := range mzs {
		spec.Peaks = append(spec.Peaks, Peak{MZ: mz, Intensity: float64(i + 1)})
	}
	return spec
}

func TestSpectrumValidation(t *testing.T) {
	valid := func() *Spectrum {
		s := newTestSpectrum(100.0, 200.0)
		s.Precursor = Precursor{MZ: 400.5, Charge: 2}
		return s
	}

	tests := []struct {
		name    string
		mutate  func(s *Spectrum)
		wantErr bool
	}{
		{name: "valid spectrum", mutate: func(s *Spectrum) {}, wantErr: false},
		{name: "missing precursor", mutate: func(s *Spectrum) { s.Precursor.MZ = 0 }, wantErr: true},
		{name: "zero charge", mutate: func(s *Spectrum) { s.Precursor.Charge = 0 }, wantErr: true},
		{name: "no peaks", mutate: func(s *Spectrum) { s.Peaks = nil }, wantErr: true},
		{name: "unsorted peaks", mutate: func(s *Spectrum) { s.Peaks[0].MZ = 300 }, wantErr: true},
		{name: "NaN m/z", mutate: func(s *Spectrum) { s.Peaks[0].MZ = math.NaN() }, wantErr: true},
		{name: "negative intensity", mutate: func(s *Spectrum) { s.Peaks[1].Intensity = -1 }, wantErr: true},
		{
			name: "meta array length mismatch",
			mutate: func(s *Spectrum) {
				s.StringArrays = []StringDataArray{{Name: MetaAnnotation, Data: []string{"b2"}}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid()
			tt.mutate(spec)
			err := spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestSortByPosition(t *testing.T) {
	spec := newTestSpectrum(300.0, 100.0, 200.0)

	spec.SortByPosition()

	expected := []float64{100.0, 200.0, 300.0}
	for i, peak := range spec.Peaks {
		if peak.MZ != expected[i] {
			t.Errorf("Peak %d: expected m/z %.1f, got %.1f", i, expected[i], peak.MZ)
		}
	}
}

func TestSortByPositionKeepsMetaArrays(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	spec := &Spectrum{}
	ids := IntegerDataArray{Name: "id"}
	labels := StringDataArray{Name: MetaAnnotation}
	masses := FloatDataArray{Name: "mz_copy"}
	original := map[int]float64{}

	for i := 0; i < 500; i++ {
		mz := math.Round(rng.Float64()*1000*100) / 100 // force some duplicates
		spec.Peaks = append(spec.Peaks, Peak{MZ: mz, Intensity: rng.Float64()})
		ids.Data = append(ids.Data, i)
		labels.Data = append(labels.Data, string(rune('a'+i%26)))
		masses.Data = append(masses.Data, mz)
		original[i] = mz
	}
	spec.IntegerArrays = []IntegerDataArray{ids}
	spec.StringArrays = []StringDataArray{labels}
	spec.FloatArrays = []FloatDataArray{masses}

	spec.SortByPosition()

	if !spec.IsSorted() {
		t.Fatal("container not sorted after SortByPosition")
	}
	gotIDs := spec.IntegerArray("id").Data
	gotLabels := spec.StringArray(MetaAnnotation).Data
	gotMasses := spec.FloatArray("mz_copy").Data
	for i, p := range spec.Peaks {
		if i > 0 && spec.Peaks[i-1].MZ > p.MZ {
			t.Fatalf("peak %d out of order", i)
		}
		id := gotIDs[i]
		if original[id] != p.MZ {
			t.Errorf("peak %d: id %d belongs to m/z %v, peak has %v", i, id, original[id], p.MZ)
		}
		if gotMasses[i] != p.MZ {
			t.Errorf("peak %d: float meta %v does not match m/z %v", i, gotMasses[i], p.MZ)
		}
		if gotLabels[i] != string(rune('a'+id%26)) {
			t.Errorf("peak %d: label %q does not match id %d", i, gotLabels[i], id)
		}
		// stable: equal m/z keeps original id order
		if i > 0 && spec.Peaks[i-1].MZ == p.MZ && gotIDs[i-1] > id {
			t.Errorf("peak %d: sort was not stable", i)
		}
	}
}

func TestSortByIntensity(t *testing.T) {
	spec := &Spectrum{}
	spec.Peaks = []Peak{{MZ: 1, Intensity: 30}, {MZ: 2, Intensity: 10}, {MZ: 3, Intensity: 20}}
	spec.IntegerArrays = []IntegerDataArray{{Name: "id", Data: []int{0, 1, 2}}}

	spec.SortByIntensity(false)
	assertIntensities(t, spec, []float64{10, 20, 30})
	assertInts(t, spec.IntegerArray("id").Data, []int{1, 2, 0})

	spec.SortByIntensity(true)
	assertIntensities(t, spec, []float64{30, 20, 10})
	assertInts(t, spec.IntegerArray("id").Data, []int{0, 2, 1})

	// without meta arrays the fast path is used
	plain := &Spectrum{}
	plain.Peaks = []Peak{{MZ: 1, Intensity: 3}, {MZ: 2, Intensity: 1}, {MZ: 3, Intensity: 2}}
	plain.SortByIntensity(true)
	assertIntensities(t, plain, []float64{3, 2, 1})
}

func assertIntensities(t *testing.T, spec *Spectrum, want []float64) {
	t.Helper()
	for i, p := range spec.Peaks {
		if p.Intensity != want[i] {
			t.Errorf("peak %d intensity = %v, want %v", i, p.Intensity, want[i])
		}
	}
}

func assertInts(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMZBeginEnd(t *testing.T) {
	spec := newTestSpectrum(1, 2, 3, 4, 5, 5, 6, 7, 8, 9)

	tests := []struct {
		mz        float64
		wantBegin int
		wantEnd   int
	}{
		{0.5, 0, 0},
		{1, 0, 1},
		{4.5, 4, 4},
		{5.0, 4, 6},
		{5.5, 6, 6},
		{9, 9, 10},
		{10, 10, 10},
	}

	for _, tt := range tests {
		if got := spec.MZBegin(tt.mz); got != tt.wantBegin {
			t.Errorf("MZBegin(%v) = %d, want %d", tt.mz, got, tt.wantBegin)
		}
		if got := spec.MZEnd(tt.mz); got != tt.wantEnd {
			t.Errorf("MZEnd(%v) = %d, want %d", tt.mz, got, tt.wantEnd)
		}
	}

	// sub-range overloads
	if got := spec.MZBeginIn(0, 4.5, len(spec.Peaks)); got != 4 {
		t.Errorf("MZBeginIn(full, 4.5) = %d, want 4", got)
	}
	if got := spec.MZBeginIn(0, 4.5, 0); got != 0 {
		t.Errorf("MZBeginIn(empty, 4.5) = %d, want 0", got)
	}
	if got := spec.MZBeginIn(6, 2, 9); got != 6 {
		t.Errorf("MZBeginIn(6, 2, 9) = %d, want 6", got)
	}
	if got := spec.MZEndIn(0, 5, 5); got != 5 {
		t.Errorf("MZEndIn(0, 5, 5) = %d, want 5", got)
	}
	if got := spec.MZEndIn(2, 100, 7); got != 7 {
		t.Errorf("MZEndIn(2, 100, 7) = %d, want 7", got)
	}
}

func TestRangeQueryProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	spec := &Spectrum{}
	for i := 0; i < 200; i++ {
		spec.Peaks = append(spec.Peaks, Peak{MZ: math.Floor(rng.Float64() * 50), Intensity: 1})
	}
	spec.SortByPosition()

	prevBegin := -1
	for c := -1.0; c <= 51; c += 0.25 {
		begin := spec.MZBegin(c)
		end := spec.MZEnd(c)
		for i, p := range spec.Peaks {
			if p.MZ >= c {
				if begin != i {
					t.Fatalf("MZBegin(%v) = %d, want %d", c, begin, i)
				}
				break
			}
		}
		for i := 0; i < end; i++ {
			if spec.Peaks[i].MZ > c {
				t.Fatalf("MZEnd(%v) = %d includes %v", c, end, spec.Peaks[i].MZ)
			}
		}
		if end < len(spec.Peaks) && spec.Peaks[end].MZ <= c {
			t.Fatalf("MZEnd(%v) = %d stops early", c, end)
		}
		if begin < prevBegin {
			t.Fatalf("MZBegin not monotone at %v", c)
		}
		prevBegin = begin
	}
}

func TestFindNearest(t *testing.T) {
	spec := newTestSpectrum(1, 3, 5, 10)

	tests := []struct {
		mz   float64
		want int
	}{
		{-5, 0},
		{1, 0},
		{1.9, 0},
		{2.1, 1},
		{2, 0}, // equidistant: left wins
		{4, 1}, // equidistant: left wins
		{7.6, 3},
		{7.5, 2}, // equidistant: left wins
		{100, 3},
	}

	for _, tt := range tests {
		got, err := spec.FindNearest(tt.mz)
		if err != nil {
			t.Fatalf("FindNearest(%v) error: %v", tt.mz, err)
		}
		if got != tt.want {
			t.Errorf("FindNearest(%v) = %d, want %d", tt.mz, got, tt.want)
		}
	}
}

func TestFindNearestIsOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	spec := &Spectrum{}
	for i := 0; i < 100; i++ {
		spec.Peaks = append(spec.Peaks, Peak{MZ: rng.Float64() * 100})
	}
	spec.SortByPosition()

	for k := 0; k < 1000; k++ {
		c := rng.Float64()*120 - 10
		got, err := spec.FindNearest(c)
		if err != nil {
			t.Fatal(err)
		}
		best := math.Abs(spec.Peaks[got].MZ - c)
		for i, p := range spec.Peaks {
			d := math.Abs(p.MZ - c)
			if d < best {
				t.Fatalf("FindNearest(%v) = %d (dist %v) but peak %d is closer (dist %v)", c, got, best, i, d)
			}
		}
	}
}

func TestFindNearestEmpty(t *testing.T) {
	spec := &Spectrum{}
	_, err := spec.FindNearest(100)
	if !errors.Is(err, ErrEmptyContainer) {
		t.Errorf("FindNearest on empty container error = %v, want ErrEmptyContainer", err)
	}
	if _, err := spec.BasePeak(); !errors.Is(err, ErrEmptyContainer) {
		t.Errorf("BasePeak on empty container error = %v, want ErrEmptyContainer", err)
	}
}

func TestSelectAndBasePeak(t *testing.T) {
	spec := newTestSpectrum(10, 20, 30, 40)
	spec.StringArrays = []StringDataArray{{Name: MetaAnnotation, Data: []string{"b1", "y1", "b2", "y2"}}}

	spec.Select([]int{3, 1})

	if spec.Len() != 2 || spec.Peaks[0].MZ != 40 || spec.Peaks[1].MZ != 20 {
		t.Fatalf("unexpected peaks after Select: %+v", spec.Peaks)
	}
	if got := spec.StringArray(MetaAnnotation).Data; got[0] != "y2" || got[1] != "y1" {
		t.Errorf("annotations not selected in lockstep: %v", got)
	}
	idx, err := spec.BasePeak()
	if err != nil || idx != 0 {
		t.Errorf("BasePeak() = %d, %v; want 0", idx, err)
	}
	if spec.TIC() != 6 {
		t.Errorf("TIC() = %v, want 6", spec.TIC())
	}
}

func TestMobilogramRangeQueries(t *testing.T) {
	m := &Mobilogram{RetentionTime: 12.5}
	m.Peaks = []MobilityPeak{{Mobility: 0.9, Intensity: 5}, {Mobility: 0.7, Intensity: 1}, {Mobility: 1.1, Intensity: 3}}
	m.SortByPosition()

	if !m.IsSorted() {
		t.Fatal("mobilogram not sorted")
	}
	if got := m.MobilityBegin(0.8); got != 1 {
		t.Errorf("MobilityBegin(0.8) = %d, want 1", got)
	}
	if got := m.MobilityEnd(0.9); got != 2 {
		t.Errorf("MobilityEnd(0.9) = %d, want 2", got)
	}
	idx, err := m.FindNearest(1.05)
	if err != nil || idx != 2 {
		t.Errorf("FindNearest(1.05) = %d, %v; want 2", idx, err)
	}
}

func TestPeptideModifiedSequence(t *testing.T) {
	pep := &Peptide{
		Sequence: "PEPMTIDE",
		Modifications: []Modification{
			{Mass: 15.994915, Position: 3, Name: "Oxidation"},
			{Mass: 42.010565, Position: -1, Name: "Acetyl"},
		},
	}

	if got, want := pep.ModifiedSequence(), "(Acetyl)PEPM(Oxidation)TIDE"; got != want {
		t.Errorf("ModifiedSequence() = %q, want %q", got, want)
	}
	if math.Abs(pep.TotalModMass()-(15.994915+42.010565)) > 1e-9 {
		t.Errorf("TotalModMass() = %v", pep.TotalModMass())
	}
	if pep.ModString() == "" {
		t.Error("Expected non-empty mod string")
	}
}
