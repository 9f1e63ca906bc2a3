package search

import (
	"context"
	"testing"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/index"
	"github.com/ChrisMcGann/FragIndex/pkg/peptide"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var byIons = peptide.FragmentIons{Ions: peptide.IonTypes{B: true, Y: true}, MinMZ: 50}

func testIndex(t *testing.T, precursorTol core.Tolerance) *index.Index {
	t.Helper()
	cfg := index.DefaultConfig()
	cfg.Peptides = peptide.Config{
		Enzyme:        "Trypsin",
		MinLength:     4,
		Ions:          byIons.Ions,
		MinFragmentMZ: byIons.MinMZ,
	}
	cfg.PrecursorTolerance = precursorTol
	cfg.FragmentTolerance = core.Tolerance{Value: 0.01, Unit: core.Da}

	ix := index.New(index.WithConfig(cfg))
	_, err := ix.Build(context.Background(), []core.Protein{
		{Identifier: "P1", Sequence: "PEPTIDEK"},
		{Identifier: "P2", Sequence: "LLSSAAGK"},
	})
	require.NoError(t, err)
	require.Len(t, ix.Peptides(), 2)
	return ix
}

func peptideIndex(t *testing.T, ix *index.Index, seq string) int {
	for i, p := range ix.Peptides() {
		if p.Sequence == seq {
			return i
		}
	}
	t.Fatalf("peptide %s not indexed", seq)
	return -1
}

func theoreticalSpectrum(seq string, charge int) core.Spectrum {
	var peaks []core.Peak
	for _, mz := range peptide.TheoreticalFragments(seq, nil, byIons) {
		peaks = append(peaks, core.Peak{MZ: mz, Intensity: 100})
	}
	return core.Spectrum{
		Container: core.Container[core.Peak]{Peaks: peaks},
		Title:     seq,
		MSLevel:   2,
		Precursor: core.Precursor{
			MZ:     core.MassToMZ(core.CalculateNeutralMass(seq, nil), charge),
			Charge: charge,
		},
	}
}

func TestQuerySpectrum(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM})
	e, err := NewEngine(ix)
	require.NoError(t, err)

	spec := theoreticalSpectrum("PEPTIDEK", 2)
	res, err := e.QuerySpectrum(&spec)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Candidates.Len())
	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, peptideIndex(t, ix, "PEPTIDEK"), m.PeptideIndex)
	assert.Equal(t, len(spec.Peaks), m.MatchedPeaks)
	assert.InDelta(t, 0, m.PrecursorError, 1e-6)
	assert.NotEmpty(t, res.Hits)
	for _, h := range res.Hits {
		assert.Contains(t, []int{1, 2}, h.Charge)
	}
}

func TestQuerySpectrumRanking(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 1000, Unit: core.Da})

	e, err := NewEngine(ix, WithConfig(Config{MinFragmentCharge: 1, MaxFragmentCharge: 1, MinMatchedPeaks: 1}))
	require.NoError(t, err)
	spec := theoreticalSpectrum("PEPTIDEK", 2)
	res, err := e.QuerySpectrum(&spec)
	require.NoError(t, err)

	// both peptides end in K and share y1
	require.Len(t, res.Matches, 2)
	assert.Equal(t, peptideIndex(t, ix, "PEPTIDEK"), res.Matches[0].PeptideIndex)
	assert.Greater(t, res.Matches[0].MatchedPeaks, res.Matches[1].MatchedPeaks)

	e, err = NewEngine(ix, WithConfig(Config{MaxFragmentCharge: 1, MinMatchedPeaks: 1, TopN: 1}))
	require.NoError(t, err)
	res, err = e.QuerySpectrum(&spec)
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)

	e, err = NewEngine(ix, WithConfig(Config{MaxFragmentCharge: 1, MinMatchedPeaks: 100}))
	require.NoError(t, err)
	res, err = e.QuerySpectrum(&spec)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.NotEmpty(t, res.Hits)
}

func TestQuerySpectrumIsotopeError(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM})
	spec := theoreticalSpectrum("PEPTIDEK", 2)
	spec.Precursor.MZ += core.C13C12MassDiff / 2

	e, err := NewEngine(ix)
	require.NoError(t, err)
	res, err := e.QuerySpectrum(&spec)
	require.NoError(t, err)
	assert.True(t, res.Candidates.Empty())
	assert.Empty(t, res.Matches)

	cfg := DefaultConfig()
	cfg.IsotopeErrorMax = 1
	e, err = NewEngine(ix, WithConfig(cfg))
	require.NoError(t, err)
	res, err = e.QuerySpectrum(&spec)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.InDelta(t, core.C13C12MassDiff, res.Matches[0].PrecursorError, 1e-6)
}

func TestQuerySpectrumPeakCharges(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM})
	cfg := DefaultConfig()
	cfg.MinMatchedPeaks = 1
	e, err := NewEngine(ix, WithConfig(cfg))
	require.NoError(t, err)

	frags := peptide.TheoreticalFragments("PEPTIDEK", nil, byIons)
	single := frags[0]
	double := (frags[len(frags)-1] + core.ProtonMass) / 2

	spectrum := func(charges ...int) core.Spectrum {
		spec := theoreticalSpectrum("PEPTIDEK", 2)
		spec.Peaks = []core.Peak{{MZ: single, Intensity: 10}, {MZ: double, Intensity: 20}}
		spec.IntegerArrays = []core.IntegerDataArray{{Name: core.MetaCharge, Data: charges}}
		spec.SortByPosition()
		return spec
	}

	spec := spectrum(0, 2)
	res, err := e.QuerySpectrum(&spec)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 2, res.Matches[0].MatchedPeaks)
	doubleIndex := spec.MZBegin(double)
	for _, h := range res.Hits {
		if h.PeakIndex == doubleIndex {
			assert.Equal(t, 2, h.Charge)
		}
	}

	// a wrong known charge is never retried over the configured range
	spec = spectrum(2, 1)
	res, err = e.QuerySpectrum(&spec)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Empty(t, res.Matches)
}

func TestQuerySpectrumPrecursorCharge(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM})
	e, err := NewEngine(ix)
	require.NoError(t, err)

	tests := []struct {
		charge  int
		skipped bool
	}{
		{1, true},
		{2, false},
		{5, false},
		{6, true},
	}
	for _, tt := range tests {
		spec := theoreticalSpectrum("PEPTIDEK", tt.charge)
		res, err := e.QuerySpectrum(&spec)
		require.NoError(t, err)
		assert.Equal(t, tt.skipped, res.Skipped, "charge %d", tt.charge)
		if tt.skipped {
			assert.Empty(t, res.Matches)
		}
	}

	_, err = NewEngine(ix, WithConfig(Config{MinPrecursorCharge: 4, MaxPrecursorCharge: 3}))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	ix := testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM})
	e, err := NewEngine(ix, WithConfig(Config{MinMatchedPeaks: 2, TopN: 1, Workers: 3}))
	require.NoError(t, err)

	spectra := []core.Spectrum{
		theoreticalSpectrum("PEPTIDEK", 2),
		{Title: "empty", Precursor: core.Precursor{MZ: 500, Charge: 2}},
		theoreticalSpectrum("LLSSAAGK", 1),
	}
	results, err := e.Search(context.Background(), spectra)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Skipped)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, peptideIndex(t, ix, "PEPTIDEK"), results[0].Matches[0].PeptideIndex)

	assert.True(t, results[1].Skipped)
	assert.Equal(t, "empty", results[1].Title)
	assert.Empty(t, results[1].Matches)

	require.Len(t, results[2].Matches, 1)
	assert.Equal(t, peptideIndex(t, ix, "LLSSAAGK"), results[2].Matches[0].PeptideIndex)
	for i, r := range results {
		assert.Equal(t, i, r.SpectrumIndex)
	}
}

func TestSearchErrors(t *testing.T) {
	e, err := NewEngine(index.New())
	require.NoError(t, err)

	spec := theoreticalSpectrum("PEPTIDEK", 2)
	_, err = e.QuerySpectrum(&spec)
	assert.ErrorIs(t, err, index.ErrNotBuilt)

	_, err = e.Search(context.Background(), []core.Spectrum{spec})
	assert.ErrorIs(t, err, index.ErrNotBuilt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err = NewEngine(testIndex(t, core.Tolerance{Value: 10, Unit: core.PPM}))
	require.NoError(t, err)
	_, err = e.Search(ctx, []core.Spectrum{spec})
	assert.Error(t, err)

	_, err = NewEngine(index.New(), WithConfig(Config{MinFragmentCharge: 3, MaxFragmentCharge: 2}))
	assert.Error(t, err)
	_, err = NewEngine(index.New(), WithConfig(Config{IsotopeErrorMin: 1, IsotopeErrorMax: 0}))
	assert.Error(t, err)
}
