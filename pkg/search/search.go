// Package search matches fragment spectra against a built fragment index.
package search

import (
	"context"
	"runtime"
	"sort"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/index"
	"github.com/ChrisMcGann/FragIndex/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config holds the query settings.
type Config struct {
	MinFragmentCharge int
	MaxFragmentCharge int // 0 = precursor charge
	IsotopeErrorMin   int
	IsotopeErrorMax   int
	TopN              int // matches kept per spectrum; 0 keeps all
	MinMatchedPeaks   int
	Workers           int // 0 = runtime.NumCPU()

	// Spectra with a precursor charge outside the range are skipped; 0 leaves a bound open.
	MinPrecursorCharge int
	MaxPrecursorCharge int
}

// DefaultConfig returns the default search settings.
func DefaultConfig() Config {
	return Config{
		MinFragmentCharge:  1,
		TopN:               1,
		MinMatchedPeaks:    2,
		MinPrecursorCharge: 2,
		MaxPrecursorCharge: 5,
	}
}

// Validate checks for inconsistent ranges.
func (c *Config) Validate() error {
	if c.MinFragmentCharge < 0 || c.MaxFragmentCharge < 0 {
		return errors.Errorf("fragment charges must be non-negative, got [%d, %d]", c.MinFragmentCharge, c.MaxFragmentCharge)
	}
	if c.MaxFragmentCharge > 0 && c.MaxFragmentCharge < c.MinFragmentCharge {
		return errors.Errorf("invalid fragment charge range [%d, %d]", c.MinFragmentCharge, c.MaxFragmentCharge)
	}
	if c.IsotopeErrorMax < c.IsotopeErrorMin {
		return errors.Errorf("invalid isotope error range [%d, %d]", c.IsotopeErrorMin, c.IsotopeErrorMax)
	}
	if c.MinPrecursorCharge < 0 || c.MaxPrecursorCharge < 0 ||
		(c.MaxPrecursorCharge > 0 && c.MaxPrecursorCharge < c.MinPrecursorCharge) {
		return errors.Errorf("invalid precursor charge range [%d, %d]", c.MinPrecursorCharge, c.MaxPrecursorCharge)
	}
	if c.TopN < 0 {
		return errors.Errorf("top N must be non-negative, got %d", c.TopN)
	}
	return nil
}

// fragmentCharges returns the charge range searched for a precursor charge.
func (c *Config) fragmentCharges(precursorCharge int) (int, int) {
	lo := c.MinFragmentCharge
	if lo < 1 {
		lo = 1
	}
	hi := c.MaxFragmentCharge
	if hi == 0 {
		hi = precursorCharge
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (c *Config) precursorChargeInRange(charge int) bool {
	if charge < c.MinPrecursorCharge {
		return false
	}
	return c.MaxPrecursorCharge == 0 || charge <= c.MaxPrecursorCharge
}

// PeakHit is a fragment match of one spectrum peak.
type PeakHit struct {
	PeakIndex int
	Charge    int
	index.Hit
}

// Match is a candidate peptide for a spectrum.
type Match struct {
	PeptideIndex   int
	MatchedPeaks   int     // distinct peaks with at least one fragment match
	PrecursorError float64 // observed minus theoretical [M+H]+, Da
}

// SpectrumResult holds the outcome of querying one spectrum.
type SpectrumResult struct {
	SpectrumIndex int // position in the searched slice
	Title         string
	PrecursorMH   float64
	Candidates    index.Range
	Hits          []PeakHit
	Matches       []Match
	Skipped       bool // failed validation or precursor charge out of range
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the search configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine queries spectra against an index.
type Engine struct {
	ix     *index.Index
	cfg    Config
	logger logger.Logger
}

// NewEngine returns an engine over ix.
func NewEngine(ix *index.Index, opts ...Option) (*Engine, error) {
	e := &Engine{
		ix:     ix,
		cfg:    DefaultConfig(),
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating search config")
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// QuerySpectrum looks up every peak of spec in the candidates of its
// precursor window and ranks peptides by the number of matched peaks.
// Peaks with a positive entry in the charge meta array are queried at that
// charge only, the others over the configured fragment charge range.
// A spectrum failing validation returns a *core.ValidationError.
func (e *Engine) QuerySpectrum(spec *core.Spectrum) (SpectrumResult, error) {
	res := SpectrumResult{SpectrumIndex: spec.Index, Title: spec.Name()}

	if err := spec.Validate(); err != nil {
		return res, err
	}
	res.PrecursorMH = spec.PrecursorSinglyCharged()
	if !e.cfg.precursorChargeInRange(spec.Precursor.Charge) {
		res.Skipped = true
		return res, nil
	}

	r, err := e.ix.PeptidesInPrecursorRange(res.PrecursorMH, index.IsotopeWindow(e.cfg.IsotopeErrorMin, e.cfg.IsotopeErrorMax))
	if err != nil {
		return res, err
	}
	res.Candidates = r
	CounterSpectraQueried.Inc()
	if r.Empty() {
		return res, nil
	}

	lo, hi := e.cfg.fragmentCharges(spec.Precursor.Charge)
	var peakCharges []int
	if arr := spec.IntegerArray(core.MetaCharge); arr != nil {
		peakCharges = arr.Data
	}
	matched := make(map[int]int)
	lastPeak := make(map[int]int)
	var buf []index.Hit

	for p, peak := range spec.Peaks {
		zlo, zhi := lo, hi
		if peakCharges != nil && peakCharges[p] > 0 {
			// a known peak charge replaces the configured range
			zlo, zhi = peakCharges[p], peakCharges[p]
		}
		for z := zlo; z <= zhi; z++ {
			buf, err = e.ix.QueryAppend(buf[:0], peak, r, z)
			if err != nil {
				return res, err
			}
			for _, h := range buf {
				res.Hits = append(res.Hits, PeakHit{PeakIndex: p, Charge: z, Hit: h})
				if last, ok := lastPeak[h.PeptideIndex]; ok && last == p {
					continue
				}
				lastPeak[h.PeptideIndex] = p
				matched[h.PeptideIndex]++
			}
		}
	}
	CounterFragmentHits.Add(float64(len(res.Hits)))

	res.Matches = e.rank(matched, res.PrecursorMH)
	return res, nil
}

func (e *Engine) rank(matched map[int]int, precursorMH float64) []Match {
	min := e.cfg.MinMatchedPeaks
	if min < 1 {
		min = 1
	}

	peptides := e.ix.Peptides()
	var matches []Match
	for idx, n := range matched {
		if n < min {
			continue
		}
		matches = append(matches, Match{
			PeptideIndex:   idx,
			MatchedPeaks:   n,
			PrecursorError: precursorMH - peptides[idx].MZ,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchedPeaks != matches[j].MatchedPeaks {
			return matches[i].MatchedPeaks > matches[j].MatchedPeaks
		}
		return matches[i].PeptideIndex < matches[j].PeptideIndex
	})
	if e.cfg.TopN > 0 && len(matches) > e.cfg.TopN {
		matches = matches[:e.cfg.TopN]
	}
	return matches
}

// Search queries spectra in parallel and returns one result per spectrum in
// input order. Spectra failing validation or outside the precursor charge
// range are marked Skipped; any other error aborts the search.
func (e *Engine) Search(ctx context.Context, spectra []core.Spectrum) ([]SpectrumResult, error) {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]SpectrumResult, len(spectra))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range spectra {
		i := i
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.QuerySpectrum(&spectra[i])
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				res.Skipped = true
				err = nil
			}
			if err != nil {
				return errors.Wrapf(err, "querying spectrum %s", spectra[i].Name())
			}
			res.SpectrumIndex = i
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "searching spectra")
	}

	n := 0
	for i := range results {
		if results[i].Skipped {
			n++
		}
	}
	if n > 0 {
		CounterSpectraSkipped.Add(float64(n))
		e.logger.Warnf("skipped %d of %d spectra (invalid or precursor charge out of range)", n, len(spectra))
	}
	e.logger.Infof("searched %d spectra", len(spectra)-n)
	return results, nil
}
