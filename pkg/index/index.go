// Package index implements a two-level fragment ion index. Fragments are
// sorted by m/z and cut into buckets of about sqrt(N) entries; each bucket is
// then re-sorted by peptide index so a query visits only the buckets whose m/z
// span can overlap the tolerance window and, inside each bucket, only the
// peptides of the current precursor range.
package index

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/logger"
	"github.com/ChrisMcGann/FragIndex/pkg/peptide"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotBuilt is returned by queries issued before a successful Build.
	ErrNotBuilt = errors.New("fragment index not built")
	// ErrInvalidCharge is returned for fragment charges below 1.
	ErrInvalidCharge = errors.New("invalid charge")
)

// Range is a half-open range [Begin, End) of peptide indices.
type Range struct {
	Begin, End int
}

// Len returns the number of peptides in the range.
func (r Range) Len() int {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// Empty reports whether the range holds no peptides.
func (r Range) Empty() bool { return r.Len() == 0 }

// Window widens a precursor tolerance window by the given offsets in Da,
// applied as [mz - tol + Lo, mz + tol + Hi].
type Window struct {
	Lo, Hi float64
}

// IsotopeWindow returns the window covering precursor picks on isotope peaks
// min through max, e.g. (0, 1) also matches a monoisotopic mass one C13 below
// the observed precursor.
func IsotopeWindow(min, max int) Window {
	return Window{
		Lo: -float64(max) * core.C13C12MassDiff,
		Hi: -float64(min) * core.C13C12MassDiff,
	}
}

// Hit is a peptide whose fragment matched a query peak.
type Hit struct {
	PeptideIndex int
	FragmentMZ   float64
}

// BuildStats summarizes a build.
type BuildStats struct {
	Proteins   int
	Candidates int
	Skipped    int
	OutOfRange int
	Peptides   int
	Fragments  int
	Buckets    int
	BucketSize int
	Duration   time.Duration
}

// Index is a fragment ion index over the peptides of a protein database.
// Queries may run concurrently with each other; Build takes an exclusive lock.
type Index struct {
	mu     sync.RWMutex
	cfg    Config
	logger logger.Logger

	built       bool
	proteins    []core.Protein
	peptides    []core.Peptide
	fragments   []core.Fragment
	bucketSize  int
	bucketMinMZ []float64
	stats       BuildStats
}

// New returns an empty index. It must be built before it can be queried.
func New(opts ...Option) *Index {
	ix := &Index{
		cfg:    DefaultConfig(),
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build generates the peptides and fragments of proteins and replaces the
// current contents of the index. On error the previous contents are kept.
func (ix *Index) Build(ctx context.Context, proteins []core.Protein) (BuildStats, error) {
	start := time.Now()

	ix.mu.RLock()
	cfg := ix.cfg
	ix.mu.RUnlock()

	if err := cfg.Validate(); err != nil {
		return BuildStats{}, errors.Wrap(err, "validating index config")
	}
	gen, err := peptide.NewGenerator(cfg.Peptides)
	if err != nil {
		return BuildStats{}, err
	}

	ix.logger.Infof("digesting %d proteins", len(proteins))
	res, err := gen.Generate(ctx, proteins)
	if err != nil {
		return BuildStats{}, err
	}
	if res.Skipped > 0 {
		ix.logger.Warnf("skipped %d candidate peptides with unsupported residues", res.Skipped)
	}
	ix.logger.Debugf("%d peptides in mass range, %d outside", len(res.Peptides), res.OutOfRange)

	fragments, err := generateFragments(ctx, gen, res.Peptides, cfg.Peptides.Workers)
	if err != nil {
		return BuildStats{}, err
	}

	bucketSize, bucketMinMZ := bucketize(fragments)

	stats := BuildStats{
		Proteins:   len(res.Proteins),
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
		OutOfRange: res.OutOfRange,
		Peptides:   len(res.Peptides),
		Fragments:  len(fragments),
		Buckets:    len(bucketMinMZ),
		BucketSize: bucketSize,
		Duration:   time.Since(start),
	}

	ix.mu.Lock()
	ix.built = true
	ix.proteins = res.Proteins
	ix.peptides = res.Peptides
	ix.fragments = fragments
	ix.bucketSize = bucketSize
	ix.bucketMinMZ = bucketMinMZ
	ix.stats = stats
	ix.mu.Unlock()

	CounterBuilds.Inc()
	CounterSkippedPeptides.Add(float64(res.Skipped))
	GaugeFragments.Set(float64(len(fragments)))
	HistogramBuildSeconds.Observe(stats.Duration.Seconds())

	ix.logger.Infof("indexed %d fragments of %d peptides in %d buckets of %d (%s)",
		stats.Fragments, stats.Peptides, stats.Buckets, stats.BucketSize, stats.Duration)
	return stats, nil
}

// generateFragments computes the fragments of every peptide in contiguous
// chunks, one per worker, and concatenates them in peptide order.
func generateFragments(ctx context.Context, gen *peptide.Generator, peptides []core.Peptide, workers int) ([]core.Fragment, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := (len(peptides) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	parts := make([][]core.Fragment, (len(peptides)+chunk-1)/chunk)
	eg, ctx := errgroup.WithContext(ctx)
	for part := range parts {
		part := part
		lo := part * chunk
		hi := lo + chunk
		if hi > len(peptides) {
			hi = len(peptides)
		}
		eg.Go(func() error {
			var out []core.Fragment
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, mz := range gen.Fragments(&peptides[i]) {
					out = append(out, core.Fragment{PeptideIndex: i, MZ: mz})
				}
			}
			parts[part] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "generating fragments")
	}

	n := 0
	for _, p := range parts {
		n += len(p)
	}
	fragments := make([]core.Fragment, 0, n)
	for _, p := range parts {
		fragments = append(fragments, p...)
	}
	return fragments, nil
}

// bucketize sorts fragments by m/z, records the smallest m/z of every bucket,
// and reorders each bucket by peptide index.
func bucketize(fragments []core.Fragment) (int, []float64) {
	sort.Slice(fragments, func(i, j int) bool {
		if fragments[i].MZ != fragments[j].MZ {
			return fragments[i].MZ < fragments[j].MZ
		}
		return fragments[i].PeptideIndex < fragments[j].PeptideIndex
	})

	size := int(math.Sqrt(float64(len(fragments))))
	if size < 1 {
		size = 1
	}

	var mins []float64
	for lo := 0; lo < len(fragments); lo += size {
		hi := lo + size
		if hi > len(fragments) {
			hi = len(fragments)
		}
		mins = append(mins, fragments[lo].MZ)

		bucket := fragments[lo:hi]
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].PeptideIndex != bucket[j].PeptideIndex {
				return bucket[i].PeptideIndex < bucket[j].PeptideIndex
			}
			return bucket[i].MZ < bucket[j].MZ
		})
	}
	return size, mins
}

// PeptidesInPrecursorRange returns the peptides whose [M+H]+ lies in
// [mz - tol + w.Lo, mz + tol + w.Hi], where mz is a singly charged precursor
// and tol the precursor tolerance around it.
func (ix *Index) PeptidesInPrecursorRange(mz float64, w Window) (Range, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.built {
		return Range{}, ErrNotBuilt
	}

	tol := ix.cfg.PrecursorTolerance.Absolute(mz)
	lo, hi := mz-tol+w.Lo, mz+tol+w.Hi

	peptides := ix.peptides
	begin := sort.Search(len(peptides), func(i int) bool { return peptides[i].MZ >= lo })
	end := sort.Search(len(peptides), func(i int) bool { return peptides[i].MZ > hi })
	if end < begin {
		end = begin
	}
	return Range{Begin: begin, End: end}, nil
}

// Query returns the peptides in r with a fragment within the fragment
// tolerance of peak, observed at the given charge. Hits are ordered by bucket
// and then by peptide index; a peptide may appear once per matching fragment.
func (ix *Index) Query(peak core.Peak, r Range, charge int) ([]Hit, error) {
	return ix.QueryAppend(nil, peak, r, charge)
}

// QueryAppend is like Query but appends the hits to dst.
func (ix *Index) QueryAppend(dst []Hit, peak core.Peak, r Range, charge int) ([]Hit, error) {
	if charge < 1 {
		return dst, errors.Wrapf(ErrInvalidCharge, "fragment charge %d", charge)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.built {
		return dst, ErrNotBuilt
	}
	CounterQueries.Inc()

	if r.Begin < 0 {
		r.Begin = 0
	}
	if r.End > len(ix.peptides) {
		r.End = len(ix.peptides)
	}
	if r.Empty() || len(ix.fragments) == 0 {
		return dst, nil
	}

	mz := core.ChargedToSinglyCharged(peak.MZ, charge)
	lo, hi := ix.cfg.FragmentTolerance.Window(mz)

	mins := ix.bucketMinMZ
	first := sort.SearchFloat64s(mins, lo) - 1
	if first < 0 {
		first = 0
	}
	last := sort.Search(len(mins), func(i int) bool { return mins[i] > hi })

	for k := first; k < last; k++ {
		begin := k * ix.bucketSize
		end := begin + ix.bucketSize
		if end > len(ix.fragments) {
			end = len(ix.fragments)
		}
		bucket := ix.fragments[begin:end]

		i := sort.Search(len(bucket), func(i int) bool { return bucket[i].PeptideIndex >= r.Begin })
		for ; i < len(bucket) && bucket[i].PeptideIndex < r.End; i++ {
			if f := bucket[i]; f.MZ >= lo && f.MZ <= hi {
				dst = append(dst, Hit{PeptideIndex: f.PeptideIndex, FragmentMZ: f.MZ})
			}
		}
	}
	return dst, nil
}

// IsBuilt reports whether Build has completed at least once.
func (ix *Index) IsBuilt() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// Config returns the index configuration.
func (ix *Index) Config() Config {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.cfg
}

// Stats returns the statistics of the last build.
func (ix *Index) Stats() BuildStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.stats
}

// Proteins returns the indexed proteins, decoys included. The slice must not be modified.
func (ix *Index) Proteins() []core.Protein {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.proteins
}

// Peptides returns the indexed peptides sorted by [M+H]+. The slice must not be modified.
func (ix *Index) Peptides() []core.Peptide {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.peptides
}

// Fragments returns the fragments in bucket order. The slice must not be modified.
func (ix *Index) Fragments() []core.Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.fragments
}

// BucketSize returns the number of fragments per bucket.
func (ix *Index) BucketSize() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.bucketSize
}

// BucketMinMZ returns the smallest fragment m/z of each bucket.
func (ix *Index) BucketMinMZ() []float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.bucketMinMZ
}
