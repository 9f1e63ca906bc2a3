package peptide

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/digest"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrNoProteins is returned when generation is asked to work on an empty database.
var ErrNoProteins = errors.New("no proteins to digest")

// Result is the outcome of a generation run.
type Result struct {
	// Proteins is the input database, with decoys appended when enabled.
	// Peptide.ProteinIndex refers into it.
	Proteins []core.Protein
	// Peptides are sorted by (MZ, ProteinIndex, Start, length, ModificationIndex).
	Peptides []core.Peptide

	Candidates int // digestion products within the length bounds
	Skipped    int // candidates containing residues without a known mass
	OutOfRange int // modified forms outside the peptide mass window
}

// Generator digests proteins and expands modifications into candidate peptides.
type Generator struct {
	cfg      Config
	digester *digest.Digester
	mods     *ModifiedPeptideGenerator
}

// NewGenerator validates cfg and resolves its enzyme and modifications.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating peptide config")
	}
	enzyme, err := digest.EnzymeByName(cfg.Enzyme)
	if err != nil {
		return nil, err
	}
	mods, err := NewModifiedPeptideGenerator(cfg.ModDatabase, cfg.FixedModifications, cfg.VariableModifications, cfg.MaxVariableMods)
	if err != nil {
		return nil, errors.Wrap(err, "resolving modifications")
	}
	return &Generator{
		cfg: cfg,
		digester: &digest.Digester{
			Enzyme:          enzyme,
			MissedCleavages: cfg.MissedCleavages,
			MinLength:       cfg.MinLength,
			MaxLength:       cfg.MaxLength,
		},
		mods: mods,
	}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() Config { return g.cfg }

// Fragments returns the theoretical fragment m/z values of p.
func (g *Generator) Fragments(p *core.Peptide) []float64 {
	return TheoreticalFragments(p.Sequence, p.Modifications, g.cfg.FragmentIons())
}

// WithDecoys returns proteins followed by their reversed decoys.
func WithDecoys(proteins []core.Protein) []core.Protein {
	out := make([]core.Protein, 0, 2*len(proteins))
	out = append(out, proteins...)
	for _, p := range proteins {
		out = append(out, core.Protein{
			Identifier:  digest.DecoyPrefix + p.Identifier,
			Description: p.Description,
			Sequence:    digest.ReverseSequence(p.Sequence),
		})
	}
	return out
}

type tally struct {
	candidates, skipped, outOfRange int
}

// Generate produces the candidate peptides of proteins. Proteins are processed
// by a fixed pool of workers; each worker collects one protein's peptides in
// its own buffer and merges it into the result under a lock.
func (g *Generator) Generate(ctx context.Context, proteins []core.Protein) (*Result, error) {
	if len(proteins) == 0 {
		return nil, ErrNoProteins
	}
	if g.cfg.Decoys {
		proteins = WithDecoys(proteins)
	}

	workers := g.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(proteins) {
		workers = len(proteins)
	}

	res := &Result{Proteins: proteins}
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	work := make(chan int)

	eg.Go(func() error {
		defer close(work)
		for i := range proteins {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case work <- i:
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			var scratch []core.Peptide
			for i := range work {
				var t tally
				scratch = g.digestProtein(scratch[:0], i, proteins[i].Sequence, &t)

				mu.Lock()
				res.Peptides = append(res.Peptides, scratch...)
				res.Candidates += t.candidates
				res.Skipped += t.skipped
				res.OutOfRange += t.outOfRange
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "generating peptides")
	}

	SortPeptides(res.Peptides)
	return res, nil
}

func (g *Generator) digestProtein(dst []core.Peptide, proteinIndex int, seq string, t *tally) []core.Peptide {
	for _, span := range g.digester.Digest(seq) {
		t.candidates++
		sub := seq[span.Start : span.Start+span.Length]
		if core.HasUnsupportedResidue(sub) {
			t.skipped++
			continue
		}
		for modIndex, mods := range g.mods.Expand(sub) {
			mz := core.CalculatePeptideMass(sub, 1, mods)
			if !g.cfg.massInRange(mz) {
				t.outOfRange++
				continue
			}
			dst = append(dst, core.Peptide{
				Sequence:          sub,
				ProteinIndex:      proteinIndex,
				Start:             span.Start,
				ModificationIndex: modIndex,
				Modifications:     mods,
				MZ:                mz,
			})
		}
	}
	return dst
}

// SortPeptides orders peptides by (MZ, ProteinIndex, Start, length, ModificationIndex).
func SortPeptides(peptides []core.Peptide) {
	sort.Slice(peptides, func(i, j int) bool {
		a, b := &peptides[i], &peptides[j]
		if a.MZ != b.MZ {
			return a.MZ < b.MZ
		}
		if a.ProteinIndex != b.ProteinIndex {
			return a.ProteinIndex < b.ProteinIndex
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if len(a.Sequence) != len(b.Sequence) {
			return len(a.Sequence) < len(b.Sequence)
		}
		return a.ModificationIndex < b.ModificationIndex
	})
}
