package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ChrisMcGann/FragIndex/pkg/index"
	"github.com/ChrisMcGann/FragIndex/pkg/logger"
	"github.com/ChrisMcGann/FragIndex/pkg/peptide"
	"github.com/ChrisMcGann/FragIndex/pkg/writer/sqlite"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// fragmentSize is the in-memory size of one core.Fragment.
const fragmentSize = 16

func newIndexCommand(g *global) *cobra.Command {
	var (
		flags      indexFlags
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a fragment index and print its statistics",
		Long: `Digest a FASTA database, enumerate modified peptides, and index their
theoretical fragment ions. With --out the proteins and peptides, including
their fragment m/z values, are written to a SQLite database.

Examples:
  # Build with default tryptic settings
  fragindex index --fasta human.fasta

  # Build with decoys and persist the peptides
  fragindex index --fasta human.fasta --decoys --out peptides.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := g.Logger()
			ix, err := buildIndex(cmd.Context(), g, &flags, log)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), ix.Stats())

			if outputFile == "" {
				return nil
			}
			return writeIndex(outputFile, ix, log)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output SQLite database for proteins and peptides")
	return cmd
}

// buildIndex reads the FASTA file named by flags and builds an index over it.
func buildIndex(ctx context.Context, g *global, flags *indexFlags, log logger.Logger) (*index.Index, error) {
	modDB, err := g.ModDatabase()
	if err != nil {
		return nil, err
	}
	cfg, err := flags.Config(modDB)
	if err != nil {
		return nil, errors.Wrap(err, "invalid index settings")
	}
	proteins, err := readProteins(flags.fasta)
	if err != nil {
		return nil, err
	}

	ix := index.New(index.WithConfig(cfg), index.WithLogger(log.WithPrefix("index: ")))
	if _, err := ix.Build(ctx, proteins); err != nil {
		return nil, errors.Wrap(err, "building index")
	}
	return ix, nil
}

func printStats(w io.Writer, s index.BuildStats) {
	fmt.Fprintf(w, "Proteins:    %s\n", humanize.Comma(int64(s.Proteins)))
	fmt.Fprintf(w, "Candidates:  %s (%s skipped, %s out of mass range)\n",
		humanize.Comma(int64(s.Candidates)), humanize.Comma(int64(s.Skipped)), humanize.Comma(int64(s.OutOfRange)))
	fmt.Fprintf(w, "Peptides:    %s\n", humanize.Comma(int64(s.Peptides)))
	fmt.Fprintf(w, "Fragments:   %s (%s)\n", humanize.Comma(int64(s.Fragments)), humanize.Bytes(uint64(s.Fragments)*fragmentSize))
	fmt.Fprintf(w, "Buckets:     %s of %s fragments\n", humanize.Comma(int64(s.Buckets)), humanize.Comma(int64(s.BucketSize)))
	fmt.Fprintf(w, "Build time:  %s\n", s.Duration.Round(time.Millisecond))
}

func writeIndex(path string, ix *index.Index, log logger.Logger) (err error) {
	cfg := ix.Config()
	gen, err := peptide.NewGenerator(cfg.Peptides)
	if err != nil {
		return err
	}

	w, err := sqlite.NewWriter(path)
	if err != nil {
		return errors.Wrap(err, "creating output database")
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	if err := w.WriteConfig(cfg); err != nil {
		return err
	}
	if err := w.WriteStats(ix.Stats()); err != nil {
		return err
	}
	if err := w.WriteProteins(ix.Proteins()); err != nil {
		return err
	}
	peptides := ix.Peptides()
	if err := w.WritePeptides(peptides, gen.Fragments); err != nil {
		return err
	}

	log.Infof("wrote %s peptides to %s (run %s)", humanize.Comma(int64(len(peptides))), path, w.RunID())
	return nil
}
