package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/filter"
	"github.com/ChrisMcGann/FragIndex/pkg/index"
	"github.com/ChrisMcGann/FragIndex/pkg/reader/mgf"
	"github.com/ChrisMcGann/FragIndex/pkg/reader/msp"
	"github.com/ChrisMcGann/FragIndex/pkg/search"
	"github.com/ChrisMcGann/FragIndex/pkg/writer/sqlite"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// searchSettings is stored as the run configuration of a search.
type searchSettings struct {
	Index  index.Config
	Filter filter.Config
	Search search.Config
}

func newSearchCommand(g *global) *cobra.Command {
	var (
		flags      indexFlags
		mgfFile    string
		mspFile    string
		outputFile string

		topPeaks    int
		cutoff      float64
		ionTypes    string
		maxCharge   int
		windowSize  float64
		windowPeaks int
		deisotope   bool

		minFragCharge int
		maxFragCharge int
		isotopeMin    int
		isotopeMax    int
		topHits       int
		minMatched    int
		minPrecCharge int
		maxPrecCharge int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search spectra against a fragment index",
		Long: `Build a fragment index from a FASTA database, preprocess the spectra of an
MGF peak list or MSP library, and write the best peptide matches of every
spectrum to a SQLite database.

Examples:
  # Search an MGF file with default settings
  fragindex search --fasta human.fasta --mgf run.mgf --out results.db

  # Keep the 150 most intense peaks and report the top 5 peptides
  fragindex search --fasta human.fasta --mgf run.mgf --out results.db --top-peaks 150 --top-hits 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return errors.New("--out is required")
			}
			if (mgfFile == "") == (mspFile == "") {
				return errors.New("exactly one of --mgf or --msp is required")
			}

			settings := searchSettings{
				Filter: filter.Config{
					TopN:            topPeaks,
					IntensityCutoff: cutoff,
					MaxIonCharge:    maxCharge,
					WindowSize:      windowSize,
					WindowPeaks:     windowPeaks,
				},
				Search: search.Config{
					MinFragmentCharge:  minFragCharge,
					MaxFragmentCharge:  maxFragCharge,
					IsotopeErrorMin:    isotopeMin,
					IsotopeErrorMax:    isotopeMax,
					TopN:               topHits,
					MinMatchedPeaks:    minMatched,
					MinPrecursorCharge: minPrecCharge,
					MaxPrecursorCharge: maxPrecCharge,
					Workers:            flags.threads,
				},
			}
			if ionTypes != "" {
				for _, t := range strings.Split(ionTypes, ",") {
					settings.Filter.IonTypes = append(settings.Filter.IonTypes, strings.TrimSpace(t))
				}
			}

			log := g.Logger()
			ix, err := buildIndex(cmd.Context(), g, &flags, log)
			if err != nil {
				return err
			}
			settings.Index = ix.Config()
			if deisotope {
				settings.Filter.Deisotope = filter.DefaultDeisotoping(settings.Index.FragmentTolerance)
			}

			engine, err := search.NewEngine(ix,
				search.WithConfig(settings.Search),
				search.WithLogger(log.WithPrefix("search: ")))
			if err != nil {
				return err
			}

			var spectra []core.Spectrum
			if mgfFile != "" {
				spectra, err = readMGF(mgfFile)
			} else {
				spectra, err = readMSP(g, mspFile)
			}
			if err != nil {
				return err
			}

			filtered := 0
			for i := range spectra {
				spec := &spectra[i]
				filter.RemoveZeroIntensityPeaks(spec)
				if err := settings.Filter.Apply(spec); err != nil {
					fmt.Fprintf(g.stderr, "Warning: failed to filter spectrum %s: %v\n", spec.Name(), err)
					spec.Peaks = nil
					spec.FloatArrays, spec.IntegerArrays, spec.StringArrays = nil, nil, nil
					continue
				}
				filtered++
			}
			log.Debugf("filtered %d of %d spectra", filtered, len(spectra))

			results, err := engine.Search(cmd.Context(), spectra)
			if err != nil {
				return err
			}

			if err := writeMatches(outputFile, settings, ix, results); err != nil {
				return err
			}
			printSearchSummary(cmd.OutOrStdout(), results)
			return nil
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&mgfFile, "mgf", "", "Spectra in MGF format")
	cmd.Flags().StringVar(&mspFile, "msp", "", "Spectra in MSP library format")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output SQLite database (required)")

	cmd.Flags().IntVar(&topPeaks, "top-peaks", 0, "Keep only top N most intense peaks (0 = no limit)")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	cmd.Flags().StringVar(&ionTypes, "ion-types", "", "Comma-separated annotated ion types to keep (e.g., 'b,y')")
	cmd.Flags().IntVar(&maxCharge, "max-ion-charge", 0, "Drop annotated peaks above this charge (0 = no limit)")
	cmd.Flags().Float64Var(&windowSize, "window-size", 0, "Window mower bin width in m/z (0 = off)")
	cmd.Flags().IntVar(&windowPeaks, "window-peaks", 0, "Peaks kept per window mower bin")
	cmd.Flags().BoolVar(&deisotope, "deisotope", false, "Collapse isotope clusters to singly charged monoisotopic peaks")

	def := search.DefaultConfig()
	cmd.Flags().IntVar(&minFragCharge, "min-fragment-charge", def.MinFragmentCharge, "Lowest fragment charge queried")
	cmd.Flags().IntVar(&maxFragCharge, "max-fragment-charge", def.MaxFragmentCharge, "Highest fragment charge queried (0 = precursor charge)")
	cmd.Flags().IntVar(&isotopeMin, "isotope-error-min", def.IsotopeErrorMin, "Lowest precursor isotope error")
	cmd.Flags().IntVar(&isotopeMax, "isotope-error-max", def.IsotopeErrorMax, "Highest precursor isotope error")
	cmd.Flags().IntVar(&topHits, "top-hits", def.TopN, "Matches reported per spectrum (0 = all)")
	cmd.Flags().IntVar(&minMatched, "min-matched-peaks", def.MinMatchedPeaks, "Matched peaks required to report a peptide")
	cmd.Flags().IntVar(&minPrecCharge, "min-precursor-charge", def.MinPrecursorCharge, "Skip spectra below this precursor charge (0 = no limit)")
	cmd.Flags().IntVar(&maxPrecCharge, "max-precursor-charge", def.MaxPrecursorCharge, "Skip spectra above this precursor charge (0 = no limit)")
	return cmd
}

func readMGF(path string) ([]core.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input file")
	}
	defer f.Close()

	spectra, err := mgf.ReadAll(f, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return spectra, nil
}

func readMSP(g *global, path string) ([]core.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input file")
	}
	defer f.Close()

	modDB, err := g.ModDatabase()
	if err != nil {
		return nil, err
	}

	var spectra []core.Spectrum
	r := msp.NewReader(f, modDB, path)
	for r.Next() {
		spectra = append(spectra, r.Entry().Spectrum)
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return spectra, nil
}

// writeMatches stores the matches together with the proteins and peptides
// their peptide indices refer to.
func writeMatches(path string, settings searchSettings, ix *index.Index, results []search.SpectrumResult) (err error) {
	w, err := sqlite.NewWriter(path)
	if err != nil {
		return errors.Wrap(err, "creating output database")
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	if err := w.WriteConfig(settings); err != nil {
		return err
	}
	if err := w.WriteStats(ix.Stats()); err != nil {
		return err
	}
	if err := w.WriteProteins(ix.Proteins()); err != nil {
		return err
	}
	if err := w.WritePeptides(ix.Peptides(), nil); err != nil {
		return err
	}
	return w.WriteMatches(results)
}

func printSearchSummary(w io.Writer, results []search.SpectrumResult) {
	var skipped, matched, matches int
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case len(res.Matches) > 0:
			matched++
			matches += len(res.Matches)
		}
	}
	fmt.Fprintf(w, "Spectra:     %s (%s skipped)\n", humanize.Comma(int64(len(results))), humanize.Comma(int64(skipped)))
	fmt.Fprintf(w, "Identified:  %s spectra, %s matches\n", humanize.Comma(int64(matched)), humanize.Comma(int64(matches)))
}
