package cmd

import (
	"fmt"

	"github.com/ChrisMcGann/FragIndex/pkg/digest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDigestCommand(g *global) *cobra.Command {
	var (
		fastaFile string
		enzyme    string
		missed    int
		minLength int
		maxLength int
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print digestion counts per protein",
		Long: `Digest every protein of a FASTA database and print, per protein, the number
of peptides within the length bounds and the number of peptides without them.

Examples:
  fragindex digest --fasta human.fasta
  fragindex digest --fasta human.fasta --enzyme Lys-C --missed-cleavages 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proteins, err := readProteins(fastaFile)
			if err != nil {
				return err
			}
			e, err := digest.EnzymeByName(enzyme)
			if err != nil {
				return err
			}
			d := &digest.Digester{
				Enzyme:          e,
				MissedCleavages: missed,
				MinLength:       minLength,
				MaxLength:       maxLength,
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Protein\tLength\tPeptides\tUnbounded\n")
			var total, unbounded int
			for _, p := range proteins {
				n := len(d.Digest(p.Sequence))
				all := d.PeptideCount(p.Sequence)
				total += n
				unbounded += all
				fmt.Fprintf(out, "%s\t%d\t%d\t%d\n", p.Identifier, len(p.Sequence), n, all)
			}
			fmt.Fprintf(out, "Total: %s proteins, %s peptides (%s unbounded)\n",
				humanize.Comma(int64(len(proteins))), humanize.Comma(int64(total)), humanize.Comma(int64(unbounded)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fastaFile, "fasta", "i", "", "Protein database in FASTA format (required)")
	cmd.Flags().StringVar(&enzyme, "enzyme", "Trypsin", "Protease used for digestion")
	cmd.Flags().IntVar(&missed, "missed-cleavages", 1, "Maximum missed cleavages per peptide")
	cmd.Flags().IntVar(&minLength, "min-length", 7, "Minimum peptide length")
	cmd.Flags().IntVar(&maxLength, "max-length", 40, "Maximum peptide length (0 = no limit)")
	return cmd
}
