package cmd

import (
	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/index"
	"github.com/ChrisMcGann/FragIndex/pkg/peptide"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// indexFlags holds the peptide generation and tolerance flags shared by the
// commands that build an index.
type indexFlags struct {
	fasta          string
	enzyme         string
	missed         int
	minLength      int
	maxLength      int
	minMass        float64
	maxMass        float64
	fixedMods      []string
	variableMods   []string
	maxVarMods     int
	ions           string
	firstPrefixIon bool
	minFragmentMZ  float64
	maxFragmentMZ  float64
	decoys         bool
	threads        int

	precursorTol  float64
	precursorUnit string
	fragmentTol   float64
	fragmentUnit  string
}

func (f *indexFlags) register(fs *pflag.FlagSet) {
	def := index.DefaultConfig()
	p := def.Peptides

	fs.StringVarP(&f.fasta, "fasta", "i", "", "Protein database in FASTA format (required)")
	fs.StringVar(&f.enzyme, "enzyme", p.Enzyme, "Protease: Trypsin, Trypsin/P, Lys-C, Arg-C, Chymotrypsin or 'no cleavage'")
	fs.IntVar(&f.missed, "missed-cleavages", p.MissedCleavages, "Maximum missed cleavages per peptide")
	fs.IntVar(&f.minLength, "min-length", p.MinLength, "Minimum peptide length")
	fs.IntVar(&f.maxLength, "max-length", p.MaxLength, "Maximum peptide length (0 = no limit)")
	fs.Float64Var(&f.minMass, "min-mass", p.MinMass, "Minimum peptide [M+H]+")
	fs.Float64Var(&f.maxMass, "max-mass", p.MaxMass, "Maximum peptide [M+H]+ (0 = no limit)")
	fs.StringSliceVar(&f.fixedMods, "fixed-mods", p.FixedModifications, "Fixed modifications as Name@Sites, e.g. Carbamidomethyl@C")
	fs.StringSliceVar(&f.variableMods, "variable-mods", p.VariableModifications, "Variable modifications as Name@Sites, e.g. Oxidation@M")
	fs.IntVar(&f.maxVarMods, "max-variable-mods", p.MaxVariableMods, "Maximum variable modifications per peptide")
	fs.StringVar(&f.ions, "ions", p.Ions.String(), "Comma-separated fragment ion series (a,b,c,x,y,z)")
	fs.BoolVar(&f.firstPrefixIon, "first-prefix-ion", p.AddFirstPrefixIon, "Index a1/b1/c1 ions")
	fs.Float64Var(&f.minFragmentMZ, "min-fragment-mz", p.MinFragmentMZ, "Lowest indexed fragment m/z")
	fs.Float64Var(&f.maxFragmentMZ, "max-fragment-mz", p.MaxFragmentMZ, "Highest indexed fragment m/z (0 = no limit)")
	fs.BoolVar(&f.decoys, "decoys", p.Decoys, "Append reversed decoy proteins")
	fs.IntVar(&f.threads, "threads", 0, "Number of worker threads (0 = all CPUs)")

	fs.Float64Var(&f.precursorTol, "precursor-tolerance", def.PrecursorTolerance.Value, "Precursor mass tolerance")
	fs.StringVar(&f.precursorUnit, "precursor-unit", def.PrecursorTolerance.Unit.String(), "Precursor tolerance unit: Da or ppm")
	fs.Float64Var(&f.fragmentTol, "fragment-tolerance", def.FragmentTolerance.Value, "Fragment mass tolerance")
	fs.StringVar(&f.fragmentUnit, "fragment-unit", def.FragmentTolerance.Unit.String(), "Fragment tolerance unit: Da or ppm")
}

// Config converts the flags into an index configuration.
func (f *indexFlags) Config(modDB *core.ModDatabase) (index.Config, error) {
	ions, err := peptide.ParseIonTypes(f.ions)
	if err != nil {
		return index.Config{}, err
	}
	precursorUnit, err := core.ParseToleranceUnit(f.precursorUnit)
	if err != nil {
		return index.Config{}, errors.Wrap(err, "precursor unit")
	}
	fragmentUnit, err := core.ParseToleranceUnit(f.fragmentUnit)
	if err != nil {
		return index.Config{}, errors.Wrap(err, "fragment unit")
	}

	cfg := index.Config{
		Peptides: peptide.Config{
			Enzyme:                f.enzyme,
			MissedCleavages:       f.missed,
			MinLength:             f.minLength,
			MaxLength:             f.maxLength,
			MinMass:               f.minMass,
			MaxMass:               f.maxMass,
			FixedModifications:    f.fixedMods,
			VariableModifications: f.variableMods,
			MaxVariableMods:       f.maxVarMods,
			Ions:                  ions,
			AddFirstPrefixIon:     f.firstPrefixIon,
			MinFragmentMZ:         f.minFragmentMZ,
			MaxFragmentMZ:         f.maxFragmentMZ,
			Decoys:                f.decoys,
			Workers:               f.threads,
			ModDatabase:           modDB,
		},
		PrecursorTolerance: core.Tolerance{Value: f.precursorTol, Unit: precursorUnit},
		FragmentTolerance:  core.Tolerance{Value: f.fragmentTol, Unit: fragmentUnit},
	}
	return cfg, cfg.Validate()
}
