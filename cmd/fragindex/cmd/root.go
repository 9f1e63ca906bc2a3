// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/logger"
	"github.com/ChrisMcGann/FragIndex/pkg/reader/fasta"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FRAGINDEX"

// global holds the persistent flags shared by every command.
type global struct {
	config  string
	verbose bool
	mods    string
	stderr  io.Writer
}

// Logger returns the logger selected by --verbose.
func (g *global) Logger() logger.Logger {
	if g.verbose {
		return logger.NewVerboseLogger(g.stderr)
	}
	return logger.NewStandardLogger(g.stderr)
}

// ModDatabase returns the default modification database extended with the
// --mods CSV when the file exists.
func (g *global) ModDatabase() (*core.ModDatabase, error) {
	db := core.DefaultModDatabase()
	if g.mods == "" {
		return db, nil
	}

	f, err := os.Open(g.mods)
	if os.IsNotExist(err) {
		return db, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "opening modification file")
	}
	defer f.Close()

	if err := db.LoadFromCSV(f); err != nil {
		fmt.Fprintf(g.stderr, "Warning: failed to load %s: %v\n", g.mods, err)
	}
	return db, nil
}

// NewRootCommand returns the fragindex command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &global{stderr: stderr}

	rc := &cobra.Command{
		Use:   "fragindex",
		Short: "FragIndex - Fragment ion index and peptide search tool",
		Long: `FragIndex digests a protein database, indexes the theoretical fragment
ions of every peptide, and matches MS/MS spectra against the index.

Supported inputs:
- FASTA protein databases
- MGF peak lists and MSP spectral libraries

Results are written to SQLite databases.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags())
		},
	}
	rc.PersistentFlags().StringVarP(&g.config, "config", "c", "", "Configuration file to read from (TOML)")
	rc.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	rc.PersistentFlags().StringVar(&g.mods, "mods", "unimod_custom.csv", "CSV of custom modifications, loaded if present")

	rc.AddCommand(newDigestCommand(g))
	rc.AddCommand(newIndexCommand(g))
	rc.AddCommand(newSearchCommand(g))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig reads every flag of the set from the command line, the
// environment and the --config file, in that priority order. Environment
// variables are the upper-cased flag names with dashes replaced by
// underscores, prefixed with FRAGINDEX_.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", c)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return errors.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// config files hold real lists, flags and env hold CSV
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = errors.Wrapf(err, "invalid value for %s", f.Name)
		}
	})
	return flagErr
}

// readProteins loads every protein of a FASTA file.
func readProteins(path string) ([]core.Protein, error) {
	if path == "" {
		return nil, errors.New("--fasta is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening FASTA file")
	}
	defer f.Close()

	proteins, err := fasta.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return proteins, nil
}
