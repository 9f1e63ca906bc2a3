// Package peptide provides candidate peptide generation: digestion, modification
// expansion, mass filtering and theoretical fragment ions.
package peptide

import (
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/pkg/errors"
)

// IonTypes selects the fragment ion series to generate.
type IonTypes struct {
	A, B, C bool // prefix ions
	X, Y, Z bool // suffix ions
}

// Any reports whether at least one series is selected.
func (t IonTypes) Any() bool {
	return t.A || t.B || t.C || t.X || t.Y || t.Z
}

// ParseIonTypes parses a list such as "b,y" or "abcxyz".
func ParseIonTypes(s string) (IonTypes, error) {
	var t IonTypes
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'a':
			t.A = true
		case 'b':
			t.B = true
		case 'c':
			t.C = true
		case 'x':
			t.X = true
		case 'y':
			t.Y = true
		case 'z':
			t.Z = true
		case ',', ' ':
		default:
			return IonTypes{}, errors.Errorf("unknown ion type '%c' in '%s'", r, s)
		}
	}
	if !t.Any() {
		return IonTypes{}, errors.Errorf("no ion types in '%s'", s)
	}
	return t, nil
}

func (t IonTypes) String() string {
	var b strings.Builder
	for _, ion := range []struct {
		on   bool
		name byte
	}{{t.A, 'a'}, {t.B, 'b'}, {t.C, 'c'}, {t.X, 'x'}, {t.Y, 'y'}, {t.Z, 'z'}} {
		if ion.on {
			b.WriteByte(ion.name)
		}
	}
	return b.String()
}

// Config holds peptide generation configuration
type Config struct {
	Enzyme          string // built-in enzyme name, see digest.EnzymeByName
	MissedCleavages int
	MinLength       int
	MaxLength       int     // 0 = no limit
	MinMass         float64 // [M+H]+
	MaxMass         float64 // [M+H]+; 0 = no limit

	FixedModifications    []string // specs resolved with core.ModDatabase.ParseModSpec
	VariableModifications []string
	MaxVariableMods       int // per peptide

	Ions              IonTypes
	AddFirstPrefixIon bool    // emit a1/b1/c1
	MinFragmentMZ     float64 // singly charged fragment window
	MaxFragmentMZ     float64 // 0 = no limit

	Decoys  bool // append reversed proteins prefixed with DECOY_
	Workers int  // 0 = runtime.NumCPU()

	// ModDatabase resolves modification names; nil uses core.DefaultModDatabase().
	ModDatabase *core.ModDatabase `json:"-"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Enzyme:                "Trypsin",
		MissedCleavages:       1,
		MinLength:             7,
		MaxLength:             40,
		MinMass:               500,
		MaxMass:               5000,
		FixedModifications:    []string{"Carbamidomethyl@C"},
		VariableModifications: []string{"Oxidation@M"},
		MaxVariableMods:       2,
		Ions:                  IonTypes{B: true, Y: true},
		MinFragmentMZ:         150,
		MaxFragmentMZ:         2000,
	}
}

// Validate checks the configuration for values that cannot produce candidates.
func (c *Config) Validate() error {
	if c.MissedCleavages < 0 {
		return errors.Errorf("missed cleavages must be non-negative, got %d", c.MissedCleavages)
	}
	if c.MinLength < 0 || (c.MaxLength > 0 && c.MaxLength < c.MinLength) {
		return errors.Errorf("invalid peptide length range [%d, %d]", c.MinLength, c.MaxLength)
	}
	if c.MinMass < 0 || (c.MaxMass > 0 && c.MaxMass < c.MinMass) {
		return errors.Errorf("invalid peptide mass range [%g, %g]", c.MinMass, c.MaxMass)
	}
	if c.MaxVariableMods < 0 {
		return errors.Errorf("max variable modifications must be non-negative, got %d", c.MaxVariableMods)
	}
	if !c.Ions.Any() {
		return errors.New("at least one ion type is required")
	}
	if c.MinFragmentMZ < 0 || (c.MaxFragmentMZ > 0 && c.MaxFragmentMZ < c.MinFragmentMZ) {
		return errors.Errorf("invalid fragment m/z range [%g, %g]", c.MinFragmentMZ, c.MaxFragmentMZ)
	}
	return nil
}

func (c *Config) massInRange(mz float64) bool {
	return mz >= c.MinMass && (c.MaxMass <= 0 || mz <= c.MaxMass)
}
