package core

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Terminus restricts where a modification may occur.
type Terminus int

const (
	Anywhere Terminus = iota
	NTerm             // peptide N-terminus
	CTerm             // peptide C-terminus
)

// Site symbols used in modification specs for the peptide termini.
const (
	NTermSite = '^'
	CTermSite = '$'
)

// ModDefinition describes a modification and the residues it may modify.
type ModDefinition struct {
	Name     string
	Mass     float64
	Residues string // eligible residues; empty with a Terminus means any residue at that end
	Terminus Terminus
}

// Applies reports whether the definition can modify residue aa at position pos
// of a peptide of length n.
func (d ModDefinition) Applies(aa rune, pos, n int) bool {
	switch d.Terminus {
	case NTerm:
		if pos != 0 {
			return false
		}
	case CTerm:
		if pos != n-1 {
			return false
		}
	}
	if d.Residues == "" {
		return d.Terminus != Anywhere
	}
	return strings.ContainsRune(d.Residues, aa)
}

// Position returns the Modification position used for a mod placed on residue pos.
func (d ModDefinition) Position(pos, n int) int {
	switch {
	case d.Terminus == NTerm && d.Residues == "":
		return -1
	case d.Terminus == CTerm && d.Residues == "":
		return n
	}
	return pos
}

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods map[string]ModDefinition // name -> definition
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]ModDefinition),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa).
// The aa column is optional and uses the same site syntax as ParseModSpec.
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return errors.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid mass value '%s'", lineNum, massStr)
		}

		def := ModDefinition{Name: modName, Mass: mass}
		if len(parts) > 2 {
			def.Residues, def.Terminus = parseSite(strings.TrimSpace(parts[2]))
		}
		db.mods[modName] = def
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "error reading CSV")
	}

	return nil
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	def, ok := db.mods[name]
	return def.Mass, ok
}

// Get returns the definition registered under name.
func (db *ModDatabase) Get(name string) (ModDefinition, bool) {
	def, ok := db.mods[name]
	return def, ok
}

// Add adds or updates a modification. sites uses the ParseModSpec site syntax.
func (db *ModDatabase) Add(name string, mass float64, sites string) {
	residues, terminus := parseSite(sites)
	db.mods[name] = ModDefinition{Name: name, Mass: mass, Residues: residues, Terminus: terminus}
}

// Names returns the registered modification names in sorted order.
func (db *ModDatabase) Names() []string {
	names := make([]string, 0, len(db.mods))
	for name := range db.mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseModSpec resolves a modification spec such as "Oxidation@M",
// "Carbamidomethyl@C", "Acetyl@^", "Amidated@$", "Phospho@STY" or
// "15.994915@M". Without "@" the database default sites are used.
// '^' and '$' restrict the modification to the peptide N- or C-terminus;
// they may be combined with residues ("Gln->pyro-Glu@^Q").
func (db *ModDatabase) ParseModSpec(spec string) (ModDefinition, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ModDefinition{}, errors.New("empty modification spec")
	}

	nameOrMass, site, hasSite := strings.Cut(spec, "@")
	nameOrMass = strings.TrimSpace(nameOrMass)

	var def ModDefinition
	if mass, err := strconv.ParseFloat(nameOrMass, 64); err == nil {
		def = ModDefinition{Name: nameOrMass, Mass: mass}
	} else {
		known, ok := db.mods[nameOrMass]
		if !ok {
			return ModDefinition{}, errors.Errorf("unknown modification '%s'", nameOrMass)
		}
		def = known
	}

	if hasSite {
		def.Residues, def.Terminus = parseSite(strings.TrimSpace(site))
	}
	if def.Residues == "" && def.Terminus == Anywhere {
		return ModDefinition{}, errors.Errorf("modification '%s' has no site, expected name@residues", spec)
	}
	for _, aa := range def.Residues {
		if !IsSupportedResidue(aa) {
			return ModDefinition{}, errors.Errorf("modification '%s' targets unsupported residue '%c'", spec, aa)
		}
	}
	return def, nil
}

// Lookup resolves every spec with ParseModSpec.
func (db *ModDatabase) Lookup(specs []string) ([]ModDefinition, error) {
	defs := make([]ModDefinition, 0, len(specs))
	for _, spec := range specs {
		def, err := db.ParseModSpec(spec)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseSite(site string) (string, Terminus) {
	terminus := Anywhere
	switch {
	case strings.ContainsRune(site, NTermSite):
		terminus = NTerm
	case strings.ContainsRune(site, CTermSite):
		terminus = CTerm
	}
	residues := strings.Map(func(r rune) rune {
		if r == NTermSite || r == CTermSite {
			return -1
		}
		return r
	}, strings.ToUpper(site))
	return residues, terminus
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	db.Add("Acetyl", 42.010565, "^")
	db.Add("Amidated", -0.984016, "$")
	db.Add("Biotin", 226.077598, "K")
	db.Add("Carbamidomethyl", 57.021464, "C")
	db.Add("Carbamyl", 43.005814, "^")
	db.Add("Carboxymethyl", 58.005479, "C")
	db.Add("Deamidated", 0.984016, "NQ")
	db.Add("Met->Hse", -29.992806, "$M")
	db.Add("Met->Hsl", -48.003371, "$M")
	db.Add("NIPCAM", 99.068414, "C")
	db.Add("Phospho", 79.966331, "STY")
	db.Add("Dehydrated", -18.010565, "ST")
	db.Add("Propionamide", 71.037114, "C")
	db.Add("Pyro-carbamidomethyl", 39.994915, "^C")
	db.Add("Glu->pyro-Glu", -18.010565, "^E")
	db.Add("Gln->pyro-Glu", -17.026549, "^Q")
	db.Add("Cation:Na", 21.981943, "DE")
	db.Add("Methyl", 14.01565, "KR")
	db.Add("Oxidation", 15.994915, "M")
	db.Add("Dimethyl", 28.0313, "KR")
	db.Add("Trimethyl", 42.04695, "K")
	db.Add("Methylthio", 45.987721, "C")
	db.Add("Sulfo", 79.956815, "Y")
	db.Add("Hex", 162.052824, "K")
	db.Add("Lipoyl", 188.032956, "K")
	db.Add("HexNAc", 203.079373, "NST")
	db.Add("Farnesyl", 204.187801, "C")
	db.Add("Myristoyl", 210.198366, "^G")
	db.Add("PyridoxalPhosphate", 229.014009, "K")
	db.Add("Palmitoyl", 238.229666, "C")
	db.Add("GeranylGeranyl", 272.250401, "C")
	db.Add("Phosphopantetheine", 340.085794, "S")
	db.Add("FAD", 783.141486, "C")
	db.Add("Guanidinyl", 42.021798, "K")
	db.Add("HNE", 156.11503, "CHK")
	db.Add("Glucuronyl", 176.032088, "^")
	db.Add("Glutathione", 305.068156, "C")
	db.Add("Propionyl", 56.026215, "K")
	db.Add("TMT6plex", 229.162932, "K")
	db.Add("TMT10plex", 229.162932, "K")
	db.Add("TMT11plex", 229.162932, "K")
	db.Add("TMT16plex", 304.207146, "K")
	db.Add("TMTPro", 304.207146, "K")
	db.Add("iTRAQ4plex", 144.102063, "K")
	db.Add("iTRAQ8plex", 304.205360, "K")

	return db
}
