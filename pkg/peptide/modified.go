package peptide

import (
	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

// ModifiedPeptideGenerator expands a sequence into its modified forms.
// Fixed modifications go on every eligible site; variable modifications are
// enumerated over the remaining sites, at most one per site.
type ModifiedPeptideGenerator struct {
	fixed       []core.ModDefinition
	variable    []core.ModDefinition
	maxVariable int
}

// NewModifiedPeptideGenerator resolves fixed and variable specs against db.
func NewModifiedPeptideGenerator(db *core.ModDatabase, fixed, variable []string, maxVariable int) (*ModifiedPeptideGenerator, error) {
	if db == nil {
		db = core.DefaultModDatabase()
	}
	fixedDefs, err := db.Lookup(fixed)
	if err != nil {
		return nil, err
	}
	variableDefs, err := db.Lookup(variable)
	if err != nil {
		return nil, err
	}
	return &ModifiedPeptideGenerator{
		fixed:       fixedDefs,
		variable:    variableDefs,
		maxVariable: maxVariable,
	}, nil
}

// site slots: 0 is the N-terminus, 1..n the residues, n+1 the C-terminus.
type modSite struct {
	slot int
	def  core.ModDefinition
	pos  int // Modification.Position
}

func terminalOnly(d core.ModDefinition) bool {
	return d.Residues == "" && d.Terminus != core.Anywhere
}

func slotFor(d core.ModDefinition, pos, n int) int {
	if terminalOnly(d) {
		if d.Terminus == core.NTerm {
			return 0
		}
		return n + 1
	}
	return pos + 1
}

// Expand returns the modification sets of seq. The first entry carries only
// fixed modifications; the index of each entry is its modification index.
func (g *ModifiedPeptideGenerator) Expand(seq string) [][]core.Modification {
	n := len(seq)
	occupied := make([]bool, n+2)
	var fixed []core.Modification

	for _, def := range g.fixed {
		for i := 0; i < n; i++ {
			if !def.Applies(rune(seq[i]), i, n) {
				continue
			}
			slot := slotFor(def, i, n)
			if occupied[slot] {
				continue
			}
			occupied[slot] = true
			fixed = append(fixed, core.Modification{Mass: def.Mass, Position: def.Position(i, n), Name: def.Name})
		}
	}

	forms := [][]core.Modification{fixed}
	if g.maxVariable == 0 || len(g.variable) == 0 {
		return forms
	}

	// group candidate sites by slot, slots ascending
	candidates := make([][]modSite, n+2)
	for _, def := range g.variable {
		for i := 0; i < n; i++ {
			if !def.Applies(rune(seq[i]), i, n) {
				continue
			}
			slot := slotFor(def, i, n)
			if occupied[slot] {
				continue
			}
			candidates[slot] = append(candidates[slot], modSite{slot: slot, def: def, pos: def.Position(i, n)})
		}
	}
	var slots [][]modSite
	for _, c := range candidates {
		if len(c) > 0 {
			slots = append(slots, c)
		}
	}

	var chosen []modSite
	var walk func(from int)
	walk = func(from int) {
		for s := from; s < len(slots); s++ {
			for _, site := range slots[s] {
				chosen = append(chosen, site)

				mods := make([]core.Modification, 0, len(fixed)+len(chosen))
				mods = append(mods, fixed...)
				for _, c := range chosen {
					mods = append(mods, core.Modification{Mass: c.def.Mass, Position: c.pos, Name: c.def.Name})
				}
				forms = append(forms, mods)

				if len(chosen) < g.maxVariable {
					walk(s + 1)
				}
				chosen = chosen[:len(chosen)-1]
			}
		}
	}
	walk(0)

	return forms
}
