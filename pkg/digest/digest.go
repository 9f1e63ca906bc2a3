// Package digest provides in silico protease digestion of protein sequences
package digest

import (
	"strings"

	"github.com/pkg/errors"
)

// Enzyme describes a protease's cleavage rule: cut after any residue in
// CleaveAfter unless the next residue is in NotBefore.
type Enzyme struct {
	Name        string
	CleaveAfter string
	NotBefore   string
	NoCleavage  bool // every protein is a single peptide
}

// Built-in enzymes.
var (
	Trypsin      = Enzyme{Name: "Trypsin", CleaveAfter: "KR", NotBefore: "P"}
	TrypsinP     = Enzyme{Name: "Trypsin/P", CleaveAfter: "KR"}
	LysC         = Enzyme{Name: "Lys-C", CleaveAfter: "K", NotBefore: "P"}
	ArgC         = Enzyme{Name: "Arg-C", CleaveAfter: "R", NotBefore: "P"}
	Chymotrypsin = Enzyme{Name: "Chymotrypsin", CleaveAfter: "FWYL", NotBefore: "P"}
	NoCleavage   = Enzyme{Name: "no cleavage", NoCleavage: true}
)

var enzymes = []Enzyme{Trypsin, TrypsinP, LysC, ArgC, Chymotrypsin, NoCleavage}

// Enzymes returns the built-in enzymes.
func Enzymes() []Enzyme {
	out := make([]Enzyme, len(enzymes))
	copy(out, enzymes)
	return out
}

// EnzymeByName looks up a built-in enzyme by case-insensitive name.
func EnzymeByName(name string) (Enzyme, error) {
	for _, e := range enzymes {
		if strings.EqualFold(e.Name, strings.TrimSpace(name)) {
			return e, nil
		}
	}
	return Enzyme{}, errors.Errorf("unknown enzyme '%s'", name)
}

// CleavageSites returns the offsets at which seq is cut, including 0 and
// len(seq). A sequence with no sites yields [0, len(seq)].
func (e Enzyme) CleavageSites(seq string) []int {
	sites := []int{0}
	if !e.NoCleavage {
		for i := 0; i < len(seq)-1; i++ {
			if strings.IndexByte(e.CleaveAfter, seq[i]) < 0 {
				continue
			}
			if e.NotBefore != "" && strings.IndexByte(e.NotBefore, seq[i+1]) >= 0 {
				continue
			}
			sites = append(sites, i+1)
		}
	}
	if len(seq) > 0 {
		sites = append(sites, len(seq))
	}
	return sites
}

// Span locates a peptide inside its protein sequence.
type Span struct {
	Start  int
	Length int
}

// Digester produces candidate peptides of a protein.
type Digester struct {
	Enzyme          Enzyme
	MissedCleavages int
	MinLength       int
	MaxLength       int // 0 disables the upper bound
}

// Digest returns every peptide with at most MissedCleavages missed cleavages
// whose length lies within [MinLength, MaxLength], in protein order.
func (d *Digester) Digest(seq string) []Span {
	var spans []Span
	d.each(seq, func(s Span) {
		if s.Length < d.MinLength {
			return
		}
		if d.MaxLength > 0 && s.Length > d.MaxLength {
			return
		}
		spans = append(spans, s)
	})
	return spans
}

// PeptideCount returns the number of peptides Digest would produce with no
// length bounds.
func (d *Digester) PeptideCount(seq string) int {
	n := 0
	d.each(seq, func(Span) { n++ })
	return n
}

func (d *Digester) each(seq string, fn func(Span)) {
	sites := d.Enzyme.CleavageSites(seq)
	for i := 0; i < len(sites)-1; i++ {
		for j := i + 1; j < len(sites) && j-i-1 <= d.MissedCleavages; j++ {
			fn(Span{Start: sites[i], Length: sites[j] - sites[i]})
		}
	}
}

// DecoyPrefix marks decoy protein identifiers.
const DecoyPrefix = "DECOY_"

// ReverseSequence returns seq reversed, used to build decoy proteins.
func ReverseSequence(seq string) string {
	b := []byte(seq)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
