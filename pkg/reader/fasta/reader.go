// Package fasta provides a streaming reader for FASTA protein databases
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

const maxLineSize = 16 * 1024 * 1024

// Reader provides streaming access to FASTA files
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	header  string // header of the next entry, already consumed
	current *core.Protein
	err     error
}

// NewReader creates a new FASTA reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next advances to the next protein. Returns false when no more proteins or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	protein, err := r.readProtein()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = protein
	return true
}

// Protein returns the current protein
func (r *Reader) Protein() *core.Protein {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readProtein() (*core.Protein, error) {
	// find the first header
	for r.header == "" {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			return nil, fmt.Errorf("line %d: sequence data before first header", r.lineNum)
		}
		r.header = line
	}

	protein := parseHeader(r.header)
	r.header = ""

	var seq strings.Builder
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, ">") {
			r.header = line
			break
		}
		for _, c := range line {
			switch {
			case c == '*' || c == ' ' || c == '\t':
			case c >= 'a' && c <= 'z':
				seq.WriteRune(c - 'a' + 'A')
			default:
				seq.WriteRune(c)
			}
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	protein.Sequence = seq.String()
	return protein, nil
}

// parseHeader splits ">ID description" into identifier and description
func parseHeader(line string) *core.Protein {
	header := strings.TrimSpace(strings.TrimPrefix(line, ">"))
	id, desc, _ := strings.Cut(header, " ")
	return &core.Protein{
		Identifier:  id,
		Description: strings.TrimSpace(desc),
	}
}

// ReadAll reads every protein from r
func ReadAll(r io.Reader) ([]core.Protein, error) {
	reader := NewReader(r)
	var proteins []core.Protein
	for reader.Next() {
		proteins = append(proteins, *reader.Protein())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return proteins, nil
}
