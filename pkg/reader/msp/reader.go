// Package msp provides streaming readers for MSP (Prosit) format spectral libraries
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

// Entry is a library spectrum with the peptide it was annotated with.
type Entry struct {
	Spectrum core.Spectrum
	Peptide  core.Peptide // Sequence and Modifications only
}

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner    *bufio.Scanner
	modDB      *core.ModDatabase
	sourceFile string
	lineNum    int
	count      int
	current    *Entry
	err        error
}

// NewReader creates a new MSP reader
func NewReader(r io.Reader, modDB *core.ModDatabase, sourceFile string) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	return &Reader{
		scanner:    bufio.NewScanner(r),
		modDB:      modDB,
		sourceFile: sourceFile,
	}
}

// Next advances to the next entry. Returns false when no more entries or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	entry, err := r.readEntry()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = entry
	return true
}

// Entry returns the current entry
func (r *Reader) Entry() *Entry {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readEntry reads a single entry from the MSP file
func (r *Reader) readEntry() (*Entry, error) {
	entry := &Entry{
		Spectrum: core.Spectrum{
			MSLevel:    2,
			SourceFile: r.sourceFile,
			Index:      r.count,
		},
	}
	spec := &entry.Spectrum
	var annotations []string

	finish := func() *Entry {
		spec.StringArrays = []core.StringDataArray{{Name: core.MetaAnnotation, Data: annotations}}
		if !spec.IsSorted() {
			spec.SortByPosition()
		}
		r.count++
		return entry
	}

	var numPeaks int
	inPeaks := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip empty lines between entries
		if line == "" {
			if inPeaks {
				return finish(), nil
			}
			continue
		}

		if !inPeaks {
			switch {
			case strings.HasPrefix(line, "Name: "):
				if err := r.parseName(entry, strings.TrimPrefix(line, "Name: ")); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case strings.HasPrefix(line, "Comment: "):
				r.parseComment(entry, strings.TrimPrefix(line, "Comment: "))
			case strings.HasPrefix(line, "Num peaks: "):
				n, err := strconv.Atoi(strings.TrimPrefix(line, "Num peaks: "))
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return finish(), nil
				}
			}
			continue
		}

		peak, annotation, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		annotations = append(annotations, annotation)

		if len(spec.Peaks) >= numPeaks {
			return finish(), nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// If we have a partially read entry, return it
	if entry.Peptide.Sequence != "" {
		return finish(), nil
	}

	return nil, io.EOF
}

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func (r *Reader) parseName(entry *Entry, name string) error {
	seq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	entry.Peptide.Sequence = seq
	entry.Spectrum.Title = name
	entry.Spectrum.Precursor.Charge = charge
	return nil
}

// parseComment extracts metadata from the Comment field, e.g.
// "Parent=414.71 Collision_energy=35 ModString=EIESAGDITFNR//TMT_Pro@R-1/4 iRT=61.01"
func (r *Reader) parseComment(entry *Entry, comment string) {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				entry.Spectrum.Precursor.MZ = mz
			}

		case "iRT", "RetentionTime":
			if rt, err := strconv.ParseFloat(value, 64); err == nil {
				entry.Spectrum.RetentionTime = &rt
			}

		case "ModString":
			entry.Peptide.Modifications = append(entry.Peptide.Modifications, r.parseModString(value)...)
		}
	}
}

// parseModString parses modifications from a ModString value
// (format: SEQUENCE//Mod@Pos;Mod@Pos/Charge). Unknown names are skipped.
func (r *Reader) parseModString(modString string) []core.Modification {
	_, modPart, ok := strings.Cut(modString, "//")
	if !ok {
		return nil
	}
	// Remove trailing charge info if present
	modPart, _, _ = strings.Cut(modPart, "/")

	var mods []core.Modification
	for _, modSpec := range strings.Split(modPart, ";") {
		modName, posStr, ok := strings.Cut(strings.TrimSpace(modSpec), "@")
		if !ok {
			continue
		}

		// Remove amino acid letter from position if present
		posStr = strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWY")
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			continue
		}

		if mass, ok := r.modDB.GetMass(modName); ok {
			mods = append(mods, core.Modification{Mass: mass, Position: pos, Name: modName})
		}
	}
	return mods
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"")
func parsePeak(line string) (core.Peak, string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, "", fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, "", fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, "", fmt.Errorf("invalid intensity value: %w", err)
	}

	// Parse annotation if present (third field, may be quoted)
	var annotation string
	if len(fields) >= 3 {
		annotation = strings.Trim(fields[2], "\"")
		// Extract ion type and number (remove ppm error info)
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
	}

	return core.Peak{MZ: mz, Intensity: intensity}, annotation, nil
}
