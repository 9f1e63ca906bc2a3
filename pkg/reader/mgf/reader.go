// Package mgf provides a streaming reader for Mascot Generic Format peak lists
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
)

// Reader provides streaming access to MGF files
type Reader struct {
	scanner     *bufio.Scanner
	sourceFile  string
	lineNum     int
	count       int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MGF reader. sourceFile is recorded on every spectrum.
func NewReader(r io.Reader, sourceFile string) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{
		scanner:    scanner,
		sourceFile: sourceFile,
	}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.err != nil {
		return false
	}

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads one BEGIN IONS ... END IONS block
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	inIons := false
	var spec *core.Spectrum
	var annotations []string
	var charges []int
	hasAnnotations, hasCharges := false, false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' || line[0] == '!' {
			continue
		}

		if !inIons {
			if line == "BEGIN IONS" {
				inIons = true
				spec = &core.Spectrum{
					MSLevel:    2,
					SourceFile: r.sourceFile,
					Index:      r.count,
				}
			}
			// global parameters before the first block are ignored
			continue
		}

		if line == "END IONS" {
			if hasAnnotations {
				spec.StringArrays = append(spec.StringArrays, core.StringDataArray{Name: core.MetaAnnotation, Data: annotations})
			}
			if hasCharges {
				spec.IntegerArrays = append(spec.IntegerArrays, core.IntegerDataArray{Name: core.MetaCharge, Data: charges})
			}
			if !spec.IsSorted() {
				spec.SortByPosition()
			}
			r.count++
			return spec, nil
		}

		if key, value, ok := strings.Cut(line, "="); ok && !startsNumeric(line) {
			if err := r.parseHeader(spec, strings.ToUpper(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			continue
		}

		peak, annotation, charge, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		annotations = append(annotations, annotation)
		charges = append(charges, charge)
		hasAnnotations = hasAnnotations || annotation != ""
		hasCharges = hasCharges || charge != 0
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if inIons {
		return nil, fmt.Errorf("line %d: missing END IONS", r.lineNum)
	}
	return nil, io.EOF
}

func startsNumeric(line string) bool {
	c := line[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-'
}

// parseHeader applies a KEY=value line to spec
func (r *Reader) parseHeader(spec *core.Spectrum, key, value string) error {
	switch key {
	case "TITLE":
		spec.Title = value

	case "PEPMASS":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS m/z: %w", err)
		}
		spec.Precursor.MZ = mz
		if len(fields) > 1 {
			if intensity, err := strconv.ParseFloat(fields[1], 64); err == nil {
				spec.Precursor.Intensity = intensity
			}
		}

	case "CHARGE":
		// "2+", "3", or "2+ and 3+": the first listed charge wins
		first := strings.Fields(strings.ReplaceAll(value, ",", " "))
		if len(first) == 0 {
			return nil
		}
		charge, err := parseCharge(first[0])
		if err != nil {
			return fmt.Errorf("invalid CHARGE '%s': %w", value, err)
		}
		spec.Precursor.Charge = charge

	case "RTINSECONDS":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return nil
		}
		if rt, err := strconv.ParseFloat(fields[0], 64); err == nil {
			spec.RetentionTime = &rt
		}
	}
	return nil
}

// parseCharge parses "2+", "2-" or "2"
func parseCharge(s string) (int, error) {
	sign := 1
	switch {
	case strings.HasSuffix(s, "+"):
		s = strings.TrimSuffix(s, "+")
	case strings.HasSuffix(s, "-"):
		s = strings.TrimSuffix(s, "-")
		sign = -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return sign * n, nil
}

// parsePeak parses "mz intensity [charge|annotation]"
func parsePeak(line string) (core.Peak, string, int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, "", 0, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, "", 0, fmt.Errorf("invalid m/z value: %w", err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, "", 0, fmt.Errorf("invalid intensity value: %w", err)
	}
	peak := core.Peak{MZ: mz, Intensity: intensity}

	if len(fields) < 3 {
		return peak, "", 0, nil
	}
	if charge, err := parseCharge(fields[2]); err == nil {
		return peak, "", charge, nil
	}

	// Remove quotes and any trailing mass error ("y3/0.01")
	annotation := strings.Trim(fields[2], "\"")
	if idx := strings.Index(annotation, "/"); idx > 0 {
		annotation = annotation[:idx]
	}
	return peak, annotation, 0, nil
}

// ReadAll reads every spectrum from r
func ReadAll(r io.Reader, sourceFile string) ([]core.Spectrum, error) {
	reader := NewReader(r, sourceFile)
	var spectra []core.Spectrum
	for reader.Next() {
		spectra = append(spectra, *reader.Spectrum())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return spectra, nil
}
