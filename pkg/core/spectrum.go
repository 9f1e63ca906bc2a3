package core

import (
	"fmt"
	"math"
	"strings"
)

// Names of the meta arrays readers and filters attach to spectra.
const (
	MetaAnnotation = "annotation"
	MetaCharge     = "charge"
)

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// Pos returns the m/z.
func (p Peak) Pos() float64 { return p.MZ }

// Height returns the intensity.
func (p Peak) Height() float64 { return p.Intensity }

// Precursor is the selected ion a fragment spectrum was acquired from.
type Precursor struct {
	MZ        float64
	Charge    int
	Intensity float64
}

// Spectrum is an m/z-ordered peak container with acquisition metadata.
type Spectrum struct {
	Container[Peak]

	Title         string
	MSLevel       int
	Precursor     Precursor
	RetentionTime *float64 // seconds

	// Internal tracking
	SourceFile string
	Index      int // position in the source file
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can be queried against a fragment index.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.Precursor.MZ <= 0 || math.IsNaN(s.Precursor.MZ) || math.IsInf(s.Precursor.MZ, 0) {
		errs = append(errs, "precursor m/z must be positive")
	}
	if s.Precursor.Charge <= 0 {
		errs = append(errs, "precursor charge must be positive")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.IsSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}
	if name, ok := s.MetaArraysAligned(); !ok {
		errs = append(errs, fmt.Sprintf("meta array %q length differs from peak count", name))
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// MZBegin returns the index of the first peak with m/z >= mz.
func (s *Spectrum) MZBegin(mz float64) int { return s.PosBegin(mz) }

// MZEnd returns the index of the first peak with m/z > mz.
func (s *Spectrum) MZEnd(mz float64) int { return s.PosEnd(mz) }

// MZBeginIn is MZBegin restricted to Peaks[begin:end].
func (s *Spectrum) MZBeginIn(begin int, mz float64, end int) int {
	return s.PosBeginIn(begin, mz, end)
}

// MZEndIn is MZEnd restricted to Peaks[begin:end].
func (s *Spectrum) MZEndIn(begin int, mz float64, end int) int {
	return s.PosEndIn(begin, mz, end)
}

// PrecursorSinglyCharged returns the precursor as an [M+H]+ m/z.
func (s *Spectrum) PrecursorSinglyCharged() float64 {
	return ChargedToSinglyCharged(s.Precursor.MZ, s.Precursor.Charge)
}

// Name returns the spectrum title, or "index=N" when the source had none.
func (s *Spectrum) Name() string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("index=%d", s.Index)
}
