package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTolerance is returned for zero, negative or non-finite tolerances.
var ErrInvalidTolerance = errors.New("invalid mass tolerance")

// ToleranceUnit selects between absolute and relative mass error models.
type ToleranceUnit int

const (
	Da ToleranceUnit = iota
	PPM
)

func (u ToleranceUnit) String() string {
	switch u {
	case Da:
		return "Da"
	case PPM:
		return "ppm"
	default:
		return fmt.Sprintf("ToleranceUnit(%d)", int(u))
	}
}

// ParseToleranceUnit parses "Da" or "ppm" (case-insensitive).
func ParseToleranceUnit(s string) (ToleranceUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "da", "th":
		return Da, nil
	case "ppm":
		return PPM, nil
	default:
		return Da, errors.Errorf("unknown tolerance unit '%s', must be Da or ppm", s)
	}
}

// Tolerance is a mass tolerance with its unit.
type Tolerance struct {
	Value float64
	Unit  ToleranceUnit
}

// Absolute returns the tolerance in Da around mass. For ppm the tolerance is
// always relative to the query mass passed in, never the stored mass.
func (t Tolerance) Absolute(mass float64) float64 {
	if t.Unit == PPM {
		return mass * t.Value * 1e-6
	}
	return t.Value
}

// Window returns the closed interval [mass-tol, mass+tol].
func (t Tolerance) Window(mass float64) (float64, float64) {
	tol := t.Absolute(mass)
	return mass - tol, mass + tol
}

// Validate rejects tolerances that would produce an empty or undefined window.
func (t Tolerance) Validate() error {
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) || t.Value <= 0 {
		return errors.Wrapf(ErrInvalidTolerance, "value %v", t.Value)
	}
	if t.Unit != Da && t.Unit != PPM {
		return errors.Wrapf(ErrInvalidTolerance, "unit %v", t.Unit)
	}
	return nil
}

func (t Tolerance) String() string {
	return fmt.Sprintf("%g %s", t.Value, t.Unit)
}
