// Package filter provides spectrum preprocessing applied before a search
package filter

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/pkg/errors"
)

// Config holds filtering configuration
type Config struct {
	TopN            int      // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64  // Keep only peaks above this % of base peak (0 = no cutoff)
	IonTypes        []string // Keep only peaks annotated with these ion types (nil = all)
	MaxIonCharge    int      // Drop annotated peaks above this charge (0 = no limit)
	WindowSize      float64  // m/z width of the window mower bins (0 = off)
	WindowPeaks     int      // Peaks kept per window mower bin
	Deisotope       Deisotoping
}

// Apply applies all configured filters to a spectrum. Meta arrays stay
// aligned with their peaks and the result is sorted by m/z.
func (c *Config) Apply(spec *core.Spectrum) error {
	if name, ok := spec.MetaArraysAligned(); !ok {
		return errors.Errorf("meta array %q does not match %d peaks", name, len(spec.Peaks))
	}

	// Filter by annotation first
	if len(c.IonTypes) > 0 || c.MaxIonCharge > 0 {
		if err := c.filterByAnnotation(spec); err != nil {
			return err
		}
	}

	if c.Deisotope.enabled() {
		if err := c.Deisotope.apply(spec); err != nil {
			return errors.Wrap(err, "deisotoping")
		}
	}

	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	if c.WindowSize > 0 && c.WindowPeaks > 0 {
		c.windowMower(spec)
	}

	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortByPosition()

	return nil
}

// keep selects the peaks whose index satisfies fn.
func keep(spec *core.Spectrum, fn func(i int) bool) {
	var indices []int
	for i := range spec.Peaks {
		if fn(i) {
			indices = append(indices, i)
		}
	}
	if len(indices) != len(spec.Peaks) {
		spec.Select(indices)
	}
}

// filterByAnnotation keeps only peaks whose annotation matches the allowed
// ion types and charge
func (c *Config) filterByAnnotation(spec *core.Spectrum) error {
	annotations := spec.StringArray(core.MetaAnnotation)
	if annotations == nil {
		return errors.Errorf("ion type filter needs the %q meta array", core.MetaAnnotation)
	}

	keep(spec, func(i int) bool {
		info, err := parseIonAnnotation(annotations.Data[i])
		if err != nil {
			// unannotated or unparseable peaks never match
			return false
		}
		if c.MaxIonCharge > 0 && info.charge > c.MaxIonCharge {
			return false
		}
		return len(c.IonTypes) == 0 || matchesIonType(info.ionType, c.IonTypes)
	})
	return nil
}

// matchesIonType checks if an ion type is one of the allowed ion types
func matchesIonType(ionType string, ionTypes []string) bool {
	for _, t := range ionTypes {
		if t == ionType {
			return true
		}
	}
	return false
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	base, err := spec.BasePeak()
	if err != nil {
		return
	}

	threshold := (c.IntensityCutoff / 100.0) * spec.Peaks[base].Intensity
	keep(spec, func(i int) bool {
		return spec.Peaks[i].Intensity >= threshold
	})
}

// windowMower keeps the WindowPeaks most intense peaks of every WindowSize
// wide m/z bin, bins counted from the lowest m/z.
func (c *Config) windowMower(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}
	spec.SortByPosition()

	start := spec.Peaks[0].MZ
	bins := make(map[int][]int)
	for i, p := range spec.Peaks {
		bin := int(math.Floor((p.MZ - start) / c.WindowSize))
		bins[bin] = append(bins[bin], i)
	}

	selected := make(map[int]bool, len(spec.Peaks))
	for _, members := range bins {
		sort.SliceStable(members, func(a, b int) bool {
			return spec.Peaks[members[a]].Intensity > spec.Peaks[members[b]].Intensity
		})
		if len(members) > c.WindowPeaks {
			members = members[:c.WindowPeaks]
		}
		for _, i := range members {
			selected[i] = true
		}
	}
	keep(spec, func(i int) bool { return selected[i] })
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	spec.SortByIntensity(true)
	indices := make([]int, c.TopN)
	for i := range indices {
		indices[i] = i
	}
	spec.Select(indices)
}

// ionAnnotationInfo stores parsed ion annotation
type ionAnnotationInfo struct {
	ionType  string
	position int
	charge   int
}

var ionAnnotationPattern = regexp.MustCompile(`^([a-z])(\d+)(?:\^(\d+))?`)

// parseIonAnnotation parses annotations like "y3", "b2^2", "y10^3"
func parseIonAnnotation(annotation string) (*ionAnnotationInfo, error) {
	matches := ionAnnotationPattern.FindStringSubmatch(annotation)
	if len(matches) < 3 {
		return nil, errors.Errorf("invalid ion annotation format: %s", annotation)
	}

	info := &ionAnnotationInfo{
		ionType: matches[1],
		charge:  1, // default charge
	}

	var err error
	if info.position, err = strconv.Atoi(matches[2]); err != nil {
		return nil, errors.Wrapf(err, "invalid position in annotation %s", annotation)
	}
	if matches[3] != "" {
		if info.charge, err = strconv.Atoi(matches[3]); err != nil {
			return nil, errors.Wrapf(err, "invalid charge in annotation %s", annotation)
		}
	}

	return info, nil
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	keep(spec, func(i int) bool {
		return spec.Peaks[i].Intensity > 0
	})
}
