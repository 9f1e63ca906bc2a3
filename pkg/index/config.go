package index

import (
	"github.com/ChrisMcGann/FragIndex/pkg/core"
	"github.com/ChrisMcGann/FragIndex/pkg/logger"
	"github.com/ChrisMcGann/FragIndex/pkg/peptide"
	"github.com/pkg/errors"
)

// Config holds the index build and query settings.
type Config struct {
	Peptides           peptide.Config
	PrecursorTolerance core.Tolerance
	FragmentTolerance  core.Tolerance
}

// DefaultConfig returns the default index settings: default peptide
// generation and 10 ppm on both precursor and fragments.
func DefaultConfig() Config {
	return Config{
		Peptides:           peptide.DefaultConfig(),
		PrecursorTolerance: core.Tolerance{Value: 10, Unit: core.PPM},
		FragmentTolerance:  core.Tolerance{Value: 10, Unit: core.PPM},
	}
}

// Validate checks the tolerances and the peptide settings.
func (c *Config) Validate() error {
	if err := c.PrecursorTolerance.Validate(); err != nil {
		return errors.Wrap(err, "precursor tolerance")
	}
	if err := c.FragmentTolerance.Validate(); err != nil {
		return errors.Wrap(err, "fragment tolerance")
	}
	return c.Peptides.Validate()
}

// Option configures an Index.
type Option func(*Index)

// WithConfig sets the index configuration.
func WithConfig(cfg Config) Option {
	return func(ix *Index) {
		ix.cfg = cfg
	}
}

// WithLogger sets the logger used for build progress.
func WithLogger(l logger.Logger) Option {
	return func(ix *Index) {
		ix.logger = l
	}
}
