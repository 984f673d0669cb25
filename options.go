package specsync

import (
	"github.com/rs/zerolog"

	"github.com/apiweave/specsync/pkg/differ"
)

// Option is a function that configures a Syncer instance
type Option func(*config) error

// config holds the assembled Syncer configuration.
type config struct {
	strategy     differ.Strategy
	baselineDir  string
	extensionKey string
	logger       *zerolog.Logger
}

// WithStrategy configures the conflict strategy consulted for conflicted
// descriptive fields. Defaults to spec-wins.
func WithStrategy(s differ.Strategy) Option {
	return func(c *config) error {
		if s != nil {
			c.strategy = s
		}
		return nil
	}
}

// WithStrategyName configures the conflict strategy by name
// ("spec-wins" or "collection-wins").
func WithStrategyName(name string) Option {
	return func(c *config) error {
		s, err := differ.StrategyByName(name)
		if err != nil {
			return err
		}
		c.strategy = s
		return nil
	}
}

// WithBaselineDir configures the sibling directory name used for
// baseline snapshots. Defaults to ".specsync".
func WithBaselineDir(dir string) Option {
	return func(c *config) error {
		if dir != "" {
			c.baselineDir = dir
		}
		return nil
	}
}

// WithExtensionKey configures the vendor extension field used for test
// scripts. Defaults to "x-postman-tests".
func WithExtensionKey(key string) Option {
	return func(c *config) error {
		if key != "" {
			c.extensionKey = key
		}
		return nil
	}
}

// WithLogger configures the logger used for sync operations.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = &logger
		return nil
	}
}
