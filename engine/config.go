package engine

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Config holds engine-wide tuning knobs, built via functional options in
// the style of app/config.go's DatabaseConfig/DatabaseOption pair.
type Config struct {
	PageCacheSize int
	StrictDefault bool
	ReadOnly      bool
	Logger        *logrus.Logger
}

// Option configures an Engine at Open time.
type Option func(*Config)

// WithPageCacheSize bounds the pager's in-memory page cache.
func WithPageCacheSize(n int) Option {
	return func(c *Config) { c.PageCacheSize = n }
}

// WithStrictDefault sets the strict flag used when evaluating every
// SELECT's expressions, whatever the source table declares. INSERT type
// checks follow only the table's own STRICT declaration.
func WithStrictDefault(strict bool) Option {
	return func(c *Config) { c.StrictDefault = strict }
}

// WithReadOnly opens the underlying file without a write lease ever being
// granted; INSERT and CREATE TABLE fail with KindUnsupported.
func WithReadOnly(ro bool) Option {
	return func(c *Config) { c.ReadOnly = ro }
}

// WithLogger overrides the default logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		PageCacheSize: 256,
		StrictDefault: false,
		ReadOnly:      false,
		Logger:        logrus.StandardLogger(),
	}
}

// resourceManager closes registered resources in LIFO order, mirroring
// app/config.go's ResourceManager.
type resourceManager struct {
	closers []io.Closer
}

func (rm *resourceManager) add(c io.Closer) {
	rm.closers = append(rm.closers, c)
}

func (rm *resourceManager) Close() error {
	var firstErr error
	for i := len(rm.closers) - 1; i >= 0; i-- {
		if err := rm.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
