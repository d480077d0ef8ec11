package local

import (
	"strings"

	"github.com/skyline93/rscache/internal/errors"
)

// Config holds all information needed to open a store on the local disk.
type Config struct {
	Path   string
	Layout string `option:"layout" help:"use this store layout: split or unified (default: auto-detect)"`
	Mmap   bool   `option:"mmap" help:"memory-map the data file instead of reading it through a file handle"`
}

// NewConfig returns a new config with default options applied.
func NewConfig() Config {
	return Config{
		Layout: "auto",
	}
}

// ParseConfig parses a local store location. Both "local:/path" and a bare
// path are accepted.
func ParseConfig(s string) (*Config, error) {
	s = strings.TrimPrefix(s, "local:")
	if s == "" {
		return nil, errors.New("invalid format, empty path")
	}

	cfg := NewConfig()
	cfg.Path = s
	return &cfg, nil
}
