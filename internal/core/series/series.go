package series

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulsegrid-lab/pulsegrid/internal/core/resample"
)

// Series defines one named resampling stream. Definitions are loaded at
// startup from YAML files and fingerprinted so a stored aggregate can
// be traced back to the exact definition that produced it.
type Series struct {
	Name            string
	Interval        time.Duration
	Function        resample.Func
	MaxAgeIntervals int
	// FirstTimestamp stamps emitted buckets with their start boundary
	// instead of their end boundary.
	FirstTimestamp bool
	// AlignStart floors the stream's start time onto the epoch grid of
	// its interval before the first bucket is formed.
	AlignStart  bool
	Fingerprint string // SHA-256 of the raw YAML file; computed at load time
}

// rawSeries is the on-disk YAML shape.
type rawSeries struct {
	Name            string `yaml:"name"`
	Interval        string `yaml:"interval"`
	Function        string `yaml:"function"`
	MaxAgeIntervals *int   `yaml:"max_age_intervals"`
	FirstTimestamp  *bool  `yaml:"first_timestamp"`
	AlignStart      bool   `yaml:"align_start"`
}

// Repository defines the interface for loading series definitions.
type Repository interface {
	// Get returns the series with the given name, or an error if not found.
	Get(name string) (*Series, error)

	// List returns all loaded series definitions.
	List() []Series
}

// FileSystemRepository loads series definitions from *.yaml files in a
// directory. Each file contains exactly one definition at the top
// level. Definitions are loaded once at startup and cached in memory —
// no hot reload.
type FileSystemRepository struct {
	dir    string
	series map[string]Series // keyed by Name
	order  []string          // file discovery order, for stable listing
}

// NewFileSystemRepository creates a repository and eagerly loads every
// definition from dir. Returns an error if any file is malformed or
// invalid.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	repo := &FileSystemRepository{
		dir:    dir,
		series: make(map[string]Series),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no series directory — valid (zero series configured)
	}
	if err != nil {
		return fmt.Errorf("series dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("series path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading series dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading series file %s: %w", path, err)
		}

		var raw rawSeries
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing series file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // skip empty / comment-only files
		}

		s, err := fromRaw(raw)
		if err != nil {
			return fmt.Errorf("series file %s: %w", path, err)
		}
		s.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := r.series[s.Name]; exists {
			return fmt.Errorf("duplicate series name %q (file %s)", s.Name, path)
		}
		r.series[s.Name] = s
		r.order = append(r.order, s.Name)
	}

	return nil
}

func fromRaw(raw rawSeries) (Series, error) {
	interval, err := ParseInterval(raw.Interval)
	if err != nil {
		return Series{}, fmt.Errorf("series %q: %w", raw.Name, err)
	}

	fn, err := resample.ParseFunc(raw.Function)
	if err != nil {
		return Series{}, fmt.Errorf("series %q: %w", raw.Name, err)
	}

	maxAge := 1
	if raw.MaxAgeIntervals != nil {
		maxAge = *raw.MaxAgeIntervals
	}
	if maxAge < 0 {
		return Series{}, fmt.Errorf("series %q: max_age_intervals must be >= 0, got %d", raw.Name, maxAge)
	}

	// Bucket timestamps default to the start boundary.
	firstTimestamp := true
	if raw.FirstTimestamp != nil {
		firstTimestamp = *raw.FirstTimestamp
	}

	return Series{
		Name:            raw.Name,
		Interval:        interval,
		Function:        fn,
		MaxAgeIntervals: maxAge,
		FirstTimestamp:  firstTimestamp,
		AlignStart:      raw.AlignStart,
	}, nil
}

func (r *FileSystemRepository) Get(name string) (*Series, error) {
	s, ok := r.series[name]
	if !ok {
		return nil, fmt.Errorf("series %q not found", name)
	}
	return &s, nil
}

func (r *FileSystemRepository) List() []Series {
	out := make([]Series, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.series[name])
	}
	return out
}

// ParseInterval parses a duration string into a bucket interval.
// Supports Go duration syntax (e.g. "10s", "1m", "1h") plus "Xd" for days.
func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("interval must not be empty")
	}

	// Handle "d" suffix (days) — not supported by time.ParseDuration.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", s, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("interval must be positive, got %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %q", s)
	}
	return d, nil
}
