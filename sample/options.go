// Package sample drives the discovery, sampling, and schema-inference
// pipeline: it filters bucket objects by pattern and modification-time
// window, selects a bounded set of candidate files (expanding zip archives
// one level), decodes each candidate into sampled rows, and synthesizes
// one schema per table.
//
// Basic usage:
//
//	sampler := sample.New(store, "my-bucket", sample.DefaultOptions())
//	schema, stats, err := sampler.SampleSchema(ctx, spec)
package sample

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grokify/mogo/log/slogutil"
)

// Options configures one sampling run.
type Options struct {
	// SampleRate keeps every Nth row of each decoded file. Default 5.
	SampleRate int

	// MaxRecords caps sampled rows per file. Default 1000.
	MaxRecords int

	// MaxFiles caps the number of candidate files inspected. Default 5.
	MaxFiles int

	// MaxValidationRows bounds the buffer used to validate required fields
	// in JSONL/Parquet samples. Default 5000.
	MaxValidationRows int

	// Since is the inclusive lower bound on object modification time.
	// Zero means no lower bound.
	Since time.Time

	// Until is the exclusive upper bound on object modification time.
	// Zero means no upper bound.
	Until time.Time

	// CacheDir is the root for parquet materialization.
	// Defaults to <tmp>/bucketsample.
	CacheDir string

	// Logger is used for structured logging during sampling.
	// If nil, a null logger is used (no logging).
	Logger *slog.Logger
}

// DefaultOptions returns Options with the default sampling bounds.
func DefaultOptions() Options {
	return Options{
		SampleRate:        5,
		MaxRecords:        1000,
		MaxFiles:          5,
		MaxValidationRows: 5000,
	}
}

// ConfigFromMap applies string configuration on top of DefaultOptions.
// Supported keys:
//   - start_date: RFC 3339 lower bound on object modification time
//   - end_date: RFC 3339 upper bound on object modification time
//   - max_sample_files: candidate file cap
func ConfigFromMap(m map[string]string) (Options, error) {
	opts := DefaultOptions()

	if v, ok := m["start_date"]; ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("sample: parsing start_date: %w", err)
		}
		opts.Since = t.UTC()
	}
	if v, ok := m["end_date"]; ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("sample: parsing end_date: %w", err)
		}
		opts.Until = t.UTC()
	}
	if v, ok := m["max_sample_files"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("sample: invalid max_sample_files %q", v)
		}
		opts.MaxFiles = n
	}

	return opts, nil
}

// logger returns the configured logger or a null logger if none is set.
func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slogutil.Null()
}

func (o Options) cacheDir() string {
	if o.CacheDir != "" {
		return o.CacheDir
	}
	return filepath.Join(os.TempDir(), "bucketsample")
}

func (o Options) sampleRate() int {
	if o.SampleRate < 1 {
		return 1
	}
	return o.SampleRate
}

func (o Options) maxRecords() int {
	if o.MaxRecords < 1 {
		return 1000
	}
	return o.MaxRecords
}

func (o Options) maxFiles() int {
	if o.MaxFiles < 1 {
		return 5
	}
	return o.MaxFiles
}

func (o Options) maxValidationRows() int {
	if o.MaxValidationRows < 1 {
		return 5000
	}
	return o.MaxValidationRows
}
