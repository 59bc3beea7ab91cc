package sample

import (
	"fmt"
	"strings"
)

// NoMatchError indicates a table's search pattern matched no usable bucket
// objects. No files to sample is fatal for the run.
type NoMatchError struct {
	Pattern string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("sample: no files found matching pattern %q", e.Pattern)
}

// DataQualityError indicates a sampled JSONL/Parquet file never exposed
// one of the table's declared key_properties or date_overrides fields.
// This is a data-quality gate, not a transient error; it aborts sampling
// for the table.
type DataQualityError struct {
	Path    string
	Missing []string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("sample: file %q is missing required fields: %s",
		e.Path, strings.Join(e.Missing, ", "))
}
