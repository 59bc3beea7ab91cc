package bucketsample

import (
	"fmt"
	"regexp"
)

// TableSpec describes which bucket files belong to one logical dataset and
// how to key and date-type fields within it. It is supplied by the caller
// and treated as read-only.
type TableSpec struct {
	// TableName names the dataset; used in error messages.
	TableName string

	// SearchPattern is a regular expression matched against object keys.
	// Required.
	SearchPattern string

	// SearchPrefix narrows the bucket listing to keys under this prefix.
	SearchPrefix string

	// KeyProperties lists fields that must appear in sampled JSONL/Parquet
	// rows. Missing fields fail sampling for the file.
	KeyProperties []string

	// DateOverrides lists fields typed as date-time strings in the
	// synthesized schema. Subject to the same presence check as
	// KeyProperties for JSONL/Parquet sources.
	DateOverrides []string

	// Delimiter is the CSV field delimiter. Defaults to ','.
	Delimiter string
}

// Matcher compiles the table's search pattern. An invalid pattern is a
// configuration error and is never retried.
func (t TableSpec) Matcher() (*regexp.Regexp, error) {
	matcher, err := regexp.Compile(t.SearchPattern)
	if err != nil {
		return nil, &PatternError{Table: t.TableName, Pattern: t.SearchPattern, Err: err}
	}
	return matcher, nil
}

// PatternError indicates a table's search_pattern is not a valid regular
// expression.
type PatternError struct {
	Table   string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("bucketsample: search_pattern %q for table %q is not a valid regular expression: %v",
		e.Pattern, e.Table, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
