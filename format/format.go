// Package format decodes bucket file content into a uniform row
// representation for schema sampling.
//
// Each supported format exposes a pull-based RowReader that keeps every
// Nth logical row. Format dispatch happens once, via Kind, when a file is
// selected; gzip-wrapped files resolve their inner Kind from the member
// name embedded in the gzip header.
package format

import (
	"errors"
	"strings"
)

// Row is one decoded record: field name to scalar or nested value.
type Row map[string]any

// RowReader reads sampled rows from a decoded file.
// Read returns io.EOF when no more rows are available.
type RowReader interface {
	// Read returns the next sampled row.
	Read() (Row, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Errors reported by decoders. All are local to one file: the caller is
// expected to skip the file and continue.
var (
	// ErrEmptyInput is returned for files with no decodable content.
	ErrEmptyInput = errors.New("format: empty input")

	// ErrNoMemberName is returned for gzip streams whose header carries no
	// original file name; without it the inner content cannot be routed to
	// a decoder.
	ErrNoMemberName = errors.New("format: gzip member has no original file name")

	// ErrNestedCompression is returned when a compressed file contains
	// another compressed file. Only one level of unwrapping is supported.
	ErrNestedCompression = errors.New("format: nested compression not supported")

	// ErrUnsupportedExtension is returned when a file name's extension maps
	// to no known format.
	ErrUnsupportedExtension = errors.New("format: unsupported extension")

	// ErrMismatch is returned when content cannot be decoded as the format
	// its extension declares.
	ErrMismatch = errors.New("format: content does not match extension")
)

// Kind identifies a supported row format.
type Kind int

const (
	KindUnknown Kind = iota
	KindCSV
	KindJSONL
	KindParquet
	KindGzip
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindCSV:
		return "csv"
	case KindJSONL:
		return "jsonl"
	case KindParquet:
		return "parquet"
	case KindGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// KindForExtension maps a lowercase file extension to its format kind.
// Returns KindUnknown for extensions outside the supported set.
func KindForExtension(ext string) Kind {
	switch ext {
	case "csv", "txt":
		return KindCSV
	case "jsonl":
		return KindJSONL
	case "parquet":
		return KindParquet
	case "gz":
		return KindGzip
	default:
		return KindUnknown
	}
}

// Extension returns the lowercase extension of a file name: the trailing
// component after the last '.'. Returns "" when the name has no dot.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// MemberPath composes the provenance path for a row sampled out of an
// archive or gzip member: "<object key>/<member name>".
func MemberPath(key, member string) string {
	return key + "/" + member
}
