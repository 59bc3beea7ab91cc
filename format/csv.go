package format

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/grokify/bucketsample"
)

// extraField is the overflow column for CSV values beyond the header.
// The row iterator produces it; the sampling reader strips it again before
// yielding, since only the synthesized schema declares it.
const extraField = bucketsample.ExtraField

// Dialect carries table-specific hints for delimited text.
type Dialect struct {
	// Delimiter is the field separator. Defaults to ','.
	Delimiter rune
}

// CSVRows iterates header-keyed rows of a delimited text stream.
//
// The first record is the header. Each subsequent physical line yields one
// row; a quoted field may span lines. Blank lines yield an empty row so
// callers can keep their row counters aligned with file position. Values
// past the last header column are collected under the overflow column.
type CSVRows struct {
	br      *bufio.Reader
	closer  io.Closer
	headers []string
	delim   rune
}

// NewCSVRows reads the header and returns a row iterator.
// Returns ErrEmptyInput when the stream holds no header record, and
// ErrMismatch when the content is not decodable text.
func NewCSVRows(rc io.ReadCloser, dialect Dialect) (*CSVRows, error) {
	delim := dialect.Delimiter
	if delim == 0 {
		delim = ','
	}

	c := &CSVRows{
		br:     bufio.NewReader(rc),
		closer: rc,
		delim:  delim,
	}

	// Header: first non-blank record.
	for {
		chunk, err := c.nextChunk()
		if err == io.EOF {
			return nil, ErrEmptyInput
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		fields, err := c.parse(chunk)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			fields[0] = strings.TrimPrefix(fields[0], "\ufeff")
		}
		c.headers = fields
		return c, nil
	}
}

// Headers returns the header record.
func (c *CSVRows) Headers() []string {
	return c.headers
}

// Next returns the next row. Blank lines return an empty (non-nil) row.
// Returns io.EOF at end of stream.
func (c *CSVRows) Next() (Row, error) {
	chunk, err := c.nextChunk()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(chunk) == "" {
		return Row{}, nil
	}

	fields, err := c.parse(chunk)
	if err != nil {
		return nil, err
	}

	row := make(Row, len(c.headers))
	for i, h := range c.headers {
		if i < len(fields) {
			row[h] = fields[i]
		}
	}
	if len(fields) > len(c.headers) {
		extra := make([]any, 0, len(fields)-len(c.headers))
		for _, v := range fields[len(c.headers):] {
			extra = append(extra, v)
		}
		row[extraField] = extra
	}
	return row, nil
}

// Close closes the underlying stream.
func (c *CSVRows) Close() error {
	return c.closer.Close()
}

// nextChunk returns the next physical record: one line, or several when a
// quoted field spans lines (odd number of quote characters so far).
func (c *CSVRows) nextChunk() (string, error) {
	var b strings.Builder
	for {
		line, err := c.br.ReadString('\n')
		b.WriteString(line)
		if err != nil {
			if err == io.EOF {
				if b.Len() == 0 {
					return "", io.EOF
				}
				return b.String(), nil
			}
			return "", err
		}
		if strings.Count(b.String(), `"`)%2 == 0 {
			return strings.TrimRight(b.String(), "\r\n"), nil
		}
	}
}

func (c *CSVRows) parse(chunk string) ([]string, error) {
	if !utf8.ValidString(chunk) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in delimited text", ErrMismatch)
	}
	cr := csv.NewReader(strings.NewReader(chunk))
	cr.Comma = c.delim
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return fields, nil
}

// NewCSVReader returns a sampled row reader over delimited text content.
// The overflow column is stripped from yielded rows.
func NewCSVReader(logger *slog.Logger, path string, rc io.ReadCloser, dialect Dialect, rate int) (RowReader, error) {
	rows, err := NewCSVRows(rc, dialect)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return newSampleReader(logger, path, rows, rate, true), nil
}
