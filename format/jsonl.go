package format

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"
)

// jsonlSource yields one row per newline-delimited JSON value. Blank lines
// and values decoding to an empty object yield an empty row so the row
// counter keeps advancing. Non-object values and parse failures are
// reported as ErrMismatch.
type jsonlSource struct {
	sc     *bufio.Scanner
	closer io.Closer
}

// jsonlMaxLine bounds a single JSONL line; matches the ndjson reader's
// default record size.
const jsonlMaxLine = 16 * 1024 * 1024

func newJSONLSource(rc io.ReadCloser) *jsonlSource {
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), jsonlMaxLine)
	return &jsonlSource{sc: sc, closer: rc}
}

func (s *jsonlSource) Next() (Row, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	line := s.sc.Bytes()
	if !utf8.Valid(line) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in JSONL content", ErrMismatch)
	}
	if strings.TrimSpace(string(line)) == "" {
		return Row{}, nil
	}

	var row Row
	if err := gojson.Unmarshal(line, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return row, nil
}

func (s *jsonlSource) Close() error {
	return s.closer.Close()
}

// NewJSONLReader returns a sampled row reader over newline-delimited JSON
// content.
func NewJSONLReader(logger *slog.Logger, path string, rc io.ReadCloser, rate int) RowReader {
	return newSampleReader(logger, path, newJSONLSource(rc), rate, false)
}
