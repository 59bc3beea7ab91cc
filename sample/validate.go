package sample

import (
	"io"
	"sort"

	"github.com/grokify/bucketsample"
	"github.com/grokify/bucketsample/format"
)

// checkRequiredFields materializes up to maxRows already-sampled rows into
// a bounded buffer and verifies every declared key_properties and
// date_overrides field appears in at least one of them. On success it
// returns a reader that replays the buffer and then continues with the
// untouched remainder of the stream.
//
// Zero buffered rows reports format.ErrEmptyInput; missing fields report a
// *DataQualityError. In both cases the underlying reader is closed.
func checkRequiredFields(rr format.RowReader, spec bucketsample.TableSpec, path string, maxRows int) (format.RowReader, error) {
	var buffered []format.Row
	seen := map[string]bool{}
	exhausted := false

	for len(buffered) < maxRows {
		row, err := rr.Read()
		if err == io.EOF {
			exhausted = true
			break
		}
		if err != nil {
			_ = rr.Close()
			return nil, err
		}
		buffered = append(buffered, row)
		for k := range row {
			seen[k] = true
		}
	}

	if len(buffered) == 0 {
		_ = rr.Close()
		return nil, format.ErrEmptyInput
	}

	var missing []string
	for _, field := range spec.KeyProperties {
		if !seen[field] {
			missing = append(missing, field)
		}
	}
	for _, field := range spec.DateOverrides {
		if !seen[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		_ = rr.Close()
		sort.Strings(missing)
		return nil, &DataQualityError{Path: path, Missing: missing}
	}

	return &replayReader{buffered: buffered, rest: rr, exhausted: exhausted}, nil
}

// replayReader chains a validation buffer with the remainder of the
// stream it was read from.
type replayReader struct {
	buffered  []format.Row
	pos       int
	rest      format.RowReader
	exhausted bool
}

func (r *replayReader) Read() (format.Row, error) {
	if r.pos < len(r.buffered) {
		row := r.buffered[r.pos]
		r.pos++
		return row, nil
	}
	if r.exhausted {
		return nil, io.EOF
	}
	return r.rest.Read()
}

func (r *replayReader) Close() error {
	return r.rest.Close()
}

var _ format.RowReader = (*replayReader)(nil)
