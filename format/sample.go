package format

import (
	"io"
	"log/slog"

	"github.com/grokify/mogo/log/slogutil"
)

// progressEvery controls how often sampled-row progress is logged.
const progressEvery = 200

// rowSource yields one logical row per call and io.EOF at end of input.
// A row of length zero (blank line, empty JSON value) still advances the
// row counter but is never sampled.
type rowSource interface {
	Next() (Row, error)
	Close() error
}

// sampleReader applies the sample rate to an underlying row source:
// row index modulo rate selects the rows to keep, with blank and skipped
// rows counting toward the index so windows stay aligned with raw file
// position.
type sampleReader struct {
	src        rowSource
	path       string
	rate       int
	stripExtra bool

	current int
	sampled int
	done    bool
	logger  *slog.Logger
}

func newSampleReader(logger *slog.Logger, path string, src rowSource, rate int, stripExtra bool) *sampleReader {
	if logger == nil {
		logger = slogutil.Null()
	}
	if rate < 1 {
		rate = 1
	}
	return &sampleReader{
		src:        src,
		path:       path,
		rate:       rate,
		stripExtra: stripExtra,
		logger:     logger,
	}
}

func (r *sampleReader) Read() (Row, error) {
	for {
		row, err := r.src.Next()
		if err == io.EOF {
			if !r.done {
				r.done = true
				r.logger.Info("sampled rows from file",
					slog.Int("rows", r.sampled),
					slog.String("path", r.path),
				)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		idx := r.current
		r.current++

		if len(row) == 0 {
			continue
		}
		if idx%r.rate != 0 {
			continue
		}

		if r.stripExtra {
			delete(row, extraField)
		}

		r.sampled++
		if r.sampled%progressEvery == 0 {
			r.logger.Info("sampled rows from file",
				slog.Int("rows", r.sampled),
				slog.String("path", r.path),
			)
		}
		return row, nil
	}
}

func (r *sampleReader) Close() error {
	return r.src.Close()
}

var _ RowReader = (*sampleReader)(nil)
