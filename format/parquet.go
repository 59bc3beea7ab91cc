package format

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetBatchSize is how many rows are deserialized per column-batch read.
const parquetBatchSize = 128

// parquetSource iterates a parquet file's row groups, deserializing each
// column batch into row mappings. It reads from a local copy of the file
// because the columnar reader requires random access.
type parquetSource struct {
	f      *os.File
	groups []parquet.RowGroup
	cur    *parquet.GenericReader[map[string]any]
	gi     int
	batch  []map[string]any
	n, i   int
}

func openParquetSource(localPath string) (*parquetSource, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}

	return &parquetSource{
		f:      f,
		groups: pf.RowGroups(),
		batch:  make([]map[string]any, parquetBatchSize),
	}, nil
}

func (s *parquetSource) Next() (Row, error) {
	for {
		if s.i < s.n {
			row := s.batch[s.i]
			s.i++
			return Row(row), nil
		}

		if s.cur == nil {
			if s.gi >= len(s.groups) {
				return nil, io.EOF
			}
			s.cur = parquet.NewGenericRowGroupReader[map[string]any](s.groups[s.gi])
			s.gi++
		}

		for j := range s.batch {
			s.batch[j] = map[string]any{}
		}
		n, err := s.cur.Read(s.batch)
		s.n, s.i = n, 0
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
			}
			_ = s.cur.Close()
			s.cur = nil
		}
	}
}

func (s *parquetSource) Close() error {
	if s.cur != nil {
		_ = s.cur.Close()
		s.cur = nil
	}
	return s.f.Close()
}

// NewParquetReader returns a sampled row reader over a parquet file that
// has been materialized at localPath.
func NewParquetReader(logger *slog.Logger, path, localPath string, rate int) (RowReader, error) {
	src, err := openParquetSource(localPath)
	if err != nil {
		return nil, err
	}
	return newSampleReader(logger, path, src, rate, false), nil
}
