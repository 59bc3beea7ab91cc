package sample

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/grokify/bucketsample"
	"github.com/grokify/bucketsample/format"
	"github.com/grokify/bucketsample/schema"
)

// Sampler runs schema-inference sampling against one bucket.
// It is safe to reuse across tables; every run gets its own Stats.
type Sampler struct {
	store  bucketsample.Store
	bucket string
	opts   Options
}

// Stats summarizes one sampling run. Skip accounting is scoped to the run
// and returned to the caller rather than accumulated in shared state.
type Stats struct {
	// Files is the number of candidate files decoded.
	Files int

	// SampledRows is the total number of rows sampled across all files.
	SampledRows int

	// SkippedFiles counts files disqualified for any reason: no extension,
	// unsupported nesting, empty content, decode failure.
	SkippedFiles int
}

// New creates a Sampler reading from store. The bucket name is recorded in
// provenance metadata and used to place parquet downloads.
func New(store bucketsample.Store, bucket string, opts Options) *Sampler {
	return &Sampler{store: store, bucket: bucket, opts: opts}
}

// SampleSchema samples records for one table and synthesizes its schema.
//
// The run either returns a schema (possibly with empty properties when
// nothing usable was sampled from matched files) or fails with one of:
// a *bucketsample.PatternError for an invalid search pattern, a
// *NoMatchError when the pattern matches no usable object, a
// *DataQualityError when declared fields are absent from a sample, or a
// provider error that survived retries.
func (s *Sampler) SampleSchema(ctx context.Context, spec bucketsample.TableSpec) (schema.Schema, *Stats, error) {
	logger := s.opts.logger()
	stats := &Stats{}

	matcher, err := spec.Matcher()
	if err != nil {
		return nil, stats, err
	}

	logger.Info("sampling records to determine table schema",
		slog.String("table", spec.TableName),
	)
	logger.Info("checking bucket for keys matching pattern",
		slog.String("bucket", s.bucket),
		slog.String("pattern", spec.SearchPattern),
	)
	logger.Info("window period",
		slog.Time("since", s.opts.Since),
		slog.Time("until", s.opts.Until),
	)

	filtered := &objectFilter{
		it:      s.store.Objects(ctx, spec.SearchPrefix),
		matcher: matcher,
		pattern: spec.SearchPattern,
		since:   s.opts.Since,
		until:   s.opts.Until,
		logger:  logger,
		stats:   stats,
	}

	rows, err := s.sampleFiles(ctx, spec, filtered, stats)
	if err != nil {
		return nil, stats, err
	}

	if stats.SkippedFiles > 0 {
		logger.Warn("files got skipped during sampling",
			slog.Int("skipped", stats.SkippedFiles),
		)
	}

	return schema.Generate(rows, spec), stats, nil
}

// sampleFiles selects candidates and decodes each into sampled rows,
// bounded per file by MaxRecords and overall by MaxFiles. Decode failures
// are local to one file: the file is skipped and the run continues.
func (s *Sampler) sampleFiles(ctx context.Context, spec bucketsample.TableSpec, filtered *objectFilter, stats *Stats) ([]format.Row, error) {
	logger := s.opts.logger()
	maxFiles := s.opts.maxFiles()

	logger.Info("sampling files", slog.Int("max_files", maxFiles))

	candidates, err := s.selectFiles(ctx, filtered, maxFiles, stats)
	if err != nil {
		return nil, err
	}

	// Archive expansion can push past the cap; the extras are released
	// unread.
	if len(candidates) > maxFiles {
		closeCandidates(candidates[maxFiles:])
		candidates = candidates[:maxFiles]
	}
	if len(candidates) == 0 {
		return nil, &NoMatchError{Pattern: spec.SearchPattern}
	}

	var rows []format.Row
	for i := range candidates {
		cand := candidates[i]

		logger.Info("sampling file",
			slog.String("path", cand.path),
			slog.Int("max_records", s.opts.maxRecords()),
			slog.Int("sample_rate", s.opts.sampleRate()),
		)

		rr, err := s.openRows(ctx, spec, cand)
		if err != nil {
			cand.close()
			if skipReason := classifySkip(err); skipReason != "" {
				logger.Warn(skipReason, slog.String("path", cand.path), slog.Any("error", err))
				stats.SkippedFiles++
				continue
			}
			closeCandidates(candidates[i+1:])
			return nil, err
		}

		fileRows, err := s.drain(rr, cand.path, stats)
		_ = rr.Close()
		if err != nil {
			closeCandidates(candidates[i+1:])
			return nil, err
		}
		rows = append(rows, fileRows...)
		stats.Files++
	}

	return rows, nil
}

// drain consumes up to MaxRecords rows from a decoder. A format-mismatch
// failure mid-stream skips the file but keeps rows already sampled.
func (s *Sampler) drain(rr format.RowReader, path string, stats *Stats) ([]format.Row, error) {
	logger := s.opts.logger()

	var rows []format.Row
	for len(rows) < s.opts.maxRecords() {
		row, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, format.ErrMismatch) {
				logger.Warn("skipping file as parsing failed; verify the extension of the file",
					slog.String("path", path),
					slog.Any("error", err),
				)
				stats.SkippedFiles++
				break
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	stats.SampledRows += len(rows)
	return rows, nil
}

// openRows builds the decoder for a candidate, dispatching on its format
// kind. Gzip resolves its inner member once and recurses.
func (s *Sampler) openRows(ctx context.Context, spec bucketsample.TableSpec, cand candidate) (format.RowReader, error) {
	logger := s.opts.logger()
	rate := s.opts.sampleRate()

	switch cand.kind {
	case format.KindCSV:
		return format.NewCSVReader(logger, cand.path, cand.rc, dialectFor(spec), rate)

	case format.KindJSONL:
		rr := format.NewJSONLReader(logger, cand.path, cand.rc, rate)
		return checkRequiredFields(rr, spec, cand.path, s.opts.maxValidationRows())

	case format.KindParquet:
		local, err := s.materialize(ctx, cand)
		if err != nil {
			return nil, err
		}
		rr, err := format.NewParquetReader(logger, cand.path, local, rate)
		if err != nil {
			return nil, err
		}
		return checkRequiredFields(rr, spec, cand.path, s.opts.maxValidationRows())

	case format.KindGzip:
		member, err := format.OpenGzip(cand.rc)
		if err != nil {
			return nil, err
		}
		return s.openRows(ctx, spec, candidate{
			path:        format.MemberPath(cand.path, member.Name),
			kind:        member.Kind,
			rc:          member.Body,
			fromArchive: true,
		})

	default:
		return nil, fmt.Errorf("%w: %q", format.ErrUnsupportedExtension, cand.kind)
	}
}

// materialize places a parquet candidate's bytes at a stable local path,
// reusing an existing copy from a previous run.
func (s *Sampler) materialize(ctx context.Context, cand candidate) (string, error) {
	logger := s.opts.logger()
	local := filepath.Join(s.opts.cacheDir(), s.bucket, filepath.FromSlash(cand.path))

	if _, err := os.Stat(local); err == nil {
		logger.Info("skipping download, local copy exists", slog.String("local_path", local))
		return local, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", err
	}

	if cand.rc != nil {
		f, err := os.Create(local)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(f, cand.rc); err != nil {
			_ = f.Close()
			_ = os.Remove(local)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return local, nil
	}

	logger.Info("downloading object",
		slog.String("key", cand.key),
		slog.String("local_path", local),
	)
	if err := s.store.Download(ctx, cand.key, local); err != nil {
		return "", err
	}
	return local, nil
}

// classifySkip returns a log message for errors that disqualify one file
// without failing the run, or "" for fatal errors.
func classifySkip(err error) string {
	switch {
	case errors.Is(err, format.ErrEmptyInput):
		return "skipping file as it is empty"
	case errors.Is(err, format.ErrNoMemberName):
		return "skipping file as the original file name was not recovered"
	case errors.Is(err, format.ErrNestedCompression):
		return "skipping file as it contains nested compression"
	case errors.Is(err, format.ErrUnsupportedExtension):
		return "skipping file with unsupported extension"
	case errors.Is(err, format.ErrMismatch):
		return "skipping file as parsing failed; verify the extension of the file"
	default:
		return ""
	}
}

func dialectFor(spec bucketsample.TableSpec) format.Dialect {
	var d format.Dialect
	if spec.Delimiter != "" {
		d.Delimiter = []rune(spec.Delimiter)[0]
	}
	return d
}
