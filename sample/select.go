package sample

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/grokify/bucketsample/format"
)

// candidate is one file queued for decoding: either a bucket object or a
// member extracted from a zip archive. Its byte stream is owned by the
// decoding step and released when decoding completes or fails.
type candidate struct {
	// path is the provenance path: the object key, or "<key>/<member>"
	// for archive members.
	path string

	// key is the bucket key of the backing object. Empty for archive
	// members, whose bytes are already in hand.
	key string

	kind format.Kind

	// rc is the open byte stream. Nil for direct parquet objects, which
	// are downloaded by key instead of streamed.
	rc io.ReadCloser

	fromArchive bool
}

func (c *candidate) close() {
	if c.rc != nil {
		_ = c.rc.Close()
	}
}

// supportedExtensions is the set of member extensions kept when expanding
// a zip archive.
var supportedExtensions = map[string]bool{
	"csv":     true,
	"gz":      true,
	"jsonl":   true,
	"txt":     true,
	"parquet": true,
}

// selectFiles walks filtered objects in order, accumulating candidates
// until maxFiles qualifying entries are found or the listing is exhausted.
// Zip objects are expanded one level and can contribute several candidates
// each; the per-run cap on decoded files is enforced by the caller.
func (s *Sampler) selectFiles(ctx context.Context, filtered *objectFilter, maxFiles int, stats *Stats) ([]candidate, error) {
	logger := s.opts.logger()

	var candidates []candidate
	for len(candidates) < maxFiles {
		obj, err := filtered.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			closeCandidates(candidates)
			return nil, err
		}

		key := obj.Key
		name := key
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			name = key[idx+1:]
		}
		ext := format.Extension(name)

		switch {
		case ext == "" || strings.ToLower(name) == ext:
			logger.Warn("file without extension will not be sampled", slog.String("key", key))
			stats.SkippedFiles++

		case strings.HasSuffix(key, ".tar.gz"):
			logger.Warn("skipping file as .tar.gz extension is not supported", slog.String("key", key))
			stats.SkippedFiles++

		case ext == "zip":
			members, err := s.expandZip(ctx, key, stats)
			if err != nil {
				closeCandidates(candidates)
				return nil, err
			}
			candidates = append(candidates, members...)

		case format.KindForExtension(ext) != format.KindUnknown:
			cand := candidate{path: key, key: key, kind: format.KindForExtension(ext)}
			// Parquet is downloaded by key later; everything else streams.
			if cand.kind != format.KindParquet {
				rc, err := s.store.Open(ctx, key)
				if err != nil {
					closeCandidates(candidates)
					return nil, err
				}
				cand.rc = rc
			}
			candidates = append(candidates, cand)

		default:
			logger.Warn("file extension will not be sampled",
				slog.String("key", key),
				slog.String("extension", ext),
			)
			stats.SkippedFiles++
		}
	}

	return candidates, nil
}

// expandZip buffers a zip object and returns its supported members as
// candidates. Unsupported members are dropped; an object that is not a
// readable zip is skipped with a warning rather than failing the run.
func (s *Sampler) expandZip(ctx context.Context, key string, stats *Stats) ([]candidate, error) {
	logger := s.opts.logger()

	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn("skipping file as it is not a readable zip archive",
			slog.String("key", key),
			slog.Any("error", err),
		)
		stats.SkippedFiles++
		return nil, nil
	}

	var members []candidate
	for _, member := range zr.File {
		ext := format.Extension(member.Name)
		if !supportedExtensions[ext] || strings.HasSuffix(member.Name, ".tar.gz") {
			continue
		}
		mrc, err := member.Open()
		if err != nil {
			logger.Warn("skipping unreadable archive member",
				slog.String("key", key),
				slog.String("member", member.Name),
				slog.Any("error", err),
			)
			stats.SkippedFiles++
			continue
		}
		members = append(members, candidate{
			path:        format.MemberPath(key, member.Name),
			kind:        format.KindForExtension(ext),
			rc:          mrc,
			fromArchive: true,
		})
	}
	return members, nil
}

func closeCandidates(candidates []candidate) {
	for i := range candidates {
		candidates[i].close()
	}
}
