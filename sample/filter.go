package sample

import (
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/grokify/bucketsample"
)

// logObjectsEvery controls how often listing-match diagnostics are logged.
const logObjectsEvery = 30000

// objectFilter yields objects whose key matches the table's search pattern
// and whose modification time falls inside the [since, until) window.
// Zero-byte objects are skipped and counted. At exhaustion, zero matches
// is reported as a *NoMatchError.
type objectFilter struct {
	it      bucketsample.ObjectIterator
	matcher *regexp.Regexp
	pattern string
	since   time.Time
	until   time.Time
	logger  *slog.Logger
	stats   *Stats

	matched   int
	unmatched int
}

func (f *objectFilter) Next() (bucketsample.Object, error) {
	for {
		obj, err := f.it.Next()
		if err == io.EOF {
			if f.matched == 0 {
				return bucketsample.Object{}, &NoMatchError{Pattern: f.pattern}
			}
			return bucketsample.Object{}, io.EOF
		}
		if err != nil {
			return bucketsample.Object{}, err
		}

		if obj.Size == 0 {
			f.logger.Warn("skipping file as it is empty", slog.String("key", obj.Key))
			f.stats.SkippedFiles++
			f.unmatched++
			f.logProgress()
			continue
		}

		if !f.matcher.MatchString(obj.Key) {
			f.unmatched++
			f.logProgress()
			continue
		}

		f.matched++
		f.logProgress()

		if !f.since.IsZero() && !f.since.Before(obj.LastModified) {
			continue
		}
		if !f.until.IsZero() && !obj.LastModified.Before(f.until) {
			continue
		}

		f.logger.Info("will sample key",
			slog.String("key", obj.Key),
			slog.Time("last_modified", obj.LastModified),
		)
		return obj, nil
	}
}

// logProgress emits a diagnostic every logObjectsEvery objects; when over
// half the objects seen so far are non-matching it escalates to a warning
// suggesting a narrower search_prefix.
func (f *objectFilter) logProgress() {
	total := f.matched + f.unmatched
	if total == 0 || total%logObjectsEvery != 0 {
		return
	}
	if float64(f.unmatched)/float64(total) > 0.5 {
		f.logger.Warn("most listed files do not match the search pattern; consider adding a search_prefix or removing non-matching files",
			slog.Int("matching", f.matched),
			slog.Int("non_matching", f.unmatched),
		)
	} else {
		f.logger.Info("listing match progress",
			slog.Int("matching", f.matched),
			slog.Int("non_matching", f.unmatched),
		)
	}
}
