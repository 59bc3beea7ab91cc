package sample

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/parquet-go/parquet-go"

	"github.com/grokify/bucketsample"
	"github.com/grokify/bucketsample/store/memory"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.SampleRate = 1
	opts.CacheDir = t.TempDir()
	return opts
}

func csvContent(header string, rows ...string) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func gzipContent(t *testing.T, name string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Header.Name = name
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}
	return buf.Bytes()
}

func zipContent(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create failed: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close failed: %v", err)
	}
	return buf.Bytes()
}

type parquetEvent struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

func parquetContent(t *testing.T, rows []parquetEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[parquetEvent](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("parquet write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("parquet close failed: %v", err)
	}
	return buf.Bytes()
}

func schemaProperties(t *testing.T, s map[string]any) map[string]any {
	t.Helper()
	p, ok := s["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties map: %v", s)
	}
	return p
}

func TestSampleSchemaCSV(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("exports/daily.csv", csvContent("id,name",
		"1,a", "2,b", "3,c", "4,d", "5,e", "6,f",
		"7,g", "8,h", "9,i", "10,j", "11,k", "12,l",
	), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	spec := bucketsample.TableSpec{
		TableName:     "daily",
		SearchPattern: `exports/daily\.csv`,
		SearchPrefix:  "exports/",
	}

	s, stats, err := sampler.SampleSchema(context.Background(), spec)
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 1 || stats.SampledRows != 12 || stats.SkippedFiles != 0 {
		t.Errorf("stats = %+v, want 1 file, 12 rows, 0 skipped", stats)
	}

	p := schemaProperties(t, s)
	idType := p["id"].(map[string]any)["type"]
	if !reflect.DeepEqual(idType, []any{"null", "string"}) {
		t.Errorf("id type = %v, want [null string]", idType)
	}
	for _, field := range []string{
		bucketsample.SourceBucketField,
		bucketsample.SourceFileField,
		bucketsample.SourceLinenoField,
		bucketsample.ExtraField,
	} {
		if _, ok := p[field]; !ok {
			t.Errorf("metadata field %q missing from schema", field)
		}
	}
}

func TestSampleSchemaSampleRate(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("daily.csv", csvContent("id",
		"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	), time.Now())

	opts := testOptions(t)
	opts.SampleRate = 5
	sampler := New(store, "test-bucket", opts)

	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "daily",
		SearchPattern: `daily\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	// Row indexes 0, 5, 10 survive a rate of 5.
	if stats.SampledRows != 3 {
		t.Errorf("SampledRows = %d, want 3", stats.SampledRows)
	}
}

func TestSampleSchemaMaxRecords(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("daily.csv", csvContent("id",
		"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
	), time.Now())

	opts := testOptions(t)
	opts.MaxRecords = 4
	sampler := New(store, "test-bucket", opts)

	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "daily",
		SearchPattern: `daily\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SampledRows != 4 {
		t.Errorf("SampledRows = %d, want 4", stats.SampledRows)
	}
}

func TestSampleSchemaMaxFiles(t *testing.T) {
	store := memory.New()
	defer store.Close()
	now := time.Now()
	store.Put("a.csv", csvContent("id", "1"), now)
	store.Put("b.csv", csvContent("id", "2"), now)
	store.Put("c.csv", csvContent("id", "3"), now)

	opts := testOptions(t)
	opts.MaxFiles = 2
	sampler := New(store, "test-bucket", opts)

	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "letters",
		SearchPattern: `.*\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("Files = %d, want 2", stats.Files)
	}
}

func TestSampleSchemaNoMatch(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("other.txt", []byte("id\n1\n"), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, _, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "orders",
		SearchPattern: `orders/.*\.csv`,
	})

	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("error = %v, want *NoMatchError", err)
	}
	if nm.Pattern != `orders/.*\.csv` {
		t.Errorf("Pattern = %q", nm.Pattern)
	}
}

func TestSampleSchemaInvalidPattern(t *testing.T) {
	store := memory.New()
	defer store.Close()

	sampler := New(store, "test-bucket", testOptions(t))
	_, _, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "orders",
		SearchPattern: `orders/[`,
	})

	var pe *bucketsample.PatternError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PatternError", err)
	}
}

func TestSampleSchemaTarGzOnlyFailsWithNoMatch(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("report.tar.gz", []byte("not really a tarball"), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "reports",
		SearchPattern: `report.*`,
	})

	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("error = %v, want *NoMatchError", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
}

func TestSampleSchemaZeroByteObjectsSkipped(t *testing.T) {
	store := memory.New()
	defer store.Close()
	now := time.Now()
	store.Put("empty.csv", nil, now)
	store.Put("full.csv", csvContent("id", "1", "2"), now)

	sampler := New(store, "test-bucket", testOptions(t))
	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "mixed",
		SearchPattern: `.*\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
	if stats.SampledRows != 2 {
		t.Errorf("SampledRows = %d, want 2", stats.SampledRows)
	}
}

func TestSampleSchemaWindowFilter(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("old.csv", csvContent("old_col", "1"), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	store.Put("new.csv", csvContent("new_col", "1"), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	opts := testOptions(t)
	opts.Since = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.Until = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sampler := New(store, "test-bucket", opts)

	s, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "windowed",
		SearchPattern: `.*\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 1 {
		t.Errorf("Files = %d, want 1", stats.Files)
	}

	p := schemaProperties(t, s)
	if _, ok := p["new_col"]; !ok {
		t.Error("new_col missing from schema")
	}
	if _, ok := p["old_col"]; ok {
		t.Error("old_col sampled despite being outside the window")
	}
}

func TestSampleSchemaJSONLMissingKeyProperty(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("events.jsonl", []byte(`{"name":"a"}`+"\n"+`{"name":"b"}`+"\n"), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, _, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "events",
		SearchPattern: `events\.jsonl`,
		KeyProperties: []string{"id"},
	})

	var dq *DataQualityError
	if !errors.As(err, &dq) {
		t.Fatalf("error = %v, want *DataQualityError", err)
	}
	if !reflect.DeepEqual(dq.Missing, []string{"id"}) {
		t.Errorf("Missing = %v, want [id]", dq.Missing)
	}
	if dq.Path != "events.jsonl" {
		t.Errorf("Path = %q, want events.jsonl", dq.Path)
	}
}

func TestSampleSchemaJSONLValidationReplaysRows(t *testing.T) {
	store := memory.New()
	defer store.Close()
	var b strings.Builder
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		b.WriteString(`{"id":` + id + "}\n")
	}
	store.Put("events.jsonl", []byte(b.String()), time.Now())

	opts := testOptions(t)
	opts.MaxValidationRows = 2
	sampler := New(store, "test-bucket", opts)

	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "events",
		SearchPattern: `events\.jsonl`,
		KeyProperties: []string{"id"},
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	// The validation buffer replays; no sampled row is lost to it.
	if stats.SampledRows != 5 {
		t.Errorf("SampledRows = %d, want 5", stats.SampledRows)
	}
}

func TestSampleSchemaZipArchive(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("bundle.zip", zipContent(t, map[string][]byte{
		"inner.csv": csvContent("id,name", "1,a", "2,b"),
		"tool.exe":  []byte("MZ"),
	}), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	s, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "bundle",
		SearchPattern: `bundle\.zip`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 1 {
		t.Errorf("Files = %d, want 1", stats.Files)
	}
	if stats.SampledRows != 2 {
		t.Errorf("SampledRows = %d, want 2", stats.SampledRows)
	}
	if _, ok := schemaProperties(t, s)["name"]; !ok {
		t.Error("name column from archived csv missing from schema")
	}
}

func TestSampleSchemaGzipWrappedCSV(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("daily.csv.gz", gzipContent(t, "daily.csv", csvContent("id", "1", "2", "3")), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "daily",
		SearchPattern: `daily\.csv\.gz`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 1 || stats.SampledRows != 3 {
		t.Errorf("stats = %+v, want 1 file, 3 rows", stats)
	}
}

func TestSampleSchemaGzipWithoutNameSkipped(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("anon.gz", gzipContent(t, "", []byte("id\n1\n")), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	s, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "anon",
		SearchPattern: `anon\.gz`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
	if len(schemaProperties(t, s)) != 0 {
		t.Errorf("properties = %v, want empty", s["properties"])
	}
}

func TestSampleSchemaNestedGzipSkipped(t *testing.T) {
	store := memory.New()
	defer store.Close()
	inner := gzipContent(t, "daily.csv", csvContent("id", "1"))
	store.Put("double.gz", gzipContent(t, "inner.gz", inner), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "double",
		SearchPattern: `double\.gz`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
}

func TestSampleSchemaEmptyContentSkipped(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("blank.csv", []byte("\n\n"), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	s, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "blank",
		SearchPattern: `blank\.csv`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
	if len(schemaProperties(t, s)) != 0 {
		t.Errorf("properties = %v, want empty", s["properties"])
	}
}

func TestSampleSchemaMismatchedContentSkipped(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("data.jsonl", csvContent("id,name", "1,a"), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "data",
		SearchPattern: `data\.jsonl`,
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", stats.SkippedFiles)
	}
}

func TestSampleSchemaParquet(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("events.parquet", parquetContent(t, []parquetEvent{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b"},
		{ID: 3, Name: "c"},
	}), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	s, stats, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "events",
		SearchPattern: `events\.parquet`,
		KeyProperties: []string{"id"},
	})
	if err != nil {
		t.Fatalf("SampleSchema failed: %v", err)
	}
	if stats.Files != 1 || stats.SampledRows != 3 {
		t.Errorf("stats = %+v, want 1 file, 3 rows", stats)
	}
	if _, ok := schemaProperties(t, s)["name"]; !ok {
		t.Error("name column missing from parquet schema")
	}
}

func TestSampleSchemaParquetMissingKeyProperty(t *testing.T) {
	store := memory.New()
	defer store.Close()
	store.Put("events.parquet", parquetContent(t, []parquetEvent{{ID: 1, Name: "a"}}), time.Now())

	sampler := New(store, "test-bucket", testOptions(t))
	_, _, err := sampler.SampleSchema(context.Background(), bucketsample.TableSpec{
		TableName:     "events",
		SearchPattern: `events\.parquet`,
		KeyProperties: []string{"account_id"},
	})

	var dq *DataQualityError
	if !errors.As(err, &dq) {
		t.Fatalf("error = %v, want *DataQualityError", err)
	}
}

func TestConfigFromMapWindow(t *testing.T) {
	opts, err := ConfigFromMap(map[string]string{
		"start_date":       "2024-01-01T00:00:00Z",
		"end_date":         "2025-01-01T00:00:00Z",
		"max_sample_files": "3",
	})
	if err != nil {
		t.Fatalf("ConfigFromMap failed: %v", err)
	}
	if opts.Since != time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Since = %v", opts.Since)
	}
	if opts.Until != time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Until = %v", opts.Until)
	}
	if opts.MaxFiles != 3 {
		t.Errorf("MaxFiles = %d, want 3", opts.MaxFiles)
	}
}

func TestConfigFromMapInvalidDate(t *testing.T) {
	if _, err := ConfigFromMap(map[string]string{"start_date": "01/02/2024"}); err == nil {
		t.Fatal("ConfigFromMap succeeded, want error")
	}
	if _, err := ConfigFromMap(map[string]string{"max_sample_files": "zero"}); err == nil {
		t.Fatal("ConfigFromMap succeeded, want error")
	}
}
