package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/grokify/bucketsample"
	"github.com/grokify/bucketsample/format"
)

func props(t *testing.T, s Schema) map[string]any {
	t.Helper()
	p, ok := s["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties map: %v", s)
	}
	return p
}

func fieldType(t *testing.T, p map[string]any, field string) any {
	t.Helper()
	descriptor, ok := p[field].(map[string]any)
	if !ok {
		t.Fatalf("field %q has no descriptor: %v", field, p[field])
	}
	return descriptor["type"]
}

func TestGenerateEmptyRows(t *testing.T) {
	s := Generate(nil, bucketsample.TableSpec{TableName: "orders"})
	if s["type"] != "object" {
		t.Errorf(`type = %v, want "object"`, s["type"])
	}
	if len(props(t, s)) != 0 {
		t.Errorf("properties = %v, want empty", s["properties"])
	}
}

func TestGenerateScalarTypes(t *testing.T) {
	rows := []format.Row{{
		"name":   "alice",
		"age":    float64(34),
		"score":  float64(9.5),
		"active": true,
		"note":   nil,
		"joined": time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	p := props(t, Generate(rows, bucketsample.TableSpec{}))

	cases := map[string][]any{
		"name":   {"null", "string"},
		"age":    {"null", "integer"},
		"score":  {"null", "number"},
		"active": {"null", "boolean"},
		"note":   {"null", "string"},
		"joined": {"null", "string"},
	}
	for field, want := range cases {
		if got := fieldType(t, p, field); !reflect.DeepEqual(got, want) {
			t.Errorf("field %q type = %v, want %v", field, got, want)
		}
	}

	joined := p["joined"].(map[string]any)
	if joined["format"] != "date-time" {
		t.Errorf("joined format = %v, want date-time", joined["format"])
	}
}

func TestGenerateNestedObjectAndArray(t *testing.T) {
	rows := []format.Row{{
		"meta": map[string]any{"region": "us", "retries": float64(2)},
		"tags": []any{"a", "b"},
	}}
	p := props(t, Generate(rows, bucketsample.TableSpec{}))

	meta := p["meta"].(map[string]any)
	if got := meta["type"]; !reflect.DeepEqual(got, []any{"null", "object"}) {
		t.Errorf("meta type = %v, want [null object]", got)
	}
	metaProps := meta["properties"].(map[string]any)
	if got := metaProps["retries"].(map[string]any)["type"]; !reflect.DeepEqual(got, []any{"null", "integer"}) {
		t.Errorf("meta.retries type = %v, want [null integer]", got)
	}

	tags := p["tags"].(map[string]any)
	if got := tags["type"]; !reflect.DeepEqual(got, []any{"null", "array"}) {
		t.Errorf("tags type = %v, want [null array]", got)
	}
	items := tags["items"].(map[string]any)
	if got := items["type"]; !reflect.DeepEqual(got, []any{"null", "string"}) {
		t.Errorf("tags items type = %v, want [null string]", got)
	}
}

func TestGenerateLaterObservationWins(t *testing.T) {
	rows := []format.Row{
		{"id": float64(1)},
		{"id": "abc"},
	}
	p := props(t, Generate(rows, bucketsample.TableSpec{}))
	if got := fieldType(t, p, "id"); !reflect.DeepEqual(got, []any{"null", "string"}) {
		t.Errorf("id type = %v, want [null string]", got)
	}
}

func TestGenerateDateOverrides(t *testing.T) {
	rows := []format.Row{{"created_at": "whatever"}}
	spec := bucketsample.TableSpec{DateOverrides: []string{"created_at"}}
	p := props(t, Generate(rows, spec))

	created := p["created_at"].(map[string]any)
	if got := created["type"]; !reflect.DeepEqual(got, []any{"null", "string"}) {
		t.Errorf("created_at type = %v, want [null string]", got)
	}
	if created["format"] != "date-time" {
		t.Errorf("created_at format = %v, want date-time", created["format"])
	}
}

func TestGenerateMetadataFieldsAlwaysPresent(t *testing.T) {
	p := props(t, Generate([]format.Row{{"id": "1"}}, bucketsample.TableSpec{}))

	for _, field := range []string{
		bucketsample.SourceBucketField,
		bucketsample.SourceFileField,
		bucketsample.SourceLinenoField,
		bucketsample.ExtraField,
	} {
		if _, ok := p[field]; !ok {
			t.Errorf("metadata field %q missing", field)
		}
	}
	if got := p[bucketsample.SourceLinenoField].(map[string]any)["type"]; got != "integer" {
		t.Errorf("lineno type = %v, want integer", got)
	}
}

func TestGenerateMetadataTakesPrecedence(t *testing.T) {
	// A data column colliding with a provenance field keeps the fixed
	// provenance descriptor.
	rows := []format.Row{{bucketsample.SourceFileField: float64(1)}}
	p := props(t, Generate(rows, bucketsample.TableSpec{}))

	if got := p[bucketsample.SourceFileField].(map[string]any)["type"]; got != "string" {
		t.Errorf("source file type = %v, want string", got)
	}
}

func TestMergeSecondWinsOnConflict(t *testing.T) {
	first := map[string]any{"a": map[string]any{"type": "string"}, "b": "x"}
	second := map[string]any{"b": "y", "c": "z"}

	merged := Merge(first, second)
	if merged["b"] != "y" {
		t.Errorf(`merged["b"] = %v, want "y"`, merged["b"])
	}
	if merged["c"] != "z" {
		t.Errorf(`merged["c"] = %v, want "z"`, merged["c"])
	}
	if _, ok := merged["a"]; !ok {
		t.Error(`merged["a"] missing`)
	}
}

func TestMergeRecursesIntoMaps(t *testing.T) {
	first := map[string]any{"nested": map[string]any{"a": 1, "b": 2}}
	second := map[string]any{"nested": map[string]any{"b": 3, "c": 4}}

	merged := Merge(first, second)
	want := map[string]any{"a": 1, "b": 3, "c": 4}
	if !reflect.DeepEqual(merged["nested"], want) {
		t.Errorf("nested = %v, want %v", merged["nested"], want)
	}
}

func TestMergeDoesNotModifyFirst(t *testing.T) {
	first := map[string]any{"a": 1}
	_ = Merge(first, map[string]any{"a": 2, "b": 3})
	if first["a"] != 1 {
		t.Errorf(`first["a"] = %v, want 1`, first["a"])
	}
	if _, ok := first["b"]; ok {
		t.Error("Merge modified its first argument")
	}
}

func TestMergeIdempotent(t *testing.T) {
	m := map[string]any{"a": map[string]any{"type": "string"}, "b": 2}
	if got := Merge(m, m); !reflect.DeepEqual(got, m) {
		t.Errorf("Merge(m, m) = %v, want %v", got, m)
	}
}
