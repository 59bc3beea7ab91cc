// Package schema synthesizes a JSON-Schema-like description from sampled
// rows. Each field's descriptor is inferred from the values observed for
// it; descriptors from later rows are merged into earlier ones with a
// recursive structural union.
package schema

import (
	"time"

	"github.com/grokify/bucketsample"
	"github.com/grokify/bucketsample/format"
)

// Schema is a JSON-Schema-like object: {"type": "object", "properties": ...}.
type Schema = map[string]any

// Generate builds one schema from the merged sequence of sampled rows for
// a table. The four fixed metadata fields are always present and take
// precedence at the top level. With no rows at all it returns a maximally
// permissive empty-object schema.
func Generate(rows []format.Row, spec bucketsample.TableSpec) Schema {
	if len(rows) == 0 {
		return Schema{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	overrides := make(map[string]bool, len(spec.DateOverrides))
	for _, f := range spec.DateOverrides {
		overrides[f] = true
	}

	properties := map[string]any{}
	for _, row := range rows {
		for field, value := range row {
			descriptor := describe(value)
			if overrides[field] {
				descriptor = map[string]any{
					"type":   []any{"null", "string"},
					"format": "date-time",
				}
			}
			if existing, ok := properties[field]; ok {
				properties[field] = mergeValues(existing, descriptor)
			} else {
				properties[field] = descriptor
			}
		}
	}

	return Schema{
		"type":       "object",
		"properties": Merge(properties, metadataProperties()),
	}
}

// Merge deep-merges two property maps. Where both sides hold a mapping the
// merge recurses; for any other conflict the second map wins. The first
// map is not modified.
func Merge(first, second map[string]any) map[string]any {
	merged := make(map[string]any, len(first)+len(second))
	for k, v := range first {
		merged[k] = v
	}
	for k, v := range second {
		if existing, ok := merged[k]; ok {
			merged[k] = mergeValues(existing, v)
		} else {
			merged[k] = v
		}
	}
	return merged
}

func mergeValues(first, second any) any {
	fm, fok := first.(map[string]any)
	sm, sok := second.(map[string]any)
	if fok && sok {
		return Merge(fm, sm)
	}
	return second
}

// describe infers a descriptor for one observed value.
func describe(value any) map[string]any {
	switch v := value.(type) {
	case nil:
		return map[string]any{"type": []any{"null", "string"}}
	case bool:
		return map[string]any{"type": []any{"null", "boolean"}}
	case int, int32, int64:
		return map[string]any{"type": []any{"null", "integer"}}
	case float32:
		return describeFloat(float64(v))
	case float64:
		return describeFloat(v)
	case time.Time:
		return map[string]any{"type": []any{"null", "string"}, "format": "date-time"}
	case []byte:
		return map[string]any{"type": []any{"null", "string"}}
	case string:
		return map[string]any{"type": []any{"null", "string"}}
	case map[string]any:
		properties := make(map[string]any, len(v))
		for field, nested := range v {
			properties[field] = describe(nested)
		}
		return map[string]any{
			"type":       []any{"null", "object"},
			"properties": properties,
		}
	case format.Row:
		return describe(map[string]any(v))
	case []any:
		items := map[string]any{}
		for _, item := range v {
			items = Merge(items, describe(item))
		}
		return map[string]any{
			"type":  []any{"null", "array"},
			"items": items,
		}
	default:
		return map[string]any{"type": []any{"null", "string"}}
	}
}

// describeFloat keeps JSON numbers with no fractional part as integers,
// matching how row decoders surface numeric values.
func describeFloat(v float64) map[string]any {
	if v == float64(int64(v)) {
		return map[string]any{"type": []any{"null", "integer"}}
	}
	return map[string]any{"type": []any{"null", "number"}}
}

// metadataProperties returns the four fixed provenance fields.
func metadataProperties() map[string]any {
	return map[string]any{
		bucketsample.SourceBucketField: map[string]any{"type": "string"},
		bucketsample.SourceFileField:   map[string]any{"type": "string"},
		bucketsample.SourceLinenoField: map[string]any{"type": "integer"},
		bucketsample.ExtraField: map[string]any{
			"type": "array",
			"items": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "object", "properties": map[string]any{}},
					map[string]any{"type": "string"},
				},
			},
		},
	}
}
