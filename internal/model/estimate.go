package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeEstimate maps a loosely shaped JSON object onto a NutritionEstimate.
// Model output drifts: numbers arrive as strings, notes as a list or an
// object, items as a single object. Anything unusable degrades to the zero
// value instead of failing.
func DecodeEstimate(payload map[string]any) NutritionEstimate {
	est := NutritionEstimate{
		Calories: coerceFloat(payload["calories"]),
		ProteinG: coerceFloat(payload["protein"]),
		FatG:     coerceFloat(payload["fat"]),
		CarbG:    coerceFloat(payload["carbs"]),
		Notes:    coerceNotes(payload["notes"]),
	}
	switch items := payload["items"].(type) {
	case map[string]any:
		est.Items = []EstimateItem{decodeItem(items)}
	case []any:
		for _, raw := range items {
			obj, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			est.Items = append(est.Items, decodeItem(obj))
		}
	}
	return est
}

// UnmarshalEstimate decodes raw JSON. It fails only when the bytes are not a
// JSON object; field-level garbage is absorbed by DecodeEstimate.
func UnmarshalEstimate(raw []byte) (NutritionEstimate, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return NutritionEstimate{}, fmt.Errorf("decode estimate payload: %w", err)
	}
	return DecodeEstimate(payload), nil
}

func decodeItem(obj map[string]any) EstimateItem {
	return EstimateItem{
		Name:     coerceString(obj["name"]),
		Calories: coerceFloat(obj["calories"]),
		ProteinG: coerceFloat(obj["protein"]),
		FatG:     coerceFloat(obj["fat"]),
		CarbG:    coerceFloat(obj["carbs"]),
	}
}

func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", "."))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func coerceString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// coerceNotes flattens the shapes the model produces for notes: a plain
// string, a list of fragments, or an object with description/conclusions.
func coerceNotes(v any) string {
	switch notes := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(notes)
	case []any:
		parts := make([]string, 0, len(notes))
		for _, raw := range notes {
			part := strings.TrimSpace(stringify(raw))
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		parts := make([]string, 0, 2)
		for _, key := range []string{"description", "conclusions"} {
			part := strings.TrimSpace(stringify(notes[key]))
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, "\n")
	}
	return strings.TrimSpace(stringify(v))
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return fmt.Sprintf("%v", v)
}
