package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// field returns the raw value of the first alias present in obj, or nil.
// JSON null counts as absent.
func field(obj *jason.Object, aliases ...string) any {
	if obj == nil {
		return nil
	}
	for _, key := range aliases {
		v, err := obj.GetValue(key)
		if err != nil || v == nil {
			continue
		}
		if raw := rawValue(v); raw != nil {
			return raw
		}
	}
	return nil
}

// rawValue decodes v into plain Go values. Numbers stay json.Number.
func rawValue(v *jason.Value) any {
	data, err := v.Marshal()
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil
	}
	return raw
}

// subObject returns the nested object under the first matching alias
func subObject(obj *jason.Object, aliases ...string) *jason.Object {
	if obj == nil {
		return nil
	}
	for _, key := range aliases {
		if sub, err := obj.GetObject(key); err == nil {
			return sub
		}
	}
	return nil
}

func toFloat(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(raw any) (int, bool) {
	f, ok := toFloat(raw)
	if !ok {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if f < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(math.Round(f)), true
}

func toBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case json.Number, float64, int, int64:
		f, ok := toFloat(v)
		return ok && f != 0, ok
	}
	return false, false
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// percentFloor is the smallest bare number read as a percentage. Values in
// (1, percentFloor) are slight overshoots and clamp to 1.
const percentFloor = 2

// confidence coerces a probability into [0,1]. "85%" and bare numbers in
// [percentFloor, 100] are scaled down as percentages.
func confidence(raw any) float64 {
	f, ok := toFloat(raw)
	if !ok {
		return 0
	}
	if s, isStr := raw.(string); isStr && strings.HasSuffix(strings.TrimSpace(s), "%") {
		f /= 100
	} else if f >= percentFloor && f <= 100 {
		f /= 100
	}
	return clamp(f, 0, 1)
}

func boolField(obj *jason.Object, def bool, aliases ...string) bool {
	if b, ok := toBool(field(obj, aliases...)); ok {
		return b
	}
	return def
}

// enumToken lowercases, trims and folds separators so "Dusk/Dawn" and
// "dusk-dawn" compare equal to "dusk_dawn"
func enumToken(raw any) string {
	s := strings.ToLower(toString(raw))
	return strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(s)
}

// stringList accepts a JSON array of strings or a comma-separated string
func stringList(raw any) []string {
	out := []string{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// mapValue reads the first alias from a decoded JSON object map
func mapValue(m map[string]any, aliases ...string) any {
	for _, key := range aliases {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
