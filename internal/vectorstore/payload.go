package vectorstore

import (
	"bytes"
	"encoding/json"
	"math"
)

// DecodePayload unmarshals a stored JSON payload. Integral numbers come back
// as int, so an ayah written with surah_number 1 reads back as 1 and not 1.0.
func DecodePayload(data []byte) (map[string]any, error) {
	payload := map[string]any{}
	if len(data) == 0 {
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	NormalizeNumbers(payload)
	return payload, nil
}

// NormalizeNumbers rewrites json.Number values in place, recursing into
// nested maps and lists: integers become int and everything else float64.
func NormalizeNumbers(payload map[string]any) {
	for k, v := range payload {
		payload[k] = normalize(v)
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil && n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		NormalizeNumbers(t)
		return t
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	}
	return v
}
