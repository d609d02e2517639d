package mockstore

import (
	"encoding/json"
	"fmt"
)

// Merge applies a shallow merge of patch onto base and returns the result
// as a new T. Both are compared in their JSON form: every top-level key in
// patch replaces the key in base, nested objects are replaced whole, and keys
// missing from patch are kept. Patch types use pointer fields with omitempty so
// that unset fields stay out of the JSON form.
func Merge[T any](base T, patch any) (T, error) {
	var out T

	baseMap, err := toMap(base)
	if err != nil {
		return out, fmt.Errorf("encode base: %w", err)
	}
	patchMap, err := toMap(patch)
	if err != nil {
		return out, fmt.Errorf("encode patch: %w", err)
	}

	for k, v := range patchMap {
		baseMap[k] = v
	}

	data, err := json.Marshal(baseMap)
	if err != nil {
		return out, fmt.Errorf("encode merged: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode merged: %w", err)
	}
	return out, nil
}

func toMap(v any) (map[string]json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if v == nil {
		return m, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
