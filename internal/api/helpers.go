package api

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid json: %w", err)
	}
	return out, nil
}

// normalizeInput accepts the OpenAI embeddings "input" field, which is
// either a single string or an array of strings.
func normalizeInput(input any) ([]string, error) {
	switch v := input.(type) {
	case nil:
		return nil, fmt.Errorf("input is required")
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, raw := range v {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("input[%d]: expected string", i)
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("input must not be empty")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("input: expected string or array of strings")
	}
}
