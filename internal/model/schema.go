package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"stockbot/internal/features"
)

// Schema pins the feature order the models were exported with. Rows are
// name-keyed, so the sidecar file is the only thing that knows which
// column goes in which input slot.
type Schema struct {
	Features []string `json:"features"`
}

func LoadSchema(path string) (Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read feature schema: %w", err)
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return Schema{}, fmt.Errorf("parse feature schema: %w", err)
	}
	if len(s.Features) == 0 {
		return Schema{}, fmt.Errorf("feature schema %s lists no features", path)
	}
	return s, nil
}

// FeatureMismatchError reports schema features absent from a row. The
// caller gets the full list, not just the first miss.
type FeatureMismatchError struct {
	Missing []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("row missing features: %s", strings.Join(e.Missing, ", "))
}

// Vector lays a row out in schema order for the input tensor.
func (s Schema) Vector(row features.Row) ([]float32, error) {
	vec := make([]float32, len(s.Features))
	var missing []string
	for i, name := range s.Features {
		v, ok := row[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		vec[i] = float32(v)
	}
	if len(missing) > 0 {
		return nil, &FeatureMismatchError{Missing: missing}
	}
	return vec, nil
}
