package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"stockbot/internal/features"
)

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")
	payload := `{"features": ["close", "return_1m", "rsi"]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if len(s.Features) != 3 || s.Features[1] != "return_1m" {
		t.Fatalf("features = %v, want [close return_1m rsi]", s.Features)
	}
}

func TestLoadSchemaRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")
	if err := os.WriteFile(path, []byte(`{"features": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSchema(path); err == nil {
		t.Fatal("LoadSchema accepted an empty feature list")
	}
}

func TestVectorFollowsSchemaOrder(t *testing.T) {
	s := Schema{Features: []string{"rsi", "close", "return_1m"}}
	row := features.Row{"close": 101.5, "return_1m": 0.002, "rsi": 55}

	vec, err := s.Vector(row)
	if err != nil {
		t.Fatalf("Vector: %v", err)
	}
	want := []float32{55, 101.5, 0.002}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestVectorReportsAllMissingFeatures(t *testing.T) {
	s := Schema{Features: []string{"close", "vwap", "obv"}}
	row := features.Row{"close": 100}

	_, err := s.Vector(row)
	var mismatch *FeatureMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want FeatureMismatchError", err)
	}
	if len(mismatch.Missing) != 2 {
		t.Fatalf("missing = %v, want [vwap obv]", mismatch.Missing)
	}
	if mismatch.Missing[0] != "vwap" || mismatch.Missing[1] != "obv" {
		t.Fatalf("missing = %v, want [vwap obv]", mismatch.Missing)
	}
}
