package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

var errTestTargetNameRequired = errors.New("name required")

type testTarget struct {
	Name    string `json:"name"`
	Timeout int    `json:"timeout"`
}

func (t *testTarget) Validate() error {
	if t.Name == "" {
		return errTestTargetNameRequired
	}

	return nil
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadAndValidateFromFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "pvm-config-*.json")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmp.Name()) })
	tmp.Close()

	writeJSON(t, tmp.Name(), testTarget{Name: "ingest", Timeout: 30})

	cfg := NewConfig(nil)

	var result testTarget
	if err := cfg.LoadAndValidate(context.Background(), tmp.Name(), &result); err != nil {
		t.Fatalf("LoadAndValidate returned error: %v", err)
	}

	if result.Name != "ingest" || result.Timeout != 30 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLoadAndValidateRejectsInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "bogus")

	cfg := NewConfig(nil)

	var result testTarget
	if err := cfg.LoadAndValidate(context.Background(), "unused.json", &result); err == nil {
		t.Fatal("expected error for invalid CONFIG_SOURCE")
	}
}

func TestLoadAndValidateRunsValidator(t *testing.T) {
	tmp, err := os.CreateTemp("", "pvm-config-*.json")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmp.Name()) })
	tmp.Close()

	writeJSON(t, tmp.Name(), testTarget{Name: "", Timeout: 5})

	cfg := NewConfig(nil)

	var result testTarget
	if err := cfg.LoadAndValidate(context.Background(), tmp.Name(), &result); err == nil {
		t.Fatal("expected validation error for empty name")
	}
}

func TestLoadAndValidateFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("PVM_NAME", "from-env")
	t.Setenv("PVM_TIMEOUT", "15")

	cfg := NewConfig(nil)

	var result testTarget
	if err := cfg.LoadAndValidate(context.Background(), "unused.json", &result); err != nil {
		t.Fatalf("LoadAndValidate returned error: %v", err)
	}

	if result.Name != "from-env" || result.Timeout != 15 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
