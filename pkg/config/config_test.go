package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "pages")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "pages" || s.Port != 9000 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoadKeepsUnsetFields(t *testing.T) {
	path := writeFile(t, "name: override\n")

	s := sample{Name: "default", Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "override" || s.Port != 8080 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoadRunsValidation(t *testing.T) {
	path := writeFile(t, "name: x\n")

	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	s := sample{Port: 8080}
	loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil || loaded {
		t.Fatalf("loaded=%v err=%v", loaded, err)
	}

	var empty sample
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &empty); err == nil {
		t.Error("defaults are still validated")
	}
}

func TestLoadOrDefaultBadYAML(t *testing.T) {
	path := writeFile(t, "port: [\n")
	s := sample{Port: 8080}
	if _, err := LoadOrDefault(path, &s); err == nil {
		t.Error("expected parse error")
	}
}
