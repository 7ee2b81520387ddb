package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Workers int    `env:"TEST_WORKERS" envDefault:"4"`
	Root    string `env:"TEST_ROOT" envDefault:"."`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected default workers 4, got %d", cfg.Workers)
	}
	if cfg.Root != "." {
		t.Fatalf("expected default root '.', got %q", cfg.Root)
	}
}

func TestParseEnvUsesPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TEST_ROOT", "unprefixed")
	t.Setenv("RPG_SYSTEMS_TEST_ROOT", "content")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Root != "content" {
		t.Fatalf("expected prefixed value, got %q", cfg.Root)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("RPG_SYSTEMS_TEST_WORKERS", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
