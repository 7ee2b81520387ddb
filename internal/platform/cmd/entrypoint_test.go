package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"testing"

	"github.com/louisbranch/rpg-systems/internal/platform/config"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
)

type testConfig struct {
	Root    string `env:"CMD_TEST_ROOT" envDefault:"."`
	Workers int    `env:"CMD_TEST_WORKERS" envDefault:"4"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("RPG_SYSTEMS_CMD_TEST_ROOT", "env-root")
	t.Setenv("RPG_SYSTEMS_CMD_TEST_WORKERS", "8")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Root, "root", cfg.Root, "root")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "workers")

	if err := ParseArgs(fs, []string{"-root", "flag-root"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Root != "flag-root" {
		t.Fatalf("expected flag value for root, got %q", cfg.Root)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected env workers, got %d", cfg.Workers)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, config.ExitOK},
		{"invalid argument", apperrors.New(apperrors.CodeInvalidArgument, "bad policy"), config.ExitUsage},
		{"wrapped invalid argument", fmt.Errorf("run: %w", apperrors.New(apperrors.CodeInvalidArgument, "bad")), config.ExitUsage},
		{"io", apperrors.New(apperrors.CodeIO, "read"), config.ExitFailure},
		{"plain", errors.New("boom"), config.ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil config target to be rejected")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRunsFunction(t *testing.T) {
	t.Setenv("RPG_SYSTEMS_OTEL_ENDPOINT", "")

	sentinel := errors.New("boom")
	called := false
	err := RunWithTelemetry(context.Background(), ToolValidate, func(context.Context) error {
		called = true
		return sentinel
	})
	if !called {
		t.Fatal("expected run function to be called")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected run error to propagate, got %v", err)
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing tool error")
	}
	if err := RunWithTelemetry(context.Background(), ToolValidate, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}
