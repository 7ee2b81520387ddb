// Package validate implements the validate command: check a content root
// and print a report.
package validate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	"github.com/louisbranch/rpg-systems/internal/platform/config"
	"github.com/louisbranch/rpg-systems/internal/systems/check"
	"github.com/louisbranch/rpg-systems/internal/systems/report"
	"github.com/louisbranch/rpg-systems/internal/systems/schema"
)

// Config holds validate settings.
type Config struct {
	Root          string `env:"ROOT"`
	Workers       int    `env:"WORKERS"`
	UnknownFields string `env:"UNKNOWN_FIELDS"`

	JSON          bool
	Strict        bool
	WarningsCap   int
	SchemaPath    string
	SkipInstances bool
	Verbose       bool
}

// ParseConfig reads environment defaults, then flags, then the optional
// positional path argument, which overrides -root.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Workers:       check.DefaultWorkers,
		UnknownFields: string(schema.UnknownFieldsWarn),
		WarningsCap:   report.DefaultWarningsCap,
	}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Root, "root", cfg.Root, "content root, systems directory or single system directory")
	fs.BoolVar(&cfg.JSON, "json", false, "print the report as JSON")
	fs.BoolVar(&cfg.Strict, "strict", false, "fail on warnings as well as errors")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "maximum warnings printed in text output (0 = no limit)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "systems validated in parallel")
	fs.StringVar(&cfg.UnknownFields, "unknown-fields", cfg.UnknownFields, "policy for undeclared fields: allow, warn or reject")
	fs.StringVar(&cfg.SchemaPath, "schema", "", "custom JSON Schema for system.rpg.json")
	fs.BoolVar(&cfg.SkipInstances, "skip-instances", false, "do not validate resource_instances")
	fs.BoolVar(&cfg.Verbose, "v", false, "log progress to stderr")
	// Flags may follow the path, so parsing resumes after each positional.
	var paths []string
	for {
		if err := platformcmd.ParseArgs(fs, args); err != nil {
			return Config{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		paths = append(paths, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(paths) {
	case 0:
	case 1:
		cfg.Root = paths[0]
	default:
		return Config{}, fmt.Errorf("expected a single path, got %d", len(paths))
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return Config{}, errors.New("path is required")
	}
	if cfg.Workers <= 0 {
		return Config{}, errors.New("workers must be greater than zero")
	}
	if cfg.WarningsCap < 0 {
		return Config{}, errors.New("warnings-cap must not be negative")
	}
	if _, err := schema.ParsePolicy(cfg.UnknownFields); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run validates cfg.Root, writes the report to out and returns the process
// exit code. Errors are returned only when no report could be produced.
func Run(ctx context.Context, cfg Config, out io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	policy, err := schema.ParsePolicy(cfg.UnknownFields)
	if err != nil {
		return config.ExitUsage, err
	}

	checker, err := check.New(check.Options{
		Workers:       cfg.Workers,
		UnknownFields: policy,
		SchemaPath:    cfg.SchemaPath,
		SkipInstances: cfg.SkipInstances,
	})
	if err != nil {
		return config.ExitFailure, err
	}
	result, err := checker.Check(ctx, cfg.Root)
	if err != nil {
		return config.ExitFailure, err
	}
	if cfg.Verbose {
		for _, sys := range result.Report.Systems {
			log.Printf("%s: %d resource(s), %d instance file(s), %d error(s), %d warning(s)",
				sys.Name, sys.Resources, sys.InstanceFiles, sys.Errors, sys.Warnings)
		}
	}

	if err := report.Write(out, result.Report, report.Options{
		JSON:        cfg.JSON,
		WarningsCap: cfg.WarningsCap,
		Strict:      cfg.Strict,
	}); err != nil {
		return config.ExitFailure, err
	}
	return result.Report.ExitCode(cfg.Strict), nil
}
