package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/rpg-systems/internal/platform/config"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/platform/otel"
	"github.com/louisbranch/rpg-systems/internal/platform/timeouts"
)

// Tool identifiers used for telemetry service names and log prefixes.
const (
	ToolValidate        = "validate"
	ToolFormatInstances = "format-instances"
	ToolCatalogImporter = "catalog-importer"
	ToolMCP             = "mcp"
)

// RunOptions controls shared entrypoint behavior for tool commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ExitCode maps a run error to a process exit status. Invalid arguments
// are usage errors; everything else fails the run.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return config.ExitOK
	case apperrors.GetCode(err) == apperrors.CodeInvalidArgument:
		return config.ExitUsage
	default:
		return config.ExitFailure
	}
}

// RunWithTelemetry configures tracing and executes a tool run function.
func RunWithTelemetry(ctx context.Context, tool string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, tool, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures tracing and executes a tool run function.
func RunWithTelemetryAndOptions(ctx context.Context, tool string, options RunOptions, run func(context.Context) error) error {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return fmt.Errorf("tool name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, "rpg-systems-"+tool)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = timeouts.TelemetryShutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", tool, err)
		}
	}()
	return run(ctx)
}
