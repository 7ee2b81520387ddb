package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	"github.com/louisbranch/rpg-systems/internal/platform/config"
	"github.com/louisbranch/rpg-systems/internal/tools/validate"
)

// main validates every system under a content root.
func main() {
	log.SetPrefix("[VALIDATE] ")
	cfg, err := validate.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(config.ExitUsage, "Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := config.ExitOK
	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolValidate, func(ctx context.Context) error {
		var runErr error
		code, runErr = validate.Run(ctx, cfg, os.Stdout)
		return runErr
	})
	if err != nil {
		config.ExitCodef(platformcmd.ExitCode(err), "Error: %v", err)
	}
	stop()
	os.Exit(code)
}
