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
	"github.com/louisbranch/rpg-systems/internal/tools/importer"
)

// main validates a content root and imports its systems into the catalog.
func main() {
	log.SetPrefix("[CATALOG] ")
	cfg, err := importer.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(config.ExitUsage, "Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ToolCatalogImporter, func(ctx context.Context) error {
		return importer.Run(ctx, cfg, os.Stdout)
	})
	if err != nil {
		config.ExitCodef(platformcmd.ExitCode(err), "Error: %v", err)
	}
}
