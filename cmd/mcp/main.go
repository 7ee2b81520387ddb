package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	mcpservice "github.com/louisbranch/rpg-systems/internal/services/mcp"
)

// main serves the content tools over MCP stdio.
func main() {
	cfg, err := mcpservice.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[MCP] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := platformcmd.RunWithTelemetry(ctx, platformcmd.ToolMCP, func(ctx context.Context) error {
		return mcpservice.Run(ctx, cfg)
	}); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
