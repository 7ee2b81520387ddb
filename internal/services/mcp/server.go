// Package mcp serves the content checks and the system catalog as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies the MCP server to clients.
	serverName = "rpg-systems"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Config holds MCP server configuration.
type Config struct {
	// Root is the default content root for validate_systems.
	Root string `env:"ROOT"`
	// DBPath is the default catalog database for list_catalog_systems.
	DBPath string `env:"CATALOG_DB_PATH"`
}

// ParseConfig reads environment defaults and then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Root, "root", cfg.Root, "default content root for validate_systems")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "default catalog database for list_catalog_systems")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

type registrationModule struct {
	name     string
	register func(*mcp.Server, Config)
}

func registrationModules() []registrationModule {
	return []registrationModule{
		{name: "validation-tools", register: registerValidationTools},
		{name: "catalog-tools", register: registerCatalogTools},
	}
}

// New builds an MCP server with every tool registered.
func New(cfg Config) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, module := range registrationModules() {
		module.register(server, cfg)
	}
	return server
}

// Run serves the tools over stdio until the client disconnects or ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return serve(ctx, New(cfg), &mcp.StdioTransport{})
}

func serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if server == nil {
		return errors.New("mcp server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.Printf("serving %s %s over stdio", serverName, serverVersion)
	if err := server.Run(ctx, transport); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}
