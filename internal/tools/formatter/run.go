package formatter

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	"github.com/louisbranch/rpg-systems/internal/platform/config"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/loader"
)

// Config holds format-instances settings.
type Config struct {
	Root   string `env:"ROOT"`
	System string
}

// ParseConfig reads environment defaults and then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Root: "."}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Root, "root", cfg.Root, "content root containing systems/")
	fs.StringVar(&cfg.System, "system", "", "limit formatting to one system folder")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return Config{}, errors.New("root is required")
	}
	return cfg, nil
}

// Files lists the instance files below root, optionally for one system.
func Files(root, systemName string) ([]string, error) {
	_, dirs, err := loader.Discover(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, dir := range dirs {
		if systemName != "" && filepath.Base(dir) != systemName {
			continue
		}
		found, err := loader.ListInstanceFiles(dir)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// Run formats every instance file and returns the process exit code.
// Per-file failures are listed on errOut and do not stop the remaining
// files.
func Run(ctx context.Context, cfg Config, out, errOut io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	files, err := Files(cfg.Root, cfg.System)
	if err != nil {
		return config.ExitUsage, err
	}
	if len(files) == 0 {
		target := cfg.System
		if target == "" {
			target = "<all>"
		}
		return config.ExitFailure, apperrors.WithMetadata(apperrors.CodeNotFound, "no resource instance files found", map[string]string{"system": target})
	}

	var failures []string
	changed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return config.ExitFailure, err
		}
		rewritten, err := FormatFile(path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if rewritten {
			changed++
		}
	}

	if len(failures) > 0 {
		fmt.Fprintln(errOut, "Formatting errors:")
		for _, failure := range failures {
			fmt.Fprintf(errOut, "- %s\n", failure)
		}
		fmt.Fprintf(errOut, "%d error(s).\n", len(failures))
		return config.ExitFailure, nil
	}
	if _, err := fmt.Fprintf(out, "Formatted %d file(s) out of %d.\n", changed, len(files)); err != nil {
		return config.ExitFailure, err
	}
	return config.ExitOK, nil
}
