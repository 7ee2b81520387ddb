package importer

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	platformcmd "github.com/louisbranch/rpg-systems/internal/platform/cmd"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/platform/timeouts"
	"github.com/louisbranch/rpg-systems/internal/systems/check"
	"github.com/louisbranch/rpg-systems/internal/systems/report"
	storagesqlite "github.com/louisbranch/rpg-systems/internal/systems/storage/sqlite"
)

// Config holds configuration for the catalog importer.
type Config struct {
	Root    string `env:"ROOT"`
	DBPath  string `env:"CATALOG_DB_PATH"`
	Workers int    `env:"WORKERS"`
	DryRun  bool
}

// ParseConfig reads environment defaults and then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		DBPath:  filepath.Join("data", "catalog.db"),
		Workers: check.DefaultWorkers,
	}
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Root, "root", cfg.Root, "content root containing systems/")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog database path")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "systems validated in parallel")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate without writing to the database")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if strings.TrimSpace(cfg.Root) == "" {
		return Config{}, errors.New("root is required")
	}
	if !cfg.DryRun && strings.TrimSpace(cfg.DBPath) == "" {
		return Config{}, errors.New("db-path is required")
	}
	return cfg, nil
}

// refusal describes why a report blocks the import. Reference errors take
// precedence over other failures.
func refusal(r report.Report) error {
	errs, _ := r.Counts()
	code := apperrors.CodeSchema
	for _, sys := range r.Systems {
		for _, item := range sys.Issues {
			if item.IsError() && item.Kind.IsReference() {
				code = apperrors.CodeReference
			}
		}
	}
	return apperrors.WithMetadata(code,
		fmt.Sprintf("validation failed with %d error(s); nothing imported", errs),
		map[string]string{"errors": strconv.Itoa(errs)})
}

// Run validates the content root and, unless DryRun is set, imports every
// system into the catalog. Any validation error aborts the import.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Import)
	defer cancel()

	checker, err := check.New(check.Options{Workers: cfg.Workers})
	if err != nil {
		return err
	}
	result, err := checker.Check(ctx, cfg.Root)
	if err != nil {
		return err
	}
	if result.Report.HasErrors() {
		if err := report.Write(out, result.Report, report.Options{WarningsCap: report.DefaultWarningsCap}); err != nil {
			return err
		}
		return refusal(result.Report)
	}

	if cfg.DryRun {
		_, err = fmt.Fprintf(out, "validated %d system(s)\n", len(result.Systems))
		return err
	}

	store, err := storagesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer store.Close()

	results, importErr := Import(ctx, store, result.Systems, time.Now())
	for _, r := range results {
		if _, err := fmt.Fprintln(out, r.String()); err != nil {
			return err
		}
	}
	if importErr != nil {
		return importErr
	}
	_, err = fmt.Fprintf(out, "imported %d system(s) into %s\n", len(results), cfg.DBPath)
	return err
}
