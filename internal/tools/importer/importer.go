// Package importer loads validated systems into the SQLite catalog.
//
// Published versions are immutable: re-importing identical content is a
// no-op and changed content under an existing version is rejected. A newer
// version supersedes the previous latest one.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"
	"time"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/loader"
	"github.com/louisbranch/rpg-systems/internal/systems/storage"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
)

// Outcome describes what importing one system version did.
type Outcome string

const (
	OutcomeImported   Outcome = "imported"
	OutcomeSuperseded Outcome = "imported_superseded"
	OutcomeUnchanged  Outcome = "unchanged"
)

// Result is the import outcome of one system version.
type Result struct {
	ID      string
	Version string
	Outcome Outcome
	// Replaced is the previous latest version this import superseded.
	Replaced string
	// SupersededBy is set when an older version was imported behind a
	// newer stored one.
	SupersededBy string
}

// String renders a one-line summary.
func (r Result) String() string {
	switch {
	case r.Outcome == OutcomeSuperseded:
		return fmt.Sprintf("%s %s: imported (superseded by %s)", r.ID, r.Version, r.SupersededBy)
	case r.Replaced != "":
		return fmt.Sprintf("%s %s: imported (supersedes %s)", r.ID, r.Version, r.Replaced)
	default:
		return fmt.Sprintf("%s %s: %s", r.ID, r.Version, r.Outcome)
	}
}

// Import stores every system in the catalog. Systems are processed
// independently; conflicts and store failures are joined into the returned
// error while the remaining systems are still imported.
func Import(ctx context.Context, store storage.CatalogStore, systems []*loader.System, now time.Time) ([]Result, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	var (
		results []Result
		errs    []error
	)
	for _, sys := range systems {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := ImportSystem(ctx, store, sys, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sys.Name, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// ImportSystem stores one loaded system.
func ImportSystem(ctx context.Context, store storage.CatalogStore, sys *loader.System, now time.Time) (Result, error) {
	record, err := Record(sys, now)
	if err != nil {
		return Result{}, err
	}
	result := Result{ID: record.ID, Version: record.Version}

	existing, err := store.GetSystemVersion(ctx, record.ID, record.Version)
	switch {
	case err == nil:
		if existing.ContentHash != record.ContentHash {
			return Result{}, apperrors.WithMetadata(apperrors.CodeConflict,
				"published version is immutable; bump the version to change its content",
				map[string]string{"system": record.ID, "version": record.Version})
		}
		result.Outcome = OutcomeUnchanged
		return result, nil
	case !errors.Is(err, storage.ErrNotFound):
		return Result{}, fmt.Errorf("get system version: %w", err)
	}

	versions, err := store.ListSystemVersions(ctx, record.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list system versions: %w", err)
	}
	latest, hasLatest := latestVersion(versions)

	if hasLatest && system.CompareVersions(record.Version, latest.Version) < 0 {
		record.SupersededBy = latest.Version
		if err := store.PutSystemVersion(ctx, record); err != nil {
			return Result{}, fmt.Errorf("put system version: %w", err)
		}
		result.Outcome = OutcomeSuperseded
		result.SupersededBy = latest.Version
		return result, nil
	}

	result.Outcome = OutcomeImported
	if !hasLatest {
		if err := store.PutSystemVersion(ctx, record); err != nil {
			return Result{}, fmt.Errorf("put system version: %w", err)
		}
		return result, nil
	}
	if err := store.PutSupersedingVersion(ctx, record, latest.Version); err != nil {
		return Result{}, fmt.Errorf("put system version superseding %s: %w", latest.Version, err)
	}
	result.Replaced = latest.Version
	return result, nil
}

// latestVersion returns the highest version not superseded by another.
func latestVersion(versions []storage.SystemVersion) (storage.SystemVersion, bool) {
	var (
		latest storage.SystemVersion
		found  bool
	)
	for _, v := range versions {
		if !v.Latest() {
			continue
		}
		if !found || system.CompareVersions(v.Version, latest.Version) > 0 {
			latest = v
			found = true
		}
	}
	return latest, found
}

// Record converts a loaded system into a catalog record. The version is
// stored without the "v" prefix so 1.2.0 and v1.2.0 are the same version.
func Record(sys *loader.System, now time.Time) (storage.SystemVersion, error) {
	if sys == nil {
		return storage.SystemVersion{}, errors.New("system is required")
	}
	def := system.DecodeDefinition(sys.Definition)
	id := strings.TrimSpace(def.ID)
	if id == "" {
		id = sys.Name
	}
	canonical := system.CanonicalVersion(def.Version)
	if canonical == "" {
		return storage.SystemVersion{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			"system version is not a semantic version", map[string]string{"system": id, "version": def.Version})
	}

	record := storage.SystemVersion{
		ID:          id,
		Version:     strings.TrimPrefix(canonical, "v"),
		Name:        def.Name,
		ContentHash: ContentHash(sys),
		Definition:  append([]byte(nil), sys.DefinitionRaw...),
		ImportedAt:  now.UTC(),
	}
	for _, res := range sortedResources(sys.Resources) {
		doc := system.DecodeResourceDocument(res.Document)
		entry := storage.Resource{
			ID:       res.ID,
			Name:     doc.Name,
			Kind:     doc.Kind,
			Document: append([]byte(nil), res.DocumentRaw...),
		}
		for _, decl := range res.Stats {
			entry.Stats = append(entry.Stats, storage.Stat{Name: decl.Name, Type: decl.Type.String(), Line: decl.Line})
		}
		record.Resources = append(record.Resources, entry)
	}
	return record, nil
}

// ContentHash returns the hex SHA-256 of the definition and every resource
// document and stats file, in resource id order.
func ContentHash(sys *loader.System) string {
	h := sha256.New()
	writeFramed(h, []byte(system.DefinitionFile))
	writeFramed(h, sys.DefinitionRaw)
	for _, res := range sortedResources(sys.Resources) {
		writeFramed(h, []byte(res.ID))
		writeFramed(h, res.DocumentRaw)
		writeFramed(h, res.StatsRaw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeFramed length-prefixes data so adjacent fields cannot collide.
func writeFramed(h hash.Hash, data []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(data)))
	h.Write(size[:])
	h.Write(data)
}

func sortedResources(resources []loader.Resource) []loader.Resource {
	out := append([]loader.Resource(nil), resources...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
