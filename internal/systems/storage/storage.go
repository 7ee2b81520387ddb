// Package storage defines persistence contracts for the system catalog.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested catalog record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a system version is already stored.
	ErrAlreadyExists = errors.New("record already exists")
)

// SystemVersion is one imported version of a system definition. Published
// versions are immutable; a newer version supersedes older ones.
type SystemVersion struct {
	ID      string
	Version string
	Name    string
	// ContentHash is the hex SHA-256 over the definition and resource files.
	ContentHash string
	Definition  []byte
	// SupersededBy names the version that replaced this one, empty for the
	// latest version.
	SupersededBy string
	ImportedAt   time.Time
	Resources    []Resource
}

// Latest reports whether no other version supersedes this one.
func (v SystemVersion) Latest() bool {
	return v.SupersededBy == ""
}

// Resource is one resource shipped with a system version.
type Resource struct {
	ID       string
	Name     string
	Kind     string
	Document []byte
	Stats    []Stat
}

// Stat is one stat declaration of a resource.
type Stat struct {
	Name string
	Type string
	Line int
}

// CatalogStore persists imported system versions.
type CatalogStore interface {
	// GetSystemVersion returns one version with its resources.
	GetSystemVersion(ctx context.Context, id, version string) (SystemVersion, error)
	// ListSystemVersions returns every stored version of a system, without
	// resources, oldest first by semantic version.
	ListSystemVersions(ctx context.Context, id string) ([]SystemVersion, error)
	// ListSystems returns every stored version of every system, without
	// resources, ordered by id and then semantic version.
	ListSystems(ctx context.Context) ([]SystemVersion, error)
	// PutSystemVersion stores a new version with its resources. Storing an
	// existing (id, version) returns ErrAlreadyExists.
	PutSystemVersion(ctx context.Context, v SystemVersion) error
	// PutSupersedingVersion stores v and marks the previous version of the
	// same system as superseded by it, atomically. A missing previous
	// version returns ErrNotFound and stores nothing.
	PutSupersedingVersion(ctx context.Context, v SystemVersion, previous string) error
}
