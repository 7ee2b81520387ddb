package importer

import (
	"context"
	"sort"

	"github.com/louisbranch/rpg-systems/internal/systems/storage"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
)

// fakeCatalogStore implements storage.CatalogStore in memory.
type fakeCatalogStore struct {
	versions map[string]storage.SystemVersion // keyed by id@version
	putErr   error
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{versions: make(map[string]storage.SystemVersion)}
}

func key(id, version string) string {
	return id + "@" + version
}

func (f *fakeCatalogStore) GetSystemVersion(_ context.Context, id, version string) (storage.SystemVersion, error) {
	v, ok := f.versions[key(id, version)]
	if !ok {
		return storage.SystemVersion{}, storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeCatalogStore) ListSystemVersions(ctx context.Context, id string) ([]storage.SystemVersion, error) {
	all, _ := f.ListSystems(ctx)
	var out []storage.SystemVersion
	for _, v := range all {
		if v.ID == id {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) ListSystems(_ context.Context) ([]storage.SystemVersion, error) {
	out := make([]storage.SystemVersion, 0, len(f.versions))
	for _, v := range f.versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return system.CompareVersions(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}

func (f *fakeCatalogStore) PutSystemVersion(_ context.Context, v storage.SystemVersion) error {
	if f.putErr != nil {
		return f.putErr
	}
	if _, ok := f.versions[key(v.ID, v.Version)]; ok {
		return storage.ErrAlreadyExists
	}
	f.versions[key(v.ID, v.Version)] = v
	return nil
}

func (f *fakeCatalogStore) PutSupersedingVersion(_ context.Context, v storage.SystemVersion, previous string) error {
	if f.putErr != nil {
		return f.putErr
	}
	prev, ok := f.versions[key(v.ID, previous)]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := f.versions[key(v.ID, v.Version)]; ok {
		return storage.ErrAlreadyExists
	}
	prev.SupersededBy = v.Version
	f.versions[key(v.ID, previous)] = prev
	f.versions[key(v.ID, v.Version)] = v
	return nil
}
