// Package resolver cross-checks the identifiers a system declares against
// the resources it ships.
package resolver

import (
	"fmt"
	"sort"

	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/loader"
	"github.com/louisbranch/rpg-systems/internal/systems/stats"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
)

// Resolve returns the reference issues of sys. Definitions that are not JSON
// objects are left to the schema validator.
func Resolve(sys *loader.System) []issue.Issue {
	if sys == nil {
		return nil
	}
	r := resolution{
		sys:      sys,
		provided: make(map[string]loader.Resource, len(sys.Resources)),
		used:     make(map[string]bool),
	}
	r.indexResources()
	r.checkDefinition()
	r.checkStatReferences()
	r.checkDocumentIdentifiers()
	r.checkUnused()
	return r.issues
}

type resolution struct {
	sys      *loader.System
	provided map[string]loader.Resource
	used     map[string]bool
	issues   []issue.Issue
}

func (r *resolution) add(item issue.Issue, path string) {
	item.System = r.sys.Name
	item.File = r.sys.Rel(path)
	r.issues = append(r.issues, item)
}

func (r *resolution) indexResources() {
	for _, res := range r.sys.Resources {
		if prev, ok := r.provided[res.ID]; ok {
			item := issue.Errorf(issue.KindDuplicateIdentifier, nil,
				"resource %q is also provided by %s", res.ID, r.sys.Rel(prev.Path))
			item.Field = res.ID
			r.add(item, res.Path)
			continue
		}
		r.provided[res.ID] = res
	}
}

func (r *resolution) checkDefinition() {
	obj, ok := r.sys.Definition.(map[string]any)
	if !ok {
		return
	}
	def := system.DecodeDefinition(obj)
	if def.ID != "" && def.ID != r.sys.Name {
		item := issue.Warnf(issue.KindIdentifierMismatch, []string{"id"},
			"system id %q does not match folder name %q", def.ID, r.sys.Name)
		item.Field = "id"
		r.add(item, r.sys.DefinitionPath)
	}

	if _, ok := obj["resources"].([]any); !ok {
		return
	}
	seen := make(map[string]int)
	for idx, ref := range system.ResourceRefs(obj) {
		if ref == "" {
			continue
		}
		path := []string{"resources", fmt.Sprintf("[%d]", idx)}
		if first, dup := seen[ref]; dup {
			item := issue.Errorf(issue.KindDuplicateIdentifier, path,
				"resource %q is already listed at resources -> [%d]", ref, first)
			item.Field = "resources"
			r.add(item, r.sys.DefinitionPath)
			continue
		}
		seen[ref] = idx
		r.used[ref] = true
		if _, ok := r.provided[ref]; !ok {
			item := issue.Errorf(issue.KindDanglingReference, path,
				"resource %q is not defined in %s/", ref, system.ResourcesDir)
			item.Field = "resources"
			r.add(item, r.sys.DefinitionPath)
		}
	}
}

func (r *resolution) checkStatReferences() {
	for _, res := range r.sys.Resources {
		for _, decl := range res.Stats {
			if decl.Type.Kind != stats.KindResource || decl.Type.ResourceType == "" {
				continue
			}
			target := decl.Type.ResourceType
			r.used[target] = true
			if _, ok := r.provided[target]; ok {
				continue
			}
			item := issue.Errorf(issue.KindDanglingReference, []string{decl.Name},
				"line %d: stat type %s refers to unknown resource %q", decl.Line, decl.Type, target)
			item.Field = decl.Name
			r.add(item, res.StatsPath)
		}
	}
}

func (r *resolution) checkDocumentIdentifiers() {
	for _, res := range r.sys.Resources {
		doc, ok := res.Document.(map[string]any)
		if !ok {
			continue
		}
		declared := system.DecodeResourceDocument(doc).ID
		if declared == "" || declared == res.ID {
			continue
		}
		item := issue.Errorf(issue.KindIdentifierMismatch, []string{"id"},
			"resource id %q does not match its identifier %q", declared, res.ID)
		item.Field = "id"
		r.add(item, res.DocumentPath)
	}
}

func (r *resolution) checkUnused() {
	ids := make([]string, 0, len(r.provided))
	for id := range r.provided {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if r.used[id] {
			continue
		}
		item := issue.Warnf(issue.KindUnusedResource, nil,
			"resource %q is not referenced by the system definition or any stat", id)
		item.Field = id
		r.add(item, r.provided[id].Path)
	}
}
