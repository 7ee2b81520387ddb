package system

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Layout names inside the content repository.
const (
	SystemsDir           = "systems"
	DefinitionFile       = "system.rpg.json"
	ResourcesDir         = "resources"
	ResourceDocumentFile = "resource.json"
	StatsFile            = "stats.rpgs"
	InstancesDir         = "resource_instances"
)

// Definition is the typed view of system.rpg.json.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	License     string   `json:"license,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Resources   []string `json:"resources"`
}

// ResourceDocument is the typed view of a resource JSON document.
type ResourceDocument struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// DecodeDefinition reads the known fields of a parsed system document.
// Fields with an unexpected type are left empty.
func DecodeDefinition(doc any) Definition {
	obj, _ := doc.(map[string]any)
	return Definition{
		ID:          stringField(obj, "id"),
		Name:        stringField(obj, "name"),
		Version:     stringField(obj, "version"),
		Description: stringField(obj, "description"),
		License:     stringField(obj, "license"),
		Homepage:    stringField(obj, "homepage"),
		Authors:     stringsField(obj, "authors"),
		Resources:   stringsField(obj, "resources"),
	}
}

// DecodeResourceDocument reads the known fields of a parsed resource document.
func DecodeResourceDocument(doc any) ResourceDocument {
	obj, _ := doc.(map[string]any)
	return ResourceDocument{
		ID:          stringField(obj, "id"),
		Name:        stringField(obj, "name"),
		Kind:        stringField(obj, "kind"),
		Description: stringField(obj, "description"),
		Tags:        stringsField(obj, "tags"),
	}
}

// ResourceRefs returns the raw entries of the definition's resources array,
// keeping non-string entries as "" so indexes match the document.
func ResourceRefs(doc any) []string {
	obj, _ := doc.(map[string]any)
	items, _ := obj["resources"].([]any)
	refs := make([]string, len(items))
	for idx, item := range items {
		if value, ok := item.(string); ok {
			refs[idx] = value
		}
	}
	return refs
}

// CanonicalVersion returns the semver form of a system version ("1.2.0" and
// "v1.2.0" both map to "v1.2.0"), or "" when the version is not valid.
// The major.minor.patch shorthands semver accepts ("v1", "v1.2") are
// rejected, as is any surrounding whitespace.
func CanonicalVersion(version string) string {
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return ""
	}
	core := strings.TrimSuffix(strings.TrimSuffix(version, semver.Build(version)), semver.Prerelease(version))
	if strings.Count(core, ".") != 2 {
		return ""
	}
	return version
}

// CompareVersions orders two system versions by semver precedence. Invalid
// versions sort before valid ones.
func CompareVersions(a, b string) int {
	return semver.Compare(CanonicalVersion(a), CanonicalVersion(b))
}

func stringField(obj map[string]any, key string) string {
	value, _ := obj[key].(string)
	return value
}

func stringsField(obj map[string]any, key string) []string {
	items, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if value, ok := item.(string); ok {
			out = append(out, value)
		}
	}
	return out
}
