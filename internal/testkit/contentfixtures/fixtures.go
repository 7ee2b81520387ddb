// Package contentfixtures writes content repository trees for tests.
package contentfixtures

import (
	"maps"
	"os"
	"path/filepath"
	"testing"
)

// Files maps slash-separated paths to file contents.
type Files map[string]string

// Write materialises files below root.
func Write(t testing.TB, root string, files Files) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// Repo writes files into a fresh temporary directory and returns it.
func Repo(t testing.TB, files Files) string {
	t.Helper()
	root := t.TempDir()
	Write(t, root, files)
	return root
}

// Merge returns a new Files with later sets overriding earlier ones.
func Merge(sets ...Files) Files {
	out := Files{}
	for _, set := range sets {
		maps.Copy(out, set)
	}
	return out
}

// SpellStats declares the stats of the fixture spell resource.
const SpellStats = `# spell
base string name("Name")
base integer level("Level")
base resource<school> school("School")
base bool ritual("Ritual")
base photo icon("Icon")
base string[] tags("Tags")
`

// FireballInstance is a valid spell instance.
const FireballInstance = `{
  "resource_id": "spell",
  "stats": {
    "id": "fireball",
    "updated_at": "2026-01-01T00:00:00Z",
    "name": {"value": "Fireball"},
    "level": {"value": 3},
    "school": {"value": {"resource_id": "school", "stats": {"name": {"value": "Evocation"}}}},
    "ritual": {"value": false},
    "icon": {"value": {"url": "https://example.com/fireball.png"}},
    "tags": {"value": ["fire", "area"]}
  }
}
`

// ValidSystem returns a well-formed system named name under systems/.
func ValidSystem(name string) Files {
	prefix := "systems/" + name + "/"
	return Files{
		prefix + "system.rpg.json": `{
  "id": "` + name + `",
  "name": "Fifth Edition",
  "version": "1.0.0",
  "description": "Community conversion",
  "authors": ["Ada"],
  "resources": ["spell", "school", "class"]
}
`,
		prefix + "resources/spell/resource.json": `{"name": "Spell", "kind": "ability"}`,
		prefix + "resources/spell/stats.rpgs":    SpellStats,
		prefix + "resources/school/stats.rpgs":   "base string name(\"Name\")\n",
		prefix + "resources/class.json":          `{"id": "class", "name": "Class", "kind": "mechanic", "tags": ["core"]}`,
		prefix + "resource_instances/spells/fireball.json": FireballInstance,
	}
}

// Definition returns a system.rpg.json path and body for name.
func Definition(name, body string) Files {
	return Files{"systems/" + name + "/system.rpg.json": body}
}
