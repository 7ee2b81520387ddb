// Package instances checks resource instance documents against the stat
// schemas declared by their system.
package instances

import (
	"fmt"
	"sort"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/jsonfile"
	"github.com/louisbranch/rpg-systems/internal/systems/loader"
	"github.com/louisbranch/rpg-systems/internal/systems/stats"
)

// Meta stats are written by the companion application and carry no
// declaration in stats.rpgs.
var metaStats = map[string]bool{
	"id":         true,
	"updated_at": true,
}

// Validator checks instances against a fixed set of stat schemas.
type Validator struct {
	schemas stats.Set
}

// New returns a validator for the given resource stat schemas.
func New(schemas stats.Set) *Validator {
	if schemas == nil {
		schemas = stats.Set{}
	}
	return &Validator{schemas: schemas}
}

// Validate returns every problem found in one decoded instance document.
// Issues carry a location but no file; callers stamp it.
func (v *Validator) Validate(doc any) []issue.Issue {
	var out []issue.Issue
	v.resource(doc, nil, &out)
	return out
}

// ValidateFile loads and validates one instance file. A file that cannot be
// read or decoded yields a single issue.
func (v *Validator) ValidateFile(path string) []issue.Issue {
	_, doc, err := jsonfile.Load(path)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeParse) {
			return []issue.Issue{issue.Errorf(issue.KindParse, nil, "failed to parse JSON: %v", err)}
		}
		return []issue.Issue{issue.Errorf(issue.KindIO, nil, "failed to read: %v", err)}
	}
	return v.Validate(doc)
}

// ValidateSystem validates every instance file of sys with the stats its
// resources declare.
func ValidateSystem(sys *loader.System) []issue.Issue {
	if sys == nil || len(sys.InstanceFiles) == 0 {
		return nil
	}
	v := New(sys.StatSchemas())
	var out []issue.Issue
	for _, path := range sys.InstanceFiles {
		out = append(out, issue.InFile(v.ValidateFile(path), sys.Name, sys.Rel(path))...)
	}
	return out
}

func (v *Validator) resource(value any, path []string, out *[]issue.Issue) {
	obj, ok := value.(map[string]any)
	if !ok {
		add(out, path, "expected object for resource, got %s", jsonfile.TypeName(value))
		return
	}

	rid, _ := obj["resource_id"].(string)
	if rid == "" {
		add(out, path, "missing or invalid resource_id")
		return
	}

	schema, ok := v.schemas[rid]
	if !ok {
		add(out, issue.Child(path, fmt.Sprintf("resource_id='%s'", rid)), "unknown resource_id (no stats.rpgs found)")
		return
	}

	label := Label(obj)
	values, ok := obj["stats"].(map[string]any)
	if !ok {
		add(out, issue.Child(path, label), "missing or invalid stats object, got %s", jsonfile.TypeName(obj["stats"]))
		return
	}

	current := issue.Child(path, label)
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if metaStats[name] {
			continue
		}
		typ, ok := schema[name]
		if !ok {
			add(out, issue.Child(current, "stats."+name), "unknown stat for this resource")
			continue
		}
		wrapper, ok := values[name].(map[string]any)
		if !ok {
			add(out, issue.Child(current, "stats."+name), "expected an object with a 'value' field")
			continue
		}
		stat, ok := wrapper["value"]
		if !ok {
			add(out, issue.Child(current, "stats."+name), "expected an object with a 'value' field")
			continue
		}
		v.value(stat, typ, issue.Child(current, "stats."+name+".value"), out)
	}
}

func (v *Validator) value(value any, typ stats.Type, path []string, out *[]issue.Issue) {
	if value == nil {
		return
	}

	if typ.Array {
		items, ok := value.([]any)
		if !ok {
			add(out, path, "expected array, got %s", jsonfile.TypeName(value))
			return
		}
		elem := typ.Element()
		for idx, item := range items {
			if item == nil && elem.Kind == stats.KindResource {
				continue
			}
			v.value(item, elem, issue.Child(path, fmt.Sprintf("[%d]", idx)), out)
		}
		return
	}

	switch typ.Kind {
	case stats.KindString:
		if _, ok := value.(string); !ok {
			add(out, path, "expected string, got %s", jsonfile.TypeName(value))
		}
	case stats.KindBool:
		if _, ok := value.(bool); !ok {
			add(out, path, "expected bool, got %s", jsonfile.TypeName(value))
		}
	case stats.KindInteger:
		if !jsonfile.IsNumber(value) {
			add(out, path, "expected number, got %s", jsonfile.TypeName(value))
		}
	case stats.KindPhoto:
		obj, ok := value.(map[string]any)
		if !ok {
			add(out, path, "expected photo object, got %s", jsonfile.TypeName(value))
			return
		}
		if url, ok := obj["url"]; ok {
			if _, isString := url.(string); !isString {
				add(out, issue.Child(path, "url"), "expected url string, got %s", jsonfile.TypeName(url))
			}
		}
	case stats.KindResource:
		obj, ok := value.(map[string]any)
		if !ok {
			add(out, path, "expected resource object, got %s", jsonfile.TypeName(value))
			return
		}
		if typ.ResourceType != "" {
			actual, _ := obj["resource_id"].(string)
			if actual != typ.ResourceType {
				add(out, path, "expected resource_id '%s', got '%s'", typ.ResourceType, actual)
			}
		}
		v.resource(obj, path, out)
	}
}

// Label renders the location label of a resource object:
// resource_id='spell' (id='fireball').
func Label(obj map[string]any) string {
	text := "resource_id<?>"
	if rid, ok := obj["resource_id"].(string); ok {
		text = fmt.Sprintf("resource_id='%s'", rid)
	}
	if values, ok := obj["stats"].(map[string]any); ok {
		if id, ok := values["id"].(string); ok && id != "" {
			return fmt.Sprintf("%s (id='%s')", text, id)
		}
	}
	return text
}

func add(out *[]issue.Issue, path []string, format string, args ...any) {
	*out = append(*out, issue.Errorf(issue.KindInstance, path, format, args...))
}
