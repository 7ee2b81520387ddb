package schema

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/jsonfile"
)

func decode(t *testing.T, text string) any {
	t.Helper()
	doc, err := jsonfile.Decode([]byte(text))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func systemValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	v, err := SystemDefinition(opts...)
	if err != nil {
		t.Fatalf("system schema: %v", err)
	}
	return v
}

func findRule(violations []Violation, rule Rule) (Violation, bool) {
	for _, v := range violations {
		if v.Rule == rule {
			return v, true
		}
	}
	return Violation{}, false
}

func TestSystemDefinitionAcceptsWellFormedDocument(t *testing.T) {
	doc := decode(t, `{"id":"dnd5e","name":"Fifth Edition","version":"1.2.0","authors":["Ada"],"resources":["spell"]}`)
	if got := systemValidator(t).Validate(doc); len(got) != 0 {
		t.Fatalf("expected no violations, got %+v", got)
	}
}

func TestSystemDefinitionNamesMissingRequiredField(t *testing.T) {
	doc := decode(t, `{"id":"dnd5e","version":"1.0.0","resources":[]}`)
	got := systemValidator(t).Validate(doc)
	if len(got) != 1 {
		t.Fatalf("expected one violation, got %+v", got)
	}
	if got[0].Rule != RuleRequired || got[0].Field != "name" {
		t.Fatalf("violation = %+v, want required name", got[0])
	}
	if got[0].Severity != issue.SeverityError {
		t.Fatalf("severity = %s, want error", got[0].Severity)
	}
	if len(got[0].Path) != 1 || got[0].Path[0] != "name" {
		t.Fatalf("path = %v, want [name]", got[0].Path)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	doc := decode(t, `{"id":"-bad","name":"","version":"one","resources":"spell"}`)
	got := systemValidator(t).Validate(doc)
	for _, rule := range []Rule{RulePattern, RuleMinLength, RuleFormat, RuleType} {
		if _, ok := findRule(got, rule); !ok {
			t.Fatalf("expected %s violation in %+v", rule, got)
		}
	}
	if v, _ := findRule(got, RuleType); v.Field != "resources" {
		t.Fatalf("type violation field = %q, want resources", v.Field)
	}
}

func TestValidateRejectsNonObjectRoot(t *testing.T) {
	got := systemValidator(t).Validate(decode(t, `[1, 2]`))
	if len(got) != 1 || got[0].Rule != RuleType {
		t.Fatalf("expected a single type violation, got %+v", got)
	}
	if got[0].Message != "expected object, got array" {
		t.Fatalf("message = %q", got[0].Message)
	}
}

func TestValidateItemPaths(t *testing.T) {
	doc := decode(t, `{"id":"x","name":"X","version":"1.0.0","resources":["spell", 7]}`)
	got := systemValidator(t).Validate(doc)
	if len(got) != 1 {
		t.Fatalf("expected one violation, got %+v", got)
	}
	if got[0].Path[0] != "resources" || got[0].Path[1] != "[1]" {
		t.Fatalf("path = %v, want [resources [1]]", got[0].Path)
	}
}

func TestUnknownFieldPolicies(t *testing.T) {
	doc := decode(t, `{"id":"x","name":"X","version":"1.0.0","resources":[],"extra":true}`)

	cases := []struct {
		policy   Policy
		count    int
		severity issue.Severity
	}{
		{UnknownFieldsAllow, 0, ""},
		{UnknownFieldsWarn, 1, issue.SeverityWarning},
		{UnknownFieldsReject, 1, issue.SeverityError},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			got := systemValidator(t, WithUnknownFields(tc.policy)).Validate(doc)
			if len(got) != tc.count {
				t.Fatalf("expected %d violations, got %+v", tc.count, got)
			}
			if tc.count == 0 {
				return
			}
			if got[0].Rule != RuleUnknownField || got[0].Field != "extra" || got[0].Severity != tc.severity {
				t.Fatalf("violation = %+v", got[0])
			}
		})
	}
}

func TestSemverFormat(t *testing.T) {
	v := systemValidator(t)
	for _, version := range []string{"1.0.0", "v2.1.3", "1.0.0-beta.1"} {
		doc := decode(t, `{"id":"x","name":"X","version":"`+version+`","resources":[]}`)
		if got := v.Validate(doc); len(got) != 0 {
			t.Fatalf("version %q: unexpected violations %+v", version, got)
		}
	}
	for _, version := range []string{"1", "one", "1.0.0.0", " 1.0.0 ", "1.0.0 "} {
		doc := decode(t, `{"id":"x","name":"X","version":"`+version+`","resources":[]}`)
		if _, ok := findRule(v.Validate(doc), RuleFormat); !ok {
			t.Fatalf("version %q: expected format violation", version)
		}
	}
}

func TestFalseAdditionalPropertiesIsAlwaysAnError(t *testing.T) {
	v, err := Parse([]byte(`{
		"type": "object",
		"properties": {"a": {"type": "integer"}},
		"additionalProperties": false
	}`), WithUnknownFields(UnknownFieldsAllow))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := v.Validate(decode(t, `{"a": 1.5, "b": 1}`))
	if len(got) != 2 {
		t.Fatalf("expected two violations, got %+v", got)
	}
	if got[0].Rule != RuleType || got[0].Field != "a" {
		t.Fatalf("first violation = %+v", got[0])
	}
	if got[1].Rule != RuleUnknownField || got[1].Severity != issue.SeverityError {
		t.Fatalf("second violation = %+v", got[1])
	}
}

func TestConstraintKeywords(t *testing.T) {
	v, err := Parse([]byte(`{
		"type": "object",
		"properties": {
			"level": {"type": "integer", "minimum": 0, "maximum": 9},
			"school": {"enum": ["evocation", "abjuration"]},
			"tags": {"type": "array", "minItems": 1, "uniqueItems": true}
		}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := v.Validate(decode(t, `{"level": 12, "school": "necromancy", "tags": ["a", "a"]}`))
	for _, rule := range []Rule{RuleMaximum, RuleEnum, RuleUniqueItems} {
		if _, ok := findRule(got, rule); !ok {
			t.Fatalf("expected %s violation in %+v", rule, got)
		}
	}
	got = v.Validate(decode(t, `{"level": -1, "tags": []}`))
	for _, rule := range []Rule{RuleMinimum, RuleMinItems} {
		if _, ok := findRule(got, rule); !ok {
			t.Fatalf("expected %s violation in %+v", rule, got)
		}
	}
}

func TestParseRejectsInvalidSchema(t *testing.T) {
	if _, err := Parse([]byte(`{"type": `)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Parse([]byte(`{"type": "string", "pattern": "("}`)); err == nil {
		t.Fatal("expected pattern error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	v, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("default schema: %v", err)
	}
	if v == nil {
		t.Fatal("expected validator")
	}

	path := filepath.Join(t.TempDir(), "custom.schema.json")
	if err := os.WriteFile(path, []byte(`{"type":"object","required":["title"]}`), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	v, err = LoadOrDefault(path)
	if err != nil {
		t.Fatalf("load custom: %v", err)
	}
	got := v.Validate(decode(t, `{}`))
	if len(got) != 1 || got[0].Field != "title" {
		t.Fatalf("violations = %+v", got)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing schema file")
	}
}

func TestPublishedSchema(t *testing.T) {
	for _, name := range []string{"system", "resource"} {
		data, err := PublishedSchema(name)
		if err != nil || len(data) == 0 {
			t.Fatalf("published %s: %v", name, err)
		}
	}
	if _, err := PublishedSchema("nope"); err == nil {
		t.Fatal("expected unknown schema error")
	}
}

func TestResourceDocumentSchema(t *testing.T) {
	v, err := ResourceDocument()
	if err != nil {
		t.Fatalf("resource schema: %v", err)
	}
	if got := v.Validate(decode(t, `{"id":"spell","name":"Spell","tags":["a"]}`)); len(got) != 0 {
		t.Fatalf("unexpected violations %+v", got)
	}
	got := v.Validate(decode(t, `{"tags":["a","a"]}`))
	if _, ok := findRule(got, RuleRequired); !ok {
		t.Fatalf("expected required violation in %+v", got)
	}
	if _, ok := findRule(got, RuleUniqueItems); !ok {
		t.Fatalf("expected unique violation in %+v", got)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": UnknownFieldsWarn, "ALLOW": UnknownFieldsAllow, "reject": UnknownFieldsReject} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("maybe"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRejectsUnsupportedKeywords(t *testing.T) {
	for _, tc := range []struct {
		name   string
		schema string
	}{
		{"ref", `{"type":"object","properties":{"version":{"$ref":"#/$defs/v"}},"$defs":{"v":{"type":"string"}}}`},
		{"defs", `{"$defs":{"v":{"type":"string"}}}`},
		{"any of", `{"anyOf":[{"type":"string"},{"type":"integer"}]}`},
		{"one of", `{"oneOf":[{"type":"string"}]}`},
		{"not schema", `{"not":{"type":"string"}}`},
		{"multiple of", `{"type":"number","multipleOf":2}`},
		{"min properties", `{"type":"object","minProperties":1}`},
		{"dependent required", `{"dependentRequired":{"a":["b"]}}`},
		{"if then else", `{"if":{"type":"string"},"then":{"minLength":1}}`},
		{"prefix items", `{"prefixItems":[{"type":"string"}]}`},
		{"contains", `{"contains":{"type":"string"}}`},
		{"nested in items", `{"type":"array","items":{"contains":{"type":"string"}}}`},
		{"nested in all of", `{"allOf":[{"oneOf":[{"type":"string"}]}]}`},
		{"unchecked format", `{"type":"string","format":"uri"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.schema))
			if err == nil {
				t.Fatal("expected unsupported keyword error")
			}
			if !apperrors.HasCode(err, apperrors.CodeSchema) {
				t.Fatalf("error code = %v, want schema: %v", apperrors.GetCode(err), err)
			}
		})
	}
}

func TestParseAcceptsAnnotationsAndFalseSchemas(t *testing.T) {
	schema := `{"$schema":"https://json-schema.org/draft/2020-12/schema","title":"t","description":"d",` +
		`"type":"object","properties":{"a":{"type":"string","default":"x","examples":["y"]}},"additionalProperties":false}`
	if _, err := Parse([]byte(schema)); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestConstAllOfAndExclusiveBounds(t *testing.T) {
	v, err := Parse([]byte(`{
		"type": "object",
		"properties": {
			"kind": {"const": "spell"},
			"level": {"allOf": [{"type": "integer"}, {"exclusiveMinimum": 0, "exclusiveMaximum": 10}]}
		}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := v.Validate(decode(t, `{"kind":"spell","level":3}`)); len(got) != 0 {
		t.Fatalf("unexpected violations %+v", got)
	}

	got := v.Validate(decode(t, `{"kind":"feat","level":0}`))
	if c, ok := findRule(got, RuleConst); !ok || c.Field != "kind" {
		t.Fatalf("expected const violation on kind in %+v", got)
	}
	if m, ok := findRule(got, RuleMinimum); !ok || m.Field != "level" {
		t.Fatalf("expected exclusive minimum violation on level in %+v", got)
	}

	got = v.Validate(decode(t, `{"level":10.5}`))
	if _, ok := findRule(got, RuleType); !ok {
		t.Fatalf("expected integer type violation from allOf in %+v", got)
	}
	got = v.Validate(decode(t, `{"level":10}`))
	if _, ok := findRule(got, RuleMaximum); !ok {
		t.Fatalf("expected exclusive maximum violation in %+v", got)
	}
}
