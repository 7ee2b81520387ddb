package stats

import (
	"reflect"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		token string
		want  Type
	}{
		{"string", Type{Kind: KindString}},
		{"bool[]", Type{Kind: KindBool, Array: true}},
		{"integer", Type{Kind: KindInteger}},
		{"photo", Type{Kind: KindPhoto}},
		{"resource", Type{Kind: KindResource}},
		{"resource<spell>", Type{Kind: KindResource, ResourceType: "spell"}},
		{"resource<spell>[]", Type{Kind: KindResource, Array: true, ResourceType: "spell"}},
		{"dice", Type{Kind: KindUnknown}},
		{"dice[]", Type{Kind: KindUnknown, Array: true}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := ParseType(tt.token)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
			if tt.want.Kind != KindUnknown && got.String() != tt.token {
				t.Fatalf("expected round trip %q, got %q", tt.token, got.String())
			}
		})
	}
}

func TestParse(t *testing.T) {
	content := []byte(`# spell stats
base string name("Name")
  base integer level ( "Level" )
base resource<school> school("School")
base resource<component>[] components("Components")
derived integer dc("DC")
base broken
base string bad-name("x")
base string name("Renamed")
`)
	decls, err := Parse(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var names []string
	for _, decl := range decls {
		names = append(names, decl.Name)
	}
	want := []string{"name", "level", "school", "components", "name"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	if decls[1].Line != 3 {
		t.Fatalf("expected level on line 3, got %d", decls[1].Line)
	}

	schema := NewSchema(decls)
	if len(schema) != 4 {
		t.Fatalf("expected 4 stats, got %d", len(schema))
	}
	if schema["components"].ResourceType != "component" || !schema["components"].Array {
		t.Fatalf("unexpected components type %+v", schema["components"])
	}
}

func TestElement(t *testing.T) {
	typ := ParseType("resource<spell>[]")
	elem := typ.Element()
	if elem.Array || elem.Kind != KindResource || elem.ResourceType != "spell" {
		t.Fatalf("unexpected element type %+v", elem)
	}
}
