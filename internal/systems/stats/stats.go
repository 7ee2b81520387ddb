// Package stats parses stats.rpgs stat declarations.
//
// Only lines of the form
//
//	base <type> <name>(...)
//
// declare stats; every other line is ignored. Types are string, bool,
// integer, photo, resource and resource<T>, each optionally suffixed with []
// for arrays. Any other type token parses as KindUnknown, which accepts any
// value.
package stats

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

var baseStatPattern = regexp.MustCompile(`^base\s+([^\s]+)\s+([A-Za-z0-9_]+)\s*\(`)

// Kind is the value kind of a stat.
type Kind string

const (
	KindString   Kind = "string"
	KindBool     Kind = "bool"
	KindInteger  Kind = "integer"
	KindPhoto    Kind = "photo"
	KindResource Kind = "resource"
	KindUnknown  Kind = "unknown"
)

// Type is a parsed stat type.
type Type struct {
	Kind  Kind
	Array bool
	// ResourceType names the resource a resource<T> stat must hold.
	ResourceType string
}

// Element returns the type of a single array element.
func (t Type) Element() Type {
	return Type{Kind: t.Kind, ResourceType: t.ResourceType}
}

// String renders the type back in declaration syntax.
func (t Type) String() string {
	core := string(t.Kind)
	if t.Kind == KindResource && t.ResourceType != "" {
		core = fmt.Sprintf("resource<%s>", t.ResourceType)
	}
	if t.Array {
		return core + "[]"
	}
	return core
}

// ParseType parses a type token such as "resource<spell>[]".
func ParseType(token string) Type {
	isArray := strings.HasSuffix(token, "[]")
	core := strings.TrimSuffix(token, "[]")
	switch {
	case strings.HasPrefix(core, "resource<") && strings.HasSuffix(core, ">"):
		return Type{Kind: KindResource, Array: isArray, ResourceType: core[len("resource<") : len(core)-1]}
	case core == "resource":
		return Type{Kind: KindResource, Array: isArray}
	case core == "string", core == "bool", core == "integer", core == "photo":
		return Type{Kind: Kind(core), Array: isArray}
	default:
		return Type{Kind: KindUnknown, Array: isArray}
	}
}

// Declaration is one declared stat.
type Declaration struct {
	Name string
	Type Type
	Line int
}

// Parse reads declarations from stats.rpgs content in file order.
func Parse(data []byte) ([]Declaration, error) {
	var decls []Declaration
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(text, "base ") {
			continue
		}
		match := baseStatPattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		decls = append(decls, Declaration{Name: match[2], Type: ParseType(match[1]), Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return decls, nil
}

// Schema maps stat names of one resource to their types.
type Schema map[string]Type

// NewSchema builds a schema from declarations; a later declaration of the
// same name replaces an earlier one.
func NewSchema(decls []Declaration) Schema {
	schema := make(Schema, len(decls))
	for _, decl := range decls {
		schema[decl.Name] = decl.Type
	}
	return schema
}

// Set maps resource identifiers to their stat schemas.
type Set map[string]Schema
