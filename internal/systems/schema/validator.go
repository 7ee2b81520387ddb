// Package schema validates parsed JSON documents against JSON Schema
// definitions.
//
// Schemas are decoded and resolved with github.com/google/jsonschema-go, but
// validation walks the schema here so that one pass reports every violation
// with the path and field it concerns instead of stopping at the first.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/jsonfile"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
)

// Rule names the schema keyword a violation failed.
type Rule string

const (
	RuleRequired     Rule = "required"
	RuleType         Rule = "type"
	RuleUnknownField Rule = "unknown_field"
	RuleNotAllowed   Rule = "not_allowed"
	RuleEnum         Rule = "enum"
	RuleMinLength    Rule = "min_length"
	RuleMaxLength    Rule = "max_length"
	RulePattern      Rule = "pattern"
	RuleMinimum      Rule = "minimum"
	RuleMaximum      Rule = "maximum"
	RuleMinItems     Rule = "min_items"
	RuleMaxItems     Rule = "max_items"
	RuleUniqueItems  Rule = "unique_items"
	RuleFormat       Rule = "format"
	RuleConst        Rule = "const"
)

// Policy decides how properties missing from a schema's "properties" are
// treated when the schema does not set "additionalProperties".
type Policy string

const (
	UnknownFieldsAllow  Policy = "allow"
	UnknownFieldsWarn   Policy = "warn"
	UnknownFieldsReject Policy = "reject"
)

// ParsePolicy parses an unknown-field policy name.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case UnknownFieldsAllow:
		return UnknownFieldsAllow, nil
	case UnknownFieldsWarn, "":
		return UnknownFieldsWarn, nil
	case UnknownFieldsReject:
		return UnknownFieldsReject, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown field policy must be allow, warn or reject", map[string]string{"policy": value})
	}
}

// Violation is one way a document fails its schema.
type Violation struct {
	Path     []string
	Field    string
	Rule     Rule
	Severity issue.Severity
	Message  string
}

// Issue converts the violation into a reportable schema issue.
func (v Violation) Issue() issue.Issue {
	return issue.Issue{
		Severity: v.Severity,
		Kind:     issue.KindSchema,
		Path:     v.Path,
		Field:    v.Field,
		Rule:     string(v.Rule),
		Message:  v.Message,
	}
}

// Issues converts violations into issues.
func Issues(violations []Violation) []issue.Issue {
	out := make([]issue.Issue, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Issue())
	}
	return out
}

// Option configures a Validator.
type Option func(*Validator)

// WithUnknownFields sets the unknown-field policy. The default is warn.
func WithUnknownFields(policy Policy) Option {
	return func(v *Validator) {
		v.policy = policy
	}
}

// Validator checks documents against one schema.
type Validator struct {
	schema   *jsonschema.Schema
	policy   Policy
	patterns map[string]*regexp.Regexp
}

// New resolves s and returns a validator for it. Schemas that fail to
// resolve, or that contain invalid patterns, are rejected.
func New(s *jsonschema.Schema, opts ...Option) (*Validator, error) {
	if s == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "schema is required")
	}
	if _, err := s.Resolve(nil); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSchema, "resolve schema", err)
	}
	if err := checkKeywords(s); err != nil {
		return nil, err
	}
	v := &Validator{
		schema:   s,
		policy:   UnknownFieldsWarn,
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if err := v.compilePatterns(s, 0); err != nil {
		return nil, err
	}
	return v, nil
}

// Parse decodes a JSON Schema document and returns a validator for it.
func Parse(data []byte, opts ...Option) (*Validator, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParse, "decode schema", err)
	}
	return New(&s, opts...)
}

// Load reads a JSON Schema file and returns a validator for it.
func Load(path string, opts ...Option) (*Validator, error) {
	file, err := jsonfile.Read(path)
	if err != nil {
		return nil, err
	}
	return Parse(file.Text, opts...)
}

// Validate checks doc and returns every violation found; an empty result
// means the document conforms.
func (v *Validator) Validate(doc any) []Violation {
	var out []Violation
	v.walk(v.schema, doc, nil, "", &out)
	return out
}

const maxSchemaDepth = 64

func (v *Validator) compilePatterns(s *jsonschema.Schema, depth int) error {
	if s == nil || depth > maxSchemaDepth {
		return nil
	}
	if s.Pattern != "" {
		if _, ok := v.patterns[s.Pattern]; !ok {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return apperrors.WrapWithMetadata(apperrors.CodeSchema, "compile pattern", map[string]string{"pattern": s.Pattern}, err)
			}
			v.patterns[s.Pattern] = re
		}
	}
	for _, child := range s.Properties {
		if err := v.compilePatterns(child, depth+1); err != nil {
			return err
		}
	}
	for _, child := range s.AllOf {
		if err := v.compilePatterns(child, depth+1); err != nil {
			return err
		}
	}
	if err := v.compilePatterns(s.Items, depth+1); err != nil {
		return err
	}
	return v.compilePatterns(s.AdditionalProperties, depth+1)
}

func (v *Validator) walk(s *jsonschema.Schema, value any, path []string, field string, out *[]Violation) {
	if s == nil {
		return
	}
	if isFalseSchema(s) {
		v.add(out, path, field, RuleNotAllowed, issue.SeverityError, "value is not allowed here")
		return
	}

	if types := schemaTypes(s); len(types) > 0 && !matchesType(value, types) {
		v.add(out, path, field, RuleType, issue.SeverityError,
			fmt.Sprintf("expected %s, got %s", strings.Join(types, " or "), jsonfile.TypeName(value)))
		return
	}

	if len(s.Enum) > 0 && !inEnum(value, s.Enum) {
		v.add(out, path, field, RuleEnum, issue.SeverityError,
			fmt.Sprintf("value %s is not one of %s", render(value), render(s.Enum)))
	}
	if s.Const != nil && render(value) != render(*s.Const) {
		v.add(out, path, field, RuleConst, issue.SeverityError,
			fmt.Sprintf("value %s must equal %s", render(value), render(*s.Const)))
	}
	for _, sub := range s.AllOf {
		v.walk(sub, value, path, field, out)
	}

	switch typed := value.(type) {
	case map[string]any:
		v.walkObject(s, typed, path, out)
	case []any:
		v.walkArray(s, typed, path, field, out)
	case string:
		v.checkString(s, typed, path, field, out)
	default:
		if number, ok := jsonfile.Float(value); ok {
			v.checkNumber(s, number, path, field, out)
		}
	}
}

func (v *Validator) walkObject(s *jsonschema.Schema, obj map[string]any, path []string, out *[]Violation) {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			v.add(out, issue.Child(path, name), name, RuleRequired, issue.SeverityError,
				fmt.Sprintf("missing required field %q", name))
		}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		childPath := issue.Child(path, key)
		if child, ok := s.Properties[key]; ok {
			v.walk(child, obj[key], childPath, key, out)
			continue
		}
		switch {
		case s.AdditionalProperties == nil:
			v.unknownField(childPath, key, out)
		case isFalseSchema(s.AdditionalProperties):
			v.add(out, childPath, key, RuleUnknownField, issue.SeverityError,
				fmt.Sprintf("unknown field %q", key))
		default:
			v.walk(s.AdditionalProperties, obj[key], childPath, key, out)
		}
	}
}

func (v *Validator) unknownField(path []string, key string, out *[]Violation) {
	switch v.policy {
	case UnknownFieldsAllow:
	case UnknownFieldsReject:
		v.add(out, path, key, RuleUnknownField, issue.SeverityError, fmt.Sprintf("unknown field %q", key))
	default:
		v.add(out, path, key, RuleUnknownField, issue.SeverityWarning, fmt.Sprintf("unknown field %q", key))
	}
}

func (v *Validator) walkArray(s *jsonschema.Schema, items []any, path []string, field string, out *[]Violation) {
	if s.MinItems != nil && len(items) < *s.MinItems {
		v.add(out, path, field, RuleMinItems, issue.SeverityError,
			fmt.Sprintf("expected at least %d item(s), got %d", *s.MinItems, len(items)))
	}
	if s.MaxItems != nil && len(items) > *s.MaxItems {
		v.add(out, path, field, RuleMaxItems, issue.SeverityError,
			fmt.Sprintf("expected at most %d item(s), got %d", *s.MaxItems, len(items)))
	}
	if s.UniqueItems {
		seen := make(map[string]int, len(items))
		for idx, item := range items {
			key := render(item)
			if first, ok := seen[key]; ok {
				v.add(out, issue.Child(path, fmt.Sprintf("[%d]", idx)), field, RuleUniqueItems, issue.SeverityError,
					fmt.Sprintf("duplicate of item [%d]", first))
				continue
			}
			seen[key] = idx
		}
	}
	if s.Items != nil {
		for idx, item := range items {
			v.walk(s.Items, item, issue.Child(path, fmt.Sprintf("[%d]", idx)), field, out)
		}
	}
}

func (v *Validator) checkString(s *jsonschema.Schema, value string, path []string, field string, out *[]Violation) {
	length := utf8.RuneCountInString(value)
	if s.MinLength != nil && length < *s.MinLength {
		if *s.MinLength == 1 {
			v.add(out, path, field, RuleMinLength, issue.SeverityError, "must not be empty")
		} else {
			v.add(out, path, field, RuleMinLength, issue.SeverityError,
				fmt.Sprintf("must be at least %d character(s)", *s.MinLength))
		}
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		v.add(out, path, field, RuleMaxLength, issue.SeverityError,
			fmt.Sprintf("must be at most %d character(s)", *s.MaxLength))
	}
	if s.Pattern != "" {
		if re := v.patterns[s.Pattern]; re != nil && !re.MatchString(value) {
			v.add(out, path, field, RulePattern, issue.SeverityError,
				fmt.Sprintf("value %q does not match pattern %s", value, s.Pattern))
		}
	}
	if s.Format == "semver" && system.CanonicalVersion(value) == "" {
		v.add(out, path, field, RuleFormat, issue.SeverityError,
			fmt.Sprintf("value %q is not a semantic version", value))
	}
}

func (v *Validator) checkNumber(s *jsonschema.Schema, value float64, path []string, field string, out *[]Violation) {
	if s.Minimum != nil && value < *s.Minimum {
		v.add(out, path, field, RuleMinimum, issue.SeverityError,
			fmt.Sprintf("must be >= %v", *s.Minimum))
	}
	if s.Maximum != nil && value > *s.Maximum {
		v.add(out, path, field, RuleMaximum, issue.SeverityError,
			fmt.Sprintf("must be <= %v", *s.Maximum))
	}
	if s.ExclusiveMinimum != nil && value <= *s.ExclusiveMinimum {
		v.add(out, path, field, RuleMinimum, issue.SeverityError,
			fmt.Sprintf("must be > %v", *s.ExclusiveMinimum))
	}
	if s.ExclusiveMaximum != nil && value >= *s.ExclusiveMaximum {
		v.add(out, path, field, RuleMaximum, issue.SeverityError,
			fmt.Sprintf("must be < %v", *s.ExclusiveMaximum))
	}
}

func (v *Validator) add(out *[]Violation, path []string, field string, rule Rule, severity issue.Severity, message string) {
	*out = append(*out, Violation{
		Path:     path,
		Field:    field,
		Rule:     rule,
		Severity: severity,
		Message:  message,
	})
}

func schemaTypes(s *jsonschema.Schema) []string {
	if s.Type != "" {
		return []string{s.Type}
	}
	return s.Types
}

func matchesType(value any, types []string) bool {
	for _, typ := range types {
		switch typ {
		case "null":
			if value == nil {
				return true
			}
		case "boolean":
			if _, ok := value.(bool); ok {
				return true
			}
		case "string":
			if _, ok := value.(string); ok {
				return true
			}
		case "number":
			if jsonfile.IsNumber(value) {
				return true
			}
		case "integer":
			if jsonfile.IsInteger(value) {
				return true
			}
		case "array":
			if _, ok := value.([]any); ok {
				return true
			}
		case "object":
			if _, ok := value.(map[string]any); ok {
				return true
			}
		}
	}
	return false
}

// isFalseSchema reports whether s is the boolean schema false, which
// jsonschema-go decodes as {"not": {}}.
func isFalseSchema(s *jsonschema.Schema) bool {
	if s == nil || s.Not == nil {
		return false
	}
	data, err := json.Marshal(s)
	if err != nil {
		return false
	}
	switch string(data) {
	case "false", `{"not":true}`, `{"not":{}}`:
		return true
	default:
		return false
	}
}

func inEnum(value any, enum []any) bool {
	want := render(value)
	for _, candidate := range enum {
		if render(candidate) == want {
			return true
		}
	}
	return false
}

// render produces a canonical JSON rendering used for equality checks.
// encoding/json sorts map keys, and numbers are normalised through float64.
func render(value any) string {
	data, err := json.Marshal(normalize(value))
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			out[idx] = normalize(item)
		}
		return out
	default:
		if number, ok := jsonfile.Float(value); ok {
			return number
		}
		return value
	}
}

func errUnknownSchema(name string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "unknown published schema", map[string]string{"name": name})
}

// LoadOrDefault returns a validator for the schema file at path, or the
// published system schema when path is empty.
func LoadOrDefault(path string, opts ...Option) (*Validator, error) {
	if strings.TrimSpace(path) == "" {
		return SystemDefinition(opts...)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeIO, "stat schema", map[string]string{"path": path}, err)
	}
	return Load(path, opts...)
}
