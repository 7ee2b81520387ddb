package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
)

// assertions lists the keywords the validator enforces. Any other keyword
// that is not an annotation is rejected when a schema is built.
var assertions = map[string]bool{
	"type":                 true,
	"required":             true,
	"properties":           true,
	"additionalProperties": true,
	"items":                true,
	"enum":                 true,
	"const":                true,
	"allOf":                true,
	"minLength":            true,
	"maxLength":            true,
	"pattern":              true,
	"minimum":              true,
	"maximum":              true,
	"exclusiveMinimum":     true,
	"exclusiveMaximum":     true,
	"minItems":             true,
	"maxItems":             true,
	"uniqueItems":          true,
	"format":               true,
	"not":                  true,
}

var annotations = map[string]bool{
	"$schema":     true,
	"$id":         true,
	"$comment":    true,
	"title":       true,
	"description": true,
	"default":     true,
	"examples":    true,
	"deprecated":  true,
	"readOnly":    true,
	"writeOnly":   true,
}

// supportedFormats lists the "format" values that are checked.
var supportedFormats = map[string]bool{"semver": true}

// checkKeywords rejects schemas using keywords the validator does not
// enforce.
func checkKeywords(s *jsonschema.Schema) error {
	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSchema, "encode schema", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperrors.Wrap(apperrors.CodeSchema, "decode schema", err)
	}
	return checkNode(raw, "#")
}

func checkNode(node any, at string) error {
	obj, ok := node.(map[string]any)
	if !ok {
		// true and false schemas.
		return nil
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		loc := at + "/" + key
		switch {
		case annotations[key]:
			continue
		case !assertions[key]:
			return unsupported(key, at)
		}

		switch key {
		case "not":
			if len(obj) != 1 || !isEmptySchema(value) {
				return unsupported(key, at)
			}
		case "format":
			name, _ := value.(string)
			if !supportedFormats[name] {
				return apperrors.WithMetadata(apperrors.CodeSchema,
					fmt.Sprintf("unsupported format %q at %s", name, at),
					map[string]string{"format": name, "location": at})
			}
		case "properties":
			props, _ := value.(map[string]any)
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := checkNode(props[name], loc+"/"+name); err != nil {
					return err
				}
			}
		case "items", "additionalProperties":
			if err := checkNode(value, loc); err != nil {
				return err
			}
		case "allOf":
			subs, _ := value.([]any)
			for idx, sub := range subs {
				if err := checkNode(sub, fmt.Sprintf("%s/%d", loc, idx)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isEmptySchema(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func unsupported(keyword, at string) error {
	return apperrors.WithMetadata(apperrors.CodeSchema,
		fmt.Sprintf("unsupported keyword %s at %s", keyword, at),
		map[string]string{"keyword": keyword, "location": at})
}
