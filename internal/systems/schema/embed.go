package schema

import "embed"

//go:embed schemas/*.json
var publishedFS embed.FS

const (
	systemSchemaFile   = "schemas/system.schema.json"
	resourceSchemaFile = "schemas/resource.schema.json"
)

// SystemDefinition returns a validator for system.rpg.json using the
// published schema.
func SystemDefinition(opts ...Option) (*Validator, error) {
	return loadPublished(systemSchemaFile, opts...)
}

// ResourceDocument returns a validator for resource documents using the
// published schema.
func ResourceDocument(opts ...Option) (*Validator, error) {
	return loadPublished(resourceSchemaFile, opts...)
}

// PublishedSchema returns the raw JSON of a published schema by name
// ("system" or "resource").
func PublishedSchema(name string) ([]byte, error) {
	switch name {
	case "system":
		return publishedFS.ReadFile(systemSchemaFile)
	case "resource":
		return publishedFS.ReadFile(resourceSchemaFile)
	default:
		return nil, errUnknownSchema(name)
	}
}

func loadPublished(file string, opts ...Option) (*Validator, error) {
	data, err := publishedFS.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts...)
}
