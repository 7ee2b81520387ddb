package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/platform/timeouts"
	"github.com/louisbranch/rpg-systems/internal/systems/check"
	"github.com/louisbranch/rpg-systems/internal/systems/report"
	"github.com/louisbranch/rpg-systems/internal/systems/schema"
	"github.com/louisbranch/rpg-systems/internal/systems/storage"
	storagesqlite "github.com/louisbranch/rpg-systems/internal/systems/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ValidateSystemsInput is the validate_systems tool input.
type ValidateSystemsInput struct {
	Root          string `json:"root,omitempty" jsonschema:"content root containing systems/, defaults to the server root"`
	Strict        bool   `json:"strict,omitempty" jsonschema:"treat warnings as failures"`
	UnknownFields string `json:"unknown_fields,omitempty" jsonschema:"unknown field policy: allow, warn or reject"`
	SkipInstances bool   `json:"skip_instances,omitempty" jsonschema:"skip resource instance validation"`
}

// ValidateSystemsResult is the validate_systems tool output.
type ValidateSystemsResult struct {
	OK       bool                  `json:"ok" jsonschema:"true when the content passes"`
	Errors   int                   `json:"errors" jsonschema:"total error count"`
	Warnings int                   `json:"warnings" jsonschema:"total warning count"`
	Root     string                `json:"root" jsonschema:"validated content root"`
	Systems  []report.SystemReport `json:"systems" jsonschema:"per-system findings"`
}

// ListCatalogSystemsInput is the list_catalog_systems tool input.
type ListCatalogSystemsInput struct {
	DBPath string `json:"db_path,omitempty" jsonschema:"catalog database path, defaults to the server database"`
	ID     string `json:"id,omitempty" jsonschema:"limit the listing to one system id"`
}

// CatalogSystemVersion describes one stored system version.
type CatalogSystemVersion struct {
	ID           string `json:"id" jsonschema:"system id"`
	Version      string `json:"version" jsonschema:"semantic version"`
	Name         string `json:"name" jsonschema:"display name"`
	ContentHash  string `json:"content_hash" jsonschema:"hex SHA-256 of the imported content"`
	Latest       bool   `json:"latest" jsonschema:"true when no newer version exists"`
	SupersededBy string `json:"superseded_by,omitempty" jsonschema:"version that replaced this one"`
	ImportedAt   string `json:"imported_at" jsonschema:"RFC3339 import timestamp"`
}

// ListCatalogSystemsResult is the list_catalog_systems tool output.
type ListCatalogSystemsResult struct {
	Systems []CatalogSystemVersion `json:"systems" jsonschema:"stored system versions"`
}

// GetPublishedSchemaInput is the get_published_schema tool input.
type GetPublishedSchemaInput struct {
	Name string `json:"name" jsonschema:"published schema name: system or resource"`
}

// GetPublishedSchemaResult is the get_published_schema tool output.
type GetPublishedSchemaResult struct {
	Name   string         `json:"name" jsonschema:"published schema name"`
	Schema map[string]any `json:"schema" jsonschema:"the JSON Schema document"`
}

// ValidateSystemsTool defines the MCP tool schema for content validation.
func ValidateSystemsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_systems",
		Description: "Validates every system under a content root and returns the findings",
	}
}

// ListCatalogSystemsTool defines the MCP tool schema for catalog listing.
func ListCatalogSystemsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_catalog_systems",
		Description: "Lists imported system versions from the catalog database",
	}
}

// GetPublishedSchemaTool defines the MCP tool schema for published schemas.
func GetPublishedSchemaTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_published_schema",
		Description: "Returns the JSON Schema that system or resource documents are validated against",
	}
}

func registerValidationTools(server *mcp.Server, cfg Config) {
	mcp.AddTool(server, ValidateSystemsTool(), ValidateSystemsHandler(cfg.Root))
	mcp.AddTool(server, GetPublishedSchemaTool(), GetPublishedSchemaHandler())
}

func registerCatalogTools(server *mcp.Server, cfg Config) {
	mcp.AddTool(server, ListCatalogSystemsTool(), ListCatalogSystemsHandler(cfg.DBPath))
}

// ValidateSystemsHandler runs the content checks. defaultRoot is used when
// the input names no root.
func ValidateSystemsHandler(defaultRoot string) mcp.ToolHandlerFor[ValidateSystemsInput, ValidateSystemsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ValidateSystemsInput) (*mcp.CallToolResult, ValidateSystemsResult, error) {
		root := strings.TrimSpace(input.Root)
		if root == "" {
			root = defaultRoot
		}
		if root == "" {
			return nil, ValidateSystemsResult{}, errors.New("root is required")
		}
		policy, err := schema.ParsePolicy(input.UnknownFields)
		if err != nil {
			return nil, ValidateSystemsResult{}, err
		}

		runCtx, cancel := context.WithTimeout(ctx, timeouts.MCPTool)
		defer cancel()

		checker, err := check.New(check.Options{UnknownFields: policy, SkipInstances: input.SkipInstances})
		if err != nil {
			return nil, ValidateSystemsResult{}, err
		}
		res, err := checker.Check(runCtx, root)
		if err != nil {
			return nil, ValidateSystemsResult{}, fmt.Errorf("validate %s: %w", root, err)
		}

		errs, warnings := res.Report.Counts()
		result := ValidateSystemsResult{
			OK:       res.Report.ExitCode(input.Strict) == 0,
			Errors:   errs,
			Warnings: warnings,
			Root:     res.Report.Root,
			Systems:  res.Report.Systems,
		}
		if result.Systems == nil {
			result.Systems = []report.SystemReport{}
		}
		return &mcp.CallToolResult{}, result, nil
	}
}

// GetPublishedSchemaHandler returns an embedded published schema.
func GetPublishedSchemaHandler() mcp.ToolHandlerFor[GetPublishedSchemaInput, GetPublishedSchemaResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input GetPublishedSchemaInput) (*mcp.CallToolResult, GetPublishedSchemaResult, error) {
		name := strings.ToLower(strings.TrimSpace(input.Name))
		data, err := schema.PublishedSchema(name)
		if err != nil {
			return nil, GetPublishedSchemaResult{}, err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, GetPublishedSchemaResult{}, fmt.Errorf("decode schema %s: %w", name, err)
		}
		return &mcp.CallToolResult{}, GetPublishedSchemaResult{Name: name, Schema: doc}, nil
	}
}

// ListCatalogSystemsHandler lists stored system versions. defaultDBPath is
// used when the input names no database.
func ListCatalogSystemsHandler(defaultDBPath string) mcp.ToolHandlerFor[ListCatalogSystemsInput, ListCatalogSystemsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListCatalogSystemsInput) (*mcp.CallToolResult, ListCatalogSystemsResult, error) {
		path := strings.TrimSpace(input.DBPath)
		if path == "" {
			path = defaultDBPath
		}
		if path == "" {
			return nil, ListCatalogSystemsResult{}, errors.New("db_path is required")
		}

		if _, err := os.Stat(path); err != nil {
			return nil, ListCatalogSystemsResult{}, apperrors.WrapWithMetadata(apperrors.CodeNotFound, "catalog database not found", map[string]string{"path": path}, err)
		}

		runCtx, cancel := context.WithTimeout(ctx, timeouts.MCPTool)
		defer cancel()

		store, err := storagesqlite.Open(path)
		if err != nil {
			return nil, ListCatalogSystemsResult{}, err
		}
		defer store.Close()

		var versions []storage.SystemVersion
		if id := strings.TrimSpace(input.ID); id != "" {
			versions, err = store.ListSystemVersions(runCtx, id)
		} else {
			versions, err = store.ListSystems(runCtx)
		}
		if err != nil {
			return nil, ListCatalogSystemsResult{}, fmt.Errorf("list systems: %w", err)
		}

		result := ListCatalogSystemsResult{Systems: make([]CatalogSystemVersion, 0, len(versions))}
		for _, v := range versions {
			result.Systems = append(result.Systems, CatalogSystemVersion{
				ID:           v.ID,
				Version:      v.Version,
				Name:         v.Name,
				ContentHash:  v.ContentHash,
				Latest:       v.Latest(),
				SupersededBy: v.SupersededBy,
				ImportedAt:   v.ImportedAt.UTC().Format(time.RFC3339),
			})
		}
		return &mcp.CallToolResult{}, result, nil
	}
}
