// Package check runs the validation pipeline over a content root: load each
// system, validate its documents, resolve references, check instances and
// collect the findings into a report.
package check

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/instances"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/loader"
	"github.com/louisbranch/rpg-systems/internal/systems/report"
	"github.com/louisbranch/rpg-systems/internal/systems/resolver"
	"github.com/louisbranch/rpg-systems/internal/systems/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers bounds how many systems are validated at once.
	DefaultWorkers = 4

	tracerName = "github.com/louisbranch/rpg-systems/internal/systems/check"
)

// Options configures a Checker.
type Options struct {
	Workers       int
	UnknownFields schema.Policy
	// SchemaPath overrides the published system definition schema.
	SchemaPath    string
	SkipInstances bool
}

// Checker validates content roots.
type Checker struct {
	opts       Options
	definition *schema.Validator
	resource   *schema.Validator
}

// New builds a checker, loading the schemas it validates against.
func New(opts Options) (*Checker, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.UnknownFields == "" {
		opts.UnknownFields = schema.UnknownFieldsWarn
	}
	definition, err := schema.LoadOrDefault(opts.SchemaPath, schema.WithUnknownFields(opts.UnknownFields))
	if err != nil {
		return nil, fmt.Errorf("load system schema: %w", err)
	}
	resource, err := schema.ResourceDocument(schema.WithUnknownFields(opts.UnknownFields))
	if err != nil {
		return nil, fmt.Errorf("load resource schema: %w", err)
	}
	return &Checker{opts: opts, definition: definition, resource: resource}, nil
}

// Result is the outcome of a check: the report plus the loaded systems, in
// report order, for callers that continue with the content.
type Result struct {
	Report  report.Report
	Systems []*loader.System
}

// Check validates every system below root. Problems with content are
// returned in the report; the error is reserved for an unusable root or a
// cancelled context.
func (c *Checker) Check(ctx context.Context, root string) (Result, error) {
	base, dirs, err := loader.Discover(root)
	if err != nil {
		return Result{}, err
	}

	reports := make([]report.SystemReport, len(dirs))
	systems := make([]*loader.System, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for idx, dir := range dirs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[idx], systems[idx] = c.checkSystem(gctx, base, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "check cancelled", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUnknown, "check cancelled", err)
	}

	result := Result{Report: report.Report{Root: root, Systems: reports}}
	result.Report.Sort()
	for _, sys := range systems {
		if sys != nil {
			result.Systems = append(result.Systems, sys)
		}
	}
	sort.SliceStable(result.Systems, func(i, j int) bool {
		return result.Systems[i].Name < result.Systems[j].Name
	})
	return result, nil
}

func (c *Checker) checkSystem(ctx context.Context, base, dir string) (report.SystemReport, *loader.System) {
	_, span := otel.Tracer(tracerName).Start(ctx, "check.system")
	defer span.End()

	entry := loader.LoadSystem(base, dir)
	span.SetAttributes(attribute.String("rpg.system", entry.Name))
	if entry.Failure != nil {
		span.SetStatus(codes.Error, string(entry.Failure.Kind))
		return report.NewSystemReport(entry.Name, false, []issue.Issue{entry.Issue(base)}), nil
	}

	sys := entry.System
	issues := c.Issues(sys)

	sr := report.NewSystemReport(sys.Name, true, issues)
	sr.Resources = len(sys.Resources)
	sr.InstanceFiles = len(sys.InstanceFiles)
	span.SetAttributes(
		attribute.Int("rpg.resources", sr.Resources),
		attribute.Int("rpg.instance_files", sr.InstanceFiles),
		attribute.Int("rpg.errors", sr.Errors),
		attribute.Int("rpg.warnings", sr.Warnings),
	)
	if issue.HasErrors(issues) {
		span.SetStatus(codes.Error, "validation failed")
	}
	return sr, sys
}

// Issues runs every per-system check on a loaded system.
func (c *Checker) Issues(sys *loader.System) []issue.Issue {
	issues := append([]issue.Issue(nil), sys.Issues...)

	defFile := sys.Rel(sys.DefinitionPath)
	issues = append(issues, issue.InFile(schema.Issues(c.definition.Validate(sys.Definition)), sys.Name, defFile)...)

	for _, res := range sys.Resources {
		if res.Document == nil {
			continue
		}
		violations := c.resource.Validate(res.Document)
		issues = append(issues, issue.InFile(schema.Issues(violations), sys.Name, sys.Rel(res.DocumentPath))...)
	}

	issues = append(issues, resolver.Resolve(sys)...)

	if !c.opts.SkipInstances {
		issues = append(issues, instances.ValidateSystem(sys)...)
	}
	return issues
}
