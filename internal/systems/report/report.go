// Package report aggregates validation findings and renders them for
// contributors and tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/louisbranch/rpg-systems/internal/platform/config"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
)

// DefaultWarningsCap is the number of warnings printed in text output before
// the remainder is summarised.
const DefaultWarningsCap = 50

// SystemReport holds the findings for one system directory.
type SystemReport struct {
	Name          string        `json:"name"`
	Loaded        bool          `json:"loaded"`
	Resources     int           `json:"resources"`
	InstanceFiles int           `json:"instance_files"`
	Errors        int           `json:"errors"`
	Warnings      int           `json:"warnings"`
	Issues        []issue.Issue `json:"issues"`
}

// NewSystemReport builds a system report and counts its issues.
func NewSystemReport(name string, loaded bool, issues []issue.Issue) SystemReport {
	if issues == nil {
		issues = []issue.Issue{}
	}
	errs, warnings := issue.Count(issues)
	return SystemReport{
		Name:     name,
		Loaded:   loaded,
		Errors:   errs,
		Warnings: warnings,
		Issues:   issues,
	}
}

// Report is the outcome of validating a content root.
type Report struct {
	Root    string         `json:"root"`
	Systems []SystemReport `json:"systems"`
}

// Sort orders systems by name.
func (r *Report) Sort() {
	sort.SliceStable(r.Systems, func(i, j int) bool {
		return r.Systems[i].Name < r.Systems[j].Name
	})
}

// Counts returns the total number of errors and warnings.
func (r Report) Counts() (errs, warnings int) {
	for _, sys := range r.Systems {
		errs += sys.Errors
		warnings += sys.Warnings
	}
	return errs, warnings
}

// HasErrors reports whether any error-severity issue was found.
func (r Report) HasErrors() bool {
	errs, _ := r.Counts()
	return errs > 0
}

// ExitCode maps the report to a process exit status. In strict mode
// warnings fail as well.
func (r Report) ExitCode(strict bool) int {
	errs, warnings := r.Counts()
	if errs > 0 || (strict && warnings > 0) {
		return config.ExitFailure
	}
	return config.ExitOK
}

// Options controls rendering.
type Options struct {
	JSON bool
	// WarningsCap limits printed warnings in text output; 0 prints all.
	WarningsCap int
	Strict      bool
}

// Write renders r to w.
func Write(w io.Writer, r Report, opts Options) error {
	if opts.JSON {
		return writeJSON(w, r, opts)
	}
	return writeText(w, r, opts)
}

type jsonReport struct {
	Report
	OK       bool `json:"ok"`
	Strict   bool `json:"strict"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
}

func writeJSON(w io.Writer, r Report, opts Options) error {
	if r.Systems == nil {
		r.Systems = []SystemReport{}
	}
	errs, warnings := r.Counts()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{
		Report:   r,
		OK:       r.ExitCode(opts.Strict) == config.ExitOK,
		Strict:   opts.Strict,
		Errors:   errs,
		Warnings: warnings,
	}); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, r Report, opts Options) error {
	p := &printer{w: w}
	shown, hidden := 0, 0
	for _, sys := range r.Systems {
		if len(sys.Issues) == 0 {
			p.printf("%s: ok\n", sys.Name)
			continue
		}
		p.printf("%s: %s\n", sys.Name, counts(sys.Errors, sys.Warnings))
		for _, item := range sys.Issues {
			if !item.IsError() {
				if opts.WarningsCap > 0 && shown >= opts.WarningsCap {
					hidden++
					continue
				}
				shown++
			}
			p.printf("  %s %s\n", item.Severity, item.String())
		}
	}
	if hidden > 0 {
		p.printf("... %d more warning(s) not shown\n", hidden)
	}

	errs, warnings := r.Counts()
	status := "OK"
	if r.ExitCode(opts.Strict) != config.ExitOK {
		status = "FAILED"
	}
	p.printf("%s: %d system(s) checked, %s\n", status, len(r.Systems), counts(errs, warnings))
	return p.err
}

func counts(errs, warnings int) string {
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, warnings)
}

// printer remembers the first write error so rendering reads linearly.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
