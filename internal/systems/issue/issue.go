// Package issue defines the findings produced while checking system content.
//
// Findings are data, not errors: a single run collects every issue it can
// find and the reporter decides the exit status from their severities.
package issue

import (
	"fmt"
	"strings"
)

// Severity ranks an issue.
type Severity string

const (
	// SeverityError marks an issue that fails validation.
	SeverityError Severity = "error"
	// SeverityWarning marks an issue that is reported but does not fail validation.
	SeverityWarning Severity = "warning"
)

// Kind classifies an issue.
type Kind string

const (
	// KindIO reports an unreadable file or directory.
	KindIO Kind = "io"
	// KindParse reports malformed encoding or JSON.
	KindParse Kind = "parse"
	// KindSchema reports structural non-conformance of a document.
	KindSchema Kind = "schema"
	// KindDanglingReference reports a reference to a resource that does not exist.
	KindDanglingReference Kind = "dangling_reference"
	// KindUnusedResource reports a resource nothing refers to.
	KindUnusedResource Kind = "unused_resource"
	// KindDuplicateIdentifier reports an identifier used more than once in a system.
	KindDuplicateIdentifier Kind = "duplicate_identifier"
	// KindIdentifierMismatch reports a declared identifier that differs from its location.
	KindIdentifierMismatch Kind = "identifier_mismatch"
	// KindInstance reports a resource instance that does not match its stats.
	KindInstance Kind = "instance"
)

// IsReference reports whether the kind belongs to the reference class.
func (k Kind) IsReference() bool {
	switch k {
	case KindDanglingReference, KindUnusedResource, KindDuplicateIdentifier, KindIdentifierMismatch:
		return true
	default:
		return false
	}
}

// Issue is a single finding tied to a file and a location inside it.
type Issue struct {
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	System   string   `json:"system,omitempty"`
	File     string   `json:"file,omitempty"`
	Path     []string `json:"path,omitempty"`
	Field    string   `json:"field,omitempty"`
	Rule     string   `json:"rule,omitempty"`
	Message  string   `json:"message"`
}

// Errorf builds an error-severity issue.
func Errorf(kind Kind, path []string, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityError,
		Kind:     kind,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-severity issue.
func Warnf(kind Kind, path []string, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityWarning,
		Kind:     kind,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Location renders the path inside the file, "<root>" when empty.
func (i Issue) Location() string {
	if len(i.Path) == 0 {
		return "<root>"
	}
	return strings.Join(i.Path, " -> ")
}

// String renders "file: location: message".
func (i Issue) String() string {
	file := i.File
	if file == "" {
		file = i.System
	}
	if file == "" {
		return i.Location() + ": " + i.Message
	}
	return file + ": " + i.Location() + ": " + i.Message
}

// IsError reports whether the issue fails validation.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// InFile stamps system and file onto every issue that has no file yet.
func InFile(issues []Issue, system, file string) []Issue {
	for idx := range issues {
		if issues[idx].System == "" {
			issues[idx].System = system
		}
		if issues[idx].File == "" {
			issues[idx].File = file
		}
	}
	return issues
}

// Count returns the number of error and warning issues.
func Count(issues []Issue) (errors, warnings int) {
	for _, item := range issues {
		if item.IsError() {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}

// HasErrors reports whether any issue is error severity.
func HasErrors(issues []Issue) bool {
	for _, item := range issues {
		if item.IsError() {
			return true
		}
	}
	return false
}

// Child returns a copy of path extended with elems. The input is never
// aliased, so callers can keep appending to their own stack.
func Child(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}
