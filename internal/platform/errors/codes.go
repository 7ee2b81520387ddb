// Package errors provides coded errors shared by the content tooling.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Content loading errors
	CodeIO    Code = "IO"
	CodeParse Code = "PARSE"

	// Content conformance errors
	CodeSchema    Code = "SCHEMA"
	CodeReference Code = "REFERENCE"

	// Catalog errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Caller errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// String returns the code text.
func (c Code) String() string {
	if c == "" {
		return string(CodeUnknown)
	}
	return string(c)
}
