// Package diagutil collects small helpers around hcl.Diagnostics, which is
// the diagnostics sink type used throughout this module, the same way
// internal/configs returns hcl.Diagnostics from nearly every decode
// function rather than inventing a parallel error type.
package diagutil

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Errorf appends a single error-severity diagnostic built from a format
// string to diags, returning the extended slice.
func Errorf(diags hcl.Diagnostics, subject *hcl.Range, summary, detail string, args ...any) hcl.Diagnostics {
	return append(diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(detail, args...),
		Subject:  subject,
	})
}

// Warnf appends a single warning-severity diagnostic.
func Warnf(diags hcl.Diagnostics, subject *hcl.Range, summary, detail string, args ...any) hcl.Diagnostics {
	return append(diags, &hcl.Diagnostic{
		Severity: hcl.DiagWarning,
		Summary:  summary,
		Detail:   fmt.Sprintf(detail, args...),
		Subject:  subject,
	})
}

// Sink accumulates diagnostics across a call tree that doesn't thread a
// hcl.Diagnostics return value through every function (for example, the
// Elaborator's recursive body-expansion walk, which instead stores findings
// as it goes and returns them in bulk once elaboration of a root completes).
type Sink struct {
	diags hcl.Diagnostics
}

// Append adds diagnostics produced by a sub-call to the sink.
func (s *Sink) Append(diags hcl.Diagnostics) {
	s.diags = append(s.diags, diags...)
}

// Error appends one error-severity diagnostic.
func (s *Sink) Error(subject *hcl.Range, summary, detail string, args ...any) {
	s.diags = Errorf(s.diags, subject, summary, detail, args...)
}

// Warn appends one warning-severity diagnostic.
func (s *Sink) Warn(subject *hcl.Range, summary, detail string, args ...any) {
	s.diags = Warnf(s.diags, subject, summary, detail, args...)
}

// Diagnostics returns everything accumulated so far.
func (s *Sink) Diagnostics() hcl.Diagnostics {
	return s.diags
}

// HasErrors reports whether any error-severity diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	return s.diags.HasErrors()
}
