// Package classify maps failed vendor CLI calls to failure kinds so
// reporting can tell "zero resources found" apart from "could not be
// inventoried".
package classify

import (
	"errors"
	"regexp"
	"strings"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// Patterns are matched case-insensitively against the combined
// stdout+stderr of the failed call. Order matters: API-disabled text
// often also contains "denied", so it is checked first.
var (
	apiDisabledSubstrings = []string{
		"not enabled",
		"has not been used",
		"is disabled",
	}
	apiDisabledPattern = regexp.MustCompile(`(?i)api\b.*\bnot (been )?enabled`)

	permissionSubstrings = []string{
		"permission",
		"denied",
		"forbidden",
		"unauthorized",
		"403",
	}
)

// Classify inspects a failed call's combined output and exit code.
// Timeouts are assigned by the worker pool, not here, since a timed
// out call may never return output at all.
func Classify(output string, exitCode int) inventory.FailureKind {
	lower := strings.ToLower(output)

	for _, s := range apiDisabledSubstrings {
		if strings.Contains(lower, s) {
			return inventory.FailureAPIDisabled
		}
	}
	if apiDisabledPattern.MatchString(output) {
		return inventory.FailureAPIDisabled
	}

	for _, s := range permissionSubstrings {
		if strings.Contains(lower, s) {
			return inventory.FailurePermissionDenied
		}
	}

	if exitCode != 0 {
		return inventory.FailureUnknown
	}
	return inventory.FailureNone
}

// outputError is implemented by runner.CallError; declared here so
// classify does not depend on the runner package.
type outputError interface {
	CombinedOutput() string
	Code() int
}

// FromError classifies an error returned by a lister or sizing
// strategy. Errors carrying CLI output are matched against the
// pattern rules; anything else is Unknown.
func FromError(err error) inventory.FailureKind {
	if err == nil {
		return inventory.FailureNone
	}

	var oe outputError
	if errors.As(err, &oe) {
		return Classify(oe.CombinedOutput(), oe.Code())
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return inventory.FailureParse
	}

	return inventory.FailureUnknown
}

// ParseError marks malformed output from an otherwise successful call.
type ParseError struct {
	Call string
	Err  error
}

func (e *ParseError) Error() string {
	return "parse " + e.Call + " output: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
