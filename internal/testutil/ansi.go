// Package testutil holds helpers shared by the CLI tests.
package testutil

import "regexp"

// csiSequence matches color and cursor escapes (ESC [ params letter) as
// emitted by fatih/color and the spinner.
var csiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// StripAnsiCodes returns s without terminal escape sequences, so tests can
// assert on the text a user would read.
func StripAnsiCodes(s string) string {
	return csiSequence.ReplaceAllLiteralString(s, "")
}
