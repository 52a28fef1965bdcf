// Package cli holds the terminal-facing pieces shared by the commands:
// output rendering in table, plain, json and yaml formats, progress
// spinners, the readline prompter components use for operator input, the
// interactive SQL shell, and the error types commands map to exit codes.
//
// Rendering is split into views, which turn domain values into a Table plus
// the value to serialise, and Render, which writes either one depending on
// the selected OutputFormat. Commands never format tables themselves.
package cli
