// Package output renders rings command results for people and for machines.
//
// Every command writes through a Printer. In JSON mode (--json) results,
// warnings and errors are JSON objects on stdout:
//
//	{"file": "notes.txt", "status": "committed", "version": "1.1"}
//	{"warning": "no baseline snapshot: ..."}
//	{"error": "version already committed: notes.txt@1.1", "code": 3}
//
// In human mode results go to stdout with lipgloss styling, which is dropped
// when the writer is not a terminal or --color never is given, and warnings
// and errors go to stderr.
//
// # Exit codes
//
//	ExitSuccess     0
//	ExitUserError   1  bad input, unknown names, missing remote
//	ExitSystemError 2  I/O failures
//	ExitConflict    3  version conflict, duplicate tag or branch, locked remote
//
// Classify maps the engine's sentinel errors onto these codes.
package output
