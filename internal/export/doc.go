// Package export renders the history of one tracked file as a document.
//
// Build collects a file's commits on a branch, the tags that point at them and
// the line metrics between consecutive versions. The result can be written as
// JSON or as markdown with YAML frontmatter:
//
//	---
//	schema: rings.history/v1
//	file: notes.txt
//	branch: main
//	latest: "1.2"
//	commit_count: 3
//	---
//
//	# notes.txt
//
//	## 1.2
//
//	- User: alice
//	- Date: 2026-05-01T09:03:00Z
//	- Changes: +4/-1 since 1.1
//	- Tags: release
//
// Files written to a directory are named <file>.history.md or
// <file>.history.json.
package export
