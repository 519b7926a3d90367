package export

import (
	"fmt"

	"github.com/gorewood/rings/internal/branch"
	"github.com/gorewood/rings/internal/diff"
	"github.com/gorewood/rings/internal/version"
)

// Schema identifies the export format.
const Schema = "rings.history/v1"

// MetricsFunc returns line metrics for file between two committed versions.
type MetricsFunc func(file string, from, to version.Number) (diff.Stats, error)

// Revision is one commit of the file with the change it introduced.
type Revision struct {
	branch.Commit
	// Previous is nil for the first commit of the file.
	Previous *version.Number `json:"previous,omitempty"`
	Changes  *diff.Stats     `json:"changes,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
}

// FileHistory is the exported history of one file on one branch.
type FileHistory struct {
	Schema    string     `json:"schema"`
	File      string     `json:"file"`
	Branch    string     `json:"branch"`
	Revisions []Revision `json:"revisions"`
}

// Latest returns the most recent version, or false when nothing is recorded.
func (h *FileHistory) Latest() (version.Number, bool) {
	if len(h.Revisions) == 0 {
		return version.Number{}, false
	}
	return h.Revisions[len(h.Revisions)-1].Version, true
}

// Build assembles the history of file from the branch's commits and tags.
// metrics is called for each pair of consecutive versions; a nil metrics
// leaves Changes empty.
func Build(branchName, file string, commits []branch.Commit, tags []branch.NamedTag, metrics MetricsFunc) (*FileHistory, error) {
	byVersion := make(map[version.Number][]string)
	for _, tag := range tags {
		if tag.File == file {
			byVersion[tag.Version] = append(byVersion[tag.Version], tag.Name)
		}
	}

	history := &FileHistory{Schema: Schema, File: file, Branch: branchName, Revisions: []Revision{}}
	var prev *version.Number
	for _, c := range commits {
		if c.File != file {
			continue
		}
		rev := Revision{Commit: c, Previous: prev, Tags: byVersion[c.Version]}
		if prev != nil && metrics != nil {
			stats, err := metrics(file, *prev, c.Version)
			if err != nil {
				return nil, fmt.Errorf("measuring %s %s..%s: %w", file, prev, c.Version, err)
			}
			rev.Changes = &stats
		}
		history.Revisions = append(history.Revisions, rev)
		v := c.Version
		prev = &v
	}
	return history, nil
}
