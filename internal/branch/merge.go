package branch

import (
	"slices"

	"github.com/gorewood/rings/internal/version"
)

// Resolution decides a merge conflict for one file.
type Resolution int

const (
	// KeepDestination leaves the destination pointer untouched.
	KeepDestination Resolution = iota
	// TakeSource moves the destination pointer to the source version.
	TakeSource
)

// String returns the resolution name used in reports.
func (r Resolution) String() string {
	if r == TakeSource {
		return "source"
	}
	return "destination"
}

// Conflict describes a file whose version differs between source and destination.
type Conflict struct {
	File        string         `json:"file"`
	Source      version.Number `json:"source"`
	Destination version.Number `json:"destination"`
	Resolution  Resolution     `json:"-"`
	Kept        string         `json:"kept"`
	// Forced is set when TakeSource was requested but could not be applied
	// without breaking the file's increasing, consecutive history.
	Forced bool `json:"forced,omitempty"`
}

// Resolver chooses a resolution for each conflict.
type Resolver func(Conflict) Resolution

// PreferSource resolves every conflict in favour of the source branch.
func PreferSource(Conflict) Resolution { return TakeSource }

// TakeSourceFor resolves conflicts in favour of the source only for the named files.
func TakeSourceFor(files ...string) Resolver {
	return func(c Conflict) Resolution {
		if slices.Contains(files, c.File) {
			return TakeSource
		}
		return KeepDestination
	}
}

// MergeOptions configures a merge. A nil Resolve keeps the destination.
type MergeOptions struct {
	Resolve Resolver
	// OnAdopt, if set, is called by Manager.Merge for each adopted commit
	// before the destination is saved. An error aborts the merge unsaved.
	OnAdopt func(Commit) error
}

// FileChange is a file pointer added or moved by a merge.
type FileChange struct {
	File    string         `json:"file"`
	Version version.Number `json:"version"`
}

// MergeReport summarises what a merge changed.
type MergeReport struct {
	Source      string       `json:"source"`
	Destination string       `json:"destination"`
	Added       []FileChange `json:"added"`
	Updated     []FileChange `json:"updated"`
	Conflicts   []Conflict   `json:"conflicts"`
	// Adopted lists the commit entries appended to the destination log.
	Adopted      []Commit `json:"adopted"`
	TagsAdded    []string `json:"tags_added"`
	TagsSkipped  []string `json:"tags_skipped"`
	TagsDangling []string `json:"tags_dangling"`
}

// Changed reports whether the merge modified the destination.
func (r *MergeReport) Changed() bool {
	return len(r.Adopted) > 0 || len(r.TagsAdded) > 0
}

func newReport(src, dest string) *MergeReport {
	return &MergeReport{
		Source:       src,
		Destination:  dest,
		Added:        []FileChange{},
		Updated:      []FileChange{},
		Conflicts:    []Conflict{},
		Adopted:      []Commit{},
		TagsAdded:    []string{},
		TagsSkipped:  []string{},
		TagsDangling: []string{},
	}
}

// MergeInto applies src's files, commits and tags onto dest in memory.
//
// Files absent from dest are adopted with their commits. Files at the same
// version are untouched. Differing versions are conflicts, resolved by
// opts.Resolve (KeepDestination when nil). dest's existing commits and tags are
// never removed or rewritten. src is not modified.
func MergeInto(dest, src *Metadata, opts MergeOptions) *MergeReport {
	report := newReport(src.Name, dest.Name)

	for _, file := range src.FileNames() {
		srcV := src.Files[file]
		destV, tracked := dest.Files[file]

		switch {
		case !tracked:
			adopted := adopt(dest, src.History(file))
			report.Adopted = append(report.Adopted, adopted...)
			dest.Files[file] = srcV
			report.Added = append(report.Added, FileChange{File: file, Version: srcV})

		case destV == srcV:
			// Same pointer: nothing to reconcile.

		default:
			conflict := Conflict{File: file, Source: srcV, Destination: destV}
			if opts.Resolve != nil {
				conflict.Resolution = opts.Resolve(conflict)
			}
			if conflict.Resolution == TakeSource {
				if adopted, ok := fastForward(dest, src, file); ok {
					report.Adopted = append(report.Adopted, adopted...)
					report.Updated = append(report.Updated, FileChange{File: file, Version: srcV})
				} else {
					conflict.Resolution = KeepDestination
					conflict.Forced = true
				}
			}
			conflict.Kept = conflict.Resolution.String()
			report.Conflicts = append(report.Conflicts, conflict)
		}
	}

	for _, tag := range src.SortedTags() {
		if existing, ok := dest.Tags[tag.Name]; ok {
			if existing != tag.Tag {
				report.TagsSkipped = append(report.TagsSkipped, tag.Name)
			}
			continue
		}
		if !dest.HasCommit(tag.File, tag.Version) {
			report.TagsDangling = append(report.TagsDangling, tag.Name)
			continue
		}
		dest.Tags[tag.Name] = tag.Tag
		report.TagsAdded = append(report.TagsAdded, tag.Name)
	}

	return report
}

// adopt appends the entries dest does not already have, in order.
func adopt(dest *Metadata, entries []Commit) []Commit {
	adopted := []Commit{}
	for _, entry := range entries {
		if dest.HasEntry(entry) {
			continue
		}
		dest.Commits = append(dest.Commits, entry)
		adopted = append(adopted, entry)
	}
	return adopted
}

// fastForward moves dest's pointer for file to src's version by appending the
// source commits newer than dest's version. It refuses when the first of them
// does not directly follow dest's version, since the history would no longer
// be consecutive. dest is unchanged when it refuses.
func fastForward(dest, src *Metadata, file string) ([]Commit, bool) {
	destV := dest.Files[file]
	var newer []Commit
	for _, entry := range src.History(file) {
		if destV.Less(entry.Version) {
			newer = append(newer, entry)
		}
	}
	if len(newer) == 0 || !newer[0].Version.IsConsecutiveAfter(destV) {
		return nil, false
	}
	for _, entry := range newer {
		if dest.HasCommit(file, entry.Version) {
			return nil, false
		}
	}
	adopted := adopt(dest, newer)
	dest.Files[file] = src.Files[file]
	return adopted, true
}
