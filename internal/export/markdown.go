package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FormatMarkdown renders h as a markdown document, newest revision first.
func FormatMarkdown(h *FileHistory) string {
	var builder strings.Builder
	writeFrontmatter(&builder, h)
	fmt.Fprintf(&builder, "# %s\n", h.File)

	revisions := slices.Clone(h.Revisions)
	slices.Reverse(revisions)
	for _, rev := range revisions {
		writeRevision(&builder, rev)
	}
	return builder.String()
}

func writeFrontmatter(builder *strings.Builder, h *FileHistory) {
	builder.WriteString("---\n")
	fmt.Fprintf(builder, "schema: %s\n", Schema)
	fmt.Fprintf(builder, "file: %s\n", h.File)
	fmt.Fprintf(builder, "branch: %s\n", h.Branch)
	if latest, ok := h.Latest(); ok {
		// Quoted so YAML readers keep 1.10 distinct from 1.1.
		fmt.Fprintf(builder, "latest: %q\n", latest.String())
	}
	fmt.Fprintf(builder, "commit_count: %d\n", len(h.Revisions))
	builder.WriteString("---\n\n")
}

func writeRevision(builder *strings.Builder, rev Revision) {
	fmt.Fprintf(builder, "\n## %s\n\n", rev.Version)
	fmt.Fprintf(builder, "- User: %s\n", rev.User)
	fmt.Fprintf(builder, "- Date: %s\n", rev.Timestamp.UTC().Format(time.RFC3339))
	switch {
	case rev.Previous == nil:
		builder.WriteString("- Changes: first version\n")
	case rev.Changes != nil:
		fmt.Fprintf(builder, "- Changes: +%d/-%d since %s\n", rev.Changes.Additions, rev.Changes.Deletions, rev.Previous)
	}
	if len(rev.Tags) > 0 {
		fmt.Fprintf(builder, "- Tags: %s\n", strings.Join(rev.Tags, ", "))
	}
	if rev.Checksum != "" {
		fmt.Fprintf(builder, "- Checksum: `%s`\n", rev.Checksum)
	}
}

// WriteMarkdownFile writes h to dir as <file>.history.md and returns the path.
func WriteMarkdownFile(h *FileHistory, dir string) (string, error) {
	return writeFile(filepath.Join(dir, h.File+".history.md"), []byte(FormatMarkdown(h)))
}

func writeFile(path string, data []byte) (string, error) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
