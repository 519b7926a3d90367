package snapshot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gorewood/rings/internal/version"
)

// ErrNoBaseline indicates there is no stored snapshot to compare against.
// HasChanged returns it wrapped alongside a true result; callers should surface
// it as a warning and proceed with the commit.
var ErrNoBaseline = errors.New("no baseline snapshot")

// Detector decides whether working content differs from the last committed snapshot.
type Detector struct {
	store *Store
}

// NewDetector creates a Detector reading baselines from store.
func NewDetector(store *Store) *Detector {
	return &Detector{store: store}
}

// HasChanged compares working against the snapshot of file at last.
//
// If last is nil (no prior commit) or its snapshot is missing, it reports true
// together with a wrapped ErrNoBaseline. Any other retrieval failure is returned
// as a real error.
func (d *Detector) HasChanged(file string, working []byte, last *version.Number) (bool, error) {
	if last == nil {
		return true, fmt.Errorf("%w: %s has no prior commit", ErrNoBaseline, file)
	}

	baseline, err := d.store.Get(file, *last)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, fmt.Errorf("%w: snapshot %s@%s is missing", ErrNoBaseline, file, last)
		}
		return false, err
	}

	return !bytes.Equal(baseline, working), nil
}
