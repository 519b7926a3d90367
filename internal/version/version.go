// Package version implements the major.minor version numbers assigned to file snapshots.
package version

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFormat is returned when text is not a canonical "<major>.<minor>" version.
var ErrFormat = errors.New("malformed version")

// ErrExhausted is returned by Next for a version whose minor is MaxPart.
var ErrExhausted = errors.New("no successor version")

// MaxPart is the largest accepted major or minor component. It is one below
// the uint64 limit so that Successor never wraps.
const MaxPart = math.MaxUint64 - 1

// Initial is the version given to the first automatic commit of a file.
var Initial = Number{Major: 1, Minor: 0}

// Number is an immutable (major, minor) version identifier.
// The zero value is "0.0".
type Number struct {
	Major uint64
	Minor uint64
}

// New returns the version major.minor.
func New(major, minor uint64) Number {
	return Number{Major: major, Minor: minor}
}

// Parse reads a version of the exact form "<digits>.<digits>".
// Leading zeros are rejected (other than a lone "0") so that
// Parse(s).String() == s for every accepted s.
func Parse(text string) (Number, error) {
	majorText, minorText, ok := strings.Cut(text, ".")
	if !ok {
		return Number{}, fmt.Errorf("%w: %q (want <major>.<minor>)", ErrFormat, text)
	}
	major, err := parsePart(majorText)
	if err != nil {
		return Number{}, fmt.Errorf("%w: %q: major %v", ErrFormat, text, err)
	}
	minor, err := parsePart(minorText)
	if err != nil {
		return Number{}, fmt.Errorf("%w: %q: minor %v", ErrFormat, text, err)
	}
	return Number{Major: major, Minor: minor}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for constants and tests.
func MustParse(text string) Number {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func parsePart(part string) (uint64, error) {
	if part == "" {
		return 0, errors.New("is empty")
	}
	for _, c := range part {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("has non-digit %q", c)
		}
	}
	if len(part) > 1 && part[0] == '0' {
		return 0, errors.New("has a leading zero")
	}
	value, err := strconv.ParseUint(part, 10, 64)
	if err != nil || value > MaxPart {
		return 0, errors.New("is out of range")
	}
	return value, nil
}

// String formats the version as "<major>.<minor>".
func (n Number) String() string {
	return strconv.FormatUint(n.Major, 10) + "." + strconv.FormatUint(n.Minor, 10)
}

// Successor returns the next minor version. Major is never bumped automatically.
func (n Number) Successor() Number {
	return Number{Major: n.Major, Minor: n.Minor + 1}
}

// Next is Successor for versions read from user input or records: it fails
// with ErrExhausted instead of returning a version that Parse would reject.
func (n Number) Next() (Number, error) {
	if n.Minor >= MaxPart {
		return Number{}, fmt.Errorf("%w: %s", ErrExhausted, n)
	}
	return n.Successor(), nil
}

// IsConsecutiveAfter reports whether n immediately follows prior:
// same major, minor exactly one greater.
func (n Number) IsConsecutiveAfter(prior Number) bool {
	return n.Major == prior.Major && n.Minor == prior.Minor+1
}

// Compare returns -1, 0 or +1 ordering a and b by major, then minor.
func Compare(a, b Number) int {
	switch {
	case a.Major < b.Major:
		return -1
	case a.Major > b.Major:
		return 1
	case a.Minor < b.Minor:
		return -1
	case a.Minor > b.Minor:
		return 1
	default:
		return 0
	}
}

// Less reports whether n orders before other.
func (n Number) Less(other Number) bool {
	return Compare(n, other) < 0
}

// MarshalText encodes the version in its textual form so it persists as "1.2" in JSON.
func (n Number) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes the textual form produced by MarshalText.
func (n *Number) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
