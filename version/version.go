// Package version provides the version numbers and requirements used to
// select which parts of an annotated declaration survive for a given output.
package version

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string is not of the form
// MAJOR.MINOR with non-negative integer components.
var ErrInvalidVersion = errors.New("invalid version")

// Version identifies one output variant.
// Format: MAJOR.MINOR, e.g. "1.4".
type Version struct {
	Major uint64
	Minor uint64
}

// Parse parses a "MAJOR.MINOR" string. The text is split on the first dot,
// so "1.2.3" is rejected because "2.3" is not an integer.
func Parse(s string) (Version, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("%w %q: missing `.`", ErrInvalidVersion, s)
	}

	major, err := parseComponent(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: major: %v", ErrInvalidVersion, s, err)
	}
	minor, err := parseComponent(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: minor: %v", ErrInvalidVersion, s, err)
	}

	return Version{Major: major, Minor: minor}, nil
}

func parseComponent(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	return n, nil
}

// MustParse parses a version or panics. Use only for constants/tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseList parses every string in order and stops at the first failure.
// On failure no versions are returned.
func ParseList(list []string) ([]Version, error) {
	versions := make([]Version, 0, len(list))
	for _, s := range list {
		v, err := Parse(s)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// String returns the version in its "MAJOR.MINOR" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Ident returns the Go identifier used to name the output for this version,
// e.g. "v1_4".
func (v Version) Ident() string {
	return fmt.Sprintf("v%d_%d", v.Major, v.Minor)
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	return cmp.Compare(v.Minor, other.Minor)
}

// Less returns true if v < other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}
