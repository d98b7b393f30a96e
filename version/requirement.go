package version

// Requirement is a predicate over a Version.
//
// Exactly is the only variant today. New predicates (ranges, any-of) are
// added as new types in this package; callers only ever call Matches.
type Requirement interface {
	// Matches reports whether the requirement admits v.
	Matches(v Version) bool

	// String returns the requirement in the form it is written in a tag.
	String() string

	isRequirement()
}

// Exactly admits a single version.
type Exactly struct {
	Version Version
}

func (e Exactly) Matches(v Version) bool { return e.Version == v }
func (e Exactly) String() string         { return e.Version.String() }
func (e Exactly) isRequirement()         {}

// ParseRequirement parses the argument of a version tag.
func ParseRequirement(s string) (Requirement, error) {
	v, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return Exactly{Version: v}, nil
}
