package lockfile

import (
	"errors"
	"slices"
	"sort"
)

// CurrentVersion is the lockfile schema version written by this package.
const CurrentVersion = 1

// DefaultFilename is the lockfile name used when none is configured.
const DefaultFilename = "versioned.lock"

// ErrUnsupportedVersion indicates a lockfile written with another schema.
var ErrUnsupportedVersion = errors.New("unsupported lockfile version")

// Lockfile is the recorded state of all generated targets.
type Lockfile struct {
	// Version is the schema version.
	Version int `json:"lockFileVersion"`

	// Targets maps manifest target names to their recorded state.
	Targets map[string]Entry `json:"targets"`
}

// Entry is the recorded state of one target.
type Entry struct {
	// Src is the annotated source path.
	Src string `json:"src"`

	// SrcHash is the hash of the source content.
	SrcHash string `json:"srcHash"`

	// Versions lists the generated versions in generation order.
	Versions []string `json:"versions"`

	// Outputs maps each written file to the hash of its content.
	Outputs map[string]string `json:"outputs"`
}

// Equal reports whether two entries record the same state.
func (e Entry) Equal(other Entry) bool {
	if e.Src != other.Src || e.SrcHash != other.SrcHash {
		return false
	}
	if !slices.Equal(e.Versions, other.Versions) || len(e.Outputs) != len(other.Outputs) {
		return false
	}
	for path, hash := range e.Outputs {
		if other.Outputs[path] != hash {
			return false
		}
	}
	return true
}

// New returns an empty lockfile at the current version.
func New() *Lockfile {
	return &Lockfile{
		Version: CurrentVersion,
		Targets: make(map[string]Entry),
	}
}

// Set records the state of a target, replacing any previous entry.
func (l *Lockfile) Set(name string, e Entry) {
	if e.Outputs == nil {
		e.Outputs = make(map[string]string)
	}
	l.Targets[name] = e
}

// Get returns the recorded state of a target.
func (l *Lockfile) Get(name string) (Entry, bool) {
	e, ok := l.Targets[name]
	return e, ok
}

// Remove deletes a target.
func (l *Lockfile) Remove(name string) {
	delete(l.Targets, name)
}

// Names returns the target names in sorted order.
func (l *Lockfile) Names() []string {
	names := make([]string, 0, len(l.Targets))
	for name := range l.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
