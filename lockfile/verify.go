package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DriftKind classifies a mismatch between the lockfile and the workspace.
type DriftKind string

const (
	// DriftSource means the annotated source changed since generation.
	DriftSource DriftKind = "source changed"

	// DriftOutput means a generated file was edited or regenerated
	// differently.
	DriftOutput DriftKind = "output changed"

	// DriftMissing means a recorded file no longer exists.
	DriftMissing DriftKind = "missing"

	// DriftUnlocked means a target has no entry in the lockfile.
	DriftUnlocked DriftKind = "not locked"
)

// Drift is one recorded file whose content no longer matches.
type Drift struct {
	Target string
	Path   string
	Kind   DriftKind
}

func (d Drift) String() string {
	return fmt.Sprintf("%s: %s %s", d.Target, d.Path, d.Kind)
}

// Verify hashes every recorded source and output under root and reports
// the files that differ, sorted by target and path. Only I/O failures other
// than a missing file are returned as errors.
func (l *Lockfile) Verify(root string) ([]Drift, error) {
	var drift []Drift
	for _, name := range l.Names() {
		e := l.Targets[name]

		kind, err := check(root, e.Src, e.SrcHash, DriftSource)
		if err != nil {
			return nil, err
		}
		if kind != "" {
			drift = append(drift, Drift{Target: name, Path: e.Src, Kind: kind})
		}

		paths := make([]string, 0, len(e.Outputs))
		for path := range e.Outputs {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			kind, err := check(root, path, e.Outputs[path], DriftOutput)
			if err != nil {
				return nil, err
			}
			if kind != "" {
				drift = append(drift, Drift{Target: name, Path: path, Kind: kind})
			}
		}
	}
	return drift, nil
}

func check(root, rel, want string, changed DriftKind) (DriftKind, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return DriftMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", rel, err)
	}
	if !VerifyHash(data, want) {
		return changed, nil
	}
	return "", nil
}

// RelPath returns path relative to root in slash form, the form stored in
// entries. Either may be relative to the working directory.
func RelPath(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
