package lockfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// lockfilePermissions is the file permission mode for lockfiles.
const lockfilePermissions = 0o644

// ReadFile reads and parses a lockfile from the given path.
func ReadFile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	return Parse(data)
}

// Parse parses lockfile JSON data.
func Parse(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile JSON: %w", err)
	}
	if lf.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, lf.Version, CurrentVersion)
	}

	// Initialize nil maps to empty maps for consistency
	if lf.Targets == nil {
		lf.Targets = make(map[string]Entry)
	}
	for name, e := range lf.Targets {
		if e.Outputs == nil {
			e.Outputs = make(map[string]string)
			lf.Targets[name] = e
		}
	}
	return &lf, nil
}

// WriteFile writes the lockfile to the given path with deterministic formatting.
func (l *Lockfile) WriteFile(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, lockfilePermissions)
}

// WriteTo writes the lockfile to the given writer.
func (l *Lockfile) WriteTo(w io.Writer) (int64, error) {
	data, err := l.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Marshal serializes the lockfile to indented JSON. Map keys are sorted, so
// equal lockfiles always produce identical bytes.
func (l *Lockfile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Exists returns true if a lockfile exists at the given path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultPath returns the default lockfile path relative to a workspace root.
func DefaultPath(workspaceRoot string) string {
	if workspaceRoot == "" {
		return DefaultFilename
	}
	return filepath.Join(workspaceRoot, DefaultFilename)
}
