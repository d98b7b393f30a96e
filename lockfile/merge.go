package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// MergeStrategy defines how to handle conflicts when merging lockfiles.
type MergeStrategy int

const (
	// MergePreferExisting keeps existing values on conflict.
	MergePreferExisting MergeStrategy = iota

	// MergePreferNew overwrites with new values on conflict.
	MergePreferNew

	// MergeErrorOnConflict returns an error if values differ.
	MergeErrorOnConflict
)

// MergeOptions configures lockfile merge behavior.
type MergeOptions struct {
	// Strategy determines how conflicts are resolved.
	Strategy MergeStrategy
}

// DefaultMergeOptions returns sensible defaults for merging.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{Strategy: MergePreferNew}
}

// Merge combines another lockfile into this one, target by target.
func (l *Lockfile) Merge(other *Lockfile, opts MergeOptions) error {
	if other == nil {
		return nil
	}

	for name, newEntry := range other.Targets {
		existing, exists := l.Targets[name]
		if !exists || existing.Equal(newEntry) {
			l.Targets[name] = newEntry
			continue
		}

		// Conflict handling
		switch opts.Strategy {
		case MergePreferExisting:
			// Keep existing
		case MergePreferNew:
			l.Targets[name] = newEntry
		case MergeErrorOnConflict:
			return fmt.Errorf("conflict for target %s: existing=%s, new=%s", name, existing.SrcHash, newEntry.SrcHash)
		}
	}
	return nil
}

// Diff returns the targets that differ between l and other.
func (l *Lockfile) Diff(other *Lockfile) *LockfileDiff {
	diff := &LockfileDiff{}

	for name, e := range other.Targets {
		existing, exists := l.Targets[name]
		if !exists {
			diff.Added = append(diff.Added, name)
		} else if !existing.Equal(e) {
			diff.Changed = append(diff.Changed, name)
		}
	}
	for name := range l.Targets {
		if _, exists := other.Targets[name]; !exists {
			diff.Removed = append(diff.Removed, name)
		}
	}

	if l.Version != other.Version {
		diff.VersionChanged = true
		diff.OldVersion = l.Version
		diff.NewVersion = other.Version
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}

// LockfileDiff describes differences between two lockfiles.
type LockfileDiff struct {
	VersionChanged bool
	OldVersion     int
	NewVersion     int

	Added   []string
	Removed []string
	Changed []string
}

// IsEmpty returns true if there are no differences.
func (d *LockfileDiff) IsEmpty() bool {
	return !d.VersionChanged &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0
}

// Summary returns a human-readable summary of the differences.
func (d *LockfileDiff) Summary() string {
	if d.IsEmpty() {
		return "no changes"
	}

	var b strings.Builder
	if d.VersionChanged {
		fmt.Fprintf(&b, "version: %d -> %d\n", d.OldVersion, d.NewVersion)
	}
	if len(d.Added) > 0 {
		fmt.Fprintf(&b, "added: %s\n", strings.Join(d.Added, ", "))
	}
	if len(d.Removed) > 0 {
		fmt.Fprintf(&b, "removed: %s\n", strings.Join(d.Removed, ", "))
	}
	if len(d.Changed) > 0 {
		fmt.Fprintf(&b, "changed: %s\n", strings.Join(d.Changed, ", "))
	}
	return b.String()
}

// HashContent computes a SHA256 hash of content for use in lockfiles.
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// VerifyHash checks if content matches the expected hash.
func VerifyHash(content []byte, expectedHash string) bool {
	return HashContent(content) == expectedHash
}
