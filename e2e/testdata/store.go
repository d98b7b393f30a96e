//versioned("1.0","1.1","2.0")
package store

import (
	"errors"
	"fmt"
	"strings" //versioned("1.1")
)

//versioned("2.0")
import "sort"

const (
	KindFile = "file"
	KindDir  = "dir" //versioned("1.1")
)

var ErrNotFound = errors.New("not found")

// Entry is one stored value.
type Entry struct {
	Key   string
	Value string
	Tags  []string //versioned("1.1")
}

// Store looks entries up by key.
type Store interface {
	Get(key string) (Entry, error)
	Keys() []string //versioned("2.0")
}

type memStore struct {
	entries map[string]Entry
}

var _ Store = (*memStore)(nil)

func (m *memStore) Get(key string) (Entry, error) {
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	//versioned("1.1")
	e.Tags = normalize(e.Tags)
	return e, nil
}

//versioned("1.1")
func normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.ToLower(t))
	}
	return out
}

//versioned("2.0")
func (m *memStore) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe flattens e for display.
func Describe(e Entry, verbose bool, done <-chan struct{}) []any {
	out := []any{
		e.Key,
		e.Value, //versioned("1.1")
	}
	switch {
	case verbose:
		out = append(out, "verbose")
	//versioned("2.0")
	case len(out) > 1:
		out = append(out, "long")
	}
	select {
	case <-done:
		out = append(out, "done")
	//versioned("1.1")
	default:
		out = append(out, "pending")
	}
	return append(out,
		/*versioned("2.0")*/ len(e.Value))
}
