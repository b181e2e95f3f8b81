package generate

import (
	"fmt"
	"strings"
)

// Registry hands out monotonically increasing counters, one sequence per
// composite key. Counters start at zero, live for a single build, and are
// shared by reference across a generator family so derived scopes draw from
// the same sequences. Not safe for concurrent use; a registry never crosses
// worker boundaries.
type Registry struct {
	counters map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]int)}
}

// Next returns the current counter for the composite key and increments it.
// The first call for any key returns 0.
func (r *Registry) Next(segments ...any) int {
	key := registryKey(segments)
	value := r.counters[key]
	r.counters[key] = value + 1
	return value
}

// Len returns the number of distinct sequences started.
func (r *Registry) Len() int { return len(r.counters) }

// registryKey encodes opaque segments into a canonical in-process key.
// Including the dynamic type keeps a plain string segment apart from a
// same-text named type (artifact kinds scope counters without ever showing
// up in generated paths).
func registryKey(segments []any) string {
	parts := make([]string, len(segments))
	for i, segment := range segments {
		parts[i] = fmt.Sprintf("%T:%v", segment, segment)
	}
	return strings.Join(parts, "\x1f")
}
