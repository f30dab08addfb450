package dialogue

import (
	"fmt"
	"sort"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Scope names a variable namespace. The zero value is ScopeLocal.
type Scope int

const (
	// ScopeLocal is private to one session.
	ScopeLocal Scope = iota
	// ScopeGlobal is shared by every session bound to the same Store.
	ScopeGlobal
)

// String returns the scope name used in documents and events.
func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "local"
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "local", "":
		*s = ScopeLocal
	case "global":
		*s = ScopeGlobal
	default:
		return fmt.Errorf("unknown scope: %q", text)
	}
	return nil
}

// Store is a typed variable namespace. A variable's type is fixed by its
// first write; later writes of a different kind are rejected.
//
// Store performs no internal locking. A session's local store is owned by
// that session; a global store shared across sessions running on multiple
// goroutines needs host-provided mutual exclusion.
type Store struct {
	values map[string]expr.Value
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{values: make(map[string]expr.Value)}
}

// Get returns the named variable's value.
func (s *Store) Get(name string) (expr.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set writes a variable. The first write fixes the variable's kind;
// a later write of a different kind fails with VariableTypeError and
// leaves the store unchanged.
func (s *Store) Set(name string, v expr.Value) error {
	if !v.IsValid() {
		return fmt.Errorf("set %s: invalid value", name)
	}
	if prev, ok := s.values[name]; ok && prev.Kind() != v.Kind() {
		return &VariableTypeError{Name: name, Want: prev.Kind().String(), Got: v.Kind().String()}
	}
	s.values[name] = v
	return nil
}

// Len returns the number of variables in the store.
func (s *Store) Len() int { return len(s.values) }

// Names returns all variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export returns a copy of the store's contents, e.g. for snapshots.
func (s *Store) Export() map[string]expr.Value {
	out := make(map[string]expr.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Import replaces the store's contents with a copy of values.
func (s *Store) Import(values map[string]expr.Value) {
	s.values = make(map[string]expr.Value, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}
