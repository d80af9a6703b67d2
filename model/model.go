package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/mzngo/value"
	"github.com/zclconf/go-cty/cty"
)

// ErrClosed is returned when a branch is mutated after its scope ended.
var ErrClosed = errors.New("model branch is closed")

// FragmentKind tells code text apart from a file reference.
type FragmentKind int

const (
	CodeFragment FragmentKind = iota
	FileFragment
)

// Fragment is one immutable unit of model source or data.
type Fragment struct {
	Kind FragmentKind
	Text string
	Path string
}

// assignment is a parameter value. Exactly one of value, expr or enum is set.
type assignment struct {
	value cty.Value
	expr  string
	enum  bool
}

// Model is an ordered collection of fragments and assignments. It is safe for
// concurrent use.
type Model struct {
	mu        sync.RWMutex
	fragments []Fragment
	names     []string
	data      map[string]assignment
	enums     *value.EnumMap
	output    *value.Schema
	checker   string
	closed    bool
}

// New creates a model from zero or more files.
func New(files ...string) (*Model, error) {
	m := &Model{
		data:  make(map[string]assignment),
		enums: value.NewEnumMap(),
	}
	for _, f := range files {
		if err := m.AddFile(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddString appends a fragment of model code.
func (m *Model) AddString(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.fragments = append(m.fragments, Fragment{Kind: CodeFragment, Text: code})
	return nil
}

// AddFile appends a reference to a model (.mzn), data (.dzn, .json) or
// checker (.mzc) file. The file must exist.
func (m *Model) AddFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("adding model file: %w", err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".mzn", ".dzn", ".json":
	case ".mzc":
		return m.SetChecker(path)
	default:
		return fmt.Errorf("adding model file %s: unknown file suffix %q", path, ext)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.fragments = append(m.fragments, Fragment{Kind: FileFragment, Path: path})
	return nil
}

// Assign sets a parameter from a Go or cty value. Assigning the same name
// again replaces the earlier value.
func (m *Model) Assign(name string, v any) error {
	cv, err := value.FromGo(v)
	if err != nil {
		return fmt.Errorf("assigning %s: %w", name, err)
	}
	return m.set(name, assignment{value: cv})
}

// AssignExpr sets a parameter to a raw model expression, written verbatim
// into the generated model fragment.
func (m *Model) AssignExpr(name, expr string) error {
	return m.set(name, assignment{expr: expr})
}

// DeclareEnum registers an enumerated type and assigns its members.
func (m *Model) DeclareEnum(name string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.enums.Register(name, members...); err != nil {
		return err
	}
	m.setLocked(name, assignment{enum: true})
	return nil
}

func (m *Model) set(name string, a assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.setLocked(name, a)
	return nil
}

func (m *Model) setLocked(name string, a assignment) {
	if _, ok := m.data[name]; !ok {
		m.names = append(m.names, name)
	}
	m.data[name] = a
}

// Get returns the value assigned to name. Expression and enum assignments
// have no host value.
func (m *Model) Get(name string) (cty.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.data[name]
	if !ok || a.expr != "" || a.enum {
		return cty.NilVal, false
	}
	return a.value, true
}

// Assigned returns the assigned parameter names in first-assignment order.
func (m *Model) Assigned() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.names...)
}

// Fragments returns the fragments in insertion order.
func (m *Model) Fragments() []Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Fragment(nil), m.fragments...)
}

// Enums returns the model's enum mapping, used to decode solutions.
func (m *Model) Enums() *value.EnumMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enums
}

// SetOutput overrides the output shape otherwise resolved by analysing the
// model.
func (m *Model) SetOutput(s *value.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.output = s.Clone()
	return nil
}

// Output returns the output-shape override, or nil.
func (m *Model) Output() *value.Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.output.Clone()
}

// SetChecker attaches a solution checker file.
func (m *Model) SetChecker(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.checker = path
	return nil
}

// Checker returns the solution checker path, or "".
func (m *Model) Checker() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checker
}

// Merge appends other's fragments and assignments to m. On a name collision
// the assignment from other wins.
func (m *Model) Merge(other *Model) error {
	if other == m {
		return fmt.Errorf("cannot merge a model into itself")
	}
	o := other.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, enum := range o.enums.Enums() {
		if existing := m.enums.Members(enum); len(existing) > 0 {
			continue
		}
		names := []string{}
		for _, mem := range o.enums.Members(enum) {
			names = append(names, mem.Name)
		}
		if err := m.enums.Register(enum, names...); err != nil {
			return fmt.Errorf("merging models: %w", err)
		}
	}
	m.fragments = append(m.fragments, o.fragments...)
	for _, name := range o.names {
		m.setLocked(name, o.data[name])
	}
	if o.output != nil {
		m.output = o.output
	}
	if o.checker != "" {
		m.checker = o.checker
	}
	return nil
}

// Clone returns an independent deep copy.
func (m *Model) Clone() *Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := &Model{
		fragments: append([]Fragment(nil), m.fragments...),
		names:     append([]string(nil), m.names...),
		data:      make(map[string]assignment, len(m.data)),
		enums:     m.enums.Clone(),
		output:    m.output.Clone(),
		checker:   m.checker,
	}
	for k, v := range m.data {
		c.data[k] = v
	}
	return c
}

// Branch runs fn on an independent copy of m. Whatever fn does to the copy
// is discarded when it returns, whether it returns an error or panics; the
// copy rejects further mutation with ErrClosed.
func (m *Model) Branch(fn func(child *Model) error) error {
	child := m.Clone()
	defer child.close()
	return fn(child)
}

func (m *Model) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
