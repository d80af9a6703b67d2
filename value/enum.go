package value

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// EnumMember is an opaque handle for a member of an enumerated type. When no
// mapping is known, only Name (or Enum+Ordinal for anonymous members) is set.
type EnumMember struct {
	Enum    string
	Name    string
	Ordinal int
}

func (m EnumMember) key() string {
	return fmt.Sprintf("%s\x00%s\x00%d", m.Enum, m.Name, m.Ordinal)
}

// String renders the member as it would appear in model text.
func (m EnumMember) String() string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("to_enum(%s,%d)", m.Enum, m.Ordinal)
}

// EnumType is the cty capsule type carrying EnumMember values.
var EnumType = cty.CapsuleWithOps("enum", reflect.TypeOf(EnumMember{}), &cty.CapsuleOps{
	GoString: func(v any) string {
		return fmt.Sprintf("value.EnumVal(%#v)", *v.(*EnumMember))
	},
	TypeGoString: func(reflect.Type) string { return "value.EnumType" },
	Equals: func(a, b any) cty.Value {
		return cty.BoolVal(*a.(*EnumMember) == *b.(*EnumMember))
	},
	RawEquals: func(a, b any) bool {
		return *a.(*EnumMember) == *b.(*EnumMember)
	},
	HashKey: func(v any) string {
		return v.(*EnumMember).key()
	},
})

// EnumVal wraps an enum member as a cty value.
func EnumVal(m EnumMember) cty.Value {
	return cty.CapsuleVal(EnumType, &m)
}

// AsEnum extracts the member from an EnumType value.
func AsEnum(v cty.Value) (EnumMember, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(EnumType) {
		return EnumMember{}, false
	}
	return *v.EncapsulatedValue().(*EnumMember), true
}

// EnumMap is a caller-supplied bidirectional table between member names and
// their declaring enumerated type. It is safe for concurrent use.
type EnumMap struct {
	mu      sync.RWMutex
	byName  map[string]EnumMember
	members map[string][]EnumMember
}

// NewEnumMap creates an empty mapping.
func NewEnumMap() *EnumMap {
	return &EnumMap{
		byName:  make(map[string]EnumMember),
		members: make(map[string][]EnumMember),
	}
}

// Register declares an enumerated type and its members in order. Member names
// must be unique across all enums of one model.
func (m *EnumMap) Register(enum string, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[enum]; ok {
		return fmt.Errorf("enum %q is already registered", enum)
	}
	for _, name := range names {
		if prev, ok := m.byName[name]; ok {
			return fmt.Errorf("identifier %q is used in enums %q and %q", name, prev.Enum, enum)
		}
	}
	list := make([]EnumMember, len(names))
	for i, name := range names {
		mem := EnumMember{Enum: enum, Name: name, Ordinal: i + 1}
		m.byName[name] = mem
		list[i] = mem
	}
	m.members[enum] = list
	return nil
}

// Lookup finds a member by name.
func (m *EnumMap) Lookup(name string) (EnumMember, bool) {
	if m == nil {
		return EnumMember{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.byName[name]
	return mem, ok
}

// Member returns the member of enum at the 1-based ordinal.
func (m *EnumMap) Member(enum string, ordinal int) (EnumMember, bool) {
	if m == nil {
		return EnumMember{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.members[enum]
	if ordinal < 1 || ordinal > len(list) {
		return EnumMember{}, false
	}
	return list[ordinal-1], true
}

// Members returns the members of enum in declaration order.
func (m *EnumMap) Members(enum string) []EnumMember {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]EnumMember(nil), m.members[enum]...)
}

// Enums returns the registered enum names, sorted.
func (m *EnumMap) Enums() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.members))
	for name := range m.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (m *EnumMap) Clone() *EnumMap {
	c := NewEnumMap()
	if m == nil {
		return c
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.byName {
		c.byName[k] = v
	}
	for k, v := range m.members {
		c.members[k] = append([]EnumMember(nil), v...)
	}
	return c
}
