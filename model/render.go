package model

import (
	"fmt"
	"strings"

	"github.com/vk/mzngo/value"
	"github.com/zclconf/go-cty/cty"
)

// Rendered is a model flattened into what the driver reads: referenced
// files, a JSON data document and a generated code fragment.
type Rendered struct {
	// Files are the referenced model and data files, in insertion order.
	Files []string
	// Data is the JSON data document, nil when no value was assigned.
	Data []byte
	// Code is the generated fragment: enum declarations, expression
	// assignments and code strings. Empty when there is none.
	Code string
	// Checker is the solution checker path, or "".
	Checker string
}

// NeedsFragment reports whether a fragment file must be written. The driver
// needs at least one model file, so a model with no files always gets one.
func (r Rendered) NeedsFragment() bool {
	return r.Code != "" || len(r.Files) == 0
}

// Render flattens the model.
func (m *Model) Render() (Rendered, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var r Rendered
	var code strings.Builder
	data := make(map[string]cty.Value)

	for _, name := range m.names {
		a := m.data[name]
		switch {
		case a.enum:
			code.WriteString(value.EnumDeclDZN(name, m.enums.Members(name)))
		case a.expr != "":
			fmt.Fprintf(&code, "%s = %s;\n", name, a.expr)
		default:
			data[name] = a.value
		}
	}
	for _, f := range m.fragments {
		switch f.Kind {
		case FileFragment:
			r.Files = append(r.Files, f.Path)
		default:
			code.WriteString(f.Text)
			if !strings.HasSuffix(f.Text, "\n") {
				code.WriteByte('\n')
			}
		}
	}
	if len(data) > 0 {
		b, err := value.EncodeJSONObject(data)
		if err != nil {
			return Rendered{}, fmt.Errorf("rendering model data: %w", err)
		}
		r.Data = b
	}
	r.Code = code.String()
	r.Checker = m.checker
	return r, nil
}

// DZN renders every host-valued assignment as text data, in assignment
// order.
func (m *Model) DZN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b strings.Builder
	for _, name := range m.names {
		a := m.data[name]
		if a.enum || a.expr != "" {
			continue
		}
		line, err := value.AssignmentDZN(name, a.value)
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", name, err)
		}
		b.WriteString(line)
	}
	return b.String(), nil
}
