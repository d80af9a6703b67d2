package protocol

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vk/mzngo/value"
)

// Interface is the driver's description of a model: its solving method and
// its input and output variables.
type Interface struct {
	Method        Method
	Input         *value.Schema
	Output        *value.Schema
	HasOutputItem bool
}

// ParseInterface reads the output of --model-interface-only, either a
// stream holding an "interface" record or a single JSON document.
func ParseInterface(stdout []byte) (*Interface, error) {
	var rec map[string]any
	lines := NewLineReader(bytes.NewReader(stdout), 0)
	for {
		line, err := lines.ReadLine()
		if err != nil {
			break
		}
		obj, err := parseObject(bytes.TrimSpace(line))
		if err != nil {
			continue
		}
		if t, _ := obj["type"].(string); t == "interface" {
			rec = obj
			break
		}
	}
	if rec == nil {
		obj, err := parseObject(stdout)
		if err != nil {
			return nil, fmt.Errorf("reading model interface: %w", err)
		}
		rec = obj
	}

	methodName, _ := rec["method"].(string)
	method, err := ParseMethod(methodName)
	if err != nil {
		return nil, fmt.Errorf("reading model interface: %w", err)
	}
	iface := &Interface{Method: method, HasOutputItem: true}
	if h, ok := rec["has_output_item"].(bool); ok {
		iface.HasOutputItem = h
	}
	// Inputs of types the codec cannot carry (e.g. annotations) are left
	// out; they can still be assigned as expressions.
	iface.Input = value.NewSchema()
	in, _ := rec["input"].(map[string]any)
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, ok := in[name].(map[string]any)
		if !ok {
			continue
		}
		if typ, err := value.FromInterface(t); err == nil {
			iface.Input.Set(name, typ)
		}
	}
	out, _ := rec["output"].(map[string]any)
	if iface.Output, err = value.FromInterfaceOutput(out); err != nil {
		return nil, fmt.Errorf("reading model outputs: %w", err)
	}
	return iface, nil
}
