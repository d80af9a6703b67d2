// This file parses HCL type expressions (e.g. `int`, `array(int, 2)`,
// `set(enum(Color))`) into declared solver types. It is used for output-shape
// overrides, both from Go code and from solve plan files.

package value

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseTypeExpr parses a type expression from source text.
func ParseTypeExpr(src string) (Type, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<type>", hcl.InitialPos)
	if diags.HasErrors() {
		return Type{}, fmt.Errorf("invalid type expression %q: %w", src, diags)
	}
	return TypeFromExpr(expr)
}

// MustParseTypeExpr is ParseTypeExpr for static expressions; it panics on error.
func MustParseTypeExpr(src string) Type {
	t, err := ParseTypeExpr(src)
	if err != nil {
		panic(err)
	}
	return t
}

// TypeFromExpr converts an HCL expression into a declared type.
func TypeFromExpr(expr hcl.Expression) (Type, error) {
	if expr == nil {
		return Type{}, fmt.Errorf("missing type expression")
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return Type{}, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch name := v.Traversal.RootName(); name {
		case "int":
			return Int, nil
		case "float":
			return Float, nil
		case "bool":
			return Bool, nil
		case "string":
			return String, nil
		default:
			return Type{}, fmt.Errorf("unknown primitive type %q", name)
		}

	case *hclsyntax.FunctionCallExpr:
		switch v.Name {
		case "enum":
			if len(v.Args) != 1 {
				return Type{}, fmt.Errorf("enum() requires exactly one argument, got %d", len(v.Args))
			}
			name, err := identOrString(v.Args[0])
			if err != nil {
				return Type{}, fmt.Errorf("enum(): %w", err)
			}
			return EnumOf(name), nil

		case "set":
			if len(v.Args) != 1 {
				return Type{}, fmt.Errorf("set() requires exactly one argument, got %d", len(v.Args))
			}
			elem, err := TypeFromExpr(v.Args[0])
			if err != nil {
				return Type{}, err
			}
			return SetOf(elem), nil

		case "array":
			if len(v.Args) < 1 || len(v.Args) > 2 {
				return Type{}, fmt.Errorf("array() takes an element type and an optional dimension count, got %d arguments", len(v.Args))
			}
			elem, err := TypeFromExpr(v.Args[0])
			if err != nil {
				return Type{}, err
			}
			dims := 1
			if len(v.Args) == 2 {
				dims, err = literalInt(v.Args[1])
				if err != nil {
					return Type{}, fmt.Errorf("array(): %w", err)
				}
				if dims < 1 {
					return Type{}, fmt.Errorf("array(): dimension count must be positive, got %d", dims)
				}
			}
			return ArrayOf(dims, elem), nil

		case "tuple":
			elems := make([]Type, 0, len(v.Args))
			for i, arg := range v.Args {
				t, err := TypeFromExpr(arg)
				if err != nil {
					return Type{}, fmt.Errorf("tuple element %d: %w", i, err)
				}
				elems = append(elems, t)
			}
			return TupleOf(elems...), nil

		case "record":
			if len(v.Args) != 1 {
				return Type{}, fmt.Errorf("the record() type constructor requires exactly one argument (the field definition), got %d", len(v.Args))
			}
			objExpr, ok := v.Args[0].(*hclsyntax.ObjectConsExpr)
			if !ok {
				return Type{}, fmt.Errorf("the argument to record() must be an object literal like { key = type, ... }, got %T", v.Args[0])
			}
			fields, err := FieldsFromObjectExpr(objExpr)
			if err != nil {
				return Type{}, err
			}
			return RecordOf(fields...), nil

		default:
			return Type{}, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	default:
		return Type{}, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

// FieldsFromObjectExpr reads `{ name = type, ... }` into fields, in source
// order.
func FieldsFromObjectExpr(objExpr *hclsyntax.ObjectConsExpr) ([]Field, error) {
	fields := make([]Field, 0, len(objExpr.Items))
	for _, item := range objExpr.Items {
		key := ""
		// Keys are wrapped; unwrap and accept bare identifiers or quoted strings.
		if keyExpr, ok := item.KeyExpr.(*hclsyntax.ObjectConsKeyExpr); ok {
			if k, err := identOrString(keyExpr.Wrapped); err == nil {
				key = k
			}
		}
		if key == "" {
			return nil, fmt.Errorf("invalid key in type definition: keys must be simple identifiers or quoted strings, not complex expressions")
		}
		t, err := TypeFromExpr(item.ValueExpr)
		if err != nil {
			return nil, fmt.Errorf("in field '%s': %w", key, err)
		}
		fields = append(fields, Field{Name: key, Type: t})
	}
	return fields, nil
}

func identOrString(expr hcl.Expression) (string, error) {
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) == 1 {
			return e.Traversal.RootName(), nil
		}
	case *hclsyntax.TemplateExpr:
		if len(e.Parts) == 1 {
			if lit, ok := e.Parts[0].(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString(), nil
			}
		}
	}
	return "", fmt.Errorf("expected an identifier or a quoted string, got %T", expr)
}

func literalInt(expr hcl.Expression) (int, error) {
	lit, ok := expr.(*hclsyntax.LiteralValueExpr)
	if !ok || !lit.Val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected an integer literal, got %T", expr)
	}
	n, acc := lit.Val.AsBigFloat().Int64()
	if acc != 0 {
		return 0, fmt.Errorf("expected an integer literal, got %s", lit.Val.AsBigFloat().String())
	}
	return int(n), nil
}
