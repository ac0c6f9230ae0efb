// Package schema declares, per operation, the exact parameter shape of each
// tool and rejects malformed requests before any script is built or
// executed. Each tool's surface is a discriminated union keyed by an
// "operation" field, so every variant carries its own required fields and
// validation happens at the schema boundary rather than inside handlers.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"omnibridge"
	"omnibridge/internal/coerce"
)

// Type enumerates the parameter types a field can declare.
type Type int

const (
	String Type = iota
	Bool
	Int
	Float
	StringSlice
	Object
	List
	Any
)

// Field declares one parameter of an operation variant.
type Field struct {
	Name     string
	Type     Type
	Required bool
	Enum     []string    // for String fields: permitted values
	Default  interface{} // applied when the field is absent
	NonEmpty bool        // for Object/List fields: at least one member
	Positive bool        // for Int/Float fields: must be > 0
}

// OpSchema is one variant of a tool's discriminated union.
type OpSchema struct {
	Operation string
	Fields    []Field
}

// Union is a tool's full parameter schema, keyed by the operation field.
type Union struct {
	Entity        string
	Discriminator string
	Ops           map[string]OpSchema
}

// NewUnion builds a union keyed by "operation" for the given variants.
func NewUnion(entity string, ops ...OpSchema) Union {
	u := Union{
		Entity:        entity,
		Discriminator: "operation",
		Ops:           make(map[string]OpSchema, len(ops)),
	}
	for _, op := range ops {
		u.Ops[op.Operation] = op
	}
	return u
}

// Operations returns the accepted discriminator values, sorted.
func (u Union) Operations() []string {
	ops := make([]string, 0, len(u.Ops))
	for name := range u.Ops {
		ops = append(ops, name)
	}
	sort.Strings(ops)
	return ops
}

// Describe renders the union for documentation surfaces: each operation with
// its parameter names, optional ones suffixed '?'.
func (u Union) Describe() string {
	var b strings.Builder
	for i, name := range u.Operations() {
		if i > 0 {
			b.WriteString("; ")
		}
		op := u.Ops[name]
		parts := make([]string, 0, len(op.Fields))
		for _, field := range op.Fields {
			if field.Required {
				parts = append(parts, field.Name)
			} else {
				parts = append(parts, field.Name+"?")
			}
		}
		b.WriteString(name)
		b.WriteString("(")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Validate resolves the discriminator, coerces every declared field to its
// type, applies defaults, and enforces required/enum/non-empty rules. It
// returns a normalized parameter map; the input map is never modified.
// Validation failure guarantees no side effect has occurred.
func (u Union) Validate(params map[string]interface{}) (map[string]interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	raw, present := params[u.Discriminator]
	if !present {
		return nil, omnibridge.NewMissingParameterError(u.Entity, u.Discriminator)
	}
	operation, err := coerce.String(raw)
	if err != nil {
		return nil, omnibridge.NewInvalidParameterError(u.Entity, u.Discriminator, err.Error())
	}

	op, known := u.Ops[operation]
	if !known {
		e := omnibridge.NewInvalidOperationError(u.Entity, operation)
		e.Hint = fmt.Sprintf("supported operations: %s", strings.Join(u.Operations(), ", "))
		return nil, e
	}

	out := map[string]interface{}{u.Discriminator: operation}
	opName := u.Entity + "." + operation

	for _, field := range op.Fields {
		value, ok := params[field.Name]
		if !ok || value == nil {
			if field.Required {
				return nil, omnibridge.NewMissingParameterError(opName, field.Name)
			}
			if field.Default != nil {
				out[field.Name] = field.Default
			}
			continue
		}

		coerced, err := coerceField(field, value)
		if err != nil {
			return nil, omnibridge.NewInvalidParameterError(opName, field.Name, err.Error())
		}
		if err := checkField(field, coerced); err != nil {
			return nil, omnibridge.NewInvalidParameterError(opName, field.Name, err.Error())
		}
		out[field.Name] = coerced
	}

	return out, nil
}

func coerceField(field Field, value interface{}) (interface{}, error) {
	switch field.Type {
	case String:
		return coerce.String(value)
	case Bool:
		return coerce.Bool(value)
	case Int:
		return coerce.Int(value)
	case Float:
		return coerce.Float(value)
	case StringSlice:
		return coerce.Strings(value)
	case Object:
		return coerce.Map(value)
	case List:
		return coerce.Slice(value)
	default:
		return value, nil
	}
}

func checkField(field Field, value interface{}) error {
	if len(field.Enum) > 0 {
		s := value.(string)
		for _, allowed := range field.Enum {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("value %q not in [%s]", s, strings.Join(field.Enum, ", "))
	}

	if field.NonEmpty {
		switch t := value.(type) {
		case map[string]interface{}:
			if len(t) == 0 {
				return fmt.Errorf("must contain at least one field")
			}
		case []interface{}:
			if len(t) == 0 {
				return fmt.Errorf("must contain at least one item")
			}
		case []string:
			if len(t) == 0 {
				return fmt.Errorf("must contain at least one item")
			}
		case string:
			if t == "" {
				return fmt.Errorf("must not be empty")
			}
		}
	}

	if field.Positive {
		switch t := value.(type) {
		case int:
			if t <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
		case float64:
			if t <= 0 {
				return fmt.Errorf("must be a positive number")
			}
		}
	}

	return nil
}
