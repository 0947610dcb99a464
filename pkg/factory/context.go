package factory

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// structContext is the reference.Context the factory derives from a
// composite Go type's field layout (spec.md §4.3 "ReferenceContext...
// supplied by the codec factory pipeline, which derives a Context from the
// struct/field layout it is compiling"). Every field of t is statically
// navigable; a scalar field yields a terminal leafContext, a compound
// field (struct/slice/array) yields a further-navigable context.
type structContext struct {
	t     reflect.Type
	outer reference.Context
}

func newStructContext(t reflect.Type, outer reference.Context) *structContext {
	return &structContext{t: t, outer: outer}
}

func (c *structContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	f, ok := c.t.FieldByName(name)
	if !ok {
		for i := 0; i < c.t.NumField(); i++ {
			if strings.EqualFold(c.t.Field(i).Name, name) {
				f, ok = c.t.Field(i), true
				break
			}
		}
	}
	if !ok {
		return nil, "", fmt.Errorf("type %s has no field %q", c.t, name)
	}
	return contextFor(f.Type, c)
}

func (c *structContext) Item() (reference.Context, types.StaticType, error) {
	return nil, "", fmt.Errorf("%s is a composite type, not indexable", c.Name())
}

func (c *structContext) Outer() (reference.Context, error) {
	if c.outer == nil {
		return nil, fmt.Errorf("%s has no enclosing scope", c.Name())
	}
	return c.outer, nil
}

func (c *structContext) Name() string { return c.t.String() }

// listContext is the reference.Context of a slice/array field, navigable
// only via Item() (spec.md §3 "array index" segment).
type listContext struct {
	elemType reflect.Type
	outer    reference.Context
}

func (c *listContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	return nil, "", fmt.Errorf("cannot select field %q from a list", name)
}

func (c *listContext) Item() (reference.Context, types.StaticType, error) {
	return contextFor(c.elemType, c)
}

func (c *listContext) Outer() (reference.Context, error) {
	if c.outer == nil {
		return nil, fmt.Errorf("list context has no enclosing scope")
	}
	return c.outer, nil
}

func (c *listContext) Name() string { return "[]" + c.elemType.String() }

// leafContext is a scalar field's terminal context: no further navigation
// is possible past an Integer/Boolean/String value.
type leafContext struct {
	name string
}

func (c leafContext) Attribute(name string) (reference.Context, types.StaticType, error) {
	return nil, "", fmt.Errorf("cannot select field %q from scalar %s", name, c.name)
}

func (c leafContext) Item() (reference.Context, types.StaticType, error) {
	return nil, "", fmt.Errorf("scalar %s is not indexable", c.name)
}

func (c leafContext) Outer() (reference.Context, error) {
	return nil, fmt.Errorf("scalar %s has no enclosing scope", c.name)
}

func (c leafContext) Name() string { return c.name }

// typeToStatic maps a scalar Go kind to its EL static type.
func typeToStatic(t reflect.Type) (types.StaticType, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return types.Boolean, true
	case reflect.String:
		return types.String, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return types.Integer, true
	default:
		return "", false
	}
}

// contextFor derives the sub-context and static type a field of type t
// resolves to: a scalar yields a terminal leaf, a struct/slice/array
// yields a further-navigable context of static type Reference (spec.md §3
// ReferenceType: "the type of the final segment", used opaquely for
// compound intermediate segments en route to a scalar).
func contextFor(t reflect.Type, outer reference.Context) (reference.Context, types.StaticType, error) {
	if typ, ok := typeToStatic(t); ok {
		return leafContext{name: t.String()}, typ, nil
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return &listContext{elemType: t.Elem(), outer: outer}, types.ReferenceType, nil
	case reflect.Struct:
		return newStructContext(t, outer), types.ReferenceType, nil
	case reflect.Pointer:
		return contextFor(t.Elem(), outer)
	default:
		return nil, "", fmt.Errorf("unsupported field type %s", t)
	}
}
