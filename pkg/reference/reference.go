package reference

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

type segmentKind int

const (
	segAttribute segmentKind = iota
	segItem
	segOuter
)

// segment is one step of a Reference's path. Index segments carry an
// arbitrary Integer-typed EL node (spec.md §3: "array index (itself an
// Expression of Integer type)") rather than a literal, so `a[n+1]` is
// representable.
type segment struct {
	kind      segmentKind
	name      string
	indexExpr *types.Node
}

// Reference is a path of segments rooted in a Context, carrying the static
// type of its final segment. It is immutable after Build.
type Reference struct {
	root       Context
	segments   []segment
	staticType types.StaticType
}

// Builder incrementally constructs a Reference, type-checking each segment
// against the Context as it is added (spec.md §4.3).
type Builder struct {
	root     Context
	ctx      Context
	segments []segment
	typ      types.StaticType
	err      error
}

// NewBuilder starts building a Reference rooted at ctx.
func NewBuilder(ctx Context) *Builder {
	return &Builder{root: ctx, ctx: ctx}
}

// SelectAttribute appends a named-property segment.
func (b *Builder) SelectAttribute(name string) *Builder {
	if b.err != nil {
		return b
	}
	next, typ, err := b.ctx.Attribute(name)
	if err != nil {
		b.err = types.NewError(types.ErrUnresolvedReference,
			fmt.Sprintf("no such field %q in %s", name, b.ctx.Name()), -1).WithCause(err)
		return b
	}
	b.segments = append(b.segments, segment{kind: segAttribute, name: name})
	b.ctx, b.typ = next, typ
	return b
}

// SelectItem appends an array-index segment. indexExpr must be a
// built, type-checked Integer expression (the caller — the parser —
// already rejected a non-Integer index before calling this).
func (b *Builder) SelectItem(indexExpr *types.Node) *Builder {
	if b.err != nil {
		return b
	}
	if indexExpr.Type != types.Integer {
		b.err = types.NewError(types.ErrTypeMismatch, "array index must be an Integer expression", indexExpr.Position)
		return b
	}
	next, typ, err := b.ctx.Item()
	if err != nil {
		b.err = types.NewError(types.ErrUnresolvedReference,
			fmt.Sprintf("%s is not indexable", b.ctx.Name()), -1).WithCause(err)
		return b
	}
	b.segments = append(b.segments, segment{kind: segItem, indexExpr: indexExpr})
	b.ctx, b.typ = next, typ
	return b
}

// Outer appends an outer-scope segment, walking up one enclosing scope.
func (b *Builder) Outer() *Builder {
	if b.err != nil {
		return b
	}
	next, err := b.ctx.Outer()
	if err != nil {
		b.err = types.NewError(types.ErrUnresolvedReference, "no enclosing scope", -1).WithCause(err)
		return b
	}
	b.segments = append(b.segments, segment{kind: segOuter})
	b.ctx = next
	return b
}

// Narrow statically downcasts the reference to a different static type,
// used by choice codecs whose branches share a reference but disagree on
// type (spec.md §4.3 ".narrow(type)").
func (b *Builder) Narrow(t types.StaticType) *Builder {
	if b.err != nil {
		return b
	}
	b.typ = t
	return b
}

// Build finalises the Reference, or returns the first error encountered
// while adding segments.
func (b *Builder) Build() (*Reference, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Reference{root: b.root, segments: append([]segment(nil), b.segments...), staticType: b.typ}, nil
}

// StaticType implements types.ReferenceNode.
func (r *Reference) StaticType() types.StaticType {
	return r.staticType
}

// Evaluate implements types.ReferenceNode. The first segment is resolved
// against the Resolver chain; subsequent segments navigate into the
// resulting Go value by reflection, since a decoded composite field's value
// is an ordinary Go struct/slice, not itself a Resolver.
func (r *Reference) Evaluate(res resolver.Resolver, eval types.NodeEvaluator) (interface{}, error) {
	cur := res
	var val interface{}
	haveVal := false

	for _, seg := range r.segments {
		switch seg.kind {
		case segOuter:
			if haveVal {
				return nil, types.NewRuntimeError(types.ErrUnresolvedReference,
					"outer segment may only appear before any attribute/item segment", -1, r.Document())
			}
			outer, ok := cur.ResolveOuter()
			if !ok {
				return nil, types.NewRuntimeError(types.ErrUnresolvedReference, "no enclosing scope at runtime", -1, r.Document())
			}
			cur = outer

		case segAttribute:
			if !haveVal {
				v, ok := cur.Get(seg.name)
				if !ok {
					return nil, types.NewRuntimeError(types.ErrUnresolvedReference,
						fmt.Sprintf("field %q not yet bound", seg.name), -1, r.Document())
				}
				val, haveVal = v, true
				continue
			}
			v, err := fieldByName(val, seg.name)
			if err != nil {
				return nil, types.NewRuntimeError(types.ErrUnresolvedReference, err.Error(), -1, r.Document())
			}
			val = v

		case segItem:
			idx, err := eval(seg.indexExpr, res)
			if err != nil {
				return nil, err
			}
			i, ok := idx.(int64)
			if !ok {
				return nil, types.NewRuntimeError(types.ErrTypeMismatch, "array index did not evaluate to an Integer", -1, r.Document())
			}
			if !haveVal {
				return nil, types.NewRuntimeError(types.ErrUnresolvedReference, "index segment with no preceding attribute", -1, r.Document())
			}
			v, err := itemAt(val, i)
			if err != nil {
				return nil, types.NewRuntimeError(types.ErrUnresolvedReference, err.Error(), -1, r.Document())
			}
			val, haveVal = v, true
		}
	}

	// Decoded integer fields carry their Go kind (uint8, int16, a named
	// enum type, ...); the EL's Integer values are always int64.
	switch rv := reflect.ValueOf(val); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), nil
	}
	return val, nil
}

// Document implements types.ReferenceNode, rendering the dotted/bracketed
// path form used in generated documentation (spec.md §4.2).
func (r *Reference) Document() string {
	var b strings.Builder
	for i, seg := range r.segments {
		switch seg.kind {
		case segOuter:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString("outer")
		case segAttribute:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.name)
		case segItem:
			b.WriteByte('[')
			b.WriteString("index expression")
			b.WriteByte(']')
		}
	}
	return b.String()
}

// Equal implements types.ReferenceNode: two References are equal iff their
// segment sequences are equal (spec.md §4.3 "Same-path equality").
func (r *Reference) Equal(other types.ReferenceNode) bool {
	o, ok := other.(*Reference)
	if !ok || len(r.segments) != len(o.segments) {
		return false
	}
	for i, s := range r.segments {
		t := o.segments[i]
		if s.kind != t.kind {
			return false
		}
		if s.kind == segAttribute && s.name != t.name {
			return false
		}
		// Index segments compare equal by shape only: comparing EL
		// sub-expressions for semantic equality is out of scope.
	}
	return true
}

// Rescope produces a Reference valid in outerCtx, given that this Reference
// is valid in innerCtx and innerCtx is itself reachable from outerCtx by
// zero or more Attribute/Item steps (spec.md §4.3 "Rescope"). path is the
// sequence of steps from outerCtx down to innerCtx, outermost first.
func Rescope(r *Reference, outerCtx Context, path []string) (*Reference, error) {
	b := NewBuilder(outerCtx)
	for _, name := range path {
		b.SelectAttribute(name)
		if b.err != nil {
			return nil, b.err
		}
	}
	b.segments = append(b.segments, r.segments...)
	b.typ = r.staticType
	return b.Build()
}

// fieldByName reflects into val's exported field named name (case
// sensitive first, then case-insensitive), supporting both struct values
// and pointers to structs.
func fieldByName(val interface{}, name string) (interface{}, error) {
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil pointer navigating to field %q", name)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot select field %q from non-struct value", name)
	}
	if f := rv.FieldByName(name); f.IsValid() {
		return f.Interface(), nil
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return rv.Field(i).Interface(), nil
		}
	}
	return nil, fmt.Errorf("no field %q", name)
}

// itemAt reflects into val at index i, supporting slices and arrays.
func itemAt(val interface{}, i int64) (interface{}, error) {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot index non-array value")
	}
	if i < 0 || i >= int64(rv.Len()) {
		return nil, fmt.Errorf("index %d out of range (length %d)", i, rv.Len())
	}
	return rv.Index(int(i)).Interface(), nil
}
