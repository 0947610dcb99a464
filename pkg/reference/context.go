// Package reference implements the EL reference model (spec.md §3, §4.3):
// a path of segments rooted in a build-time ReferenceContext, resolved
// late against a runtime Resolver.
//
// A Reference is built incrementally — SelectAttribute, SelectItem,
// Narrow, Outer — mirroring the parser's left-to-right consumption of a
// path expression such as `outer.header.length[0]`. Every segment is
// validated against the ReferenceContext at construction time: a Reference
// with an unresolvable segment is rejected during parsing (BindingError),
// never at decode/encode time.
package reference

import (
	"github.com/preon-go/preon/pkg/types"
)

// Context is the build-time schema-of-names a Reference is type-checked
// against. Given a starting context, it yields the sub-context produced by
// selecting a named property, by indexing into an array, or by stepping out
// to the enclosing scope. Implementations are supplied by the codec
// factory pipeline, which derives a Context from the struct/field layout it
// is compiling (spec.md §4.3 "ReferenceContext").
type Context interface {
	// Attribute returns the sub-context and static type of the named
	// property, or an error if no such property exists in this context.
	Attribute(name string) (Context, types.StaticType, error)
	// Item returns the sub-context and static type of this context's
	// array elements, or an error if this context is not indexable.
	Item() (Context, types.StaticType, error)
	// Outer returns the context enclosing this one, or an error if this
	// context has no enclosing scope (it is the root).
	Outer() (Context, error)
	// Name returns a human-readable name for this context, used when
	// rendering documentation (spec.md §4.2 "Documentation rendering").
	Name() string
}
