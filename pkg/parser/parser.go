// Package parser implements the EL grammar (spec.md §3): integer and
// boolean literals, string literals, dotted/bracketed reference paths
// rooted at a field name or at `outer`, arithmetic, comparison and logical
// operators, and parenthesised grouping.
//
// Parsing type-checks every reference against a reference.Context supplied
// by the caller — the codec factory compiling the struct/field layout the
// expression is attached to — so an expression referring to a non-existent
// field, or applying `[n]` to a non-array field, is rejected at parse time
// with a BindingError rather than discovered during decode/encode
// (spec.md §4.3).
//
// The implementation is a hand-written recursive-descent parser using
// Pratt's "Top Down Operator Precedence" algorithm.
package parser

import (
	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// Parse parses source against ctx and returns the compiled, type-checked
// Expression.
func Parse(source string, ctx reference.Context) (*types.Expression, error) {
	p := newParser(source, ctx)
	return p.parse()
}
