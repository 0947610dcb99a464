package types

import "github.com/preon-go/preon/pkg/resolver"

// NodeEvaluator evaluates a child EL node against a Resolver chain. It is
// passed into ReferenceNode.Evaluate so that an array-index segment
// (itself an arbitrary Integer expression, spec.md §3 "Reference") can be
// evaluated without pkg/types importing the evaluator package.
type NodeEvaluator func(n *Node, r resolver.Resolver) (interface{}, error)

// Expression is a parsed, type-checked EL expression: an AST plus its
// original source text and any recovered parse errors. It is immutable
// after construction and safe to evaluate concurrently against different
// Resolvers (spec.md §5).
type Expression struct {
	ast    *Node
	source string
	errors []error
}

// NewExpression wraps an AST root with its source text.
func NewExpression(ast *Node, source string) *Expression {
	return &Expression{ast: ast, source: source}
}

// AST returns the root of the Abstract Syntax Tree.
func (e *Expression) AST() *Node {
	return e.ast
}

// Source returns the original EL source text.
func (e *Expression) Source() string {
	return e.source
}

// Errors returns any errors collected while parsing in recovery mode.
func (e *Expression) Errors() []error {
	return e.errors
}

// AddError appends a recovered parse error.
func (e *Expression) AddError(err error) {
	e.errors = append(e.errors, err)
}

// IsParameterless reports whether the expression's AST contains no
// references (spec.md §4.2 constant folding).
func (e *Expression) IsParameterless() bool {
	return e.ast.IsParameterless()
}

// String returns the expression's source text.
func (e *Expression) String() string {
	return e.source
}

// Document renders the expression's AST as prose text (spec.md §9
// supplemented feature), independent of its original source string so a
// generated/synthesized expression (e.g. ByteArrayCodec's `lengthExpr * 8`
// SizeExpr) documents sensibly too.
func (e *Expression) Document() string {
	return e.ast.Document()
}
