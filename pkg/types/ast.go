package types

import (
	"strconv"

	"github.com/preon-go/preon/pkg/resolver"
)

// StaticType is one of the four types an EL node can carry (spec.md §3).
// A node's static type is fixed at construction and never changes.
type StaticType string

const (
	Integer       StaticType = "Integer"
	Boolean       StaticType = "Boolean"
	String        StaticType = "String"
	ReferenceType StaticType = "Reference"
)

// NodeKind identifies the shape of an EL AST node.
type NodeKind string

const (
	NodeIntLiteral    NodeKind = "int"
	NodeBoolLiteral   NodeKind = "bool"
	NodeStringLiteral NodeKind = "string"
	NodeReference     NodeKind = "reference"
	NodeBinary        NodeKind = "binary"
	NodeUnary         NodeKind = "unary"
)

// ReferenceNode is the subset of reference.Reference's behaviour that the EL
// evaluator needs. Declaring it here (rather than importing package
// reference) lets pkg/types and pkg/reference avoid an import cycle:
// reference.Reference implements this interface implicitly.
type ReferenceNode interface {
	// Evaluate resolves the reference against a live Resolver chain. eval
	// evaluates an array-index sub-expression against the same chain.
	Evaluate(r resolver.Resolver, eval NodeEvaluator) (interface{}, error)
	// StaticType returns the type of the reference's final segment.
	StaticType() StaticType
	// Document renders a stable human-readable form of the reference path.
	Document() string
	// Equal reports same-path equality (spec.md §4.3).
	Equal(other ReferenceNode) bool
}

// Node is a typed EL AST node. Binary and unary operator nodes hold pointers
// to child nodes; literal nodes hold a pre-typed value; reference nodes hold
// a ReferenceNode produced by the reference-model package during parsing.
//
// Node is immutable after construction (spec.md §3 invariant): none of its
// fields are mutated once Parse returns.
type Node struct {
	Kind       NodeKind
	Type       StaticType
	Position   int

	IntValue  int64
	BoolValue bool
	StrValue  string

	Ref ReferenceNode

	Operator string // "+" "-" "*" "/" "%" "^" "<" "<=" ">" ">=" "==" "!=" "and" "or" "not"
	LHS      *Node
	RHS      *Node // nil for the unary "not" node
}

// NewLiteralInt creates an Integer literal node.
func NewLiteralInt(v int64, pos int) *Node {
	return &Node{Kind: NodeIntLiteral, Type: Integer, IntValue: v, Position: pos}
}

// NewLiteralBool creates a Boolean literal node.
func NewLiteralBool(v bool, pos int) *Node {
	return &Node{Kind: NodeBoolLiteral, Type: Boolean, BoolValue: v, Position: pos}
}

// NewLiteralString creates a String literal node.
func NewLiteralString(v string, pos int) *Node {
	return &Node{Kind: NodeStringLiteral, Type: String, StrValue: v, Position: pos}
}

// NewReferenceNode wraps a resolved ReferenceNode in an AST node.
func NewReferenceNode(ref ReferenceNode, pos int) *Node {
	return &Node{Kind: NodeReference, Type: ref.StaticType(), Ref: ref, Position: pos}
}

// NewBinary creates a binary operator node. resultType is determined by the
// parser's typing rules (spec.md §4.2): arithmetic yields Integer, comparison
// and logical operators yield Boolean.
func NewBinary(op string, lhs, rhs *Node, resultType StaticType, pos int) *Node {
	return &Node{Kind: NodeBinary, Type: resultType, Operator: op, LHS: lhs, RHS: rhs, Position: pos}
}

// NewUnary creates a unary "not" node.
func NewUnary(op string, operand *Node, pos int) *Node {
	return &Node{Kind: NodeUnary, Type: Boolean, Operator: op, LHS: operand, Position: pos}
}

// IsParameterless reports whether the subtree contains no references
// (spec.md §3(b), §4.2 constant folding).
func (n *Node) IsParameterless() bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case NodeReference:
		return false
	case NodeBinary:
		return n.LHS.IsParameterless() && n.RHS.IsParameterless()
	case NodeUnary:
		return n.LHS.IsParameterless()
	default:
		return true
	}
}

// String returns a string representation of the node kind, for debugging.
func (n *Node) String() string {
	return string(n.Kind)
}

// Document renders n as the infix expression text a reader would recognise
// as the EL source it was parsed from, delegating to the embedded
// ReferenceNode for reference segments (spec.md §9 supplemented feature:
// standalone documentation rendering of an Expression, independent of
// evaluating it).
func (n *Node) Document() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeIntLiteral:
		return strconv.FormatInt(n.IntValue, 10)
	case NodeBoolLiteral:
		return strconv.FormatBool(n.BoolValue)
	case NodeStringLiteral:
		return strconv.Quote(n.StrValue)
	case NodeReference:
		return n.Ref.Document()
	case NodeUnary:
		return n.Operator + " " + n.LHS.Document()
	case NodeBinary:
		return n.LHS.Document() + " " + n.Operator + " " + n.RHS.Document()
	default:
		return n.String()
	}
}
