// Package eval implements the EL evaluator (spec.md §3, §4.2): it walks a
// types.Node tree built by the parser and produces a typed Go value against
// a live resolver.Resolver chain.
//
// Arithmetic is performed in int64 with two's-complement wraparound on
// overflow, matching the bit-width semantics of the fields an EL expression
// typically sizes or guards (spec.md §4.2 "Integer arithmetic"). Logical
// operators short-circuit; string comparison is byte-wise over UTF-8, which
// orders Unicode code points consistently with Go's native string ordering.
package eval

import (
	"fmt"

	"github.com/preon-go/preon/pkg/resolver"
	"github.com/preon-go/preon/pkg/types"
)

// Evaluator evaluates EL AST nodes against a Resolver chain.
type Evaluator struct{}

// New creates an Evaluator. It holds no state and is safe for concurrent use.
func New() *Evaluator {
	return &Evaluator{}
}

// Eval evaluates expr's AST against r.
func (e *Evaluator) Eval(expr *types.Expression, r resolver.Resolver) (interface{}, error) {
	return e.evalNode(expr.AST(), r)
}

// AsNodeEvaluator adapts e to the types.NodeEvaluator callback shape, so
// reference.Reference can evaluate an array-index sub-expression without
// pkg/reference importing pkg/eval.
func (e *Evaluator) AsNodeEvaluator() types.NodeEvaluator {
	return e.evalNode
}

func (e *Evaluator) evalNode(n *types.Node, r resolver.Resolver) (interface{}, error) {
	switch n.Kind {
	case types.NodeIntLiteral:
		return n.IntValue, nil
	case types.NodeBoolLiteral:
		return n.BoolValue, nil
	case types.NodeStringLiteral:
		return n.StrValue, nil
	case types.NodeReference:
		return n.Ref.Evaluate(r, e.evalNode)
	case types.NodeUnary:
		return e.evalUnary(n, r)
	case types.NodeBinary:
		return e.evalBinary(n, r)
	default:
		return nil, types.NewRuntimeError(types.ErrTypeMismatch, fmt.Sprintf("unknown node kind %q", n.Kind), -1, "")
	}
}

// EvalInt evaluates n and requires the result to be an Integer.
func (e *Evaluator) EvalInt(n *types.Node, r resolver.Resolver) (int64, error) {
	v, err := e.evalNode(n, r)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int64)
	if !ok {
		return 0, types.NewRuntimeError(types.ErrTypeMismatch, "expression did not evaluate to an Integer", -1, "")
	}
	return i, nil
}

// EvalBool evaluates n and requires the result to be a Boolean.
func (e *Evaluator) EvalBool(n *types.Node, r resolver.Resolver) (bool, error) {
	v, err := e.evalNode(n, r)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, types.NewRuntimeError(types.ErrTypeMismatch, "expression did not evaluate to a Boolean", -1, "")
	}
	return b, nil
}

func (e *Evaluator) evalUnary(n *types.Node, r resolver.Resolver) (interface{}, error) {
	switch n.Operator {
	case "-":
		v, err := e.EvalInt(n.LHS, r)
		if err != nil {
			return nil, err
		}
		return -v, nil
	case "not":
		v, err := e.EvalBool(n.LHS, r)
		if err != nil {
			return nil, err
		}
		return !v, nil
	default:
		return nil, types.NewRuntimeError(types.ErrTypeMismatch, fmt.Sprintf("unsupported unary operator %q", n.Operator), -1, "")
	}
}

func (e *Evaluator) evalBinary(n *types.Node, r resolver.Resolver) (interface{}, error) {
	switch n.Operator {
	case "and":
		l, err := e.EvalBool(n.LHS, r)
		if err != nil {
			return nil, err
		}
		if !l {
			return false, nil
		}
		return e.EvalBool(n.RHS, r)
	case "or":
		l, err := e.EvalBool(n.LHS, r)
		if err != nil {
			return nil, err
		}
		if l {
			return true, nil
		}
		return e.EvalBool(n.RHS, r)
	}

	if n.Type == types.Boolean && isComparison(n.Operator) {
		return e.evalComparison(n, r)
	}

	l, err := e.EvalInt(n.LHS, r)
	if err != nil {
		return nil, err
	}
	rv, err := e.EvalInt(n.RHS, r)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "+":
		return l + rv, nil
	case "-":
		return l - rv, nil
	case "*":
		return l * rv, nil
	case "/":
		if rv == 0 {
			return nil, types.NewRuntimeError(types.ErrValueOutOfRange, "division by zero", -1, "")
		}
		return l / rv, nil
	case "%":
		if rv == 0 {
			return nil, types.NewRuntimeError(types.ErrValueOutOfRange, "modulo by zero", -1, "")
		}
		return l % rv, nil
	case "^":
		return intPow(l, rv), nil
	default:
		return nil, types.NewRuntimeError(types.ErrTypeMismatch, fmt.Sprintf("unsupported binary operator %q", n.Operator), -1, "")
	}
}

func isComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

// evalComparison evaluates a comparison, allowing either Integer or String
// operands (spec.md §4.2: comparison is defined over same-typed operands of
// either type; mixed-type comparisons are rejected during parsing, never at
// runtime).
func (e *Evaluator) evalComparison(n *types.Node, r resolver.Resolver) (interface{}, error) {
	if n.LHS.Type == types.String {
		l, err := e.evalString(n.LHS, r)
		if err != nil {
			return nil, err
		}
		rv, err := e.evalString(n.RHS, r)
		if err != nil {
			return nil, err
		}
		return compareOrdered(n.Operator, l, rv), nil
	}

	l, err := e.EvalInt(n.LHS, r)
	if err != nil {
		return nil, err
	}
	rv, err := e.EvalInt(n.RHS, r)
	if err != nil {
		return nil, err
	}
	return compareOrdered(n.Operator, l, rv), nil
}

func (e *Evaluator) evalString(n *types.Node, r resolver.Resolver) (string, error) {
	v, err := e.evalNode(n, r)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", types.NewRuntimeError(types.ErrTypeMismatch, "expression did not evaluate to a String", -1, "")
	}
	return s, nil
}

type ordered interface {
	~int64 | ~string
}

func compareOrdered[T ordered](op string, l, r T) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	case "==":
		return l == r
	case "!=":
		return l != r
	}
	return false
}

// intPow computes base^exp with two's-complement wraparound, matching
// fixed-width integer arithmetic. A negative exponent always yields zero,
// since the EL has no rational/floating type to hold a fractional result
// (spec.md §9 Open Question, resolved: integer power truncates to zero for
// negative exponents rather than erroring).
func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}
