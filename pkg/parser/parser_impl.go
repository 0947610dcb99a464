package parser

import (
	"fmt"
	"strconv"

	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// parser implements a recursive-descent, Pratt-style parser for the EL
// grammar. Every reference path it builds is type-checked immediately
// against ctx via the reference package's Builder.
type parser struct {
	lexer   *Lexer
	ctx     reference.Context
	current Token
	source  string
}

func newParser(source string, ctx reference.Context) *parser {
	p := &parser{lexer: NewLexer(source), ctx: ctx, source: source}
	p.advance()
	return p
}

func (p *parser) parse() (*types.Expression, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}
	if p.current.Type == TokenEOF {
		return nil, types.NewError(types.ErrEmptyExpression, "empty expression", 0)
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf(types.ErrUnexpectedToken, "unexpected token %q", p.current.Value)
	}
	return types.NewExpression(node, p.source), nil
}

// precedence is the left-binding power of each infix operator. Higher
// values bind more tightly; "^" is right-associative, which parseInfix
// handles by parsing its right operand one binding power lower.
var precedence = map[TokenType]int{
	TokenOr:           10,
	TokenAnd:          20,
	TokenEqual:        30,
	TokenNotEqual:     30,
	TokenLess:         30,
	TokenLessEqual:    30,
	TokenGreater:      30,
	TokenGreaterEqual: 30,
	TokenPlus:         40,
	TokenMinus:        40,
	TokenMult:         50,
	TokenDiv:          50,
	TokenMod:          50,
	TokenPow:          60,
}

func (p *parser) getPrecedence(tt TokenType) int {
	return precedence[tt]
}

func (p *parser) advance() {
	p.current = p.lexer.Next()
}

func (p *parser) errorf(code types.ErrorCode, format string, args ...interface{}) error {
	return types.NewError(code, fmt.Sprintf(format, args...), p.current.Position)
}

// parseExpression implements Pratt's algorithm: rbp is the minimum
// binding power an infix operator must have to continue consuming into
// this call's left-hand side.
func (p *parser) parseExpression(rbp int) (*types.Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		prec := p.getPrecedence(p.current.Type)
		if p.current.Type == TokenPow {
			// same stopping rule as other operators; right associativity
			// comes from parseInfix's lowered binding power for the RHS
			if rbp >= prec {
				break
			}
		} else if rbp >= prec {
			break
		}
		left, err = p.parseInfix(left, prec)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parsePrefix() (*types.Node, error) {
	tok := p.current
	switch tok.Type {
	case TokenInt:
		return p.parseIntLiteral()
	case TokenBoolean:
		p.advance()
		return types.NewLiteralBool(tok.Value == "true", tok.Position), nil
	case TokenString:
		p.advance()
		return types.NewLiteralString(tok.Value, tok.Position), nil
	case TokenParenOpen:
		p.advance()
		node, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenParenClose {
			return nil, p.errorf(types.ErrExpectedToken, "expected %q", ")")
		}
		p.advance()
		return node, nil
	case TokenMinus:
		p.advance()
		operand, err := p.parseExpression(55) // binds tighter than +,-,*,/,% but looser than ^
		if err != nil {
			return nil, err
		}
		if operand.Type != types.Integer {
			return nil, types.NewError(types.ErrTypeMismatch, "unary \"-\" requires an Integer operand", tok.Position)
		}
		return &types.Node{Kind: types.NodeUnary, Type: types.Integer, Operator: "-", LHS: operand, Position: tok.Position}, nil
	case TokenNot:
		p.advance()
		operand, err := p.parseExpression(25)
		if err != nil {
			return nil, err
		}
		if operand.Type != types.Boolean {
			return nil, types.NewError(types.ErrTypeMismatch, "\"not\" requires a Boolean operand", tok.Position)
		}
		return types.NewUnary("not", operand, tok.Position), nil
	case TokenName, TokenOuter:
		return p.parseReference()
	default:
		return nil, p.errorf(types.ErrUnexpectedToken, "unexpected token %q", tok.Value)
	}
}

func (p *parser) parseIntLiteral() (*types.Node, error) {
	tok := p.current
	p.advance()
	var v int64
	var err error
	if len(tok.Value) > 1 && tok.Value[0] == '0' && (tok.Value[1] == 'x' || tok.Value[1] == 'X') {
		v, err = parseInt(tok.Value[2:], 16)
	} else {
		v, err = parseInt(tok.Value, 10)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInvalidNumber, "invalid integer literal "+tok.Value, tok.Position)
	}
	return types.NewLiteralInt(v, tok.Position), nil
}

func parseInt(s string, base int) (int64, error) {
	return strconv.ParseInt(s, base, 64)
}

// parseReference parses a path expression: an optional leading run of
// `outer` segments, then a field name, then zero or more `.name` or
// `[expr]` segments. Every segment is validated against p.ctx as it is
// added (spec.md §4.3).
func (p *parser) parseReference() (*types.Node, error) {
	start := p.current.Position
	b := reference.NewBuilder(p.ctx)

	for p.current.Type == TokenOuter {
		p.advance()
		b.Outer()
		if p.current.Type != TokenDot {
			break
		}
		p.advance()
	}

	if p.current.Type != TokenName {
		return nil, p.errorf(types.ErrUnexpectedToken, "expected a field name, got %q", p.current.Value)
	}
	b.SelectAttribute(p.current.Value)
	p.advance()

	for {
		switch p.current.Type {
		case TokenDot:
			p.advance()
			if p.current.Type != TokenName {
				return nil, p.errorf(types.ErrUnexpectedToken, "expected a field name after \".\"")
			}
			b.SelectAttribute(p.current.Value)
			p.advance()
		case TokenBracketOpen:
			p.advance()
			idx, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if p.current.Type != TokenBracketClose {
				return nil, p.errorf(types.ErrExpectedToken, "expected %q", "]")
			}
			p.advance()
			b.SelectItem(idx)
		default:
			ref, err := b.Build()
			if err != nil {
				return nil, err
			}
			return types.NewReferenceNode(ref, start), nil
		}
	}
}

func (p *parser) parseInfix(left *types.Node, prec int) (*types.Node, error) {
	op := p.current
	isLogical := op.Type == TokenAnd || op.Type == TokenOr
	isComparison := op.Type == TokenEqual || op.Type == TokenNotEqual || op.Type == TokenLess ||
		op.Type == TokenLessEqual || op.Type == TokenGreater || op.Type == TokenGreaterEqual
	p.advance()

	// "^" is right-associative: parse the RHS with a binding power one
	// less than its own so a chain of "^" nests to the right.
	nextRbp := prec
	if op.Type == TokenPow {
		nextRbp = prec - 1
	}
	right, err := p.parseExpression(nextRbp)
	if err != nil {
		return nil, err
	}

	opStr := opSymbol(op.Type)

	if isLogical {
		if left.Type != types.Boolean || right.Type != types.Boolean {
			return nil, types.NewError(types.ErrTypeMismatch, "\""+opStr+"\" requires Boolean operands", op.Position)
		}
		return types.NewBinary(opStr, left, right, types.Boolean, op.Position), nil
	}
	if isComparison {
		if left.Type != right.Type {
			return nil, types.NewError(types.ErrTypeMismatch, "cannot compare mismatched static types", op.Position)
		}
		if left.Type != types.Integer && left.Type != types.String {
			return nil, types.NewError(types.ErrTypeMismatch, "comparison requires Integer or String operands", op.Position)
		}
		return types.NewBinary(opStr, left, right, types.Boolean, op.Position), nil
	}

	// Arithmetic.
	if left.Type != types.Integer || right.Type != types.Integer {
		return nil, types.NewError(types.ErrTypeMismatch, "\""+opStr+"\" requires Integer operands", op.Position)
	}
	return types.NewBinary(opStr, left, right, types.Integer, op.Position), nil
}

func opSymbol(tt TokenType) string {
	switch tt {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	case TokenPow:
		return "^"
	case TokenEqual:
		return "=="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	default:
		return "?"
	}
}
