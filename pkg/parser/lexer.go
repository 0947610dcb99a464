package parser

import (
	"unicode/utf8"

	"github.com/preon-go/preon/pkg/types"
)

const eof = -1

// Lexer converts EL source text into a sequence of tokens. The
// implementation follows Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string
	length  int
	start   int
	current int
	width   int
	err     error
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, length: len(input)}
}

// Next returns the next token from the input. Past the end of input, Next
// returns TokenEOF forever.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	if ch >= '0' && ch <= '9' {
		l.backup()
		return l.scanNumber()
	}

	l.backup()
	return l.scanName()
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

func (l *Lexer) scanString(quote rune) Token {
Loop:
	for {
		switch l.nextRune() {
		case quote:
			break Loop
		case '\\':
			if r := l.nextRune(); r != eof {
				break
			}
			fallthrough
		case eof:
			return l.error(types.ErrUnterminatedStr, "unterminated string literal")
		}
	}

	l.backup()
	t := l.newToken(TokenString)
	l.acceptRune(quote)
	l.ignore()
	return t
}

// scanNumber reads an integer literal, decimal or hexadecimal
// (0x-prefixed). The EL has no floating-point literal (spec.md §3: the
// only numeric static type is Integer).
func (l *Lexer) scanNumber() Token {
	if l.acceptRune('0') {
		if l.acceptRunes2('x', 'X') {
			l.acceptAll(isHexDigit)
			return l.newToken(TokenInt)
		}
	}
	l.acceptAll(isDigit)
	return l.newToken(TokenInt)
}

// scanName reads an identifier or reserved word.
func (l *Lexer) scanName() Token {
	for {
		ch := l.nextRune()
		if ch == eof {
			break
		}
		if isWhitespace(ch) {
			l.backup()
			break
		}
		if lookupSymbol1(ch) > 0 || lookupSymbol2(ch) != nil {
			l.backup()
			break
		}
	}

	t := l.newToken(TokenName)
	if tt := lookupKeyword(t.Value); tt > 0 {
		t.Type = tt
	}
	return t
}

func (l *Lexer) eof() Token {
	return Token{Type: TokenEOF, Position: l.current}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = types.NewError(code, message, t.Position)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{Type: tt, Value: l.input[l.start:l.current], Position: l.start}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool { return c == r })
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool { return c == r1 || c == r2 })
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(isWhitespace)
	l.ignore()
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
