package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Scope qualifiers recognized in variable references.
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// Compiled is a parsed, reusable expression. Compile once, evaluate many
// times; Compiled is immutable and safe for concurrent use.
type Compiled struct {
	src  string
	root node
}

// Source returns the original expression text. Documents serialize
// guards and conditions from this, so round-trips are lossless.
func (c *Compiled) Source() string { return c.src }

// Compile parses an expression source string.
func Compile(src string) (*Compiled, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &ParseError{Src: src, Pos: p.tok.pos, Msg: fmt.Sprintf("unexpected %q", p.tok.text)}
	}
	return &Compiled{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
// Intended for expressions fixed at program startup.
func MustCompile(src string) *Compiled {
	c, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("expr: %v", err))
	}
	return c
}

// AST node variants. The set is closed; evaluation and static checking
// switch over these types.
type node interface{ nodeExpr() }

type litNode struct{ v Value }

type varNode struct {
	scope string // "", ScopeGlobal or ScopeLocal
	name  string
}

type unaryNode struct {
	op string // "-" or "not"
	x  node
}

type binNode struct {
	op   string
	l, r node
}

func (litNode) nodeExpr()   {}
func (varNode) nodeExpr()   {}
func (unaryNode) nodeExpr() {}
func (binNode) nodeExpr()   {}

// Token kinds.
type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokOp     // == != <= >= < > + - * / ! ( ) .
	tokAnd    // keyword and
	tokOr     // keyword or
	tokNot    // keyword not
	tokTrue   // keyword true
	tokFalse  // keyword false
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) errf(pos int, format string, args ...any) error {
	return &ParseError{Src: l.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) scan() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	ch := l.src[l.pos]

	switch {
	case ch == '\'' || ch == '"':
		quote := ch
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != quote {
			c := l.src[l.pos]
			if c == '\\' && l.pos+1 < len(l.src) {
				l.pos++
				switch l.src[l.pos] {
				case 'n':
					c = '\n'
				case 't':
					c = '\t'
				case 'r':
					c = '\r'
				default:
					// \', \", \\ and anything else escape to the
					// character itself.
					c = l.src[l.pos]
				}
			}
			sb.WriteByte(c)
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, l.errf(start, "unterminated string")
		}
		l.pos++ // closing quote
		return token{kind: tokString, text: sb.String(), pos: start}, nil

	case ch >= '0' && ch <= '9':
		isFloat := false
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if c >= '0' && c <= '9' {
				l.pos++
			} else if c == '.' && !isFloat && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
				isFloat = true
				l.pos++
			} else {
				break
			}
		}
		kind := tokInt
		if isFloat {
			kind = tokFloat
		}
		return token{kind: kind, text: l.src[start:l.pos], pos: start}, nil

	case isIdentStart(rune(ch)):
		for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
			l.pos++
		}
		text := l.src[start:l.pos]
		switch text {
		case "and":
			return token{kind: tokAnd, text: text, pos: start}, nil
		case "or":
			return token{kind: tokOr, text: text, pos: start}, nil
		case "not":
			return token{kind: tokNot, text: text, pos: start}, nil
		case "true":
			return token{kind: tokTrue, text: text, pos: start}, nil
		case "false":
			return token{kind: tokFalse, text: text, pos: start}, nil
		}
		return token{kind: tokIdent, text: text, pos: start}, nil
	}

	// Two-character operators first.
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		switch two {
		case "==", "!=", "<=", ">=":
			l.pos += 2
			return token{kind: tokOp, text: two, pos: start}, nil
		}
	}
	switch ch {
	case '<', '>', '+', '-', '*', '/', '!', '(', ')', '.':
		l.pos++
		return token{kind: tokOp, text: string(ch), pos: start}, nil
	}
	return token{}, l.errf(start, "unexpected character %q", string(ch))
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// parser is a recursive-descent parser with conventional precedence:
// or < and < comparison < additive < multiplicative < unary < primary.
type parser struct {
	lex *lexer
	tok token
}

func (p *parser) next() error {
	tok, err := p.lex.scan()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{Src: p.lex.src, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "or", l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "and", l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokOp {
		switch p.tok.text {
		case "==", "!=", "<", "<=", ">", ">=":
			op := p.tok.text
			if err := p.next(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return binNode{op: op, l: left, r: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	switch {
	case p.tok.kind == tokNot, p.tok.kind == tokOp && p.tok.text == "!":
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "not", x: x}, nil
	case p.tok.kind == tokOp && p.tok.text == "-":
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	switch p.tok.kind {
	case tokInt:
		i, err := strconv.ParseInt(p.tok.text, 10, 64)
		if err != nil {
			return nil, p.errf("bad integer literal %q", p.tok.text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return litNode{v: Int(i)}, nil

	case tokFloat:
		f, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, p.errf("bad float literal %q", p.tok.text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return litNode{v: Float(f)}, nil

	case tokString:
		v := String(p.tok.text)
		if err := p.next(); err != nil {
			return nil, err
		}
		return litNode{v: v}, nil

	case tokTrue:
		if err := p.next(); err != nil {
			return nil, err
		}
		return litNode{v: Bool(true)}, nil

	case tokFalse:
		if err := p.next(); err != nil {
			return nil, err
		}
		return litNode{v: Bool(false)}, nil

	case tokIdent:
		first := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		// Scope-qualified reference: global.name or local.name.
		if (first == ScopeGlobal || first == ScopeLocal) && p.tok.kind == tokOp && p.tok.text == "." {
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent {
				return nil, p.errf("expected variable name after %q", first+".")
			}
			name := p.tok.text
			if err := p.next(); err != nil {
				return nil, err
			}
			return varNode{scope: first, name: name}, nil
		}
		return varNode{name: first}, nil

	case tokOp:
		if p.tok.text == "(" {
			if err := p.next(); err != nil {
				return nil, err
			}
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if p.tok.kind != tokOp || p.tok.text != ")" {
				return nil, p.errf("expected ')'")
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, p.errf("unexpected %q", p.tok.text)
}
