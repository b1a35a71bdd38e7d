package arith

import (
	"math"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// maxDepth bounds parenthesis, unary-sign and exponent nesting.
const maxDepth = 256

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOperator
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

// Evaluate sanitizes expr and computes it. Supported: decimal numbers,
// + - * / ^ (right associative), unary signs and parentheses.
func Evaluate(expr string) (float64, error) {
	src := strings.TrimSpace(Sanitize(expr))
	if src == "" {
		return 0, goerr.Wrap(ErrEmptyExpression, "nothing to evaluate", goerr.V("expression", expr))
	}

	toks, err := tokenize(src)
	if err != nil {
		return 0, err
	}

	p := &parser{toks: toks, src: src}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, p.unexpected(tok)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, goerr.Wrap(ErrNonFinite, "evaluation overflowed", goerr.V("expression", src))
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return v, nil
}

func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isSpace(rune(c)):
			i++
		case c == '.' || (c >= '0' && c <= '9'):
			start := i
			for i < len(src) && (src[i] == '.' || (src[i] >= '0' && src[i] <= '9')) {
				i++
			}
			text := src[start:i]
			if strings.Count(text, ".") > 1 || text == "." {
				return nil, goerr.Wrap(ErrMalformedExpression, "invalid number",
					goerr.V("number", text), goerr.V("position", start))
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, goerr.Wrap(ErrMalformedExpression, "invalid number",
					goerr.V("number", text), goerr.V("position", start), goerr.V("cause", err.Error()))
			}
			toks = append(toks, token{kind: tokNumber, text: text, value: v, pos: start})
		case strings.IndexByte("+-*/^", c) >= 0:
			toks = append(toks, token{kind: tokOperator, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, goerr.Wrap(ErrMalformedExpression, "unexpected character",
				goerr.V("character", string(c)), goerr.V("position", i))
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

type parser struct {
	toks  []token
	src   string
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOperator(ops string) bool {
	tok := p.peek()
	return tok.kind == tokOperator && strings.Contains(ops, tok.text)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return goerr.Wrap(ErrMalformedExpression, "expression nested too deeply",
			goerr.V("max_depth", maxDepth))
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) unexpected(tok token) error {
	if tok.kind == tokEOF {
		return goerr.Wrap(ErrMalformedExpression, "unexpected end of expression",
			goerr.V("expression", p.src))
	}
	return goerr.Wrap(ErrMalformedExpression, "unexpected token",
		goerr.V("token", tok.text), goerr.V("position", tok.pos), goerr.V("expression", p.src))
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.isOperator("+-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.isOperator("*/") {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op.text == "*" {
			left *= right
			continue
		}
		if right == 0 {
			return 0, goerr.Wrap(ErrDivisionByZero, "cannot divide by zero",
				goerr.V("position", op.pos), goerr.V("expression", p.src))
		}
		left /= right
	}
	return left, nil
}

// unary := ('+' | '-') unary | power
func (p *parser) parseUnary() (float64, error) {
	if !p.isOperator("+-") {
		return p.parsePower()
	}
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	op := p.next().text
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if op == "-" {
		return -v, nil
	}
	return v, nil
}

// power := primary ('^' unary)?
func (p *parser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if !p.isOperator("^") {
		return base, nil
	}
	p.next()
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

// primary := number | '(' expr ')'
func (p *parser) parsePrimary() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.value, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()

		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, p.unexpected(closing)
		}
		return v, nil
	default:
		return 0, p.unexpected(tok)
	}
}
