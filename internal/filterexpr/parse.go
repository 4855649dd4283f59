package filterexpr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '(':
			l.emit(tokLParen, "(")
		case c == ')':
			l.emit(tokRParen, ")")
		case c == '[':
			l.emit(tokLBracket, "[")
		case c == ']':
			l.emit(tokRBracket, "]")
		case c == '"' || c == '\'':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case c >= '0' && c <= '9':
			l.lexNumber()
		case isIdentStart(rune(c)):
			l.lexIdent()
		case strings.ContainsRune("=!<>+-*/", rune(c)):
			if err := l.lexOp(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, l.pos)
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF, pos: len(src)})
	return l.toks, nil
}

func (l *lexer) emit(kind tokenKind, text string) {
	l.toks = append(l.toks, token{kind: kind, text: text, pos: l.pos})
	l.pos += len(text)
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return fmt.Errorf("unterminated string at %d", start)
	}
	l.toks = append(l.toks, token{kind: tokString, text: l.src[start+1 : l.pos], pos: start})
	l.pos++
	return nil
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] >= '0' && l.src[l.pos] <= '9' || l.src[l.pos] == '.') {
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) lexOp() error {
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "==", "!=", "<=", ">=":
		l.emit(tokOp, two)
		return nil
	}
	one := string(l.src[l.pos])
	switch one {
	case "<", ">", "+", "-", "*", "/":
		l.emit(tokOp, one)
		return nil
	}
	return fmt.Errorf("unexpected operator %q at %d", one, l.pos)
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// parser is a recursive-descent parser over the token stream. Grammar,
// loosest binding first:
//
//	or       := and ("or" and)*
//	and      := unary ("and" unary)*
//	unary    := "not" unary | compare
//	compare  := sum (("=="|"!="|"<"|"<="|">"|">="|"contains") sum)?
//	sum      := product (("+"|"-") product)*
//	product  := atom (("*"|"/") atom)*
//	atom     := number | string | field | "row" "[" string "]"
//	          | "(" or ")" | "-" atom
type parser struct {
	toks []token
	pos  int
}

// Parse compiles one filter expression.
func Parse(src string) (*Filter, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
	return &Filter{src: src, root: root}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptIdent(word string) bool {
	if t := p.peek(); t.kind == tokIdent && t.text == word {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binary{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.acceptIdent("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (expr, error) {
	if p.acceptIdent("not") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unary{op: "not", operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (expr, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if op, ok := p.acceptOp("==", "!=", "<", "<=", ">", ">="); ok {
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return binary{op: op, left: left, right: right}, nil
	}
	if p.acceptIdent("contains") {
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return binary{op: "contains", left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseSum() (expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseProduct() (expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/")
		if !ok {
			return left, nil
		}
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseAtom() (expr, error) {
	if _, ok := p.acceptOp("-"); ok {
		operand, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return unary{op: "-", operand: operand}, nil
	}

	tok := p.next()
	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at %d", tok.text, tok.pos)
		}
		return literal{val: numberVal(d)}, nil
	case tokString:
		return literal{val: stringVal(tok.text)}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("expected ) at %d", t.pos)
		}
		return inner, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return literal{val: boolVal(true)}, nil
		case "false":
			return literal{val: boolVal(false)}, nil
		case "row":
			if t := p.next(); t.kind != tokLBracket {
				return nil, fmt.Errorf("expected [ after row at %d", t.pos)
			}
			col := p.next()
			if col.kind != tokString {
				return nil, fmt.Errorf("expected column name string at %d", col.pos)
			}
			if t := p.next(); t.kind != tokRBracket {
				return nil, fmt.Errorf("expected ] at %d", t.pos)
			}
			return rowAccess{column: col.text}, nil
		case "amount", "to", "from", "posting":
			return field{name: tok.text}, nil
		}
		return nil, fmt.Errorf("unknown identifier %q at %d", tok.text, tok.pos)
	}
	return nil, fmt.Errorf("unexpected token %q at %d", tok.text, tok.pos)
}
