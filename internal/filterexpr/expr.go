// Package filterexpr evaluates user-supplied row filters written in a
// small boolean expression language:
//
//	amount < -1000 and posting contains "fee"
//	from == "12345678" or row["Kategori"] == "Gebyr"
//	not (amount > 0) and amount * 2 <= -500
//
// The language has comparisons, arithmetic, and/or/not, string equality
// and containment, and the named fields amount, to, from, posting plus
// raw row access. Expressions are parsed into an AST and interpreted;
// nothing is ever executed, so a filter can at worst be wrong, not
// harmful.
package filterexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kuvert/internal/core"
)

// Env is the row a filter is evaluated against.
type Env struct {
	Amount  decimal.Decimal
	To      string
	From    string
	Posting string
	Row     core.RawRow
}

// EnvOf builds the evaluation environment of a mapped row.
func EnvOf(m core.MappedRow) Env {
	return Env{Amount: m.Amount, To: m.To, From: m.From, Posting: m.Text, Row: m.Row}
}

var (
	ErrType       = errors.New("type mismatch")
	ErrNotBoolean = errors.New("filter does not evaluate to a boolean")
)

type kind int

const (
	kindNumber kind = iota
	kindString
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	default:
		return "boolean"
	}
}

type value struct {
	kind kind
	num  decimal.Decimal
	str  string
	b    bool
}

func numberVal(d decimal.Decimal) value { return value{kind: kindNumber, num: d} }
func stringVal(s string) value          { return value{kind: kindString, str: s} }
func boolVal(b bool) value              { return value{kind: kindBool, b: b} }

type expr interface {
	eval(env Env) (value, error)
}

// Filter is one compiled filter expression.
type Filter struct {
	src  string
	root expr
}

// Source returns the original expression text.
func (f *Filter) Source() string { return f.src }

// Match evaluates the filter against a row. The expression must produce
// a boolean; anything else is an evaluation error.
func (f *Filter) Match(env Env) (bool, error) {
	v, err := f.root.eval(env)
	if err != nil {
		return false, err
	}
	if v.kind != kindBool {
		return false, fmt.Errorf("%w: got %s", ErrNotBoolean, v.kind)
	}
	return v.b, nil
}

type literal struct {
	val value
}

func (l literal) eval(Env) (value, error) { return l.val, nil }

// field reads one of the canonical named fields.
type field struct {
	name string
}

func (f field) eval(env Env) (value, error) {
	switch f.name {
	case "amount":
		return numberVal(env.Amount), nil
	case "to":
		return stringVal(env.To), nil
	case "from":
		return stringVal(env.From), nil
	case "posting":
		return stringVal(env.Posting), nil
	}
	return value{}, fmt.Errorf("unknown field %q", f.name)
}

// rowAccess reads a raw column by name; absent columns read as "".
type rowAccess struct {
	column string
}

func (r rowAccess) eval(env Env) (value, error) {
	return stringVal(env.Row[r.column]), nil
}

type unary struct {
	op      string
	operand expr
}

func (u unary) eval(env Env) (value, error) {
	v, err := u.operand.eval(env)
	if err != nil {
		return value{}, err
	}
	switch u.op {
	case "not":
		if v.kind != kindBool {
			return value{}, fmt.Errorf("%w: not applied to %s", ErrType, v.kind)
		}
		return boolVal(!v.b), nil
	case "-":
		if v.kind != kindNumber {
			return value{}, fmt.Errorf("%w: negation applied to %s", ErrType, v.kind)
		}
		return numberVal(v.num.Neg()), nil
	}
	return value{}, fmt.Errorf("unknown unary operator %q", u.op)
}

type binary struct {
	op          string
	left, right expr
}

func (b binary) eval(env Env) (value, error) {
	l, err := b.left.eval(env)
	if err != nil {
		return value{}, err
	}
	// and/or short-circuit before the right side is touched.
	switch b.op {
	case "and", "or":
		if l.kind != kindBool {
			return value{}, fmt.Errorf("%w: %s applied to %s", ErrType, b.op, l.kind)
		}
		if b.op == "and" && !l.b {
			return boolVal(false), nil
		}
		if b.op == "or" && l.b {
			return boolVal(true), nil
		}
		r, err := b.right.eval(env)
		if err != nil {
			return value{}, err
		}
		if r.kind != kindBool {
			return value{}, fmt.Errorf("%w: %s applied to %s", ErrType, b.op, r.kind)
		}
		return boolVal(r.b), nil
	}

	r, err := b.right.eval(env)
	if err != nil {
		return value{}, err
	}

	switch b.op {
	case "+", "-", "*", "/":
		return arith(b.op, l, r)
	case "==", "!=":
		return equality(b.op, l, r)
	case "<", "<=", ">", ">=":
		return ordering(b.op, l, r)
	case "contains":
		if l.kind != kindString || r.kind != kindString {
			return value{}, fmt.Errorf("%w: contains needs strings, got %s and %s", ErrType, l.kind, r.kind)
		}
		return boolVal(strings.Contains(strings.ToLower(l.str), strings.ToLower(r.str))), nil
	}
	return value{}, fmt.Errorf("unknown operator %q", b.op)
}

func arith(op string, l, r value) (value, error) {
	if l.kind != kindNumber || r.kind != kindNumber {
		return value{}, fmt.Errorf("%w: %s needs numbers, got %s and %s", ErrType, op, l.kind, r.kind)
	}
	switch op {
	case "+":
		return numberVal(l.num.Add(r.num)), nil
	case "-":
		return numberVal(l.num.Sub(r.num)), nil
	case "*":
		return numberVal(l.num.Mul(r.num)), nil
	default:
		if r.num.IsZero() {
			return value{}, errors.New("division by zero")
		}
		return numberVal(l.num.Div(r.num)), nil
	}
}

func equality(op string, l, r value) (value, error) {
	if l.kind != r.kind {
		return value{}, fmt.Errorf("%w: comparing %s with %s", ErrType, l.kind, r.kind)
	}
	var eq bool
	switch l.kind {
	case kindNumber:
		eq = l.num.Equal(r.num)
	case kindString:
		eq = l.str == r.str
	default:
		eq = l.b == r.b
	}
	if op == "!=" {
		eq = !eq
	}
	return boolVal(eq), nil
}

func ordering(op string, l, r value) (value, error) {
	if l.kind != kindNumber || r.kind != kindNumber {
		return value{}, fmt.Errorf("%w: %s needs numbers, got %s and %s", ErrType, op, l.kind, r.kind)
	}
	c := l.num.Cmp(r.num)
	switch op {
	case "<":
		return boolVal(c < 0), nil
	case "<=":
		return boolVal(c <= 0), nil
	case ">":
		return boolVal(c > 0), nil
	default:
		return boolVal(c >= 0), nil
	}
}
