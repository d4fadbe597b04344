package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// EvalFormula evaluates a restricted expression against a row context.
// The grammar covers arithmetic, string concatenation, comparisons,
// boolean operators, parentheses, literals, context field lookups and a
// small function whitelist (concat, upper, lower, trim, strip_html,
// round, coalesce).
// Nothing outside the grammar is reachable; field lookups only read the
// context. Errors never abort a row: the caller maps them to nil cells.
func EvalFormula(expr string, ctx RowContext) (interface{}, error) {
	p := &formulaParser{input: expr, ctx: ctx}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos:], p.pos)
	}
	return v, nil
}

type formulaParser struct {
	input string
	pos   int
	ctx   RowContext
}

func (p *formulaParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *formulaParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *formulaParser) accept(s string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// expr := or
func (p *formulaParser) parseExpr() (interface{}, error) {
	return p.parseOr()
}

func (p *formulaParser) parseOr() (interface{}, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *formulaParser) parseAnd() (interface{}, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *formulaParser) parseComparison() (interface{}, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.accept(op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return compare(op, left, right)
		}
	}
	return left, nil
}

func (p *formulaParser) parseAdditive() (interface{}, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		if p.accept("+") {
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = add(left, right)
		} else if p.accept("-") {
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			ln, lerr := toNumber(left)
			rn, rerr := toNumber(right)
			if lerr != nil || rerr != nil {
				return nil, fmt.Errorf("non-numeric operand for -")
			}
			left = ln - rn
		} else {
			return left, nil
		}
	}
}

func (p *formulaParser) parseMultiplicative() (interface{}, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		if p.accept("*") {
			op = '*'
		} else if p.accept("/") {
			op = '/'
		} else if p.accept("%") {
			op = '%'
		} else {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ln, lerr := toNumber(left)
		rn, rerr := toNumber(right)
		if lerr != nil || rerr != nil {
			return nil, fmt.Errorf("non-numeric operand for %c", op)
		}
		switch op {
		case '*':
			left = ln * rn
		case '/':
			if rn == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			left = ln / rn
		case '%':
			if rn == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(ln, rn)
		}
	}
}

func (p *formulaParser) parseUnary() (interface{}, error) {
	if p.accept("!") {
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	p.skipSpace()
	if p.peek() == '-' {
		// unary minus only when followed by a value, not a binary use
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n, err := toNumber(v)
		if err != nil {
			return nil, fmt.Errorf("non-numeric operand for unary -")
		}
		return -n, nil
	}
	return p.parsePrimary()
}

func (p *formulaParser) parsePrimary() (interface{}, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	ch := p.input[p.pos]

	if ch == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return v, nil
	}
	if ch == '\'' || ch == '"' {
		return p.parseString(ch)
	}
	if ch >= '0' && ch <= '9' || ch == '.' {
		return p.parseNumber()
	}
	if isIdentStart(rune(ch)) {
		return p.parseIdent()
	}
	return nil, fmt.Errorf("unexpected character %q at offset %d", ch, p.pos)
}

func (p *formulaParser) parseString(quote byte) (interface{}, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unterminated string literal")
	}
	s := p.input[start:p.pos]
	p.pos++
	return s, nil
}

func (p *formulaParser) parseNumber() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	return n, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '#' || r == '.' || r == '-'
}

func (p *formulaParser) parseIdent() (interface{}, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
		p.pos++
	}
	name := p.input[start:p.pos]

	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	p.skipSpace()
	if p.peek() == '(' {
		return p.parseCall(name)
	}

	// bare identifiers read from the context; absent keys resolve nil
	v, _ := p.ctx.Lookup(name)
	return v, nil
}

func (p *formulaParser) parseCall(name string) (interface{}, error) {
	p.pos++ // consume (
	var args []interface{}
	p.skipSpace()
	if p.peek() != ')' {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.accept(",") {
				break
			}
		}
	}
	if !p.accept(")") {
		return nil, fmt.Errorf("missing closing parenthesis in call to %s", name)
	}
	return callFunction(name, args)
}

func callFunction(name string, args []interface{}) (interface{}, error) {
	switch name {
	case "concat":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(Stringify(a))
		}
		return b.String(), nil
	case "upper":
		if len(args) != 1 {
			return nil, fmt.Errorf("upper takes 1 argument")
		}
		return strings.ToUpper(Stringify(args[0])), nil
	case "lower":
		if len(args) != 1 {
			return nil, fmt.Errorf("lower takes 1 argument")
		}
		return strings.ToLower(Stringify(args[0])), nil
	case "trim":
		if len(args) != 1 {
			return nil, fmt.Errorf("trim takes 1 argument")
		}
		return strings.TrimSpace(Stringify(args[0])), nil
	case "strip_html":
		if len(args) != 1 {
			return nil, fmt.Errorf("strip_html takes 1 argument")
		}
		return StripHTML(Stringify(args[0])), nil
	case "round":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("round takes 1 or 2 arguments")
		}
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		places := 0.0
		if len(args) == 2 {
			places, err = toNumber(args[1])
			if err != nil {
				return nil, err
			}
		}
		scale := math.Pow(10, places)
		return math.Round(n*scale) / scale, nil
	case "coalesce":
		for _, a := range args {
			if !IsEmptyValue(a) {
				return a, nil
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown function %q", name)
}

func add(left, right interface{}) interface{} {
	ln, lerr := toNumber(left)
	rn, rerr := toNumber(right)
	if lerr == nil && rerr == nil {
		return ln + rn
	}
	return Stringify(left) + Stringify(right)
}

func compare(op string, left, right interface{}) (interface{}, error) {
	ln, lerr := toNumber(left)
	rn, rerr := toNumber(right)
	if lerr == nil && rerr == nil {
		switch op {
		case "==":
			return ln == rn, nil
		case "!=":
			return ln != rn, nil
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		case ">":
			return ln > rn, nil
		case ">=":
			return ln >= rn, nil
		}
	}
	ls, rs := Stringify(left), Stringify(right)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	}
	return nil, fmt.Errorf("unknown comparison %q", op)
}

func toNumber(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("nil is not a number")
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}
