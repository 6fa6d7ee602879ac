package expr

import "sort"

// Binding powers, loosest first. '**' is handled in parseUnary.
var precedence = map[string]int{
	"||": 1, "|": 1,
	"&&": 2, "&": 2,
	"<": 3, "<=": 3, ">": 3, ">=": 3, "==": 3, "!=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

// Expression is a parsed formula. It is immutable and may be evaluated
// against any number of tables, concurrently.
type Expression struct {
	source     string
	normalized string
	root       node
}

// Compile normalizes and parses formula text.
func Compile(text string) (*Expression, error) {
	norm := Normalize(text)
	toks, err := tokenize(norm)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxErrorf(t.pos, "unexpected %q", t.text)
	}
	return &Expression{source: text, normalized: norm, root: root}, nil
}

// MustCompile is Compile that panics on error. For tests and fixed formulas.
func MustCompile(text string) *Expression {
	e, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the text the expression was compiled from.
func (e *Expression) Source() string { return e.source }

// Normalized returns the canonical text that was parsed.
func (e *Expression) Normalized() string { return e.normalized }

func (e *Expression) String() string { return e.root.String() }

// Calls returns the distinct operator names the expression calls, sorted.
func (e *Expression) Calls() []string {
	return e.collect(func(n node) (string, bool) {
		c, ok := n.(*callNode)
		if !ok {
			return "", false
		}
		return c.name, true
	})
}

// Identifiers returns the distinct bare names the expression reads, sorted.
func (e *Expression) Identifiers() []string {
	return e.collect(func(n node) (string, bool) {
		id, ok := n.(*identNode)
		if !ok {
			return "", false
		}
		return id.name, true
	})
}

func (e *Expression) collect(pick func(node) (string, bool)) []string {
	seen := map[string]bool{}
	var out []string
	walk(e.root, func(n node) {
		if name, ok := pick(n); ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	})
	sort.Strings(out)
	return out
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		if t.kind == tokEOF {
			return t, syntaxErrorf(t.pos, "expected %s, got end of input", what)
		}
		return t, syntaxErrorf(t.pos, "expected %s, got %q", what, t.text)
	}
	return t, nil
}

// parseTernary: binary ('?' ternary ':' ternary)?
func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	p.next()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	otherwise, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{cond: cond, then: then, otherwise: otherwise}, nil
}

// parseBinary is precedence climbing over the left-associative operators.
func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text, left: left, right: right}
	}
}

// parseUnary handles prefix operators, which bind looser than '**'.
func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+" || t.text == "!" || t.text == "~") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := t.text
		if op == "~" {
			op = "!"
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePower()
}

// parsePower: primary ('**' unary)?, right-associative.
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "**" {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: "**", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{value: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		return &identNode{name: t.text, pos: t.pos}, nil
	case tokLParen:
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokEOF:
		return nil, syntaxErrorf(t.pos, "unexpected end of input")
	default:
		return nil, syntaxErrorf(t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) parseCall(name token) (node, error) {
	p.next() // (
	call := &callNode{name: name.text, pos: name.pos}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		case tokEOF:
			return nil, syntaxErrorf(t.pos, "unclosed call to %s", name.text)
		default:
			return nil, syntaxErrorf(t.pos, "expected ',' or ')' in call to %s, got %q", name.text, t.text)
		}
	}
}
