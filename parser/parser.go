// Package parser parses the raw annotation syntax found in doc comments.
//
// An annotation starts with '@', names its kind, and optionally has a
// parenthesized argument list:
//
//	@RegisterType(plugin: app.Plugin, generics(uint32), generics(bool))
//	@AutoComponent(plugin: app.Plugin, derive, register, name: "Pos")
//
// Each argument is a bare word (a flag or a positional type), a name-value
// pair, or a named list. The parser assigns no meaning to arguments; that is
// the job of the schema package.
package parser

import (
	"fmt"
	"go/constant"
	"go/token"
	"io"
	"strings"
	"text/scanner"

	"github.com/cockroachdb/errors"
)

const (
	_EOL = iota + 0xE000
	_IDENT
	_STRING_LIT
	_RAW_STRING_LIT
	_RUNE_LIT
	_INT_LIT
	_FLOAT_LIT
	_TRUE
	_FALSE
	_MAP
	_STRUCT
	_INTERFACE
	_ERROR
)

var tokenNames = map[int]string{
	_EOL:            "end-of-line",
	_IDENT:          "identifier",
	_STRING_LIT:     "string literal",
	_RAW_STRING_LIT: "raw string literal",
	_RUNE_LIT:       "rune literal",
	_INT_LIT:        "int literal",
	_FLOAT_LIT:      "float literal",
	_TRUE:           `"true"`,
	_FALSE:          `"false"`,
	_MAP:            `"map"`,
	_STRUCT:         `"struct"`,
	_INTERFACE:      `"interface"`,
	scanner.EOF:     "end of input",
}

func tokenName(t int) string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%q", rune(t))
}

// PositionMapper translates a position in the parsed input into a position in
// the original source. It is used when the input is text extracted from a
// larger file, such as a comment.
type PositionMapper func(scanner.Position) scanner.Position

type tok struct {
	t    int
	text string
	lit  *Literal
	span Span
}

type annoLex struct {
	err    error
	errPos scanner.Position

	nextRune rune
	nextTok  string
	nextPos  scanner.Position

	lastRune rune

	mapper PositionMapper
	s      scanner.Scanner
}

func newLexer(filename string, r io.Reader, mapper PositionMapper) *annoLex {
	var l annoLex
	l.s.Init(r)
	l.s.Filename = filename
	l.s.Mode = l.s.Mode &^ (scanner.ScanComments | scanner.SkipComments)
	l.s.Whitespace = 0
	l.s.Error = func(s *scanner.Scanner, msg string) {
		l.err = errors.New(msg)
		l.errPos = s.Position
	}
	l.mapper = mapper
	return &l
}

var keywords = map[string]int{
	"true":      _TRUE,
	"false":     _FALSE,
	"map":       _MAP,
	"struct":    _STRUCT,
	"interface": _INTERFACE,
}

// a newline that follows one of these is not significant
var trailingRunes = map[rune]struct{}{
	',': {},
	'.': {},
	'(': {},
	'[': {},
	'{': {},
	':': {},
	'*': {},
}

func (l *annoLex) span(start scanner.Position, text string) Span {
	end := start
	for _, r := range text {
		end.Offset += len(string(r))
		if r == '\n' {
			end.Line++
			end.Column = 1
		} else {
			end.Column++
		}
	}
	if l.mapper != nil {
		return Span{Start: l.mapper(start), End: l.mapper(end)}
	}
	return Span{Start: start, End: end}
}

// lex returns all tokens in the input. The final token is always EOF or
// _ERROR.
func (l *annoLex) lex() []tok {
	var toks []tok
	for {
		t := l.next()
		toks = append(toks, t)
		if t.t == scanner.EOF || t.t == _ERROR {
			return toks
		}
	}
}

func (l *annoLex) next() tok {
	for {
		var r rune
		var text string
		var pos scanner.Position
		if l.nextRune != 0 {
			r, text, pos = l.nextRune, l.nextTok, l.nextPos
			l.nextRune = 0
			l.nextTok = ""
			l.nextPos = scanner.Position{}
		} else {
			pos = l.s.Pos()
			r = l.s.Scan()
			text = l.s.TokenText()
			if l.err != nil {
				return tok{t: _ERROR, span: l.span(l.errPos, "")}
			}
		}

		if r == scanner.EOF {
			return tok{t: scanner.EOF, span: l.span(pos, "")}
		}

		// we handle whitespace ourselves so that we can easily know the
		// *start* position for a token (otherwise, scanner package only makes
		// easy to determine *end* position for a token)
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}

		if r == '\n' {
			if _, ok := trailingRunes[l.lastRune]; ok {
				continue
			}
			l.lastRune = r
			return tok{t: _EOL, span: l.span(pos, text)}
		}
		l.lastRune = r

		sp := l.span(pos, text)
		switch r {
		case scanner.Ident:
			if v, ok := keywords[text]; ok {
				return tok{t: v, text: text, span: sp}
			}
			return tok{t: _IDENT, text: text, span: sp}

		case scanner.Int:
			v := constant.MakeFromLiteral(text, token.INT, 0)
			return tok{t: _INT_LIT, text: text, span: sp, lit: &Literal{Val: v, Text: text, span: sp}}

		case scanner.Float:
			v := constant.MakeFromLiteral(text, token.FLOAT, 0)
			return tok{t: _FLOAT_LIT, text: text, span: sp, lit: &Literal{Val: v, Text: text, span: sp}}

		case scanner.Char:
			v := constant.MakeFromLiteral(text, token.CHAR, 0)
			return tok{t: _RUNE_LIT, text: text, span: sp, lit: &Literal{Val: v, Text: text, span: sp}}

		case scanner.String, scanner.RawString:
			v := constant.MakeFromLiteral(text, token.STRING, 0)
			t := _STRING_LIT
			if text[0] == '`' {
				t = _RAW_STRING_LIT
			}
			return tok{t: t, text: text, span: sp, lit: &Literal{Val: v, Text: text, span: sp}}
		}

		return tok{t: int(r), text: text, span: sp}
	}
}

// ParseError describes a syntax error in annotation text.
type ParseError struct {
	err error
	pos scanner.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.pos.Line, e.pos.Column, e.err)
}

func (e *ParseError) Underlying() error {
	return e.err
}

func (e *ParseError) Unwrap() error {
	return e.err
}

func (e *ParseError) Pos() scanner.Position {
	return e.pos
}

// ParseAnnotations parses all annotations in the given input.
func ParseAnnotations(filename string, r io.Reader) ([]Annotation, *ParseError) {
	return ParseAnnotationsWithMapper(filename, r, nil)
}

// ParseAnnotationsWithMapper parses all annotations in the given input. All
// positions recorded in the result (and in a returned error) are first
// translated by the given mapper, which may be nil.
func ParseAnnotationsWithMapper(filename string, r io.Reader, mapper PositionMapper) ([]Annotation, *ParseError) {
	l := newLexer(filename, r, mapper)
	p := annoParser{toks: l.lex()}
	if last := p.toks[len(p.toks)-1]; last.t == _ERROR {
		return nil, &ParseError{err: l.err, pos: last.span.Start}
	}
	annos, err := p.parseAnnotations()
	if err != nil {
		return nil, err
	}
	return annos, nil
}

// ParseAnnotation parses a single annotation from the given string.
func ParseAnnotation(s string) (Annotation, error) {
	annos, err := ParseAnnotations("", strings.NewReader(s))
	if err != nil {
		return Annotation{}, err
	}
	if len(annos) != 1 {
		return Annotation{}, fmt.Errorf("expecting exactly one annotation; found %d", len(annos))
	}
	return annos[0], nil
}

// ParseType parses a type expression from the given string.
func ParseType(s string) (Type, error) {
	l := newLexer("", strings.NewReader(s), nil)
	p := annoParser{toks: l.lex()}
	if last := p.toks[len(p.toks)-1]; last.t == _ERROR {
		return nil, &ParseError{err: l.err, pos: last.span.Start}
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.peek().t != scanner.EOF {
		return nil, p.unexpected("end of input")
	}
	return t, nil
}

type annoParser struct {
	toks []tok
	pos  int
}

func (p *annoParser) peek() tok {
	return p.toks[p.pos]
}

func (p *annoParser) peekAt(n int) tok {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *annoParser) advance() tok {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *annoParser) unexpected(want string) *ParseError {
	t := p.peek()
	return &ParseError{
		err: fmt.Errorf("syntax error: unexpected %s, expecting %s", tokenName(t.t), want),
		pos: t.span.Start,
	}
}

func (p *annoParser) expect(t int) (tok, *ParseError) {
	if p.peek().t != t {
		return tok{}, p.unexpected(tokenName(t))
	}
	return p.advance(), nil
}

func (p *annoParser) skipEOLs() {
	for p.peek().t == _EOL {
		p.advance()
	}
}

func (p *annoParser) parseAnnotations() ([]Annotation, *ParseError) {
	var res []Annotation
	p.skipEOLs()
	for p.peek().t != scanner.EOF {
		a, err := p.parseAnnotation()
		if err != nil {
			return nil, err
		}
		res = append(res, a)
		if t := p.peek().t; t != _EOL && t != scanner.EOF {
			return nil, p.unexpected("end-of-line")
		}
		p.skipEOLs()
	}
	return res, nil
}

func (p *annoParser) parseAnnotation() (Annotation, *ParseError) {
	at, err := p.expect('@')
	if err != nil {
		return Annotation{}, err
	}
	id, err := p.parseIdentifier()
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{Type: id, Span: at.span.Join(id.Span)}
	if p.peek().t != '(' {
		return a, nil
	}
	a.HasArgs = true
	items, end, err := p.parseMetaList()
	if err != nil {
		return Annotation{}, err
	}
	a.Args = items
	a.Span = a.Span.Join(end)
	return a, nil
}

// parseMetaList parses "( meta, meta, ... )" and returns the span of the
// closing paren.
func (p *annoParser) parseMetaList() ([]Meta, Span, *ParseError) {
	if _, err := p.expect('('); err != nil {
		return nil, Span{}, err
	}
	var items []Meta
	for {
		if p.peek().t == ')' {
			break
		}
		m, err := p.parseMeta()
		if err != nil {
			return nil, Span{}, err
		}
		items = append(items, m)
		if p.peek().t != ',' {
			break
		}
		p.advance()
	}
	p.skipEOLs()
	end, err := p.expect(')')
	if err != nil {
		return nil, Span{}, err
	}
	return items, end.span, nil
}

func (p *annoParser) parseMeta() (Meta, *ParseError) {
	p.skipEOLs()
	if p.peek().t == _IDENT {
		switch p.peekAt(1).t {
		case ':':
			name := p.advance()
			p.advance() // ':'
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			return &NameValue{Name: Identifier{Name: name.text, Span: name.span}, Value: v}, nil
		case '(':
			name := p.advance()
			items, end, err := p.parseMetaList()
			if err != nil {
				return nil, err
			}
			return &List{Name: Identifier{Name: name.text, Span: name.span}, Items: items, span: name.span.Join(end)}, nil
		}
	}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Word{Value: v}, nil
}

func (p *annoParser) parseValue() (Value, *ParseError) {
	t := p.peek()
	switch t.t {
	case _STRING_LIT, _RAW_STRING_LIT, _RUNE_LIT, _INT_LIT, _FLOAT_LIT:
		p.advance()
		return t.lit, nil
	case _TRUE, _FALSE:
		p.advance()
		return &Literal{Val: constant.MakeBool(t.t == _TRUE), Text: t.text, span: t.span}, nil
	case '-':
		// negative number
		p.advance()
		n := p.peek()
		if n.t != _INT_LIT && n.t != _FLOAT_LIT {
			return nil, p.unexpected("number")
		}
		p.advance()
		v := constant.UnaryOp(token.SUB, n.lit.Val, 0)
		return &Literal{Val: v, Text: "-" + n.text, span: t.span.Join(n.span)}, nil
	}
	return p.parseType()
}

func (p *annoParser) parseIdentifier() (Identifier, *ParseError) {
	first, err := p.expect(_IDENT)
	if err != nil {
		return Identifier{}, err
	}
	if p.peek().t != '.' {
		return Identifier{Name: first.text, Span: first.span}, nil
	}
	p.advance()
	second, err := p.expect(_IDENT)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{PackageAlias: first.text, Name: second.text, Span: first.span.Join(second.span)}, nil
}

func (p *annoParser) parseType() (Type, *ParseError) {
	t := p.peek()
	switch t.t {
	case _IDENT:
		id, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		nt := &NamedType{Name: id, span: id.Span}
		if p.peek().t == '[' {
			p.advance()
			for {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				nt.Args = append(nt.Args, arg)
				if p.peek().t != ',' {
					break
				}
				p.advance()
			}
			end, err := p.expect(']')
			if err != nil {
				return nil, err
			}
			nt.span = nt.span.Join(end.span)
		}
		return nt, nil

	case '*':
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &PointerType{Elem: elem, span: t.span.Join(elem.Span())}, nil

	case '[':
		p.advance()
		if p.peek().t == ']' {
			p.advance()
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return &SliceType{Elem: elem, span: t.span.Join(elem.Span())}, nil
		}
		n, err := p.expect(_INT_LIT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(']'); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ArrayType{Len: n.lit, Elem: elem, span: t.span.Join(elem.Span())}, nil

	case _MAP:
		p.advance()
		if _, err := p.expect('['); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(']'); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &MapType{Key: key, Elem: elem, span: t.span.Join(elem.Span())}, nil

	case _STRUCT, _INTERFACE:
		p.advance()
		if _, err := p.expect('{'); err != nil {
			return nil, err
		}
		end, err := p.expect('}')
		if err != nil {
			return nil, err
		}
		return &EmptyType{IsStruct: t.t == _STRUCT, span: t.span.Join(end.span)}, nil
	}
	return nil, p.unexpected("type or value")
}
