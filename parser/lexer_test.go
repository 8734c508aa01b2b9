package parser

import (
	"go/constant"
	"strings"
	"testing"
	"text/scanner"
)

func TestLexer(t *testing.T) {
	input := `
@pkg.Kind(
	Foo: pkg.Bar,
	baz
)
true map 12 1.5 'a' "s"
`

	cases := []struct {
		tok           int
		lineNo, colNo int
		val           interface{}
	}{
		{_EOL, 1, 1, nil},
		{'@', 2, 1, nil},
		{_IDENT, 2, 2, "pkg"},
		{'.', 2, 5, nil},
		{_IDENT, 2, 6, "Kind"},
		{'(', 2, 10, nil},
		{_IDENT, 3, 2, "Foo"},
		{':', 3, 5, nil},
		{_IDENT, 3, 7, "pkg"},
		{'.', 3, 10, nil},
		{_IDENT, 3, 11, "Bar"},
		{',', 3, 14, nil},
		{_IDENT, 4, 2, "baz"},
		{_EOL, 4, 5, nil},
		{')', 5, 1, nil},
		{_EOL, 5, 2, nil},
		{_TRUE, 6, 1, nil},
		{_MAP, 6, 6, nil},
		{_INT_LIT, 6, 10, 12},
		{_FLOAT_LIT, 6, 13, 1.5},
		{_RUNE_LIT, 6, 17, 'a'},
		{_STRING_LIT, 6, 21, "s"},
		{_EOL, 6, 24, nil},
	}

	l := newLexer("foo", strings.NewReader(input), nil)
	toks := l.lex()
	if len(toks) != len(cases)+1 {
		t.Fatalf("expecting %d tokens, got %d", len(cases)+1, len(toks))
	}
	if last := toks[len(toks)-1]; last.t != scanner.EOF {
		t.Fatalf("expecting final token to be EOF, got %s", tokenName(last.t))
	}

	for i, tc := range cases {
		tk := toks[i]
		if tk.t != tc.tok {
			t.Fatalf("case %d: expecting token %s, got %s", i+1, tokenName(tc.tok), tokenName(tk.t))
		}
		p := tk.span.Start
		if p.Line != tc.lineNo || p.Column != tc.colNo {
			t.Fatalf("case %d: expecting position %d:%d, got %d:%d", i+1, tc.lineNo, tc.colNo, p.Line, p.Column)
		}

		var val interface{}
		switch tk.t {
		case _IDENT:
			val = tk.text
		case _STRING_LIT:
			val = constant.StringVal(tk.lit.Val)
		case _RUNE_LIT:
			r, _ := constant.Int64Val(tk.lit.Val)
			val = rune(r)
		case _INT_LIT:
			in, _ := constant.Int64Val(tk.lit.Val)
			val = int(in)
		case _FLOAT_LIT:
			val, _ = constant.Float64Val(tk.lit.Val)
		}
		if val != tc.val {
			t.Fatalf("case %d: expecting value %v but got %v", i+1, tc.val, val)
		}
	}
}

func TestLexerMapper(t *testing.T) {
	shift := func(p scanner.Position) scanner.Position {
		p.Line += 10
		p.Column += 3
		return p
	}
	l := newLexer("foo.go", strings.NewReader("@Kind"), shift)
	toks := l.lex()
	if toks[0].span.Start.Line != 11 || toks[0].span.Start.Column != 4 {
		t.Fatalf("expecting mapped position 11:4, got %d:%d", toks[0].span.Start.Line, toks[0].span.Start.Column)
	}
}
