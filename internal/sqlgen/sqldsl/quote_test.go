package sqldsl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single identifier", in: "users", want: `"users"`},
		{name: "dotted identifier", in: "auth.users", want: `"auth"."users"`},
		{name: "trailing space kept", in: "a.b ", want: `"a"."b" `},
		{name: "star", in: "*", want: `*`},
		{name: "qualified star", in: "u.*", want: `"u".*`},
		{name: "digits become literal", in: "1", want: `1`},
		{name: "leading zeros dropped", in: "007", want: `7`},
		{name: "join condition", in: "u.id=a.user_id", want: `"u"."id"="a"."user_id"`},
		{name: "parens are raw", in: "count(*)", want: `count(*)`},
		{name: "function with args is raw", in: "lower(u.name)", want: `lower(u.name)`},
		{name: "empty", in: "", want: ``},
		{name: "unicode word", in: "größe", want: `"größe"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteText(tt.in))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdent("users"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}

func TestParseAlias(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		alias any
		want  Alias
	}{
		{name: "plain", in: "auth.users", want: Alias{Ident: "auth.users"}},
		{name: "space shorthand", in: "auth.users u", want: Alias{Ident: "auth.users", Name: "u"}},
		{name: "as shorthand", in: "auth.users AS u", want: Alias{Ident: "auth.users", Name: "u"}},
		{name: "lowercase as", in: "auth.users as u", want: Alias{Ident: "auth.users", Name: "u"}},
		{name: "explicit alias", in: "auth.users", alias: "x", want: Alias{Ident: "auth.users", Name: "x"}},
		{name: "explicit alias wins over shorthand", in: "users u", alias: "x", want: Alias{Ident: "users u", Name: "x"}},
		{name: "expression is not shorthand", in: "count(*) n", want: Alias{Ident: "count(*) n"}},
		{name: "alias passes through", in: Alias{Ident: "t", Name: "a"}, want: Alias{Ident: "t", Name: "a"}},
		{name: "non-string", in: 1, want: Alias{Ident: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAlias(tt.in, tt.alias))
		})
	}
}

func TestContextQuote(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "u.id", want: `"u"."id"`},
		{name: "raw", in: Raw("now()"), want: `now()`},
		{name: "expr", in: Expr("a.b"), want: `a.b`},
		{name: "alias", in: Alias{Ident: "users", Name: "u"}, want: `"users" AS "u"`},
		{name: "alias without name", in: Alias{Ident: "users"}, want: `"users"`},
		{name: "alias of raw", in: Alias{Ident: Raw("count(*)"), Name: "n"}, want: `count(*) AS "n"`},
		{name: "pointer alias", in: &Alias{Ident: "t", Name: "x"}, want: `"t" AS "x"`},
		{name: "int literal", in: 1, want: `1`},
		{name: "bool literal", in: true, want: `true`},
		{name: "nil literal", in: nil, want: `NULL`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(nil)
			got, err := ctx.Quote(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, ctx.Params())
		})
	}
}

func TestContextQuoteConstBinds(t *testing.T) {
	ctx := NewContext(nil)
	got, err := ctx.Quote(Const{Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, "@p0", got)
	assert.Equal(t, map[string]any{"p0": "x"}, ctx.Params())
}

type (
	level int
	flag  bool
	size  uint16
	ratio float64
	label string
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: "NULL"},
		{name: "true", in: true, want: "true"},
		{name: "false", in: false, want: "false"},
		{name: "int", in: 42, want: "42"},
		{name: "negative float", in: -12.5, want: "-12.5"},
		{name: "uint8", in: uint8(7), want: "7"},
		{name: "string", in: "it's", want: "'it''s'"},
		{name: "tuple", in: Tuple{1, "a"}, want: "(1, 'a')"},
		{name: "slice", in: []int{1, 2}, want: "ARRAY[1, 2]"},
		{name: "nan", in: math.NaN(), want: "'NaN'::float"},
		{name: "raw", in: Raw("DEFAULT"), want: "DEFAULT"},
		{name: "named int", in: level(5), want: "5"},
		{name: "named bool", in: flag(true), want: "true"},
		{name: "named uint", in: size(3), want: "3"},
		{name: "named float", in: ratio(0.25), want: "0.25"},
		{name: "named string", in: label("o'k"), want: "'o''k'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}
