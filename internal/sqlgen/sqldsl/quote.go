package sqldsl

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// aliasPattern matches the alias shorthand "name AS alias" and "name alias".
var aliasPattern = regexp.MustCompile(`(?i)^([\w.]+)\s+(as\s+)?(\w+)$`)

// ParseAlias turns a column or table reference into an Alias.
//
//	ParseAlias("auth.users", nil)      -> Alias{"auth.users", nil}
//	ParseAlias("auth.users u", nil)    -> Alias{"auth.users", "u"}
//	ParseAlias("auth.users AS u", nil) -> Alias{"auth.users", "u"}
//	ParseAlias("auth.users", "u")      -> Alias{"auth.users", "u"}
//
// Shorthand detection only applies when no explicit alias is given.
// An Alias value is returned unchanged.
func ParseAlias(v any, alias any) Alias {
	if a, ok := v.(Alias); ok {
		return a
	}
	if s, ok := v.(string); ok && isNil(alias) {
		if m := aliasPattern.FindStringSubmatch(s); m != nil {
			return Alias{Ident: m[1], Name: m[3]}
		}
	}
	if isNil(alias) {
		return Alias{Ident: v}
	}
	return Alias{Ident: v, Name: alias}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// QuoteText quotes the identifiers in a piece of text.
//
// Text containing "(" or ")" is treated as an expression and returned
// unchanged, so count(*) or lower(name) pass through. Otherwise the text is
// split on word boundaries: runs of digits become integer literals, other
// word runs are double-quoted, and everything in between (dots, spaces,
// operators, "*") is kept verbatim.
//
//	QuoteText("u.id=a.user_id") -> "u"."id"="a"."user_id"
//	QuoteText("a.b ")           -> "a"."b" (trailing space kept)
//	QuoteText("*")              -> *
func QuoteText(s string) string {
	if strings.ContainsAny(s, "()") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	start := 0
	inWord := false
	flush := func(end int) {
		if start == end {
			return
		}
		run := s[start:end]
		if inWord {
			b.WriteString(quoteWord(run))
		} else {
			b.WriteString(run)
		}
	}
	for i, r := range s {
		w := isWordRune(r)
		if i == 0 {
			inWord = w
			continue
		}
		if w != inWord {
			flush(i)
			start = i
			inWord = w
		}
	}
	flush(len(s))
	return b.String()
}

// QuoteIdent double-quotes a single identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteWord(word string) string {
	if isDigits(word) {
		n, err := strconv.ParseInt(word, 10, 64)
		if err == nil {
			return strconv.FormatInt(n, 10)
		}
		return word
	}
	return QuoteIdent(word)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Quote renders a value in identifier position.
//
//   - Raw and Expr render verbatim.
//   - A nested Statement is built as a subquery and parenthesized.
//   - An Alias renders "ident AS alias", both sides quoted independently.
//   - A Const is bound as a parameter.
//   - A string is passed through QuoteText.
//   - Anything else renders as a literal (1, true, NULL).
func (c *Context) Quote(v any) (string, error) {
	switch x := v.(type) {
	case Raw:
		return string(x), nil
	case Expr:
		return string(x), nil
	case Statement:
		sub, err := c.Subquery(x)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case Alias:
		ident, err := c.Quote(x.Ident)
		if err != nil {
			return "", err
		}
		if isNil(x.Name) {
			return ident, nil
		}
		name, err := c.Quote(x.Name)
		if err != nil {
			return "", err
		}
		return ident + " AS " + name, nil
	case *Alias:
		return c.Quote(*x)
	case Const:
		return c.Bind(x.Value), nil
	case string:
		return QuoteText(x), nil
	}
	return Literal(v), nil
}
