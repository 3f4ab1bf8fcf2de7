package selection

import (
	"regexp"
	"strings"
)

// Pattern is one compiled glob from a pattern list.
//
// `*` matches any run of characters (slashes included), `?` matches exactly one
// character and `[...]` is passed through as a character class (`[!...]`
// negates). Everything else is literal. The translated expression must match
// the whole path, not a substring.
//
// A pattern that ends in "/" also matches every path it is a literal prefix
// of, so "dist/" selects the whole dist tree.
type Pattern struct {
	raw string
	re  *regexp.Regexp // nil when the glob could not be translated
}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenStar
	tokenQuestion
	tokenClass
)

type token struct {
	kind tokenKind
	text string
}

// CompilePattern translates a raw glob. It never fails: a malformed glob
// (an unterminated class, an invalid range) yields a pattern whose expression
// matches nothing.
func CompilePattern(raw string) Pattern {
	p := Pattern{raw: raw}

	tokens, ok := tokenize(raw)
	if !ok {
		return p
	}

	re, err := regexp.Compile(translate(tokens))
	if err != nil {
		return p
	}
	p.re = re
	return p
}

// String returns the pattern as the user typed it.
func (p Pattern) String() string { return p.raw }

// Match reports whether path is selected by the pattern.
func (p Pattern) Match(path string) bool {
	if p.re != nil && p.re.MatchString(path) {
		return true
	}
	return p.isDirPattern() && strings.HasPrefix(path, p.raw)
}

func (p Pattern) isDirPattern() bool {
	return strings.HasSuffix(p.raw, "/")
}

// tokenize splits a glob into literal runs and wildcard tokens.
func tokenize(glob string) ([]token, bool) {
	var (
		tokens []token
		lit    strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			flush()
			tokens = append(tokens, token{kind: tokenStar})
		case '?':
			flush()
			tokens = append(tokens, token{kind: tokenQuestion})
		case '[':
			end := classEnd(glob, i)
			if end < 0 {
				return nil, false
			}
			flush()
			tokens = append(tokens, token{kind: tokenClass, text: glob[i+1 : end]})
			i = end
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return tokens, true
}

// classEnd returns the index of the "]" closing the class opened at start, or
// -1. A "]" right after the opening bracket (or its negation) is literal.
func classEnd(glob string, start int) int {
	i := start + 1
	if i < len(glob) && (glob[i] == '!' || glob[i] == '^') {
		i++
	}
	if i < len(glob) && glob[i] == ']' {
		i++
	}
	for ; i < len(glob); i++ {
		if glob[i] == ']' {
			return i
		}
	}
	return -1
}

// translate emits an anchored regular expression for the token stream.
func translate(tokens []token) string {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, t := range tokens {
		switch t.kind {
		case tokenStar:
			b.WriteString(`.*`)
		case tokenQuestion:
			b.WriteString(`.`)
		case tokenClass:
			body := t.text
			if strings.HasPrefix(body, "!") {
				body = "^" + body[1:]
			}
			b.WriteString("[" + body + "]")
		default:
			b.WriteString(regexp.QuoteMeta(t.text))
		}
	}
	b.WriteString(`$`)
	return b.String()
}

// PatternSet is a compiled pattern list. A path matches the set when any
// pattern matches it; the empty set matches nothing.
type PatternSet []Pattern

// Compile compiles every pattern of the list, in order.
func Compile(patterns []string) PatternSet {
	set := make(PatternSet, 0, len(patterns))
	for _, raw := range patterns {
		set = append(set, CompilePattern(raw))
	}
	return set
}

// Match reports whether any pattern in the set matches path.
func (s PatternSet) Match(path string) bool {
	for _, p := range s {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// IsMatch reports whether path matches any of the raw patterns.
func IsMatch(path string, patterns []string) bool {
	return Compile(patterns).Match(path)
}
