package shell

import "strings"

type tokenKind int

const (
	tokText tokenKind = iota
	tokAnd
	tokOr
	tokPipe
	tokSubst
	tokBacktick
)

// token is one piece of a command line. Operator tokens carry their literal
// text so a token list always re-serialises to the original line.
type token struct {
	kind tokenKind
	text string
}

// lex splits a command line at unquoted &&, ||, | and at the opening of
// $( and backtick substitutions. Single quotes suppress everything; double
// quotes suppress operators but not substitutions. $(( arithmetic is text.
func lex(line string) []token {
	var (
		tokens   []token
		buf      strings.Builder
		inSingle bool
		inDouble bool
		inTick   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, token{kind: tokText, text: buf.String()})
			buf.Reset()
		}
	}
	emit := func(kind tokenKind, text string) {
		flush()
		tokens = append(tokens, token{kind: kind, text: text})
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		next := byte(0)
		if i+1 < len(line) {
			next = line[i+1]
		}

		if inSingle {
			buf.WriteByte(c)
			if c == '\'' {
				inSingle = false
			}
			continue
		}

		switch {
		case c == '\\' && next != 0:
			buf.WriteByte(c)
			buf.WriteByte(next)
			i++
		case c == '\'' && !inDouble:
			inSingle = true
			buf.WriteByte(c)
		case c == '"':
			inDouble = !inDouble
			buf.WriteByte(c)
		case c == '$' && next == '(':
			if i+2 < len(line) && line[i+2] == '(' {
				buf.WriteString("$((")
				i += 2
				continue
			}
			emit(tokSubst, "$(")
			i++
		case c == '`':
			if inTick {
				buf.WriteByte(c)
				inTick = false
				continue
			}
			inTick = true
			emit(tokBacktick, "`")
		case inDouble:
			buf.WriteByte(c)
		case c == '&' && next == '&':
			emit(tokAnd, "&&")
			i++
		case c == '|' && next == '|':
			emit(tokOr, "||")
			i++
		case c == '|' && next != '&':
			emit(tokPipe, "|")
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return tokens
}

func render(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.text)
	}
	return b.String()
}

// elevate re-serialises tokens, prefixing sudo to the command that follows
// each operator for which want returns true.
func elevate(tokens []token, want func(tokenKind) bool) string {
	var b strings.Builder
	pending := false
	for _, t := range tokens {
		if t.kind == tokText {
			if pending {
				t.text = prefixSudo(t.text)
			}
			pending = false
			b.WriteString(t.text)
			continue
		}
		b.WriteString(t.text)
		pending = want(t.kind)
	}
	return b.String()
}

// noSudoWords are builtins that fail when run through sudo.
var noSudoWords = map[string]struct{}{
	"cd":     {},
	"export": {},
	"source": {},
	"unset":  {},
	"set":    {},
	"[[":     {},
	"!":      {},
}

// prefixSudo inserts sudo before the first word of a command fragment,
// keeping its leading whitespace. Fragments already elevated, empty, or
// closing a substitution are returned unchanged.
func prefixSudo(fragment string) string {
	rest := strings.TrimLeft(fragment, " \t")
	indent := fragment[:len(fragment)-len(rest)]
	word := firstWord(rest)
	if word == "" || word == "sudo" || strings.HasPrefix(rest, ")") {
		return fragment
	}
	if _, skip := noSudoWords[word]; skip {
		return fragment
	}
	return indent + "sudo " + rest
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
