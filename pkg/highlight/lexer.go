package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var keywords = map[string]bool{
	// Go
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"nil": true, "true": true, "false": true, "iota": true,
	// text/template
	"end": true, "with": true, "define": true, "template": true, "block": true,
}

// accessOps precede a method call
var accessOps = map[string]bool{".": true, "->": true, "::": true}

type lexer struct {
	src      string
	pos      int
	template bool
	inAction bool

	// prev is the text of the last token that was not whitespace or a comment
	prev string
}

func (l *lexer) next() (Token, bool) {
	if l.pos >= len(l.src) {
		return Token{}, false
	}

	if l.template && !l.inAction {
		rest := l.src[l.pos:]
		i := strings.Index(rest, "{{")
		if i != 0 {
			text := rest
			if i > 0 {
				text = rest[:i]
			}
			l.pos += len(text)
			l.prev = ""
			return Token{Category: HTML, Text: text}, true
		}
		n := 2
		if strings.HasPrefix(rest[2:], "- ") {
			n = 3
		}
		l.inAction = true
		return l.emit(Default, n), true
	}

	rest := l.src[l.pos:]
	if l.template {
		switch {
		case strings.HasPrefix(rest, "}}"):
			l.inAction = false
			return l.emit(Default, 2), true
		case strings.HasPrefix(rest, "-}}"):
			l.inAction = false
			return l.emit(Default, 3), true
		}
	}

	r, size := utf8.DecodeRuneInString(rest)
	switch {
	case unicode.IsSpace(r):
		return l.trivia(Default, l.spaceLen(rest)), true

	case strings.HasPrefix(rest, "//"):
		n := strings.IndexByte(rest, '\n')
		if n < 0 {
			n = len(rest)
		}
		return l.trivia(Comment, n), true

	case strings.HasPrefix(rest, "/*"):
		n := strings.Index(rest[2:], "*/")
		if n < 0 {
			n = len(rest)
		} else {
			n += 4
		}
		return l.trivia(Comment, n), true

	case r == '"' || r == '\'':
		return l.emit(String, quotedLen(rest, byte(r))), true

	case r == '`':
		n := strings.IndexByte(rest[1:], '`')
		if n < 0 {
			n = len(rest)
		} else {
			n += 2
		}
		return l.emit(String, n), true

	case r == '$':
		return l.emit(Variable, 1+identLen(rest[1:])), true

	case isIdentStart(r):
		n := identLen(rest)
		word := rest[:n]
		if keywords[word] {
			return l.emit(Keyword, n), true
		}
		if l.followedByParen(l.pos + n) {
			if accessOps[l.prev] {
				return l.emit(MethodCall, n), true
			}
			return l.emit(FunctionCall, n), true
		}
		return l.emit(Variable, n), true

	case r >= '0' && r <= '9':
		return l.emit(Default, numberLen(rest)), true

	case strings.HasPrefix(rest, "->") || strings.HasPrefix(rest, "::"):
		return l.emit(Default, 2), true
	}

	return l.emit(Default, size), true
}

// emit consumes n bytes as a significant token. A zero length consumes
// the rune at pos.
func (l *lexer) emit(c Category, n int) Token {
	if n <= 0 {
		_, n = utf8.DecodeRuneInString(l.src[l.pos:])
	}
	text := l.src[l.pos : l.pos+n]
	l.pos += n
	l.prev = text
	return Token{Category: c, Text: text}
}

// trivia consumes n bytes without touching prev
func (l *lexer) trivia(c Category, n int) Token {
	text := l.src[l.pos : l.pos+n]
	l.pos += n
	return Token{Category: c, Text: text}
}

func (l *lexer) spaceLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !unicode.IsSpace(r) {
			break
		}
		n += size
	}
	return n
}

// followedByParen reports whether the next significant character at or
// after i is an opening parenthesis
func (l *lexer) followedByParen(i int) bool {
	for i < len(l.src) {
		rest := l.src[i:]
		r, size := utf8.DecodeRuneInString(rest)
		switch {
		case unicode.IsSpace(r):
			i += size
		case strings.HasPrefix(rest, "//"):
			n := strings.IndexByte(rest, '\n')
			if n < 0 {
				return false
			}
			i += n
		case strings.HasPrefix(rest, "/*"):
			n := strings.Index(rest[2:], "*/")
			if n < 0 {
				return false
			}
			i += n + 4
		default:
			return r == '('
		}
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func identLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		n += size
	}
	return n
}

func numberLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if c == '.' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			n++
			continue
		}
		break
	}
	return n
}

// quotedLen measures a quoted literal. An unterminated literal ends before
// the line break.
func quotedLen(s string, quote byte) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(s)
}
