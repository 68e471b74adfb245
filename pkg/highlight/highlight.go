// Package highlight splits source text into categorized tokens for code
// excerpts. It carries no styling; renderers map categories to styles.
//
// Sequences are lazy and restartable: ranging over the same sequence twice
// lexes the input twice and yields the same tokens.
package highlight

import (
	"iter"
	"path/filepath"
	"strings"
)

// Category classifies a token
type Category string

const (
	String       Category = "string"
	Comment      Category = "comment"
	Keyword      Category = "keyword"
	HTML         Category = "html"
	Variable     Category = "variable"
	FunctionCall Category = "function-call"
	MethodCall   Category = "method-call"
	Default      Category = "default"
)

// Categories lists every category
var Categories = []Category{String, Comment, Keyword, HTML, Variable, FunctionCall, MethodCall, Default}

// Token is a run of text sharing one category
type Token struct {
	Category Category
	Text     string
}

// Tokenizer produces a token sequence from source text
type Tokenizer func(src string) iter.Seq[Token]

// Tokenize lexes Go-flavoured source. Adjacent tokens of the same category
// are coalesced into one.
func Tokenize(src string) iter.Seq[Token] {
	return coalesce(func() *lexer { return &lexer{src: src} })
}

// TokenizeTemplate lexes a Go template: text outside {{ }} actions is
// classified as html, actions are lexed as code.
func TokenizeTemplate(src string) iter.Seq[Token] {
	return coalesce(func() *lexer { return &lexer{src: src, template: true} })
}

var templateExts = map[string]bool{
	".tmpl":   true,
	".gotmpl": true,
	".gohtml": true,
	".html":   true,
}

// ForFile picks the tokenizer for a file by its extension
func ForFile(path string) Tokenizer {
	if templateExts[strings.ToLower(filepath.Ext(path))] {
		return TokenizeTemplate
	}
	return Tokenize
}

// TokenizeToLines lexes src and groups the tokens by 1-based line number
func TokenizeToLines(src string) iter.Seq2[int, []Token] {
	return Lines(Tokenize(src))
}

// Lines regroups a token sequence per line. A token spanning a newline is
// split across lines; every line of the input is yielded, empty ones with
// no tokens.
func Lines(tokens iter.Seq[Token]) iter.Seq2[int, []Token] {
	return func(yield func(int, []Token) bool) {
		line := 1
		var cur []Token
		for tok := range tokens {
			parts := strings.Split(tok.Text, "\n")
			for i, part := range parts {
				if i > 0 {
					if !yield(line, cur) {
						return
					}
					line++
					cur = nil
				}
				if part != "" {
					cur = append(cur, Token{Category: tok.Category, Text: part})
				}
			}
		}
		yield(line, cur)
	}
}

func coalesce(newLexer func() *lexer) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		l := newLexer()
		var (
			pending Token
			has     bool
		)
		for {
			tok, ok := l.next()
			if !ok {
				break
			}
			if has && tok.Category == pending.Category {
				pending.Text += tok.Text
				continue
			}
			if has && !yield(pending) {
				return
			}
			pending, has = tok, true
		}
		if has {
			yield(pending)
		}
	}
}
