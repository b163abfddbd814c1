// Package declarative implements the declarative-query adapter: a SQL
// DDL subset covering CREATE TABLE, ALTER TABLE ADD COLUMN / ADD
// CONSTRAINT / DROP CONSTRAINT, and CREATE INDEX. Line comments
// ("-- text") are metadata and survive translation.
package declarative

import (
	"strings"
	"unicode"

	"github.com/fourfold/fourfold/internal/repr"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokPunct // ( ) , ; .
	tokComment
	tokEOF
)

type token struct {
	kind tokenKind
	text string // for tokString, the unquoted text; for tokComment, the trimmed text
	line int
	col  int
}

// keywordIs reports whether an identifier token spells the given
// keyword, case-insensitively.
func (t token) keywordIs(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// lex tokenizes the whole input. Comments are kept as tokens so the
// parser can attach them as schema or column metadata.
func lex(input string, source repr.Representation) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0
	advance := func(n int) {
		for j := 0; j < n; j++ {
			if input[i+j] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}

	for i < len(input) {
		ch := input[i]
		switch {
		case ch == '\n' || ch == ' ' || ch == '\t' || ch == '\r':
			advance(1)

		case ch == '-' && i+1 < len(input) && input[i+1] == '-':
			startLine, startCol := line, col
			j := i
			for j < len(input) && input[j] != '\n' {
				j++
			}
			text := strings.TrimSpace(strings.TrimPrefix(input[i:j], "--"))
			toks = append(toks, token{kind: tokComment, text: text, line: startLine, col: startCol})
			advance(j - i)

		case ch == '\'':
			startLine, startCol := line, col
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(input) {
				if input[j] == '\'' {
					// '' is an escaped quote inside the literal
					if j+1 < len(input) && input[j+1] == '\'' {
						sb.WriteByte('\'')
						j += 2
						continue
					}
					closed = true
					j++
					break
				}
				sb.WriteByte(input[j])
				j++
			}
			if !closed {
				return nil, &repr.ParseError{
					Source:  source,
					Span:    repr.Span{Line: startLine, Col: startCol},
					Message: "unterminated string literal",
				}
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), line: startLine, col: startCol})
			advance(j - i)

		case ch == '(' || ch == ')' || ch == ',' || ch == ';' || ch == '.':
			toks = append(toks, token{kind: tokPunct, text: string(ch), line: line, col: col})
			advance(1)

		case unicode.IsDigit(rune(ch)):
			startLine, startCol := line, col
			j := i
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: input[i:j], line: startLine, col: startCol})
			advance(j - i)

		case unicode.IsLetter(rune(ch)) || ch == '_':
			startLine, startCol := line, col
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j], line: startLine, col: startCol})
			advance(j - i)

		default:
			return nil, &repr.ParseError{
				Source:  source,
				Span:    repr.Span{Line: line, Col: col},
				Message: "unexpected character",
				Snippet: string(ch),
			}
		}
	}

	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}
