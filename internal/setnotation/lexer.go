// Package setnotation implements the set adapter: a line-oriented
// set-builder notation in which a table is a relation over typed
// domains and constraints are set operations.
//
//	# Customer registry.
//	relation customers = {
//		id in int64,
//		name in text - {null},
//		email in text,
//	}
//	key customers (id)
//	unique customers (email)
//	subset orders (customer_id) of customers (id)
//
// "- {null}" removes null from a column's domain, which is how the
// notation spells not-null. Comments start with "#" and survive
// translation as metadata.
package setnotation

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
	tokPunct // ( ) , = { } -
	tokComment
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) keywordIs(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func isIdentByte(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)) || b == '_'
}

// lex tokenizes the whole input. A "-" joins an identifier only when
// it sits directly between identifier characters, so hyphenated
// spellings like current-timestamp stay one token while the domain
// subtraction in "text - {null}" stays an operator.
func lex(input string) ([]token, error) {
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

		case ch == '#':
			startLine, startCol := line, col
			j := i
			for j < len(input) && input[j] != '\n' {
				j++
			}
			text := strings.TrimSpace(strings.TrimPrefix(input[i:j], "#"))
			toks = append(toks, token{kind: tokComment, text: text, line: startLine, col: startCol})
			advance(j - i)

		case ch == '"':
			startLine, startCol := line, col
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(input) {
				if input[j] == '"' {
					// "" is an escaped quote inside the literal
					if j+1 < len(input) && input[j+1] == '"' {
						sb.WriteByte('"')
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
					Source:  repr.Set,
					Span:    repr.Span{Line: startLine, Col: startCol},
					Message: "unterminated string literal",
				}
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), line: startLine, col: startCol})
			advance(j - i)

		case ch == '(' || ch == ')' || ch == ',' || ch == '=' || ch == '{' || ch == '}' || ch == '-':
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
			for j < len(input) {
				if isIdentByte(input[j]) {
					j++
					continue
				}
				if input[j] == '-' && j+1 < len(input) && isIdentByte(input[j+1]) && isIdentByte(input[j-1]) {
					j++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j], line: startLine, col: startCol})
			advance(j - i)

		default:
			return nil, &repr.ParseError{
				Source:  repr.Set,
				Span:    repr.Span{Line: line, Col: col},
				Message: "unexpected character",
				Snippet: string(ch),
			}
		}
	}

	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}
