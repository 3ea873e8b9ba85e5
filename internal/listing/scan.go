package listing

import (
	"fmt"

	"go.uber.org/zap"
)

// Span is the token range of one top-level object literal. Start and End
// index the opening and closing brace. Err is set when the braces do not
// balance or a lexical error falls inside; such a span cannot be parsed.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
	Err    string
}

var closers = map[TokenType]TokenType{
	TokenRightBrace:   TokenLeftBrace,
	TokenRightBracket: TokenLeftBracket,
	TokenRightParen:   TokenLeftParen,
}

// Spans locates the listing array in tokens and returns the span of every
// object literal directly inside it, in source order. The array is the one
// assigned to export when export is non-empty, otherwise the first array
// assignment, otherwise a leading bare array. When no array is found the
// whole input is scanned and every outermost object counts.
//
// A lexical error inside an object marks that span and scanning goes on.
// Because the error may have swallowed the closing brace, a later `{` on a
// new line at the span's own column, right after a comma or the error
// itself, is taken as the next record.
func Spans(tokens []Token, export string) []Span {
	start, inArray := findArray(tokens, export)

	var spans []Span
	var stack []TokenType
	cur := -1     // index into spans of the object being scanned
	errLine := 0 // line of the lexical error in the current span, if any

	for i := start; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenEOF:
			if cur >= 0 {
				spans[cur].End = i - 1
				if spans[cur].Err == "" {
					spans[cur].Err = "unterminated object literal"
				}
			}
			return spans

		case TokenError:
			if cur >= 0 {
				if spans[cur].Err == "" {
					spans[cur].Err = fmt.Sprintf("line %d:%d: %s", tok.Line, tok.Column, tok.Value)
				}
				if errLine == 0 {
					errLine = tok.Line
				}
			}

		case TokenLeftBrace, TokenLeftBracket, TokenLeftParen:
			if tok.Type == TokenLeftBrace && cur >= 0 && errLine > 0 && resumesList(tokens, i, spans[cur], errLine) {
				spans[cur].End = i - 1
				stack = stack[:0]
				cur, errLine = -1, 0
			}
			if tok.Type == TokenLeftBrace && len(stack) == 0 {
				spans = append(spans, Span{Start: i, Line: tok.Line, Column: tok.Column})
				cur = len(spans) - 1
			}
			stack = append(stack, tok.Type)

		case TokenRightBrace, TokenRightBracket, TokenRightParen:
			if len(stack) == 0 {
				if inArray && tok.Type == TokenRightBracket {
					return spans
				}
				continue
			}
			want := closers[tok.Type]
			if stack[len(stack)-1] != want {
				if cur >= 0 && spans[cur].Err == "" {
					spans[cur].Err = fmt.Sprintf("line %d:%d: mismatched %s", tok.Line, tok.Column, tok.Type)
				}
				for len(stack) > 0 && stack[len(stack)-1] != want {
					stack = stack[:len(stack)-1]
				}
				if len(stack) == 0 {
					if cur >= 0 {
						spans[cur].End = i
						cur, errLine = -1, 0
					}
					if inArray && tok.Type == TokenRightBracket {
						return spans
					}
					continue
				}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 && cur >= 0 {
				spans[cur].End = i
				cur, errLine = -1, 0
			}
		}
	}
	return spans
}

// resumesList reports whether the brace at i looks like the start of the
// next record after a damaged one.
func resumesList(tokens []Token, i int, span Span, errLine int) bool {
	tok := tokens[i]
	if i == 0 || tok.Line <= errLine || tok.Column != span.Column {
		return false
	}
	prev := tokens[i-1].Type
	return prev == TokenComma || prev == TokenError
}

// findArray returns the index of the first token to scan and whether the
// scan is confined to an array literal.
func findArray(tokens []Token, export string) (int, bool) {
	if export != "" {
		for i, tok := range tokens {
			if tok.Type != TokenIdentifier || tok.Value != export {
				continue
			}
			if j := assignedArray(tokens, i+1); j >= 0 {
				return j + 1, true
			}
		}
		zap.L().Warn("listing: export not found, scanning first array instead",
			zap.String("export", export),
		)
	}

	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].Type == TokenEqual && tokens[i+1].Type == TokenLeftBracket {
			return i + 2, true
		}
	}

	if len(tokens) > 0 && tokens[0].Type == TokenLeftBracket {
		return 1, true
	}
	return 0, false
}

// assignedArray looks past an optional type annotation for `= [` and returns
// the index of the bracket, or -1.
func assignedArray(tokens []Token, from int) int {
	for i := from; i+1 < len(tokens); i++ {
		switch tokens[i].Type {
		case TokenEqual:
			if tokens[i+1].Type == TokenLeftBracket {
				return i + 1
			}
			return -1
		case TokenSemicolon, TokenLeftBrace, TokenEOF, TokenError:
			return -1
		}
	}
	return -1
}
