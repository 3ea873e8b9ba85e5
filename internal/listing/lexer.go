// Package listing extracts fee schedule records from a front-end source
// listing: an array of object literals as written in TypeScript or JavaScript.
package listing

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// TokenType represents the type of a listing token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	TokenIdentifier
	TokenNumber
	TokenString

	TokenLeftBrace
	TokenRightBrace
	TokenLeftBracket
	TokenRightBracket
	TokenLeftParen
	TokenRightParen
	TokenComma
	TokenColon
	TokenSemicolon
	TokenEqual
	TokenDot
	TokenSpread
	TokenMinus
	TokenPlus
	TokenOther
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenError:        "error",
	TokenIdentifier:   "identifier",
	TokenNumber:       "number",
	TokenString:       "string",
	TokenLeftBrace:    "'{'",
	TokenRightBrace:   "'}'",
	TokenLeftBracket:  "'['",
	TokenRightBracket: "']'",
	TokenLeftParen:    "'('",
	TokenRightParen:   "')'",
	TokenComma:        "','",
	TokenColon:        "':'",
	TokenSemicolon:    "';'",
	TokenEqual:        "'='",
	TokenDot:          "'.'",
	TokenSpread:       "'...'",
	TokenMinus:        "'-'",
	TokenPlus:         "'+'",
	TokenOther:        "symbol",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token with its source position.
type Token struct {
	Type     TokenType
	Value    string // decoded value for strings, raw text otherwise
	Position int
	Line     int
	Column   int
}

// Lexer tokenizes a listing.
type Lexer struct {
	input    string
	position int
	line     int
	column   int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
	}
}

// Tokenize returns all tokens of src, always ending with TokenEOF. A lexical
// error becomes a TokenError and lexing resumes after it: a quoted string
// broken by a newline resumes at that newline, a bad escape or template
// substitution at the closing quote. Only an unterminated block comment or
// string running to end of input has nothing after it.
func Tokenize(src string) []Token {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if err := l.skipTrivia(); err != nil {
		return *err
	}

	if l.position >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	ch := l.input[l.position]

	switch ch {
	case '{':
		return l.consumeChar(TokenLeftBrace)
	case '}':
		return l.consumeChar(TokenRightBrace)
	case '[':
		return l.consumeChar(TokenLeftBracket)
	case ']':
		return l.consumeChar(TokenRightBracket)
	case '(':
		return l.consumeChar(TokenLeftParen)
	case ')':
		return l.consumeChar(TokenRightParen)
	case ',':
		return l.consumeChar(TokenComma)
	case ':':
		return l.consumeChar(TokenColon)
	case ';':
		return l.consumeChar(TokenSemicolon)
	case '=':
		return l.consumeChar(TokenEqual)
	case '+':
		return l.consumeChar(TokenPlus)
	case '-':
		return l.consumeChar(TokenMinus)
	case '.':
		if strings.HasPrefix(l.input[l.position:], "...") {
			return l.consumeChars(TokenSpread, 3)
		}
		if isDigit(l.peek(1)) {
			return l.readNumber()
		}
		return l.consumeChar(TokenDot)
	case '\'', '"', '`':
		return l.readString(ch)
	}

	if isDigit(ch) {
		return l.readNumber()
	}

	r, size := utf8.DecodeRuneInString(l.input[l.position:])
	if isIdentStart(r) {
		return l.readIdentifier()
	}
	return l.consumeChars(TokenOther, size)
}

// skipTrivia skips whitespace and comments, tracking line and column.
// It returns an error token for an unterminated block comment.
func (l *Lexer) skipTrivia() *Token {
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case ch == '\n':
			l.position++
			l.line++
			l.column = 1
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.position++
			l.column++
		case ch == '/' && l.peek(1) == '/':
			for l.position < len(l.input) && l.input[l.position] != '\n' {
				l.position++
				l.column++
			}
		case ch == '/' && l.peek(1) == '*':
			start := l.makeToken(TokenError, "unterminated block comment")
			end := strings.Index(l.input[l.position+2:], "*/")
			if end < 0 {
				l.position = len(l.input)
				return &start
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

// advance moves n bytes forward, keeping line/column current.
func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.position < len(l.input); i++ {
		if l.input[l.position] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.position++
	}
}

// peek looks ahead n characters without consuming.
func (l *Lexer) peek(n int) byte {
	pos := l.position + n
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) consumeChar(tokenType TokenType) Token {
	return l.consumeChars(tokenType, 1)
}

func (l *Lexer) consumeChars(tokenType TokenType, n int) Token {
	tok := l.makeToken(tokenType, l.input[l.position:l.position+n])
	l.position += n
	l.column += n
	return tok
}

func (l *Lexer) makeToken(tokenType TokenType, value string) Token {
	return Token{
		Type:     tokenType,
		Value:    value,
		Position: l.position,
		Line:     l.line,
		Column:   l.column,
	}
}

func (l *Lexer) readIdentifier() Token {
	tok := l.makeToken(TokenIdentifier, "")
	start := l.position
	for l.position < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.position:])
		if !isIdentPart(r) {
			break
		}
		l.position += size
		l.column++
	}
	tok.Value = l.input[start:l.position]
	return tok
}

// readNumber reads a decimal literal with optional fraction, exponent and
// numeric separators. Separators are dropped from the token value.
func (l *Lexer) readNumber() Token {
	tok := l.makeToken(TokenNumber, "")
	start := l.position
	hasDot, hasExp := false, false

	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case isDigit(ch) || ch == '_':
		case ch == '.' && !hasDot && !hasExp:
			hasDot = true
		case (ch == 'e' || ch == 'E') && !hasExp:
			hasExp = true
			if n := l.peek(1); n == '+' || n == '-' {
				l.position++
				l.column++
			}
		default:
			tok.Value = strings.ReplaceAll(l.input[start:l.position], "_", "")
			return tok
		}
		l.position++
		l.column++
	}
	tok.Value = strings.ReplaceAll(l.input[start:l.position], "_", "")
	return tok
}

// readString reads a quoted string and decodes JavaScript escapes.
// Template literals with substitutions are rejected.
func (l *Lexer) readString(quote byte) Token {
	tok := l.makeToken(TokenString, "")
	l.position++
	l.column++

	var b strings.Builder
	var fault string // first bad escape or substitution; reported at the closing quote
	for l.position < len(l.input) {
		ch := l.input[l.position]
		switch {
		case ch == quote:
			l.position++
			l.column++
			if fault != "" {
				return l.errorAt(tok, fault)
			}
			tok.Value = b.String()
			return tok
		case ch == '\n' && quote != '`':
			// The newline is left for the next token.
			return l.errorAt(tok, "unterminated string literal")
		case ch == '$' && quote == '`' && l.peek(1) == '{':
			if fault == "" {
				fault = "template substitution is not supported"
			}
			l.advance(2)
			continue
		case ch == '\\':
			if msg := l.readEscape(&b); msg != "" && fault == "" {
				fault = msg
			}
			continue
		default:
			b.WriteByte(ch)
		}
		l.advance(1)
	}
	return l.errorAt(tok, "unterminated string literal")
}

// readEscape decodes the escape sequence at the current backslash and
// moves past it. A malformed sequence is skipped and its message returned.
func (l *Lexer) readEscape(b *strings.Builder) string {
	n := l.peek(1)
	switch n {
	case 0:
		l.advance(1)
		return "unterminated string literal"
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// line continuation
	case '\r':
		if l.peek(2) == '\n' {
			l.advance(3)
			return ""
		}
	case 'x':
		code, ok := l.hexAt(l.position+2, 2)
		if !ok {
			l.advance(2)
			return "invalid hex escape"
		}
		b.WriteRune(rune(code))
		l.advance(4)
		return ""
	case 'u':
		r, size, ok := l.unicodeEscape(l.position)
		if !ok {
			l.advance(2)
			return "invalid unicode escape"
		}
		if utf16.IsSurrogate(r) {
			if low, lowSize, ok := l.unicodeEscape(l.position + size); ok {
				if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
					b.WriteRune(pair)
					l.advance(size + lowSize)
					return ""
				}
			}
		}
		b.WriteRune(r)
		l.advance(size)
		return ""
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.position+1:])
		b.WriteRune(r)
		l.advance(1 + size)
		return ""
	}
	l.advance(2)
	return ""
}

// unicodeEscape decodes \uXXXX or \u{X...} starting at the backslash at pos.
func (l *Lexer) unicodeEscape(pos int) (rune, int, bool) {
	if !strings.HasPrefix(l.input[pos:], `\u`) {
		return 0, 0, false
	}
	if pos+2 < len(l.input) && l.input[pos+2] == '{' {
		end := strings.IndexByte(l.input[pos+3:], '}')
		if end < 1 || end > 6 {
			return 0, 0, false
		}
		code, ok := l.hexAt(pos+3, end)
		if !ok || code > unicode.MaxRune {
			return 0, 0, false
		}
		return rune(code), end + 4, true
	}
	code, ok := l.hexAt(pos+2, 4)
	if !ok {
		return 0, 0, false
	}
	return rune(code), 6, true
}

func (l *Lexer) hexAt(pos, n int) (uint64, bool) {
	if pos+n > len(l.input) {
		return 0, false
	}
	code, err := strconv.ParseUint(l.input[pos:pos+n], 16, 32)
	return code, err == nil
}

func (l *Lexer) errorAt(tok Token, msg string) Token {
	tok.Type = TokenError
	tok.Value = msg
	return tok
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
