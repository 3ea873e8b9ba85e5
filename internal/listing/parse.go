package listing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseError represents a literal parse error with position information.
type ParseError struct {
	Msg    string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
}

// parser is a recursive-descent parser over the literal subset of the
// language: objects, arrays, strings, numbers, booleans, null/undefined and
// identifier paths.
type parser struct {
	tokens []Token
	pos    int
}

// ParseValue parses exactly one literal from tokens. Trailing tokens other
// than EOF are an error.
func ParseValue(tokens []Token) (Value, error) {
	p := &parser{tokens: tokens}
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return Value{}, p.errorf(tok, "unexpected %s after value", tok.Type)
	}
	return v, nil
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s, got %s", tt, describe(tok))
	}
	return tok, nil
}

func (p *parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: tok.Line, Column: tok.Column}
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenError:
		return tok.Value
	case TokenIdentifier, TokenNumber, TokenOther:
		return fmt.Sprintf("%s %q", tok.Type, tok.Value)
	default:
		return tok.Type.String()
	}
}

func (p *parser) parseValue() (Value, error) {
	v, err := p.parsePrimary()
	if err != nil {
		return Value{}, err
	}
	// `as Type` and `as const` casts carry no data.
	for tok := p.peek(); tok.Type == TokenIdentifier && tok.Value == "as"; tok = p.peek() {
		p.next()
		if err := p.skipType(); err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func (p *parser) parsePrimary() (Value, error) {
	tok := p.next()
	switch tok.Type {
	case TokenLeftBrace:
		return p.parseObject(tok)
	case TokenLeftBracket:
		return p.parseArray(tok)
	case TokenString:
		return Value{Kind: KindString, Str: tok.Value, Line: tok.Line}, nil
	case TokenNumber:
		return p.number(tok, false)
	case TokenMinus, TokenPlus:
		num, err := p.expect(TokenNumber)
		if err != nil {
			return Value{}, err
		}
		return p.number(num, tok.Type == TokenMinus)
	case TokenIdentifier:
		return p.parseIdent(tok)
	default:
		return Value{}, p.errorf(tok, "unexpected %s", describe(tok))
	}
}

func (p *parser) number(tok Token, negative bool) (Value, error) {
	text := tok.Value
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Value{}, p.errorf(tok, "invalid number %q", tok.Value)
	}
	if negative {
		d = d.Neg()
	}
	return Value{Kind: KindNumber, Num: d, Line: tok.Line}, nil
}

func (p *parser) parseIdent(tok Token) (Value, error) {
	switch tok.Value {
	case "true", "false":
		return Value{Kind: KindBool, Bool: tok.Value == "true", Line: tok.Line}, nil
	case "null", "undefined":
		return Value{Kind: KindNull, Line: tok.Line}, nil
	}

	path := []string{tok.Value}
	for p.peek().Type == TokenDot {
		p.next()
		seg, err := p.expect(TokenIdentifier)
		if err != nil {
			return Value{}, err
		}
		path = append(path, seg.Value)
	}
	if p.peek().Type == TokenLeftParen {
		return Value{}, p.errorf(p.peek(), "function calls are not supported")
	}
	return Value{Kind: KindIdent, Str: strings.Join(path, "."), Line: tok.Line}, nil
}

func (p *parser) parseObject(open Token) (Value, error) {
	obj := Value{Kind: KindObject, Line: open.Line}
	for {
		tok := p.next()
		var key string
		switch tok.Type {
		case TokenRightBrace:
			return obj, nil
		case TokenIdentifier, TokenString, TokenNumber:
			key = tok.Value
		case TokenSpread:
			return Value{}, p.errorf(tok, "spread members are not supported")
		default:
			return Value{}, p.errorf(tok, "expected property name, got %s", describe(tok))
		}

		if _, err := p.expect(TokenColon); err != nil {
			return Value{}, err
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		obj.Fields = append(obj.Fields, Field{Key: key, Value: v})

		switch sep := p.next(); sep.Type {
		case TokenComma:
		case TokenRightBrace:
			return obj, nil
		default:
			return Value{}, p.errorf(sep, "expected ',' or '}', got %s", describe(sep))
		}
	}
}

func (p *parser) parseArray(open Token) (Value, error) {
	arr := Value{Kind: KindArray, Line: open.Line}
	for {
		if p.peek().Type == TokenRightBracket {
			p.next()
			return arr, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		arr.Items = append(arr.Items, v)

		switch sep := p.next(); sep.Type {
		case TokenComma:
		case TokenRightBracket:
			return arr, nil
		default:
			return Value{}, p.errorf(sep, "expected ',' or ']', got %s", describe(sep))
		}
	}
}

// skipType consumes a type expression after `as`: a dotted name with
// optional generic arguments and array suffixes.
func (p *parser) skipType() error {
	if _, err := p.expect(TokenIdentifier); err != nil {
		return err
	}
	for {
		switch tok := p.peek(); {
		case tok.Type == TokenDot:
			p.next()
			if _, err := p.expect(TokenIdentifier); err != nil {
				return err
			}
		case tok.Type == TokenOther && tok.Value == "<":
			if err := p.skipGeneric(); err != nil {
				return err
			}
		case tok.Type == TokenLeftBracket && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == TokenRightBracket:
			p.pos += 2
		default:
			return nil
		}
	}
}

func (p *parser) skipGeneric() error {
	depth := 0
	for {
		tok := p.next()
		switch {
		case tok.Type == TokenEOF || tok.Type == TokenError:
			return p.errorf(tok, "unterminated type arguments")
		case tok.Type == TokenOther && tok.Value == "<":
			depth++
		case tok.Type == TokenOther && tok.Value == ">":
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}
