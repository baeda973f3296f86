package ttp

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLine decodes one complete inbound line into a Token.
//
// Decoding is total: every line yields either a Token or a recoverable
// decode error (MalformedValueError or UnrecognizedLineError). A failed
// parse never leaves partial state behind; the caller can drop the line
// and continue with the next one.
//
// The line may carry its terminator; trailing CR/LF is ignored.
func ParseLine(line string) (Token, error) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(line, MarkerOK):
		return parseOKLine(line)
	case strings.HasPrefix(line, MarkerErr):
		return parseErrLine(line)
	case strings.HasPrefix(line, MarkerPublish):
		return parsePublishLine(line)
	default:
		return Token{}, &UnrecognizedLineError{Line: line}
	}
}

// ParseValue decodes a single value in wire textual form. The whole
// input must be consumed.
func ParseValue(s string) (Value, error) {
	p := &parser{in: s}
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpaces()
	if !p.eof() {
		return Value{}, p.failf("trailing data after value")
	}
	return v, nil
}

func parseOKLine(line string) (Token, error) {
	p := &parser{in: line, pos: len(MarkerOK)}
	p.skipSpaces()
	if p.eof() {
		return Token{Type: TokenAck}, nil
	}

	field, err := p.parseFieldName()
	if err != nil {
		return Token{}, err
	}
	switch field {
	case FieldValue:
		v, err := p.parseValue()
		if err != nil {
			return Token{}, err
		}
		if err := p.expectEnd(); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenValue, Value: v}, nil
	case FieldList:
		items, err := p.parseList()
		if err != nil {
			return Token{}, err
		}
		if err := p.expectEnd(); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenList, List: items}, nil
	default:
		return Token{}, p.failf("unknown reply field %q", field)
	}
}

func parseErrLine(line string) (Token, error) {
	message := strings.TrimPrefix(line, MarkerErr)
	message = strings.TrimLeft(message, " ")
	return Token{Type: TokenError, Err: newDeviceError(message)}, nil
}

func parsePublishLine(line string) (Token, error) {
	p := &parser{in: line, pos: len(MarkerPublish)}
	p.skipSpaces()

	field, err := p.parseFieldName()
	if err != nil {
		return Token{}, err
	}
	if field != FieldPublishToken {
		return Token{}, p.failf("publish line missing %q field", FieldPublishToken)
	}
	tag, err := p.parseQuoted()
	if err != nil {
		return Token{}, err
	}

	p.skipSpaces()
	field, err = p.parseFieldName()
	if err != nil {
		return Token{}, err
	}
	if field != FieldValue {
		return Token{}, p.failf("publish line missing %q field", FieldValue)
	}
	v, err := p.parseValue()
	if err != nil {
		return Token{}, err
	}
	if err := p.expectEnd(); err != nil {
		return Token{}, err
	}
	return Token{Type: TokenPublish, Tag: tag, Value: v}, nil
}

// parser is a cursor over one line. All productions consume greedily
// and report failures with the byte offset they stopped at.
type parser struct {
	in  string
	pos int
}

func (p *parser) failf(format string, args ...any) error {
	return &MalformedValueError{Input: p.in, Pos: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() byte { return p.in[p.pos] }

func (p *parser) skipSpaces() {
	for !p.eof() && p.in[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) expectEnd() error {
	p.skipSpaces()
	if !p.eof() {
		return p.failf("trailing data after payload")
	}
	return nil
}

// parseFieldName consumes a quoted field name and its colon: "value":
func (p *parser) parseFieldName() (string, error) {
	name, err := p.parseQuoted()
	if err != nil {
		return "", err
	}
	if p.eof() || p.peek() != ':' {
		return "", p.failf("expected ':' after field name %q", name)
	}
	p.pos++
	return name, nil
}

// parseQuoted consumes a double-quoted string. The grammar has no
// escape sequences: the string runs to the next quote.
func (p *parser) parseQuoted() (string, error) {
	if p.eof() || p.peek() != '"' {
		return "", p.failf("expected opening quote")
	}
	p.pos++
	end := strings.IndexByte(p.in[p.pos:], '"')
	if end < 0 {
		return "", p.failf("unterminated string")
	}
	s := p.in[p.pos : p.pos+end]
	p.pos += end + 1
	return s, nil
}

func (p *parser) parseValue() (Value, error) {
	if p.eof() {
		return Value{}, p.failf("expected a value")
	}
	switch p.peek() {
	case '{':
		return p.parseRecord()
	case '[':
		items, err := p.parseList()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindList, list: items}, nil
	case '"':
		s, err := p.parseQuoted()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	default:
		return p.parseWord()
	}
}

func (p *parser) parseList() ([]Value, error) {
	if p.eof() || p.peek() != '[' {
		return nil, p.failf("expected '['")
	}
	p.pos++

	items := []Value{}
	for {
		p.skipSpaces()
		if p.eof() {
			return nil, p.failf("unterminated list")
		}
		if p.peek() == ']' {
			p.pos++
			return items, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

func (p *parser) parseRecord() (Value, error) {
	if p.eof() || p.peek() != '{' {
		return Value{}, p.failf("expected '{'")
	}
	p.pos++

	rec := map[string]Value{}
	for {
		p.skipSpaces()
		if p.eof() {
			return Value{}, p.failf("unterminated record")
		}
		if p.peek() == '}' {
			p.pos++
			return Value{kind: KindRecord, rec: rec}, nil
		}
		key, err := p.parseFieldName()
		if err != nil {
			return Value{}, err
		}
		if _, dup := rec[key]; dup {
			return Value{}, p.failf("duplicate record key %q", key)
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		rec[key] = v
	}
}

// parseWord consumes a bare token and classifies it as a boolean, an
// integer, a float or a constant, in that order. Numbers with a
// fractional separator or exponent are floats; plain digit runs are
// integers.
func (p *parser) parseWord() (Value, error) {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ' ' || c == ']' || c == '}' || c == '"' || c == '[' || c == '{' || c == ':' {
			break
		}
		p.pos++
	}
	word := p.in[start:p.pos]
	if word == "" {
		return Value{}, p.failf("expected a value")
	}

	switch word {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if v, ok := classifyNumber(word); ok {
		return v, nil
	}

	if isConstantWord(word) {
		return Constant(word), nil
	}

	p.pos = start
	return Value{}, p.failf("token %q is not a value", word)
}

// classifyNumber parses word as a numeric literal. The lexical form
// decides the kind: a '.' or exponent makes a float, otherwise the
// literal is an integer.
func classifyNumber(word string) (Value, bool) {
	s := word
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" || s[0] < '0' || s[0] > '9' {
		return Value{}, false
	}

	isFloat := false
	digits := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			if isFloat {
				return Value{}, false
			}
			isFloat = true
		case c == 'e' || c == 'E':
			// The rest must be a well-formed exponent.
			exp := s[i+1:]
			if len(exp) > 0 && (exp[0] == '-' || exp[0] == '+') {
				exp = exp[1:]
			}
			if exp == "" {
				return Value{}, false
			}
			for j := 0; j < len(exp); j++ {
				if exp[j] < '0' || exp[j] > '9' {
					return Value{}, false
				}
			}
			isFloat = true
			i = len(s)
		default:
			return Value{}, false
		}
	}
	if digits == 0 {
		return Value{}, false
	}

	if isFloat {
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return Value{}, false
		}
		return Float(f), true
	}
	n, err := strconv.ParseInt(word, 10, 64)
	if err != nil {
		return Value{}, false
	}
	return Int(n), true
}
