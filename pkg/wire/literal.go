package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errLiteral = errors.New("invalid literal")

// ParseLegacy decodes the Python literal bodies sent by engines before
// 1.6: dicts, lists, tuples, quoted strings, numbers, True, False and
// None, plus the JSON spellings true, false and null. Carriage returns
// are ignored. Dicts decode as map[string]any, lists and tuples as []any
// and numbers as float64, matching ParseJSON.
func ParseLegacy(body string) (any, error) {
	p := &literalParser{s: strings.ReplaceAll(body, "\r", "")}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.s) {
		return nil, p.errorf("unexpected trailing data")
	}
	return v, nil
}

type literalParser struct {
	s   string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", errLiteral, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *literalParser) value() (any, error) {
	c := p.peek()
	switch {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '{':
		return p.dict()
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '\'' || c == '"':
		return p.stringLiteral()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		return p.word()
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *literalParser) dict() (any, error) {
	p.pos++ // {
	m := map[string]any{}
	for {
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		if p.peek() != ':' {
			return nil, p.errorf("expected ':'")
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m[keyString(k)] = v
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) sequence(open, closing byte) (any, error) {
	p.pos++ // open
	list := []any{}
	for {
		if p.peek() == closing {
			p.pos++
			return list, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
		default:
			return nil, p.errorf("expected ',' or %q after %q", closing, open)
		}
	}
}

// stringLiteral parses one or more adjacent string literals, which concatenate.
func (p *literalParser) stringLiteral() (any, error) {
	var sb strings.Builder
	for {
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
		c := p.peek()
		if c != '\'' && c != '"' && !p.prefixedString() {
			return sb.String(), nil
		}
	}
}

// prefixedString reports whether a u, b or r prefixed string starts at
// the current position.
func (p *literalParser) prefixedString() bool {
	if p.pos+1 >= len(p.s) {
		return false
	}
	switch p.s[p.pos] {
	case 'u', 'U', 'b', 'B', 'r', 'R':
		q := p.s[p.pos+1]
		return q == '\'' || q == '"'
	}
	return false
}

func (p *literalParser) quoted() (string, error) {
	raw := false
	if p.prefixedString() {
		raw = p.s[p.pos] == 'r' || p.s[p.pos] == 'R'
		p.pos++
	}
	quote := p.s[p.pos]
	triple := strings.HasPrefix(p.s[p.pos:], strings.Repeat(string(quote), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == quote && !triple:
			p.pos++
			return sb.String(), nil
		case c == quote && strings.HasPrefix(p.s[p.pos:], strings.Repeat(string(quote), 3)):
			p.pos += 3
			return sb.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in string")
		case c == '\\' && !raw:
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.s) {
		return p.errorf("unterminated escape")
	}
	c := p.s[p.pos]
	p.pos++
	switch c {
	case '\n':
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'x':
		return p.hexRune(sb, 2)
	case 'u':
		return p.hexRune(sb, 4)
	case 'U':
		return p.hexRune(sb, 8)
	default:
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *literalParser) hexRune(sb *strings.Builder, digits int) error {
	if p.pos+digits > len(p.s) {
		return p.errorf("short escape")
	}
	n, err := strconv.ParseUint(p.s[p.pos:p.pos+digits], 16, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return p.errorf("invalid escape %q", p.s[p.pos:p.pos+digits])
	}
	p.pos += digits
	sb.WriteRune(rune(n))
	return nil
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte("+-.0123456789eExXabcdefABCDEFjJlL_", p.s[p.pos]) >= 0 {
		if (p.s[p.pos] == '+' || p.s[p.pos] == '-') && p.pos > start {
			prev := p.s[p.pos-1]
			if prev != 'e' && prev != 'E' {
				break
			}
		}
		p.pos++
	}
	text := strings.TrimRight(p.s[start:p.pos], "lL")
	text = strings.ReplaceAll(text, "_", "")
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(i), nil
	}
	return nil, p.errorf("invalid number %q", p.s[start:p.pos])
}

func (p *literalParser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.s) && (isIdentStart(p.s[p.pos]) || (p.s[p.pos] >= '0' && p.s[p.pos] <= '9')) {
		p.pos++
	}
	if p.pos < len(p.s) && (p.s[p.pos] == '\'' || p.s[p.pos] == '"') && p.pos-start == 1 {
		p.pos = start
		return p.stringLiteral()
	}
	switch w := p.s[start:p.pos]; w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errorf("unknown name %q", w)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return fmt.Sprint(k)
	}
}
