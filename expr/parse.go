package expr

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/platformed/scimcore/spec"
)

// ParseFilter parses a complete SCIM filter expression (RFC 7644 §3.4.2.2), e.g.
// `userName eq "bjensen"` or `emails[type eq "work" and value co "@example.com"]`.
func ParseFilter(s string) (Filter, error) {
	p := &parser{s: s}
	p.skipSpaces()
	f, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.eof() {
		return nil, spec.InvalidFilter("unexpected trailing input: " + p.rest())
	}
	return f, nil
}

// ParseAttrPath parses a bare attribute path with no inline filter, as used in
// sortBy and the attributes/excludedAttributes query parameters.
func ParseAttrPath(s string) (AttrPath, error) {
	p := &parser{s: s}
	p.skipSpaces()
	ap, err := p.parseAttrPath()
	if err != nil {
		return AttrPath{}, err
	}
	p.skipSpaces()
	if !p.eof() {
		return AttrPath{}, spec.InvalidPath("unexpected trailing input: " + p.rest())
	}
	return ap, nil
}

// ParseValuePath parses a PATCH operation's "path" member: an attribute path
// optionally narrowed by an inline value filter and a trailing sub-attribute.
func ParseValuePath(s string) (*ValuePath, error) {
	p := &parser{s: s}
	p.skipSpaces()
	if p.eof() {
		return nil, spec.InvalidPath("empty path")
	}
	vp, err := p.parseValuePath()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.eof() {
		return nil, spec.InvalidPath("unexpected trailing input: " + p.rest())
	}
	return vp, nil
}

// parser is a deterministic recursive-descent reader over a filter or path
// expression. Most grammar alternatives are decided from the next byte; keyword
// matching and the URN-prefix scan read further ahead and roll back on failure.
type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) rest() string {
	if p.pos >= len(p.s) {
		return ""
	}
	return p.s[p.pos:]
}

func (p *parser) skipSpaces() {
	for !p.eof() && p.s[p.pos] == ' ' {
		p.pos++
	}
}

// skipSpacesRequired consumes one or more spaces, reporting false (without
// consuming anything) if none were present.
func (p *parser) skipSpacesRequired() bool {
	start := p.pos
	p.skipSpaces()
	return p.pos > start
}

// matchKeyword consumes kw at the current position, case-insensitively, provided
// it is not immediately followed by another identifier character (so "ne" does
// not match a prefix of "nex"). Rolls back on failure.
func (p *parser) matchKeyword(kw string) bool {
	if p.pos+len(kw) > len(p.s) {
		return false
	}
	if !strings.EqualFold(p.s[p.pos:p.pos+len(kw)], kw) {
		return false
	}
	next := p.pos + len(kw)
	if next < len(p.s) && isIdentChar(p.s[next]) {
		return false
	}
	p.pos = next
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '-'
}

func isSegmentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '.'
}

// parseOr := andExpr ( "or" andExpr )*
func (p *parser) parseOr() (Filter, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	clauses := []Filter{left}
	for {
		save := p.pos
		p.skipSpaces()
		if !p.matchKeyword("or") {
			p.pos = save
			break
		}
		if !p.skipSpacesRequired() {
			return nil, spec.InvalidFilter("expected space after 'or'")
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, right)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return &Or{Filters: clauses}, nil
}

// parseAnd := notExpr ( "and" notExpr )*
func (p *parser) parseAnd() (Filter, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	clauses := []Filter{left}
	for {
		save := p.pos
		p.skipSpaces()
		if !p.matchKeyword("and") {
			p.pos = save
			break
		}
		if !p.skipSpacesRequired() {
			return nil, spec.InvalidFilter("expected space after 'and'")
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, right)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return &And{Filters: clauses}, nil
}

// parseNot := [ "not" ] primary
func (p *parser) parseNot() (Filter, error) {
	p.skipSpaces()
	save := p.pos
	if p.matchKeyword("not") {
		if !p.skipSpacesRequired() {
			p.pos = save
		} else {
			inner, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &Not{Filter: inner}, nil
		}
	}
	return p.parsePrimary()
}

// primary := "(" filter ")" | attrPath "[" filter "]" | attrPath "pr" | attrPath op compValue
func (p *parser) parsePrimary() (Filter, error) {
	p.skipSpaces()
	if p.peek() == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return nil, spec.InvalidFilter("expected ')'")
		}
		p.pos++
		return inner, nil
	}

	ap, err := p.parseAttrPath()
	if err != nil {
		return nil, err
	}

	if p.peek() == '[' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.peek() != ']' {
			return nil, spec.InvalidFilter("expected ']'")
		}
		p.pos++
		applyHasPrefix(ap, inner)
		return &Has{Attr: ap, Inner: inner}, nil
	}

	if !p.skipSpacesRequired() {
		return nil, spec.InvalidFilter("expected space after attribute path")
	}
	if p.matchKeyword("pr") {
		return &Present{Attr: ap}, nil
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	if !p.skipSpacesRequired() {
		return nil, spec.InvalidFilter("expected space after operator")
	}
	val, err := p.parseCompValue()
	if err != nil {
		return nil, err
	}
	return &Compare{Attr: ap, Op: op, Value: val}, nil
}

var ops = []CompareOp{OpEqual, OpNotEqual, OpContains, OpStartsWith, OpEndsWith, OpGreaterThanOrEqual, OpGreaterThan, OpLessThanOrEqual, OpLessThan}

func (p *parser) parseOp() (CompareOp, error) {
	for _, op := range ops {
		if p.matchKeyword(string(op)) {
			return op, nil
		}
	}
	return "", spec.InvalidFilter("expected comparison operator, found: " + p.rest())
}

// parseValuePath := attrPath [ "[" filter "]" [ "." name ] ]
func (p *parser) parseValuePath() (*ValuePath, error) {
	ap, err := p.parseAttrPath()
	if err != nil {
		return nil, err
	}
	vp := &ValuePath{Attr: ap}
	if p.peek() == '[' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.peek() != ']' {
			return nil, spec.InvalidPath("expected ']'")
		}
		p.pos++
		applyHasPrefix(ap, inner)
		vp.Filter = inner
		if p.peek() == '.' {
			p.pos++
			sub, err := p.parseName()
			if err != nil {
				return nil, spec.InvalidPath("expected sub-attribute name after '.'")
			}
			vp.Attr.SubAttr = sub
		}
	}
	return vp, nil
}

// attrPath := [ urn ":" ] name [ "." name ]
func (p *parser) parseAttrPath() (AttrPath, error) {
	urn, hasURN := p.tryParseURNPrefix()
	if hasURN {
		if p.peek() != ':' {
			return AttrPath{}, spec.InvalidPath("expected ':' after urn")
		}
		p.pos++
	}
	name, err := p.parseName()
	if err != nil {
		return AttrPath{}, spec.InvalidPath("expected attribute name, found: " + p.rest())
	}
	ap := AttrPath{URN: urn, Name: name}
	if p.peek() == '.' {
		p.pos++
		sub, err := p.parseName()
		if err != nil {
			return AttrPath{}, spec.InvalidPath("expected sub-attribute name after '.'")
		}
		ap.SubAttr = sub
	}
	return ap, nil
}

// tryParseURNPrefix greedily consumes "segment:" pairs; it rolls back to just
// before the ':' that separates the last accepted URN segment from whatever
// follows, so that parseAttrPath's own ':' consumption step has that separator
// left to consume. Returns ok=false, leaving pos untouched, if no segment was
// followed by ':'.
func (p *parser) tryParseURNPrefix() (string, bool) {
	start := p.pos
	var parts []string
	sepPos := -1
	for {
		segStart := p.pos
		for !p.eof() && isSegmentChar(p.peek()) {
			p.pos++
		}
		if p.pos == segStart {
			p.pos = start
			return "", false
		}
		seg := p.s[segStart:p.pos]
		if p.peek() == ':' {
			parts = append(parts, seg)
			sepPos = p.pos
			p.pos++
			continue
		}
		if len(parts) == 0 {
			p.pos = start
			return "", false
		}
		p.pos = sepPos
		return strings.Join(parts, ":"), true
	}
}

// name := alpha ( alnum | "_" | "-" )*
func (p *parser) parseName() (string, error) {
	start := p.pos
	if p.eof() || !isAlpha(p.peek()) {
		return "", spec.InvalidPath("expected name")
	}
	p.pos++
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	return p.s[start:p.pos], nil
}

// compValue := "null" | "true" | "false" | number | jsonString
func (p *parser) parseCompValue() (CompValue, error) {
	switch {
	case p.matchKeyword("null"):
		return nil, nil
	case p.matchKeyword("true"):
		return true, nil
	case p.matchKeyword("false"):
		return false, nil
	case p.peek() == '"':
		return p.parseJSONString()
	case p.peek() == '-' || isDigit(p.peek()):
		return p.parseJSONNumber()
	default:
		return nil, spec.InvalidFilter("expected comparison value, found: " + p.rest())
	}
}

func (p *parser) parseJSONNumber() (CompValue, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	if p.eof() || !isDigit(p.peek()) {
		return nil, spec.InvalidFilter("invalid number")
	}
	if p.peek() == '0' {
		p.pos++
	} else {
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if p.peek() == '.' {
		p.pos++
		if p.eof() || !isDigit(p.peek()) {
			return nil, spec.InvalidFilter("invalid number")
		}
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		p.pos++
		if p.peek() == '+' || p.peek() == '-' {
			p.pos++
		}
		if p.eof() || !isDigit(p.peek()) {
			return nil, spec.InvalidFilter("invalid number")
		}
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
	}
	return json.Number(p.s[start:p.pos]), nil
}

func (p *parser) parseJSONString() (CompValue, error) {
	if p.peek() != '"' {
		return nil, spec.InvalidFilter("expected '\"'")
	}
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return nil, spec.InvalidFilter("unterminated string")
		}
		c := p.s[p.pos]
		switch {
		case c == '"':
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return nil, spec.InvalidFilter("unterminated escape")
			}
			esc := p.s[p.pos]
			switch esc {
			case '"', '\\', '/':
				sb.WriteByte(esc)
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'u':
				p.pos++
				if p.pos+4 > len(p.s) {
					return nil, spec.InvalidFilter("invalid unicode escape")
				}
				n, err := strconv.ParseUint(p.s[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return nil, spec.InvalidFilter("invalid unicode escape")
				}
				sb.WriteRune(rune(n))
				p.pos += 4
			default:
				return nil, spec.InvalidFilter("invalid escape sequence")
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}
