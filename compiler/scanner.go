package compiler

import "strings"

// pattern reports the length of the prefix of s it matches, or 0.
type pattern func(s string) int

// literal matches exactly the character c.
func literal(c byte) pattern {
	return func(s string) int {
		if len(s) > 0 && s[0] == c {
			return 1
		}
		return 0
	}
}

// whitespace matches a run of ASCII whitespace.
func whitespace(s string) int {
	n := 0
	for n < len(s) && isSpace(s[n]) {
		n++
	}
	return n
}

// digits matches a run of decimal digits.
func digits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

// comment matches '#' through the end of the line, newline included, or
// through the end of input.
func comment(s string) int {
	if len(s) == 0 || s[0] != '#' {
		return 0
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return i + 1
	}
	return len(s)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanner is a cursor over the whole top-level script. Nested blocks share
// it, so pos is always an absolute offset.
type scanner struct {
	src string
	pos int
}

// accept consumes the prefix matched by p. On failure the cursor does not
// move.
func (s *scanner) accept(p pattern) (string, bool) {
	n := p(s.src[s.pos:])
	if n == 0 {
		return "", false
	}
	text := s.src[s.pos : s.pos+n]
	s.pos += n
	return text, true
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek() byte {
	return s.src[s.pos]
}

// rest returns the remainder of the current line, for error messages.
func (s *scanner) rest() string {
	tail := s.src[s.pos:]
	if i := strings.IndexByte(tail, '\n'); i >= 0 {
		return tail[:i]
	}
	return tail
}
