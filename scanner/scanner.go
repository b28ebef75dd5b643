// Package scanner provides string- and comment-aware scanning of Python
// source text. It tracks single-quoted, double-quoted and triple-quoted
// string literals plus escape sequences and '#' comments, so callers that
// search or rewrite source text can skip everything that is not code.
package scanner

import "strings"

// CodeScanner iterates byte-by-byte over Python source text. Callers check
// InCode() instead of maintaining their own quote/escape/comment flags.
//
// InString() returns true for the entire string span including the opening
// and closing delimiters (all three bytes of a triple quote).
type CodeScanner struct {
	src       string
	pos       int
	line      int
	quote     byte // active string delimiter, 0 outside strings
	triple    bool
	escaped   bool
	inComment bool
	delim     int  // remaining bytes of a triple-quote delimiter
	ending    bool // the pending delimiter closes the string
	closing   bool // the byte just returned closed a string
}

// New creates a CodeScanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, pos: -1, line: 1}
}

// Next advances to the next byte, updating string/comment/escape state.
// Returns the byte and true, or (0, false) at end of input.
func (s *CodeScanner) Next() (byte, bool) {
	s.closing = false
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]
	if ch == '\n' {
		s.line++
	}

	if s.delim > 0 {
		s.delim--
		if s.delim == 0 && s.ending {
			s.ending = false
			s.quote = 0
			s.triple = false
			s.closing = true
		}
		return ch, true
	}
	if s.inComment {
		if ch == '\n' {
			s.inComment = false
		}
		return ch, true
	}
	if s.escaped {
		s.escaped = false
		return ch, true
	}
	if s.quote != 0 {
		switch {
		case ch == '\\':
			s.escaped = true
		case ch == s.quote && s.triple:
			if s.lookingAtTriple(ch) {
				s.delim = 2
				s.ending = true
			}
		case ch == s.quote:
			s.quote = 0
			s.closing = true
		case ch == '\n' && !s.triple:
			// Unterminated single-line string: recover at end of line.
			s.quote = 0
		}
		return ch, true
	}

	switch ch {
	case '#':
		s.inComment = true
	case '"', '\'':
		s.quote = ch
		if s.lookingAtTriple(ch) {
			s.triple = true
			s.delim = 2
		}
	}
	return ch, true
}

func (s *CodeScanner) lookingAtTriple(q byte) bool {
	return strings.HasPrefix(s.src[s.pos:], string([]byte{q, q, q}))
}

// InString reports whether the current position is inside a string literal,
// including its delimiters.
func (s *CodeScanner) InString() bool {
	return s.quote != 0 || s.closing
}

// InTripleString reports whether the current position is inside a
// triple-quoted string literal.
func (s *CodeScanner) InTripleString() bool { return s.triple }

// InComment reports whether the current position is inside a '#' comment.
// The terminating newline is not part of the comment.
func (s *CodeScanner) InComment() bool { return s.inComment }

// InCode reports whether the current position is outside all string
// literals and comments.
func (s *CodeScanner) InCode() bool { return !s.InString() && !s.inComment }

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *CodeScanner) Pos() int { return s.pos }

// Line returns the current 1-based line number.
func (s *CodeScanner) Line() int { return s.line }

// Src returns the full source text being scanned.
func (s *CodeScanner) Src() string { return s.src }

// Peek returns the next byte without advancing, or (0, false) at end.
func (s *CodeScanner) Peek() (byte, bool) {
	if s.pos+1 >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos+1], true
}

// LookingAt checks if src[pos:] starts with the given prefix.
func (s *CodeScanner) LookingAt(prefix string) bool {
	if s.pos < 0 {
		return strings.HasPrefix(s.src, prefix)
	}
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// Skip advances past n bytes without returning them. String/comment state
// is updated for each skipped byte. Returns the number of bytes actually
// skipped (may be less than n at end of input).
func (s *CodeScanner) Skip(n int) int {
	skipped := 0
	for i := 0; i < n; i++ {
		if _, ok := s.Next(); !ok {
			break
		}
		skipped++
	}
	return skipped
}

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// FindTopLevel scans s for a byte matching pred at bracket depth 0, in code
// (outside strings and comments). Returns the byte offset or -1.
func FindTopLevel(s string, pred func(ch byte, pos int, src string) bool) int {
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if !sc.InCode() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			return sc.Pos()
		}
	}
	return -1
}

// FindAllTopLevel is like FindTopLevel but returns all matching positions.
func FindAllTopLevel(s string, pred func(ch byte, pos int, src string) bool) []int {
	var positions []int
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if !sc.InCode() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			positions = append(positions, sc.Pos())
		}
	}
	return positions
}

// SplitTopLevel splits s at every top-level occurrence of sep and trims
// surrounding whitespace from each part. Empty input yields nil.
func SplitTopLevel(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	cuts := FindAllTopLevel(s, func(ch byte, _ int, _ string) bool { return ch == sep })
	parts := make([]string, 0, len(cuts)+1)
	start := 0
	for _, c := range cuts {
		parts = append(parts, strings.TrimSpace(s[start:c]))
		start = c + 1
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// CodeMask returns, for every byte offset of src, whether that byte is code
// (outside string literals and comments).
func CodeMask(src string) []bool {
	mask := make([]bool, len(src))
	sc := New(src)
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		mask[sc.Pos()] = sc.InCode()
	}
	return mask
}

// IsInCode reports whether byte offset pos in s is code.
func IsInCode(s string, pos int) bool {
	if pos < 0 || pos >= len(s) {
		return false
	}
	sc := New(s)
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		if sc.Pos() == pos {
			return sc.InCode()
		}
	}
	return false
}
