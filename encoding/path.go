// Package encoding normalizes request paths before they are matched against known scanner targets.
package encoding

import (
	"bytes"
	"strings"
)

// MaxDecodePasses bounds how many layers of percent-encoding DecodePath peels off.
const MaxDecodePasses = 3

// DecodePath percent-decodes a URL path until it stops changing, at most MaxDecodePasses times.
// Escapes that are not valid are left as is, and '+' is kept since it is literal in paths.
func DecodePath(path string) string {
	for i := 0; i < MaxDecodePasses; i++ {
		decoded := weakUnescape(path)
		if decoded == path {
			break
		}
		path = decoded
	}
	return path
}

func weakUnescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var buf bytes.Buffer
	buf.Grow(len(s))

	type unescapeState int
	const (
		_ unescapeState = iota
		notInEscape
		char1InEscape // seen %
		char2InEscape // seen %X
	)
	state := notInEscape

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case notInEscape:
			if c == '%' {
				state = char1InEscape
			} else {
				buf.WriteByte(c)
			}
		case char1InEscape:
			if isHexChar(c) {
				state = char2InEscape
			} else {
				buf.WriteByte(s[i-1])
				if c == '%' {
					continue
				}
				buf.WriteByte(c)
				state = notInEscape
			}
		case char2InEscape:
			switch {
			case isHexChar(c):
				buf.WriteByte(unhex(s[i-1])<<4 | unhex(c))
				state = notInEscape
			case c == '%':
				buf.WriteString(s[i-2 : i])
				state = char1InEscape
			default:
				buf.WriteString(s[i-2 : i+1])
				state = notInEscape
			}
		}
	}

	// Unfinished escape at the end.
	switch state {
	case char1InEscape:
		buf.WriteByte(s[len(s)-1])
	case char2InEscape:
		buf.WriteString(s[len(s)-2:])
	}

	return buf.String()
}

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
