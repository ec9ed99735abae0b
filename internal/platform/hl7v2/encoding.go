package hl7v2

import (
	"errors"
	"strings"
)

// ErrMissingMSH is returned when the input does not begin with an MSH segment.
// Nothing can be parsed without the header: the delimiter set itself is defined
// by the bytes that follow "MSH".
var ErrMissingMSH = errors.New("hl7v2: First segment must be MSH")

// Delimiters is the encoding context of a message: the five separator
// characters declared in MSH-1 and MSH-2.
type Delimiters struct {
	Field        byte // MSH-1, usually |
	Component    byte // usually ^
	Repetition   byte // usually ~
	Escape       byte // usually \
	Subcomponent byte // usually &
}

// DefaultDelimiters returns the standard HL7 encoding characters (|^~\&).
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Field:        '|',
		Component:    '^',
		Repetition:   '~',
		Escape:       '\\',
		Subcomponent: '&',
	}
}

// EncodingCharacters returns the MSH-2 value for these delimiters.
func (d Delimiters) EncodingCharacters() string {
	return string([]byte{d.Component, d.Repetition, d.Escape, d.Subcomponent})
}

// resolveDelimiters reads the delimiter set from the fixed offsets of the MSH
// segment: byte 3 is the field separator, bytes 4-7 are the encoding
// characters. Any encoding character the sender omitted falls back to the
// standard set. The only hard failure is input that does not start with "MSH".
func resolveDelimiters(text string) (Delimiters, error) {
	if !strings.HasPrefix(text, "MSH") {
		return Delimiters{}, ErrMissingMSH
	}

	d := DefaultDelimiters()
	if len(text) > 3 {
		d.Field = text[3]
	}
	if len(text) > 4 {
		d.Component = text[4]
	}
	if len(text) > 5 {
		d.Repetition = text[5]
	}
	if len(text) > 6 {
		d.Escape = text[6]
	}
	if len(text) > 7 {
		d.Subcomponent = text[7]
	}
	return d, nil
}

// decodeEscapes replaces HL7 escape sequences (\F\, \S\, \T\, \R\, \E\, \.br\)
// with their literal characters. Unknown or unterminated sequences are kept
// verbatim so that noisy senders don't lose data.
func decodeEscapes(s string, d Delimiters) string {
	esc := d.Escape
	if strings.IndexByte(s, esc) == -1 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != esc {
			b.WriteByte(s[i])
			i++
			continue
		}

		end := strings.IndexByte(s[i+1:], esc)
		if end == -1 {
			// Unterminated escape: pass through literally.
			b.WriteString(s[i:])
			break
		}
		code := s[i+1 : i+1+end]
		if lit, ok := decodeEscapeCode(code, d); ok {
			b.WriteString(lit)
		} else {
			b.WriteString(s[i : i+end+2])
		}
		i += end + 2
	}
	return b.String()
}

// decodeEscapeCode maps a single escape code to its literal value.
func decodeEscapeCode(code string, d Delimiters) (string, bool) {
	switch code {
	case "F":
		return string(d.Field), true
	case "S":
		return string(d.Component), true
	case "T":
		return string(d.Subcomponent), true
	case "R":
		return string(d.Repetition), true
	case "E":
		return string(d.Escape), true
	case ".br":
		// Formatting hint: line break renders as a carriage return.
		return "\r", true
	}
	return "", false
}

// encodeEscapes is the inverse of decodeEscapes: it protects any delimiter
// characters occurring inside a value before the value is put on the wire.
func encodeEscapes(s string, d Delimiters) string {
	esc := string(d.Escape)
	// The escape character itself must be handled first.
	s = strings.ReplaceAll(s, esc, esc+"E"+esc)
	s = strings.ReplaceAll(s, string(d.Field), esc+"F"+esc)
	s = strings.ReplaceAll(s, string(d.Component), esc+"S"+esc)
	s = strings.ReplaceAll(s, string(d.Repetition), esc+"R"+esc)
	s = strings.ReplaceAll(s, string(d.Subcomponent), esc+"T"+esc)
	s = strings.ReplaceAll(s, "\r", esc+".br"+esc)
	return s
}
