package binser

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

/*
===============================================================================
    `AChar`: Single ASCII / Latin-1 Character
===============================================================================
*/

// AChar represents a single eight bit character. Values 0x00-0x7F are plain
// ASCII; 0x80-0xFF follow ISO 8859-1, whose code points coincide with the
// first 256 Unicode scalars.
//
// AChar is an example of an externally-defined value type that plugs into
// the codec: it travels as the char shape.
type AChar byte

// Rune returns the Unicode scalar for the character
func (c AChar) Rune() rune {
	return rune(c)
}

// LenUTF8 returns the UTF-8 encoded size of the character: one byte for
// ASCII, two for the upper half.
func (c AChar) LenUTF8() int {
	if c <= 0x7F {
		return 1
	}
	return 2
}

// IsUppercase returns whether the character is in A-Z
func (c AChar) IsUppercase() bool {
	return c >= 0x41 && c <= 0x5A
}

// IsLowercase returns whether the character is in a-z
func (c AChar) IsLowercase() bool {
	return c >= 0x61 && c <= 0x7A
}

// IsAlphabetic returns whether the character is in A-Z or a-z
func (c AChar) IsAlphabetic() bool {
	return c.IsUppercase() || c.IsLowercase()
}

// IsNumeric returns whether the character is in 0-9
func (c AChar) IsNumeric() bool {
	return c >= 0x30 && c <= 0x39
}

// IsControl returns whether the character is an ASCII control code
func (c AChar) IsControl() bool {
	return c <= 0x1F
}

// IsWhitespace returns whether the character is ASCII whitespace
func (c AChar) IsWhitespace() bool {
	switch c {
	case 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

// IsNull returns whether the character is NUL
func (c AChar) IsNull() bool {
	return c == 0x00
}

// Uppercase returns the uppercase form of an a-z character, and the
// character unchanged otherwise.
func (c AChar) Uppercase() AChar {
	if c.IsLowercase() {
		return c - 0x20
	}
	return c
}

// Lowercase returns the lowercase form of an A-Z character, and the
// character unchanged otherwise.
func (c AChar) Lowercase() AChar {
	if c.IsUppercase() {
		return c + 0x20
	}
	return c
}

// EqIgnoreCase returns whether two characters match case-insensitively
func (c AChar) EqIgnoreCase(other AChar) bool {
	return c.Lowercase() == other.Lowercase()
}

func (c AChar) String() string {
	if c.IsControl() {
		return ""
	}
	return string(c.Rune())
}

// EncodeTo writes the character through `w` as the char shape
func (c AChar) EncodeTo(w ShapeWriter) error {
	return w.WriteChar(c.Rune())
}

// DecodeAChar reads a char shape from `r` and narrows it to an AChar.
// Scalars above U+00FF cannot be represented and raise ErrInvalidBytes.
func DecodeAChar(r ShapeReader) (AChar, error) {
	ch, err := r.ReadChar()
	if err != nil {
		return 0, err
	}
	if ch > 0xFF {
		return 0, ErrInvalidBytes
	}
	return AChar(ch), nil
}

/*
===============================================================================
    `AString`: Growable ASCII / Latin-1 String
===============================================================================
*/

// AString holds a growable Latin-1 string. It travels as a sequence of char
// shapes, so each character occupies its own one or two byte UTF-8 frame.
type AString struct {
	chars []AChar
}

// NewAString returns an empty AString
func NewAString() AString {
	return AString{}
}

// AStringFromBytes interprets `src` as Latin-1 characters
func AStringFromBytes(src []byte) AString {
	chars := make([]AChar, len(src))
	for i, b := range src {
		chars[i] = AChar(b)
	}
	return AString{chars: chars}
}

// AStringFromString converts `s`, rejecting runes outside Latin-1 with
// ErrInvalidBytes.
func AStringFromString(s string) (AString, error) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return AString{}, ErrInvalidBytes
	}
	return AStringFromBytes([]byte(encoded)), nil
}

// Len returns the number of characters
func (a AString) Len() int {
	return len(a.chars)
}

// At returns the character at position `i`
func (a AString) At(i int) AChar {
	return a.chars[i]
}

// Append extends the string by one character
func (a *AString) Append(c AChar) {
	a.chars = append(a.chars, c)
}

// Resize grows or truncates the string to `n` characters, padding with NUL
func (a *AString) Resize(n int) {
	for len(a.chars) < n {
		a.chars = append(a.chars, 0x00)
	}
	a.chars = a.chars[:n]
}

// Equal reports character-wise equality
func (a AString) Equal(other AString) bool {
	if len(a.chars) != len(other.chars) {
		return false
	}
	for i := range a.chars {
		if a.chars[i] != other.chars[i] {
			return false
		}
	}
	return true
}

func (a AString) String() string {
	out := make([]rune, len(a.chars))
	for i, c := range a.chars {
		out[i] = c.Rune()
	}
	return string(out)
}

// EncodeTo writes the string through `w` as a sequence of char shapes
func (a AString) EncodeTo(w ShapeWriter) error {
	if err := w.BeginSeq(a.Len()); err != nil {
		return err
	}
	for _, c := range a.chars {
		if err := c.EncodeTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAString reads a sequence of char shapes from `r`
func DecodeAString(r ShapeReader) (AString, error) {
	series, err := r.BeginSeq()
	if err != nil {
		return AString{}, err
	}
	out := AString{chars: make([]AChar, 0, series.Len())}
	for {
		more, err := series.Next()
		if err != nil {
			return AString{}, err
		}
		if !more {
			return out, nil
		}
		c, err := DecodeAChar(r)
		if err != nil {
			return AString{}, err
		}
		out.Append(c)
	}
}

/*
===============================================================================
    `FixedString`: Fixed-Length ASCII / Latin-1 String
===============================================================================
*/

// FixedString holds a fixed-length Latin-1 string, NUL padded on the right.
// It travels as the bytes shape, so the wire size is the count prefix plus
// exactly the fixed length.
type FixedString struct {
	buf []byte
}

// NewFixedString returns a FixedString of `n` NUL characters
func NewFixedString(n int) FixedString {
	return FixedString{buf: make([]byte, n)}
}

// FixedStringFrom converts `s` into a FixedString of length `n`.
// Runes outside Latin-1 raise ErrInvalidBytes; a converted string longer
// than `n` raises a LengthError.
func FixedStringFrom(s string, n int) (FixedString, error) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return FixedString{}, ErrInvalidBytes
	}
	if len(encoded) > n {
		return FixedString{}, &LengthError{Actual: len(encoded), Expected: n}
	}
	f := NewFixedString(n)
	copy(f.buf, encoded)
	return f, nil
}

// Len returns the fixed length in characters
func (f FixedString) Len() int {
	return len(f.buf)
}

// GetBytes returns the underlying Latin-1 bytes, padding included
func (f FixedString) GetBytes() []byte {
	return f.buf
}

// At returns the character at position `i`
func (f FixedString) At(i int) AChar {
	return AChar(f.buf[i])
}

// String returns the UTF-8 form of the string with right padding removed
func (f FixedString) String() string {
	trimmed := bytes.TrimRight(f.buf, "\x00")
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(trimmed)
	if err != nil {
		// Latin-1 decodes every byte; unreachable
		return string(trimmed)
	}
	return string(decoded)
}

// EncodeTo writes the string through `w` as the bytes shape
func (f FixedString) EncodeTo(w ShapeWriter) error {
	return w.WriteBytes(f.buf)
}

// DecodeFixedString reads a bytes shape from `r` and asserts its length is
// exactly `n`.
func DecodeFixedString(r ShapeReader, n int) (FixedString, error) {
	buf, err := r.ReadBytes()
	if err != nil {
		return FixedString{}, err
	}
	if len(buf) != n {
		return FixedString{}, &LengthError{Actual: len(buf), Expected: n}
	}
	return FixedString{buf: buf}, nil
}
