package binser

import (
	"math"
	"unicode/utf8"
)

/*
===============================================================================
    `Encoder`: Buffered Encoder
===============================================================================
*/

// Encoder appends the wire form of each shape to a growable byte buffer.
//
// An Encoder is owned by one caller for the duration of one top-level encode
// and is not safe for concurrent use. On error the buffer may hold a partial
// encoding; callers must discard it.
type Encoder struct {
	buf      []byte
	encoding Encoding
	tmp      [16]byte
}

// NewEncoder returns a fresh Encoder operating under `encoding`.
// The initial buffer capacity is taken from `Config.PreallocSize`.
func NewEncoder(encoding Encoding) Encoder {
	return Encoder{
		buf:      make([]byte, 0, GetConfig().PreallocSize),
		encoding: encoding,
	}
}

// GetBytes returns the bytes encoded so far.
// The slice aliases the Encoder's internal buffer.
func (e *Encoder) GetBytes() []byte {
	return e.buf
}

// GetEncoding returns the Encoding this Encoder was constructed with
func (e *Encoder) GetEncoding() Encoding {
	return e.encoding
}

// Len returns the number of bytes encoded so far
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset discards the buffer contents, retaining capacity, so the Encoder
// can be reused for another top-level encode.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

func (e *Encoder) put16(v uint16) {
	e.encoding.byteOrder().PutUint16(e.tmp[:2], v)
	e.buf = append(e.buf, e.tmp[:2]...)
}

func (e *Encoder) put32(v uint32) {
	e.encoding.byteOrder().PutUint32(e.tmp[:4], v)
	e.buf = append(e.buf, e.tmp[:4]...)
}

func (e *Encoder) put64(v uint64) {
	e.encoding.byteOrder().PutUint64(e.tmp[:8], v)
	e.buf = append(e.buf, e.tmp[:8]...)
}

func (e *Encoder) put128(v Uint128) {
	if e.encoding.LittleEndian {
		e.encoding.byteOrder().PutUint64(e.tmp[0:8], v.Lo)
		e.encoding.byteOrder().PutUint64(e.tmp[8:16], v.Hi)
	} else {
		e.encoding.byteOrder().PutUint64(e.tmp[0:8], v.Hi)
		e.encoding.byteOrder().PutUint64(e.tmp[8:16], v.Lo)
	}
	e.buf = append(e.buf, e.tmp[:16]...)
}

func (e *Encoder) putCount(n int) {
	e.buf = AppendCount(e.buf, uint64(n))
}

func (e *Encoder) putString(s string) {
	e.putCount(len(s))
	e.buf = append(e.buf, s...)
}

// WriteBool writes one byte: 0x01 for true, 0x00 for false
func (e *Encoder) WriteBool(v bool) error {
	if v {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
	return nil
}

// WriteUint8 writes `v` as a single byte
func (e *Encoder) WriteUint8(v uint8) error {
	e.buf = append(e.buf, v)
	return nil
}

// WriteUint16 writes `v` in the configured byte order
func (e *Encoder) WriteUint16(v uint16) error {
	e.put16(v)
	return nil
}

// WriteUint32 writes `v` in the configured byte order
func (e *Encoder) WriteUint32(v uint32) error {
	e.put32(v)
	return nil
}

// WriteUint64 writes `v` in the configured byte order
func (e *Encoder) WriteUint64(v uint64) error {
	e.put64(v)
	return nil
}

// WriteUint128 writes `v` as sixteen bytes in the configured byte order
func (e *Encoder) WriteUint128(v Uint128) error {
	e.put128(v)
	return nil
}

// WriteInt8 writes `v` as a single two's complement byte
func (e *Encoder) WriteInt8(v int8) error {
	e.buf = append(e.buf, byte(v))
	return nil
}

// WriteInt16 writes `v` in two's complement in the configured byte order
func (e *Encoder) WriteInt16(v int16) error {
	e.put16(uint16(v))
	return nil
}

// WriteInt32 writes `v` in two's complement in the configured byte order
func (e *Encoder) WriteInt32(v int32) error {
	e.put32(uint32(v))
	return nil
}

// WriteInt64 writes `v` in two's complement in the configured byte order
func (e *Encoder) WriteInt64(v int64) error {
	e.put64(uint64(v))
	return nil
}

// WriteInt128 writes `v` in two's complement in the configured byte order
func (e *Encoder) WriteInt128(v Int128) error {
	e.put128(Uint128{Hi: uint64(v.Hi), Lo: v.Lo})
	return nil
}

// WriteFloat32 writes `v` as IEEE-754 binary32 in the configured byte order
func (e *Encoder) WriteFloat32(v float32) error {
	e.put32(math.Float32bits(v))
	return nil
}

// WriteFloat64 writes `v` as IEEE-754 binary64 in the configured byte order
func (e *Encoder) WriteFloat64(v float64) error {
	e.put64(math.Float64bits(v))
	return nil
}

// WriteChar writes the 1-4 UTF-8 bytes of `v`. There is no length prefix;
// the leading byte self-delimits.
func (e *Encoder) WriteChar(v rune) error {
	if !utf8.ValidRune(v) {
		return ErrInvalidBytes
	}
	n := utf8.EncodeRune(e.tmp[:4], v)
	e.buf = append(e.buf, e.tmp[:n]...)
	return nil
}

// WriteString writes the byte length of `v` as a count, then its UTF-8
// bytes. No terminator is written.
func (e *Encoder) WriteString(v string) error {
	e.putString(v)
	return nil
}

// WriteBytes writes the length of `v` as a count, then its raw bytes
func (e *Encoder) WriteBytes(v []byte) error {
	e.putCount(len(v))
	e.buf = append(e.buf, v...)
	return nil
}

// WriteNone writes the absent-optional flag. No payload follows.
func (e *Encoder) WriteNone() error {
	e.buf = append(e.buf, FlagNone)
	return nil
}

// WriteSome writes the present-optional flag. The caller writes the payload
// next, under its own shape.
func (e *Encoder) WriteSome() error {
	e.buf = append(e.buf, FlagSome)
	return nil
}

// WriteUnit writes nothing: the unit shape occupies zero bytes
func (e *Encoder) WriteUnit() error {
	return nil
}

// WriteUnitStruct writes nothing; the name is part of the schema, not of
// the stream.
func (e *Encoder) WriteUnitStruct(name string) error {
	return nil
}

// WriteUnitVariant writes the unit-variant flag followed by the variant's
// 32 bit index.
func (e *Encoder) WriteUnitVariant(name string, index uint32) error {
	e.buf = append(e.buf, FlagUnitVariant)
	e.put32(index)
	return nil
}

// WriteNewtypeStruct writes nothing; the inner value follows under its own
// shape.
func (e *Encoder) WriteNewtypeStruct(name string) error {
	return nil
}

// WriteNewtypeVariant writes the non-unit-variant flag and the variant's
// 32 bit index. The caller writes the inner value next.
func (e *Encoder) WriteNewtypeVariant(name string, index uint32) error {
	e.buf = append(e.buf, FlagNonUnitVariant)
	e.put32(index)
	return nil
}

// BeginSeq writes the element count. The caller writes exactly `n` elements
// next, each under its own shape. A negative `n` reports an unknown length,
// which the format cannot represent.
func (e *Encoder) BeginSeq(n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	e.putCount(n)
	return nil
}

// BeginTuple writes the element count, as for a sequence
func (e *Encoder) BeginTuple(n int) error {
	return e.BeginSeq(n)
}

// BeginTupleStruct writes the element count, as for a sequence
func (e *Encoder) BeginTupleStruct(name string, n int) error {
	return e.BeginSeq(n)
}

// BeginTupleVariant writes the non-unit-variant flag, the variant's 32 bit
// index, and the element count.
func (e *Encoder) BeginTupleVariant(name string, index uint32, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	e.buf = append(e.buf, FlagNonUnitVariant)
	e.put32(index)
	e.putCount(n)
	return nil
}

// BeginMap writes the entry count. The caller writes `n` key/value pairs
// next, key first.
func (e *Encoder) BeginMap(n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	e.putCount(n)
	return nil
}

// BeginStruct writes the struct flag, the struct's name, and the field
// count. Under an Encoding with OmitStructNames set, flag and name are
// skipped and only the field count is written. Field names are never
// written.
func (e *Encoder) BeginStruct(name string, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	if !e.encoding.OmitStructNames {
		e.buf = append(e.buf, FlagStruct)
		e.putString(name)
	}
	e.putCount(n)
	return nil
}

// BeginStructVariant writes the struct-variant flag, the variant's name,
// its 32 bit index, and the field count.
func (e *Encoder) BeginStructVariant(name string, index uint32, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	e.buf = append(e.buf, FlagStructVariant)
	e.putString(name)
	e.put32(index)
	e.putCount(n)
	return nil
}
