package binser

import (
	"errors"
	"io"
	"math"
	"unicode/utf8"

	"github.com/b71729/bin"
)

/*
===============================================================================
    `StreamEncoder`: Streaming Encoder
===============================================================================
*/

// StreamEncoder writes the wire form of each shape directly to a
// push-style sink, without materializing the whole message in memory.
//
// The grammar matches Encoder with one deliberate divergence: structs are
// framed by their field count alone, with no flag and no name, so streamed
// messages do not carry per-struct names. The two framings must never be
// mixed within one deployment.
type StreamEncoder struct {
	w        io.Writer
	encoding Encoding
	tmp      [16]byte
	scratch  []byte
}

// NewStreamEncoder returns a fresh StreamEncoder writing to `w` under
// `encoding`. This takes ownership of `w` for the duration of the encode.
func NewStreamEncoder(w io.Writer, encoding Encoding) StreamEncoder {
	Debugf("streaming encoder constructed (%s)", encoding)
	return StreamEncoder{w: w, encoding: encoding}
}

// GetEncoding returns the Encoding this StreamEncoder was constructed with
func (e *StreamEncoder) GetEncoding() Encoding {
	return e.encoding
}

// write pushes `p` to the sink, mapping I/O failures to MessageError
func (e *StreamEncoder) write(p []byte) error {
	if _, err := e.w.Write(p); err != nil {
		return MessageErrorf("%v", err)
	}
	return nil
}

func (e *StreamEncoder) writeByte(b byte) error {
	e.tmp[0] = b
	return e.write(e.tmp[:1])
}

func (e *StreamEncoder) write16(v uint16) error {
	e.encoding.byteOrder().PutUint16(e.tmp[:2], v)
	return e.write(e.tmp[:2])
}

func (e *StreamEncoder) write32(v uint32) error {
	e.encoding.byteOrder().PutUint32(e.tmp[:4], v)
	return e.write(e.tmp[:4])
}

func (e *StreamEncoder) write64(v uint64) error {
	e.encoding.byteOrder().PutUint64(e.tmp[:8], v)
	return e.write(e.tmp[:8])
}

func (e *StreamEncoder) write128(v Uint128) error {
	order := e.encoding.byteOrder()
	if e.encoding.LittleEndian {
		order.PutUint64(e.tmp[0:8], v.Lo)
		order.PutUint64(e.tmp[8:16], v.Hi)
	} else {
		order.PutUint64(e.tmp[0:8], v.Hi)
		order.PutUint64(e.tmp[8:16], v.Lo)
	}
	return e.write(e.tmp[:16])
}

func (e *StreamEncoder) writeCount(n int) error {
	e.scratch = AppendCount(e.scratch[:0], uint64(n))
	return e.write(e.scratch)
}

func (e *StreamEncoder) writeString(s string) error {
	if err := e.writeCount(len(s)); err != nil {
		return err
	}
	return e.write([]byte(s))
}

// WriteBool writes one byte: 0x01 for true, 0x00 for false
func (e *StreamEncoder) WriteBool(v bool) error {
	if v {
		return e.writeByte(0x01)
	}
	return e.writeByte(0x00)
}

// WriteUint8 writes `v` as a single byte
func (e *StreamEncoder) WriteUint8(v uint8) error {
	return e.writeByte(v)
}

// WriteUint16 writes `v` in the configured byte order
func (e *StreamEncoder) WriteUint16(v uint16) error {
	return e.write16(v)
}

// WriteUint32 writes `v` in the configured byte order
func (e *StreamEncoder) WriteUint32(v uint32) error {
	return e.write32(v)
}

// WriteUint64 writes `v` in the configured byte order
func (e *StreamEncoder) WriteUint64(v uint64) error {
	return e.write64(v)
}

// WriteUint128 writes `v` as sixteen bytes in the configured byte order
func (e *StreamEncoder) WriteUint128(v Uint128) error {
	return e.write128(v)
}

// WriteInt8 writes `v` as a single two's complement byte
func (e *StreamEncoder) WriteInt8(v int8) error {
	return e.writeByte(byte(v))
}

// WriteInt16 writes `v` in two's complement in the configured byte order
func (e *StreamEncoder) WriteInt16(v int16) error {
	return e.write16(uint16(v))
}

// WriteInt32 writes `v` in two's complement in the configured byte order
func (e *StreamEncoder) WriteInt32(v int32) error {
	return e.write32(uint32(v))
}

// WriteInt64 writes `v` in two's complement in the configured byte order
func (e *StreamEncoder) WriteInt64(v int64) error {
	return e.write64(uint64(v))
}

// WriteInt128 writes `v` in two's complement in the configured byte order
func (e *StreamEncoder) WriteInt128(v Int128) error {
	return e.write128(Uint128{Hi: uint64(v.Hi), Lo: v.Lo})
}

// WriteFloat32 writes `v` as IEEE-754 binary32 in the configured byte order
func (e *StreamEncoder) WriteFloat32(v float32) error {
	return e.write32(math.Float32bits(v))
}

// WriteFloat64 writes `v` as IEEE-754 binary64 in the configured byte order
func (e *StreamEncoder) WriteFloat64(v float64) error {
	return e.write64(math.Float64bits(v))
}

// WriteChar writes the 1-4 UTF-8 bytes of `v`
func (e *StreamEncoder) WriteChar(v rune) error {
	if !utf8.ValidRune(v) {
		return ErrInvalidBytes
	}
	n := utf8.EncodeRune(e.tmp[:4], v)
	return e.write(e.tmp[:n])
}

// WriteString writes the byte length of `v` as a count, then its UTF-8
// bytes.
func (e *StreamEncoder) WriteString(v string) error {
	return e.writeString(v)
}

// WriteBytes writes the length of `v` as a count, then its raw bytes
func (e *StreamEncoder) WriteBytes(v []byte) error {
	if err := e.writeCount(len(v)); err != nil {
		return err
	}
	return e.write(v)
}

// WriteNone writes the absent-optional flag
func (e *StreamEncoder) WriteNone() error {
	return e.writeByte(FlagNone)
}

// WriteSome writes the present-optional flag. The caller writes the
// payload next.
func (e *StreamEncoder) WriteSome() error {
	return e.writeByte(FlagSome)
}

// WriteUnit writes nothing
func (e *StreamEncoder) WriteUnit() error {
	return nil
}

// WriteUnitStruct writes nothing
func (e *StreamEncoder) WriteUnitStruct(name string) error {
	return nil
}

// WriteUnitVariant writes the unit-variant flag followed by the variant's
// 32 bit index.
func (e *StreamEncoder) WriteUnitVariant(name string, index uint32) error {
	if err := e.writeByte(FlagUnitVariant); err != nil {
		return err
	}
	return e.write32(index)
}

// WriteNewtypeStruct writes nothing; the inner value follows under its own
// shape.
func (e *StreamEncoder) WriteNewtypeStruct(name string) error {
	return nil
}

// WriteNewtypeVariant writes the non-unit-variant flag and the variant's
// 32 bit index. The caller writes the inner value next.
func (e *StreamEncoder) WriteNewtypeVariant(name string, index uint32) error {
	if err := e.writeByte(FlagNonUnitVariant); err != nil {
		return err
	}
	return e.write32(index)
}

// BeginSeq writes the element count
func (e *StreamEncoder) BeginSeq(n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	return e.writeCount(n)
}

// BeginTuple writes the element count, as for a sequence
func (e *StreamEncoder) BeginTuple(n int) error {
	return e.BeginSeq(n)
}

// BeginTupleStruct writes the element count, as for a sequence
func (e *StreamEncoder) BeginTupleStruct(name string, n int) error {
	return e.BeginSeq(n)
}

// BeginTupleVariant writes the non-unit-variant flag, the variant's 32 bit
// index, and the element count.
func (e *StreamEncoder) BeginTupleVariant(name string, index uint32, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	if err := e.writeByte(FlagNonUnitVariant); err != nil {
		return err
	}
	if err := e.write32(index); err != nil {
		return err
	}
	return e.writeCount(n)
}

// BeginMap writes the entry count
func (e *StreamEncoder) BeginMap(n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	return e.writeCount(n)
}

// BeginStruct writes the field count only. The streaming framing carries
// no struct flag and no name.
func (e *StreamEncoder) BeginStruct(name string, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	return e.writeCount(n)
}

// BeginStructVariant writes the struct-variant flag, the variant's name,
// its 32 bit index, and the field count.
func (e *StreamEncoder) BeginStructVariant(name string, index uint32, n int) error {
	if n < 0 {
		return ErrUnknownLength
	}
	if err := e.writeByte(FlagStructVariant); err != nil {
		return err
	}
	if err := e.writeString(name); err != nil {
		return err
	}
	if err := e.write32(index); err != nil {
		return err
	}
	return e.writeCount(n)
}

/*
===============================================================================
    `StreamDecoder`: Streaming Decoder
===============================================================================
*/

// StreamDecoder reads the wire form of each shape from a pull-style
// source. Short reads are reported as ErrUnexpectedEOF; other source
// failures are wrapped in MessageError.
//
// Matching StreamEncoder, structs are framed by their field count alone
// and struct-variant names are consumed without verification.
type StreamDecoder struct {
	br       bin.Reader
	encoding Encoding
	tmp      [16]byte
}

// NewStreamDecoder returns a fresh StreamDecoder reading from `r` under
// `encoding`. This takes ownership of `r`; do not use it after passing
// through.
func NewStreamDecoder(r io.Reader, encoding Encoding) StreamDecoder {
	Debugf("streaming decoder constructed (%s)", encoding)
	return StreamDecoder{
		br:       bin.NewReader(r, encoding.byteOrder()),
		encoding: encoding,
	}
}

// GetEncoding returns the Encoding this StreamDecoder was constructed with
func (d *StreamDecoder) GetEncoding() Encoding {
	return d.encoding
}

// read fills `dst` from the source, mapping exhaustion to ErrUnexpectedEOF
// and other source failures to MessageError.
func (d *StreamDecoder) read(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if err := d.br.ReadBytes(dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrUnexpectedEOF
		}
		return MessageErrorf("%v", err)
	}
	return nil
}

func (d *StreamDecoder) next() (byte, error) {
	if err := d.read(d.tmp[:1]); err != nil {
		return 0, err
	}
	return d.tmp[0], nil
}

func (d *StreamDecoder) nextUint16() (uint16, error) {
	if err := d.read(d.tmp[:2]); err != nil {
		return 0, err
	}
	return d.encoding.byteOrder().Uint16(d.tmp[:2]), nil
}

func (d *StreamDecoder) nextUint32() (uint32, error) {
	if err := d.read(d.tmp[:4]); err != nil {
		return 0, err
	}
	return d.encoding.byteOrder().Uint32(d.tmp[:4]), nil
}

func (d *StreamDecoder) nextUint64() (uint64, error) {
	if err := d.read(d.tmp[:8]); err != nil {
		return 0, err
	}
	return d.encoding.byteOrder().Uint64(d.tmp[:8]), nil
}

func (d *StreamDecoder) nextUint128() (v Uint128, err error) {
	if err = d.read(d.tmp[:16]); err != nil {
		return Uint128{}, err
	}
	order := d.encoding.byteOrder()
	if d.encoding.LittleEndian {
		v.Lo = order.Uint64(d.tmp[0:8])
		v.Hi = order.Uint64(d.tmp[8:16])
	} else {
		v.Hi = order.Uint64(d.tmp[0:8])
		v.Lo = order.Uint64(d.tmp[8:16])
	}
	return v, nil
}

// count reads a variable-length count from the source
func (d *StreamDecoder) count() (uint64, error) {
	if err := d.read(d.tmp[:1]); err != nil {
		return 0, err
	}
	if d.tmp[0]&0x80 == 0 {
		return uint64(d.tmp[0]), nil
	}
	if err := d.read(d.tmp[1:2]); err != nil {
		return 0, err
	}
	tail := int(d.tmp[1]>>5) & 0x07
	if err := d.read(d.tmp[2 : 2+tail]); err != nil {
		return 0, err
	}
	n, _, err := ReadCount(d.tmp[:2+tail])
	return n, err
}

// takeString reads a count-prefixed UTF-8 string
func (d *StreamDecoder) takeString() (string, error) {
	n, err := d.count()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err = d.read(buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidBytes
	}
	return string(buf), nil
}

// ReadBool reads one byte: 0x00 is false, anything else is true
func (d *StreamDecoder) ReadBool() (bool, error) {
	b, err := d.next()
	if err != nil {
		return false, err
	}
	if b > 0x01 {
		Debugf("bool byte 0x%02X treated as true", b)
	}
	return b != 0x00, nil
}

// ReadUint8 reads a single byte
func (d *StreamDecoder) ReadUint8() (uint8, error) {
	return d.next()
}

// ReadUint16 reads two bytes in the configured byte order
func (d *StreamDecoder) ReadUint16() (uint16, error) {
	return d.nextUint16()
}

// ReadUint32 reads four bytes in the configured byte order
func (d *StreamDecoder) ReadUint32() (uint32, error) {
	return d.nextUint32()
}

// ReadUint64 reads eight bytes in the configured byte order
func (d *StreamDecoder) ReadUint64() (uint64, error) {
	return d.nextUint64()
}

// ReadUint128 reads sixteen bytes in the configured byte order
func (d *StreamDecoder) ReadUint128() (Uint128, error) {
	return d.nextUint128()
}

// ReadInt8 reads a single two's complement byte
func (d *StreamDecoder) ReadInt8() (int8, error) {
	b, err := d.next()
	return int8(b), err
}

// ReadInt16 reads two bytes, two's complement, in the configured byte order
func (d *StreamDecoder) ReadInt16() (int16, error) {
	v, err := d.nextUint16()
	return int16(v), err
}

// ReadInt32 reads four bytes, two's complement, in the configured byte order
func (d *StreamDecoder) ReadInt32() (int32, error) {
	v, err := d.nextUint32()
	return int32(v), err
}

// ReadInt64 reads eight bytes, two's complement, in the configured byte order
func (d *StreamDecoder) ReadInt64() (int64, error) {
	v, err := d.nextUint64()
	return int64(v), err
}

// ReadInt128 reads sixteen bytes, two's complement, in the configured byte
// order
func (d *StreamDecoder) ReadInt128() (Int128, error) {
	v, err := d.nextUint128()
	return Int128{Hi: int64(v.Hi), Lo: v.Lo}, err
}

// ReadFloat32 reads an IEEE-754 binary32 in the configured byte order
func (d *StreamDecoder) ReadFloat32() (float32, error) {
	v, err := d.nextUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 binary64 in the configured byte order
func (d *StreamDecoder) ReadFloat64() (float64, error) {
	v, err := d.nextUint64()
	return math.Float64frombits(v), err
}

// ReadChar reads one Unicode scalar, sized by its UTF-8 leading byte
func (d *StreamDecoder) ReadChar() (rune, error) {
	lead, err := d.next()
	if err != nil {
		return 0, err
	}
	total := utf8SeqLen(lead)
	if total == 0 {
		return 0, ErrInvalidBytes
	}
	d.tmp[0] = lead
	if err = d.read(d.tmp[1:total]); err != nil {
		return 0, err
	}
	r, size := utf8.DecodeRune(d.tmp[:total])
	if r == utf8.RuneError && size <= 1 {
		return 0, ErrInvalidBytes
	}
	return r, nil
}

// ReadString reads a count-prefixed UTF-8 string
func (d *StreamDecoder) ReadString() (string, error) {
	return d.takeString()
}

// ReadBytes reads a count-prefixed raw byte buffer
func (d *StreamDecoder) ReadBytes() ([]byte, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err = d.read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadOption reads the optional flag, reporting whether a payload is
// present.
func (d *StreamDecoder) ReadOption() (bool, error) {
	flag, err := d.next()
	if err != nil {
		return false, err
	}
	switch flag {
	case FlagNone:
		return false, nil
	case FlagSome:
		return true, nil
	default:
		return false, &FlagError{Actual: flag, Expected: FlagSome}
	}
}

// ReadUnit consumes nothing
func (d *StreamDecoder) ReadUnit() error {
	return nil
}

// ReadUnitStruct consumes nothing
func (d *StreamDecoder) ReadUnitStruct(name string) error {
	return nil
}

// ReadNewtypeStruct consumes nothing
func (d *StreamDecoder) ReadNewtypeStruct(name string) error {
	return nil
}

// BeginSeq reads the element count and returns a Series bounding it
func (d *StreamDecoder) BeginSeq() (*Series, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	return newSeries(n), nil
}

// BeginTuple reads the element count, as for a sequence
func (d *StreamDecoder) BeginTuple() (*Series, error) {
	return d.BeginSeq()
}

// BeginTupleStruct reads the element count, as for a sequence
func (d *StreamDecoder) BeginTupleStruct(name string) (*Series, error) {
	return d.BeginSeq()
}

// BeginMap reads the entry count and returns a Series bounding it
func (d *StreamDecoder) BeginMap() (*Series, error) {
	return d.BeginSeq()
}

// BeginStruct reads the field count only. The streaming framing carries no
// struct name; `name` is accepted for ShapeReader parity and not checked.
func (d *StreamDecoder) BeginStruct(name string) (*Series, error) {
	return d.BeginSeq()
}

// ReadVariant reads the variant discriminator and, according to its kind,
// the variant's index (and name, for struct variants). Names are consumed
// but not verified in streaming mode.
func (d *StreamDecoder) ReadVariant() (*Variant, error) {
	flag, err := d.next()
	if err != nil {
		return nil, err
	}
	v := &Variant{src: d, flag: flag}
	switch flag {
	case FlagUnitVariant, FlagNonUnitVariant:
		if v.index, err = d.nextUint32(); err != nil {
			return nil, err
		}
	case FlagStructVariant:
		if v.name, err = d.takeString(); err != nil {
			return nil, err
		}
		if v.index, err = d.nextUint32(); err != nil {
			return nil, err
		}
	default:
		return nil, &FlagError{Actual: flag, Expected: FlagUnitVariant}
	}
	return v, nil
}
