package binser

import (
	"math"
	"unicode/utf8"

	"github.com/b71729/bin"
)

/*
===============================================================================
    `Decoder`: Buffered Decoder
===============================================================================
*/

// Decoder consumes the wire form of each shape from an in-memory byte
// slice, maintaining a strictly monotonic read position.
//
// A Decoder is owned by one caller for the duration of one top-level decode
// and is not safe for concurrent use. On error the cursor position is
// unspecified.
type Decoder struct {
	br       bin.Reader
	size     int64
	encoding Encoding
	tmp      [16]byte
}

// NewDecoder returns a fresh Decoder reading from `src` under `encoding`
func NewDecoder(src []byte, encoding Encoding) Decoder {
	return Decoder{
		br:       bin.NewReaderBytes(src, encoding.byteOrder()),
		size:     int64(len(src)),
		encoding: encoding,
	}
}

// GetPosition returns the current read position
func (d *Decoder) GetPosition() int64 {
	return d.br.GetPosition()
}

// GetRemainingBytes returns the number of unread bytes
func (d *Decoder) GetRemainingBytes() int64 {
	return d.size - d.br.GetPosition()
}

// GetEncoding returns the Encoding this Decoder was constructed with
func (d *Decoder) GetEncoding() Encoding {
	return d.encoding
}

// read fills `dst` from the stream, raising ErrUnexpectedEOF if fewer than
// len(dst) bytes remain.
func (d *Decoder) read(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if d.GetRemainingBytes() < int64(len(dst)) {
		return ErrUnexpectedEOF
	}
	if err := d.br.ReadBytes(dst); err != nil {
		return ErrUnexpectedEOF
	}
	return nil
}

func (d *Decoder) next() (byte, error) {
	if err := d.read(d.tmp[:1]); err != nil {
		return 0, err
	}
	return d.tmp[0], nil
}

func (d *Decoder) nextUint16() (v uint16, err error) {
	if d.GetRemainingBytes() < 2 {
		return 0, ErrUnexpectedEOF
	}
	if err = d.br.ReadUint16(&v); err != nil {
		return 0, ErrUnexpectedEOF
	}
	return v, nil
}

func (d *Decoder) nextUint32() (v uint32, err error) {
	if d.GetRemainingBytes() < 4 {
		return 0, ErrUnexpectedEOF
	}
	if err = d.br.ReadUint32(&v); err != nil {
		return 0, ErrUnexpectedEOF
	}
	return v, nil
}

func (d *Decoder) nextUint64() (v uint64, err error) {
	if err = d.read(d.tmp[:8]); err != nil {
		return 0, err
	}
	return d.encoding.byteOrder().Uint64(d.tmp[:8]), nil
}

func (d *Decoder) nextUint128() (v Uint128, err error) {
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

// count reads a variable-length count from the stream
func (d *Decoder) count() (uint64, error) {
	b0, err := d.next()
	if err != nil {
		return 0, err
	}
	if b0&0x80 == 0 {
		return uint64(b0), nil
	}
	d.tmp[0] = b0
	if err = d.read(d.tmp[1:2]); err != nil {
		return 0, err
	}
	tail := int(d.tmp[1]>>5) & 0x07
	if err = d.read(d.tmp[2 : 2+tail]); err != nil {
		return 0, err
	}
	n, _, err := ReadCount(d.tmp[:2+tail])
	return n, err
}

// takeString reads a count-prefixed UTF-8 string
func (d *Decoder) takeString() (string, error) {
	n, err := d.count()
	if err != nil {
		return "", err
	}
	if int64(n) > d.GetRemainingBytes() {
		return "", ErrUnexpectedEOF
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
func (d *Decoder) ReadBool() (bool, error) {
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
func (d *Decoder) ReadUint8() (uint8, error) {
	return d.next()
}

// ReadUint16 reads two bytes in the configured byte order
func (d *Decoder) ReadUint16() (uint16, error) {
	return d.nextUint16()
}

// ReadUint32 reads four bytes in the configured byte order
func (d *Decoder) ReadUint32() (uint32, error) {
	return d.nextUint32()
}

// ReadUint64 reads eight bytes in the configured byte order
func (d *Decoder) ReadUint64() (uint64, error) {
	return d.nextUint64()
}

// ReadUint128 reads sixteen bytes in the configured byte order
func (d *Decoder) ReadUint128() (Uint128, error) {
	return d.nextUint128()
}

// ReadInt8 reads a single two's complement byte
func (d *Decoder) ReadInt8() (int8, error) {
	b, err := d.next()
	return int8(b), err
}

// ReadInt16 reads two bytes, two's complement, in the configured byte order
func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.nextUint16()
	return int16(v), err
}

// ReadInt32 reads four bytes, two's complement, in the configured byte order
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.nextUint32()
	return int32(v), err
}

// ReadInt64 reads eight bytes, two's complement, in the configured byte order
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.nextUint64()
	return int64(v), err
}

// ReadInt128 reads sixteen bytes, two's complement, in the configured byte
// order
func (d *Decoder) ReadInt128() (Int128, error) {
	v, err := d.nextUint128()
	return Int128{Hi: int64(v.Hi), Lo: v.Lo}, err
}

// ReadFloat32 reads an IEEE-754 binary32 in the configured byte order
func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.nextUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 binary64 in the configured byte order
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.nextUint64()
	return math.Float64frombits(v), err
}

// ReadChar reads one Unicode scalar. The total sequence length is taken
// from the UTF-8 leading byte; bytes which cannot start a sequence, and
// sequences which do not form a valid scalar, raise ErrInvalidBytes.
func (d *Decoder) ReadChar() (rune, error) {
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
func (d *Decoder) ReadString() (string, error) {
	return d.takeString()
}

// ReadBytes reads a count-prefixed raw byte buffer
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	if int64(n) > d.GetRemainingBytes() {
		return nil, ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if err = d.read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadOption reads the optional flag, reporting whether a payload is
// present. On presence the caller reads the payload next, under its own
// shape. Any flag other than FlagNone / FlagSome raises a FlagError.
func (d *Decoder) ReadOption() (bool, error) {
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

// ReadUnit consumes nothing: the unit shape occupies zero bytes
func (d *Decoder) ReadUnit() error {
	return nil
}

// ReadUnitStruct consumes nothing
func (d *Decoder) ReadUnitStruct(name string) error {
	return nil
}

// ReadNewtypeStruct consumes nothing; the inner value follows under its own
// shape.
func (d *Decoder) ReadNewtypeStruct(name string) error {
	return nil
}

// BeginSeq reads the element count and returns a Series bounding it
func (d *Decoder) BeginSeq() (*Series, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	return newSeries(n), nil
}

// BeginTuple reads the element count, as for a sequence
func (d *Decoder) BeginTuple() (*Series, error) {
	return d.BeginSeq()
}

// BeginTupleStruct reads the element count, as for a sequence
func (d *Decoder) BeginTupleStruct(name string) (*Series, error) {
	return d.BeginSeq()
}

// BeginMap reads the entry count and returns a Series bounding it.
// Each entry is read key first, then value.
func (d *Decoder) BeginMap() (*Series, error) {
	return d.BeginSeq()
}

// BeginStruct reads the struct flag, verifies the encoded name against
// `name`, and reads the field count. Under an Encoding with OmitStructNames
// set, only the field count is read. A wrong flag raises a FlagError; a
// name disagreeing with the schema raises a NameError.
func (d *Decoder) BeginStruct(name string) (*Series, error) {
	if !d.encoding.OmitStructNames {
		flag, err := d.next()
		if err != nil {
			return nil, err
		}
		if flag != FlagStruct {
			return nil, &FlagError{Actual: flag, Expected: FlagStruct}
		}
		actual, err := d.takeString()
		if err != nil {
			return nil, err
		}
		if actual != name {
			return nil, &NameError{Actual: actual, Expected: name}
		}
		Debugf("verified struct %q", name)
	}
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	return newSeries(n), nil
}

// ReadVariant reads the variant discriminator and, according to its kind,
// the variant's index (and name, for struct variants). The caller selects
// the payload through the returned Variant.
func (d *Decoder) ReadVariant() (*Variant, error) {
	flag, err := d.next()
	if err != nil {
		return nil, err
	}
	v := &Variant{src: d, flag: flag, named: true}
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

/*
===============================================================================
    `Series`: Bounded Composite Access
===============================================================================
*/

// countSource is the slice of decoder behaviour Variant needs: both the
// buffered and streaming decoders satisfy it.
type countSource interface {
	count() (uint64, error)
}

// Series bounds the element iteration of a composite shape. It yields
// exactly the announced number of elements; demanding more than one element
// past the end is an internal defect of the schema driver and raises a
// LengthError.
type Series struct {
	length   uint64
	position uint64
}

func newSeries(n uint64) *Series {
	return &Series{length: n}
}

// Len returns the announced element count
func (s *Series) Len() int {
	return int(s.length)
}

// Next reports whether another element is available. The caller reads the
// element (for maps: key then value) after a true return.
func (s *Series) Next() (bool, error) {
	s.position++
	if s.position == s.length+1 {
		return false, nil
	}
	if s.position > s.length {
		return false, &LengthError{Actual: int(s.position), Expected: int(s.length)}
	}
	return true, nil
}

/*
===============================================================================
    `Variant`: Enumeration Access
===============================================================================
*/

// Variant carries a decoded variant discriminator. The caller asks for the
// payload matching its schema through exactly one of Unit, Newtype, Tuple
// or Struct; asking for a kind the discriminator cannot satisfy raises
// ErrUnexpectedType.
type Variant struct {
	src   countSource
	flag  byte
	index uint32
	name  string
	named bool
}

// Index returns the variant's ordinal index
func (v *Variant) Index() uint32 {
	return v.index
}

// Name returns the variant's name, which is only carried on the wire for
// struct variants.
func (v *Variant) Name() string {
	return v.name
}

// Unit asserts the variant is a unit variant. There is no payload.
func (v *Variant) Unit() error {
	if v.flag != FlagUnitVariant {
		return ErrUnexpectedType
	}
	return nil
}

// Newtype asserts the variant carries a single inner value, which the
// caller reads next under its own shape.
func (v *Variant) Newtype() error {
	if v.flag != FlagNonUnitVariant {
		return ErrUnexpectedType
	}
	return nil
}

// Tuple asserts the variant carries a tuple payload and reads its element
// count.
func (v *Variant) Tuple() (*Series, error) {
	if v.flag != FlagNonUnitVariant {
		return nil, ErrUnexpectedType
	}
	n, err := v.src.count()
	if err != nil {
		return nil, err
	}
	return newSeries(n), nil
}

// Struct asserts the variant carries named fields, verifies the variant
// name against `expected` (buffered mode only) and reads the field count.
func (v *Variant) Struct(expected string) (*Series, error) {
	if v.flag != FlagStructVariant {
		return nil, ErrUnexpectedType
	}
	if v.name != expected {
		if v.named {
			return nil, &NameError{Actual: v.name, Expected: expected}
		}
		Warnf("struct variant name %q differs from %q; streamed names are not verified", v.name, expected)
	}
	n, err := v.src.count()
	if err != nil {
		return nil, err
	}
	return newSeries(n), nil
}
