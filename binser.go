// Package binser implements a compact, schema-driven binary serialization
// format with buffered and streaming codecs.
//
// The byte stream is not self-describing: the caller (typically a schema
// driver generated from, or reflecting over, user types) must invoke the
// shape methods in the same order on both ends. The codec writes and reads
// only the framing each shape prescribes: fixed-width words in the
// configured byte order, variable-length counts for every length prefix,
// UTF-8 for characters and strings, and single-byte flags for optional
// presence and variant kinds.
package binser

import (
	"encoding/binary"
	"fmt"
)

/*
===============================================================================
    Type Flags
===============================================================================
*/

// Values below are written to the stream verbatim and must never change;
// doing so would break compatibility with previously encoded data.
const (
	// FlagNone marks an absent optional value. No payload follows.
	FlagNone byte = 0x00

	// FlagSome marks a present optional value. The payload follows directly.
	FlagSome byte = 0xFF

	// FlagUnitVariant precedes the 32 bit index of a unit variant.
	FlagUnitVariant byte = 0xFE

	// FlagStruct precedes the name of a struct.
	FlagStruct byte = 0xFD

	// FlagNonUnitVariant precedes the 32 bit index of a newtype or tuple
	// variant. Note the value is shared with FlagStruct: the schema dictates
	// which of the two is expected at any point, so decoding remains
	// unambiguous despite the collision.
	FlagNonUnitVariant byte = 0xFD

	// FlagStructVariant precedes the name of a struct variant.
	FlagStructVariant byte = 0xFC
)

/*
===============================================================================
    `Encoding`: Byte Order + Struct Name Policy
===============================================================================
*/

// Encoding represents the wire-level policy a codec instance operates under.
// Encoder and decoder must be constructed with matching values; there is no
// in-band indicator.
type Encoding struct {
	LittleEndian    bool
	OmitStructNames bool
}

// NewEncoding returns the default Encoding: little endian, struct name
// emission according to configuration (see `Config.OmitStructNames`).
func NewEncoding() Encoding {
	return Encoding{
		LittleEndian:    true,
		OmitStructNames: GetConfig().OmitStructNames,
	}
}

func (e Encoding) String() string {
	var endian = "LittleEndian"
	var names = "NamedStructs"
	if !e.LittleEndian {
		endian = "BigEndian"
	}
	if e.OmitStructNames {
		names = "AnonymousStructs"
	}
	return fmt.Sprintf("%s + %s", endian, names)
}

// byteOrder expresses the Encoding using the "encoding/binary" package
func (e Encoding) byteOrder() binary.ByteOrder {
	if e.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

/*
===============================================================================
    128 Bit Integers
===============================================================================
*/

// Uint128 represents an unsigned 128 bit integer as two 64 bit halves.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Int128 represents a signed (two's complement) 128 bit integer.
// The sign lives in the upper half.
type Int128 struct {
	Hi int64
	Lo uint64
}

/*
===============================================================================
    Shape Driver Interfaces
===============================================================================
*/

// ShapeWriter is the emit surface a schema driver encodes against: one
// method per shape. It is satisfied by both Encoder and StreamEncoder, so a
// driver can target either transport.
//
// Composite shapes are fully length-prefixed up front: after a Begin* call
// the driver emits exactly the announced number of elements and there is
// nothing to close. Passing a negative count to a Begin* method reports that
// the length is unknown, which this format cannot represent.
type ShapeWriter interface {
	WriteBool(v bool) error
	WriteUint8(v uint8) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
	WriteUint64(v uint64) error
	WriteUint128(v Uint128) error
	WriteInt8(v int8) error
	WriteInt16(v int16) error
	WriteInt32(v int32) error
	WriteInt64(v int64) error
	WriteInt128(v Int128) error
	WriteFloat32(v float32) error
	WriteFloat64(v float64) error
	WriteChar(v rune) error
	WriteString(v string) error
	WriteBytes(v []byte) error
	WriteNone() error
	WriteSome() error
	WriteUnit() error
	WriteUnitStruct(name string) error
	WriteUnitVariant(name string, index uint32) error
	WriteNewtypeStruct(name string) error
	WriteNewtypeVariant(name string, index uint32) error
	BeginSeq(n int) error
	BeginTuple(n int) error
	BeginTupleStruct(name string, n int) error
	BeginTupleVariant(name string, index uint32, n int) error
	BeginMap(n int) error
	BeginStruct(name string, n int) error
	BeginStructVariant(name string, index uint32, n int) error
}

// ShapeReader is the visit surface a schema driver decodes against,
// mirroring ShapeWriter. It is satisfied by both Decoder and StreamDecoder.
//
// Composite shapes return a *Series bounding the element count; enumeration
// shapes return a *Variant carrying the decoded kind and index.
type ShapeReader interface {
	ReadBool() (bool, error)
	ReadUint8() (uint8, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	ReadUint128() (Uint128, error)
	ReadInt8() (int8, error)
	ReadInt16() (int16, error)
	ReadInt32() (int32, error)
	ReadInt64() (int64, error)
	ReadInt128() (Int128, error)
	ReadFloat32() (float32, error)
	ReadFloat64() (float64, error)
	ReadChar() (rune, error)
	ReadString() (string, error)
	ReadBytes() ([]byte, error)
	ReadOption() (bool, error)
	ReadUnit() error
	ReadUnitStruct(name string) error
	ReadNewtypeStruct(name string) error
	BeginSeq() (*Series, error)
	BeginTuple() (*Series, error)
	BeginTupleStruct(name string) (*Series, error)
	BeginMap() (*Series, error)
	BeginStruct(name string) (*Series, error)
	ReadVariant() (*Variant, error)
}

/*
===============================================================================
    UTF-8
===============================================================================
*/

// utf8SeqLen returns the total byte length of a UTF-8 sequence according to
// its leading byte, or zero if the byte cannot start a sequence.
func utf8SeqLen(lead byte) int {
	switch {
	case lead <= 0x7F:
		return 1
	case lead >= 0xC0 && lead <= 0xDF:
		return 2
	case lead >= 0xE0 && lead <= 0xEF:
		return 3
	case lead >= 0xF0:
		return 4
	default:
		// 0x80 - 0xBF: continuation bytes
		return 0
	}
}
