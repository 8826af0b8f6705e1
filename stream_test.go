package binser

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
===============================================================================
    Streaming Codec
===============================================================================
*/

// encodeEverythingStream is shorthand for a fully written streaming message
func encodeEverythingStream(t *testing.T, encoding Encoding) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	enc := NewStreamEncoder(buf, encoding)
	if err := writeEverything(&enc); err != nil {
		t.Fatalf("writeEverything returned error: %v", err)
	}
	return buf.Bytes()
}

// TestStreamRoundTripLittleEndian tests that every shape survives a
// streaming encode + decode in little endian
func TestStreamRoundTripLittleEndian(t *testing.T) {
	t.Parallel()
	src := bytes.NewReader(encodeEverythingStream(t, littleEndian()))
	dec := NewStreamDecoder(src, littleEndian())
	readEverything(t, &dec)
	if src.Len() != 0 {
		t.Fatalf("%d bytes left unread", src.Len())
	}
}

// TestStreamRoundTripBigEndian tests that every shape survives a streaming
// encode + decode in big endian
func TestStreamRoundTripBigEndian(t *testing.T) {
	t.Parallel()
	src := bytes.NewReader(encodeEverythingStream(t, bigEndian()))
	dec := NewStreamDecoder(src, bigEndian())
	readEverything(t, &dec)
	if src.Len() != 0 {
		t.Fatalf("%d bytes left unread", src.Len())
	}
}

// TestStreamRoundTripNested tests deeply nested composites through the
// streaming codec
func TestStreamRoundTripNested(t *testing.T) {
	t.Parallel()
	for _, encoding := range []Encoding{littleEndian(), bigEndian()} {
		buf := &bytes.Buffer{}
		enc := NewStreamEncoder(buf, encoding)
		if err := writePolyline(&enc); err != nil {
			t.Fatalf("%s: writePolyline returned error: %v", encoding, err)
		}
		src := bytes.NewReader(buf.Bytes())
		dec := NewStreamDecoder(src, encoding)
		readPolyline(t, &dec)
		if src.Len() != 0 {
			t.Fatalf("%s: %d bytes left unread", encoding, src.Len())
		}
	}
}

// TestStreamStructFraming tests that the streaming framing omits the struct
// flag and name: it must match the nameless buffered framing byte for byte
func TestStreamStructFraming(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	enc := NewStreamEncoder(buf, littleEndian())
	if err := enc.BeginStruct("Point", 2); err != nil {
		t.Fatalf("BeginStruct returned error: %v", err)
	}
	enc.WriteUint8(1)
	enc.WriteUint8(2)
	assert.Equal(t, []byte{0x02, 0x01, 0x02}, buf.Bytes())
}

// TestStreamParity tests that the streaming encoder and the nameless
// buffered encoder produce identical bytes for every shape
func TestStreamParity(t *testing.T) {
	t.Parallel()
	// plain structs differ from the default buffered framing only by flag
	// and name, so the buffered side omits struct names and the whole
	// message is compared
	buffered := encodeEverything(t, Encoding{LittleEndian: true, OmitStructNames: true})
	buf := &bytes.Buffer{}
	enc := NewStreamEncoder(buf, littleEndian())
	if err := writeEverything(&enc); err != nil {
		t.Fatalf("writeEverything returned error: %v", err)
	}
	assert.Equal(t, buffered, buf.Bytes())
}

// TestStreamShortRead tests that a source which ends early surfaces
// ErrUnexpectedEOF
func TestStreamShortRead(t *testing.T) {
	t.Parallel()
	dec := NewStreamDecoder(bytes.NewReader([]byte{0x41, 0x00}), littleEndian())
	if _, err := dec.ReadUint32(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	dec = NewStreamDecoder(bytes.NewReader(nil), littleEndian())
	if _, err := dec.ReadUint8(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

// failingReader reports a non-EOF failure after `after` bytes
type failingReader struct {
	after int
	err   error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, f.err
	}
	n := f.after
	if n > len(p) {
		n = len(p)
	}
	f.after -= n
	return n, nil
}

// TestStreamSourceError tests that genuine I/O failures are wrapped in
// MessageError rather than reported as exhaustion
func TestStreamSourceError(t *testing.T) {
	t.Parallel()
	src := &failingReader{after: 0, err: errors.New("device yanked")}
	dec := NewStreamDecoder(src, littleEndian())
	_, err := dec.ReadUint32()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*MessageError); !ok {
		t.Fatalf("expected *MessageError, got %T (%v)", err, err)
	}
}

// failingWriter rejects all writes
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (int, error) {
	return 0, f.err
}

// TestStreamSinkError tests that sink failures abort the encode with a
// MessageError
func TestStreamSinkError(t *testing.T) {
	t.Parallel()
	enc := NewStreamEncoder(&failingWriter{err: errors.New("pipe closed")}, littleEndian())
	err := enc.WriteUint32(0x41)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*MessageError); !ok {
		t.Fatalf("expected *MessageError, got %T (%v)", err, err)
	}
}

// TestStreamUnknownLength tests that streaming sequences of unknown length
// are rejected at encode time
func TestStreamUnknownLength(t *testing.T) {
	t.Parallel()
	enc := NewStreamEncoder(io.Discard, littleEndian())
	if err := enc.BeginSeq(-1); err != ErrUnknownLength {
		t.Fatalf("BeginSeq: expected ErrUnknownLength, got %v", err)
	}
	if err := enc.BeginMap(-1); err != ErrUnknownLength {
		t.Fatalf("BeginMap: expected ErrUnknownLength, got %v", err)
	}
}

// TestStreamVariantNameNotChecked tests that the streaming decoder consumes
// a struct variant name without verifying it
func TestStreamVariantNameNotChecked(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	enc := NewStreamEncoder(buf, littleEndian())
	if err := enc.BeginStructVariant("Kind", 4, 1); err != nil {
		t.Fatalf("BeginStructVariant returned error: %v", err)
	}
	enc.WriteUint8(0x41)

	dec := NewStreamDecoder(bytes.NewReader(buf.Bytes()), littleEndian())
	variant, err := dec.ReadVariant()
	if err != nil {
		t.Fatalf("ReadVariant returned error: %v", err)
	}
	series, err := variant.Struct("SomethingElse")
	if err != nil {
		t.Fatalf("Struct returned error: %v", err)
	}
	assert.Equal(t, 1, series.Len())
	assert.Equal(t, "Kind", variant.Name())
}

// TestStreamTruncated tests that truncating a valid streaming encoding of
// each shape in truncationCases, composites included, always surfaces a
// codec error
func TestStreamTruncated(t *testing.T) {
	t.Parallel()
	for _, c := range truncationCases {
		buf := &bytes.Buffer{}
		enc := NewStreamEncoder(buf, littleEndian())
		if err := c.write(&enc); err != nil {
			t.Fatalf("%s: write returned error: %v", c.name, err)
		}
		full := buf.Bytes()
		for n := 0; n < len(full); n++ {
			dec := NewStreamDecoder(bytes.NewReader(full[:n]), littleEndian())
			if err := c.read(&dec); err == nil {
				t.Fatalf("%s: decode of %d/%d bytes succeeded", c.name, n, len(full))
			}
		}
	}
	// a lone flag byte with its payload removed
	dec := NewStreamDecoder(bytes.NewReader([]byte{FlagSome}), littleEndian())
	present, err := dec.ReadOption()
	if err != nil || !present {
		t.Fatalf("ReadOption = (%v, %v)", present, err)
	}
	if _, err := dec.ReadUint8(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
