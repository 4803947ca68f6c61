package codec

import (
	"encoding/binary"
	"math"
)

// Writer appends little-endian encoded values to an owned buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes. The caller owns the returned slice.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteChar narrows r to a single byte. Code points above 255 are lossy.
func (w *Writer) WriteChar(r rune) {
	w.WriteU8(byte(r))
}

// WriteRaw appends b without a length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteBytes appends a u32 length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return ErrTooLong
	}
	w.WriteU32(uint32(len(b)))
	w.WriteRaw(b)
	return nil
}

func (w *Writer) WriteString(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return ErrTooLong
	}
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}
