package frame

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
)

// Frame is one wire frame split into its regions. Both checksums have been
// verified when a Frame comes out of ReadFrame or SplitFrame.
type Frame struct {
	Header    Header
	VarHeader []byte
	// Payload is the whole payload section, trailing CRC included.
	Payload []byte
}

// Len is the encoded size of f.
func (f Frame) Len() int {
	return HeaderLen + len(f.VarHeader) + len(f.Payload)
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: math.MaxUint16}
}

func (l Limits) check(n int) error {
	if n > l.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, l.MaxPayloadBytes)
	}
	return nil
}

// ReadFrame reads exactly one frame from r. A clean end of stream before the
// first header byte is io.EOF.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if n, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: %d of %d bytes", ErrShortHeader, n, HeaderLen)
		}
		return Frame{}, err
	}
	h, err := checkedHeader(fixed[:], limits)
	if err != nil {
		return Frame{}, err
	}

	rest := make([]byte, VarHeaderSize(h.Type)+int(h.PayloadLen))
	if n, err := io.ReadFull(r, rest); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, &codec.TruncatedError{Pos: HeaderLen, Need: len(rest), Have: n}
		}
		return Frame{}, err
	}
	return assemble(h, rest)
}

// SplitFrame parses one frame from the start of b and returns it with the
// number of bytes it spans. The returned regions are copies.
func SplitFrame(b []byte, limits Limits) (Frame, int, error) {
	h, err := checkedHeader(b, limits)
	if err != nil {
		return Frame{}, 0, err
	}
	total := HeaderLen + VarHeaderSize(h.Type) + int(h.PayloadLen)
	if len(b) < total {
		return Frame{}, 0, &codec.TruncatedError{Pos: HeaderLen, Need: total - HeaderLen, Have: len(b) - HeaderLen}
	}
	rest := make([]byte, total-HeaderLen)
	copy(rest, b[HeaderLen:total])
	f, err := assemble(h, rest)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, total, nil
}

func checkedHeader(b []byte, limits Limits) (Header, error) {
	if err := VerifyHeader(b); err != nil {
		return Header{}, err
	}
	h, err := ParseHeader(b)
	if err != nil {
		return Header{}, err
	}
	if err := limits.check(int(h.PayloadLen)); err != nil {
		return Header{}, err
	}
	return h, nil
}

func assemble(h Header, rest []byte) (Frame, error) {
	split := VarHeaderSize(h.Type)
	f := Frame{Header: h, VarHeader: rest[:split:split], Payload: rest[split:]}
	if err := f.verifyPayload(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f Frame) verifyPayload() error {
	if len(f.Payload) < CRCLen {
		return &codec.TruncatedError{Pos: HeaderLen + len(f.VarHeader), Need: CRCLen, Have: len(f.Payload)}
	}
	body := f.Payload[:len(f.Payload)-CRCLen]
	want := Checksum(f.VarHeader, body)
	got := uint16(f.Payload[len(body)]) | uint16(f.Payload[len(body)+1])<<8
	if got != want {
		return &ChecksumError{Region: "payload", Got: got, Want: want}
	}
	return nil
}

// PayloadChecksum is the CRC a payload section carries for the given var
// header bytes and payload body.
func PayloadChecksum(varHeader, body []byte) uint16 {
	return Checksum(varHeader, body)
}

// Seal fills in PayloadLen and the header CRC from the regions of f. The
// payload CRC is part of f.Payload and is not touched.
func (f Frame) Seal(limits Limits) (Frame, error) {
	if err := limits.check(len(f.Payload)); err != nil {
		return Frame{}, err
	}
	if len(f.Payload) > math.MaxUint16 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	f.Header.PayloadLen = uint16(len(f.Payload))
	f.Header = f.Header.Sealed()
	return f, nil
}

// MarshalBinary returns header | var header | payload as stored in f.
func (f Frame) MarshalBinary() ([]byte, error) {
	hb, err := f.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter(f.Len())
	w.WriteRaw(hb)
	w.WriteRaw(f.VarHeader)
	w.WriteRaw(f.Payload)
	return w.Bytes(), nil
}

// WriteFrame seals f and writes it to w.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	sealed, err := f.Seal(limits)
	if err != nil {
		return err
	}
	b, err := sealed.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
