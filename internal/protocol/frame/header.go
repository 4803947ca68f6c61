package frame

import (
	"fmt"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/rs/zerolog/log"
)

const (
	SOH byte = 0x01
	STX byte = 0x02

	HeaderLen = 7
	// headerCRCOffset is where the header checksum starts; the checksum
	// covers every header byte before it.
	headerCRCOffset = 5
)

// Header is the fixed 7-byte frame header.
// Layout: SOH(1) | STX(1) | MsgType(1) | PayloadLen(2) | CRC(2), little-endian.
type Header struct {
	Type       MsgType
	// Code keeps the wire byte of a type this package does not know, so a
	// decoded MsgUndefined header re-encodes unchanged.
	Code       uint8
	PayloadLen uint16
	CRC        uint16
}

// WireType is the message type byte written for h.
func (h Header) WireType() uint8 {
	if h.Type == MsgUndefined && h.Code != 0 {
		return h.Code
	}
	return uint8(h.Type)
}

type headerWire struct {
	SOH        uint8
	STX        uint8
	MsgType    uint8
	PayloadLen uint16
	CRC        uint16
}

var headerCodec = codec.MustBind[headerWire](codec.Struct("Header",
	codec.F("soh", codec.U8()),
	codec.F("stx", codec.U8()),
	codec.F("msg_type", codec.U8()),
	codec.F("payload_len", codec.U16()),
	codec.F("crc", codec.U16()),
))

// MarshalBinary writes h as-is; sentinels are always the constants.
func (h Header) MarshalBinary() ([]byte, error) {
	return headerCodec.Encode(headerWire{
		SOH:        SOH,
		STX:        STX,
		MsgType:    h.WireType(),
		PayloadLen: h.PayloadLen,
		CRC:        h.CRC,
	})
}

// Sealed returns h with CRC set to the checksum of its own leading bytes.
func (h Header) Sealed() Header {
	h.CRC = 0
	b, _ := h.MarshalBinary()
	h.CRC = Checksum(b[:headerCRCOffset])
	return h
}

// ParseHeader decodes the first HeaderLen bytes of b. It does not check
// sentinels or the checksum; see VerifyHeader.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d of %d bytes", ErrShortHeader, len(b), HeaderLen)
	}
	w, err := headerCodec.Read(codec.NewReader(b[:HeaderLen]))
	if err != nil {
		return Header{}, err
	}
	h := Header{Type: ParseMsgType(w.MsgType), PayloadLen: w.PayloadLen, CRC: w.CRC}
	if h.Type == MsgUndefined && w.MsgType != uint8(MsgUndefined) {
		h.Code = w.MsgType
		log.Debug().Uint8("msg_type", w.MsgType).Msg("frame.ParseHeader unknown message type")
	}
	return h, nil
}

// VerifyHeader checks the header checksum and then the sentinels of the raw
// header bytes in b.
func VerifyHeader(b []byte) error {
	if len(b) < HeaderLen {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortHeader, len(b), HeaderLen)
	}
	want := Checksum(b[:headerCRCOffset])
	got := uint16(b[headerCRCOffset]) | uint16(b[headerCRCOffset+1])<<8
	if got != want {
		return &ChecksumError{Region: "header", Got: got, Want: want}
	}
	if b[0] != SOH || b[1] != STX {
		return fmt.Errorf("%w: 0x%02x 0x%02x", ErrInvalidSentinel, b[0], b[1])
	}
	return nil
}
