package frame

import (
	"fmt"
	"math"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/protocol/param"
	"github.com/rs/zerolog/log"
)

const (
	// PayloadPrefixLen is msg_id(1) + unencrypted length(2).
	PayloadPrefixLen = 3
	CRCLen           = 2
	// MinPayloadLen is an empty payload with its checksum.
	MinPayloadLen = PayloadPrefixLen + CRCLen
)

// Payload is the payload section of a frame:
// msg_id(1) | unencrypted length(2) | params... | CRC(2).
type Payload struct {
	MsgID uint8
	// UnencryptedLength is rewritten to the param byte count on encode and
	// only reported on decode.
	UnencryptedLength uint16
	Params            []param.Param
	CRC               uint16
}

// Body returns the checksummed part of the payload: everything but the CRC.
// A nil reg means param.Default().
func (p Payload) Body(reg *param.Registry) ([]byte, error) {
	if reg == nil {
		reg = param.Default()
	}
	params := codec.NewWriter(len(p.Params) * (param.HeaderLen + 4))
	for _, prm := range p.Params {
		if err := prm.AppendTo(params, reg); err != nil {
			return nil, err
		}
	}
	if params.Len() > math.MaxUint16 {
		return nil, fmt.Errorf("%w: params are %d bytes", param.ErrTooLarge, params.Len())
	}
	w := codec.NewWriter(PayloadPrefixLen + params.Len())
	w.WriteU8(p.MsgID)
	w.WriteU16(uint16(params.Len()))
	w.WriteRaw(params.Bytes())
	return w.Bytes(), nil
}

// Encode returns Body followed by p.CRC as given.
func (p Payload) Encode(reg *param.Registry) ([]byte, error) {
	body, err := p.Body(reg)
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter(len(body) + CRCLen)
	w.WriteRaw(body)
	w.WriteU16(p.CRC)
	return w.Bytes(), nil
}

// DecodePayload parses a whole payload section, CRC included. The CRC is
// returned as read; verifying it needs the var header and is left to the
// caller.
func DecodePayload(reg *param.Registry, b []byte) (Payload, error) {
	if reg == nil {
		reg = param.Default()
	}
	if len(b) < MinPayloadLen {
		return Payload{}, &codec.TruncatedError{Pos: 0, Need: MinPayloadLen, Have: len(b)}
	}
	bodyLen := len(b) - CRCLen
	r := codec.NewReader(b[:bodyLen])

	var p Payload
	p.MsgID, _ = r.ReadU8()
	p.UnencryptedLength, _ = r.ReadU16()
	for r.Remaining() > 0 {
		prm, err := param.Read(reg, r)
		if err != nil {
			log.Debug().Err(err).Int("pos", r.Pos()).Msg("frame.DecodePayload param")
			return Payload{}, err
		}
		p.Params = append(p.Params, prm)
	}
	if got := bodyLen - PayloadPrefixLen; int(p.UnencryptedLength) != got {
		log.Debug().
			Uint16("unencrypted_length", p.UnencryptedLength).
			Int("param_bytes", got).
			Msg("frame.DecodePayload length field disagrees with params")
	}
	p.CRC = uint16(b[bodyLen]) | uint16(b[bodyLen+1])<<8
	return p, nil
}
