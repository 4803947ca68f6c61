package param

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
)

// HeaderLen is the id + length prefix of every parameter record.
const HeaderLen = 4

var ErrTooLarge = errors.New("param: payload exceeds u16 length")

// Param is one identified value inside a frame payload.
type Param struct {
	ID      ID
	Payload Payload
}

// New wraps p with its own id.
func New(p Payload) Param {
	return Param{ID: p.ParamID(), Payload: p}
}

// Encode returns id(u16) | len(u16) | data using reg for the data.
func (p Param) Encode(reg *Registry) ([]byte, error) {
	w := codec.NewWriter(HeaderLen + 8)
	if err := p.AppendTo(w, reg); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalBinary encodes p with the default registry.
func (p Param) MarshalBinary() ([]byte, error) {
	return p.Encode(Default())
}

// AppendTo writes the record to w.
func (p Param) AppendTo(w *codec.Writer, reg *Registry) error {
	if p.Payload != nil && p.Payload.ParamID() != p.ID {
		return fmt.Errorf("%w: id %d carries %T", ErrPayloadMismatch, uint16(p.ID), p.Payload)
	}
	if p.Payload == nil {
		return fmt.Errorf("%w: id %d has no payload", ErrPayloadMismatch, uint16(p.ID))
	}
	data, err := reg.Encode(p.Payload)
	if err != nil {
		return err
	}
	if len(data) > math.MaxUint16 {
		return fmt.Errorf("%w: param %d is %d bytes", ErrTooLarge, uint16(p.ID), len(data))
	}
	w.WriteU16(uint16(p.ID))
	w.WriteU16(uint16(len(data)))
	w.WriteRaw(data)
	return nil
}

// Decode reads one record from the start of b and returns it with the number
// of bytes consumed.
func Decode(reg *Registry, b []byte) (Param, int, error) {
	r := codec.NewReader(b)
	p, err := Read(reg, r)
	if err != nil {
		return Param{}, 0, err
	}
	return p, r.Pos(), nil
}

// Read decodes one record at the cursor of r.
func Read(reg *Registry, r *codec.Reader) (Param, error) {
	id, err := r.ReadU16()
	if err != nil {
		return Param{}, err
	}
	length, err := r.ReadU16()
	if err != nil {
		return Param{}, err
	}
	data, err := r.ReadRaw(int(length))
	if err != nil {
		return Param{}, fmt.Errorf("param %d: %w", id, err)
	}
	payload, err := reg.Decode(ID(id), data)
	if err != nil {
		return Param{}, err
	}
	return Param{ID: ID(id), Payload: payload}, nil
}
