package protocol

import (
	"fmt"

	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
)

// Find returns the first parameter of msg whose payload is a T.
func Find[T param.Payload](msg *Message) (T, bool) {
	var zero T
	if msg == nil {
		return zero, false
	}
	for _, p := range msg.Payload.Params {
		if v, ok := p.Payload.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// ParamIDs lists parameter ids of msg in wire order.
func (m *Message) ParamIDs() []param.ID {
	ids := make([]param.ID, 0, len(m.Payload.Params))
	for _, p := range m.Payload.Params {
		ids = append(ids, p.ID)
	}
	return ids
}

// Validate reports the first rule msg breaks. Decode does not call it; an
// unknown message type or device code still decodes.
func Validate(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	t := msg.Header.Type
	if msg.VarHeader.Type() != t {
		return fmt.Errorf("%w: header %s, var header %s", ErrMessageTypeMismatch, t, msg.VarHeader.Type())
	}
	if !t.Known() {
		return ValidationError{MsgType: t, Reason: "undefined message type"}
	}
	for _, f := range []frame.VarField{frame.FieldSender, frame.FieldReceiver} {
		v, err := msg.VarHeader.Value(f)
		if err != nil {
			continue
		}
		if !frame.DeviceCode(v).Known() {
			return ValidationError{MsgType: t, Field: f.String(), Reason: "unknown device code " + frame.DeviceCode(v).String()}
		}
	}
	for _, p := range msg.Payload.Params {
		if p.Payload == nil || p.Payload.ParamID() != p.ID {
			return ValidationError{MsgType: t, Field: "param " + p.ID.String(), Reason: "payload does not match id"}
		}
	}
	return nil
}
