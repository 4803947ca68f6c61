package protocol

import (
	"encoding/binary"
	"io"

	"github.com/danmuck/mowerlink/internal/observability"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
)

// Options carries what encode and decode need beyond the message itself.
type Options struct {
	Registry *param.Registry
	Limits   frame.Limits
	// Defaults fill the var header when a message does not carry one for
	// its type.
	Defaults frame.VarValues
}

func DefaultOptions() Options {
	return Options{
		Registry: param.Default(),
		Limits:   frame.DefaultLimits(),
		Defaults: frame.DefaultVarValues(),
	}
}

func (o Options) registry() *param.Registry {
	if o.Registry == nil {
		return param.Default()
	}
	return o.Registry
}

func (o Options) limits() frame.Limits {
	if o.Limits.MaxPayloadBytes <= 0 {
		return frame.DefaultLimits()
	}
	return o.Limits
}

// NewMessage builds a message of type t whose var header carries o.Defaults.
func (o Options) NewMessage(t frame.MsgType, msgID uint8, params ...param.Payload) (*Message, error) {
	vh, err := frame.BuildVarHeader(t, o.Defaults)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Header:    frame.Header{Type: t},
		VarHeader: vh,
		Payload:   frame.Payload{MsgID: msgID},
	}
	for _, p := range params {
		msg.Payload.Params = append(msg.Payload.Params, param.New(p))
	}
	return msg, nil
}

// Encode seals msg with default options and returns its wire bytes.
func Encode(msg *Message) ([]byte, error) {
	return DefaultOptions().Encode(msg)
}

// Seal returns a copy of msg with the var header, lengths and both checksums
// filled in as Encode would write them.
func Seal(msg *Message) (*Message, error) {
	sealed, _, err := DefaultOptions().seal(msg)
	return sealed, err
}

func (o Options) Encode(msg *Message) ([]byte, error) {
	sealed, f, err := o.seal(msg)
	if err != nil {
		observability.RecordFrameError(observability.DirectionEncode, err)
		return nil, err
	}
	b, err := f.MarshalBinary()
	if err != nil {
		observability.RecordFrameError(observability.DirectionEncode, err)
		return nil, err
	}
	observability.RecordFrame(observability.DirectionEncode, f.Header.Type, len(b))
	return append(b, sealed.Body...), nil
}

// WriteMessage writes msg, body included, to w.
func WriteMessage(w io.Writer, msg *Message) error {
	return DefaultOptions().WriteMessage(w, msg)
}

func (o Options) WriteMessage(w io.Writer, msg *Message) error {
	b, err := o.Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (o Options) seal(msg *Message) (*Message, frame.Frame, error) {
	if msg == nil {
		return nil, frame.Frame{}, ErrNilMessage
	}
	vh := msg.VarHeader
	if vh.Type() != msg.Header.Type || vh.Size() != frame.VarHeaderSize(msg.Header.Type) {
		built, err := frame.BuildVarHeader(msg.Header.Type, o.Defaults)
		if err != nil {
			return nil, frame.Frame{}, err
		}
		vh = built
	}

	payload := msg.Payload
	payload.Params = append([]param.Param(nil), msg.Payload.Params...)
	body, err := payload.Body(o.registry())
	if err != nil {
		return nil, frame.Frame{}, err
	}
	payload.UnencryptedLength = uint16(len(body) - frame.PayloadPrefixLen)
	payload.CRC = frame.PayloadChecksum(vh.Bytes(), body)

	f, err := frame.Frame{
		Header:    frame.Header{Type: msg.Header.Type, Code: msg.Header.Code},
		VarHeader: vh.Bytes(),
		Payload:   binary.LittleEndian.AppendUint16(body, payload.CRC),
	}.Seal(o.limits())
	if err != nil {
		return nil, frame.Frame{}, err
	}

	sealed := &Message{
		Header:    f.Header,
		VarHeader: vh,
		Payload:   payload,
	}
	if len(msg.Body) > 0 {
		sealed.Body = append([]byte(nil), msg.Body...)
	}
	return sealed, f, nil
}
