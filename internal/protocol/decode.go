package protocol

import (
	"io"

	"github.com/danmuck/mowerlink/internal/observability"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Decode parses the frame at the start of b. Bytes after the frame are kept
// in Message.Body.
func Decode(b []byte) (*Message, error) {
	return DefaultOptions().Decode(b)
}

// DecodeFrame parses the frame at the start of b and returns it with the
// number of bytes it spans. The remainder of b is left to the caller.
func DecodeFrame(b []byte) (*Message, int, error) {
	return DefaultOptions().DecodeFrame(b)
}

// ReadMessage reads exactly one frame from r. A clean end of stream is io.EOF.
func ReadMessage(r io.Reader) (*Message, error) {
	return DefaultOptions().ReadMessage(r)
}

func (o Options) Decode(b []byte) (*Message, error) {
	msg, n, err := o.DecodeFrame(b)
	if err != nil {
		return nil, err
	}
	if n < len(b) {
		msg.Body = append([]byte(nil), b[n:]...)
	}
	return msg, nil
}

func (o Options) DecodeFrame(b []byte) (*Message, int, error) {
	f, n, err := frame.SplitFrame(b, o.limits())
	if err != nil {
		observability.RecordFrameError(observability.DirectionDecode, err)
		log.Debug().Err(err).Int("len", len(b)).Msg("protocol.DecodeFrame split")
		return nil, 0, err
	}
	msg, err := o.fromFrame(f)
	if err != nil {
		return nil, 0, err
	}
	return msg, n, nil
}

func (o Options) ReadMessage(r io.Reader) (*Message, error) {
	f, err := frame.ReadFrame(r, o.limits())
	if err != nil {
		if err != io.EOF {
			observability.RecordFrameError(observability.DirectionDecode, err)
			log.Debug().Err(err).Msg("protocol.ReadMessage frame")
		}
		return nil, err
	}
	return o.fromFrame(f)
}

func (o Options) fromFrame(f frame.Frame) (*Message, error) {
	vh, _, err := frame.ParseVarHeader(f.Header.Type, f.VarHeader)
	if err != nil {
		observability.RecordFrameError(observability.DirectionDecode, err)
		log.Debug().Err(err).Stringer("msg_type", f.Header.Type).Msg("protocol.decode var header")
		return nil, err
	}
	payload, err := frame.DecodePayload(o.registry(), f.Payload)
	if err != nil {
		observability.RecordFrameError(observability.DirectionDecode, err)
		log.Debug().Err(err).Stringer("msg_type", f.Header.Type).Msg("protocol.decode payload")
		return nil, err
	}
	observability.RecordFrame(observability.DirectionDecode, f.Header.Type, f.Len())
	log.Debug().
		Stringer("msg_type", f.Header.Type).
		Uint8("msg_id", payload.MsgID).
		Int("params", len(payload.Params)).
		Msg("protocol.decode")
	return &Message{Header: f.Header, VarHeader: vh, Payload: payload}, nil
}
