package protocol

import (
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
)

// Message is one decoded or to-be-encoded frame.
type Message struct {
	Header    frame.Header
	VarHeader frame.VarHeader
	Payload   frame.Payload
	// Body holds bytes that followed the frame in the decoded buffer. Encode
	// appends it after the frame, outside checksum coverage.
	Body []byte
}

// NewData builds a Data message with default var header values.
func NewData(msgID uint8, params ...param.Payload) (*Message, error) {
	return DefaultOptions().NewMessage(frame.MsgData, msgID, params...)
}
