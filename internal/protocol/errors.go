package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/mowerlink/internal/protocol/frame"
)

var (
	ErrNilMessage          = errors.New("protocol: nil message")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
	ErrInvalidMessage      = errors.New("protocol: invalid message")
)

// ValidationError is one rule a well-formed message breaks.
type ValidationError struct {
	MsgType frame.MsgType
	Field   string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("protocol: msg_type=%s: %s", e.MsgType, e.Reason)
	}
	return fmt.Sprintf("protocol: msg_type=%s field=%s: %s", e.MsgType, e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidMessage
}
