package codec

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated      = errors.New("codec: truncated data")
	ErrInvalidTag     = errors.New("codec: invalid tag value")
	ErrInvalidUTF8    = errors.New("codec: invalid utf-8 text")
	ErrUnsupported    = errors.New("codec: schema-less decode not supported")
	ErrUnknownVariant = errors.New("codec: unknown variant")
	ErrTrailingBytes  = errors.New("codec: trailing bytes after value")
	ErrTooLong        = errors.New("codec: length exceeds u32 prefix")
	ErrSchema         = errors.New("codec: schema mismatch")
	ErrCountLimit     = errors.New("codec: element count exceeds limit")
)

// TruncatedError reports a read that ran past the end of the input.
type TruncatedError struct {
	Pos  int
	Need int
	Have int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("codec: truncated data at pos %d: need %d bytes, have %d", e.Pos, e.Need, e.Have)
}

// Missing returns how many bytes the read was short by.
func (e *TruncatedError) Missing() int {
	return e.Need - e.Have
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// CountError reports a sequence or map count above the allowed maximum.
type CountError struct {
	Pos   int
	Count uint32
	Max   int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("codec: %d elements at pos %d exceeds limit %d", e.Count, e.Pos, e.Max)
}

func (e *CountError) Is(target error) bool {
	return target == ErrCountLimit
}

// SchemaError describes why a schema could not be bound to a Go type.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("codec: schema mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("codec: schema mismatch at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
