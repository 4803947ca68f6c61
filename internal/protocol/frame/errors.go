package frame

import (
	"errors"
	"fmt"
)

var (
	ErrShortHeader     = errors.New("frame: short fixed header")
	ErrInvalidSentinel = errors.New("frame: invalid sentinel bytes")
	ErrCorruptFrame    = errors.New("frame: checksum mismatch")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrVarHeaderField  = errors.New("frame: field not in var header layout")
)

// ChecksumError is a CRC mismatch in one region of a frame.
type ChecksumError struct {
	Region string
	Got    uint16
	Want   uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: %s checksum mismatch: got 0x%04x want 0x%04x", e.Region, e.Got, e.Want)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrCorruptFrame
}
