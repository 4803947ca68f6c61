package frame

import (
	"fmt"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
)

// VarField names one optional variable-header field.
type VarField uint8

const (
	FieldProtocolID VarField = iota
	FieldProtocolVersion
	FieldKeepAliveLSB
	FieldKeepAliveMSB
	FieldClientID
	FieldSender
	FieldReceiver
	FieldConnectReturnCode
)

var varFieldNames = [...]string{
	FieldProtocolID:        "protocol_id",
	FieldProtocolVersion:   "protocol_version",
	FieldKeepAliveLSB:      "keepalive_lsb",
	FieldKeepAliveMSB:      "keepalive_msb",
	FieldClientID:          "client_id",
	FieldSender:            "sender",
	FieldReceiver:          "receiver",
	FieldConnectReturnCode: "connect_return_code",
}

func (f VarField) String() string {
	if int(f) < len(varFieldNames) {
		return varFieldNames[f]
	}
	return fmt.Sprintf("var_field(%d)", uint8(f))
}

func (f VarField) wireType() *codec.Type {
	if f == FieldClientID {
		return codec.U32()
	}
	return codec.U8()
}

const (
	DefaultProtocolID        uint8  = 0x06
	DefaultProtocolVersion   uint8  = 0x02
	DefaultKeepAliveLSB      uint8  = 0x00
	DefaultKeepAliveMSB      uint8  = 0x00
	DefaultClientID          uint32 = 0x01
	DefaultSender                   = DevicePCToMainboardUART
	DefaultReceiver                 = DeviceMainboard
	DefaultConnectReturnCode uint8  = 0x09
)

// VarValues holds a value for every variable-header field. Which of them
// reach the wire depends on the message type.
type VarValues struct {
	ProtocolID        uint8
	ProtocolVersion   uint8
	KeepAliveLSB      uint8
	KeepAliveMSB      uint8
	ClientID          uint32
	Sender            DeviceCode
	Receiver          DeviceCode
	ConnectReturnCode uint8
}

func DefaultVarValues() VarValues {
	return VarValues{
		ProtocolID:        DefaultProtocolID,
		ProtocolVersion:   DefaultProtocolVersion,
		KeepAliveLSB:      DefaultKeepAliveLSB,
		KeepAliveMSB:      DefaultKeepAliveMSB,
		ClientID:          DefaultClientID,
		Sender:            DefaultSender,
		Receiver:          DefaultReceiver,
		ConnectReturnCode: DefaultConnectReturnCode,
	}
}

// Get returns the value of f widened to uint32.
func (v VarValues) Get(f VarField) uint32 {
	switch f {
	case FieldProtocolID:
		return uint32(v.ProtocolID)
	case FieldProtocolVersion:
		return uint32(v.ProtocolVersion)
	case FieldKeepAliveLSB:
		return uint32(v.KeepAliveLSB)
	case FieldKeepAliveMSB:
		return uint32(v.KeepAliveMSB)
	case FieldClientID:
		return v.ClientID
	case FieldSender:
		return uint32(v.Sender)
	case FieldReceiver:
		return uint32(v.Receiver)
	case FieldConnectReturnCode:
		return uint32(v.ConnectReturnCode)
	default:
		return 0
	}
}

type varLayout struct {
	fields []VarField
	codec  *codec.Codec[VarValues]
	size   int
}

// Wire order per message type. Sizes are derived from these lists.
var varLayoutFields = map[MsgType][]VarField{
	MsgConnect: {
		FieldProtocolID, FieldProtocolVersion, FieldKeepAliveLSB, FieldKeepAliveMSB,
		FieldClientID, FieldSender,
	},
	MsgConnectAck: {FieldConnectReturnCode},
	MsgData:       {FieldClientID, FieldSender, FieldReceiver},
	MsgDisConnect: {FieldClientID, FieldSender, FieldReceiver},
	MsgConnectExtended: {
		FieldProtocolID, FieldProtocolVersion, FieldKeepAliveLSB, FieldKeepAliveMSB,
		FieldClientID, FieldSender, FieldReceiver,
	},
	MsgConnectExtendedAck: {FieldClientID, FieldSender, FieldReceiver},
	MsgDisConnectExtended: {FieldClientID, FieldSender},
}

var varLayouts = buildVarLayouts(varLayoutFields)

func buildVarLayouts(table map[MsgType][]VarField) map[MsgType]varLayout {
	out := make(map[MsgType]varLayout, len(table))
	for t, fields := range table {
		schemaFields := make([]codec.Field, len(fields))
		for i, f := range fields {
			schemaFields[i] = codec.F(f.String(), f.wireType())
		}
		schema := codec.Struct("VarHeader."+t.String(), schemaFields...)
		size, _ := schema.FixedSize()
		out[t] = varLayout{
			fields: fields,
			codec:  codec.MustBind[VarValues](schema),
			size:   size,
		}
	}
	return out
}

// VarHeaderSize returns the variable-header byte size for t; 0 for types
// without a variable header.
func VarHeaderSize(t MsgType) int {
	return varLayouts[t].size
}

// VarFieldsFor returns the wire-ordered fields present for t.
func VarFieldsFor(t MsgType) []VarField {
	fields := varLayouts[t].fields
	out := make([]VarField, len(fields))
	copy(out, fields)
	return out
}

// VarHeader is the serialized variable header of one message type.
// It is immutable once built.
type VarHeader struct {
	msgType MsgType
	values  VarValues
	raw     []byte
}

// VarOption overrides one or more fields on top of a base VarValues.
type VarOption func(*VarValues)

// WithVarValues replaces the whole base, e.g. with configured defaults.
func WithVarValues(v VarValues) VarOption {
	return func(dst *VarValues) { *dst = v }
}

func WithProtocolID(id uint8) VarOption {
	return func(v *VarValues) { v.ProtocolID = id }
}

func WithProtocolVersion(version uint8) VarOption {
	return func(v *VarValues) { v.ProtocolVersion = version }
}

func WithKeepAlive(lsb, msb uint8) VarOption {
	return func(v *VarValues) { v.KeepAliveLSB, v.KeepAliveMSB = lsb, msb }
}

func WithClientID(id uint32) VarOption {
	return func(v *VarValues) { v.ClientID = id }
}

func WithSender(d DeviceCode) VarOption {
	return func(v *VarValues) { v.Sender = d }
}

func WithReceiver(d DeviceCode) VarOption {
	return func(v *VarValues) { v.Receiver = d }
}

func WithConnectReturnCode(code uint8) VarOption {
	return func(v *VarValues) { v.ConnectReturnCode = code }
}

// NewVarHeader builds the var header for t from DefaultVarValues with opts
// applied in order. Fields no option touches keep their default.
func NewVarHeader(t MsgType, opts ...VarOption) (VarHeader, error) {
	v := DefaultVarValues()
	for _, opt := range opts {
		opt(&v)
	}
	return BuildVarHeader(t, v)
}

// BuildVarHeader serializes the fields of v that belong to t, in layout
// order. v is taken literally: a zero field is written as zero. Use
// NewVarHeader to start from the defaults.
func BuildVarHeader(t MsgType, v VarValues) (VarHeader, error) {
	layout, ok := varLayouts[t]
	if !ok {
		return VarHeader{msgType: t, raw: []byte{}}, nil
	}
	raw, err := layout.codec.Encode(v)
	if err != nil {
		return VarHeader{}, err
	}
	return VarHeader{msgType: t, values: keepPresent(layout.fields, v), raw: raw}, nil
}

// ParseVarHeader reads the variable header for t from the start of b and
// returns it with the number of bytes consumed.
func ParseVarHeader(t MsgType, b []byte) (VarHeader, int, error) {
	layout, ok := varLayouts[t]
	if !ok {
		return VarHeader{msgType: t, raw: []byte{}}, 0, nil
	}
	r := codec.NewReader(b)
	v, err := layout.codec.Read(r)
	if err != nil {
		return VarHeader{}, 0, fmt.Errorf("frame: %s var header: %w", t, err)
	}
	raw := make([]byte, layout.size)
	copy(raw, b[:layout.size])
	return VarHeader{msgType: t, values: v, raw: raw}, layout.size, nil
}

// keepPresent zeroes values that are not part of the layout so two headers
// for the same type compare by their wire fields only.
func keepPresent(fields []VarField, v VarValues) VarValues {
	var out VarValues
	for _, f := range fields {
		switch f {
		case FieldProtocolID:
			out.ProtocolID = v.ProtocolID
		case FieldProtocolVersion:
			out.ProtocolVersion = v.ProtocolVersion
		case FieldKeepAliveLSB:
			out.KeepAliveLSB = v.KeepAliveLSB
		case FieldKeepAliveMSB:
			out.KeepAliveMSB = v.KeepAliveMSB
		case FieldClientID:
			out.ClientID = v.ClientID
		case FieldSender:
			out.Sender = v.Sender
		case FieldReceiver:
			out.Receiver = v.Receiver
		case FieldConnectReturnCode:
			out.ConnectReturnCode = v.ConnectReturnCode
		}
	}
	return out
}

func (h VarHeader) Type() MsgType { return h.msgType }

func (h VarHeader) Size() int { return len(h.raw) }

// Bytes returns a copy of the serialized header.
func (h VarHeader) Bytes() []byte {
	out := make([]byte, len(h.raw))
	copy(out, h.raw)
	return out
}

// Values returns the present fields; absent fields are zero.
func (h VarHeader) Values() VarValues { return h.values }

func (h VarHeader) Has(f VarField) bool {
	for _, lf := range varLayouts[h.msgType].fields {
		if lf == f {
			return true
		}
	}
	return false
}

// Value returns f widened to uint32, or ErrVarHeaderField when the layout of
// h does not carry it.
func (h VarHeader) Value(f VarField) (uint32, error) {
	if !h.Has(f) {
		return 0, fmt.Errorf("%w: %s in %s", ErrVarHeaderField, f, h.msgType)
	}
	return h.values.Get(f), nil
}

// Equal compares type and present fields.
func (h VarHeader) Equal(o VarHeader) bool {
	return h.msgType == o.msgType && h.values == o.values
}
