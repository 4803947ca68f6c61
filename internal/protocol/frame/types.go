package frame

import "fmt"

// MsgType is the frame message type. Codes the decoder does not know map to
// MsgUndefined.
type MsgType uint8

const (
	MsgUndefined          MsgType = 0
	MsgConnect            MsgType = 1
	MsgConnectAck         MsgType = 2
	MsgData               MsgType = 3
	MsgDisConnect         MsgType = 14
	MsgConnectExtended    MsgType = 16
	MsgConnectExtendedAck MsgType = 17
	MsgDisConnectExtended MsgType = 18
)

var msgTypeNames = map[MsgType]string{
	MsgUndefined:          "undefined",
	MsgConnect:            "connect",
	MsgConnectAck:         "connect_ack",
	MsgData:               "data",
	MsgDisConnect:         "disconnect",
	MsgConnectExtended:    "connect_extended",
	MsgConnectExtendedAck: "connect_extended_ack",
	MsgDisConnectExtended: "disconnect_extended",
}

// ParseMsgType maps a wire code to its message type.
func ParseMsgType(code byte) MsgType {
	t := MsgType(code)
	if _, ok := msgTypeNames[t]; !ok {
		return MsgUndefined
	}
	return t
}

// MsgTypeByName resolves names as printed by MsgType.String.
func MsgTypeByName(name string) (MsgType, bool) {
	for t, n := range msgTypeNames {
		if n == name {
			return t, true
		}
	}
	return MsgUndefined, false
}

func (t MsgType) Known() bool {
	_, ok := msgTypeNames[t]
	return ok && t != MsgUndefined
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("msg_type(%d)", uint8(t))
}

// DeviceCode identifies a sender or receiver role on the link.
type DeviceCode uint8

const (
	DeviceMobileApp         DeviceCode = 0x41
	DeviceBackend           DeviceCode = 0x42
	DeviceChargingStation   DeviceCode = 0x43
	DeviceMainboard         DeviceCode = 0x4D
	DevicePCToCSConnector   DeviceCode = 0x4E
	DevicePCToMainboardUART DeviceCode = 0x4F
	DevicePCToCSBoard       DeviceCode = 0x50
)

var deviceNames = map[DeviceCode]string{
	DeviceMobileApp:         "mobile_app",
	DeviceBackend:           "backend",
	DeviceChargingStation:   "charging_station_app",
	DeviceMainboard:         "mainboard",
	DevicePCToCSConnector:   "pc_cs_connector",
	DevicePCToMainboardUART: "pc_mainboard_uart",
	DevicePCToCSBoard:       "pc_cs_board",
}

func (d DeviceCode) Known() bool {
	_, ok := deviceNames[d]
	return ok
}

func (d DeviceCode) String() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("device(0x%02x)", uint8(d))
}
