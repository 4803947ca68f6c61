package frame

import "github.com/snksoft/crc"

// crc.CRC16 is CRC-16/ARC: poly 0x8005, init 0, reflected in and out.
var arcTable = crc.NewTable(crc.CRC16)

// Checksum returns the CRC-16/ARC of the concatenation of parts.
func Checksum(parts ...[]byte) uint16 {
	c := arcTable.InitCrc()
	for _, p := range parts {
		c = arcTable.UpdateCrc(c, p)
	}
	return arcTable.CRC16(c)
}
