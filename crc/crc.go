package crc

import "github.com/sigurn/crc16"

// CRC-16/XMODEM: poly 0x1021, init 0, no reflection, no xorout.
var tableXmodem = crc16.MakeTable(crc16.CRC16_XMODEM)

func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, tableXmodem)
}

// Continue checksum over next data block.
func CRC16Update(crc uint16, data []byte) uint16 {
	return crc16.Update(crc, data, tableXmodem)
}

// Appends big-endian CRC16(data) to dst.
// CRC16 over data followed by its appended checksum is always 0.
func AppendCRC16(dst, data []byte) []byte {
	c := CRC16(data)
	return append(dst, byte(c>>8), byte(c&0xff))
}
