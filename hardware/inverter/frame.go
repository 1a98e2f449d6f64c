package inverter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anti-social/inverter2mqtt/crc"
)

const (
	ChunkSize               = 8
	DefaultMaxCommandLength = 5

	responseMarker = '('
	terminator     = '\r'
)

// Device is request/response transport. ReadResponse fills whole chunk buffer,
// unused tail bytes are zero.
type Device interface {
	SendRequest(p []byte) (int, error)
	ReadResponse(p []byte) (int, error)
}

// EncodeCommand builds wire frame: command, CRC16 big-endian, CR, zero padded to ChunkSize.
// maxLength=0 disables command length check.
func EncodeCommand(cmd string, maxLength int) ([]byte, error) {
	if maxLength > 0 && len(cmd) > maxLength {
		return nil, &CommandTooLongError{Command: cmd}
	}
	b := make([]byte, 0, len(cmd)+3+ChunkSize)
	b = append(b, cmd...)
	b = crc.AppendCRC16(b, b)
	b = append(b, terminator)
	for len(b) < ChunkSize {
		b = append(b, 0)
	}
	return b, nil
}

// ReadRawFrame reads chunks until one ends with CR.
// Returned bytes include response marker and checksum, not terminator.
// maxChunks=0 reads without limit.
func ReadRawFrame(dev Device, maxChunks int) ([]byte, error) {
	var chunk [ChunkSize]byte
	acc := make([]byte, 0, 16*ChunkSize)
	for i := 1; ; i++ {
		if maxChunks > 0 && i > maxChunks {
			return acc, ErrResponseTooLong
		}
		chunk = [ChunkSize]byte{}
		if _, err := dev.ReadResponse(chunk[:]); err != nil {
			return acc, &DeviceError{Err: err}
		}
		trimmed := bytes.TrimRight(chunk[:], "\x00")
		acc = append(acc, trimmed...)
		if len(trimmed) > 0 && trimmed[len(trimmed)-1] == terminator {
			return acc[:len(acc)-1], nil
		}
	}
}

// DecodeFrame validates marker and checksum, returns payload between them.
func DecodeFrame(raw []byte) (string, error) {
	if len(raw) == 0 || raw[0] != responseMarker {
		return "", ErrMissingResponseMarker
	}
	if len(raw) < 3 {
		return "", ErrShortResponse
	}
	n := len(raw)
	if crc.CRC16(raw) != 0 {
		data := raw[:n-2]
		actual := uint16(raw[n-2])<<8 | uint16(raw[n-1])
		return "", &InvalidCrcError{
			Expected: fmt.Sprintf("0x%04x", crc.CRC16(data)),
			Actual:   fmt.Sprintf("0x%04x", actual),
			Data:     strings.ToValidUTF8(string(data), "\uFFFD"),
		}
	}
	payload := raw[1 : n-2]
	if !utf8.Valid(payload) {
		return "", &ExpectedUtf8Error{Data: append([]byte(nil), payload...)}
	}
	return string(payload), nil
}

func ReadFrame(dev Device) (string, error) {
	raw, err := ReadRawFrame(dev, 0)
	if err != nil {
		return "", err
	}
	return DecodeFrame(raw)
}
