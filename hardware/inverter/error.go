package inverter

import (
	"fmt"

	"github.com/juju/errors"
)

var (
	ErrMissingResponseMarker = errors.New("missing response marker")
	ErrShortResponse         = errors.New("response too short for checksum")
	ErrResponseTooLong       = errors.New("response exceeds chunk limit")
)

type CommandTooLongError struct {
	Command string
}

func (self *CommandTooLongError) Error() string {
	return "command too long: " + self.Command
}

type InvalidCrcError struct {
	Expected string
	Actual   string
	Data     string
}

func (self *InvalidCrcError) Error() string {
	return fmt.Sprintf("invalid crc, expected %s but was %s: '%s'", self.Expected, self.Actual, self.Data)
}

type ExpectedUtf8Error struct {
	Data []byte
}

func (self *ExpectedUtf8Error) Error() string {
	return fmt.Sprintf("expected UTF-8 response: %q", self.Data)
}

// DeviceError wraps transport failure.
type DeviceError struct {
	Err error
}

func (self *DeviceError) Error() string { return "device error: " + self.Err.Error() }
func (self *DeviceError) Unwrap() error { return self.Err }

// ParseResponseError wraps ssv decoding failure of valid frame.
type ParseResponseError struct {
	Command string
	Err     error
}

func (self *ParseResponseError) Error() string {
	if self.Command == "" {
		return "parse response error: " + self.Err.Error()
	}
	return fmt.Sprintf("parse response command=%s error: %v", self.Command, self.Err)
}
func (self *ParseResponseError) Unwrap() error { return self.Err }
