package device

import (
	"io"

	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/juju/errors"
	"github.com/tarm/serial"
)

type serialPort interface {
	io.ReadWriteCloser
	Flush() error
}

// Serial line delivers byte stream without chunk padding.
// Chunk ends when full or after CR.
type serialDevice struct {
	port serialPort
}

func openSerial(cfg Config) (*serialDevice, error) {
	if cfg.SerialPath == "" {
		return nil, errors.NotValidf("empty serial device path")
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.SerialPath,
		Baud:        baud,
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "serial open path=%s", cfg.SerialPath)
	}
	return &serialDevice{port: port}, nil
}

func (self *serialDevice) SendRequest(p []byte) (int, error) {
	// drop late bytes of previous response
	if err := self.port.Flush(); err != nil {
		return 0, errors.Annotate(err, "serial flush")
	}
	// padding is USB report artifact
	end := len(p)
	for end > 0 && p[end-1] == 0 {
		end--
	}
	if err := helpers.WriteAll(self.port, p[:end]); err != nil {
		return 0, errors.Annotate(err, "serial write")
	}
	return len(p), nil
}

func (self *serialDevice) ReadResponse(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := self.port.Read(p[n : n+1])
		if m == 0 {
			if err == nil || err == io.EOF {
				return n, ErrTimeoutT("serial read timeout")
			}
			return n, errors.Annotate(err, "serial read")
		}
		n++
		if p[n-1] == '\r' {
			break
		}
	}
	return fillChunk(p, n)
}

func (self *serialDevice) Close() error { return self.port.Close() }
