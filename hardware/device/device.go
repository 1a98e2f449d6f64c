// Package device opens inverter transports: raw USB, USB HID, serial line.
package device

import (
	"io"
	"time"

	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/juju/errors"
)

const (
	DriverUSB    = "usb"
	DriverUSBHID = "usbhid"
	DriverSerial = "serial"

	DefaultTimeout = time.Second
	DefaultBaud    = 2400
)

var Drivers = []string{DriverUSB, DriverUSBHID, DriverSerial}

type Device interface {
	inverter.Device
	io.Closer
}

type Config struct {
	Driver string

	VendorID  uint16
	ProductID uint16
	Interface int

	SerialPath string
	Baud       int

	// per chunk read
	Timeout time.Duration
}

type ErrTimeoutT string

func (e ErrTimeoutT) Error() string { return string(e) }
func (ErrTimeoutT) Timeout() bool   { return true }

type Timeouter interface {
	Timeout() bool
}

func IsTimeout(err error) bool {
	var t Timeouter
	return errors.As(err, &t) && t.Timeout()
}

func Open(cfg Config, log *log2.Log) (Device, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	var d Device
	var err error
	switch cfg.Driver {
	case DriverUSB:
		d, err = openUSB(cfg)
	case DriverUSBHID, "":
		d, err = openHID(cfg)
	case DriverSerial:
		d, err = openSerial(cfg)
	default:
		return nil, errors.NotValidf("device driver=%s", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "device driver=%s", cfg.Driver)
	}
	log.Infof("device opened driver=%s vid=%04x pid=%04x serial=%s", cfg.Driver, cfg.VendorID, cfg.ProductID, cfg.SerialPath)
	return d, nil
}

type readResult struct {
	b   []byte
	n   int
	err error
}

// readTimeout runs blocking read in background and gives up after d.
// On timeout pending read still owns its buffer, caller must close the device.
func readTimeout(read func([]byte) (int, error), p []byte, d time.Duration) (int, error) {
	ch := make(chan readResult, 1)
	go func() {
		b := make([]byte, len(p))
		n, err := read(b)
		ch <- readResult{b, n, err}
	}()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case r := <-ch:
		n := copy(p, r.b[:r.n])
		return n, r.err
	case <-t.C:
		return 0, ErrTimeoutT("device read timeout")
	}
}

// fillChunk zeroes p tail after n bytes.
func fillChunk(p []byte, n int) (int, error) {
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
