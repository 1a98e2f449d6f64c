//go:build !windows

package device

import (
	"time"

	"github.com/juju/errors"
	"rafaelmartins.com/p/usbhid"
)

type hidDevice struct {
	d       *usbhid.Device
	timeout time.Duration
}

func openHID(cfg Config) (*hidDevice, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.VendorId() == cfg.VendorID && dev.ProductId() == cfg.ProductID
	}, true, false)
	if err != nil {
		return nil, errors.Annotatef(err, "usbhid vid=%04x pid=%04x", cfg.VendorID, cfg.ProductID)
	}
	return &hidDevice{d: d, timeout: cfg.Timeout}, nil
}

// Report ID 0, whole frame as report data.
func (self *hidDevice) SendRequest(p []byte) (int, error) {
	if err := self.d.SetOutputReport(0, p); err != nil {
		return 0, errors.Annotate(err, "usbhid output report")
	}
	return len(p), nil
}

func (self *hidDevice) ReadResponse(p []byte) (int, error) {
	n, err := readTimeout(self.readReport, p, self.timeout)
	if err != nil {
		return n, errors.Annotate(err, "usbhid input report")
	}
	return fillChunk(p, n)
}

func (self *hidDevice) readReport(p []byte) (int, error) {
	_, buf, err := self.d.GetInputReport()
	if err != nil {
		return 0, err
	}
	return copy(p, buf), nil
}

func (self *hidDevice) Close() error { return self.d.Close() }
