package device

import (
	"time"

	"github.com/juju/errors"
	"github.com/karalabe/usb"
)

type usbDevice struct {
	dev     usb.Device
	timeout time.Duration
}

func openUSB(cfg Config) (*usbDevice, error) {
	if !usb.Supported() {
		return nil, errors.NotSupportedf("usb on this platform")
	}
	infos, err := usb.Enumerate(cfg.VendorID, cfg.ProductID)
	if err != nil {
		return nil, errors.Annotate(err, "usb enumerate")
	}
	for _, info := range infos {
		if info.Interface != cfg.Interface {
			continue
		}
		dev, err := info.Open()
		if err != nil {
			return nil, errors.Annotatef(err, "usb open path=%s", info.Path)
		}
		return &usbDevice{dev: dev, timeout: cfg.Timeout}, nil
	}
	return nil, errors.NotFoundf("usb device vid=%04x pid=%04x interface=%d (total found %d)",
		cfg.VendorID, cfg.ProductID, cfg.Interface, len(infos))
}

func (self *usbDevice) SendRequest(p []byte) (int, error) {
	n, err := self.dev.Write(p)
	return n, errors.Annotate(err, "usb write")
}

func (self *usbDevice) ReadResponse(p []byte) (int, error) {
	n, err := readTimeout(self.dev.Read, p, self.timeout)
	if err != nil {
		return n, errors.Annotate(err, "usb read")
	}
	return fillChunk(p, n)
}

func (self *usbDevice) Close() error { return self.dev.Close() }
