package device

import "github.com/juju/errors"

func openHID(cfg Config) (*hidDevice, error) {
	return nil, errors.NotSupportedf("usbhid on windows, use driver=%s", DriverUSB)
}

type hidDevice struct{}

func (*hidDevice) SendRequest(p []byte) (int, error)  { return 0, errors.NotSupportedf("usbhid") }
func (*hidDevice) ReadResponse(p []byte) (int, error) { return 0, errors.NotSupportedf("usbhid") }
func (*hidDevice) Close() error                       { return nil }
