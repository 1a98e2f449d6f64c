// Package inverter talks to solar inverters over CRC16 framed ASCII protocol.
package inverter

import (
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/ssv"
	"github.com/juju/errors"
)

type Options struct {
	// 0 disables check, see DefaultMaxCommandLength
	MaxCommandLength int
	// 0 reads until terminator without limit
	MaxResponseChunks int
	Log               *log2.Log
}

// Inverter executes one command at a time, not safe for concurrent use.
type Inverter struct {
	dev  Device
	opts Options
	log  *log2.Log
}

func New(dev Device, opts Options) *Inverter {
	return &Inverter{
		dev:  dev,
		opts: opts,
		log:  opts.Log,
	}
}

func (self *Inverter) Device() Device { return self.dev }

func (self *Inverter) send(cmd string) error {
	frame, err := EncodeCommand(cmd, self.opts.MaxCommandLength)
	if err != nil {
		return err
	}
	self.log.Debugf("inverter send command=%s frame=%s", cmd, helpers.FormatHex(frame))
	if _, err = self.dev.SendRequest(frame); err != nil {
		return &DeviceError{Err: err}
	}
	return nil
}

func (self *Inverter) recv() (string, error) {
	raw, err := ReadRawFrame(self.dev, self.opts.MaxResponseChunks)
	self.log.Debugf("inverter recv frame=%s", helpers.FormatHex(raw))
	if err != nil {
		return "", err
	}
	return DecodeFrame(raw)
}

// Query sends command and returns validated response payload.
func (self *Inverter) Query(cmd string) (string, error) {
	if err := self.send(cmd); err != nil {
		return "", err
	}
	resp, err := self.recv()
	if err != nil {
		return "", err
	}
	self.log.Debugf("inverter command=%s response=%q", cmd, resp)
	return resp, nil
}

// ExecuteCommand returns values of configured sensors keyed by sensor name.
func (self *Inverter) ExecuteCommand(cfg *CommandConfig) (map[string]SensorValue, error) {
	resp, err := self.Query(cfg.Command)
	if err != nil {
		return nil, err
	}
	return ParseSensors(resp, cfg)
}

// ExecuteInto decodes response into v with ssv.Unmarshal.
func (self *Inverter) ExecuteInto(cmd string, v interface{}) error {
	resp, err := self.Query(cmd)
	if err != nil {
		return err
	}
	if err = ssv.Unmarshal(resp, v); err != nil {
		return &ParseResponseError{Command: cmd, Err: err}
	}
	return nil
}

// IsDeviceError reports transport failure anywhere in err chain.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
