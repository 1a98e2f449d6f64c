package state

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anti-social/inverter2mqtt/hardware/device"
	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/tele"
	tele_config "github.com/anti-social/inverter2mqtt/tele/config"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
)

const (
	DefaultInverterID    = "inverter"
	DefaultQueryInterval = 30 * time.Second
	DefaultRetryDelay    = 10 * time.Second
	DefaultUSBVendorID   = 0x0665
	DefaultUSBProductID  = 0x5161
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	LogLevel string             `hcl:"log_level"`
	Inverter InverterConfig     `hcl:"inverter"`
	Mqtt     tele_config.Config `hcl:"mqtt"`
	Metrics  struct {
		Listen string `hcl:"listen"`
	} `hcl:"metrics"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

type InverterConfig struct { //nolint:maligned
	ID           string `hcl:"id"`
	Name         string `hcl:"name"`
	Manufacturer string `hcl:"manufacturer"`
	Model        string `hcl:"model"`
	Driver       string `hcl:"driver"`
	LogDebug     bool   `hcl:"log_debug"`

	// 0 = inverter.DefaultMaxCommandLength, negative = unlimited
	MaxCommandLength  int `hcl:"max_command_length"`
	MaxResponseChunks int `hcl:"max_response_chunks"`
	QueryIntervalSec  int `hcl:"query_interval_sec"`
	RetryDelaySec     int `hcl:"retry_delay_sec"`
	RetryDelayMaxSec  int `hcl:"retry_delay_max_sec"`

	USB struct {
		VendorID  int `hcl:"vendor_id"`
		ProductID int `hcl:"product_id"`
		Interface int `hcl:"interface"`
		TimeoutMs int `hcl:"timeout_ms"`
	} `hcl:"usb"`
	Serial struct {
		Device        string `hcl:"device"`
		Baud          int    `hcl:"baud"`
		ReadTimeoutMs int    `hcl:"read_timeout_ms"`
	} `hcl:"serial"`

	Commands []CommandConfig `hcl:"command"`
}

type CommandConfig struct {
	Command string         `hcl:"command,key"`
	Mode    string         `hcl:"mode"`
	Sensors []SensorConfig `hcl:"sensor"`
}

// SensorAbsent label marks slot without sensor, its token is discarded.
// Example: sensor "-" {}
const SensorAbsent = "-"

// Slot order follows block order, so every slot is a labeled block.
type SensorConfig struct {
	Name              string `hcl:"name,key"`
	HumanName         string `hcl:"human_name"`
	ValueType         string `hcl:"value_type"`
	DeviceClass       string `hcl:"device_class"`
	UnitOfMeasurement string `hcl:"unit_of_measurement"`
	Icon              string `hcl:"icon"`
}

func (self *SensorConfig) Absent() bool { return self.Name == "" || self.Name == SensorAbsent }

func (self *InverterConfig) CommandLength() int {
	switch {
	case self.MaxCommandLength == 0:
		return inverter.DefaultMaxCommandLength
	case self.MaxCommandLength < 0:
		return 0
	}
	return self.MaxCommandLength
}

func (self *InverterConfig) QueryInterval() time.Duration {
	return helpers.IntSecondDefault(self.QueryIntervalSec, DefaultQueryInterval)
}

// RetryBackoff is fixed delay unless retry_delay_max_sec is greater than retry_delay_sec.
func (self *InverterConfig) RetryBackoff() *helpers.Backoff {
	min := helpers.IntSecondDefault(self.RetryDelaySec, DefaultRetryDelay)
	max := helpers.IntSecondDefault(self.RetryDelayMaxSec, min)
	if max < min {
		max = min
	}
	return &helpers.Backoff{Min: min, Max: max, K: 2, Res: time.Second}
}

func (self *InverterConfig) Options(log *log2.Log) inverter.Options {
	return inverter.Options{
		MaxCommandLength:  self.CommandLength(),
		MaxResponseChunks: self.MaxResponseChunks,
		Log:               log,
	}
}

func (self *InverterConfig) DeviceConfig() device.Config {
	c := device.Config{
		Driver:     self.Driver,
		VendorID:   DefaultUSBVendorID,
		ProductID:  DefaultUSBProductID,
		Interface:  self.USB.Interface,
		SerialPath: self.Serial.Device,
		Baud:       self.Serial.Baud,
		Timeout:    helpers.IntMillisecondDefault(self.USB.TimeoutMs, device.DefaultTimeout),
	}
	if self.USB.VendorID != 0 {
		c.VendorID = uint16(self.USB.VendorID)
	}
	if self.USB.ProductID != 0 {
		c.ProductID = uint16(self.USB.ProductID)
	}
	if c.Driver == device.DriverSerial {
		c.Timeout = helpers.IntMillisecondDefault(self.Serial.ReadTimeoutMs, device.DefaultTimeout)
	}
	return c
}

func (self *InverterConfig) DeviceInfo() tele.DeviceInfo {
	d := tele.DeviceInfo{
		ID:           self.ID,
		Name:         self.Name,
		Manufacturer: self.Manufacturer,
		Model:        self.Model,
	}
	if d.ID == "" {
		d.ID = DefaultInverterID
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	return d
}

// CommandConfigs converts config blocks, must be called after successful Validate.
func (self *InverterConfig) CommandConfigs() ([]inverter.CommandConfig, error) {
	result := make([]inverter.CommandConfig, 0, len(self.Commands))
	for _, c := range self.Commands {
		mode, err := inverter.ParseSensorMode(c.Mode)
		if err != nil {
			return nil, errors.Annotatef(err, "config: command=%s", c.Command)
		}
		cc := inverter.CommandConfig{
			Command: c.Command,
			Mode:    mode,
			Sensors: make([]*inverter.SensorConfig, len(c.Sensors)),
		}
		for i, s := range c.Sensors {
			if s.Absent() {
				continue
			}
			vt, err := inverter.ParseValueType(s.ValueType)
			if err != nil {
				return nil, errors.Annotatef(err, "config: command=%s sensor=%s", c.Command, s.Name)
			}
			cc.Sensors[i] = &inverter.SensorConfig{
				Name:              s.Name,
				HumanName:         s.HumanName,
				ValueType:         vt,
				DeviceClass:       s.DeviceClass,
				UnitOfMeasurement: s.UnitOfMeasurement,
				Icon:              s.Icon,
			}
		}
		result = append(result, cc)
	}
	return result, nil
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	if _, err := log2.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, errors.NotValidf("config: log_level=%s", c.LogLevel))
	}

	ic := &c.Inverter
	if ic.Driver != "" && !knownDriver(ic.Driver) {
		errs = append(errs, errors.NotValidf("config: inverter.driver=%s valid: %s",
			ic.Driver, strings.Join(device.Drivers, ", ")))
	}
	if ic.Driver == device.DriverSerial && ic.Serial.Device == "" {
		errs = append(errs, errors.NotValidf("config: inverter.serial.device empty with driver=serial"))
	}
	if ic.USB.VendorID < 0 || ic.USB.VendorID > 0xffff || ic.USB.ProductID < 0 || ic.USB.ProductID > 0xffff {
		errs = append(errs, errors.NotValidf("config: inverter.usb vendor_id=%d product_id=%d", ic.USB.VendorID, ic.USB.ProductID))
	}

	maxLength := ic.CommandLength()
	sensorSeen := make(map[string]string, 32)
	for _, cmd := range ic.Commands {
		if cmd.Command == "" {
			errs = append(errs, errors.NotValidf("config: command name empty"))
		}
		if maxLength > 0 && len(cmd.Command) > maxLength {
			errs = append(errs, errors.NotValidf("config: command=%s longer than max_command_length=%d", cmd.Command, maxLength))
		}
		if _, err := inverter.ParseSensorMode(cmd.Mode); err != nil {
			errs = append(errs, errors.Annotatef(err, "config: command=%s", cmd.Command))
		}
		for _, s := range cmd.Sensors {
			if s.Absent() {
				continue
			}
			if other, ok := sensorSeen[s.Name]; ok {
				errs = append(errs, errors.NotValidf("config: command=%s sensor=%s duplicate, first defined in command=%s", cmd.Command, s.Name, other))
			}
			sensorSeen[s.Name] = cmd.Command
			if _, err := inverter.ParseValueType(s.ValueType); err != nil {
				errs = append(errs, errors.Annotatef(err, "config: command=%s sensor=%s", cmd.Command, s.Name))
			}
		}
	}
	return helpers.FoldErrors(errs)
}

func knownDriver(s string) bool {
	for _, d := range device.Drivers {
		if d == s {
			return true
		}
	}
	return false
}

func (c *Config) String() string {
	var b strings.Builder
	ic := &c.Inverter
	fmt.Fprintf(&b, "log_level=%s\n", c.LogLevel)
	fmt.Fprintf(&b, "inverter id=%s driver=%s max_command_length=%d query_interval=%v\n",
		ic.DeviceInfo().ID, ic.Driver, ic.CommandLength(), ic.QueryInterval())
	for _, cmd := range ic.Commands {
		fmt.Fprintf(&b, "  command=%s mode=%s\n", cmd.Command, cmd.Mode)
		for i, s := range cmd.Sensors {
			if s.Absent() {
				fmt.Fprintf(&b, "    %d: -\n", i)
				continue
			}
			fmt.Fprintf(&b, "    %d: %s %s %s\n", i, s.Name, s.ValueType, s.UnitOfMeasurement)
		}
	}
	fmt.Fprintf(&b, "mqtt broker=%s discovery_prefix=%s\n", c.Mqtt.Broker, c.Mqtt.DiscoveryPrefix)
	fmt.Fprintf(&b, "metrics listen=%s\n", c.Metrics.Listen)
	return b.String()
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads and merges sources in order, then validates result.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
