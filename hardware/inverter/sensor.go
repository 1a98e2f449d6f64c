package inverter

import (
	"strconv"
	"strings"

	"github.com/anti-social/inverter2mqtt/ssv"
	"github.com/juju/errors"
)

type ValueType uint8

const (
	ValueInvalid ValueType = iota
	ValueInteger
	ValueFloat
	ValueString
)

func (self ValueType) String() string {
	switch self {
	case ValueInteger:
		return "integer"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	}
	return "invalid"
}

func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(s) {
	case "integer", "int":
		return ValueInteger, nil
	case "float":
		return ValueFloat, nil
	case "string":
		return ValueString, nil
	}
	return ValueInvalid, errors.NotValidf("value_type=%s", s)
}

func (self ValueType) kind() ssv.Kind {
	switch self {
	case ValueInteger:
		return ssv.Int64
	case ValueFloat:
		return ssv.Float64
	case ValueString:
		return ssv.String
	}
	return ssv.KindInvalid
}

// SensorMode selects behavior when response has fewer tokens than sensors.
type SensorMode uint8

const (
	// Missing tail values are silently omitted from result.
	SensorsTruncate SensorMode = iota
	// Missing value of configured sensor is ssv.ExpectedValueError.
	SensorsStrict
)

func (self SensorMode) String() string {
	if self == SensorsStrict {
		return "strict"
	}
	return "truncate"
}

func ParseSensorMode(s string) (SensorMode, error) {
	switch s {
	case "", "truncate":
		return SensorsTruncate, nil
	case "strict":
		return SensorsStrict, nil
	}
	return SensorsTruncate, errors.NotValidf("mode=%s", s)
}

type SensorConfig struct {
	Name              string
	HumanName         string
	ValueType         ValueType
	DeviceClass       string
	UnitOfMeasurement string
	Icon              string
}

// CommandConfig maps response tokens to sensors by position.
// nil sensor consumes and discards its token.
type CommandConfig struct {
	Command string
	Mode    SensorMode
	Sensors []*SensorConfig
}

type SensorValue struct {
	Type  ValueType
	Int   int64
	Float float64
	Str   string
}

func IntegerValue(i int64) SensorValue { return SensorValue{Type: ValueInteger, Int: i} }
func FloatValue(f float64) SensorValue { return SensorValue{Type: ValueFloat, Float: f} }
func StringValue(s string) SensorValue { return SensorValue{Type: ValueString, Str: s} }

func (self SensorValue) String() string {
	switch self.Type {
	case ValueInteger:
		return strconv.FormatInt(self.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(self.Float, 'f', -1, 64)
	case ValueString:
		return self.Str
	}
	return ""
}

// Numeric value, false for strings.
func (self SensorValue) Float64() (float64, bool) {
	switch self.Type {
	case ValueInteger:
		return float64(self.Int), true
	case ValueFloat:
		return self.Float, true
	}
	return 0, false
}

// ParseSensors zips response tokens with cfg.Sensors.
func ParseSensors(resp string, cfg *CommandConfig) (map[string]SensorValue, error) {
	names := make([]string, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		if s != nil {
			names[i] = s.Name
		}
	}
	result := make(map[string]SensorValue, len(cfg.Sensors))
	d := ssv.NewDecoder(resp)
	st := d.EnterStruct(names)
	defer st.End()
	for i := 0; st.Next(); i++ {
		if cfg.Mode == SensorsTruncate && !d.More() {
			break
		}
		s := cfg.Sensors[i]
		if s == nil {
			d.Skip()
			continue
		}
		v, err := d.NextScalar(s.ValueType.kind())
		if err != nil {
			return nil, &ParseResponseError{Command: cfg.Command, Err: err}
		}
		switch s.ValueType {
		case ValueInteger:
			result[s.Name] = IntegerValue(v.Int)
		case ValueFloat:
			result[s.Name] = FloatValue(v.Float)
		default:
			result[s.Name] = StringValue(v.Str)
		}
	}
	return result, nil
}
