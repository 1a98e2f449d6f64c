package inverter

import (
	"strconv"
	"testing"

	"github.com/anti-social/inverter2mqtt/log2"
	"github.com/anti-social/inverter2mqtt/ssv"
	"github.com/google/go-cmp/cmp"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sensor1 = &SensorConfig{
	Name:              "sensor1",
	ValueType:         ValueFloat,
	DeviceClass:       "voltage",
	UnitOfMeasurement: "V",
	Icon:              "mdi:power-plug",
}

func newTestInverter(t testing.TB, rs ...MockR) (*Inverter, *MockDevice) {
	dev := NewMockDevice(t, rs...)
	inv := New(dev, Options{
		MaxCommandLength: DefaultMaxCommandLength,
		Log:              log2.NewTest(t, log2.LDebug),
	})
	return inv, dev
}

func TestExecuteCommand(t *testing.T) {
	t.Parallel()

	inv, dev := newTestInverter(t, MockR{
		Request:  "QPIGS",
		Response: []byte{'(', '0', ' ', '2', '3', '3', '.', '7', 0x09, 0xc7, 0x0d, 0, 0, 0, 0, 0},
	})
	cfg := &CommandConfig{Command: "QPIGS", Sensors: []*SensorConfig{nil, sensor1}}
	values, err := inv.ExecuteCommand(cfg)
	require.NoError(t, err)
	expect := map[string]SensorValue{"sensor1": FloatValue(233.7)}
	if diff := cmp.Diff(expect, values); diff != "" {
		t.Errorf("values mismatch (-expect +got):\n%s", diff)
	}
	require.NoError(t, dev.ExpectationsWereMet())
}

func TestExecuteCommandInvalidCrc(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInverter(t, MockR{
		Request:  "QPIGS",
		Response: []byte{'(', '0', ' ', '2', '3', '3', '.', '7', 0x09, 0xc8, 0x0d, 0, 0, 0, 0, 0},
	})
	_, err := inv.ExecuteCommand(&CommandConfig{Command: "QPIGS", Sensors: []*SensorConfig{nil}})
	assert.Equal(t, &InvalidCrcError{Expected: "0x09c7", Actual: "0x09c8", Data: "(0 233.7"}, err)
}

func TestExecuteCommandInvalidValue(t *testing.T) {
	t.Parallel()

	inv, _ := newTestInverter(t, MockR{
		Request:  "QPIGS",
		Response: []byte{'(', 'a', 0xf3, 0xc8, 0x0d, 0, 0, 0},
	})
	_, err := inv.ExecuteCommand(&CommandConfig{Command: "QPIGS", Sensors: []*SensorConfig{sensor1}})
	_, errParse := strconv.ParseFloat("a", 64)
	assert.Equal(t, &ParseResponseError{
		Command: "QPIGS",
		Err:     &ssv.ExpectedFloatError{Field: "sensor1", Err: errParse},
	}, err)
	assert.False(t, IsDeviceError(err))
}

func TestExecuteCommandModes(t *testing.T) {
	t.Parallel()

	sensors := []*SensorConfig{
		{Name: "mode_count", ValueType: ValueInteger},
		nil,
		{Name: "battery_voltage", ValueType: ValueFloat},
		{Name: "status", ValueType: ValueString},
	}
	type Case struct {
		name      string
		mode      SensorMode
		payload   string
		expect    map[string]SensorValue
		expectErr error
	}
	_, errInt := strconv.ParseInt("1.5", 10, 64)
	cases := []Case{
		{"truncate-full", SensorsTruncate, "3 x 26.8 00010101 extra", map[string]SensorValue{
			"mode_count":      IntegerValue(3),
			"battery_voltage": FloatValue(26.8),
			"status":          StringValue("00010101"),
		}, nil},
		{"truncate-short", SensorsTruncate, "3 x 26.8", map[string]SensorValue{
			"mode_count":      IntegerValue(3),
			"battery_voltage": FloatValue(26.8),
		}, nil},
		{"truncate-empty", SensorsTruncate, "", map[string]SensorValue{}, nil},
		{"strict-full", SensorsStrict, "-3 x 26.8 0", map[string]SensorValue{
			"mode_count":      IntegerValue(-3),
			"battery_voltage": FloatValue(26.8),
			"status":          StringValue("0"),
		}, nil},
		{"strict-short", SensorsStrict, "3 x 26.8", nil,
			&ParseResponseError{Command: "QMOD", Err: &ssv.ExpectedValueError{Field: "status"}}},
		{"strict-skip-missing", SensorsStrict, "3", nil,
			&ParseResponseError{Command: "QMOD", Err: &ssv.ExpectedValueError{Field: "battery_voltage"}}},
		{"integer-error", SensorsTruncate, "1.5", nil,
			&ParseResponseError{Command: "QMOD", Err: &ssv.ExpectedIntegerError{Field: "mode_count", Err: errInt}}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			values, err := ParseSensors(c.payload, &CommandConfig{Command: "QMOD", Mode: c.mode, Sensors: sensors})
			if c.expectErr != nil {
				assert.Equal(t, c.expectErr, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(c.expect, values); diff != "" {
				t.Errorf("values mismatch (-expect +got):\n%s", diff)
			}
		})
	}
}

func TestGeneralStatus(t *testing.T) {
	t.Parallel()

	const payload = "232.0 50.0 230.0 49.9 0230 0183 004 375 26.80 000 100 0035 0000 000.0 00.00 00000 00010101 00 00 00000 010"
	inv, dev := newTestInverter(t,
		MockR{Request: CommandGeneralStatus, Response: MockResponse(payload)},
		MockR{Request: CommandGeneralStatus, Response: MockResponse("232.0 50.0")},
	)
	s, err := inv.GeneralStatus()
	require.NoError(t, err)
	assert.Equal(t, GeneralStatus{
		GridVoltage:                 232.0,
		GridFrequency:               50.0,
		AcOutputVoltage:             230.0,
		AcOutputFrequency:           49.9,
		AcOutputApparentPower:       230,
		AcOutputActivePower:         183,
		OutputLoadPercent:           4,
		BusVoltage:                  375,
		BatteryVoltage:              26.8,
		BatteryCapacity:             100,
		InverterHeatSinkTemperature: 35,
		DeviceStatus:                "00010101",
	}, s)

	_, err = inv.GeneralStatus()
	var pe *ParseResponseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CommandGeneralStatus, pe.Command)
	assert.Equal(t, &ssv.ExpectedValueError{Field: "ac_output_voltage"}, pe.Err)
	require.NoError(t, dev.ExpectationsWereMet())
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()

	errWrite := errors.New("usb: device disconnected")
	errRead := errors.New("usb: read timeout")
	inv, dev := newTestInverter(t,
		MockR{Request: "QMOD", WriteErr: errWrite},
		MockR{Request: "QMOD", ReadErr: errRead},
		MockR{Request: "QMOD", Response: MockResponse("B")},
	)

	_, err := inv.Query("QPIGS2")
	assert.Equal(t, &CommandTooLongError{Command: "QPIGS2"}, err)

	_, err = inv.Query("QMOD")
	assert.True(t, IsDeviceError(err))
	assert.True(t, errors.Is(err, errWrite))

	_, err = inv.Query("QMOD")
	assert.Equal(t, &DeviceError{Err: errRead}, err)

	resp, err := inv.Query("QMOD")
	require.NoError(t, err)
	assert.Equal(t, "B", resp)
	require.NoError(t, dev.ExpectationsWereMet())
}

func TestMaxResponseChunks(t *testing.T) {
	t.Parallel()

	dev := NewMockDevice(t, MockR{Request: "QPIRI", Response: MockResponse("230.0 21.7 230.0 50.0 21.7 5000")})
	inv := New(dev, Options{MaxResponseChunks: 2})
	_, err := inv.Query("QPIRI")
	assert.True(t, errors.Is(err, ErrResponseTooLong))
}

func TestSensorValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "233.7", FloatValue(233.7).String())
	assert.Equal(t, "50", FloatValue(50).String())
	assert.Equal(t, "-4", IntegerValue(-4).String())
	assert.Equal(t, "00010101", StringValue("00010101").String())
	f, ok := IntegerValue(7).Float64()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)
	_, ok = StringValue("7").Float64()
	assert.False(t, ok)

	vt, err := ParseValueType("Float")
	require.NoError(t, err)
	assert.Equal(t, ValueFloat, vt)
	_, err = ParseValueType("bool")
	assert.True(t, errors.IsNotValid(err))
	mode, err := ParseSensorMode("strict")
	require.NoError(t, err)
	assert.Equal(t, SensorsStrict, mode)
	_, err = ParseSensorMode("lenient")
	assert.True(t, errors.IsNotValid(err))
}
