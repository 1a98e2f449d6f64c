package inverter

const CommandGeneralStatus = "QPIGS"

// GeneralStatus is QPIGS response.
type GeneralStatus struct {
	GridVoltage                 float64 `ssv:"grid_voltage"`
	GridFrequency               float64 `ssv:"grid_frequency"`
	AcOutputVoltage             float64 `ssv:"ac_output_voltage"`
	AcOutputFrequency           float64 `ssv:"ac_output_frequency"`
	AcOutputApparentPower       float64 `ssv:"ac_output_apparent_power"`
	AcOutputActivePower         float64 `ssv:"ac_output_active_power"`
	OutputLoadPercent           float64 `ssv:"output_load_percent"`
	BusVoltage                  float64 `ssv:"bus_voltage"`
	BatteryVoltage              float64 `ssv:"battery_voltage"`
	BatteryChargingCurrent      float64 `ssv:"battery_charging_current"`
	BatteryCapacity             float64 `ssv:"battery_capacity"`
	InverterHeatSinkTemperature float64 `ssv:"inverter_heat_sink_temperature"`
	PvInputCurrent              float64 `ssv:"pv_input_current"`
	PvInputVoltage              float64 `ssv:"pv_input_voltage"`
	BatteryVoltageScc           float64 `ssv:"battery_voltage_scc"`
	BatteryDischargeCurrent     float64 `ssv:"battery_discharge_current"`
	// 8 bit flags, e.g. "00010101"
	DeviceStatus string `ssv:"device_status"`
}

func (self *Inverter) GeneralStatus() (GeneralStatus, error) {
	var s GeneralStatus
	err := self.ExecuteInto(CommandGeneralStatus, &s)
	return s, err
}
