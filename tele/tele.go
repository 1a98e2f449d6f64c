// Package tele publishes inverter sensor values to MQTT
// using Home Assistant discovery conventions.
package tele

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anti-social/inverter2mqtt/hardware/inverter"
)

const DefaultDiscoveryPrefix = "homeassistant"

type Publisher interface {
	PublishDiscovery(ctx context.Context) error
	PublishState(sensor, value string) error
	Close()
}

type DeviceInfo struct {
	ID           string
	Name         string
	Manufacturer string
	Model        string
}

type Discovery struct {
	Name              string          `json:"name"`
	ObjectID          string          `json:"object_id"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	Device            DiscoveryDevice `json:"device"`
	DeviceClass       string          `json:"device_class,omitempty"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	Icon              string          `json:"icon,omitempty"`
}

type DiscoveryDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

type Topics struct {
	prefix   string
	deviceID string
}

func NewTopics(prefix, deviceID string) Topics {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return Topics{prefix: prefix, deviceID: deviceID}
}

func (self Topics) ObjectID(sensor string) string { return self.deviceID + "_" + sensor }
func (self Topics) Base(sensor string) string {
	return self.prefix + "/sensor/" + self.deviceID + "/" + self.ObjectID(sensor)
}
func (self Topics) Config(sensor string) string { return self.Base(sensor) + "/config" }
func (self Topics) State(sensor string) string  { return self.Base(sensor) + "/state" }

func NewDiscovery(topics Topics, dev DeviceInfo, s *inverter.SensorConfig) Discovery {
	name := s.HumanName
	if name == "" {
		name = HumanName(s.Name)
	}
	objectID := topics.ObjectID(s.Name)
	return Discovery{
		Name:       name,
		ObjectID:   objectID,
		UniqueID:   objectID,
		StateTopic: topics.State(s.Name),
		Device: DiscoveryDevice{
			Name:         dev.Name,
			Identifiers:  []string{dev.ID},
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
		},
		DeviceClass:       s.DeviceClass,
		UnitOfMeasurement: s.UnitOfMeasurement,
		Icon:              s.Icon,
	}
}

// HumanName turns "battery_voltage" into "Battery Voltage".
func HumanName(sensor string) string {
	words := strings.Split(sensor, "_")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Sensors flattens present sensors of all commands.
func Sensors(commands []inverter.CommandConfig) []*inverter.SensorConfig {
	ss := make([]*inverter.SensorConfig, 0, 32)
	for _, c := range commands {
		for _, s := range c.Sensors {
			if s != nil {
				ss = append(ss, s)
			}
		}
	}
	return ss
}
