package tele

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/anti-social/inverter2mqtt/hardware/inverter"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/anti-social/inverter2mqtt/log2"
	tele_config "github.com/anti-social/inverter2mqtt/tele/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

const (
	DefaultKeepalive      = 60 * time.Second
	DefaultRetryDelay     = 10 * time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultPublishTimeout = 10 * time.Second
)

type Mqtt struct {
	log     *log2.Log
	config  tele_config.Config
	device  DeviceInfo
	sensors []*inverter.SensorConfig
	topics  Topics
	m       mqtt.Client
	mopt    *mqtt.ClientOptions

	retryDelay     time.Duration
	publishTimeout time.Duration
}

func NewMqtt(log *log2.Log, config tele_config.Config, device DeviceInfo, sensors []*inverter.SensorConfig) *Mqtt {
	return &Mqtt{
		log:     log,
		config:  config,
		device:  device,
		sensors: sensors,
		topics:  NewTopics(config.DiscoveryPrefix, device.ID),
	}
}

func (self *Mqtt) Topics() Topics { return self.topics }

// Connect blocks until broker accepts connection or ctx is done.
// Context may carry MqttMock, see ContextWithMqttMock.
func (self *Mqtt) Connect(ctx context.Context) error {
	mqtt.ERROR = self.log.Printer(log2.LError, "mqtt: ")
	mqtt.CRITICAL = self.log.Printer(log2.LError, "mqtt: ")
	mqtt.WARN = self.log.Printer(log2.LWarning, "mqtt: ")
	if self.config.LogDebug {
		mqtt.DEBUG = self.log.Printer(log2.LDebug, "mqtt: ")
	}

	broker := self.config.Broker
	if broker == "" {
		return errors.NotValidf("mqtt broker empty")
	}
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := self.config.ClientID
	if clientID == "" {
		clientID = "inverter2mqtt-" + self.device.ID
	}
	keepAlive := helpers.IntSecondDefault(self.config.KeepaliveSec, DefaultKeepalive)
	connectTimeout := helpers.IntSecondDefault(self.config.ConnectTimeoutSec, DefaultConnectTimeout)
	self.retryDelay = helpers.IntSecondDefault(self.config.RetryDelaySec, DefaultRetryDelay)
	self.publishTimeout = helpers.IntSecondDefault(self.config.PublishTimeoutSec, DefaultPublishTimeout)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(self.config.Username).
		SetPassword(self.config.Password).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(self.retryDelay).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	if mock, ok := ctx.Value(mqttMockContextKey).(*MqttMock); ok {
		mock.MockNew(self.mopt)
		self.m = mock
	} else {
		self.m = mqtt.NewClient(self.mopt)
	}

	for {
		token := self.m.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			return nil
		}
		self.log.Warningf("mqtt connect broker=%s err=%v retry in %v", broker, err, self.retryDelay)
		if !helpers.SleepStop(self.retryDelay, ctx.Done()) {
			return errors.Annotate(ctx.Err(), "mqtt connect")
		}
	}
}

func (self *Mqtt) Close() {
	if self.m == nil {
		return
	}
	self.log.Infof("mqtt disconnect")
	self.m.Disconnect(250)
}

// PublishDiscovery sends retained config message for every sensor.
// Failed publish is retried until ctx is done.
func (self *Mqtt) PublishDiscovery(ctx context.Context) error {
	for _, s := range self.sensors {
		b, err := json.Marshal(NewDiscovery(self.topics, self.device, s))
		if err != nil {
			return errors.Annotatef(err, "discovery sensor=%s", s.Name)
		}
		topic := self.topics.Config(s.Name)
		for {
			err = self.publish(topic, true, b)
			if err == nil {
				break
			}
			self.log.Warningf("discovery sensor=%s err=%v retry in %v", s.Name, err, self.retryDelay)
			if !helpers.SleepStop(self.retryDelay, ctx.Done()) {
				return errors.Annotate(ctx.Err(), "discovery")
			}
		}
		self.log.Debugf("discovery sensor=%s topic=%s", s.Name, topic)
	}
	return nil
}

func (self *Mqtt) PublishState(sensor, value string) error {
	return self.publish(self.topics.State(sensor), false, []byte(value))
}

func (self *Mqtt) publish(topic string, retained bool, payload []byte) error {
	if self.m == nil {
		return errors.Errorf("mqtt not connected")
	}
	token := self.m.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(self.publishTimeout) {
		return errors.Timeoutf("mqtt publish topic=%s", topic)
	}
	return errors.Annotatef(token.Error(), "mqtt publish topic=%s", topic)
}

func (self *Mqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Warningf("mqtt connection lost err=%v", err)
}

func (self *Mqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connected")
}
