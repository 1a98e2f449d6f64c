package tele

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

type MqttMock struct {
	Opt *mqtt.ClientOptions
	Pub chan MockMsg

	mu          sync.Mutex
	connectErrs []error
	publishErrs []error
	connects    int
	connected   bool
}

func NewMqttMock() *MqttMock {
	return &MqttMock{
		Pub: make(chan MockMsg, 64),
	}
}

func (self *MqttMock) MockNew(opt *mqtt.ClientOptions) {
	self.Opt = opt
}

// FailConnect makes next Connect calls return errs, one per call.
func (self *MqttMock) FailConnect(errs ...error) {
	self.mu.Lock()
	self.connectErrs = append(self.connectErrs, errs...)
	self.mu.Unlock()
}

// FailPublish makes next Publish calls return errs, one per call.
func (self *MqttMock) FailPublish(errs ...error) {
	self.mu.Lock()
	self.publishErrs = append(self.publishErrs, errs...)
	self.mu.Unlock()
}

func (self *MqttMock) Connects() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connects
}

// Drain returns all published messages so far.
func (self *MqttMock) Drain() []MockMsg {
	ms := make([]MockMsg, 0, len(self.Pub))
	for {
		select {
		case m := <-self.Pub:
			ms = append(ms, m)
		default:
			return ms
		}
	}
}

func (self *MqttMock) Disconnect(uint) {
	self.mu.Lock()
	self.connected = false
	self.mu.Unlock()
}

func (self *MqttMock) IsConnected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connected
}
func (self *MqttMock) IsConnectionOpen() bool { return self.IsConnected() }

func (self *MqttMock) Connect() mqtt.Token {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.connects++
	if len(self.connectErrs) > 0 {
		err := self.connectErrs[0]
		self.connectErrs = self.connectErrs[1:]
		return mockToken{err}
	}
	self.connected = true
	return mockToken{nil}
}

func (self *MqttMock) Publish(topic string, qos byte, retain bool, payload interface{}) mqtt.Token {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.publishErrs) > 0 {
		err := self.publishErrs[0]
		self.publishErrs = self.publishErrs[1:]
		return mockToken{err}
	}
	msg := MockMsg{T: topic, Q: qos, R: retain}
	switch p := payload.(type) {
	case []byte:
		msg.P = p
	case string:
		msg.P = []byte(p)
	default:
		return mockToken{errors.NotSupportedf("payload type %T", payload)}
	}
	self.Pub <- msg
	return mockToken{nil}
}

func (self *MqttMock) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *MqttMock) AddRoute(string, mqtt.MessageHandler) { panic("not implemented") }
func (self *MqttMock) OptionsReader() mqtt.ClientOptionsReader {
	panic("not implemented")
}
func (self *MqttMock) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *MqttMock) Unsubscribe(...string) mqtt.Token { panic("not implemented") }

type mockToken struct{ error }

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (tok mockToken) Error() error                   { return tok.error }
func (tok mockToken) Wait() bool                     { return !errors.IsTimeout(tok.error) }
func (tok mockToken) WaitTimeout(time.Duration) bool { return !errors.IsTimeout(tok.error) }
func (tok mockToken) Done() <-chan struct{}          { return closedChan }

type MockMsg struct {
	T string
	P []byte
	Q byte
	R bool
}

func (msg MockMsg) Ack()              {}
func (msg MockMsg) Duplicate() bool   { return false }
func (msg MockMsg) MessageID() uint16 { return 0 }
func (msg MockMsg) Payload() []byte   { return msg.P }
func (msg MockMsg) Qos() byte         { return msg.Q }
func (msg MockMsg) Retained() bool    { return msg.R }
func (msg MockMsg) Topic() string     { return msg.T }

type mqttMockKey struct{}

var mqttMockContextKey = mqttMockKey{}

func ContextWithMqttMock(ctx context.Context, c *MqttMock) context.Context {
	return context.WithValue(ctx, mqttMockContextKey, c)
}
func GetMqttMock(ctx context.Context) *MqttMock {
	v := ctx.Value(mqttMockContextKey)
	if v == nil {
		panic("context mqtt mock is nil")
	}
	if x, ok := v.(*MqttMock); ok {
		return x
	}
	panic(fmt.Sprintf("context mqtt mock unexpected=%#v", v))
}
