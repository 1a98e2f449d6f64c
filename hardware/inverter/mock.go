package inverter

// Public API to easy create inverter stubs to test your code.
import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/anti-social/inverter2mqtt/crc"
	"github.com/anti-social/inverter2mqtt/helpers"
	"github.com/juju/errors"
)

// MockR is one scripted exchange.
// Request is expected command (empty = any), Response is raw device output.
type MockR struct {
	Request  string
	Response []byte
	WriteErr error
	ReadErr  error
}

// MockDevice replays MockR list in order and reports unexpected requests to t.
type MockDevice struct {
	t      testing.TB
	mu     sync.Mutex
	queue  []MockR
	cur    *MockR
	rest   []byte
	closed bool
	opens  int
}

func NewMockDevice(t testing.TB, rs ...MockR) *MockDevice {
	return &MockDevice{t: t, queue: rs}
}

// MockResponse builds valid response frame for payload, padded to whole chunks.
func MockResponse(payload string) []byte {
	b := append([]byte{responseMarker}, payload...)
	b = crc.AppendCRC16(b, b)
	b = append(b, terminator)
	for len(b)%ChunkSize != 0 {
		b = append(b, 0)
	}
	return b
}

func (self *MockDevice) Expect(rs ...MockR) {
	self.mu.Lock()
	self.queue = append(self.queue, rs...)
	self.mu.Unlock()
}

func (self *MockDevice) SendRequest(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return 0, io.ErrClosedPipe
	}
	if len(self.queue) == 0 {
		self.t.Errorf("inverter mock unexpected request=%s", helpers.FormatHex(p))
		return 0, io.EOF
	}
	r := self.queue[0]
	self.queue = self.queue[1:]
	self.cur, self.rest = &r, r.Response
	if r.Request != "" {
		expect, err := EncodeCommand(r.Request, 0)
		if err != nil {
			self.t.Fatal(err)
		}
		if !bytes.Equal(expect, p) {
			self.t.Errorf("inverter mock request expected=%s (%s) actual=%s",
				helpers.FormatHex(expect), r.Request, helpers.FormatHex(p))
		}
	}
	if r.WriteErr != nil {
		return 0, r.WriteErr
	}
	return len(p), nil
}

func (self *MockDevice) ReadResponse(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return 0, io.ErrClosedPipe
	}
	if self.cur == nil {
		return 0, errors.New("inverter mock read without request")
	}
	if self.cur.ReadErr != nil {
		return 0, self.cur.ReadErr
	}
	if len(self.rest) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, self.rest)
	self.rest = self.rest[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (self *MockDevice) Close() error {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
	return nil
}

// Reopen clears closed state, for device factories in tests.
func (self *MockDevice) Reopen() *MockDevice {
	self.mu.Lock()
	self.closed = false
	self.cur, self.rest = nil, nil
	self.opens++
	self.mu.Unlock()
	return self
}

func (self *MockDevice) Opens() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.opens
}

// ExpectationsWereMet reports exchanges not yet requested.
func (self *MockDevice) ExpectationsWereMet() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.queue) != 0 {
		return errors.Errorf("inverter mock %d exchanges left, next request=%s", len(self.queue), self.queue[0].Request)
	}
	return nil
}
