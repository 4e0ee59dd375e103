package modem

import (
	"io"
	"strings"
	"sync"

	"alusys.io/edge/simhttp/at"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. The framer's pump goroutine continuously reads from the
// transport, so reads must block until data is available (like a real serial
// port would).
//
// Traffic is scripted: Script registers a canned response for a command
// line, delivered the moment that line is written. Asynchronous bytes (a
// delayed URC, noise) are injected with SendData. Every write is recorded
// for byte-exactness assertions.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	writes   []string
	script   map[string]string
	closed   bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 32),
		script:   make(map[string]string),
	}
}

// Script registers the raw bytes to deliver when the given command line
// (without its CRLF terminator) is written.
func (t *TestTransport) Script(cmd, response string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script[cmd] = response
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}

	t.writes = append(t.writes, string(p))

	line := strings.TrimSuffix(string(p), at.CRLF)
	if resp, ok := t.script[line]; ok {
		t.readChan <- []byte(resp)
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates unsolicited bytes arriving from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Writes returns every write made so far, in order.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// CountWrites returns how many writes exactly match wire.
func (t *TestTransport) CountWrites(wire string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, w := range t.writes {
		if w == wire {
			count++
		}
	}
	return count
}
