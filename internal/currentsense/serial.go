package currentsense

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is used when the configuration leaves the baud rate unset.
const DefaultBaud = 115200

// StaleAfter is how old the latest serial reading may be before
// ReadCurrent reports ErrNoReading.
const StaleAfter = time.Second

// SerialSensor keeps the latest reading from a line-oriented stream: one
// integer per line. A goroutine reads the port; ReadCurrent never blocks.
type SerialSensor struct {
	rc  io.ReadCloser
	now func() time.Time

	mu     sync.Mutex
	value  int
	at     time.Time
	err    error
	closed bool
	done   chan struct{}
}

// OpenSerialSensor opens the serial device and starts reading.
func OpenSerialSensor(device string, baud int) (*SerialSensor, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("currentsense: open %s: %w", device, err)
	}
	return NewStreamSensor(port, time.Now), nil
}

// NewStreamSensor reads readings from rc. Used directly by tests.
func NewStreamSensor(rc io.ReadCloser, now func() time.Time) *SerialSensor {
	s := &SerialSensor{rc: rc, now: now, done: make(chan struct{})}
	go s.readLoop()
	return s
}

func (s *SerialSensor) readLoop() {
	defer close(s.done)
	scanner := bufio.NewScanner(s.rc)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		v, err := parseReading(line)
		s.mu.Lock()
		if err != nil {
			s.err = err
		} else {
			s.value, s.at, s.err = v, s.now(), nil
		}
		s.mu.Unlock()
	}
	s.mu.Lock()
	if err := scanner.Err(); err != nil && !s.closed {
		s.err = fmt.Errorf("currentsense: serial read: %w", err)
	}
	s.mu.Unlock()
}

// ReadCurrent returns the latest reading.
func (s *SerialSensor) ReadCurrent() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.at.IsZero() || s.now().Sub(s.at) > StaleAfter {
		if s.err != nil {
			return 0, s.err
		}
		return 0, ErrNoReading
	}
	return s.value, nil
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSensor) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.rc.Close()
	<-s.done
	return err
}
