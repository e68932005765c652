package isl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Retry budgets of the exchange loop. Both are finite so a dead or
// chattering device surfaces ErrNoResponse instead of blocking forever.
const (
	MaxWriteRetries = 6
	MaxReadRetries  = 200
)

// readPollDelay spaces the read polls while waiting for bytes.
const readPollDelay = 10 * time.Millisecond

// Config defines the serial connection parameters of a device.
type Config struct {
	Port        string           `json:"port"`
	BaudRate    int              `json:"baudRate,omitempty"`
	ReadTimeout int              `json:"readTimeout,omitempty"` // ms
	Logger      func(msg string) `json:"-"`
}

// Transport owns a serial port and performs synchronous
// request/response exchanges on it. All access is serialized behind a
// mutex: the wire protocol has no pipelining.
type Transport struct {
	config Config
	mu     sync.Mutex
	port   serial.Port
}

// NewTransport creates a transport with defaults applied
// (115200 baud, 1000 ms read timeout).
func NewTransport(config Config) *Transport {
	if config.BaudRate == 0 {
		config.BaudRate = 115200
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 1000
	}
	return &Transport{config: config}
}

// Connect opens the serial port in 8N1 mode.
func (t *Transport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectLocked()
}

func (t *Transport) connectLocked() error {
	if t.port != nil {
		return nil
	}
	mode := &serial.Mode{
		BaudRate: t.config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.config.Port, mode)
	if err != nil {
		return fmt.Errorf("isl: opening serial port: %w", err)
	}
	port.SetReadTimeout(time.Duration(t.config.ReadTimeout) * time.Millisecond)
	t.port = port
	return nil
}

// Disconnect closes the serial port.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectLocked()
}

func (t *Transport) disconnectLocked() error {
	if t.port != nil {
		t.port.Close()
		t.port = nil
	}
	return nil
}

// ResetBuffers drops any pending bytes in both directions. Used before
// probing so stale data cannot masquerade as a response.
func (t *Transport) ResetBuffers() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrNotConnected
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return err
	}
	return t.port.ResetOutputBuffer()
}

// Exchange writes one host frame and reads back one device frame.
//
// A NAK control byte requests a resend and consumes one write retry;
// a SYN means the device is busy and the read loop keeps waiting.
// Exhausting either budget returns ErrNoResponse. There is no
// cancellation mid-frame: ctx is checked between polls only.
func (t *Transport) Exchange(ctx context.Context, frame []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, ErrNotConnected
	}

	buf := make([]byte, 256)

	for w := 0; w < MaxWriteRetries; w++ {
		t.logf(">> TX: % X", frame)
		if _, err := t.port.Write(frame); err != nil {
			return nil, fmt.Errorf("isl: write: %w", err)
		}

		current := make([]byte, 0, 256)
		resend := false

		for r := 0; r < MaxReadRetries && !resend; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			n, err := t.port.Read(buf)
			if err != nil {
				return nil, fmt.Errorf("isl: read: %w", err)
			}
			if n == 0 {
				time.Sleep(readPollDelay)
				continue
			}
			t.logf("<< RX: % X", buf[:n])

			for _, b := range buf[:n] {
				current = append(current, b)
				switch b {
				case MarkerTerminator:
					if current[0] == MarkerPreamble {
						return current, nil
					}
					current = current[:0]
				case MarkerNAK:
					if current[0] == MarkerPreamble {
						continue
					}
					// device rejected the frame: resend
					current = current[:0]
					resend = true
				case MarkerSYN:
					if current[0] == MarkerPreamble {
						continue
					}
					// device busy: keep waiting
					current = current[:0]
				}
				if resend {
					break
				}
			}
		}
	}

	return nil, ErrNoResponse
}

func (t *Transport) logf(format string, args ...interface{}) {
	if t.config.Logger != nil {
		t.config.Logger(fmt.Sprintf(format, args...))
	}
}
