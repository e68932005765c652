package isl

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Exchanger performs one raw frame exchange. *Transport implements it;
// tests substitute fakes.
type Exchanger interface {
	Exchange(ctx context.Context, frame []byte) ([]byte, error)
}

// Profile carries the per-dialect wire parameters a Conn needs.
type Profile struct {
	Checksum ChecksumKind
	Status   StatusProfile
}

// Conn is a sequenced request/response channel to one device. It owns
// the rolling sequence counter and the text encoding, leaving the
// Exchanger to deal with bytes only.
type Conn struct {
	exchanger Exchanger
	profile   Profile

	mu  sync.Mutex
	seq byte
}

// NewConn wraps an exchanger with framing, sequencing and status
// decoding for one device profile.
func NewConn(exchanger Exchanger, profile Profile) *Conn {
	return &Conn{exchanger: exchanger, profile: profile}
}

// Request sends one command with its payload and returns the decoded
// response text and status. The payload is transcoded to Windows-1251
// before framing and the response text back to UTF-8 after parsing.
func (c *Conn) Request(ctx context.Context, command byte, data string) (string, Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := encodeCP1251(data)
	if err != nil {
		return "", Status{}, fmt.Errorf("isl: encoding payload: %w", err)
	}

	frame := BuildFrame(c.profile.Checksum, c.seq, command, payload)
	c.seq++
	if c.seq > MaxSequenceNumber {
		c.seq = 0
	}

	raw, err := c.exchanger.Exchange(ctx, frame)
	if err != nil {
		return "", Status{}, err
	}

	resp, err := ParseFrame(c.profile.Checksum, raw)
	if err != nil {
		return "", Status{}, err
	}

	text, err := decodeCP1251(resp.Data)
	if err != nil {
		return "", Status{}, fmt.Errorf("isl: decoding response: %w", err)
	}

	return text, DecodeStatus(resp.StatusBytes, c.profile.Status), nil
}

func encodeCP1251(s string) ([]byte, error) {
	encoded, _, err := transform.Bytes(charmap.Windows1251.NewEncoder(), []byte(s))
	return encoded, err
}

func decodeCP1251(b []byte) (string, error) {
	decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
