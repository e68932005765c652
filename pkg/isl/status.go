package isl

import "fmt"

// Severity classifies a decoded status message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// StatusMessage is one decoded device condition. Code is the
// legally mandated error/warning code when the vendor defines one.
type StatusMessage struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Text     string   `json:"text"`
}

// Status is the structured form of a device status response.
// Messages are kept in decode order and never discarded.
type Status struct {
	Messages []StatusMessage
}

// OK reports whether the device signalled no error condition.
// It is derived from the decoded messages and nothing else: false if
// and only if at least one message has SeverityError.
func (s *Status) OK() bool {
	for _, m := range s.Messages {
		if m.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Add appends a decoded message.
func (s *Status) Add(m StatusMessage) {
	s.Messages = append(s.Messages, m)
}

// AddError appends an error message with the given code.
func (s *Status) AddError(code, text string) {
	s.Add(StatusMessage{Severity: SeverityError, Code: code, Text: text})
}

// AddInfo appends an informational message.
func (s *Status) AddInfo(text string) {
	s.Add(StatusMessage{Severity: SeverityInfo, Text: text})
}

// Contains reports whether any decoded message carries the given text.
func (s *Status) Contains(text string) bool {
	for _, m := range s.Messages {
		if m.Text == text {
			return true
		}
	}
	return false
}

// BitEntry describes one status bit: its vendor code (optional),
// message text and severity. An empty Text marks a reserved bit.
type BitEntry struct {
	Code     string
	Text     string
	Severity Severity
}

// BitTable maps byteIndex*8+bitIndex to a BitEntry. Tables are 48
// entries for the common 6 status bytes; dialects with 8 status bytes
// supply 64.
type BitTable []BitEntry

// SpecialByte marks a status byte position that does not decode as
// independent bits.
type SpecialByte int

const (
	// SpecialErrorCode: bits 0..6 carry a numeric vendor error code.
	SpecialErrorCode SpecialByte = iota
	// SpecialSwitches: bits 0..6 carry hardware switch states SW1..SW7,
	// reported as diagnostics text only.
	SpecialSwitches
)

// StatusProfile bundles everything needed to decode one dialect's
// status bytes.
type StatusProfile struct {
	Table   BitTable
	Special map[int]SpecialByte
	// Vendor names the manual referenced by SpecialErrorCode messages.
	Vendor string
}

// DecodeStatus translates raw status bytes into a Status using the
// dialect's bit table. The decoder is pure and total: unknown bits are
// ignored and unexpected byte counts simply stop contributing entries,
// so an empty or missing status yields an OK Status — absence of
// status is not evidence of failure on this hardware class.
func DecodeStatus(statusBytes []byte, p StatusProfile) Status {
	var status Status
	for i, b := range statusBytes {
		if special, ok := p.Special[i]; ok {
			decodeSpecial(&status, b, special, p.Vendor)
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) == 0 {
				continue
			}
			idx := i*8 + bit
			if idx >= len(p.Table) {
				continue
			}
			entry := p.Table[idx]
			if entry.Text == "" {
				continue
			}
			status.Add(StatusMessage{
				Severity: entry.Severity,
				Code:     entry.Code,
				Text:     entry.Text,
			})
		}
	}
	return status
}

func decodeSpecial(status *Status, b byte, special SpecialByte, vendor string) {
	switch special {
	case SpecialErrorCode:
		if code := b & 0x7F; code > 0 {
			status.AddError("E999", fmt.Sprintf("Error code: %d, see %s Manual", code, vendor))
		}
	case SpecialSwitches:
		parts := make([]byte, 0, 64)
		for sw := 7; sw >= 1; sw-- {
			state := "OFF"
			if b&(1<<(sw-1)) != 0 {
				state = "ON"
			}
			if len(parts) > 0 {
				parts = append(parts, ", "...)
			}
			parts = append(parts, fmt.Sprintf("SW%d=%s", sw, state)...)
		}
		status.AddInfo(string(parts))
	}
}
