package isl

import "testing"

var testProfile = StatusProfile{
	Vendor: "Testco",
	Table: BitTable{
		0: {Code: "E401", Text: "Syntax error", Severity: SeverityError},
		1: {Code: "E402", Text: "Invalid command", Severity: SeverityError},
		3: {Text: "No external display", Severity: SeverityInfo},
		9: {Code: "W301", Text: "Near end of paper", Severity: SeverityWarning},
		11: {Text: "Opened Fiscal Receipt", Severity: SeverityInfo},
	},
	Special: map[int]SpecialByte{2: SpecialErrorCode, 3: SpecialSwitches},
}

func TestDecodeStatusEmpty(t *testing.T) {
	status := DecodeStatus(nil, testProfile)
	if !status.OK() {
		t.Error("empty status bytes should decode as OK")
	}
	if len(status.Messages) != 0 {
		t.Errorf("Messages = %v, want none", status.Messages)
	}
}

func TestDecodeStatusBits(t *testing.T) {
	tests := []struct {
		name    string
		bytes   []byte
		wantOK  bool
		wantMsg []string
	}{
		{
			name:    "all zero is OK",
			bytes:   []byte{0x00, 0x00},
			wantOK:  true,
			wantMsg: nil,
		},
		{
			name:    "single error bit",
			bytes:   []byte{0x01},
			wantOK:  false,
			wantMsg: []string{"Syntax error"},
		},
		{
			name:    "info bit alone keeps OK",
			bytes:   []byte{0x08},
			wantOK:  true,
			wantMsg: []string{"No external display"},
		},
		{
			name:    "warning keeps OK",
			bytes:   []byte{0x00, 0x02},
			wantOK:  true,
			wantMsg: []string{"Near end of paper"},
		},
		{
			name:    "mixed severities",
			bytes:   []byte{0x02, 0x0A},
			wantOK:  false,
			wantMsg: []string{"Invalid command", "Near end of paper", "Opened Fiscal Receipt"},
		},
		{
			name:    "reserved bits ignored",
			bytes:   []byte{0xF0},
			wantOK:  true,
			wantMsg: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := DecodeStatus(tt.bytes, testProfile)
			if status.OK() != tt.wantOK {
				t.Errorf("OK() = %v, want %v", status.OK(), tt.wantOK)
			}
			if len(status.Messages) != len(tt.wantMsg) {
				t.Fatalf("got %d messages %v, want %d", len(status.Messages), status.Messages, len(tt.wantMsg))
			}
			for i, want := range tt.wantMsg {
				if status.Messages[i].Text != want {
					t.Errorf("Messages[%d].Text = %q, want %q", i, status.Messages[i].Text, want)
				}
			}
		})
	}
}

func TestDecodeStatusErrorCodeByte(t *testing.T) {
	status := DecodeStatus([]byte{0x00, 0x00, 0x23}, testProfile)
	if status.OK() {
		t.Error("nonzero error code byte should not be OK")
	}
	if len(status.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(status.Messages))
	}
	msg := status.Messages[0]
	if msg.Code != "E999" {
		t.Errorf("Code = %q, want E999", msg.Code)
	}
	if want := "Error code: 35, see Testco Manual"; msg.Text != want {
		t.Errorf("Text = %q, want %q", msg.Text, want)
	}

	// the high bit never belongs to the code
	status = DecodeStatus([]byte{0x00, 0x00, 0x80}, testProfile)
	if !status.OK() {
		t.Error("error code byte with only bit 7 set should be OK")
	}
}

func TestDecodeStatusSwitchesByte(t *testing.T) {
	status := DecodeStatus([]byte{0x00, 0x00, 0x00, 0x41}, testProfile)
	if !status.OK() {
		t.Error("switch states are diagnostics, not errors")
	}
	if len(status.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(status.Messages))
	}
	want := "SW7=ON, SW6=OFF, SW5=OFF, SW4=OFF, SW3=OFF, SW2=OFF, SW1=ON"
	if status.Messages[0].Text != want {
		t.Errorf("Text = %q, want %q", status.Messages[0].Text, want)
	}
}

// Setting additional bits may only add messages, never remove them.
func TestDecodeStatusMonotonic(t *testing.T) {
	base := DecodeStatus([]byte{0x01}, testProfile)
	more := DecodeStatus([]byte{0x0B}, testProfile)

	if len(more.Messages) < len(base.Messages) {
		t.Errorf("superset of bits produced fewer messages: %d < %d",
			len(more.Messages), len(base.Messages))
	}
	for _, m := range base.Messages {
		if !more.Contains(m.Text) {
			t.Errorf("message %q lost when more bits set", m.Text)
		}
	}
}

func TestStatusContains(t *testing.T) {
	var status Status
	status.AddInfo("Opened Fiscal Receipt")
	status.AddError("E301", "No paper")

	if !status.Contains("Opened Fiscal Receipt") {
		t.Error("Contains() missed an existing message")
	}
	if status.Contains("No control paper") {
		t.Error("Contains() matched a missing message")
	}
}
