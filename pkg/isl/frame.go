package isl

import "fmt"

// Frame marker bytes shared by the whole ISL protocol family.
const (
	MarkerPreamble   = 0x01
	MarkerTerminator = 0x03
	MarkerSeparator  = 0x04
	MarkerPostamble  = 0x05
	MarkerNAK        = 0x15
	MarkerSYN        = 0x16
	MarkerSpace      = 0x20
)

// MaxSequenceNumber bounds the rolling frame sequence counter.
// The sequence byte on the wire is MarkerSpace + n.
const MaxSequenceNumber = 0x7F - MarkerSpace

// ChecksumKind selects the block-check algorithm of a dialect.
// The generic family sums bytes mod 2^16; some vendor variants XOR them.
type ChecksumKind int

const (
	ChecksumSum ChecksumKind = iota
	ChecksumXOR
)

// uint16To4Bytes renders a 16-bit word as 4 nibble-biased ASCII digits,
// one nibble per byte, each offset by 0x30.
func uint16To4Bytes(word uint16) [4]byte {
	return [4]byte{
		byte((word>>12)&0x0F) + 0x30,
		byte((word>>8)&0x0F) + 0x30,
		byte((word>>4)&0x0F) + 0x30,
		byte(word&0x0F) + 0x30,
	}
}

// computeBCC calculates the block check over a frame fragment
// (everything from LEN through POSTAMBLE inclusive).
func computeBCC(kind ChecksumKind, fragment []byte) [4]byte {
	var word uint16
	switch kind {
	case ChecksumXOR:
		for _, b := range fragment {
			word ^= uint16(b)
		}
	default:
		for _, b := range fragment {
			word += uint16(b)
		}
	}
	return uint16To4Bytes(word)
}

// BuildFrame assembles a host frame:
//
//	PREAMBLE LEN SEQ CMD DATA POSTAMBLE BCC(4) TERMINATOR
//
// LEN is MarkerSpace+4+len(data); seq is the raw counter value in
// [0, MaxSequenceNumber] and is biased by MarkerSpace on the wire.
func BuildFrame(kind ChecksumKind, seq byte, command byte, data []byte) []byte {
	frame := make([]byte, 0, len(data)+11)
	frame = append(frame, MarkerPreamble)
	frame = append(frame, byte(MarkerSpace+4+len(data)))
	frame = append(frame, MarkerSpace+seq)
	frame = append(frame, command)
	frame = append(frame, data...)
	frame = append(frame, MarkerPostamble)

	bcc := computeBCC(kind, frame[1:])
	frame = append(frame, bcc[:]...)
	frame = append(frame, MarkerTerminator)
	return frame
}

// Response holds the decoded parts of a device frame.
type Response struct {
	Data        []byte
	StatusBytes []byte
}

// ParseFrame decodes a raw device frame into payload and status bytes.
//
// Marker positions are located by scanning, never by fixed offsets,
// because the payload length is variable. The structural invariant is
// preamble+4 <= separator < postamble < terminator; the payload lies
// between the command byte and the separator, the status bytes between
// the separator and the postamble. The BCC is recomputed over
// LEN..POSTAMBLE and must match the four digits preceding the
// terminator.
func ParseFrame(kind ChecksumKind, raw []byte) (Response, error) {
	preamble, separator, postamble, terminator := -1, -1, -1, -1
	for i, b := range raw {
		switch b {
		case MarkerPreamble:
			preamble = i
		case MarkerSeparator:
			separator = i
		case MarkerPostamble:
			postamble = i
		case MarkerTerminator:
			terminator = i
		}
	}

	if preamble < 0 || separator < 0 || postamble < 0 || terminator < 0 ||
		!(preamble+4 <= separator && separator < postamble && postamble < terminator) {
		return Response{}, fmt.Errorf("%w: markers not found or out of order", ErrMalformedFrame)
	}
	if terminator != postamble+5 {
		return Response{}, fmt.Errorf("%w: truncated checksum field", ErrMalformedFrame)
	}

	want := computeBCC(kind, raw[preamble+1:postamble+1])
	got := raw[postamble+1 : postamble+5]
	for i := range want {
		if want[i] != got[i] {
			return Response{}, fmt.Errorf("%w: got %q, want %q", ErrChecksumMismatch, got, want[:])
		}
	}

	return Response{
		Data:        raw[preamble+4 : separator],
		StatusBytes: raw[separator+1 : postamble],
	}, nil
}
