package isl

import "errors"

var (
	ErrNotConnected     = errors.New("isl: not connected")
	ErrNoResponse       = errors.New("isl: no response from device")
	ErrMalformedFrame   = errors.New("isl: malformed response frame")
	ErrChecksumMismatch = errors.New("isl: checksum mismatch in response frame")
)
