package fiscal

import "errors"

var (
	ErrInvalidState           = errors.New("fiscal: operation not allowed in current receipt state")
	ErrDeviceBusy             = errors.New("fiscal: device reports an open receipt")
	ErrUnsupportedPaymentType = errors.New("fiscal: payment type not supported by this dialect")
	ErrUnsupportedTaxGroup    = errors.New("fiscal: tax group not supported by this dialect")
	ErrUnsupportedOperation   = errors.New("fiscal: operation not supported by this dialect")
	ErrMalformedDeviceInfo    = errors.New("fiscal: malformed device info response")
	ErrMalformedResponse      = errors.New("fiscal: malformed device response")
	ErrNoDeviceFound          = errors.New("fiscal: no device detected")
)
