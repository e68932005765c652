package fiscal

import "time"

// TaxGroup is one of the eight legally defined VAT groups. Not every
// vendor supports all eight; encoding an unsupported group fails with
// ErrUnsupportedTaxGroup.
type TaxGroup int

const (
	TaxGroup1 TaxGroup = iota + 1
	TaxGroup2
	TaxGroup3
	TaxGroup4
	TaxGroup5
	TaxGroup6
	TaxGroup7
	TaxGroup8
)

// PaymentType names a tender kind in device-independent form.
type PaymentType string

const (
	PaymentCash      PaymentType = "cash"
	PaymentCard      PaymentType = "card"
	PaymentCheck     PaymentType = "check"
	PaymentReserved1 PaymentType = "reserved1"
)

// ParsePaymentType maps a free-form payment type string to the enum,
// defaulting to cash for anything unrecognized.
func ParsePaymentType(s string) PaymentType {
	switch PaymentType(s) {
	case PaymentCard:
		return PaymentCard
	case PaymentCheck:
		return PaymentCheck
	case PaymentReserved1:
		return PaymentReserved1
	default:
		return PaymentCash
	}
}

// ReversalReason names the legal ground for a reversal receipt.
type ReversalReason string

const (
	ReversalOperatorError    ReversalReason = "operator_error"
	ReversalRefund           ReversalReason = "refund"
	ReversalTaxBaseReduction ReversalReason = "tax_base_reduction"
)

// ParseReversalReason maps a free-form reason string to the enum,
// defaulting to operator error.
func ParseReversalReason(s string) ReversalReason {
	switch ReversalReason(s) {
	case ReversalRefund:
		return ReversalRefund
	case ReversalTaxBaseReduction:
		return ReversalTaxBaseReduction
	default:
		return ReversalOperatorError
	}
}

// ModifierKind is the price modifier applied to a single item line.
type ModifierKind int

const (
	ModifierNone ModifierKind = iota
	ModifierDiscountPercent
	ModifierDiscountAmount
	ModifierSurchargePercent
	ModifierSurchargeAmount
)

// Modifier is one resolved price modifier. An item carries at most one.
type Modifier struct {
	Kind  ModifierKind
	Value float64
}

// Item is one sale line of a receipt.
type Item struct {
	Name       string
	Price      float64
	Quantity   float64 // 0 means a single unit, quantity omitted on the wire
	Department int     // 0 means no department routing
	TaxGroup   TaxGroup
	Modifier   Modifier
}

// Payment is one tender line of a receipt.
type Payment struct {
	Type   PaymentType
	Amount float64
}

// Credentials are the operator and administrator accounts used in
// receipt headers. Vendors differ in which account opens reversals.
type Credentials struct {
	OperatorID       string
	OperatorPassword string
	OperatorName     string
	AdminID          string
	AdminPassword    string
}

// ReversalReference identifies the original receipt being reversed.
type ReversalReference struct {
	Reason             ReversalReason
	ReceiptNumber      string
	DateTime           time.Time
	FiscalMemorySerial string
}

// DeviceInfo is the parsed identity of a detected device.
type DeviceInfo struct {
	Manufacturer       string `json:"manufacturer,omitempty"`
	Model              string `json:"model"`
	Firmware           string `json:"firmware"`
	SerialNumber       string `json:"serialNumber"`
	FiscalMemorySerial string `json:"fiscalMemorySerial"`
}

// ReceiptInfo describes a receipt after closing. Every field is
// best-effort: the close itself succeeded even when a follow-up query
// for one of these fields did not.
type ReceiptInfo struct {
	Number             string
	DateTime           time.Time
	Amount             *float64
	FiscalMemorySerial string
}

// TextLimits are the maximum printable text lengths of a device.
// Some vendors report them at runtime through a constants command.
type TextLimits struct {
	Comment  int
	Item     int
	Password int
}
