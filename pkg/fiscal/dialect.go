package fiscal

import (
	"fmt"
	"strconv"
	"strings"

	"fiscalgw/pkg/isl"
)

// Dialect describes one vendor variant of the ISL protocol: its wire
// parameters, command set, payload encodings and response parsers.
//
// The interface is closed: all implementations live in this package and
// are obtained through the New* constructors or the Registry. Device
// support is added by composing a new dialect value, not by embedding
// an existing one.
type Dialect interface {
	// Name is the stable protocol identifier, e.g. "datecs.p.isl".
	Name() string
	// Vendor is the manufacturer name used in status messages.
	Vendor() string
	// Priority orders detection probing; higher probes first.
	Priority() int
	// BaudRates lists candidate rates, most likely first.
	BaudRates() []int

	Checksum() isl.ChecksumKind
	StatusProfile() isl.StatusProfile
	Commands() CommandSet
	Credentials() Credentials
	TextLimits() TextLimits

	// NeedsConstants reports whether text limits must be refined from
	// the device constants command before printing.
	NeedsConstants() bool
	ParseConstants(raw string) (TextLimits, error)

	// ValidateSerial checks a parsed serial number against the vendor's
	// expected shape. Detection uses it to reject lookalike devices.
	ValidateSerial(serial string) bool
	ParseDeviceInfo(raw string) (DeviceInfo, error)
	ParseTaxID(raw string) string

	// ReceiptOpenText is the status message text that signals an
	// already open fiscal receipt on the device.
	ReceiptOpenText() string

	// OpenPayload builds the receipt header. A nil rev opens a sale
	// receipt; otherwise a reversal referencing the original document.
	OpenPayload(usn string, rev *ReversalReference) (string, error)
	// ItemPayload encodes one sale line and selects the command byte
	// carrying it (department sales use a separate command on Daisy).
	ItemPayload(item Item) (byte, string, error)
	PaymentPayload(p Payment) (string, error)
	SubtotalChangePayload(amount float64) (string, error)
	// ReceiptAmount extracts the closed receipt total from a receipt
	// status response. A nil amount with nil error means the device
	// reported no total.
	ReceiptAmount(raw string) (*float64, error)

	isDialect()
}

// dialect is the single Dialect implementation. Vendor constructors
// fill in the data fields and override the strategy funcs that differ
// from the generic family behaviour.
type dialect struct {
	name            string
	vendor          string
	priority        int
	bauds           []int
	checksum        isl.ChecksumKind
	status          isl.StatusProfile
	cmds            CommandSet
	creds           Credentials
	serialPrefix    string
	limits          TextLimits
	needsConstants  bool
	receiptOpenText string
	taxGroups       map[TaxGroup]string
	payments        map[PaymentType]string
	// amountSep separates an amount price modifier from the item data.
	amountSep string
	// receiptAmountField is the comma field index of the total in a
	// receipt status response.
	receiptAmountField int

	validateSerial func(serial string) bool
	parseInfo      func(raw string) (DeviceInfo, error)
	parseTaxID     func(raw string) string
	parseConstants func(raw string) (TextLimits, error)
	openPayload    func(d *dialect, usn string, rev *ReversalReference) (string, error)
	itemPayload    func(d *dialect, item Item) (byte, string, error)
	subtotalChange func(amount float64) (string, error)
}

func (d *dialect) isDialect() {}

// WithCredentials returns a copy of base whose cashier and admin
// credentials are overridden by the non-empty fields of creds. The
// OperatorName override matters only for dialects whose receipt header
// carries a name instead of an operator code.
func WithCredentials(base Dialect, creds Credentials) Dialect {
	d, ok := base.(*dialect)
	if !ok {
		return base
	}

	clone := *d
	if creds.OperatorID != "" {
		clone.creds.OperatorID = creds.OperatorID
	}
	if creds.OperatorPassword != "" {
		clone.creds.OperatorPassword = creds.OperatorPassword
	}
	if creds.OperatorName != "" {
		clone.creds.OperatorName = creds.OperatorName
	}
	if creds.AdminID != "" {
		clone.creds.AdminID = creds.AdminID
	}
	if creds.AdminPassword != "" {
		clone.creds.AdminPassword = creds.AdminPassword
	}
	return &clone
}

func (d *dialect) Name() string                     { return d.name }
func (d *dialect) Vendor() string                   { return d.vendor }
func (d *dialect) Priority() int                    { return d.priority }
func (d *dialect) BaudRates() []int                 { return d.bauds }
func (d *dialect) Checksum() isl.ChecksumKind       { return d.checksum }
func (d *dialect) StatusProfile() isl.StatusProfile { return d.status }
func (d *dialect) Commands() CommandSet             { return d.cmds }
func (d *dialect) Credentials() Credentials         { return d.creds }
func (d *dialect) TextLimits() TextLimits           { return d.limits }
func (d *dialect) NeedsConstants() bool             { return d.needsConstants }
func (d *dialect) ReceiptOpenText() string          { return d.receiptOpenText }

func (d *dialect) ValidateSerial(serial string) bool {
	if d.validateSerial != nil {
		return d.validateSerial(serial)
	}
	return len(serial) == 8 && strings.HasPrefix(serial, d.serialPrefix)
}

func (d *dialect) ParseDeviceInfo(raw string) (DeviceInfo, error) {
	return d.parseInfo(raw)
}

func (d *dialect) ParseTaxID(raw string) string {
	if d.parseTaxID != nil {
		return d.parseTaxID(raw)
	}
	return strings.TrimSpace(raw)
}

func (d *dialect) ParseConstants(raw string) (TextLimits, error) {
	if d.parseConstants == nil {
		return d.limits, nil
	}
	return d.parseConstants(raw)
}

func (d *dialect) OpenPayload(usn string, rev *ReversalReference) (string, error) {
	if d.openPayload != nil {
		return d.openPayload(d, usn, rev)
	}
	return genericOpenPayload(d, usn, rev)
}

func (d *dialect) ItemPayload(item Item) (byte, string, error) {
	if d.itemPayload != nil {
		return d.itemPayload(d, item)
	}
	return genericItemPayload(d, item)
}

func (d *dialect) PaymentPayload(p Payment) (string, error) {
	code, ok := d.payments[p.Type]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPaymentType, p.Type)
	}
	return fmt.Sprintf("\t%s%.2f", code, p.Amount), nil
}

func (d *dialect) SubtotalChangePayload(amount float64) (string, error) {
	if d.subtotalChange != nil {
		return d.subtotalChange(amount)
	}
	return fmt.Sprintf("10;%.2f", amount), nil
}

func (d *dialect) ReceiptAmount(raw string) (*float64, error) {
	fields := strings.Split(raw, ",")
	if len(fields) <= d.receiptAmountField {
		return nil, fmt.Errorf("%w: receipt status has %d fields", ErrMalformedResponse, len(fields))
	}
	field := fields[d.receiptAmountField]
	if field == "" {
		return nil, nil
	}

	var amount float64
	switch {
	case field[0] == '+' || field[0] == '-':
		value, err := strconv.ParseFloat(field[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: receipt amount %q", ErrMalformedResponse, field)
		}
		amount = value / 100
		if field[0] == '-' {
			amount = -amount
		}
	case strings.Contains(field, "."):
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: receipt amount %q", ErrMalformedResponse, field)
		}
		amount = value
	default:
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: receipt amount %q", ErrMalformedResponse, field)
		}
		amount = value / 100
	}
	return &amount, nil
}

// dateTimeLayout is the wire format of device timestamps.
const dateTimeLayout = "02-01-06 15:04:05"

// genericReversalReason maps reasons to the family's numeric codes.
func genericReversalReason(reason ReversalReason) string {
	switch reason {
	case ReversalRefund:
		return "0"
	case ReversalTaxBaseReduction:
		return "2"
	default:
		return "1"
	}
}

// genericOpenPayload builds the common family receipt header:
// "op,pass,usn" for sales, with a tab-separated reversal reference
// appended for reversal receipts. Reversals use the administrator
// account.
func genericOpenPayload(d *dialect, usn string, rev *ReversalReference) (string, error) {
	if rev == nil {
		return strings.Join([]string{d.creds.OperatorID, d.creds.OperatorPassword, usn}, ","), nil
	}
	return fmt.Sprintf("%s,%s,%s\tR%s,%s,%s\t%s",
		d.creds.AdminID,
		d.creds.AdminPassword,
		usn,
		genericReversalReason(rev.Reason),
		rev.ReceiptNumber,
		rev.DateTime.Format(dateTimeLayout),
		rev.FiscalMemorySerial,
	), nil
}

// genericItemPayload encodes the common family sale line:
//
//	name \t taxLetter price          (tax group pricing)
//	name \t department \t price      (department pricing)
//
// with optional "*qty" and a single price modifier suffix. Percent
// modifiers use ",", amount modifiers the dialect's amount separator.
// Discount values go negative on the wire.
func genericItemPayload(d *dialect, item Item) (byte, string, error) {
	name := item.Name
	if d.limits.Item > 0 && len(name) > d.limits.Item {
		name = name[:d.limits.Item]
	}

	var b strings.Builder
	if item.Department <= 0 {
		letter, ok := d.taxGroups[item.TaxGroup]
		if !ok {
			return 0, "", fmt.Errorf("%w: %d", ErrUnsupportedTaxGroup, item.TaxGroup)
		}
		fmt.Fprintf(&b, "%s\t%s%.2f", name, letter, item.Price)
	} else {
		fmt.Fprintf(&b, "%s\t%d\t%.2f", name, item.Department, item.Price)
	}

	appendQuantity(&b, item.Quantity)
	appendModifier(&b, d.amountSep, item.Modifier)
	return d.cmds.Sale, b.String(), nil
}

func appendQuantity(b *strings.Builder, quantity float64) {
	if quantity != 0 {
		b.WriteByte('*')
		b.WriteString(strconv.FormatFloat(quantity, 'f', -1, 64))
	}
}

func appendModifier(b *strings.Builder, amountSep string, m Modifier) {
	if m.Kind == ModifierNone {
		return
	}
	sep := ","
	if m.Kind == ModifierDiscountAmount || m.Kind == ModifierSurchargeAmount {
		sep = amountSep
		if sep == "" {
			sep = "$"
		}
	}
	value := m.Value
	if m.Kind == ModifierDiscountPercent || m.Kind == ModifierDiscountAmount {
		value = -value
	}
	fmt.Fprintf(b, "%s%.2f", sep, value)
}

// defaultCredentials are the family's factory operator and
// administrator accounts.
func defaultCredentials() Credentials {
	return Credentials{
		OperatorID:       "1",
		OperatorPassword: "0000",
		OperatorName:     "Operator",
		AdminID:          "20",
		AdminPassword:    "9999",
	}
}
