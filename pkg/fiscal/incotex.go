package fiscal

import (
	"fmt"
	"strconv"
	"strings"

	"fiscalgw/pkg/isl"
)

var incotexStatusTable = isl.BitTable{
	// byte 0
	0: {Code: "E401", Text: "Syntax error", Severity: isl.SeverityError},
	1: {Code: "E402", Text: "Invalid command", Severity: isl.SeverityError},
	2: {Code: "E103", Text: "Date and time are not set", Severity: isl.SeverityError},
	5: {Code: "E199", Text: "General error", Severity: isl.SeverityError},
	// byte 1
	9:  {Code: "E404", Text: "Command not allowed in this mode", Severity: isl.SeverityError},
	10: {Code: "E104", Text: "Zeroed RAM", Severity: isl.SeverityError},
	11: {Code: "E405", Text: "Invoice range not set", Severity: isl.SeverityError},
	13: {Code: "E408", Text: "3 times repeated wrong password", Severity: isl.SeverityError},
	// byte 2
	16: {Code: "E301", Text: "No paper", Severity: isl.SeverityError},
	19: {Text: "Opened Fiscal Receipt", Severity: isl.SeverityInfo},
	21: {Text: "Opened Non-fiscal Receipt", Severity: isl.SeverityInfo},
	// byte 3 is the error code byte, see Special
	// byte 4
	32: {Code: "E202", Text: "Error while writing to FM", Severity: isl.SeverityError},
	34: {Code: "E203", Text: "Wrong record in FM", Severity: isl.SeverityError},
	35: {Code: "W201", Text: "FM almost full", Severity: isl.SeverityWarning},
	36: {Code: "E201", Text: "FM full", Severity: isl.SeverityError},
	37: {Code: "E299", Text: "FM general error", Severity: isl.SeverityError},
	// byte 5
	40: {Code: "E204", Text: "FM Read only", Severity: isl.SeverityError},
	43: {Text: "FM ready", Severity: isl.SeverityInfo},
	44: {Text: "VAT groups are set", Severity: isl.SeverityInfo},
	45: {Text: "Device S/N and FM S/N are set", Severity: isl.SeverityInfo},
	47: {},
}

var incotexTaxGroups = map[TaxGroup]string{
	TaxGroup1: "A",
	TaxGroup2: "B",
	TaxGroup3: "C",
	TaxGroup4: "D",
}

// NewIncotex builds the Incotex dialect: serial prefix "IN", no
// operator password in headers, semicolon amount modifiers and the
// receipt total in comma field 3.
func NewIncotex() Dialect {
	cmds := genericCommands()
	cmds.Abort = 0x82

	creds := defaultCredentials()
	creds.OperatorID = "1"
	creds.OperatorPassword = "0"

	return &dialect{
		name:     "incotex.isl",
		vendor:   "Incotex",
		priority: 4,
		bauds:    []int{115200, 38400, 9600, 19200},
		checksum: isl.ChecksumSum,
		status: isl.StatusProfile{
			Table:   incotexStatusTable,
			Special: map[int]isl.SpecialByte{3: isl.SpecialErrorCode},
			Vendor:  "Incotex",
		},
		cmds:         cmds,
		creds:        creds,
		serialPrefix: "IN",
		limits: TextLimits{
			Comment:  40,
			Item:     26,
			Password: 6,
		},
		needsConstants:     true,
		receiptOpenText:    "Opened Fiscal Receipt",
		taxGroups:          incotexTaxGroups,
		payments:           datecsPayments,
		amountSep:          ";",
		receiptAmountField: 3,
		parseInfo:          incotexParseInfo,
		parseTaxID:         incotexParseTaxID,
		parseConstants:     incotexParseConstants,
		openPayload:        incotexOpenPayload,
	}
}

func incotexReversalReason(reason ReversalReason) string {
	switch reason {
	case ReversalRefund:
		return "S"
	case ReversalTaxBaseReduction:
		return "V"
	default:
		return "R"
	}
}

// incotexOpenPayload builds the Incotex headers. Sales use
// "op,usn,0"; reversals reference the original document as
//
//	op,usn,revDocNo,F1F20,dd-mm-yy hh:mm:ss,fmSerial
//
// where F1 and F2 both carry the reason letter.
func incotexOpenPayload(d *dialect, usn string, rev *ReversalReference) (string, error) {
	if rev == nil {
		return strings.Join([]string{d.creds.OperatorID, usn, "0"}, ","), nil
	}
	reason := incotexReversalReason(rev.Reason)
	return strings.Join([]string{
		d.creds.OperatorID,
		usn,
		rev.ReceiptNumber,
		reason + reason + "0",
		rev.DateTime.Format(dateTimeLayout),
		rev.FiscalMemorySerial,
	}, ","), nil
}

// incotexParseInfo parses the comma device info: firmware first,
// serial in field 4, fiscal memory serial in field 5. The response
// carries no model name.
func incotexParseInfo(raw string) (DeviceInfo, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 7 {
		return DeviceInfo{}, fmt.Errorf("%w: %d comma fields", ErrMalformedDeviceInfo, len(fields))
	}
	return DeviceInfo{
		Model:              "Incotex EFD",
		Firmware:           strings.TrimSpace(fields[0]),
		SerialNumber:       strings.TrimSpace(fields[4]),
		FiscalMemorySerial: strings.TrimSpace(fields[5]),
	}, nil
}

// incotexParseTaxID extracts the tax number from the second comma
// field of the tax ID response.
func incotexParseTaxID(raw string) string {
	fields := strings.Split(raw, ",")
	if len(fields) < 2 {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(fields[1])
}

func incotexParseConstants(raw string) (TextLimits, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 11 {
		return TextLimits{}, fmt.Errorf("%w: %d constants fields", ErrMalformedResponse, len(fields))
	}
	comment, err := strconv.Atoi(strings.TrimSpace(fields[9]))
	if err != nil {
		return TextLimits{}, fmt.Errorf("%w: comment length %q", ErrMalformedResponse, fields[9])
	}
	item, err := strconv.Atoi(strings.TrimSpace(fields[10]))
	if err != nil {
		return TextLimits{}, fmt.Errorf("%w: item length %q", ErrMalformedResponse, fields[10])
	}
	return TextLimits{Comment: comment, Item: item, Password: 6}, nil
}
