package fiscal

import (
	"fmt"
	"strings"

	"fiscalgw/pkg/isl"
)

var eltradeStatusTable = isl.BitTable{
	// byte 0
	0: {Code: "E401", Text: "Incoming data has syntax error", Severity: isl.SeverityError},
	1: {Code: "E402", Text: "Code of incoming command is invalid", Severity: isl.SeverityError},
	2: {Code: "E103", Text: "The clock needs setting", Severity: isl.SeverityError},
	3: {Text: "Not connected a customer display", Severity: isl.SeverityInfo},
	4: {Code: "E303", Text: "Failure in printing mechanism", Severity: isl.SeverityError},
	5: {Code: "E199", Text: "General error", Severity: isl.SeverityError},
	// byte 1
	8:  {Code: "E403", Text: "During command some of the fields for the sums overflow", Severity: isl.SeverityError},
	9:  {Code: "E404", Text: "Command cannot be performed in the current fiscal mode", Severity: isl.SeverityError},
	10: {Code: "E104", Text: "Operational memory was cleared", Severity: isl.SeverityError},
	11: {Code: "E102", Text: "Low battery (the clock is in reset state)", Severity: isl.SeverityError},
	12: {Code: "E105", Text: "RAM failure after switch ON", Severity: isl.SeverityError},
	13: {Code: "E302", Text: "Paper cover is open", Severity: isl.SeverityError},
	14: {Code: "E599", Text: "The internal terminal is not working", Severity: isl.SeverityError},
	// byte 2
	16: {Code: "E301", Text: "No paper", Severity: isl.SeverityError},
	17: {Code: "W301", Text: "Not enough paper", Severity: isl.SeverityWarning},
	18: {Code: "E206", Text: "End of KLEN(under 1MB free)", Severity: isl.SeverityError},
	19: {Text: "A fiscal receipt is opened", Severity: isl.SeverityInfo},
	20: {Code: "W202", Text: "Coming end of KLEN (10MB free)", Severity: isl.SeverityWarning},
	21: {Text: "A non-fiscal receipt is opened", Severity: isl.SeverityInfo},
	// byte 3 carries the hardware switch states, see Special
	// byte 4
	32: {Code: "E202", Text: "Error during writing to the fiscal memory", Severity: isl.SeverityError},
	33: {Text: "EIK is entered", Severity: isl.SeverityInfo},
	34: {Text: "FM number has been set", Severity: isl.SeverityInfo},
	35: {Code: "W201", Text: "There is space for not more than 50 entries in the FM", Severity: isl.SeverityWarning},
	36: {Code: "E201", Text: "Fiscal memory is fully engaged", Severity: isl.SeverityError},
	37: {Code: "E299", Text: "FM general error", Severity: isl.SeverityError},
	// byte 5
	40: {Code: "E204", Text: "The fiscal memory is in the 'read-only' mode", Severity: isl.SeverityError},
	41: {Text: "The fiscal memory is formatted", Severity: isl.SeverityInfo},
	42: {Code: "E202", Text: "The last record in the fiscal memory is not successful", Severity: isl.SeverityError},
	43: {Text: "The printer is in a fiscal mode", Severity: isl.SeverityInfo},
	44: {Text: "Tax rates have been entered at least once", Severity: isl.SeverityInfo},
	45: {Code: "E203", Text: "Fiscal memory read error", Severity: isl.SeverityError},
	47: {},
}

var eltradePayments = map[PaymentType]string{
	PaymentCash:  "P",
	PaymentCheck: "N",
}

// NewEltrade builds the Eltrade dialect: serial prefix "ED", operator
// name based receipt headers, a hardware switch byte in the status and
// an ISO timestamp in the reversal reference.
func NewEltrade() Dialect {
	return &dialect{
		name:     "eltrade.isl",
		vendor:   "Eltrade",
		priority: 5,
		bauds:    []int{115200, 9600, 19200, 38400},
		checksum: isl.ChecksumSum,
		status: isl.StatusProfile{
			Table:   eltradeStatusTable,
			Special: map[int]isl.SpecialByte{3: isl.SpecialSwitches},
			Vendor:  "Eltrade",
		},
		cmds:         genericCommands(),
		creds:        defaultCredentials(),
		serialPrefix: "ED",
		limits: TextLimits{
			Comment:  46,
			Item:     30,
			Password: 8,
		},
		receiptOpenText:    "A fiscal receipt is opened",
		taxGroups:          eltradeTaxGroups(),
		payments:           eltradePayments,
		receiptAmountField: 2,
		parseInfo:          eltradeParseInfo,
		openPayload:        eltradeOpenPayload,
	}
}

func eltradeTaxGroups() map[TaxGroup]string {
	groups := make(map[TaxGroup]string, 8)
	for tg := TaxGroup1; tg <= TaxGroup8; tg++ {
		groups[tg] = string(rune('A' + int(tg) - 1))
	}
	return groups
}

func eltradeReversalReason(reason ReversalReason) string {
	switch reason {
	case ReversalRefund:
		return "R"
	case ReversalTaxBaseReduction:
		return "T"
	default:
		return "O"
	}
}

// eltradeOpenPayload builds the Eltrade headers. Sales carry the
// operator name and optionally the unique sale number; reversals use
//
//	OperName,UNP,S,FMIN,Reason,num,yyyy-mm-ddThh:mm:ss
func eltradeOpenPayload(d *dialect, usn string, rev *ReversalReference) (string, error) {
	name := d.creds.OperatorName
	if name == "" {
		name = "Operator"
	}
	if rev == nil {
		if usn == "" {
			return name, nil
		}
		return name + "," + usn, nil
	}
	return strings.Join([]string{
		name,
		usn,
		"S",
		rev.FiscalMemorySerial,
		eltradeReversalReason(rev.Reason),
		rev.ReceiptNumber,
		rev.DateTime.Format("2006-01-02T15:04:05"),
	}, ","), nil
}

// eltradeParseInfo parses the 7-field comma device info.
func eltradeParseInfo(raw string) (DeviceInfo, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 7 {
		return DeviceInfo{}, fmt.Errorf("%w: %d comma fields", ErrMalformedDeviceInfo, len(fields))
	}
	return DeviceInfo{
		Model:              strings.TrimSpace(fields[0]),
		Firmware:           strings.TrimSpace(fields[2]),
		SerialNumber:       strings.TrimSpace(fields[5]),
		FiscalMemorySerial: strings.TrimSpace(fields[6]),
	}, nil
}
