package fiscal

import (
	"fmt"
	"strconv"
	"strings"

	"fiscalgw/pkg/isl"
)

var daisyStatusTable = isl.BitTable{
	// byte 0
	0: {Code: "E401", Text: "Syntax error", Severity: isl.SeverityError},
	1: {Code: "E402", Text: "Invalid command", Severity: isl.SeverityError},
	2: {Code: "E103", Text: "Date and time are not set", Severity: isl.SeverityError},
	3: {Text: "No external display", Severity: isl.SeverityInfo},
	4: {Code: "E303", Text: "Error in printing device", Severity: isl.SeverityError},
	5: {Code: "E199", Text: "General error", Severity: isl.SeverityError},
	// byte 1
	8:  {Code: "E403", Text: "Number field overflow", Severity: isl.SeverityError},
	9:  {Code: "E404", Text: "Command not allowed in this mode", Severity: isl.SeverityError},
	10: {Code: "E104", Text: "Zeroed RAM", Severity: isl.SeverityError},
	13: {Code: "E306", Text: "Error in cutter", Severity: isl.SeverityError},
	14: {Code: "E408", Text: "Wrong password", Severity: isl.SeverityError},
	// byte 2
	16: {Code: "E301", Text: "No paper", Severity: isl.SeverityError},
	17: {Code: "W301", Text: "Near end of paper", Severity: isl.SeverityWarning},
	18: {Code: "E206", Text: "No control paper", Severity: isl.SeverityError},
	19: {Text: "Opened Fiscal Receipt", Severity: isl.SeverityInfo},
	20: {Code: "W202", Text: "Control paper almost full", Severity: isl.SeverityWarning},
	21: {Text: "Opened Non-fiscal Receipt", Severity: isl.SeverityInfo},
	22: {Text: "Printing allowed", Severity: isl.SeverityInfo},
	// byte 3 is the error code byte, see Special
	// byte 4
	32: {Code: "E202", Text: "Error while writing to FM", Severity: isl.SeverityError},
	33: {Code: "E599", Text: "No task from NRA", Severity: isl.SeverityError},
	34: {Code: "E203", Text: "Wrong record in FM", Severity: isl.SeverityError},
	35: {Code: "W201", Text: "FM almost full", Severity: isl.SeverityWarning},
	36: {Code: "E201", Text: "FM full", Severity: isl.SeverityError},
	37: {Code: "E299", Text: "FM general error", Severity: isl.SeverityError},
	// byte 5
	40: {Code: "E201", Text: "FM overflow", Severity: isl.SeverityError},
	44: {Text: "VAT groups are set", Severity: isl.SeverityInfo},
	45: {Text: "Device S/N and FM S/N are set", Severity: isl.SeverityInfo},
	46: {Text: "FM ready", Severity: isl.SeverityInfo},
	47: {},
}

// NewDaisy builds the Daisy dialect: serial prefix "DY", department
// sales through a dedicated command with "dept@price" syntax, text
// limits read from the device constants response.
func NewDaisy() Dialect {
	cmds := genericCommands()
	cmds.Abort = 0x82
	cmds.SaleDepartment = 0x8A

	creds := defaultCredentials()
	creds.OperatorID = "1"
	creds.OperatorPassword = "1"

	return &dialect{
		name:     "daisy.isl",
		vendor:   "Daisy",
		priority: 6,
		bauds:    []int{9600, 19200, 38400, 57600, 115200},
		checksum: isl.ChecksumSum,
		status: isl.StatusProfile{
			Table:   daisyStatusTable,
			Special: map[int]isl.SpecialByte{3: isl.SpecialErrorCode},
			Vendor:  "Daisy",
		},
		cmds:         cmds,
		creds:        creds,
		serialPrefix: "DY",
		limits: TextLimits{
			Comment:  40,
			Item:     22,
			Password: 6,
		},
		needsConstants:     true,
		receiptOpenText:    "Opened Fiscal Receipt",
		taxGroups:          datecsTaxGroups,
		payments:           datecsPayments,
		receiptAmountField: 2,
		parseInfo:          daisyParseInfo,
		parseTaxID:         daisyParseTaxID,
		parseConstants:     daisyParseConstants,
		itemPayload:        daisyItemPayload,
		subtotalChange: func(amount float64) (string, error) {
			return fmt.Sprintf("10$%.2f", amount), nil
		},
	}
}

// daisyParseInfo parses the 6-field comma device info. The first field
// packs model and firmware as space-separated words.
func daisyParseInfo(raw string) (DeviceInfo, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 6 {
		return DeviceInfo{}, fmt.Errorf("%w: %d comma fields", ErrMalformedDeviceInfo, len(fields))
	}
	words := strings.Fields(fields[0])
	if len(words) < 4 {
		return DeviceInfo{}, fmt.Errorf("%w: %d words in model field", ErrMalformedDeviceInfo, len(words))
	}
	return DeviceInfo{
		Model:              words[0],
		Firmware:           words[1],
		SerialNumber:       strings.TrimSpace(fields[4]),
		FiscalMemorySerial: strings.TrimSpace(fields[5]),
	}, nil
}

func daisyParseTaxID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "-")
}

// daisyParseConstants reads the comment and item text limits from the
// 26-field device constants response (P10 and P11).
func daisyParseConstants(raw string) (TextLimits, error) {
	fields := strings.Split(raw, ",")
	if len(fields) < 26 {
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

// daisyItemPayload routes department sales to the dedicated command
// with the "dept@price" grammar; tax group sales use the family line.
func daisyItemPayload(d *dialect, item Item) (byte, string, error) {
	if item.Department <= 0 {
		return genericItemPayload(d, item)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d@%.2f", item.Department, item.Price)
	appendQuantity(&b, item.Quantity)
	appendModifier(&b, d.amountSep, item.Modifier)
	return d.cmds.SaleDepartment, b.String(), nil
}
