package fiscal

import (
	"fmt"
	"strconv"
	"strings"

	"fiscalgw/pkg/isl"
)

// icpInfoWidths are the fixed column widths of the ICP device info:
// serial, fiscal memory serial, tax number, then configuration fields.
var icpInfoWidths = []int{8, 8, 14, 4, 10, 1, 1}

// icpPrintColumns maps known models to their print width; the comment
// limit is derived from it.
var icpPrintColumns = map[string]int{
	"ISL5011": 47,
	"ISL3818": 47,
	"ISL5021": 64,
	"ISL756":  48,
	"ISL3811": 32,
}

// NewIslIcp builds the dialect for the ICP-brand ISL devices: fixed
// width device info, numeric tax group codes and no subtotal amount
// corrections.
func NewIslIcp() Dialect {
	return &dialect{
		name:     "icp.isl",
		vendor:   "ISL",
		priority: 3,
		bauds:    []int{115200, 38400, 9600, 19200},
		checksum: isl.ChecksumSum,
		status: isl.StatusProfile{
			Table:   datecsStatusTable,
			Special: map[int]isl.SpecialByte{3: isl.SpecialErrorCode},
			Vendor:  "ISL",
		},
		cmds:         genericCommands(),
		creds:        defaultCredentials(),
		serialPrefix: "IS",
		limits: TextLimits{
			Comment: 45,
			Item:    40,
		},
		receiptOpenText:    "Opened Fiscal Receipt",
		taxGroups:          icpTaxGroups(),
		payments:           datecsPayments,
		receiptAmountField: 2,
		parseInfo:          icpParseInfo,
		subtotalChange: func(amount float64) (string, error) {
			return "", fmt.Errorf("%w: subtotal amount correction", ErrUnsupportedOperation)
		},
	}
}

func icpTaxGroups() map[TaxGroup]string {
	groups := make(map[TaxGroup]string, 8)
	for tg := TaxGroup1; tg <= TaxGroup8; tg++ {
		groups[tg] = strconv.Itoa(int(tg))
	}
	return groups
}

// icpParseInfo parses the fixed-width device info. The tail after the
// tab holds the space-separated model and firmware.
func icpParseInfo(raw string) (DeviceInfo, error) {
	head, tail, found := strings.Cut(raw, "\t")
	if !found {
		return DeviceInfo{}, fmt.Errorf("%w: missing model section", ErrMalformedDeviceInfo)
	}

	fields, err := splitByWidths(head, icpInfoWidths)
	if err != nil {
		return DeviceInfo{}, err
	}

	words := strings.Fields(tail)
	if len(words) < 2 {
		return DeviceInfo{}, fmt.Errorf("%w: %d words in model section", ErrMalformedDeviceInfo, len(words))
	}

	return DeviceInfo{
		Model:              words[0],
		Firmware:           words[1],
		SerialNumber:       strings.TrimSpace(fields[0]),
		FiscalMemorySerial: strings.TrimSpace(fields[1]),
	}, nil
}

func splitByWidths(s string, widths []int) ([]string, error) {
	fields := make([]string, 0, len(widths))
	rest := s
	for _, w := range widths {
		if len(rest) < w {
			return nil, fmt.Errorf("%w: device info shorter than fixed layout", ErrMalformedDeviceInfo)
		}
		fields = append(fields, rest[:w])
		rest = rest[w:]
	}
	return fields, nil
}

// PrintColumnsOfModel returns the print width of a known ICP model,
// falling back to 47 columns.
func PrintColumnsOfModel(model string) int {
	if cols, ok := icpPrintColumns[model]; ok {
		return cols
	}
	return 47
}
