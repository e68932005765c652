// Package netfp translates Net.FP JSON documents into receipt engine
// operation sequences and collects the device outcome into a single
// response value.
package netfp

import (
	"strconv"
	"strings"

	"fiscalgw/pkg/fiscal"
	"fiscalgw/pkg/isl"
)

// Item is one Net.FP sale line. At most one price modifier applies;
// when several are present the translator resolves them in the order
// discountPercent, discountAmount, surchargePercent, surchargeAmount.
type Item struct {
	Text             string   `json:"text"`
	UnitPrice        float64  `json:"unitPrice"`
	Quantity         float64  `json:"quantity,omitempty"`
	Department       int      `json:"department,omitempty"`
	TaxGroup         string   `json:"taxGroup,omitempty"`
	DiscountPercent  *float64 `json:"discountPercent,omitempty"`
	DiscountAmount   *float64 `json:"discountAmount,omitempty"`
	SurchargePercent *float64 `json:"surchargePercent,omitempty"`
	SurchargeAmount  *float64 `json:"surchargeAmount,omitempty"`
}

// Comment is one free-text line printed before the items.
type Comment struct {
	Text string `json:"text"`
}

// PaymentLine is one Net.FP tender line. An empty payment type means
// cash.
type PaymentLine struct {
	Amount      float64 `json:"amount"`
	PaymentType string  `json:"paymentType,omitempty"`
}

// Receipt is a Net.FP print request. The reversal fields reference the
// original document; their presence turns the request into a reversal.
type Receipt struct {
	UniqueSaleNumber string        `json:"uniqueSaleNumber"`
	Operator         string        `json:"operator,omitempty"`
	OperatorPassword string        `json:"operatorPassword,omitempty"`
	Comments         []Comment     `json:"comments,omitempty"`
	Items            []Item        `json:"items"`
	Payments         []PaymentLine `json:"payments,omitempty"`
	TotalAmount      *float64      `json:"totalAmount,omitempty"`

	// reversal reference
	Reason                   string `json:"reason,omitempty"`
	ReceiptNumber            string `json:"receiptNumber,omitempty"`
	ReceiptDateTime          string `json:"receiptDateTime,omitempty"`
	FiscalMemorySerialNumber string `json:"fiscalMemorySerialNumber,omitempty"`
}

// IsReversal reports whether the document references an original
// receipt and must print as a reversal.
func (r *Receipt) IsReversal() bool {
	return r.Reason != "" || r.ReceiptNumber != ""
}

// Result is the Net.FP response for any operation. The receipt fields
// are filled only after a successful close and each one is
// best-effort.
type Result struct {
	OK       bool                `json:"ok"`
	Messages []isl.StatusMessage `json:"messages,omitempty"`

	ReceiptNumber            string   `json:"receiptNumber,omitempty"`
	ReceiptDateTime          string   `json:"receiptDateTime,omitempty"`
	ReceiptAmount            *float64 `json:"receiptAmount,omitempty"`
	FiscalMemorySerialNumber string   `json:"fiscalMemorySerialNumber,omitempty"`
}

func statusResult(status isl.Status) Result {
	return Result{OK: status.OK(), Messages: status.Messages}
}

// resolveModifier picks the single price modifier of an item.
func resolveModifier(item Item) fiscal.Modifier {
	switch {
	case item.DiscountPercent != nil:
		return fiscal.Modifier{Kind: fiscal.ModifierDiscountPercent, Value: *item.DiscountPercent}
	case item.DiscountAmount != nil:
		return fiscal.Modifier{Kind: fiscal.ModifierDiscountAmount, Value: *item.DiscountAmount}
	case item.SurchargePercent != nil:
		return fiscal.Modifier{Kind: fiscal.ModifierSurchargePercent, Value: *item.SurchargePercent}
	case item.SurchargeAmount != nil:
		return fiscal.Modifier{Kind: fiscal.ModifierSurchargeAmount, Value: *item.SurchargeAmount}
	default:
		return fiscal.Modifier{}
	}
}

// resolveTaxGroup parses "TaxGroup2" or "2" forms, defaulting to
// group 1.
func resolveTaxGroup(s string) fiscal.TaxGroup {
	s = strings.TrimPrefix(strings.TrimSpace(s), "TaxGroup")
	if n, err := strconv.Atoi(s); err == nil && n >= int(fiscal.TaxGroup1) && n <= int(fiscal.TaxGroup8) {
		return fiscal.TaxGroup(n)
	}
	return fiscal.TaxGroup1
}

func toEngineItem(item Item) fiscal.Item {
	quantity := item.Quantity
	if quantity == 1 {
		// a single unit is the device default, keep it off the wire
		quantity = 0
	}
	return fiscal.Item{
		Name:       item.Text,
		Price:      item.UnitPrice,
		Quantity:   quantity,
		Department: item.Department,
		TaxGroup:   resolveTaxGroup(item.TaxGroup),
		Modifier:   resolveModifier(item),
	}
}
