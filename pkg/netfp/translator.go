package netfp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fiscalgw/pkg/fiscal"
	"fiscalgw/pkg/isl"
)

// ErrInvalidDocument rejects a request before anything reaches the
// device.
var ErrInvalidDocument = errors.New("netfp: invalid document")

// Engine is the receipt engine surface the translator drives.
// *fiscal.Engine implements it.
type Engine interface {
	OpenReceipt(ctx context.Context, usn string) (isl.Status, error)
	OpenReversal(ctx context.Context, usn string, rev fiscal.ReversalReference) (isl.Status, error)
	SellItem(ctx context.Context, item fiscal.Item) (isl.Status, error)
	Comment(ctx context.Context, text string) (isl.Status, error)
	Payment(ctx context.Context, p fiscal.Payment) (isl.Status, error)
	FullPayment(ctx context.Context) (isl.Status, error)
	CloseReceipt(ctx context.Context) (fiscal.ReceiptInfo, isl.Status, error)
	AbortReceipt(ctx context.Context) (isl.Status, error)
	MoneyTransfer(ctx context.Context, amount float64) (isl.Status, error)
	DailyReport(ctx context.Context, zeroing bool) (isl.Status, error)
	PrintDuplicate(ctx context.Context) (isl.Status, error)
}

// Translator turns Net.FP documents into engine call sequences.
// A receipt prints atomically: the first device-reported failure
// aborts the whole receipt and nothing later reaches the printer.
type Translator struct {
	engine Engine
}

// NewTranslator wraps an engine.
func NewTranslator(engine Engine) *Translator {
	return &Translator{engine: engine}
}

// Print runs one Net.FP receipt document through the engine:
// open, comments, items, payments (or one full payment), close.
// Validation happens before any I/O. A non-OK device status at any
// step aborts the receipt and comes back in the Result; an error means
// the exchange itself failed.
func (t *Translator) Print(ctx context.Context, receipt Receipt) (Result, error) {
	if err := validate(receipt); err != nil {
		return Result{}, err
	}

	status, err := t.open(ctx, receipt)
	if err != nil {
		return Result{}, err
	}
	if !status.OK() {
		return statusResult(status), nil
	}

	for _, comment := range receipt.Comments {
		status, err := t.engine.Comment(ctx, comment.Text)
		if result, done, err := t.step(ctx, status, err); done {
			return result, err
		}
	}

	for _, item := range receipt.Items {
		status, err := t.engine.SellItem(ctx, toEngineItem(item))
		if result, done, err := t.step(ctx, status, err); done {
			return result, err
		}
	}

	if len(receipt.Payments) == 0 {
		status, err := t.engine.FullPayment(ctx)
		if result, done, err := t.step(ctx, status, err); done {
			return result, err
		}
	} else {
		for _, p := range receipt.Payments {
			payment := fiscal.Payment{
				Type:   fiscal.ParsePaymentType(p.PaymentType),
				Amount: p.Amount,
			}
			status, err := t.engine.Payment(ctx, payment)
			if result, done, err := t.step(ctx, status, err); done {
				return result, err
			}
		}
	}

	info, status, err := t.engine.CloseReceipt(ctx)
	if err != nil {
		return Result{}, err
	}
	if !status.OK() {
		t.engine.AbortReceipt(ctx)
		return statusResult(status), nil
	}

	result := statusResult(status)
	result.ReceiptNumber = info.Number
	if !info.DateTime.IsZero() {
		result.ReceiptDateTime = info.DateTime.Format("2006-01-02T15:04:05")
	}
	if receipt.TotalAmount != nil {
		result.ReceiptAmount = receipt.TotalAmount
	} else {
		result.ReceiptAmount = info.Amount
	}
	result.FiscalMemorySerialNumber = info.FiscalMemorySerial
	return result, nil
}

// Deposit registers cash put into the drawer.
func (t *Translator) Deposit(ctx context.Context, amount float64) (Result, error) {
	status, err := t.engine.MoneyTransfer(ctx, math.Abs(amount))
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// Withdraw registers cash taken out of the drawer.
func (t *Translator) Withdraw(ctx context.Context, amount float64) (Result, error) {
	status, err := t.engine.MoneyTransfer(ctx, -math.Abs(amount))
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// XReport prints the read-only daily report.
func (t *Translator) XReport(ctx context.Context) (Result, error) {
	status, err := t.engine.DailyReport(ctx, false)
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// ZReport prints the daily report and zeroes the counters.
func (t *Translator) ZReport(ctx context.Context) (Result, error) {
	status, err := t.engine.DailyReport(ctx, true)
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

// Duplicate reprints the last closed receipt.
func (t *Translator) Duplicate(ctx context.Context) (Result, error) {
	status, err := t.engine.PrintDuplicate(ctx)
	if err != nil {
		return Result{}, err
	}
	return statusResult(status), nil
}

func (t *Translator) open(ctx context.Context, receipt Receipt) (isl.Status, error) {
	if !receipt.IsReversal() {
		return t.engine.OpenReceipt(ctx, receipt.UniqueSaleNumber)
	}
	return t.engine.OpenReversal(ctx, receipt.UniqueSaleNumber, fiscal.ReversalReference{
		Reason:             fiscal.ParseReversalReason(receipt.Reason),
		ReceiptNumber:      receipt.ReceiptNumber,
		DateTime:           parseReceiptDateTime(receipt.ReceiptDateTime),
		FiscalMemorySerial: receipt.FiscalMemorySerialNumber,
	})
}

// step folds one mid-receipt exchange: a transport error or a device
// failure both abort the receipt, and done tells the caller to stop.
func (t *Translator) step(ctx context.Context, status isl.Status, err error) (Result, bool, error) {
	if err != nil {
		t.engine.AbortReceipt(ctx)
		return Result{}, true, err
	}
	if !status.OK() {
		t.engine.AbortReceipt(ctx)
		return statusResult(status), true, nil
	}
	return Result{}, false, nil
}

func validate(receipt Receipt) error {
	if len(receipt.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidDocument)
	}
	for i, item := range receipt.Items {
		if item.Text == "" {
			return fmt.Errorf("%w: item %d has no text", ErrInvalidDocument, i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d has negative unit price", ErrInvalidDocument, i)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: item %d has negative quantity", ErrInvalidDocument, i)
		}
	}
	for i, p := range receipt.Payments {
		if p.Amount < 0 {
			return fmt.Errorf("%w: payment %d has negative amount", ErrInvalidDocument, i)
		}
	}
	if receipt.IsReversal() && receipt.ReceiptNumber == "" {
		return fmt.Errorf("%w: reversal without original receipt number", ErrInvalidDocument)
	}
	return nil
}

// parseReceiptDateTime accepts the ISO forms Net.FP clients send;
// anything unparseable falls back to the current time, matching the
// tolerant behaviour the POS integrations rely on.
func parseReceiptDateTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt
		}
	}
	return time.Now()
}
