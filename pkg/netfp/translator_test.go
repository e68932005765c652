package netfp

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"fiscalgw/pkg/fiscal"
	"fiscalgw/pkg/isl"
)

// fakeEngine records the operation sequence and can be scripted to
// fail on a named call.
type fakeEngine struct {
	calls     []string
	items     []fiscal.Item
	payments  []fiscal.Payment
	reversal  *fiscal.ReversalReference
	transfers []float64
	zeroing   []bool

	failOn map[string]int // call name -> 1-based occurrence that fails on-device
	errOn  string         // call name that fails at transport level
	seen   map[string]int

	closeInfo fiscal.ReceiptInfo
}

func newFakeEngine() *fakeEngine {
	amount := 2.50
	return &fakeEngine{
		failOn: map[string]int{},
		seen:   map[string]int{},
		closeInfo: fiscal.ReceiptInfo{
			Number:             "0000123",
			DateTime:           time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
			Amount:             &amount,
			FiscalMemorySerial: "02123456",
		},
	}
}

func (f *fakeEngine) record(name string) (isl.Status, error) {
	f.calls = append(f.calls, name)
	f.seen[name]++
	if f.errOn == name {
		return isl.Status{}, isl.ErrNoResponse
	}
	if n, ok := f.failOn[name]; ok && f.seen[name] == n {
		var s isl.Status
		s.AddError("E301", "No paper")
		return s, nil
	}
	return isl.Status{}, nil
}

func (f *fakeEngine) OpenReceipt(_ context.Context, usn string) (isl.Status, error) {
	return f.record("open")
}

func (f *fakeEngine) OpenReversal(_ context.Context, usn string, rev fiscal.ReversalReference) (isl.Status, error) {
	f.reversal = &rev
	return f.record("open-reversal")
}

func (f *fakeEngine) SellItem(_ context.Context, item fiscal.Item) (isl.Status, error) {
	f.items = append(f.items, item)
	return f.record("sell")
}

func (f *fakeEngine) Comment(_ context.Context, text string) (isl.Status, error) {
	return f.record("comment")
}

func (f *fakeEngine) Payment(_ context.Context, p fiscal.Payment) (isl.Status, error) {
	f.payments = append(f.payments, p)
	return f.record("payment")
}

func (f *fakeEngine) FullPayment(_ context.Context) (isl.Status, error) {
	return f.record("full-payment")
}

func (f *fakeEngine) CloseReceipt(_ context.Context) (fiscal.ReceiptInfo, isl.Status, error) {
	status, err := f.record("close")
	return f.closeInfo, status, err
}

func (f *fakeEngine) AbortReceipt(_ context.Context) (isl.Status, error) {
	return f.record("abort")
}

func (f *fakeEngine) MoneyTransfer(_ context.Context, amount float64) (isl.Status, error) {
	f.transfers = append(f.transfers, amount)
	return f.record("money-transfer")
}

func (f *fakeEngine) DailyReport(_ context.Context, zeroing bool) (isl.Status, error) {
	f.zeroing = append(f.zeroing, zeroing)
	return f.record("daily-report")
}

func (f *fakeEngine) PrintDuplicate(_ context.Context) (isl.Status, error) {
	return f.record("duplicate")
}

func breadReceipt() Receipt {
	return Receipt{
		UniqueSaleNumber: "DT123456-0001-0000123",
		Items: []Item{
			{Text: "Bread", UnitPrice: 2.50, Quantity: 1, TaxGroup: "2"},
		},
	}
}

func TestPrintSimpleReceipt(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	result, err := tr.Print(context.Background(), breadReceipt())
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("result not OK: %v", result.Messages)
	}

	want := []string{"open", "sell", "full-payment", "close"}
	if !reflect.DeepEqual(engine.calls, want) {
		t.Errorf("calls = %v, want %v", engine.calls, want)
	}

	item := engine.items[0]
	if item.Name != "Bread" || item.Price != 2.50 || item.TaxGroup != fiscal.TaxGroup2 {
		t.Errorf("item = %+v", item)
	}
	if item.Quantity != 0 {
		t.Errorf("Quantity = %v, want 0 for a single unit", item.Quantity)
	}

	if result.ReceiptNumber != "0000123" {
		t.Errorf("ReceiptNumber = %q", result.ReceiptNumber)
	}
	if result.ReceiptDateTime != "2026-08-29T10:30:00" {
		t.Errorf("ReceiptDateTime = %q", result.ReceiptDateTime)
	}
	if result.ReceiptAmount == nil || *result.ReceiptAmount != 2.50 {
		t.Errorf("ReceiptAmount = %v", result.ReceiptAmount)
	}
	if result.FiscalMemorySerialNumber != "02123456" {
		t.Errorf("FiscalMemorySerialNumber = %q", result.FiscalMemorySerialNumber)
	}
}

func TestPrintModifierPriority(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	ten, half := 10.0, 0.5
	receipt := breadReceipt()
	receipt.Items[0].DiscountPercent = &ten
	receipt.Items[0].DiscountAmount = &half

	if _, err := tr.Print(context.Background(), receipt); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	mod := engine.items[0].Modifier
	if mod.Kind != fiscal.ModifierDiscountPercent || mod.Value != 10 {
		t.Errorf("modifier = %+v, want discount percent 10", mod)
	}
}

func TestPrintAbortsOnItemFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.failOn["sell"] = 3
	tr := NewTranslator(engine)

	receipt := breadReceipt()
	for i := 0; i < 4; i++ {
		receipt.Items = append(receipt.Items, Item{Text: "Milk", UnitPrice: 1.20, TaxGroup: "1"})
	}

	result, err := tr.Print(context.Background(), receipt)
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if result.OK {
		t.Fatal("result should carry the device failure")
	}

	want := []string{"open", "sell", "sell", "sell", "abort"}
	if !reflect.DeepEqual(engine.calls, want) {
		t.Errorf("calls = %v, want %v", engine.calls, want)
	}
}

func TestPrintTransportErrorAborts(t *testing.T) {
	engine := newFakeEngine()
	engine.errOn = "sell"
	tr := NewTranslator(engine)

	_, err := tr.Print(context.Background(), breadReceipt())
	if !errors.Is(err, isl.ErrNoResponse) {
		t.Fatalf("Print() error = %v, want ErrNoResponse", err)
	}
	if engine.calls[len(engine.calls)-1] != "abort" {
		t.Errorf("calls = %v, want trailing abort", engine.calls)
	}
}

func TestPrintExplicitPayments(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	receipt := breadReceipt()
	receipt.Comments = []Comment{{Text: "Thank you"}}
	receipt.Payments = []PaymentLine{
		{Amount: 2.00, PaymentType: "cash"},
		{Amount: 0.50, PaymentType: "card"},
	}

	result, err := tr.Print(context.Background(), receipt)
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("result not OK: %v", result.Messages)
	}

	want := []string{"open", "comment", "sell", "payment", "payment", "close"}
	if !reflect.DeepEqual(engine.calls, want) {
		t.Errorf("calls = %v, want %v", engine.calls, want)
	}
	if engine.payments[1].Type != fiscal.PaymentCard {
		t.Errorf("payment type = %v, want card", engine.payments[1].Type)
	}
}

func TestPrintReversalRouting(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	receipt := breadReceipt()
	receipt.Reason = "refund"
	receipt.ReceiptNumber = "0000100"
	receipt.ReceiptDateTime = "2026-08-28T09:00:00"
	receipt.FiscalMemorySerialNumber = "02123456"

	if _, err := tr.Print(context.Background(), receipt); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	if engine.calls[0] != "open-reversal" {
		t.Fatalf("calls = %v, want open-reversal first", engine.calls)
	}
	rev := engine.reversal
	if rev.Reason != fiscal.ReversalRefund {
		t.Errorf("Reason = %v, want refund", rev.Reason)
	}
	if rev.ReceiptNumber != "0000100" {
		t.Errorf("ReceiptNumber = %q", rev.ReceiptNumber)
	}
	want := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	if !rev.DateTime.Equal(want) {
		t.Errorf("DateTime = %v, want %v", rev.DateTime, want)
	}
}

func TestPrintValidation(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	tests := []struct {
		name    string
		mutate  func(*Receipt)
	}{
		{"no items", func(r *Receipt) { r.Items = nil }},
		{"unnamed item", func(r *Receipt) { r.Items[0].Text = "" }},
		{"negative price", func(r *Receipt) { r.Items[0].UnitPrice = -1 }},
		{"negative quantity", func(r *Receipt) { r.Items[0].Quantity = -1 }},
		{"negative payment", func(r *Receipt) { r.Payments = []PaymentLine{{Amount: -5}} }},
		{"reversal without number", func(r *Receipt) { r.Reason = "refund" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt := breadReceipt()
			tt.mutate(&receipt)

			_, err := tr.Print(context.Background(), receipt)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Print() error = %v, want ErrInvalidDocument", err)
			}
		})
	}

	// validation happens before any device I/O
	if len(engine.calls) != 0 {
		t.Errorf("%d calls reached the engine from invalid documents", len(engine.calls))
	}
}

func TestPrintTotalAmountOverride(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)

	total := 3.33
	receipt := breadReceipt()
	receipt.TotalAmount = &total

	result, err := tr.Print(context.Background(), receipt)
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if result.ReceiptAmount == nil || *result.ReceiptAmount != 3.33 {
		t.Errorf("ReceiptAmount = %v, want client total", result.ReceiptAmount)
	}
}

func TestMoneyAndReportOperations(t *testing.T) {
	engine := newFakeEngine()
	tr := NewTranslator(engine)
	ctx := context.Background()

	if _, err := tr.Deposit(ctx, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Withdraw(ctx, 20); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(engine.transfers, []float64{50, -20}) {
		t.Errorf("transfers = %v", engine.transfers)
	}

	if _, err := tr.XReport(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.ZReport(ctx); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(engine.zeroing, []bool{false, true}) {
		t.Errorf("zeroing = %v", engine.zeroing)
	}

	if _, err := tr.Duplicate(ctx); err != nil {
		t.Fatal(err)
	}
	if engine.calls[len(engine.calls)-1] != "duplicate" {
		t.Errorf("calls = %v", engine.calls)
	}
}
