package fiscal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fiscalgw/pkg/isl"
)

// Conn is the sequenced request channel the engine drives. *isl.Conn
// implements it; tests substitute fakes.
type Conn interface {
	Request(ctx context.Context, command byte, data string) (string, isl.Status, error)
}

// ReceiptState tracks the receipt lifecycle on the host side.
type ReceiptState int

const (
	StateIdle ReceiptState = iota
	StateOpen
	StateReversalOpen
	StateClosed
	StateAborted
)

func (s ReceiptState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateReversalOpen:
		return "reversal-open"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine drives the receipt lifecycle of one device. It refuses
// operations that its state machine does not allow, so no byte reaches
// the printer from an impossible sequence. Device-reported conditions
// come back as Status data; errors are reserved for transport faults
// and local protocol violations.
type Engine struct {
	conn    Conn
	dialect Dialect

	mu           sync.Mutex
	state        ReceiptState
	paymentsMade bool
	limits       TextLimits
	limitsLoaded bool
}

// NewEngine builds an engine in the idle state.
func NewEngine(conn Conn, dialect Dialect) *Engine {
	return &Engine{
		conn:    conn,
		dialect: dialect,
		limits:  dialect.TextLimits(),
	}
}

// Dialect returns the dialect the engine speaks.
func (e *Engine) Dialect() Dialect { return e.dialect }

// State returns the current lifecycle state.
func (e *Engine) State() ReceiptState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// GetStatus queries the device status outside of any lifecycle rule.
func (e *Engine) GetStatus(ctx context.Context) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().GetStatus, "")
	return status, err
}

// OpenReceipt opens a sale receipt under the given unique sale number.
// Allowed from idle, closed or aborted; fails with ErrDeviceBusy when
// the device itself reports an already open receipt.
func (e *Engine) OpenReceipt(ctx context.Context, usn string) (isl.Status, error) {
	return e.open(ctx, usn, nil)
}

// OpenReversal opens a reversal receipt referencing the original
// document.
func (e *Engine) OpenReversal(ctx context.Context, usn string, rev ReversalReference) (isl.Status, error) {
	return e.open(ctx, usn, &rev)
}

func (e *Engine) open(ctx context.Context, usn string, rev *ReversalReference) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateClosed, StateAborted:
	default:
		return isl.Status{}, fmt.Errorf("%w: open from %s", ErrInvalidState, e.state)
	}

	_, status, err := e.conn.Request(ctx, e.dialect.Commands().GetStatus, "")
	if err != nil {
		return status, err
	}
	if status.Contains(e.dialect.ReceiptOpenText()) {
		return status, ErrDeviceBusy
	}

	payload, err := e.dialect.OpenPayload(usn, rev)
	if err != nil {
		return isl.Status{}, err
	}

	_, status, err = e.conn.Request(ctx, e.dialect.Commands().OpenReceipt, payload)
	if err != nil {
		return status, err
	}
	if status.OK() {
		if rev != nil {
			e.state = StateReversalOpen
		} else {
			e.state = StateOpen
		}
		e.paymentsMade = false
	}
	return status, nil
}

// SellItem prints one sale line on the open receipt.
func (e *Engine) SellItem(ctx context.Context, item Item) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("sell"); err != nil {
		return isl.Status{}, err
	}
	e.ensureLimits(ctx)

	if e.limits.Item > 0 && len(item.Name) > e.limits.Item {
		item.Name = item.Name[:e.limits.Item]
	}
	command, payload, err := e.dialect.ItemPayload(item)
	if err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, command, payload)
	return status, err
}

// Comment prints a free-text line on the open receipt, truncated to
// the device's comment width.
func (e *Engine) Comment(ctx context.Context, text string) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("comment"); err != nil {
		return isl.Status{}, err
	}
	e.ensureLimits(ctx)

	if e.limits.Comment > 0 && len(text) > e.limits.Comment {
		text = text[:e.limits.Comment]
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Comment, text)
	return status, err
}

// Subtotal prints and returns the running subtotal.
func (e *Engine) Subtotal(ctx context.Context) (string, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("subtotal"); err != nil {
		return "", isl.Status{}, err
	}
	return e.conn.Request(ctx, e.dialect.Commands().Subtotal, "")
}

// ChangeSubtotal applies an amount correction to the running subtotal.
// Not every dialect supports it.
func (e *Engine) ChangeSubtotal(ctx context.Context, amount float64) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("subtotal change"); err != nil {
		return isl.Status{}, err
	}
	payload, err := e.dialect.SubtotalChangePayload(amount)
	if err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Subtotal, payload)
	return status, err
}

// Payment registers one tender line.
func (e *Engine) Payment(ctx context.Context, p Payment) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("payment"); err != nil {
		return isl.Status{}, err
	}
	payload, err := e.dialect.PaymentPayload(p)
	if err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Total, payload)
	if err == nil && status.OK() {
		e.paymentsMade = true
	}
	return status, err
}

// FullPayment settles the whole remainder in cash. Only valid before
// any explicit payment was registered.
func (e *Engine) FullPayment(ctx context.Context) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("full payment"); err != nil {
		return isl.Status{}, err
	}
	if e.paymentsMade {
		return isl.Status{}, fmt.Errorf("%w: full payment after explicit payments", ErrInvalidState)
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Total, "\t")
	if err == nil && status.OK() {
		e.paymentsMade = true
	}
	return status, err
}

// CloseReceipt closes the open receipt and gathers the document
// number, timestamp, total and fiscal memory serial. The follow-up
// queries are best-effort: the receipt is closed even when one of them
// fails, and the corresponding ReceiptInfo field stays empty.
func (e *Engine) CloseReceipt(ctx context.Context) (ReceiptInfo, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("close"); err != nil {
		return ReceiptInfo{}, isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().CloseReceipt, "")
	if err != nil {
		return ReceiptInfo{}, status, err
	}
	if !status.OK() {
		return ReceiptInfo{}, status, nil
	}
	e.state = StateClosed

	return e.collectReceiptInfo(ctx), status, nil
}

func (e *Engine) collectReceiptInfo(ctx context.Context) ReceiptInfo {
	var info ReceiptInfo
	cmds := e.dialect.Commands()

	if raw, st, err := e.conn.Request(ctx, cmds.LastDocument, ""); err == nil && st.OK() {
		info.Number = strings.TrimSpace(raw)
	}
	if raw, st, err := e.conn.Request(ctx, cmds.GetDateTime, ""); err == nil && st.OK() {
		if dt, perr := parseDeviceDateTime(raw); perr == nil {
			info.DateTime = dt
		}
	}
	if raw, st, err := e.conn.Request(ctx, cmds.ReceiptStatus, "T"); err == nil && st.OK() {
		if amount, perr := e.dialect.ReceiptAmount(raw); perr == nil {
			info.Amount = amount
		}
	}
	if raw, st, err := e.conn.Request(ctx, cmds.DeviceInfo, "1"); err == nil && st.OK() {
		if di, perr := e.dialect.ParseDeviceInfo(raw); perr == nil {
			info.FiscalMemorySerial = di.FiscalMemorySerial
		}
	}
	return info
}

// AbortReceipt voids the open receipt.
func (e *Engine) AbortReceipt(ctx context.Context) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen("abort"); err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Abort, "")
	if err == nil && status.OK() {
		e.state = StateAborted
	}
	return status, err
}

// MoneyTransfer moves cash in (positive amount) or out (negative) of
// the drawer. Not allowed while a receipt is open.
func (e *Engine) MoneyTransfer(ctx context.Context, amount float64) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNotOpen("money transfer"); err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().MoneyTransfer, fmt.Sprintf("%.2f", amount))
	return status, err
}

// DailyReport prints the daily turnover report, zeroing the counters
// for a Z report, read-only for an X report.
func (e *Engine) DailyReport(ctx context.Context, zeroing bool) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNotOpen("daily report"); err != nil {
		return isl.Status{}, err
	}
	param := ""
	if !zeroing {
		param = "2"
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().DailyReport, param)
	return status, err
}

// PrintDuplicate reprints the last closed receipt.
func (e *Engine) PrintDuplicate(ctx context.Context) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireNotOpen("duplicate"); err != nil {
		return isl.Status{}, err
	}
	_, status, err := e.conn.Request(ctx, e.dialect.Commands().Duplicate, "1")
	return status, err
}

// GetDateTime reads the device clock.
func (e *Engine) GetDateTime(ctx context.Context) (time.Time, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, status, err := e.conn.Request(ctx, e.dialect.Commands().GetDateTime, "")
	if err != nil || !status.OK() {
		return time.Time{}, status, err
	}
	dt, err := parseDeviceDateTime(raw)
	return dt, status, err
}

// SetDateTime sets the device clock.
func (e *Engine) SetDateTime(ctx context.Context, t time.Time) (isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, status, err := e.conn.Request(ctx, e.dialect.Commands().SetDateTime, t.Format(dateTimeLayout))
	return status, err
}

// DeviceInfo reads and parses the device identity.
func (e *Engine) DeviceInfo(ctx context.Context) (DeviceInfo, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, status, err := e.conn.Request(ctx, e.dialect.Commands().DeviceInfo, "1")
	if err != nil || !status.OK() {
		return DeviceInfo{}, status, err
	}
	info, err := e.dialect.ParseDeviceInfo(raw)
	info.Manufacturer = e.dialect.Vendor()
	return info, status, err
}

// TaxID reads the device's tax identification number.
func (e *Engine) TaxID(ctx context.Context) (string, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, status, err := e.conn.Request(ctx, e.dialect.Commands().TaxID, "")
	if err != nil || !status.OK() {
		return "", status, err
	}
	return e.dialect.ParseTaxID(raw), status, nil
}

// LastReceiptQR reads the QR payload of the last closed receipt.
func (e *Engine) LastReceiptQR(ctx context.Context) (string, isl.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, status, err := e.conn.Request(ctx, e.dialect.Commands().QRData, "")
	return strings.TrimSpace(raw), status, err
}

func (e *Engine) requireOpen(op string) error {
	if e.state != StateOpen && e.state != StateReversalOpen {
		return fmt.Errorf("%w: %s from %s", ErrInvalidState, op, e.state)
	}
	return nil
}

func (e *Engine) requireNotOpen(op string) error {
	if e.state == StateOpen || e.state == StateReversalOpen {
		return fmt.Errorf("%w: %s while a receipt is open", ErrInvalidState, op)
	}
	return nil
}

// ensureLimits refines the text limits from the device constants on
// dialects that publish them. Failures keep the compiled-in defaults;
// the query runs at most once per engine.
func (e *Engine) ensureLimits(ctx context.Context) {
	if e.limitsLoaded || !e.dialect.NeedsConstants() {
		return
	}
	e.limitsLoaded = true

	raw, status, err := e.conn.Request(ctx, e.dialect.Commands().DeviceConstants, "")
	if err != nil || !status.OK() {
		return
	}
	if limits, err := e.dialect.ParseConstants(raw); err == nil {
		e.limits = limits
	}
}

// parseDeviceDateTime parses a device timestamp, tolerating the dotted
// and four-digit-year variants seen in the field.
func parseDeviceDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{dateTimeLayout, "02.01.06 15:04:05", "02-01-2006 15:04:05"} {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date and time %q", ErrMalformedResponse, raw)
}
