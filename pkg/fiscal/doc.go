// Package fiscal implements the device-facing protocol engine for the
// ISL fiscal printer family: vendor dialects, device detection and the
// receipt lifecycle state machine.
//
// Key Features:
//   - Eight vendor dialects behind one closed Dialect interface
//   - Explicit dialect registry ordered by detection priority
//   - Multi-baud device detection with a global deadline
//   - Receipt engine enforcing the open/sell/pay/close lifecycle
//   - Device conditions surfaced as Status data, never as errors
//
// Example Usage:
//
//	engine := fiscal.NewEngine(conn, fiscal.NewDatecsPC())
//	if _, err := engine.OpenReceipt(ctx, "DT123456-0001-0000123"); err != nil {
//	    log.Fatal(err)
//	}
//	engine.SellItem(ctx, fiscal.Item{Name: "Bread", Price: 2.50, TaxGroup: fiscal.TaxGroup2})
//	engine.FullPayment(ctx)
//	info, status, err := engine.CloseReceipt(ctx)
package fiscal
