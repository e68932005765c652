// Package isl implements the wire level of the ISL fiscal printer
// protocol family: frame building and parsing, status byte decoding,
// and a serial transport with bounded retry behaviour.
//
// Key Features:
//   - Host frame construction with rolling sequence numbers and BCC
//   - Response parsing by marker scanning with checksum validation
//   - Arithmetic-sum and XOR checksum variants selectable per device
//   - NAK/SYN control byte handling (resend / busy-wait)
//   - Bit-table status decoding into structured, typed messages
//   - Windows-1251 payload encoding for Cyrillic device text
//
// Example Usage:
//
//	transport := isl.NewTransport(isl.Config{
//	    Port:     "/dev/ttyUSB0",
//	    BaudRate: 115200,
//	})
//	if err := transport.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer transport.Disconnect()
//
//	conn := isl.NewConn(transport, profile)
//	text, status, err := conn.Request(context.Background(), 0x4A, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(text, status.OK())
//
// Device-reported conditions (paper out, fiscal memory full, ...) are
// returned as Status data, never as errors; errors are reserved for
// transport and framing failures.
package isl
