package models

import "time"

// DeviceProfile remembers a detected fiscal printer so later sessions
// can skip the baud and dialect scan.
type DeviceProfile struct {
	Port               string    `json:"port"`
	BaudRate           int       `json:"baudRate"`
	Dialect            string    `json:"dialect"`
	Manufacturer       string    `json:"manufacturer,omitempty"`
	Model              string    `json:"model,omitempty"`
	Firmware           string    `json:"firmware,omitempty"`
	SerialNumber       string    `json:"serialNumber"`
	FiscalMemorySerial string    `json:"fiscalMemorySerial,omitempty"`
	LastSeen           time.Time `json:"lastSeen"`
}
