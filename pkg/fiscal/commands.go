package fiscal

// CommandSet maps protocol operations to command bytes. The generic
// set covers most of the family; vendors override individual entries.
type CommandSet struct {
	GetStatus       byte
	OpenReceipt     byte
	Sale            byte
	SaleDepartment  byte // 0 when the vendor has no separate department sale command
	Subtotal        byte
	Total           byte
	Comment         byte
	CloseReceipt    byte
	Abort           byte
	SetDateTime     byte
	GetDateTime     byte
	MoneyTransfer   byte
	DailyReport     byte
	ReceiptStatus   byte
	DeviceInfo      byte
	TaxID           byte
	Duplicate       byte
	LastDocument    byte
	QRData          byte
	DeviceConstants byte
}

func genericCommands() CommandSet {
	return CommandSet{
		GetStatus:       0x4A,
		OpenReceipt:     0x30,
		Sale:            0x31,
		Subtotal:        0x33,
		Total:           0x35,
		Comment:         0x36,
		CloseReceipt:    0x38,
		Abort:           0x3C,
		SetDateTime:     0x3D,
		GetDateTime:     0x3E,
		MoneyTransfer:   0x46,
		DailyReport:     0x45,
		ReceiptStatus:   0x4C,
		DeviceInfo:      0x5A,
		TaxID:           0x63,
		Duplicate:       0x6D,
		LastDocument:    0x71,
		QRData:          0x74,
		DeviceConstants: 0x80,
	}
}
