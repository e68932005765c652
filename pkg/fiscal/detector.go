package fiscal

import (
	"context"
	"errors"

	"fiscalgw/pkg/isl"
)

// DetectedDevice is the outcome of a successful probe.
type DetectedDevice struct {
	Port     string     `json:"port"`
	BaudRate int        `json:"baudRate"`
	Dialect  string     `json:"dialect"`
	Info     DeviceInfo `json:"info"`
}

// DialFunc opens a raw exchange channel to a port at a given baud
// rate. The returned closer releases the port. Tests substitute fakes;
// production uses SerialDial.
type DialFunc func(port string, baud int) (isl.Exchanger, func() error, error)

// SerialDial returns the production DialFunc backed by isl.Transport.
func SerialDial(logger func(string)) DialFunc {
	return func(port string, baud int) (isl.Exchanger, func() error, error) {
		transport := isl.NewTransport(isl.Config{Port: port, BaudRate: baud, Logger: logger})
		if err := transport.Connect(); err != nil {
			return nil, nil, err
		}
		transport.ResetBuffers()
		return transport, transport.Disconnect, nil
	}
}

// Detector probes serial ports for fiscal printers. For every
// candidate baud rate it walks the registry in priority order: a
// dialect claims the device only when the status probe answers, the
// device info parses and the serial number validates. The context
// deadline bounds the whole scan.
type Detector struct {
	registry  *Registry
	dial      DialFunc
	preferred int
}

// NewDetector builds a detector over a registry. preferredBaud, when
// nonzero, is probed before the dialects' own candidate rates.
func NewDetector(registry *Registry, dial DialFunc, preferredBaud int) *Detector {
	return &Detector{registry: registry, dial: dial, preferred: preferredBaud}
}

// Detect probes one port. It returns ErrNoDeviceFound when every
// baud/dialect combination was exhausted, or the context error when
// the deadline cut the scan short.
func (d *Detector) Detect(ctx context.Context, port string) (*DetectedDevice, error) {
	for _, baud := range d.registry.BaudRates(d.preferred) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := d.probeBaud(ctx, port, baud)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, ErrNoDeviceFound
}

func (d *Detector) probeBaud(ctx context.Context, port string, baud int) (*DetectedDevice, error) {
	exchanger, closer, err := d.dial(port, baud)
	if err != nil {
		// port not openable at all, no point trying other bauds
		return nil, err
	}
	defer closer()

	for _, dialect := range d.registry.Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, ok := d.probeDialect(ctx, exchanger, dialect)
		if !ok {
			continue
		}
		return &DetectedDevice{
			Port:     port,
			BaudRate: baud,
			Dialect:  dialect.Name(),
			Info:     info,
		}, nil
	}
	return nil, nil
}

// probeDialect sends the status and device info commands through the
// dialect's framing. Any failure, a silent device, a frame that does
// not parse, a serial number with the wrong shape, rejects the
// dialect; the caller moves on.
func (d *Detector) probeDialect(ctx context.Context, exchanger isl.Exchanger, dialect Dialect) (DeviceInfo, bool) {
	conn := isl.NewConn(exchanger, isl.Profile{
		Checksum: dialect.Checksum(),
		Status:   dialect.StatusProfile(),
	})
	cmds := dialect.Commands()

	if _, _, err := conn.Request(ctx, cmds.GetStatus, ""); err != nil {
		return DeviceInfo{}, false
	}

	raw, status, err := conn.Request(ctx, cmds.DeviceInfo, "1")
	if err != nil || !status.OK() {
		return DeviceInfo{}, false
	}

	info, err := dialect.ParseDeviceInfo(raw)
	if err != nil {
		return DeviceInfo{}, false
	}
	if !dialect.ValidateSerial(info.SerialNumber) {
		return DeviceInfo{}, false
	}
	info.Manufacturer = dialect.Vendor()
	return info, true
}

// IsNoDevice reports whether err only means nothing was detected,
// as opposed to a scan failure.
func IsNoDevice(err error) bool {
	return errors.Is(err, ErrNoDeviceFound)
}
