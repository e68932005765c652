package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"fiscalgw/internal/domain/models"
	"fiscalgw/internal/domain/ports"
	"fiscalgw/pkg/fiscal"
	"fiscalgw/pkg/isl"
	"fiscalgw/pkg/netfp"
)

// Options tune the gateway service.
type Options struct {
	// PreferredBaudRate is probed first during detection.
	PreferredBaudRate int

	// DetectionTimeout bounds a whole port scan. Zero means no limit
	// beyond the caller's context.
	DetectionTimeout time.Duration

	// Operator overrides the per-dialect factory credentials. Empty
	// fields keep the dialect defaults.
	Operator fiscal.Credentials
}

// Service owns device detection and session handling for the gateway.
type Service struct {
	repo     ports.ProfileRepository
	registry *fiscal.Registry
	logger   ports.Logger
	opts     Options
	dial     fiscal.DialFunc
}

// NewService creates the gateway service.
func NewService(repo ports.ProfileRepository, registry *fiscal.Registry, logger ports.Logger, opts Options) *Service {
	s := &Service{
		repo:     repo,
		registry: registry,
		logger:   logger,
		opts:     opts,
	}
	s.dial = fiscal.SerialDial(s.trace)
	return s
}

// SystemPorts lists the serial ports the system reports, sorted.
func (s *Service) SystemPorts() ([]string, error) {
	portsList, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("gateway: listing serial ports: %w", err)
	}
	sort.Strings(portsList)
	return portsList, nil
}

// DetectAll probes every given port in parallel and stores a profile
// for each fiscal printer found. An empty port list scans every serial
// port in the system. Ports with no printer are skipped silently; only
// hard failures are logged.
func (s *Service) DetectAll(ctx context.Context, portNames []string) ([]*models.DeviceProfile, error) {
	if len(portNames) == 0 {
		var err error
		portNames, err = s.SystemPorts()
		if err != nil {
			return nil, err
		}
	}

	if s.opts.DetectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DetectionTimeout)
		defer cancel()
	}

	detector := fiscal.NewDetector(s.registry, s.dial, s.opts.PreferredBaudRate)

	var (
		mu    sync.Mutex
		found []*models.DeviceProfile
		wg    sync.WaitGroup
	)

	for _, port := range portNames {
		wg.Add(1)
		go func(port string) {
			defer wg.Done()

			device, err := detector.Detect(ctx, port)
			if err != nil {
				if fiscal.IsNoDevice(err) {
					s.logger.Debug("no fiscal printer on %s", port)
				} else {
					s.logger.Warn("probing %s: %v", port, err)
				}
				return
			}

			profile := profileOf(device)
			s.logger.Info("found %s %s on %s at %d baud",
				device.Info.Model, device.Info.SerialNumber, port, device.BaudRate)

			if err := s.repo.UpsertProfile(profile); err != nil {
				s.logger.Error("saving profile for %s: %v", port, err)
			}

			mu.Lock()
			found = append(found, profile)
			mu.Unlock()
		}(port)
	}

	wg.Wait()

	sort.Slice(found, func(i, j int) bool { return found[i].Port < found[j].Port })
	return found, nil
}

// Session is an open connection to one detected printer. Its engine
// methods must not be used concurrently.
type Session struct {
	Port      string
	Profile   *models.DeviceProfile
	dialect   fiscal.Dialect
	conn      *isl.Conn
	transport *isl.Transport
}

// OpenSession connects to the printer on a port, detecting it first
// when no stored profile exists.
func (s *Service) OpenSession(ctx context.Context, port string) (*Session, error) {
	profile, err := s.repo.FindProfile(port)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		s.logger.Info("no stored profile for %s, detecting", port)
		detected, err := s.DetectAll(ctx, []string{port})
		if err != nil {
			return nil, err
		}
		if len(detected) == 0 {
			return nil, fmt.Errorf("gateway: %w on %s", fiscal.ErrNoDeviceFound, port)
		}
		profile = detected[0]
	}

	dialect, ok := s.registry.ByName(profile.Dialect)
	if !ok {
		return nil, fmt.Errorf("gateway: stored profile for %s names unknown dialect %q", port, profile.Dialect)
	}
	dialect = fiscal.WithCredentials(dialect, s.opts.Operator)

	transport := isl.NewTransport(isl.Config{
		Port:     port,
		BaudRate: profile.BaudRate,
		Logger:   s.trace,
	})
	if err := transport.Connect(); err != nil {
		return nil, err
	}

	conn := isl.NewConn(transport, isl.Profile{
		Checksum: dialect.Checksum(),
		Status:   dialect.StatusProfile(),
	})

	profile.LastSeen = time.Now()
	if err := s.repo.UpsertProfile(profile); err != nil {
		s.logger.Warn("updating profile for %s: %v", port, err)
	}

	return &Session{
		Port:      port,
		Profile:   profile,
		dialect:   dialect,
		conn:      conn,
		transport: transport,
	}, nil
}

// Close releases the serial port.
func (sn *Session) Close() error {
	return sn.transport.Disconnect()
}

// Dialect names the protocol dialect the session speaks.
func (sn *Session) Dialect() string {
	return sn.dialect.Name()
}

// Engine builds a receipt engine over the session connection.
func (sn *Session) Engine() *fiscal.Engine {
	return fiscal.NewEngine(sn.conn, sn.dialect)
}

func (sn *Session) engineFor(operatorID, operatorPassword string) *fiscal.Engine {
	if operatorID == "" && operatorPassword == "" {
		return sn.Engine()
	}
	d := fiscal.WithCredentials(sn.dialect, fiscal.Credentials{
		OperatorID:       operatorID,
		OperatorPassword: operatorPassword,
		OperatorName:     operatorID,
	})
	return fiscal.NewEngine(sn.conn, d)
}

// PrintReceipt prints one Net.FP receipt document. A missing unique
// sale number gets a generated one so the device never rejects the
// open command for an empty field.
func (s *Service) PrintReceipt(ctx context.Context, session *Session, receipt netfp.Receipt) (netfp.Result, error) {
	if receipt.UniqueSaleNumber == "" {
		receipt.UniqueSaleNumber = uuid.New().String()
	}

	engine := session.engineFor(receipt.Operator, receipt.OperatorPassword)
	return netfp.NewTranslator(engine).Print(ctx, receipt)
}

// Deposit registers a cash-in service operation.
func (s *Service) Deposit(ctx context.Context, session *Session, amount float64) (netfp.Result, error) {
	return netfp.NewTranslator(session.Engine()).Deposit(ctx, amount)
}

// Withdraw registers a cash-out service operation.
func (s *Service) Withdraw(ctx context.Context, session *Session, amount float64) (netfp.Result, error) {
	return netfp.NewTranslator(session.Engine()).Withdraw(ctx, amount)
}

// XReport prints a daily report without zeroing the registers.
func (s *Service) XReport(ctx context.Context, session *Session) (netfp.Result, error) {
	return netfp.NewTranslator(session.Engine()).XReport(ctx)
}

// ZReport prints the daily closure report.
func (s *Service) ZReport(ctx context.Context, session *Session) (netfp.Result, error) {
	return netfp.NewTranslator(session.Engine()).ZReport(ctx)
}

// Duplicate reprints the last receipt.
func (s *Service) Duplicate(ctx context.Context, session *Session) (netfp.Result, error) {
	return netfp.NewTranslator(session.Engine()).Duplicate(ctx)
}

func (s *Service) trace(msg string) {
	s.logger.Debug("%s", msg)
}

func profileOf(device *fiscal.DetectedDevice) *models.DeviceProfile {
	return &models.DeviceProfile{
		Port:               device.Port,
		BaudRate:           device.BaudRate,
		Dialect:            device.Dialect,
		Manufacturer:       device.Info.Manufacturer,
		Model:              device.Info.Model,
		Firmware:           device.Info.Firmware,
		SerialNumber:       device.Info.SerialNumber,
		FiscalMemorySerial: device.Info.FiscalMemorySerial,
		LastSeen:           time.Now(),
	}
}
