package gateway

import (
	"context"
	"testing"
	"time"

	"fiscalgw/internal/domain/models"
	"fiscalgw/pkg/fiscal"
	"fiscalgw/pkg/isl"
	"fiscalgw/pkg/netfp"
)

type memoryRepo struct {
	profiles map[string]*models.DeviceProfile
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: make(map[string]*models.DeviceProfile)}
}

func (r *memoryRepo) LoadProfiles() ([]*models.DeviceProfile, error) {
	var out []*models.DeviceProfile
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) UpsertProfile(p *models.DeviceProfile) error {
	r.profiles[p.Port] = p
	return nil
}

func (r *memoryRepo) FindProfile(port string) (*models.DeviceProfile, error) {
	return r.profiles[port], nil
}

func (r *memoryRepo) DeleteProfile(port string) error {
	delete(r.profiles, port)
	return nil
}

func (r *memoryRepo) ClearProfiles() error {
	r.profiles = make(map[string]*models.DeviceProfile)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})   {}
func (nopLogger) Warn(string, ...interface{})   {}
func (nopLogger) Error(string, ...interface{})  {}
func (nopLogger) Fatal(string, ...interface{})  {}
func (nopLogger) Printf(string, ...interface{}) {}

// deviceFrame builds a printer response frame with a sum checksum and
// an all-clear status.
func deviceFrame(seq, cmd byte, data string) []byte {
	status := make([]byte, 6)
	frame := []byte{0x01, byte(0x20 + 4 + len(data) + 1 + len(status)), seq, cmd}
	frame = append(frame, []byte(data)...)
	frame = append(frame, 0x04)
	frame = append(frame, status...)
	frame = append(frame, 0x05)

	var sum uint16
	for _, b := range frame[1:] {
		sum += uint16(b)
	}
	for shift := 12; shift >= 0; shift -= 4 {
		frame = append(frame, byte((sum>>uint(shift))&0x0F)+0x30)
	}
	return append(frame, 0x03)
}

// okDevice answers every command with empty data and a clean status,
// except device info which returns a Datecs style identification.
type okDevice struct {
	infoText string
}

func (d *okDevice) Exchange(_ context.Context, frame []byte) ([]byte, error) {
	seq, cmd := frame[2], frame[3]
	if cmd == 0x5A {
		return deviceFrame(seq, cmd, d.infoText), nil
	}
	return deviceFrame(seq, cmd, ""), nil
}

func fakeDialTo(port string, baud int, device isl.Exchanger) fiscal.DialFunc {
	return func(p string, b int) (isl.Exchanger, func() error, error) {
		if p == port && b == baud {
			return device, func() error { return nil }, nil
		}
		return silentDevice{}, func() error { return nil }, nil
	}
}

type silentDevice struct{}

func (silentDevice) Exchange(context.Context, []byte) ([]byte, error) {
	return nil, isl.ErrNoResponse
}

func newTestService(t *testing.T, repo *memoryRepo, device isl.Exchanger) *Service {
	t.Helper()
	svc := NewService(repo, fiscal.DefaultRegistry(), nopLogger{}, Options{
		PreferredBaudRate: 115200,
		DetectionTimeout:  5 * time.Second,
	})
	svc.dial = fakeDialTo("COM7", 115200, device)
	return svc
}

func TestDetectAllStoresProfile(t *testing.T) {
	repo := newMemoryRepo()
	device := &okDevice{infoText: "FP-2000\t1.00BG\t0\tDT518293\t02518293"}
	svc := newTestService(t, repo, device)

	found, err := svc.DetectAll(context.Background(), []string{"COM3", "COM7"})
	if err != nil {
		t.Fatalf("DetectAll: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one detected device, got %d", len(found))
	}

	p := found[0]
	if p.Port != "COM7" || p.Dialect != "datecs.p.isl" || p.BaudRate != 115200 {
		t.Errorf("unexpected profile: %+v", p)
	}
	if p.SerialNumber != "DT518293" || p.Model != "FP-2000" || p.Manufacturer != "Datecs" {
		t.Errorf("unexpected identification: %+v", p)
	}

	stored, err := repo.FindProfile("COM7")
	if err != nil || stored == nil {
		t.Fatalf("profile was not stored: %v", err)
	}
}

func TestDetectAllNothingFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo, silentDevice{})
	svc.dial = func(string, int) (isl.Exchanger, func() error, error) {
		return silentDevice{}, func() error { return nil }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	found, err := svc.DetectAll(ctx, []string{"COM3"})
	if err != nil {
		t.Fatalf("DetectAll: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no devices, got %d", len(found))
	}
}

func TestPrintReceiptThroughSession(t *testing.T) {
	device := &okDevice{infoText: "FP-2000\t1.00BG\t0\tDT518293\t02518293"}

	dialect, ok := fiscal.DefaultRegistry().ByName("datecs.p.isl")
	if !ok {
		t.Fatal("datecs.p.isl missing from registry")
	}
	session := &Session{
		Port:    "COM7",
		dialect: dialect,
		conn: isl.NewConn(device, isl.Profile{
			Checksum: dialect.Checksum(),
			Status:   dialect.StatusProfile(),
		}),
	}

	svc := newTestService(t, newMemoryRepo(), device)

	result, err := svc.PrintReceipt(context.Background(), session, netfp.Receipt{
		Items: []netfp.Item{{Text: "Bread", UnitPrice: 2.50, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PrintReceipt: %v", err)
	}
	if !result.OK {
		t.Errorf("expected OK result, got messages %v", result.Messages)
	}
}
