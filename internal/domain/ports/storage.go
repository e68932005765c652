package ports

import "fiscalgw/internal/domain/models"

// ProfileRepository stores detected device profiles. Implementations
// live in the infrastructure layer.
type ProfileRepository interface {
	// LoadProfiles loads every stored profile.
	LoadProfiles() ([]*models.DeviceProfile, error)

	// UpsertProfile adds or replaces the profile of a port.
	UpsertProfile(profile *models.DeviceProfile) error

	// FindProfile looks a profile up by serial port name. A nil result
	// with nil error means the port has no stored profile.
	FindProfile(port string) (*models.DeviceProfile, error)

	// DeleteProfile removes the profile of a port.
	DeleteProfile(port string) error

	// ClearProfiles removes everything.
	ClearProfiles() error
}
