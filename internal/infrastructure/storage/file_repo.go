package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fiscalgw/internal/domain/models"
	"fiscalgw/internal/domain/ports"
)

// FileProfileRepository implements ports.ProfileRepository backed by a
// JSON file.
type FileProfileRepository struct {
	mu       sync.Mutex
	filePath string
	profiles []*models.DeviceProfile
}

// NewFileProfileRepository creates a repository over the given file,
// loading whatever it already holds. A missing file is an empty store.
func NewFileProfileRepository(filePath string) (ports.ProfileRepository, error) {
	repo := &FileProfileRepository{
		filePath: filePath,
	}

	if err := repo.loadFromFile(); err != nil {
		return nil, fmt.Errorf("storage: initializing profile repository: %w", err)
	}

	return repo, nil
}

// LoadProfiles loads every stored profile.
func (r *FileProfileRepository) LoadProfiles() ([]*models.DeviceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadFromFile(); err != nil {
		return nil, err
	}

	// return a copy so callers cannot mutate the cache
	result := make([]*models.DeviceProfile, len(r.profiles))
	copy(result, r.profiles)
	return result, nil
}

// UpsertProfile adds or replaces the profile of a port.
func (r *FileProfileRepository) UpsertProfile(profile *models.DeviceProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for i, p := range r.profiles {
		if p.Port == profile.Port {
			r.profiles[i] = profile
			found = true
			break
		}
	}

	if !found {
		r.profiles = append(r.profiles, profile)
	}

	return r.saveToFile()
}

// FindProfile looks a profile up by port name.
func (r *FileProfileRepository) FindProfile(port string) (*models.DeviceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if p.Port == port {
			return p, nil
		}
	}

	return nil, nil
}

// DeleteProfile removes the profile of a port.
func (r *FileProfileRepository) DeleteProfile(port string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.profiles {
		if p.Port == port {
			r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
			return r.saveToFile()
		}
	}

	return fmt.Errorf("storage: no profile for port %s", port)
}

// ClearProfiles removes everything.
func (r *FileProfileRepository) ClearProfiles() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make([]*models.DeviceProfile, 0)
	return r.saveToFile()
}

func (r *FileProfileRepository) loadFromFile() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			r.profiles = make([]*models.DeviceProfile, 0)
			return nil
		}
		return fmt.Errorf("storage: reading profiles file: %w", err)
	}

	var pd struct {
		Profiles []*models.DeviceProfile `json:"profiles"`
	}

	if err := json.Unmarshal(data, &pd); err != nil {
		r.profiles = make([]*models.DeviceProfile, 0)
		return fmt.Errorf("storage: parsing profiles file: %w", err)
	}

	r.profiles = pd.Profiles
	return nil
}

func (r *FileProfileRepository) saveToFile() error {
	dir := filepath.Dir(r.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("storage: creating profiles directory: %w", err)
	}

	data := struct {
		Profiles []*models.DeviceProfile `json:"profiles"`
	}{
		Profiles: r.profiles,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encoding profiles: %w", err)
	}

	if err := os.WriteFile(r.filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("storage: writing profiles file: %w", err)
	}

	return nil
}
