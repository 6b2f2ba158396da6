package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// CredentialsFileName is the device credential record inside the config dir.
const CredentialsFileName = "device.json"

// FileCredentialStore implements domain.CredentialStore as a JSON file.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore stores device.json under configDir.
func NewFileCredentialStore(configDir string) domain.CredentialStore {
	return &FileCredentialStore{path: filepath.Join(configDir, CredentialsFileName)}
}

// NewFileCredentialStoreWithPath creates a store at a specific path (for testing).
func NewFileCredentialStoreWithPath(path string) domain.CredentialStore {
	return &FileCredentialStore{path: path}
}

// Path returns the credential file location.
func (s *FileCredentialStore) Path() string {
	return s.path
}

// Load reads and validates the credential record.
func (s *FileCredentialStore) Load() (*domain.DeviceCredentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds domain.DeviceCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Save writes the record atomically, creating the config dir when needed.
func (s *FileCredentialStore) Save(creds domain.DeviceCredentials) error {
	if err := validateCredentials(creds); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.path, data)
}

// Reset removes the record. A missing file is not an error.
func (s *FileCredentialStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func validateCredentials(c domain.DeviceCredentials) error {
	if c.PCID <= 0 {
		return fmt.Errorf("%w: pc_id missing", domain.ErrInvalidCredentials)
	}
	if strings.TrimSpace(c.DeviceSecret) == "" {
		return fmt.Errorf("%w: device_secret missing", domain.ErrInvalidCredentials)
	}
	return nil
}

// atomicWrite writes data to path atomically (write + rename).
func atomicWrite(path string, data []byte) error {
	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FileCredentialStore implements domain.CredentialStore.
var _ domain.CredentialStore = (*FileCredentialStore)(nil)
