package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// CredentialStore provides secure storage for authentication credentials
type CredentialStore interface {
	// Load retrieves stored credentials; ErrNotLoggedIn when none exist
	Load() (*Credentials, error)
	// Save stores credentials securely
	Save(creds *Credentials) error
	// Delete removes stored credentials
	Delete() error
	// Exists checks if credentials are stored
	Exists() bool
}

// NewDefaultStore probes the OS keyring and falls back to a file store in
// the user config directory when no keyring backend is available. Backend
// selection is a runtime decision so the same binary works on headless
// machines.
func NewDefaultStore() (CredentialStore, error) {
	const probeKey = "backend-probe"
	if err := keyring.Set(KeyringService, probeKey, "ok"); err == nil {
		_ = keyring.Delete(KeyringService, probeKey)
		return NewKeyringStore(), nil
	}

	return NewFileStore("")
}

// KeyringStore implements CredentialStore using the OS keyring
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() *KeyringStore {
	// The zalando keyring library handles OS backend selection
	return &KeyringStore{}
}

// Load retrieves stored credentials from the keyring
func (s *KeyringStore) Load() (*Credentials, error) {
	data, err := keyring.Get(KeyringService, KeyringUsername)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, &StoreError{Op: "load", Cause: err}
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, &StoreError{Op: "load", Cause: fmt.Errorf("failed to parse credentials: %w", err)}
	}

	return &creds, nil
}

// Save stores credentials in the keyring
func (s *KeyringStore) Save(creds *Credentials) error {
	if creds == nil {
		return &StoreError{Op: "save", Cause: errors.New("cannot save nil credentials")}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return &StoreError{Op: "save", Cause: err}
	}

	if err := keyring.Set(KeyringService, KeyringUsername, string(data)); err != nil {
		return &StoreError{Op: "save", Cause: err}
	}

	return nil
}

// Delete removes stored credentials from the keyring
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(KeyringService, KeyringUsername)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &StoreError{Op: "delete", Cause: err}
	}
	return nil
}

// Exists checks if credentials are stored
func (s *KeyringStore) Exists() bool {
	_, err := keyring.Get(KeyringService, KeyringUsername)
	return err == nil
}

// FileStore implements CredentialStore with a JSON file under the user
// config directory. Used when no OS keyring backend is available. The file
// is created with 0600 permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a file-based credential store. An empty path uses
// credentials.json under the user config directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, &StoreError{Op: "init", Cause: err}
		}
		path = filepath.Join(configDir, "mstodo", "credentials.json")
	}
	return &FileStore{path: path}, nil
}

// Load retrieves stored credentials from the file
func (s *FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, &StoreError{Op: "load", Cause: err}
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &StoreError{Op: "load", Cause: fmt.Errorf("failed to parse credentials: %w", err)}
	}

	return &creds, nil
}

// Save writes credentials to the file
func (s *FileStore) Save(creds *Credentials) error {
	if creds == nil {
		return &StoreError{Op: "save", Cause: errors.New("cannot save nil credentials")}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return &StoreError{Op: "save", Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &StoreError{Op: "save", Cause: err}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return &StoreError{Op: "save", Cause: err}
	}

	return nil
}

// Delete removes the credentials file
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "delete", Cause: err}
	}
	return nil
}

// Exists checks if the credentials file is present
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// MockStore implements CredentialStore for testing
type MockStore struct {
	creds *Credentials
	err   error

	SaveCalls int
}

// NewMockStore creates a mock credential store for testing
func NewMockStore(creds *Credentials, err error) *MockStore {
	return &MockStore{creds: creds, err: err}
}

// Load returns the mock credentials
func (m *MockStore) Load() (*Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.creds == nil {
		return nil, ErrNotLoggedIn
	}
	return m.creds, nil
}

// Save stores the mock credentials
func (m *MockStore) Save(creds *Credentials) error {
	m.SaveCalls++
	if m.err != nil {
		return m.err
	}
	m.creds = creds
	return nil
}

// Delete clears the mock credentials
func (m *MockStore) Delete() error {
	if m.err != nil {
		return m.err
	}
	m.creds = nil
	return nil
}

// Exists checks if mock credentials exist
func (m *MockStore) Exists() bool {
	return m.creds != nil
}
