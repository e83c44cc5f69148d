package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultStorageDir is the default directory for the stored credential,
// relative to the user's home directory.
const DefaultStorageDir = ".config/corral"

// credentialFileName is the file the credential is written to.
const credentialFileName = "credentials.json"

// ErrNoCredential is returned by Get when no credential has been stored.
var ErrNoCredential = errors.New("no stored credential; run 'corral login' first")

// Type tags how a stored secret authenticates to the platform API.
type Type string

const (
	// TypeOAuth marks a secret obtained through the interactive OAuth login.
	TypeOAuth Type = "oauth"

	// TypeAPIToken marks a manually configured API token.
	TypeAPIToken Type = "api_token"
)

// Credential is the persisted login result.
//
// SECURITY: the Secret value must never be logged or printed; callers display
// only Type, Scopes and CreatedAt.
type Credential struct {
	// Type tags the kind of secret.
	Type Type `json:"token_type"`

	// Secret is the access token used to authenticate API calls. Opaque to
	// this tool beyond being stored.
	Secret string `json:"secret"`

	// Scopes are the OAuth scopes the secret was granted, when known.
	Scopes []string `json:"scopes,omitempty"`

	// CreatedAt is when the credential was stored.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the single credential of this tool.
type Store interface {
	// Put stores the credential, replacing any previous one.
	Put(cred Credential) error

	// Get returns the stored credential, or ErrNoCredential.
	Get() (*Credential, error)

	// Delete removes the stored credential. Deleting when nothing is stored
	// is not an error.
	Delete() error
}

// FileStore persists the credential as a JSON file under the user's config
// directory.
//
// SECURITY: the file is created with 0600 permissions and its directory with
// 0700, owner access only.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store rooted at dir. An empty dir
// defaults to ~/.config/corral.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	return &FileStore{path: filepath.Join(dir, credentialFileName)}, nil
}

// Put implements Store.
func (s *FileStore) Put(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	return nil
}

// Get implements Store.
func (s *FileStore) Get() (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential file %s: %w", s.path, err)
	}

	return &cred, nil
}

// Delete implements Store.
func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// Path returns the credential file path. Used for user-facing messages.
func (s *FileStore) Path() string {
	return s.path
}
