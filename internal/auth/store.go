package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore holds the bearer credential for the verification service.
// The gateway reads the current token per request and clears it when the
// service rejects it as expired.
type TokenStore interface {
	// Token returns the current bearer token, or false if none is stored.
	Token() (string, bool)

	// Save stores a new token.
	Save(token string) error

	// Clear removes the stored token. Clearing an empty store is a no-op.
	Clear() error
}

// FileTokenStore keeps the token in a single file under the config
// directory (default ~/.verihub/token), mode 0600.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the given file path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath returns the standard token location.
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".verihub", "token"), nil
}

// Token reads the stored token.
func (s *FileTokenStore) Token() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

// Save writes the token, creating the config directory if needed.
func (s *FileTokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear removes the token file.
func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-process store for tests and embedding.
type MemoryTokenStore struct {
	token string
}

// NewMemoryTokenStore creates a store seeded with the given token.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

// Token returns the stored token.
func (s *MemoryTokenStore) Token() (string, bool) {
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// Save stores a new token.
func (s *MemoryTokenStore) Save(token string) error {
	s.token = token
	return nil
}

// Clear removes the token.
func (s *MemoryTokenStore) Clear() error {
	s.token = ""
	return nil
}
