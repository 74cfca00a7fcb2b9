package authflow

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Credentials is the on-disk credential cache. It holds only the long-lived
// refresh token; access tokens are requested fresh each session.
type Credentials struct {
	RefreshToken string `yaml:"refresh_token"`
}

// LoadCredentials reads the credential cache. A missing file is not an
// error; it means no credential has been cached yet.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, err
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// SaveCredentials writes the credential cache with owner-only permissions.
func SaveCredentials(path string, creds Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ClearCredentials removes the cached credential. Missing files are fine.
func ClearCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
