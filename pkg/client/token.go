package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credentials is the saved login of the CLI: which server, as whom.
type Credentials struct {
	Server    string    `json:"server"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token expires within margin. Tokens without
// a known expiry never count as expired.
func (c *Credentials) Expired(now time.Time, margin time.Duration) bool {
	return !c.ExpiresAt.IsZero() && now.Add(margin).After(c.ExpiresAt)
}

// CredentialsPath returns the default credentials file under the user's
// config directory.
func CredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "docportal", "credentials.json"), nil
}

// SaveCredentials writes c to path, readable by the owner only.
func SaveCredentials(path string, c *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadCredentials reads the credentials saved at path.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// DeleteCredentials removes the file at path. A missing file is not an
// error.
func DeleteCredentials(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
