package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage"`
	Remote        RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// StorageConfig configures the local slot backend.
type StorageConfig struct {
	SlotDSN string `mapstructure:"slot_dsn" yaml:"slot_dsn"`
}

// RemoteConfig configures the remote document store.
type RemoteConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	UploadURL    string `mapstructure:"upload_url" yaml:"upload_url"`
	DocumentName string `mapstructure:"document_name" yaml:"document_name"`
}

// AuthConfig configures the OAuth endpoints and credential cache.
type AuthConfig struct {
	ClientID        string   `mapstructure:"client_id" yaml:"client_id"`
	Scopes          []string `mapstructure:"scopes" yaml:"scopes"`
	TokenURL        string   `mapstructure:"token_url" yaml:"token_url"`
	RevokeURL       string   `mapstructure:"revoke_url" yaml:"revoke_url"`
	UserinfoURL     string   `mapstructure:"userinfo_url" yaml:"userinfo_url"`
	CredentialsFile string   `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, err
	}
	appDir := filepath.Join(configDir, "tabstash")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Storage: StorageConfig{
			SlotDSN: "file:" + filepath.Join(appDir, "worksheets.json"),
		},
		Remote: RemoteConfig{
			BaseURL:      "https://www.googleapis.com",
			UploadURL:    "https://www.googleapis.com",
			DocumentName: "handy_dandy_tools_data.json",
		},
		Auth: AuthConfig{
			ClientID:        "",
			Scopes:          []string{"https://www.googleapis.com/auth/drive.appdata"},
			TokenURL:        "https://oauth2.googleapis.com/token",
			RevokeURL:       "https://oauth2.googleapis.com/revoke",
			UserinfoURL:     "https://openidconnect.googleapis.com/v1/userinfo",
			CredentialsFile: filepath.Join(appDir, "credentials.yaml"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tabstash", "config.yaml"), nil
}
