package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("storage.slot_dsn", cfg.Storage.SlotDSN)
	v.SetDefault("remote.base_url", cfg.Remote.BaseURL)
	v.SetDefault("remote.upload_url", cfg.Remote.UploadURL)
	v.SetDefault("remote.document_name", cfg.Remote.DocumentName)
	v.SetDefault("auth.client_id", cfg.Auth.ClientID)
	v.SetDefault("auth.scopes", cfg.Auth.Scopes)
	v.SetDefault("auth.token_url", cfg.Auth.TokenURL)
	v.SetDefault("auth.revoke_url", cfg.Auth.RevokeURL)
	v.SetDefault("auth.userinfo_url", cfg.Auth.UserinfoURL)
	v.SetDefault("auth.credentials_file", cfg.Auth.CredentialsFile)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateRemoteConfig(cfg.Remote); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateRemoteConfig(cfg RemoteConfig) error {
	for _, pair := range []struct {
		key   string
		value string
	}{
		{"remote.base_url", cfg.BaseURL},
		{"remote.upload_url", cfg.UploadURL},
	} {
		value := strings.TrimSpace(pair.value)
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must include scheme and host (e.g. https://example.com)", pair.key)
		}
	}
	if strings.TrimSpace(cfg.DocumentName) == "" {
		return fmt.Errorf("remote.document_name must not be empty")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Storage.SlotDSN = expandEnv(cfg.Storage.SlotDSN)
	cfg.Auth.CredentialsFile = expandEnv(cfg.Auth.CredentialsFile)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
