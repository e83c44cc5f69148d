// Package config loads corral's configuration from the user's config file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/corral"
	configFileName = "config.yaml"
)

// Config is corral's user-level configuration. Values come from
// ~/.config/corral/config.yaml and may be overridden per-field through
// CORRAL_* environment variables.
type Config struct {
	// ClientID is the OAuth client identifier registered for this tool.
	ClientID string `yaml:"client_id" env:"CORRAL_CLIENT_ID"`

	// AuthURL is the authorization endpoint.
	AuthURL string `yaml:"auth_url" env:"CORRAL_AUTH_URL"`

	// TokenURL is the token endpoint.
	TokenURL string `yaml:"token_url" env:"CORRAL_TOKEN_URL"`

	// CallbackPort is the loopback port for the OAuth callback listener.
	CallbackPort int `yaml:"callback_port" env:"CORRAL_CALLBACK_PORT"`

	// CallbackTimeout bounds how long login waits for the browser redirect.
	CallbackTimeout time.Duration `yaml:"callback_timeout" env:"CORRAL_CALLBACK_TIMEOUT"`

	// GrantedRedirectURL is the confirmation page shown after consent.
	GrantedRedirectURL string `yaml:"granted_redirect_url" env:"CORRAL_GRANTED_REDIRECT_URL"`

	// DeniedRedirectURL is the page shown after declined consent.
	DeniedRedirectURL string `yaml:"denied_redirect_url" env:"CORRAL_DENIED_REDIRECT_URL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AuthURL:            "https://dash.corral.dev/oauth2/auth",
		TokenURL:           "https://dash.corral.dev/oauth2/token",
		CallbackPort:       8976,
		CallbackTimeout:    10 * time.Minute,
		GrantedRedirectURL: "https://welcome.corral.dev/consent-granted",
		DeniedRedirectURL:  "https://welcome.corral.dev/consent-denied",
	}
}

// DefaultConfigDir returns the directory holding config.yaml and the stored
// credential.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Load reads config.yaml from configDir, falling back to defaults when the
// file does not exist, then applies environment overrides. An empty configDir
// uses the default location.
func Load(configDir string) (Config, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return Config{}, err
		}
		configDir = dir
	}

	cfg := Default()

	configFilePath := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus env overrides are a complete configuration.
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error applying environment overrides: %w", err)
	}

	return cfg, nil
}
