package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ServerConfig is the on-disk shape of --config. DataDir, MetricsAddr,
// Audience and Passphrase each have a flag equivalent, and a flag explicitly
// set on the command line overrides the value loaded from file; OIDCIssuers
// can only be set from the file.
type ServerConfig struct {
	DataDir     string `yaml:"dataDir"`
	MetricsAddr string `yaml:"metricsAddr"`
	// Audience is the value every issued and accepted token's aud claim
	// must contain.
	Audience string `yaml:"audience"`
	// Passphrase derives the AES-256-GCM key that wraps the signing
	// keyring's private key material at rest. It is required: loadConfig
	// rejects an empty passphrase.
	Passphrase string `yaml:"passphrase"`
	// OIDCIssuers registers additional trusted OIDC issuers beyond the
	// server's own "server" issuer identity.
	OIDCIssuers []OIDCIssuerConfig `yaml:"oidcIssuers"`
}

type OIDCIssuerConfig struct {
	Name         string   `yaml:"name"`
	JWKSEndpoint string   `yaml:"jwksEndpoint"`
	Audiences    []string `yaml:"audiences"`
}

func defaultConfig() ServerConfig {
	return ServerConfig{
		DataDir:     "/var/lib/strata",
		MetricsAddr: "127.0.0.1:9090",
		Audience:    "strata",
	}
}

// loadConfig reads path (if non-empty) over a default config, then applies
// every flag the caller explicitly set on cmd.
func loadConfig(cmd *cobra.Command, path string) (ServerConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if cmd.Flags().Changed("audience") {
		cfg.Audience, _ = cmd.Flags().GetString("audience")
	}
	if cmd.Flags().Changed("passphrase") {
		cfg.Passphrase, _ = cmd.Flags().GetString("passphrase")
	}

	if cfg.DataDir == "" {
		return cfg, fmt.Errorf("data directory is required")
	}
	if cfg.Passphrase == "" {
		return cfg, fmt.Errorf("passphrase is required (set --passphrase or config.passphrase)")
	}
	return cfg, nil
}
