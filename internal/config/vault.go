package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"niena/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines KVv2 paths for each secret. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // key "keys", comma separated
	AIKey     string `mapstructure:"aiKey"`     // key "api_key"
	Database  string `mapstructure:"database"`  // key "dsn"
	Redis     string `mapstructure:"redis"`     // key "password"
	JobSearch string `mapstructure:"jobSearch"` // key "api_key"
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration.
// It returns nil, nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", vaultConfig.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the types Vault's JSON decoding produces
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		// json.Number when the client decodes with UseNumber
		if s, ok := versionRaw.(fmt.Stringer); ok {
			version, err := strconv.ParseInt(s.String(), 10, 64)
			if err == nil {
				return version, nil
			}
		}
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"masked_value", maskSecret(strValue))
	}
	return strValue, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitCSV(value), nil
}

func maskSecret(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case len(value) > 0:
		return "****"
	default:
		return ""
	}
}

// secretSource reads one string secret
type secretSource interface {
	GetStringSecret(path, key string) (string, error)
}

// secretBinding maps a Vault path and key onto a config field
type secretBinding struct {
	name  string
	path  string
	key   string
	apply func(c *Config, value string)
}

func (c *Config) secretBindings() []secretBinding {
	s := c.Vault.Secrets
	return []secretBinding{
		{name: "server api keys", path: s.APIKeys, key: "keys", apply: func(c *Config, v string) {
			if keys := splitCSV(v); len(keys) > 0 {
				c.Server.APIKeys = keys
			}
		}},
		{name: "ai api key", path: s.AIKey, key: "api_key", apply: applyAIKeyToConfig},
		{name: "database dsn", path: s.Database, key: "dsn", apply: func(c *Config, v string) {
			c.Database.DSN = v
		}},
		{name: "redis password", path: s.Redis, key: "password", apply: func(c *Config, v string) {
			c.Redis.Password = v
		}},
		{name: "job search api key", path: s.JobSearch, key: "api_key", apply: func(c *Config, v string) {
			c.JobSearch.APIKey = v
		}},
	}
}

// applyAIKeyToConfig applies the provider API key globally and to stages without their own key
func applyAIKeyToConfig(config *Config, key string) {
	config.AI.APIKey = key
	for _, stage := range Stages {
		if raw := config.stageConfig(stage); raw.APIKey == "" {
			raw.APIKey = key
		}
	}
	if config.AI.Embedding.APIKey == "" {
		config.AI.Embedding.APIKey = key
	}
}

// applySecrets reads every configured binding from src into config
func applySecrets(config *Config, src secretSource, logger *errors.Logger) error {
	for _, binding := range config.secretBindings() {
		if binding.path == "" {
			continue
		}
		value, err := src.GetStringSecret(binding.path, binding.key)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", binding.name, err)
		}
		if value == "" {
			if logger != nil {
				logger.Warn("Empty secret in Vault", "secret", binding.name, "path", binding.path)
			}
			continue
		}
		binding.apply(config, value)
		if logger != nil {
			logger.Info("Secret loaded from Vault", "secret", binding.name)
		}
	}
	return nil
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	if client == nil {
		return nil
	}

	return applySecrets(config, client, logger)
}
