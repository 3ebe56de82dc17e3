package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyJobSearchFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// splitCSV splits a comma separated value and drops empty entries
func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("NIENA_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitCSV(apiKeysEnv)
		}
	}
}

// applyJobSearchFallbacks lets NIENA_JOBSEARCH_QUERIES carry a comma separated list
func (c *Config) applyJobSearchFallbacks() {
	if queries := os.Getenv("NIENA_JOBSEARCH_QUERIES"); queries != "" {
		c.JobSearch.Queries = splitCSV(queries)
	}
	if c.JobSearch.Pages <= 0 {
		c.JobSearch.Pages = 1
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// maskDSN hides the password portion of a postgres URL
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"NIENA_AI_APIKEY",
		"NIENA_AI_PROVIDER",
		"NIENA_AI_MODEL",
		"NIENA_DATABASE_DSN",
		"NIENA_REDIS_ADDR",
		"NIENA_JOBSEARCH_APIKEY",
		"NIENA_SERVER_PORT",
		"NIENA_SERVER_HOST",
		"NIENA_APP_LOGLEVEL",
		"NIENA_VAULT_ENABLED",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "key") || strings.Contains(lower, "dsn") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Embedding Model: %s (%d dims)", c.AI.Embedding.Model, c.AI.Embedding.Dimensions)
	log.Printf("[CONFIG] Database: %s", maskDSN(c.Database.DSN))
	log.Printf("[CONFIG] Redis Enabled: %t (%s)", c.Redis.Enabled, c.Redis.Addr)
	log.Printf("[CONFIG] Job Search Queries: %d, Pages: %d", len(c.JobSearch.Queries), c.JobSearch.Pages)
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Stage AI Configurations ===")
	for _, stage := range Stages {
		raw := c.stageConfig(stage)
		log.Printf("[CONFIG] %s - Provider: %q, Model: %q", stage, raw.Provider, raw.Model)
	}

	log.Println("[CONFIG] =====================================")
}
