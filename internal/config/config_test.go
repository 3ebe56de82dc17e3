package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func loadFromFile(t *testing.T, path string) *Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	cfg, _, err := loadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadFromFile(t, writeConfigFile(t, "app:\n  logLevel: info\n"))

	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, 768, cfg.AI.Embedding.Dimensions)
	assert.Equal(t, 1, cfg.Credits.ResumeCost)
	assert.Equal(t, 3, cfg.Credits.InitialFree)
	assert.Equal(t, "0 */6 * * *", cfg.Scheduler.IngestSpec)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.StaleAfter)
	assert.Equal(t, 30*24*time.Hour, cfg.Plans.Pro.Duration)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	t.Setenv("NIENA_AI_MODEL", "gemini-2.5-pro")
	t.Setenv("NIENA_SERVER_APIKEYS", "k1, k2 ,")
	t.Setenv("NIENA_JOBSEARCH_QUERIES", "go developer,sre")

	path := writeConfigFile(t, `
ai:
  apiKey: file-key
  tailor:
    model: gemini-2.5-flash
    temperature: 0.9
credits:
  resumeCost: 2
`)
	cfg := loadFromFile(t, path)

	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, []string{"go developer", "sre"}, cfg.JobSearch.Queries)
	assert.Equal(t, 2, cfg.Credits.ResumeCost)

	tailor := cfg.GetStageConfig(StageTailor)
	assert.Equal(t, "gemini-2.5-flash", tailor.Model)
	assert.Equal(t, "file-key", tailor.APIKey)
	assert.InDelta(t, 0.9, float64(*tailor.Temperature), 0.0001)
}

func TestGetStageConfigFallsBackToGlobal(t *testing.T) {
	timeout := 5 * time.Second
	cfg := &Config{
		AI: AIConfig{
			Provider:         ProviderOpenAI,
			Model:            "gpt-4o-mini",
			BaseURL:          "https://api.example.com/v1",
			Timeout:          time.Minute,
			APIKey:           "global",
			MaxRetries:       4,
			Temperature:      0.5,
			UseSystemPrompts: true,
			Score: OperationAIConfig{
				Model:   "gpt-4o",
				Timeout: &timeout,
			},
		},
	}

	score := cfg.GetStageConfig(StageScore)
	assert.Equal(t, ProviderOpenAI, score.Provider)
	assert.Equal(t, "gpt-4o", score.Model)
	assert.Equal(t, "https://api.example.com/v1", score.BaseURL)
	assert.Equal(t, timeout, *score.Timeout)
	assert.Equal(t, 4, *score.MaxRetries)
	assert.Equal(t, "global", score.APIKey)
	assert.True(t, *score.UseSystemPrompts)

	// fallback values are copies, not aliases of the global block
	*score.MaxRetries = 9
	assert.Equal(t, 4, cfg.AI.MaxRetries)

	unknown := cfg.GetStageConfig("translate")
	assert.Equal(t, "gpt-4o-mini", unknown.Model)
	assert.False(t, unknown.CircuitBreaker.Enabled)
}

func TestGetEmbeddingConfig(t *testing.T) {
	cfg := &Config{AI: AIConfig{
		Provider: ProviderGemini,
		APIKey:   "k",
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-004",
			Dimensions: 768,
		},
	}}

	emb := cfg.GetEmbeddingConfig()
	assert.Equal(t, ProviderGemini, emb.Provider)
	assert.Equal(t, "k", emb.APIKey)
	assert.Equal(t, 16, emb.BatchSize)
	assert.Equal(t, 30*time.Second, emb.Timeout)
}

func TestPlanConfigFor(t *testing.T) {
	cfg := &Config{Plans: PlansConfig{
		Pro:     PlanConfig{Credits: 30},
		Premium: PlanConfig{Credits: 100},
	}}

	pro, ok := cfg.PlanConfigFor("PRO")
	require.True(t, ok)
	assert.Equal(t, 30, pro.Credits)

	_, ok = cfg.PlanConfigFor("FREE")
	assert.False(t, ok)
}

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:  ProviderGemini,
			Timeout:   time.Second,
			Embedding: EmbeddingConfig{Dimensions: 768},
		},
		Server:   ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
		Pipeline: PipelineConfig{Workers: 1},
		App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad provider", mutate: func(c *Config) { c.AI.Provider = "claude" }, wantErr: "unsupported AI provider"},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "timeout"},
		{name: "zero dims", mutate: func(c *Config) { c.AI.Embedding.Dimensions = 0 }, wantErr: "embedding dimensions"},
		{name: "no port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "port"},
		{name: "no workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, wantErr: "workers"},
		{name: "stale window too short", mutate: func(c *Config) {
			c.Pipeline.WorkflowTimeout = 5 * time.Minute
			c.Scheduler.StaleAfter = 5 * time.Minute
		}, wantErr: "staleAfter"},
		{name: "negative cost", mutate: func(c *Config) { c.Credits.TailorCost = -1 }, wantErr: "credit costs"},
		{name: "bad format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "default format"},
		{name: "bad tls", mutate: func(c *Config) { c.Server.TLS.Mode = "server" }, wantErr: "TLS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireAIKey(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.RequireAIKey())

	cfg.AI.APIKey = "key"
	assert.NoError(t, cfg.RequireAIKey())
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://niena:***@db:5432/niena", maskDSN("postgres://niena:secret@db:5432/niena"))
	assert.Equal(t, "postgres://db/niena", maskDSN("postgres://db/niena"))
}
