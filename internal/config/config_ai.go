package config

import "time"

// Supported AI providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
}

// stageConfig returns a pointer to the raw stage block, or nil for unknown stages
func (c *Config) stageConfig(stage string) *OperationAIConfig {
	switch stage {
	case StageParse:
		return &c.AI.Parse
	case StageAnalyze:
		return &c.AI.Analyze
	case StageScore:
		return &c.AI.Score
	case StageAutofix:
		return &c.AI.Autofix
	case StageTailor:
		return &c.AI.Tailor
	case StageExtract:
		return &c.AI.Extract
	case StageInterview:
		return &c.AI.Interview
	default:
		return nil
	}
}

// GetStageConfig returns the AI configuration for a stage with fallback to the global block.
// Unknown stages get the global block with the circuit breaker disabled.
func (c *Config) GetStageConfig(stage string) OperationAIConfig {
	var config OperationAIConfig
	if raw := c.stageConfig(stage); raw != nil {
		config = *raw
	}

	c.applyOperationDefaults(&config)
	return config
}

// GetEmbeddingConfig returns embedding settings with provider, key and base URL falling back to the global block
func (c *Config) GetEmbeddingConfig() EmbeddingConfig {
	config := c.AI.Embedding
	if config.Provider == "" {
		config.Provider = c.AI.Provider
	}
	if config.APIKey == "" {
		config.APIKey = c.AI.APIKey
	}
	if config.BaseURL == "" {
		config.BaseURL = c.AI.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 16
	}
	return config
}

// PlanConfigFor returns the paid plan definition by plan name (PRO, PREMIUM)
func (c *Config) PlanConfigFor(plan string) (PlanConfig, bool) {
	switch plan {
	case "PRO":
		return c.Plans.Pro, true
	case "PREMIUM":
		return c.Plans.Premium, true
	default:
		return PlanConfig{}, false
	}
}
