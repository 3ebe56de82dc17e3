package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "You extract resume fields."
	userPromptContent := "Resume:\n%s"

	systemPromptFile := filepath.Join(tempDir, "system.parse.md")
	userPromptFile := filepath.Join(tempDir, "user.parse.md")

	if err := os.WriteFile(systemPromptFile, []byte(systemPromptContent+"\n\n"), 0600); err != nil {
		t.Fatalf("Failed to create test system prompt file: %v", err)
	}
	if err := os.WriteFile(userPromptFile, []byte(userPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test user prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Parse: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemFile: systemPromptFile,
					UserFile:   userPromptFile,
				},
			},
		},
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}
	t.Cleanup(func() { storeLoadedPrompts(StageParse, LoadedPrompts{}) })

	loaded := GetPromptsForOperation(StageParse)
	if loaded.System != systemPromptContent {
		t.Errorf("Expected system prompt %q, got %q", systemPromptContent, loaded.System)
	}
	if loaded.User != userPromptContent {
		t.Errorf("Expected user prompt %q, got %q", userPromptContent, loaded.User)
	}

	if other := GetPromptsForOperation(StageTailor); other != (LoadedPrompts{}) {
		t.Errorf("Expected no prompts for tailor, got %+v", other)
	}
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()

	validFile := filepath.Join(tempDir, "valid.md")
	if err := os.WriteFile(validFile, []byte("Valid content"), 0600); err != nil {
		t.Fatalf("Failed to create valid test file: %v", err)
	}

	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:   "no prompt files",
			config: &Config{},
		},
		{
			name: "existing file",
			config: &Config{AI: AIConfig{Score: OperationAIConfig{
				CustomPrompts: PromptConfig{SystemFile: validFile},
			}}},
		},
		{
			name: "missing file",
			config: &Config{AI: AIConfig{Autofix: OperationAIConfig{
				CustomPrompts: PromptConfig{UserFile: filepath.Join(tempDir, "missing.md")},
			}}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validatePromptFiles()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadPromptFromEmptyFile(t *testing.T) {
	emptyFile := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0600); err != nil {
		t.Fatalf("Failed to create empty file: %v", err)
	}

	if _, err := loadPromptFromFile(emptyFile, "system", StageExtract); err == nil {
		t.Error("Expected error for empty prompt file")
	}
}
