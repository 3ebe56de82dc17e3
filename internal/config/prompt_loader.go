package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	count := 0
	for _, stage := range Stages {
		prompts := c.stageConfig(stage).CustomPrompts

		var loaded LoadedPrompts
		if prompts.SystemFile != "" {
			content, err := loadPromptFromFile(prompts.SystemFile, "system", stage)
			if err != nil {
				return err
			}
			loaded.System = content
			count++
		}
		if prompts.UserFile != "" {
			content, err := loadPromptFromFile(prompts.UserFile, "user", stage)
			if err != nil {
				return err
			}
			loaded.User = content
			count++
		}
		storeLoadedPrompts(stage, loaded)
	}

	if count == 0 {
		log.Println("[CONFIG] No custom prompt files - using built-in or inline prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", count)
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, stage string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", stage, promptType, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", stage, promptType, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", stage, promptType, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", stage, promptType, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		stage, promptType, absPath, len(trimmed))

	return trimmed, nil
}

// validatePromptFiles checks that every configured prompt file exists before any is loaded
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType, stage string) {
		if filePath == "" {
			return
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", stage, promptType, filePath))
			return
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", stage, promptType, absPath))
		}
	}

	for _, stage := range Stages {
		prompts := c.stageConfig(stage).CustomPrompts
		validateFile(prompts.SystemFile, "system", stage)
		validateFile(prompts.UserFile, "user", stage)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
