package common

import (
	"context"
	"fmt"

	"niena/internal/ai"
	"niena/internal/errors"
)

// CreateInputFunc builds the operation input from file contents.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is any AI-backed operation that reports token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// FileCommand describes one file-driven CLI command
type FileCommand[Input, Output any] struct {
	Config      CommandConfig
	MaxFileSize int64
	CreateInput CreateInputFunc[Input]
	Operation   AIOperationFunc[Input, Output]
	LogDetails  LogDetailsFunc[Input]
}

// RunAICommand reads the files in args, runs the operation and writes the formatted result.
func RunAICommand[Input, Output any](ctx context.Context, logger *errors.Logger, cmd FileCommand[Input, Output], args []string) error {
	fileProcessor := NewFileProcessor(logger, cmd.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	input, err := cmd.CreateInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if cmd.LogDetails != nil {
		cmd.LogDetails(input, cmd.Config)
	}

	result, tokenUsage, err := cmd.Operation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return outputHandler.HandleOutput(result, cmd.Config)
}
