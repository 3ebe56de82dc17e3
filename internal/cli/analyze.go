package cli

import (
	"context"
	"fmt"

	"niena/internal/ai"
	"niena/internal/common"
	"niena/internal/formatters"
	"niena/internal/pipeline"
	"niena/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a resume locally",
	Long: `Run the full resume pipeline on a local file: parse, analyze, score and
autofix. Nothing is stored and no credits are spent.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: formatPreRun(&analyzeConfig),
	RunE:    runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
}

// formatPreRun applies the default output format and validates it
func formatPreRun(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if cc.OutputFormat == "" {
			cc.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
	}
}

func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		if len(cfg.App.SupportedFormats) == 0 {
			return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// newLocalAI creates the AI service for the file commands
func newLocalAI(cmd *cobra.Command) (*ai.Service, error) {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAIKey(); err != nil {
		return nil, err
	}
	svc, err := ai.NewService(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return svc, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}
	aiService, err := newLocalAI(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = aiService.Close() }()

	workflow := pipeline.NewResumeWorkflow(aiService, aiService, nil, nil, logger)

	err = common.RunAICommand(cmd.Context(), logger, common.FileCommand[string, *types.ResumeReport]{
		Config:      analyzeConfig,
		MaxFileSize: cfg.App.MaxFileSize,
		CreateInput: func(contents []string) (string, error) {
			return contents[0], nil
		},
		Operation: func(ctx context.Context, text string) (*types.ResumeReport, *ai.TokenUsage, error) {
			return workflow.Analyze(ctx, text)
		},
		LogDetails: func(text string, cc common.CommandConfig) {
			logger.Info("Starting resume analysis",
				"resume_chars", len(text),
				"output_format", cc.OutputFormat)
		},
	}, args)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	logger.Info("Resume analysis completed successfully")
	return nil
}
