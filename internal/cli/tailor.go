package cli

import (
	"context"
	"fmt"

	"niena/internal/ai"
	"niena/internal/common"
	"niena/internal/pipeline"
	"niena/internal/types"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume-file] [job-description-file]",
	Short: "Tailor a resume for a job description locally",
	Long: `Rewrite a resume for a job description and score the result against
the job. The resume is parsed first. Nothing is stored.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: formatPreRun(&tailorConfig),
	RunE:    runTailor,
}

var (
	tailorConfig  common.CommandConfig
	tailorJob     string
	tailorCompany string
)

func init() {
	addOutputFlags(tailorCmd, &tailorConfig)
	tailorCmd.Flags().StringVar(&tailorJob, "job-title", "", "Job title, when not obvious from the description")
	tailorCmd.Flags().StringVar(&tailorCompany, "company", "", "Hiring company")
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}
	aiService, err := newLocalAI(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = aiService.Close() }()

	workflow := pipeline.NewTailorWorkflow(aiService, nil, nil, nil, logger)

	err = common.RunAICommand(cmd.Context(), logger, common.FileCommand[types.TailorResumeInput, *pipeline.TailorReport]{
		Config:      tailorConfig,
		MaxFileSize: cfg.App.MaxFileSize,
		CreateInput: func(contents []string) (types.TailorResumeInput, error) {
			if len(contents) != 2 {
				return types.TailorResumeInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
			}
			return types.TailorResumeInput{
				BaseResume:     contents[0],
				JobTitle:       tailorJob,
				Company:        tailorCompany,
				JobDescription: contents[1],
			}, nil
		},
		Operation: func(ctx context.Context, in types.TailorResumeInput) (*pipeline.TailorReport, *ai.TokenUsage, error) {
			return workflow.Tailor(ctx, in.BaseResume, nil, nil, in)
		},
		LogDetails: func(in types.TailorResumeInput, cc common.CommandConfig) {
			logger.Info("Starting resume tailoring",
				"resume_chars", len(in.BaseResume),
				"job_chars", len(in.JobDescription),
				"output_format", cc.OutputFormat)
		},
	}, args)
	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}

	logger.Info("Resume tailoring completed successfully")
	return nil
}
