package cli

import (
	"fmt"

	"niena/internal/common"
	"niena/internal/types"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [transcript-file] [resume-file]",
	Short: "Score a mock interview transcript locally",
	Long: `Score an interview transcript and give per-question feedback. The
optional resume file gives the evaluator context about the candidate.`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: formatPreRun(&evaluateConfig),
	RunE:    runEvaluate,
}

var (
	evaluateConfig common.CommandConfig
	evaluateRole   string
	evaluateType   string
)

func init() {
	addOutputFlags(evaluateCmd, &evaluateConfig)
	evaluateCmd.Flags().StringVar(&evaluateRole, "role", "", "Role the candidate interviewed for (required)")
	evaluateCmd.Flags().StringVar(&evaluateType, "type", "VOICE", "Interview type: VOICE or AVATAR")
	_ = evaluateCmd.MarkFlagRequired("role")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}
	aiService, err := newLocalAI(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = aiService.Close() }()

	err = common.RunAICommand(cmd.Context(), logger, common.FileCommand[types.EvaluateInterviewInput, types.InterviewFeedback]{
		Config:      evaluateConfig,
		MaxFileSize: cfg.App.MaxFileSize,
		CreateInput: func(contents []string) (types.EvaluateInterviewInput, error) {
			in := types.EvaluateInterviewInput{
				Role:          evaluateRole,
				InterviewType: evaluateType,
				Transcript:    contents[0],
			}
			if len(contents) > 1 {
				in.ResumeSummary = contents[1]
			}
			return in, nil
		},
		Operation: aiService.EvaluateInterview,
		LogDetails: func(in types.EvaluateInterviewInput, cc common.CommandConfig) {
			logger.Info("Starting interview evaluation",
				"role", in.Role,
				"interview_type", in.InterviewType,
				"transcript_chars", len(in.Transcript),
				"output_format", cc.OutputFormat)
		},
	}, args)
	if err != nil {
		return fmt.Errorf("failed to evaluate interview: %w", err)
	}

	logger.Info("Interview evaluation completed successfully")
	return nil
}
