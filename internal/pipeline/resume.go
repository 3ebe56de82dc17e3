package pipeline

import (
	"context"
	"time"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/types"
)

const compensationTimeout = 30 * time.Second

// ResumeJob identifies a resume to run through the analysis workflow.
// Credits is what the caller charged and gets refunded on failure.
// A new resume is deleted on failure; a reanalysis is only marked FAILED.
type ResumeJob struct {
	ResumeID   string
	UserID     string
	Credits    int
	Reanalysis bool
}

// ResumeWorkflow runs parse, analyze, score and autofix over a stored resume
type ResumeWorkflow struct {
	ai       ai.AIProvider
	embedder ai.Embedder
	resumes  ResumeStore
	credits  CreditRefunder
	cache    MatchCache
	recorder Recorder
	logger   *errors.Logger
}

// NewResumeWorkflow creates the analysis workflow
func NewResumeWorkflow(provider ai.AIProvider, embedder ai.Embedder, resumes ResumeStore, credits CreditRefunder, logger *errors.Logger) *ResumeWorkflow {
	return &ResumeWorkflow{
		ai:       provider,
		embedder: embedder,
		resumes:  resumes,
		credits:  credits,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// SetCache sets the match cache invalidated when a primary resume is re-embedded
func (w *ResumeWorkflow) SetCache(c MatchCache) { w.cache = c }

// SetRecorder sets the business metrics recorder
func (w *ResumeWorkflow) SetRecorder(r Recorder) {
	if r != nil {
		w.recorder = r
	}
}

// stageResult receives each stage's output as soon as it is available
type stageResult func(stage string, report *types.ResumeReport) error

// Analyze runs the four stages over text without touching storage
func (w *ResumeWorkflow) Analyze(ctx context.Context, text string) (*types.ResumeReport, *ai.TokenUsage, error) {
	return w.analyze(ctx, text, nil)
}

func (w *ResumeWorkflow) analyze(ctx context.Context, text string, onStage stageResult) (*types.ResumeReport, *ai.TokenUsage, error) {
	report := &types.ResumeReport{}
	total := &ai.TokenUsage{}
	notify := func(stage string) error {
		if onStage == nil {
			return nil
		}
		return onStage(stage, report)
	}

	parsed, usage, err := w.ai.ParseResume(ctx, types.ParseResumeInput{ResumeText: text})
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)
	report.Parsed = parsed
	if err := notify("parse"); err != nil {
		return nil, total, err
	}

	analysis, usage, err := w.ai.AnalyzeResume(ctx, types.AnalyzeResumeInput{ResumeText: text, Parsed: report.Parsed})
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)
	report.Analysis = analysis
	if err := notify("analyze"); err != nil {
		return nil, total, err
	}

	score, usage, err := w.ai.ScoreResume(ctx, types.ScoreResumeInput{
		ResumeText: text,
		Parsed:     report.Parsed,
		Analysis:   report.Analysis,
	})
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)
	report.Score = score
	if err := notify("score"); err != nil {
		return nil, total, err
	}

	fix, usage, err := w.ai.AutofixResume(ctx, types.AutofixResumeInput{
		ResumeText: text,
		Parsed:     report.Parsed,
		Analysis:   report.Analysis,
		Score:      report.Score,
	})
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)
	report.Autofix = fix
	if err := notify("autofix"); err != nil {
		return nil, total, err
	}

	return report, total, nil
}

// Run executes the workflow for a stored resume. Every stage output is saved as it
// completes. On failure the compensating action runs before the error is returned.
func (w *ResumeWorkflow) Run(ctx context.Context, job ResumeJob) error {
	logger := w.logger.With("workflow", WorkflowResume, "resume_id", job.ResumeID, "user_id", job.UserID)

	rs, err := w.resumes.GetByID(ctx, job.ResumeID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			logger.Warn("Resume was deleted before its analysis started")
			return err
		}
		w.compensate(ctx, logger, job, err)
		return err
	}
	if rs.Status != domain.ResumePending {
		// Already failed and refunded by the stale sweep
		logger.Warn("Resume is no longer pending, skipping analysis", "status", rs.Status)
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "resume is no longer pending").
			WithContext("resume_id", rs.ID)
	}

	rs.Status = domain.ResumeProcessing
	if job.Reanalysis {
		rs.Parsed, rs.Analysis, rs.Score, rs.Autofix = nil, nil, nil, nil
	}
	if err := w.resumes.Update(ctx, rs); err != nil {
		w.compensate(ctx, logger, job, err)
		return err
	}

	start := time.Now()
	_, usage, err := w.analyze(ctx, rs.RawText, func(stage string, report *types.ResumeReport) error {
		switch stage {
		case "parse":
			parsed := report.Parsed
			rs.Parsed = &parsed
			if rs.Title == "" && parsed.Headline != "" {
				rs.Title = parsed.Headline
			}
		case "analyze":
			analysis := report.Analysis
			rs.Analysis = &analysis
		case "score":
			score := report.Score
			rs.Score = &score
		case "autofix":
			fix := report.Autofix
			rs.Autofix = &fix
			rs.Status = domain.ResumeCompleted
		}
		logger.Debug("Resume stage completed", "stage", stage)
		return w.resumes.Update(ctx, rs)
	})
	if err != nil {
		w.compensate(ctx, logger, job, err)
		return err
	}

	w.embed(ctx, logger, rs)
	w.recorder.RecordWorkflow(ctx, WorkflowResume, true)
	logger.Info("Resume analysis completed",
		"duration", time.Since(start),
		"overall_score", rs.Score.Overall,
		"total_tokens", usage.TotalTokens)
	return nil
}

// embed stores the resume vector. A failure leaves the resume usable but unmatched.
func (w *ResumeWorkflow) embed(ctx context.Context, logger *errors.Logger, rs *domain.Resume) {
	if w.embedder == nil {
		return
	}
	vectors, err := w.embedder.Embed(ctx, []string{rs.EmbeddingText()})
	if err != nil {
		logger.LogError(err, "Resume embedding failed")
		return
	}
	if err := w.resumes.SetEmbedding(ctx, rs.ID, vectors[0]); err != nil {
		logger.LogError(err, "Failed to store resume embedding")
		return
	}
	if rs.IsPrimary && w.cache != nil {
		if err := w.cache.InvalidateMatches(ctx, rs.UserID); err != nil {
			logger.LogError(err, "Failed to invalidate cached matches")
		}
	}
}

// compensate undoes the side effects of a failed run: the credit is refunded and a
// new resume is deleted, a reanalysed one marked FAILED. It runs detached from ctx,
// which may already be cancelled.
func (w *ResumeWorkflow) compensate(ctx context.Context, logger *errors.Logger, job ResumeJob, cause error) {
	w.recorder.RecordWorkflow(ctx, WorkflowResume, false)
	logger.LogError(cause, "Resume analysis failed, compensating")

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if job.Reanalysis {
		if err := w.resumes.SetStatus(cctx, job.ResumeID, domain.ResumeFailed); err != nil {
			logger.LogError(err, "Failed to mark resume as failed")
		}
	} else if err := w.resumes.Delete(cctx, job.UserID, job.ResumeID); err != nil {
		logger.LogError(err, "Failed to delete resume after failed analysis")
	}

	if err := w.credits.RefundCredits(cctx, job.UserID, job.Credits); err != nil {
		logger.LogError(err, "Failed to refund credits", "credits", job.Credits)
		return
	}
	if job.Credits > 0 {
		logger.Info("Credits refunded after failed analysis", "credits", job.Credits)
	}
}
