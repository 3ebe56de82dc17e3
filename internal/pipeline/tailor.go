package pipeline

import (
	"context"
	"time"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/types"
)

// TailorJob identifies a pending tailored resume and the credits charged for it
type TailorJob struct {
	TailoredID string
	UserID     string
	Credits    int
}

// TailorReport is the output of tailoring a resume to one job
type TailorReport struct {
	Output types.TailorResumeOutput `json:"output"`
	Score  types.ResumeScore        `json:"score"`
}

// TailorWorkflow rewrites a resume against a job description and scores the result
type TailorWorkflow struct {
	ai       ai.AIProvider
	resumes  ResumeStore
	tailored TailoredStore
	credits  CreditRefunder
	recorder Recorder
	logger   *errors.Logger
}

// NewTailorWorkflow creates the tailor workflow
func NewTailorWorkflow(provider ai.AIProvider, resumes ResumeStore, tailored TailoredStore, credits CreditRefunder, logger *errors.Logger) *TailorWorkflow {
	return &TailorWorkflow{
		ai:       provider,
		resumes:  resumes,
		tailored: tailored,
		credits:  credits,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// SetRecorder sets the business metrics recorder
func (w *TailorWorkflow) SetRecorder(r Recorder) {
	if r != nil {
		w.recorder = r
	}
}

// Tailor rewrites resumeText for the job and scores the rewrite. parsed and analysis
// are reused when the resume was already analysed; a nil parsed triggers a parse.
func (w *TailorWorkflow) Tailor(ctx context.Context, resumeText string, parsed *types.ParsedResume, analysis *types.ResumeAnalysis, job types.TailorResumeInput) (*TailorReport, *ai.TokenUsage, error) {
	total := &ai.TokenUsage{}

	if parsed == nil {
		p, usage, err := w.ai.ParseResume(ctx, types.ParseResumeInput{ResumeText: resumeText})
		if err != nil {
			return nil, total, err
		}
		total.Add(usage)
		parsed = &p
	}

	job.BaseResume = resumeText
	out, usage, err := w.ai.TailorResume(ctx, job)
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)

	var a types.ResumeAnalysis
	if analysis != nil {
		a = *analysis
	}
	score, usage, err := w.ai.ScoreResume(ctx, types.ScoreResumeInput{
		ResumeText:     out.TailoredResume,
		Parsed:         *parsed,
		Analysis:       a,
		JobDescription: job.JobDescription,
	})
	if err != nil {
		return nil, total, err
	}
	total.Add(usage)

	return &TailorReport{Output: out, Score: score}, total, nil
}

// Run tailors a stored resume. A failed run marks the record FAILED and refunds the credits.
func (w *TailorWorkflow) Run(ctx context.Context, job TailorJob) error {
	logger := w.logger.With("workflow", WorkflowTailor, "tailored_id", job.TailoredID, "user_id", job.UserID)

	tr, err := w.tailored.GetByID(ctx, job.TailoredID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			logger.Warn("Tailored resume was deleted before tailoring started")
			return err
		}
		w.fail(ctx, logger, job, err)
		return err
	}
	if tr.Status != domain.ResumePending {
		// Already failed and refunded by the stale sweep
		logger.Warn("Tailored resume is no longer pending, skipping", "status", tr.Status)
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "tailored resume is no longer pending").
			WithContext("tailored_id", tr.ID)
	}
	rs, err := w.resumes.GetByID(ctx, tr.ResumeID)
	if err != nil {
		w.fail(ctx, logger, job, err)
		return err
	}

	tr.Status = domain.ResumeProcessing
	if err := w.tailored.Update(ctx, tr); err != nil {
		w.fail(ctx, logger, job, err)
		return err
	}

	// The autofixed rewrite is the better starting point when it exists
	base := rs.RawText
	if rs.Autofix != nil && rs.Autofix.ImprovedResume != "" {
		base = rs.Autofix.ImprovedResume
	}

	start := time.Now()
	report, usage, err := w.Tailor(ctx, base, rs.Parsed, rs.Analysis, types.TailorResumeInput{
		JobTitle:       tr.JobTitle,
		Company:        tr.Company,
		JobDescription: tr.JobDescription,
	})
	if err != nil {
		w.fail(ctx, logger, job, err)
		return err
	}

	tr.Output = &report.Output
	tr.Score = &report.Score
	tr.Status = domain.ResumeCompleted
	if err := w.tailored.Update(ctx, tr); err != nil {
		w.fail(ctx, logger, job, err)
		return err
	}

	w.recorder.RecordWorkflow(ctx, WorkflowTailor, true)
	logger.Info("Resume tailoring completed",
		"duration", time.Since(start),
		"ats_score", report.Output.ATSAnalysis.Score,
		"total_tokens", usage.TotalTokens)
	return nil
}

func (w *TailorWorkflow) fail(ctx context.Context, logger *errors.Logger, job TailorJob, cause error) {
	w.recorder.RecordWorkflow(ctx, WorkflowTailor, false)
	logger.LogError(cause, "Resume tailoring failed, compensating")

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := w.tailored.SetStatus(cctx, job.TailoredID, domain.ResumeFailed); err != nil {
		logger.LogError(err, "Failed to mark tailored resume as failed")
	}
	if err := w.credits.RefundCredits(cctx, job.UserID, job.Credits); err != nil {
		logger.LogError(err, "Failed to refund credits", "credits", job.Credits)
	}
}
