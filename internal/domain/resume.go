package domain

import (
	"time"

	"niena/internal/types"
)

// ResumeStatus tracks a resume through the analysis pipeline
type ResumeStatus string

const (
	ResumePending    ResumeStatus = "PENDING"
	ResumeProcessing ResumeStatus = "PROCESSING"
	ResumeCompleted  ResumeStatus = "COMPLETED"
	ResumeFailed     ResumeStatus = "FAILED"
)

// Resume is an uploaded resume and the outputs of each pipeline stage
type Resume struct {
	ID        string                `json:"id"`
	UserID    string                `json:"userId"`
	Title     string                `json:"title"`
	FileName  string                `json:"fileName,omitempty"`
	RawText   string                `json:"rawText"`
	Parsed    *types.ParsedResume   `json:"parsed,omitempty"`
	Analysis  *types.ResumeAnalysis `json:"analysis,omitempty"`
	Score     *types.ResumeScore    `json:"score,omitempty"`
	Autofix   *types.AutofixResult  `json:"autofix,omitempty"`
	Status    ResumeStatus          `json:"status"`
	IsPrimary bool                  `json:"isPrimary"`
	Embedding []float32             `json:"-"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`

	// Credits charged for the pending run, refunded if it never finishes
	ChargedCredits int `json:"-"`
}

// Ready reports whether every pipeline stage has produced output
func (r *Resume) Ready() bool {
	return r.Status == ResumeCompleted && r.Parsed != nil
}

// EmbeddingText is the text embedded for job matching: headline, skills, summary and recent titles
func (r *Resume) EmbeddingText() string {
	if r.Parsed == nil {
		return r.RawText
	}
	p := r.Parsed
	text := joinNonEmpty("\n",
		p.Headline,
		"Skills: "+joinNonEmpty(", ", p.Skills...),
		p.Summary,
	)
	for i, exp := range p.Experience {
		if i == 3 {
			break
		}
		text += "\n" + exp.Title + " at " + exp.Company
	}
	if r.Analysis != nil && len(r.Analysis.SuggestedRoles) > 0 {
		text += "\nTarget roles: " + joinNonEmpty(", ", r.Analysis.SuggestedRoles...)
	}
	return text
}

// TailoredResume is a resume variant generated against a job description
type TailoredResume struct {
	ID             string                    `json:"id"`
	ResumeID       string                    `json:"resumeId"`
	UserID         string                    `json:"userId"`
	JobID          string                    `json:"jobId,omitempty"`
	JobTitle       string                    `json:"jobTitle"`
	Company        string                    `json:"company"`
	JobDescription string                    `json:"jobDescription"`
	Status         ResumeStatus              `json:"status"`
	Output         *types.TailorResumeOutput `json:"output,omitempty"`
	Score          *types.ResumeScore        `json:"score,omitempty"`
	ChargedCredits int                       `json:"-"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// StaleRun is a PENDING or PROCESSING record that was failed because its
// workflow stopped making progress
type StaleRun struct {
	ID      string
	UserID  string
	Credits int
}
