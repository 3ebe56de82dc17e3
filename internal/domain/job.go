package domain

import (
	"strings"
	"time"
)

// Job is an ingested job posting with extracted fields and an embedding
type Job struct {
	ID             string     `json:"id"`
	ExternalID     string     `json:"externalId"`
	Source         string     `json:"source"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	Remote         bool       `json:"remote"`
	EmploymentType string     `json:"employmentType"`
	Seniority      string     `json:"seniority"`
	SalaryMin      float64    `json:"salaryMin,omitempty"`
	SalaryMax      float64    `json:"salaryMax,omitempty"`
	SalaryCurrency string     `json:"salaryCurrency,omitempty"`
	Description    string     `json:"description"`
	Summary        string     `json:"summary"`
	Skills         []string   `json:"skills"`
	ApplyLink      string     `json:"applyLink"`
	Embedding      []float32  `json:"-"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// EmbeddingText is the text embedded for similarity search
func (j *Job) EmbeddingText() string {
	return joinNonEmpty("\n",
		j.Title,
		j.Seniority,
		"Skills: "+strings.Join(j.Skills, ", "),
		j.Summary,
	)
}

// JobMatch is a job with its cosine similarity to a resume embedding
type JobMatch struct {
	Job        Job     `json:"job"`
	Similarity float64 `json:"similarity"`
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
