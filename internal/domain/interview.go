package domain

import (
	"fmt"
	"time"

	"niena/internal/errors"
	"niena/internal/types"
)

// InterviewType is the medium of a mock interview
type InterviewType string

const (
	InterviewVoice  InterviewType = "VOICE"
	InterviewAvatar InterviewType = "AVATAR"
)

// Valid reports whether t is a known interview type
func (t InterviewType) Valid() bool {
	return t == InterviewVoice || t == InterviewAvatar
}

// InterviewStatus is the lifecycle state of an interview session
type InterviewStatus string

const (
	InterviewScheduled  InterviewStatus = "SCHEDULED"
	InterviewInProgress InterviewStatus = "IN_PROGRESS"
	InterviewCompleted  InterviewStatus = "COMPLETED"
	InterviewCancelled  InterviewStatus = "CANCELLED"
)

var interviewTransitions = map[InterviewStatus][]InterviewStatus{
	InterviewScheduled:  {InterviewInProgress, InterviewCancelled},
	InterviewInProgress: {InterviewCompleted, InterviewCancelled},
}

// Interview is a mock interview session
type Interview struct {
	ID         string                   `json:"id"`
	UserID     string                   `json:"userId"`
	ResumeID   string                   `json:"resumeId,omitempty"`
	Role       string                   `json:"role"`
	Type       InterviewType            `json:"type"`
	Status     InterviewStatus          `json:"status"`
	Transcript string                   `json:"transcript,omitempty"`
	Feedback   *types.InterviewFeedback `json:"feedback,omitempty"`
	Score      int                      `json:"score"`
	StartedAt  *time.Time               `json:"startedAt,omitempty"`
	EndedAt    *time.Time               `json:"endedAt,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
	UpdatedAt  time.Time                `json:"updatedAt"`
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to InterviewStatus) bool {
	for _, next := range interviewTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the interview to status `to`, stamping start and end times
func (i *Interview) Transition(to InterviewStatus, now time.Time) error {
	if !CanTransition(i.Status, to) {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("interview cannot move from %s to %s", i.Status, to)).
			WithContext("interview_id", i.ID)
	}
	switch to {
	case InterviewInProgress:
		i.StartedAt = &now
	case InterviewCompleted, InterviewCancelled:
		i.EndedAt = &now
	}
	i.Status = to
	i.UpdatedAt = now
	return nil
}
