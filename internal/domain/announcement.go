package domain

import (
	"fmt"
	"time"

	"niena/internal/errors"
)

// Announcement is a platform-wide notice shown to users
type Announcement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	PublishedAt time.Time  `json:"publishedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the announcement is visible at now
func (a *Announcement) Active(now time.Time) bool {
	if a.PublishedAt.After(now) {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// ApplicationStatus is the review state of a recruiter application
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// RecruiterApplication is a user's request to post jobs as a recruiter
type RecruiterApplication struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Company    string            `json:"company"`
	Website    string            `json:"website,omitempty"`
	Message    string            `json:"message,omitempty"`
	Status     ApplicationStatus `json:"status"`
	ReviewNote string            `json:"reviewNote,omitempty"`
	ReviewedAt *time.Time        `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Review settles a PENDING application
func (a *RecruiterApplication) Review(approve bool, note string, now time.Time) error {
	if a.Status != ApplicationPending {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("application already %s", a.Status))
	}
	if approve {
		a.Status = ApplicationApproved
	} else {
		a.Status = ApplicationRejected
	}
	a.ReviewNote = note
	a.ReviewedAt = &now
	return nil
}
