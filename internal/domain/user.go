package domain

import "time"

// Plan is a subscription tier
type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanPro     Plan = "PRO"
	PlanPremium Plan = "PREMIUM"
)

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanPremium:
		return true
	}
	return false
}

// Paid reports whether p is a paid plan
func (p Plan) Paid() bool {
	return p == PlanPro || p == PlanPremium
}

// User is an account holder with a plan and a credit balance
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Plan          Plan       `json:"plan"`
	PlanExpiresAt *time.Time `json:"planExpiresAt,omitempty"`
	Credits       int        `json:"credits"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PlanExpired reports whether a paid plan has reached its expiry at now
func (u *User) PlanExpired(now time.Time) bool {
	return u.Plan.Paid() && u.PlanExpiresAt != nil && !u.PlanExpiresAt.After(now)
}

// ExpirePlan downgrades an expired paid plan to FREE and reports whether it changed anything
func (u *User) ExpirePlan(now time.Time) bool {
	if !u.PlanExpired(now) {
		return false
	}
	u.Plan = PlanFree
	u.PlanExpiresAt = nil
	u.UpdatedAt = now
	return true
}

// ApplyPlan upgrades the user to plan until now+duration and grants credits.
// Buying the current plan again extends from the later of now and the current expiry.
func (u *User) ApplyPlan(plan Plan, duration time.Duration, credits int, now time.Time) {
	start := now
	if u.Plan == plan && u.PlanExpiresAt != nil && u.PlanExpiresAt.After(now) {
		start = *u.PlanExpiresAt
	}
	expires := start.Add(duration)
	u.Plan = plan
	u.PlanExpiresAt = &expires
	u.Credits += credits
	u.UpdatedAt = now
}
