package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/pipeline"
	"niena/internal/types"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*domain.User{}} }

func (m *memUsers) put(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *memUsers) credits(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.Credits
	}
	return -1
}

func (m *memUsers) Get(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeUserNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Ensure(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *u
	m.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) SpendCredits(_ context.Context, id string, cost int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, errors.NewNotFoundError(errors.ErrCodeUserNotFound, "user not found")
	}
	if u.Credits < cost {
		return 0, errors.NewInsufficientCreditsError(cost, u.Credits)
	}
	u.Credits -= cost
	return u.Credits, nil
}

func (m *memUsers) RefundCredits(_ context.Context, id string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeUserNotFound, "user not found")
	}
	u.Credits += amount
	return nil
}

func (m *memUsers) ListExpiredPlans(_ context.Context, now time.Time, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.PlanExpired(now) && len(out) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) ExpirePlan(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	return u.ExpirePlan(now), nil
}

type memResumes struct {
	mu         sync.Mutex
	resumes    map[string]*domain.Resume
	embeddings map[string][]float32
	seq        int
}

func newMemResumes() *memResumes {
	return &memResumes{resumes: map[string]*domain.Resume{}, embeddings: map[string][]float32{}}
}

func (m *memResumes) put(rs *domain.Resume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rs
	m.resumes[rs.ID] = &cp
}

func (m *memResumes) Create(_ context.Context, rs *domain.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hasPrimary := false
	for _, r := range m.resumes {
		if r.UserID == rs.UserID && r.IsPrimary {
			hasPrimary = true
		}
	}
	rs.IsPrimary = !hasPrimary
	m.seq++
	rs.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *rs
	m.resumes[rs.ID] = &cp
	return nil
}

func (m *memResumes) Get(_ context.Context, userID, id string) (*domain.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok || rs.UserID != userID {
		return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	cp := *rs
	return &cp, nil
}

func (m *memResumes) GetPrimary(_ context.Context, userID string) (*domain.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rs := range m.resumes {
		if rs.UserID == userID && rs.IsPrimary {
			cp := *rs
			return &cp, nil
		}
	}
	return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "primary resume not found")
}

func (m *memResumes) List(_ context.Context, userID string) ([]domain.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Resume
	for _, rs := range m.resumes {
		if rs.UserID == userID {
			out = append(out, *rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memResumes) ClaimForReanalysis(_ context.Context, userID, id string, credits int) (*domain.Resume, domain.ResumeStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok || rs.UserID != userID {
		return nil, "", errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	if rs.Status != domain.ResumeCompleted && rs.Status != domain.ResumeFailed {
		return nil, "", errors.NewConflictError(errors.ErrCodeInvalidTransition, "resume analysis is already in progress")
	}
	previous := rs.Status
	rs.Status = domain.ResumePending
	rs.ChargedCredits = credits
	cp := *rs
	return &cp, previous, nil
}

func (m *memResumes) SetStatus(_ context.Context, id string, status domain.ResumeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	rs.Status = status
	return nil
}

func (m *memResumes) Embedding(_ context.Context, id string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.embeddings[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeResumeNotReady, "resume has no embedding yet", nil)
	}
	return vec, nil
}

func (m *memResumes) SetPrimary(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.resumes[id]
	if !ok || target.UserID != userID {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	for _, rs := range m.resumes {
		if rs.UserID == userID {
			rs.IsPrimary = rs.ID == id
		}
	}
	return nil
}

func (m *memResumes) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok || rs.UserID != userID {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	delete(m.resumes, id)
	if rs.IsPrimary {
		var newest *domain.Resume
		for _, r := range m.resumes {
			if r.UserID == userID && (newest == nil || r.CreatedAt.After(newest.CreatedAt)) {
				newest = r
			}
		}
		if newest != nil {
			newest.IsPrimary = true
		}
	}
	return nil
}

type memTailored struct {
	mu    sync.Mutex
	items map[string]*domain.TailoredResume
}

func newMemTailored() *memTailored { return &memTailored{items: map[string]*domain.TailoredResume{}} }

func (m *memTailored) Create(_ context.Context, t *domain.TailoredResume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memTailored) Update(_ context.Context, t *domain.TailoredResume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memTailored) Get(_ context.Context, userID, id string) (*domain.TailoredResume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.UserID != userID {
		return nil, errors.NewNotFoundError(errors.ErrCodeTailoredNotFound, "tailored resume not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTailored) ListByResume(_ context.Context, userID, resumeID string) ([]domain.TailoredResume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TailoredResume
	for _, t := range m.items {
		if t.UserID == userID && t.ResumeID == resumeID {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memJobs struct {
	jobs    map[string]*domain.Job
	matches []domain.JobMatch
	calls   int
}

func (m *memJobs) Get(_ context.Context, id string) (*domain.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeJobNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) Search(_ context.Context, query string, limit, offset int) ([]domain.Job, error) {
	m.calls++
	var out []domain.Job
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (m *memJobs) MatchByEmbedding(_ context.Context, _ []float32, limit int) ([]domain.JobMatch, error) {
	m.calls++
	if len(m.matches) > limit {
		return m.matches[:limit], nil
	}
	return m.matches, nil
}

func (m *memJobs) Count(context.Context) (int64, error) { return int64(len(m.jobs)), nil }

type memInterviews struct {
	mu    sync.Mutex
	items map[string]*domain.Interview
}

func newMemInterviews() *memInterviews { return &memInterviews{items: map[string]*domain.Interview{}} }

func (m *memInterviews) Create(_ context.Context, iv *domain.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *iv
	m.items[iv.ID] = &cp
	return nil
}

func (m *memInterviews) Get(_ context.Context, userID, id string) (*domain.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok || iv.UserID != userID {
		return nil, errors.NewNotFoundError(errors.ErrCodeInterviewNotFound, "interview not found")
	}
	cp := *iv
	return &cp, nil
}

func (m *memInterviews) List(_ context.Context, userID string) ([]domain.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Interview
	for _, iv := range m.items {
		if iv.UserID == userID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (m *memInterviews) Update(_ context.Context, iv *domain.Interview, from domain.InterviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[iv.ID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeInterviewNotFound, "interview not found")
	}
	if stored.Status != from {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "interview changed concurrently")
	}
	cp := *iv
	m.items[iv.ID] = &cp
	return nil
}

type memTransactions struct {
	mu    sync.Mutex
	users *memUsers
	items map[string]*domain.Transaction
}

func (m *memTransactions) Create(_ context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.Reference] = &cp
	return nil
}

func (m *memTransactions) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[reference]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeTransactionNotFound, "transaction not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTransactions) ListByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.items {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTransactions) settle(t *domain.Transaction) error {
	stored, ok := m.items[t.Reference]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeTransactionNotFound, "transaction not found")
	}
	if stored.Status != domain.TransactionPending {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "transaction is no longer pending")
	}
	cp := *t
	m.items[t.Reference] = &cp
	return nil
}

func (m *memTransactions) Fail(_ context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settle(t)
}

func (m *memTransactions) CompleteWithPlan(_ context.Context, t *domain.Transaction, plan domain.Plan, expiresAt time.Time, credits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.settle(t); err != nil {
		return err
	}
	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	u := m.users.users[t.UserID]
	u.Plan = plan
	u.PlanExpiresAt = &expiresAt
	u.Credits += credits
	return nil
}

type memAnnouncements struct {
	items []domain.Announcement
}

func (m *memAnnouncements) Create(_ context.Context, a *domain.Announcement) error {
	m.items = append(m.items, *a)
	return nil
}

func (m *memAnnouncements) ListActive(_ context.Context, now time.Time) ([]domain.Announcement, error) {
	var out []domain.Announcement
	for _, a := range m.items {
		if a.Active(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memRecruiters struct {
	items map[string]*domain.RecruiterApplication
}

func (m *memRecruiters) Create(_ context.Context, a *domain.RecruiterApplication) error {
	for _, existing := range m.items {
		if existing.UserID == a.UserID && existing.Status == domain.ApplicationPending {
			return errors.NewConflictError(errors.ErrCodeInvalidRequest, "application already pending")
		}
	}
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memRecruiters) Get(_ context.Context, id string) (*domain.RecruiterApplication, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeApplicationNotFound, "application not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memRecruiters) ListByStatus(_ context.Context, status domain.ApplicationStatus) ([]domain.RecruiterApplication, error) {
	var out []domain.RecruiterApplication
	for _, a := range m.items {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRecruiters) SaveReview(_ context.Context, a *domain.RecruiterApplication) error {
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

type fakeCache struct {
	matches     map[string][]domain.JobMatch
	invalidated []string
}

func newFakeCache() *fakeCache { return &fakeCache{matches: map[string][]domain.JobMatch{}} }

func (c *fakeCache) GetMatches(_ context.Context, userID string, _ int) ([]domain.JobMatch, bool, error) {
	m, ok := c.matches[userID]
	return m, ok, nil
}

func (c *fakeCache) SetMatches(_ context.Context, userID string, _ int, matches []domain.JobMatch) error {
	c.matches[userID] = matches
	return nil
}

func (c *fakeCache) InvalidateMatches(_ context.Context, userID string) error {
	delete(c.matches, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *fakeCache) GetSearch(context.Context, string, int, int) ([]domain.Job, bool, error) {
	return nil, false, nil
}

func (c *fakeCache) SetSearch(context.Context, string, int, int, []domain.Job) error { return nil }

// inlineRunner runs submitted work synchronously, or rejects it when err is set
type inlineRunner struct {
	mu        sync.Mutex
	err       error
	submitted []string
}

func (r *inlineRunner) Submit(name string, fn func(ctx context.Context) error) (string, error) {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return "", r.err
	}
	r.submitted = append(r.submitted, name)
	r.mu.Unlock()
	_ = fn(context.Background())
	return "task-1", nil
}

type fakeAnalyzer struct {
	mu   sync.Mutex
	jobs []pipeline.ResumeJob
}

func (f *fakeAnalyzer) Run(_ context.Context, job pipeline.ResumeJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeTailorer struct{ jobs []pipeline.TailorJob }

func (f *fakeTailorer) Run(_ context.Context, job pipeline.TailorJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEvaluator struct {
	err   error
	input types.EvaluateInterviewInput
}

func (f *fakeEvaluator) EvaluateInterview(_ context.Context, in types.EvaluateInterviewInput) (types.InterviewFeedback, *ai.TokenUsage, error) {
	f.input = in
	if f.err != nil {
		return types.InterviewFeedback{}, nil, f.err
	}
	return types.InterviewFeedback{OverallScore: 81, Summary: "clear answers"}, &ai.TokenUsage{TotalTokens: 42}, nil
}

type creditRecorder struct {
	mu       sync.Mutex
	consumed map[string]int
}

func (r *creditRecorder) RecordCreditsConsumed(_ context.Context, op string, amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed == nil {
		r.consumed = map[string]int{}
	}
	r.consumed[op] += amount
}
