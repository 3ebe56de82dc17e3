package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/jobsearch"
	"niena/internal/types"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

var usage = &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}

// fakeAI returns canned stage outputs; failStage makes that stage return an AI error
type fakeAI struct {
	mu        sync.Mutex
	failStage string
	calls     []string
	extractFn func(types.ExtractJobInput) (types.ExtractedJob, error)
}

func (f *fakeAI) record(stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, stage)
	if stage == f.failStage {
		return errors.NewAIError(errors.ErrCodeAIServiceFailed, stage+" failed", nil)
	}
	return nil
}

func (f *fakeAI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAI) ParseResume(_ context.Context, in types.ParseResumeInput) (types.ParsedResume, *ai.TokenUsage, error) {
	if err := f.record("parse"); err != nil {
		return types.ParsedResume{}, nil, err
	}
	return types.ParsedResume{Name: "Ada", Headline: "Backend Engineer", Skills: []string{"Go"}}, usage, nil
}

func (f *fakeAI) AnalyzeResume(_ context.Context, in types.AnalyzeResumeInput) (types.ResumeAnalysis, *ai.TokenUsage, error) {
	if err := f.record("analyze"); err != nil {
		return types.ResumeAnalysis{}, nil, err
	}
	return types.ResumeAnalysis{Summary: "solid", Seniority: "senior", SuggestedRoles: []string{"Platform Engineer"}}, usage, nil
}

func (f *fakeAI) ScoreResume(_ context.Context, in types.ScoreResumeInput) (types.ResumeScore, *ai.TokenUsage, error) {
	if err := f.record("score"); err != nil {
		return types.ResumeScore{}, nil, err
	}
	overall := 70
	if in.JobDescription != "" {
		overall = 85
	}
	return types.ResumeScore{Overall: overall}, usage, nil
}

func (f *fakeAI) AutofixResume(_ context.Context, in types.AutofixResumeInput) (types.AutofixResult, *ai.TokenUsage, error) {
	if err := f.record("autofix"); err != nil {
		return types.AutofixResult{}, nil, err
	}
	return types.AutofixResult{ImprovedResume: "improved " + in.ResumeText}, usage, nil
}

func (f *fakeAI) TailorResume(_ context.Context, in types.TailorResumeInput) (types.TailorResumeOutput, *ai.TokenUsage, error) {
	if err := f.record("tailor"); err != nil {
		return types.TailorResumeOutput{}, nil, err
	}
	return types.TailorResumeOutput{TailoredResume: "tailored " + in.BaseResume, ATSAnalysis: types.ATSAnalysis{Score: 80}}, usage, nil
}

func (f *fakeAI) ExtractJob(_ context.Context, in types.ExtractJobInput) (types.ExtractedJob, *ai.TokenUsage, error) {
	if err := f.record("extract"); err != nil {
		return types.ExtractedJob{}, nil, err
	}
	if f.extractFn != nil {
		out, err := f.extractFn(in)
		return out, usage, err
	}
	return types.ExtractedJob{Summary: in.Title, Skills: []string{"Go", " go ", "SQL"}, Seniority: "mid"}, usage, nil
}

func (f *fakeAI) EvaluateInterview(_ context.Context, in types.EvaluateInterviewInput) (types.InterviewFeedback, *ai.TokenUsage, error) {
	if err := f.record("interview"); err != nil {
		return types.InterviewFeedback{}, nil, err
	}
	return types.InterviewFeedback{OverallScore: 75}, usage, nil
}

func (f *fakeAI) GetModelInfo(context.Context) *ai.ModelInfo { return &ai.ModelInfo{Name: "fake"} }
func (f *fakeAI) Close() error                               { return nil }

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return 3 }

type memResumes struct {
	mu         sync.Mutex
	resumes    map[string]*domain.Resume
	embeddings map[string][]float32
	updates    []domain.ResumeStatus
	deleted    []string
}

func newMemResumes(rs ...*domain.Resume) *memResumes {
	m := &memResumes{resumes: map[string]*domain.Resume{}, embeddings: map[string][]float32{}}
	for _, r := range rs {
		m.resumes[r.ID] = r
	}
	return m
}

func (m *memResumes) GetByID(_ context.Context, id string) (*domain.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	cp := *rs
	return &cp, nil
}

func (m *memResumes) Update(_ context.Context, rs *domain.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resumes[rs.ID]; !ok {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	cp := *rs
	m.resumes[rs.ID] = &cp
	m.updates = append(m.updates, rs.Status)
	return nil
}

func (m *memResumes) SetStatus(_ context.Context, id string, status domain.ResumeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.resumes[id]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	rs.Status = status
	m.updates = append(m.updates, status)
	return nil
}

func (m *memResumes) status(id string) domain.ResumeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rs, ok := m.resumes[id]; ok {
		return rs.Status
	}
	return ""
}

// ctxResumes fails reads on a cancelled context the way a pooled database connection does
type ctxResumes struct{ *memResumes }

func (c ctxResumes) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeDatabase, "load resume failed", err)
	}
	return c.memResumes.GetByID(ctx, id)
}

func (m *memResumes) SetEmbedding(_ context.Context, id string, v []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[id] = v
	return nil
}

func (m *memResumes) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resumes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type memTailored struct {
	mu    sync.Mutex
	items map[string]*domain.TailoredResume
}

func (m *memTailored) GetByID(_ context.Context, id string) (*domain.TailoredResume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeTailoredNotFound, "tailored resume not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTailored) Update(_ context.Context, t *domain.TailoredResume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *memTailored) SetStatus(_ context.Context, id string, status domain.ResumeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeTailoredNotFound, "tailored resume not found")
	}
	t.Status = status
	return nil
}

// flakyTailored fails every read with a storage error
type flakyTailored struct{ *memTailored }

func (f flakyTailored) GetByID(context.Context, string) (*domain.TailoredResume, error) {
	return nil, errors.NewStorageError(errors.ErrCodeDatabase, "load tailored resume failed", context.DeadlineExceeded)
}

type refunds struct {
	mu     sync.Mutex
	byUser map[string]int
}

func (r *refunds) RefundCredits(_ context.Context, id string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser == nil {
		r.byUser = map[string]int{}
	}
	r.byUser[id] += amount
	return nil
}

type memJobs struct {
	mu       sync.Mutex
	existing map[string]bool
	stored   map[string]*domain.Job
}

func (m *memJobs) ExistingExternalIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if m.existing[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memJobs) Upsert(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		m.stored = map[string]*domain.Job{}
	}
	m.stored[j.ExternalID] = j
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
	bumps       int
}

func (c *fakeCache) InvalidateMatches(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *fakeCache) BumpJobsVersion(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps++
	return int64(c.bumps), nil
}

// fakeSearch serves pages keyed by query; errQueries fail every page
type fakeSearch struct {
	pages      map[string][][]jobsearch.RawJob
	errQueries map[string]bool
}

func (s *fakeSearch) Search(_ context.Context, query string, page int) ([]jobsearch.RawJob, error) {
	if s.errQueries[query] {
		return nil, errors.NewNetworkError(errors.ErrCodeJobSearchFailed, "boom", nil)
	}
	p := s.pages[query]
	if page > len(p) {
		return nil, nil
	}
	return p[page-1], nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string][]bool
	stored   int
}

func (r *countingRecorder) RecordWorkflow(_ context.Context, workflow string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string][]bool{}
	}
	r.outcomes[workflow] = append(r.outcomes[workflow], success)
}

func (r *countingRecorder) RecordJobsIngested(_ context.Context, stored, skipped, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored += stored
}

// staleRows hands out its stale runs in batches
type staleRows struct {
	mu      sync.Mutex
	runs    []domain.StaleRun
	befores []time.Time
	err     error
}

func (s *staleRows) FailStale(_ context.Context, before time.Time, limit int) ([]domain.StaleRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.befores = append(s.befores, before)
	if s.err != nil {
		return nil, s.err
	}
	n := min(limit, len(s.runs))
	batch := s.runs[:n]
	s.runs = s.runs[n:]
	return batch, nil
}
