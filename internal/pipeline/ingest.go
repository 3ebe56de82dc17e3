package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/jobsearch"
	"niena/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxDescriptionChars bounds the posting text sent to the extract stage
const maxDescriptionChars = 12000

// IngestReport summarises one ingestion run
type IngestReport struct {
	Fetched     int           `json:"fetched"`
	Skipped     int           `json:"skipped"`
	Stored      int           `json:"stored"`
	Failed      int           `json:"failed"`
	FetchErrors int           `json:"fetchErrors"`
	Duration    time.Duration `json:"duration"`
}

// Ingestor pulls postings from the listings API, extracts structured fields,
// embeds them and stores them for similarity search
type Ingestor struct {
	search      jobsearch.Searcher
	ai          ai.AIProvider
	embedder    ai.Embedder
	jobs        JobStore
	cache       MatchCache
	recorder    Recorder
	concurrency int
	logger      *errors.Logger
}

// NewIngestor creates an ingestor processing at most concurrency postings at once
func NewIngestor(search jobsearch.Searcher, provider ai.AIProvider, embedder ai.Embedder, jobs JobStore, concurrency int, logger *errors.Logger) *Ingestor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Ingestor{
		search:      search,
		ai:          provider,
		embedder:    embedder,
		jobs:        jobs,
		recorder:    nopRecorder{},
		concurrency: concurrency,
		logger:      logger,
	}
}

// SetCache sets the cache whose job version is bumped after new jobs are stored
func (i *Ingestor) SetCache(c MatchCache) { i.cache = c }

// SetRecorder sets the business metrics recorder
func (i *Ingestor) SetRecorder(r Recorder) {
	if r != nil {
		i.recorder = r
	}
}

// Run fetches pages pages for every query and stores the postings not seen before.
// Failures of single pages or postings are logged and counted. Run fails only when
// ctx ends or nothing at all could be fetched.
func (i *Ingestor) Run(ctx context.Context, queries []string, pages int) (IngestReport, error) {
	start := time.Now()
	logger := i.logger.With("workflow", WorkflowIngest)
	var report IngestReport

	raw, fetchErrors := i.fetch(ctx, logger, queries, pages)
	report.Fetched = len(raw)
	report.FetchErrors = fetchErrors
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(raw) == 0 && fetchErrors > 0 {
		i.recorder.RecordWorkflow(ctx, WorkflowIngest, false)
		return report, errors.NewNetworkError(errors.ErrCodeJobSearchFailed, "every job search request failed", nil).
			WithContext("requests", fetchErrors)
	}

	fresh, err := i.dedupe(ctx, raw)
	if err != nil {
		i.recorder.RecordWorkflow(ctx, WorkflowIngest, false)
		return report, err
	}
	report.Skipped = len(raw) - len(fresh)

	var stored, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, r := range fresh {
		g.Go(func() error {
			if err := i.ingestOne(gctx, r); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logger.LogError(err, "Failed to ingest job", "external_id", r.ExternalID, "title", r.Title)
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	runErr := g.Wait()

	report.Stored = int(stored.Load())
	report.Failed = int(failed.Load())
	report.Duration = time.Since(start)
	i.recorder.RecordJobsIngested(ctx, report.Stored, report.Skipped, report.Failed)

	if report.Stored > 0 && i.cache != nil {
		if _, err := i.cache.BumpJobsVersion(context.WithoutCancel(ctx)); err != nil {
			logger.LogError(err, "Failed to retire cached job results")
		}
	}

	if runErr != nil {
		i.recorder.RecordWorkflow(ctx, WorkflowIngest, false)
		return report, runErr
	}
	i.recorder.RecordWorkflow(ctx, WorkflowIngest, true)
	logger.Info("Job ingestion completed",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"stored", report.Stored,
		"failed", report.Failed,
		"fetch_errors", report.FetchErrors,
		"duration", report.Duration)
	return report, nil
}

// fetch walks queries and pages sequentially; the listings API is rate limited per key
func (i *Ingestor) fetch(ctx context.Context, logger *errors.Logger, queries []string, pages int) ([]jobsearch.RawJob, int) {
	if pages <= 0 {
		pages = 1
	}
	var (
		out    []jobsearch.RawJob
		failed int
		seen   = make(map[string]bool)
	)
	for _, q := range queries {
		for page := 1; page <= pages; page++ {
			if ctx.Err() != nil {
				return out, failed
			}
			jobs, err := i.search.Search(ctx, q, page)
			if err != nil {
				failed++
				logger.LogError(err, "Job search page failed", "query", q, "page", page)
				continue
			}
			for _, j := range jobs {
				if seen[j.ExternalID] {
					continue
				}
				seen[j.ExternalID] = true
				out = append(out, j)
			}
			if len(jobs) == 0 {
				break
			}
		}
	}
	return out, failed
}

func (i *Ingestor) dedupe(ctx context.Context, raw []jobsearch.RawJob) ([]jobsearch.RawJob, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]string, len(raw))
	for n, r := range raw {
		ids[n] = r.ExternalID
	}
	existing, err := i.jobs.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	fresh := make([]jobsearch.RawJob, 0, len(raw))
	for _, r := range raw {
		if !existing[r.ExternalID] {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

func (i *Ingestor) ingestOne(ctx context.Context, r jobsearch.RawJob) error {
	extracted, _, err := i.ai.ExtractJob(ctx, types.ExtractJobInput{
		Title:       r.Title,
		Company:     r.Company,
		Description: truncate(r.Description, maxDescriptionChars),
	})
	if err != nil {
		return err
	}

	job := buildJob(r, extracted)
	if i.embedder != nil {
		vectors, err := i.embedder.Embed(ctx, []string{job.EmbeddingText()})
		if err != nil {
			return err
		}
		job.Embedding = vectors[0]
	}
	return i.jobs.Upsert(ctx, job)
}

// buildJob merges listing fields with extracted ones; the listing wins where it is explicit
func buildJob(r jobsearch.RawJob, x types.ExtractedJob) *domain.Job {
	job := &domain.Job{
		ID:             uuid.NewString(),
		ExternalID:     r.ExternalID,
		Source:         r.Source,
		Title:          r.Title,
		Company:        r.Company,
		Location:       r.Location,
		Remote:         r.Remote || x.Remote,
		EmploymentType: r.EmploymentType,
		Seniority:      x.Seniority,
		SalaryMin:      r.SalaryMin,
		SalaryMax:      r.SalaryMax,
		SalaryCurrency: r.SalaryCurrency,
		Description:    r.Description,
		Summary:        x.Summary,
		Skills:         normalizeSkills(x.Skills),
		ApplyLink:      r.ApplyLink,
		PostedAt:       r.PostedAt,
	}
	if job.EmploymentType == "" {
		job.EmploymentType = x.EmploymentType
	}
	if job.SalaryMin == 0 && job.SalaryMax == 0 {
		job.SalaryMin, job.SalaryMax = x.SalaryMin, x.SalaryMax
		if job.SalaryCurrency == "" {
			job.SalaryCurrency = x.SalaryCurrency
		}
	}
	return job
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
