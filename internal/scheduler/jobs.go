package scheduler

import (
	"context"

	"niena/internal/errors"
	"niena/internal/pipeline"
)

// Job names, also used as lock names
const (
	JobIngest     = "job-ingestion"
	JobPlanExpiry = "plan-expiry"
	JobStaleSweep = "stale-sweep"
)

// Ingester pulls fresh postings into the catalogue
type Ingester interface {
	Run(ctx context.Context, queries []string, pages int) (pipeline.IngestReport, error)
}

// PlanExpirer downgrades expired paid plans
type PlanExpirer interface {
	ExpirePlans(ctx context.Context, batchSize int) (int, error)
}

// StaleSweeper fails and refunds workflow runs that stopped making progress
type StaleSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// IngestJob runs the ingestion pipeline over the configured queries
type IngestJob struct {
	ingester Ingester
	queries  []string
	pages    int
	logger   *errors.Logger
}

// NewIngestJob creates the ingestion job
func NewIngestJob(ingester Ingester, queries []string, pages int, logger *errors.Logger) *IngestJob {
	return &IngestJob{ingester: ingester, queries: queries, pages: pages, logger: logger}
}

func (j *IngestJob) Name() string { return JobIngest }

func (j *IngestJob) Run(ctx context.Context) error {
	report, err := j.ingester.Run(ctx, j.queries, j.pages)
	if err != nil {
		return err
	}
	j.logger.Info("Ingestion report",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"stored", report.Stored,
		"failed", report.Failed,
		"fetch_errors", report.FetchErrors)
	return nil
}

// PlanExpiryJob downgrades paid plans past their expiry
type PlanExpiryJob struct {
	expirer   PlanExpirer
	batchSize int
	logger    *errors.Logger
}

// NewPlanExpiryJob creates the plan expiry job
func NewPlanExpiryJob(expirer PlanExpirer, batchSize int, logger *errors.Logger) *PlanExpiryJob {
	return &PlanExpiryJob{expirer: expirer, batchSize: batchSize, logger: logger}
}

func (j *PlanExpiryJob) Name() string { return JobPlanExpiry }

func (j *PlanExpiryJob) Run(ctx context.Context) error {
	n, err := j.expirer.ExpirePlans(ctx, j.batchSize)
	if n > 0 {
		j.logger.Info("Expired plans", "count", n)
	}
	return err
}

// StaleSweepJob fails resumes and tailored resumes whose workflow was lost
type StaleSweepJob struct {
	sweeper StaleSweeper
	logger  *errors.Logger
}

// NewStaleSweepJob creates the stale run sweep job
func NewStaleSweepJob(sweeper StaleSweeper, logger *errors.Logger) *StaleSweepJob {
	return &StaleSweepJob{sweeper: sweeper, logger: logger}
}

func (j *StaleSweepJob) Name() string { return JobStaleSweep }

func (j *StaleSweepJob) Run(ctx context.Context) error {
	n, err := j.sweeper.SweepStale(ctx)
	if n > 0 {
		j.logger.Info("Failed stale workflow runs", "count", n)
	}
	return err
}
