package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run scheduled jobs without the HTTP API",
	Long: `Run job ingestion and plan expiry on their cron schedules until
interrupted. Several workers may run at once; with Redis enabled each
scheduled run happens on one of them only.`,
	RunE: runWorker,
}

var runJobsOnStart bool

func init() {
	workerCmd.Flags().BoolVar(&runJobsOnStart, "run-now", false, "Run every job once at startup before waiting for the schedule")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	sched, err := a.scheduler()
	if err != nil {
		return err
	}

	if runJobsOnStart {
		for _, job := range sched.Jobs() {
			if _, err := sched.RunNow(ctx, job); err != nil {
				logger.LogError(err, "Startup run failed", "job", job.Name())
			}
		}
	}

	sched.Start()
	logger.Info("Worker started",
		"ingest_spec", cfg.Scheduler.IngestSpec,
		"plan_expiry_spec", cfg.Scheduler.PlanExpirySpec)

	<-ctx.Done()
	logger.Info("Worker stopping")
	return a.stopScheduler(ctx, sched)
}
