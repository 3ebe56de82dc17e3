package cli

import (
	"context"
	"fmt"

	"niena/internal/config"
	"niena/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for resumes, tailoring, job matching, interviews,
billing and announcements. Background workflows run in-process.

Use --with-scheduler to also run job ingestion and plan expiry in this
process instead of a separate "niena worker".

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().Bool("with-scheduler", false, "Run scheduled jobs in this process (overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config.
// Flags win over the config file and environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("port", &cfg.Server.Port)
	str("host", &cfg.Server.Host)
	str("tls-mode", &cfg.Server.TLS.Mode)
	str("cert-file", &cfg.Server.TLS.CertFile)
	str("key-file", &cfg.Server.TLS.KeyFile)
	str("ca-file", &cfg.Server.TLS.CAFile)
	if flags.Changed("with-scheduler") {
		cfg.Scheduler.Enabled, _ = flags.GetBool("with-scheduler")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	a.startRunner()
	srv := server.NewServer(cfg, Version, a.services(), logger)
	srv.SetRateLimitRecorder(a.metrics)

	if cfg.Scheduler.Enabled {
		sched, err := a.scheduler()
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := a.stopScheduler(ctx, sched); err != nil {
				logger.LogError(err, "Scheduler did not stop cleanly")
			}
		}()
	}

	return srv.Start(ctx, a.om)
}
