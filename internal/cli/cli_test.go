package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"niena/internal/common"
	"niena/internal/config"
	"niena/internal/errors"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(cfg *config.Config) context.Context {
	ctx := context.WithValue(context.Background(), configKey, cfg)
	return context.WithValue(ctx, loggerKey, errors.NewLoggerWithWriter(io.Discard, slog.LevelError))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "niena version "+Version)
}

func TestFormatPreRun(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text"}}}
	cmd := &cobra.Command{}
	cmd.SetContext(testContext(cfg))

	var cc common.CommandConfig
	require.NoError(t, formatPreRun(&cc)(cmd, nil))
	assert.Equal(t, "text", cc.OutputFormat)

	cc.OutputFormat = "xml"
	assert.Error(t, formatPreRun(&cc)(cmd, nil))
}

func TestCommandEnvWithoutExecute(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, _, err := commandEnv(cmd)
	assert.Error(t, err)
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Server.Host = "0.0.0.0"

	require.NoError(t, serveCmd.Flags().Set("port", "9090"))
	require.NoError(t, serveCmd.Flags().Set("with-scheduler", "true"))
	t.Cleanup(func() {
		_ = serveCmd.Flags().Set("port", "")
		_ = serveCmd.Flags().Set("with-scheduler", "false")
		serveCmd.Flags().Lookup("port").Changed = false
		serveCmd.Flags().Lookup("with-scheduler").Changed = false
	})

	applyServeFlags(serveCmd, cfg)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "ingest", "migrate", "analyze", "tailor", "evaluate", "version"} {
		assert.True(t, names[want], want)
	}

	var migrate []string
	for _, c := range migrateCmd.Commands() {
		migrate = append(migrate, c.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down", "status"}, migrate)
}
