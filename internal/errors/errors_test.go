package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewNotFoundError(ErrCodeResumeNotFound, "resume not found"),
			want: "RESUME_NOT_FOUND: resume not found",
		},
		{
			name: "with cause",
			err:  NewStorageError(ErrCodeDatabase, "insert failed", fmt.Errorf("conn reset")),
			want: "DATABASE_ERROR: insert failed (caused by: conn reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTypeOfWalksWrappedChain(t *testing.T) {
	base := NewInsufficientCreditsError(1, 0)
	wrapped := fmt.Errorf("create resume: %w", base)

	assert.Equal(t, ErrorTypeInsufficientCredits, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeInsufficientCredits))
	assert.False(t, IsType(wrapped, ErrorTypeConflict))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("plain")))
}

func TestInsufficientCreditsContext(t *testing.T) {
	err := NewInsufficientCreditsError(3, 1)

	assert.Equal(t, ErrCodeInsufficientCredits, err.Code)
	assert.Equal(t, 3, err.Context["required_credits"])
	assert.Equal(t, 1, err.Context["available_credits"])
}

func TestLoggerLogErrorIncludesAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewAIError(ErrCodeAIServiceFailed, "parse stage failed", stderrors.New("timeout")).
		WithContext("stage", "parse")
	logger.LogError(err, "pipeline failed", "resume_id", "r-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "pipeline failed", record["msg"])
	assert.Equal(t, "ai", record["error_type"])
	assert.Equal(t, ErrCodeAIServiceFailed, record["error_code"])
	assert.Equal(t, "timeout", record["cause"])
	assert.Equal(t, "parse", record["stage"])
	assert.Equal(t, "r-1", record["resume_id"])
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelWarn)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel("debug"))
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	assert.Error(t, logger.SetLevel("verbose"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("trace")
	assert.Error(t, err)

	logger, err := New("info")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
