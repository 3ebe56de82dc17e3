package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"niena/internal/errors"
)

// healthHandler reports the state of the database, the cache and the AI models.
// A failing database makes the service unhealthy; anything else degrades it.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.HealthTimout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "niena",
		"version": s.Version,
		"time":    time.Now().UTC(),
	}
	status := http.StatusOK

	if s.services.Database != nil {
		if err := s.services.Database.Ping(ctx); err != nil {
			response["database"] = map[string]any{"healthy": false, "error": err.Error()}
			response["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response["database"] = map[string]any{"healthy": true}
		}
	}

	degraded := false
	if s.services.Cache != nil {
		if err := s.services.Cache.Ping(ctx); err != nil {
			response["cache"] = map[string]any{"healthy": false, "error": err.Error()}
			degraded = true
		} else {
			response["cache"] = map[string]any{"healthy": true}
		}
	}

	if s.services.Models != nil {
		models := s.services.Models.ModelInfoByStage(ctx)
		response["ai_models"] = models
		response["circuit_breakers"] = s.services.Models.GetCircuitBreakerStats()
		for _, info := range models {
			if info != nil && !info.Available {
				degraded = true
				break
			}
		}
	}

	if degraded && status == http.StatusOK {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "niena",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"rate_limit_config": map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
			"by_user":          s.RateLimit.ByUser,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.services.Jobs != nil {
		if n, err := s.services.Jobs.CountJobs(r.Context()); err == nil {
			response["jobs"] = map[string]any{"total": n}
		} else {
			s.logger.LogError(err, "Failed to count jobs for stats")
		}
	}

	if s.certs != nil {
		response["certificates"] = s.certs.Stats()
	}

	for name, stats := range s.services.Stats {
		response[name] = stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// queryInt reads a non-negative integer query parameter, 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// statusFor maps an application error type to an HTTP status
func statusFor(typ errors.ErrorType) int {
	switch typ {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeInsufficientCredits:
		return http.StatusPaymentRequired
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	case errors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError translates err into an error response. Internal failures are
// logged and their details withheld from the client.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(errors.TypeOf(err))

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		s.logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "method", r.Method)
		writeErrorResponse(w, "Internal error", "unexpected error", http.StatusInternalServerError)
		return
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    appErr.Code,
		Message: appErr.Message,
	}
	if status >= http.StatusInternalServerError {
		s.logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "method", r.Method)
		if status == http.StatusInternalServerError {
			resp.Message = "unexpected error"
		}
	} else if appErr.Type == errors.ErrorTypeInsufficientCredits {
		resp.Details = appErr.Context
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, resp)
}

// badRequest writes a 400 for malformed input
func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Code:    errors.ErrCodeInvalidRequest,
		Message: err.Error(),
	})
}
