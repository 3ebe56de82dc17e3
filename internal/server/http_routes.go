package server

import (
	"context"
	"net/http"
	"strings"

	"niena/internal/observability"
)

type userIDKey struct{}

// Routes builds the API mux. Every API route passes rate limiting, then
// authentication, then the request size limit; per-user routes also require
// the caller identity header set by the gateway.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, observability.RequestAttributes(h))
	}
	api := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimitMiddleware(s.authMiddleware(s.requestSizeLimitMiddleware(h)))
	}
	user := func(h http.HandlerFunc) http.HandlerFunc {
		return api(requireUser(h))
	}

	handle("GET /health", s.healthHandler)
	handle("GET /stats", s.statsHandler)

	handle("POST /resumes", user(s.createResumeHandler))
	handle("GET /resumes", user(s.listResumesHandler))
	handle("GET /resumes/{id}", user(s.getResumeHandler))
	handle("DELETE /resumes/{id}", user(s.deleteResumeHandler))
	handle("POST /resumes/{id}/primary", user(s.setPrimaryHandler))
	handle("POST /resumes/{id}/reanalyze", user(s.reanalyzeHandler))
	handle("POST /resumes/{id}/tailor", user(s.createTailoredHandler))
	handle("GET /resumes/{id}/tailored", user(s.listTailoredHandler))
	handle("GET /tailored/{id}", user(s.getTailoredHandler))

	handle("GET /jobs/search", api(s.searchJobsHandler))
	handle("GET /jobs/matches", user(s.matchJobsHandler))
	handle("GET /jobs/{id}", api(s.getJobHandler))

	handle("POST /interviews", user(s.createInterviewHandler))
	handle("GET /interviews", user(s.listInterviewsHandler))
	handle("GET /interviews/{id}", user(s.getInterviewHandler))
	handle("POST /interviews/{id}/start", user(s.startInterviewHandler))
	handle("POST /interviews/{id}/complete", user(s.completeInterviewHandler))
	handle("POST /interviews/{id}/cancel", user(s.cancelInterviewHandler))

	handle("GET /me", user(s.meHandler))
	handle("POST /transactions", user(s.createTransactionHandler))
	handle("POST /transactions/{ref}/complete", api(s.completeTransactionHandler))
	handle("POST /transactions/{ref}/fail", api(s.failTransactionHandler))

	handle("GET /announcements", api(s.listAnnouncementsHandler))
	handle("POST /announcements", api(s.publishAnnouncementHandler))

	handle("POST /recruiter-applications", user(s.submitApplicationHandler))
	handle("GET /recruiter-applications", api(s.listApplicationsHandler))
	handle("POST /recruiter-applications/{id}/review", api(s.reviewApplicationHandler))

	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requireUser rejects requests without a caller identity
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(observability.UserIDHeader))
		if uid == "" {
			writeErrorResponse(w, "Missing user", observability.UserIDHeader+" header is required", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, uid)))
	}
}

// userID returns the caller set by requireUser
func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey{}).(string)
	return uid
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
