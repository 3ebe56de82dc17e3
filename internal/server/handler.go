package server

import (
	"net/http"
	"strings"

	"niena/internal/domain"
	"niena/internal/service"
)

// listResponse wraps collection responses
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

// Resumes

func (s *Server) createResumeHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateResumeInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	resume, err := s.services.Resumes.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resume)
}

func (s *Server) listResumesHandler(w http.ResponseWriter, r *http.Request) {
	resumes, err := s.services.Resumes.List(r.Context(), userID(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(resumes))
}

func (s *Server) getResumeHandler(w http.ResponseWriter, r *http.Request) {
	resume, err := s.services.Resumes.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Resumes.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setPrimaryHandler(w http.ResponseWriter, r *http.Request) {
	resume, err := s.services.Resumes.SetPrimary(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (s *Server) reanalyzeHandler(w http.ResponseWriter, r *http.Request) {
	resume, err := s.services.Resumes.Reanalyze(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resume)
}

// Tailored resumes

func (s *Server) createTailoredHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTailoredInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	tailored, err := s.services.Tailor.Create(r.Context(), userID(r), r.PathValue("id"), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tailored)
}

func (s *Server) listTailoredHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Tailor.List(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

func (s *Server) getTailoredHandler(w http.ResponseWriter, r *http.Request) {
	tailored, err := s.services.Tailor.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tailored)
}

// Jobs

func (s *Server) searchJobsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		badRequest(w, err)
		return
	}

	jobs, err := s.services.Jobs.SearchJobs(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(jobs))
}

func (s *Server) matchJobsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err)
		return
	}

	matches, err := s.services.Jobs.MatchJobs(r.Context(), userID(r), limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(matches))
}

func (s *Server) getJobHandler(w http.ResponseWriter, r *http.Request) {
	job, err := s.services.Jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Interviews

func (s *Server) createInterviewHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateInterviewInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	iv, err := s.services.Interviews.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

func (s *Server) listInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Interviews.List(r.Context(), userID(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

func (s *Server) getInterviewHandler(w http.ResponseWriter, r *http.Request) {
	iv, err := s.services.Interviews.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) startInterviewHandler(w http.ResponseWriter, r *http.Request) {
	iv, err := s.services.Interviews.Start(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) completeInterviewHandler(w http.ResponseWriter, r *http.Request) {
	var req CompleteInterviewRequest
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	iv, err := s.services.Interviews.Complete(r.Context(), userID(r), r.PathValue("id"), req.Transcript)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) cancelInterviewHandler(w http.ResponseWriter, r *http.Request) {
	iv, err := s.services.Interviews.Cancel(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// Billing

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	account, err := s.services.Billing.Me(r.Context(), userID(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if account.Transactions == nil {
		account.Transactions = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTransactionInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	tx, err := s.services.Billing.CreateTransaction(r.Context(), userID(r), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) completeTransactionHandler(w http.ResponseWriter, r *http.Request) {
	tx, user, err := s.services.Billing.CompleteTransaction(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx, "user": user})
}

func (s *Server) failTransactionHandler(w http.ResponseWriter, r *http.Request) {
	tx, err := s.services.Billing.FailTransaction(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Announcements and recruiter applications

func (s *Server) listAnnouncementsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.services.Community.Announcements(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

func (s *Server) publishAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	var req service.PublishAnnouncementInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	a, err := s.services.Community.Publish(r.Context(), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) submitApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req service.RecruiterApplicationInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	app, err := s.services.Community.SubmitApplication(r.Context(), userID(r), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) listApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	status := domain.ApplicationStatus(strings.ToUpper(r.URL.Query().Get("status")))
	items, err := s.services.Community.Applications(r.Context(), status)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

func (s *Server) reviewApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewInput
	if err := parseJSONRequest(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	app, err := s.services.Community.ReviewApplication(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
