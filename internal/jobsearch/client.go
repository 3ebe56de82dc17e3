package jobsearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/go-resty/resty/v2"
)

// SourceJSearch labels jobs fetched from the JSearch API
const SourceJSearch = "jsearch"

// RawJob is a posting as returned by the listings API, before extraction
type RawJob struct {
	ExternalID     string
	Source         string
	Title          string
	Company        string
	Location       string
	Remote         bool
	EmploymentType string
	Description    string
	ApplyLink      string
	SalaryMin      float64
	SalaryMax      float64
	SalaryCurrency string
	PostedAt       *time.Time
}

// Searcher fetches one page of postings for a query
type Searcher interface {
	Search(ctx context.Context, query string, page int) ([]RawJob, error)
}

// Client is a resty client for a JSearch-style listings API
type Client struct {
	http       *resty.Client
	datePosted string
}

type searchResponse struct {
	Status string       `json:"status"`
	Data   []jsearchJob `json:"data"`
}

type jsearchJob struct {
	JobID          string   `json:"job_id"`
	Title          string   `json:"job_title"`
	EmployerName   string   `json:"employer_name"`
	City           string   `json:"job_city"`
	State          string   `json:"job_state"`
	Country        string   `json:"job_country"`
	IsRemote       bool     `json:"job_is_remote"`
	EmploymentType string   `json:"job_employment_type"`
	Description    string   `json:"job_description"`
	ApplyLink      string   `json:"job_apply_link"`
	MinSalary      *float64 `json:"job_min_salary"`
	MaxSalary      *float64 `json:"job_max_salary"`
	SalaryCurrency string   `json:"job_salary_currency"`
	PostedAtUTC    string   `json:"job_posted_at_datetime_utc"`
}

// NewClient builds a listings client with the configured timeout, retries and RapidAPI headers
func NewClient(cfg config.JobSearchConfig) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == 429 || code >= 500
		}).
		SetHeader("Accept", "application/json").
		SetHeader("X-RapidAPI-Key", cfg.APIKey).
		SetHeader("X-RapidAPI-Host", cfg.APIHost)

	return &Client{http: http, datePosted: cfg.DatePosted}
}

// Search fetches a single page of results for query. Pages start at 1.
func (c *Client) Search(ctx context.Context, query string, page int) ([]RawJob, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "search query cannot be empty", nil)
	}
	if page < 1 {
		page = 1
	}

	params := map[string]string{
		"query":     query,
		"page":      strconv.Itoa(page),
		"num_pages": "1",
	}
	if c.datePosted != "" {
		params["date_posted"] = c.datePosted
	}

	var body searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("/search")
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeJobSearchFailed, "job search request failed", err).
			WithContext("query", query).
			WithContext("page", page)
	}
	if resp.IsError() {
		return nil, errors.NewNetworkError(errors.ErrCodeJobSearchFailed,
			fmt.Sprintf("job search returned status %d", resp.StatusCode()), nil).
			WithContext("query", query).
			WithContext("page", page)
	}

	jobs := make([]RawJob, 0, len(body.Data))
	for _, j := range body.Data {
		if j.JobID == "" || j.Title == "" {
			continue
		}
		jobs = append(jobs, j.toRaw())
	}
	return jobs, nil
}

func (j jsearchJob) toRaw() RawJob {
	raw := RawJob{
		ExternalID:     j.JobID,
		Source:         SourceJSearch,
		Title:          j.Title,
		Company:        j.EmployerName,
		Location:       joinLocation(j.City, j.State, j.Country),
		Remote:         j.IsRemote,
		EmploymentType: j.EmploymentType,
		Description:    j.Description,
		ApplyLink:      j.ApplyLink,
		SalaryCurrency: j.SalaryCurrency,
	}
	if j.MinSalary != nil {
		raw.SalaryMin = *j.MinSalary
	}
	if j.MaxSalary != nil {
		raw.SalaryMax = *j.MaxSalary
	}
	if t, err := time.Parse(time.RFC3339, j.PostedAtUTC); err == nil {
		raw.PostedAt = &t
	}
	return raw
}

func joinLocation(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
