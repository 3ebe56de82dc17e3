package formatters

import (
	"encoding/json"
	"testing"

	"niena/internal/pipeline"
	"niena/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *types.ResumeReport {
	return &types.ResumeReport{
		Parsed:   types.ParsedResume{Name: "Ada Lovelace", Headline: "Backend Engineer", Skills: []string{"Go", "PostgreSQL"}, YearsOfExperience: 6},
		Analysis: types.ResumeAnalysis{Summary: "Solid backend profile.", Seniority: "senior", Strengths: []string{"Distributed systems"}},
		Score:    types.ResumeScore{Overall: 82, ATS: 78, Impact: 85, Clarity: 80, Completeness: 90},
		Autofix: types.AutofixResult{
			ImprovedResume: "Ada Lovelace\nBackend Engineer",
			Changes:        []types.AutofixChange{{Section: "summary", Before: "Did stuff", After: "Led migration to Go", Reason: "quantify impact"}},
		},
	}
}

func TestFormatResumeReport(t *testing.T) {
	r := NewFormatterRegistry()

	text, err := r.Format(sampleReport(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Name: Ada Lovelace")
	assert.Contains(t, text, "Overall 82/100")
	assert.Contains(t, text, "Led migration to Go")
	assert.NotContains(t, text, "Weaknesses:")

	md, err := r.Format(*sampleReport(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Ada Lovelace")
	assert.Contains(t, md, "| 82 | 78 | 85 | 80 | 90 |")
}

func TestFormatTailorReport(t *testing.T) {
	r := NewFormatterRegistry()
	report := &pipeline.TailorReport{
		Output: types.TailorResumeOutput{
			TailoredResume:  "Tailored text",
			MatchedKeywords: []string{"Go"},
			MissingKeywords: []string{"Kubernetes"},
			ATSAnalysis:     types.ATSAnalysis{Score: 74, Strengths: "Go depth", Weaknesses: "No k8s"},
		},
		Score: types.ResumeScore{Overall: 77},
	}

	text, err := r.Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 74/100")
	assert.Contains(t, text, "- Kubernetes")
	assert.Contains(t, text, "Overall 77/100")

	md, err := r.Format(report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Tailored Resume")
}

func TestJSONFallbackForAnyType(t *testing.T) {
	r := NewFormatterRegistry()

	out, err := r.Format(map[string]int{"stored": 3}, "json")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 3, decoded["stored"])

	_, err = r.Format(map[string]int{"stored": 3}, "text")
	assert.Error(t, err)
}

func TestFormatInterviewFeedback(t *testing.T) {
	r := NewFormatterRegistry()
	fb := types.InterviewFeedback{
		OverallScore:   71,
		Summary:        "Clear answers, thin on metrics.",
		Strengths:      []string{"Structured answers"},
		Questions:      []types.QuestionFeedback{{Question: "Tell me about a failure", AnswerSummary: "Outage story", Score: 7, Feedback: "Add the fix"}},
		Recommendation: "yes",
	}

	text, err := r.Format(fb, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 71/100")
	assert.Contains(t, text, "1. Tell me about a failure (7/10)")
	assert.NotContains(t, text, "Improvements:")

	md, err := r.Format(&fb, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| 1 | Tell me about a failure | 7 | Add the fix |")
}

func TestGetSupportedFormats(t *testing.T) {
	assert.ElementsMatch(t, []string{"json", "text", "markdown"}, NewFormatterRegistry().GetSupportedFormats())
}
