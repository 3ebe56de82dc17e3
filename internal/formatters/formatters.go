package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"niena/internal/pipeline"
	"niena/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ResumeReport", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "ResumeReport", &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", "TailorReport", &TailorTextFormatter{})
	registry.RegisterFormatter("markdown", "TailorReport", &TailorMarkdownFormatter{})
	registry.RegisterFormatter("text", "InterviewFeedback", &FeedbackTextFormatter{})
	registry.RegisterFormatter("markdown", "InterviewFeedback", &FeedbackMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.ResumeReport, types.ResumeReport:
		return "ResumeReport"
	case *pipeline.TailorReport, pipeline.TailorReport:
		return "TailorReport"
	case *types.InterviewFeedback, types.InterviewFeedback:
		return "InterviewFeedback"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func asReport(data any) (types.ResumeReport, error) {
	switch r := data.(type) {
	case types.ResumeReport:
		return r, nil
	case *types.ResumeReport:
		if r != nil {
			return *r, nil
		}
	}
	return types.ResumeReport{}, fmt.Errorf("expected ResumeReport, got %T", data)
}

func asTailor(data any) (pipeline.TailorReport, error) {
	switch r := data.(type) {
	case pipeline.TailorReport:
		return r, nil
	case *pipeline.TailorReport:
		if r != nil {
			return *r, nil
		}
	}
	return pipeline.TailorReport{}, fmt.Errorf("expected TailorReport, got %T", data)
}

func asFeedback(data any) (types.InterviewFeedback, error) {
	switch f := data.(type) {
	case types.InterviewFeedback:
		return f, nil
	case *types.InterviewFeedback:
		if f != nil {
			return *f, nil
		}
	}
	return types.InterviewFeedback{}, fmt.Errorf("expected InterviewFeedback, got %T", data)
}

// section writes a titled bullet list, skipping empty lists
func section(b *strings.Builder, title, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "%s %s\n", bullet, item)
	}
	b.WriteString("\n")
}

func scoreLine(s types.ResumeScore) string {
	return fmt.Sprintf("Overall %d/100 (ATS %d, impact %d, clarity %d, completeness %d)",
		s.Overall, s.ATS, s.Impact, s.Clarity, s.Completeness)
}

// ReportTextFormatter renders a resume analysis as plain text
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	r, err := asReport(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("=== RESUME ===\n")
	fmt.Fprintf(&out, "Name: %s\n", r.Parsed.Name)
	if r.Parsed.Headline != "" {
		fmt.Fprintf(&out, "Headline: %s\n", r.Parsed.Headline)
	}
	fmt.Fprintf(&out, "Experience: %d years\n", r.Parsed.YearsOfExperience)
	if len(r.Parsed.Skills) > 0 {
		fmt.Fprintf(&out, "Skills: %s\n", strings.Join(r.Parsed.Skills, ", "))
	}
	out.WriteString("\n")

	out.WriteString("=== ANALYSIS ===\n")
	fmt.Fprintf(&out, "Seniority: %s\n", r.Analysis.Seniority)
	out.WriteString(r.Analysis.Summary)
	out.WriteString("\n\n")
	section(&out, "Strengths:", "-", r.Analysis.Strengths)
	section(&out, "Weaknesses:", "-", r.Analysis.Weaknesses)
	section(&out, "Missing skills:", "-", r.Analysis.MissingSkills)
	section(&out, "Suggested roles:", "-", r.Analysis.SuggestedRoles)

	out.WriteString("=== SCORE ===\n")
	out.WriteString(scoreLine(r.Score))
	out.WriteString("\n\n")
	section(&out, "Feedback:", "-", r.Score.Feedback)

	out.WriteString("=== AUTOFIX ===\n")
	for _, c := range r.Autofix.Changes {
		fmt.Fprintf(&out, "[%s] %s\n  before: %s\n  after:  %s\n", c.Section, c.Reason, c.Before, c.After)
	}
	out.WriteString("\n")
	out.WriteString(r.Autofix.ImprovedResume)
	out.WriteString("\n")

	return out.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string {
	return "ResumeReport"
}

// ReportMarkdownFormatter renders a resume analysis as markdown
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	r, err := asReport(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "# %s\n\n", r.Parsed.Name)
	if r.Parsed.Headline != "" {
		fmt.Fprintf(&out, "_%s_\n\n", r.Parsed.Headline)
	}

	out.WriteString("## Analysis\n\n")
	fmt.Fprintf(&out, "**Seniority:** %s\n\n", r.Analysis.Seniority)
	out.WriteString(r.Analysis.Summary)
	out.WriteString("\n\n")
	section(&out, "### Strengths", "-", r.Analysis.Strengths)
	section(&out, "### Weaknesses", "-", r.Analysis.Weaknesses)
	section(&out, "### Missing Skills", "-", r.Analysis.MissingSkills)
	section(&out, "### Suggested Roles", "-", r.Analysis.SuggestedRoles)

	out.WriteString("## Score\n\n")
	out.WriteString("| Overall | ATS | Impact | Clarity | Completeness |\n")
	out.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&out, "| %d | %d | %d | %d | %d |\n\n",
		r.Score.Overall, r.Score.ATS, r.Score.Impact, r.Score.Clarity, r.Score.Completeness)
	section(&out, "### Feedback", "-", r.Score.Feedback)

	out.WriteString("## Suggested Changes\n\n")
	for _, c := range r.Autofix.Changes {
		fmt.Fprintf(&out, "- **%s**: %s\n  - ~~%s~~\n  - %s\n", c.Section, c.Reason, c.Before, c.After)
	}
	out.WriteString("\n## Improved Resume\n\n")
	out.WriteString(r.Autofix.ImprovedResume)
	out.WriteString("\n")

	return out.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string {
	return "ResumeReport"
}

// TailorTextFormatter handles text formatting for tailor results
type TailorTextFormatter struct{}

func (f *TailorTextFormatter) Format(data any) (string, error) {
	r, err := asTailor(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("=== TAILORED RESUME ===\n\n")
	out.WriteString(r.Output.TailoredResume)
	out.WriteString("\n\n")

	out.WriteString("=== ATS ANALYSIS ===\n")
	fmt.Fprintf(&out, "Score: %d/100\n\n", r.Output.ATSAnalysis.Score)
	out.WriteString("Strengths:\n")
	out.WriteString(r.Output.ATSAnalysis.Strengths)
	out.WriteString("\n\n")
	out.WriteString("Weaknesses:\n")
	out.WriteString(r.Output.ATSAnalysis.Weaknesses)
	out.WriteString("\n\n")
	section(&out, "Matched keywords:", "+", r.Output.MatchedKeywords)
	section(&out, "Missing keywords:", "-", r.Output.MissingKeywords)

	out.WriteString("=== JOB FIT SCORE ===\n")
	out.WriteString(scoreLine(r.Score))
	out.WriteString("\n")

	return out.String(), nil
}

func (f *TailorTextFormatter) SupportedType() string {
	return "TailorReport"
}

// TailorMarkdownFormatter handles markdown formatting for tailor results
type TailorMarkdownFormatter struct{}

func (f *TailorMarkdownFormatter) Format(data any) (string, error) {
	r, err := asTailor(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("# Tailored Resume\n\n")
	out.WriteString(r.Output.TailoredResume)
	out.WriteString("\n\n")

	out.WriteString("## ATS Analysis\n\n")
	fmt.Fprintf(&out, "**Score:** %d/100\n\n", r.Output.ATSAnalysis.Score)
	out.WriteString("### Strengths\n")
	out.WriteString(r.Output.ATSAnalysis.Strengths)
	out.WriteString("\n\n")
	out.WriteString("### Weaknesses\n")
	out.WriteString(r.Output.ATSAnalysis.Weaknesses)
	out.WriteString("\n\n")
	section(&out, "### Matched Keywords", "-", r.Output.MatchedKeywords)
	section(&out, "### Missing Keywords", "-", r.Output.MissingKeywords)

	out.WriteString("## Job Fit\n\n")
	out.WriteString(scoreLine(r.Score))
	out.WriteString("\n")

	return out.String(), nil
}

func (f *TailorMarkdownFormatter) SupportedType() string {
	return "TailorReport"
}

// FeedbackTextFormatter renders interview feedback as plain text
type FeedbackTextFormatter struct{}

func (f *FeedbackTextFormatter) Format(data any) (string, error) {
	fb, err := asFeedback(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("=== INTERVIEW FEEDBACK ===\n")
	fmt.Fprintf(&out, "Score: %d/100\n", fb.OverallScore)
	fmt.Fprintf(&out, "Recommendation: %s\n\n", fb.Recommendation)
	out.WriteString(fb.Summary)
	out.WriteString("\n\n")
	section(&out, "Strengths:", "-", fb.Strengths)
	section(&out, "Improvements:", "-", fb.Improvements)

	if len(fb.Questions) > 0 {
		out.WriteString("=== QUESTIONS ===\n")
		for i, q := range fb.Questions {
			fmt.Fprintf(&out, "%d. %s (%d/10)\n   %s\n   %s\n", i+1, q.Question, q.Score, q.AnswerSummary, q.Feedback)
		}
	}

	return out.String(), nil
}

func (f *FeedbackTextFormatter) SupportedType() string {
	return "InterviewFeedback"
}

// FeedbackMarkdownFormatter renders interview feedback as markdown
type FeedbackMarkdownFormatter struct{}

func (f *FeedbackMarkdownFormatter) Format(data any) (string, error) {
	fb, err := asFeedback(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("# Interview Feedback\n\n")
	fmt.Fprintf(&out, "**Score:** %d/100 | **Recommendation:** %s\n\n", fb.OverallScore, fb.Recommendation)
	out.WriteString(fb.Summary)
	out.WriteString("\n\n")
	section(&out, "## Strengths", "-", fb.Strengths)
	section(&out, "## Improvements", "-", fb.Improvements)

	if len(fb.Questions) > 0 {
		out.WriteString("## Questions\n\n")
		out.WriteString("| # | Question | Score | Feedback |\n")
		out.WriteString("|---|---|---|---|\n")
		for i, q := range fb.Questions {
			fmt.Fprintf(&out, "| %d | %s | %d | %s |\n", i+1, q.Question, q.Score, q.Feedback)
		}
	}

	return out.String(), nil
}

func (f *FeedbackMarkdownFormatter) SupportedType() string {
	return "InterviewFeedback"
}
