package types

// ParseResumeInput represents the input for the parse stage
type ParseResumeInput struct {
	ResumeText string `json:"resumeText"`
}

// Experience is one position in a parsed resume
type Experience struct {
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	Location   string   `json:"location,omitempty"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"` // empty or "present" for current roles
	Highlights []string `json:"highlights"`
}

// Education is one entry in a parsed resume
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// Project is a side or portfolio project listed in a resume
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// ParsedResume is the structured form of a resume produced by the parse stage
type ParsedResume struct {
	Name              string       `json:"name"`
	Email             string       `json:"email,omitempty"`
	Phone             string       `json:"phone,omitempty"`
	Location          string       `json:"location,omitempty"`
	Headline          string       `json:"headline,omitempty"`
	Summary           string       `json:"summary,omitempty"`
	Links             []string     `json:"links"`
	Skills            []string     `json:"skills"`
	Experience        []Experience `json:"experience"`
	Education         []Education  `json:"education"`
	Certifications    []string     `json:"certifications"`
	Projects          []Project    `json:"projects"`
	YearsOfExperience int          `json:"yearsOfExperience"`
}

// AnalyzeResumeInput represents the input for the analyze stage
type AnalyzeResumeInput struct {
	ResumeText string       `json:"resumeText"`
	Parsed     ParsedResume `json:"parsed"`
}

// ResumeAnalysis is the qualitative review produced by the analyze stage
type ResumeAnalysis struct {
	Summary        string   `json:"summary"`
	Seniority      string   `json:"seniority"` // intern, junior, mid, senior, lead, executive
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	MissingSkills  []string `json:"missingSkills"`
	SuggestedRoles []string `json:"suggestedRoles"`
}

// ScoreResumeInput represents the input for the score stage.
// JobDescription is optional; when set the score is relative to that job.
type ScoreResumeInput struct {
	ResumeText     string         `json:"resumeText"`
	Parsed         ParsedResume   `json:"parsed"`
	Analysis       ResumeAnalysis `json:"analysis"`
	JobDescription string         `json:"jobDescription,omitempty"`
}

// ResumeScore holds 0-100 sub-scores and an overall score
type ResumeScore struct {
	Overall      int      `json:"overall"`
	ATS          int      `json:"ats"`
	Impact       int      `json:"impact"`
	Clarity      int      `json:"clarity"`
	Completeness int      `json:"completeness"`
	Feedback     []string `json:"feedback"`
}

// AutofixResumeInput represents the input for the autofix stage
type AutofixResumeInput struct {
	ResumeText string         `json:"resumeText"`
	Parsed     ParsedResume   `json:"parsed"`
	Analysis   ResumeAnalysis `json:"analysis"`
	Score      ResumeScore    `json:"score"`
}

// AutofixChange describes one rewrite suggested by the autofix stage
type AutofixChange struct {
	Section string `json:"section"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Reason  string `json:"reason"`
}

// AutofixResult is the output of the autofix stage
type AutofixResult struct {
	ImprovedResume string          `json:"improvedResume"`
	Changes        []AutofixChange `json:"changes"`
}

// TailorResumeInput represents the input for tailoring a resume
type TailorResumeInput struct {
	BaseResume     string `json:"baseResume"`
	JobTitle       string `json:"jobTitle,omitempty"`
	Company        string `json:"company,omitempty"`
	JobDescription string `json:"jobDescription"`
}

// ATSAnalysis represents the ATS scoring and analysis
type ATSAnalysis struct {
	Score      int    `json:"score"`
	Strengths  string `json:"strengths"`
	Weaknesses string `json:"weaknesses"`
}

// TailorResumeOutput represents the output from tailoring a resume
type TailorResumeOutput struct {
	TailoredResume  string      `json:"tailoredResume"`
	MatchedKeywords []string    `json:"matchedKeywords"`
	MissingKeywords []string    `json:"missingKeywords"`
	ATSAnalysis     ATSAnalysis `json:"atsAnalysis"`
}

// ExtractJobInput represents a raw posting to be structured by the extract stage
type ExtractJobInput struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// ExtractedJob holds the fields the extract stage pulls out of a posting
type ExtractedJob struct {
	Summary          string   `json:"summary"`
	Skills           []string `json:"skills"`
	Seniority        string   `json:"seniority"`
	EmploymentType   string   `json:"employmentType"`
	Remote           bool     `json:"remote"`
	SalaryMin        float64  `json:"salaryMin"` // 0 when not stated
	SalaryMax        float64  `json:"salaryMax"`
	SalaryCurrency   string   `json:"salaryCurrency"`
	Responsibilities []string `json:"responsibilities"`
	Requirements     []string `json:"requirements"`
}

// EvaluateInterviewInput represents a finished interview transcript to review
type EvaluateInterviewInput struct {
	Role          string `json:"role"`
	InterviewType string `json:"interviewType"`
	ResumeSummary string `json:"resumeSummary,omitempty"`
	Transcript    string `json:"transcript"`
}

// QuestionFeedback scores a single answer from an interview
type QuestionFeedback struct {
	Question      string `json:"question"`
	AnswerSummary string `json:"answerSummary"`
	Score         int    `json:"score"`
	Feedback      string `json:"feedback"`
}

// InterviewFeedback is the review produced for a completed interview
type InterviewFeedback struct {
	OverallScore   int                `json:"overallScore"`
	Summary        string             `json:"summary"`
	Strengths      []string           `json:"strengths"`
	Improvements   []string           `json:"improvements"`
	Questions      []QuestionFeedback `json:"questions"`
	Recommendation string             `json:"recommendation"` // strong_yes, yes, maybe, no
}

// ResumeReport bundles every stage output of the analysis pipeline
type ResumeReport struct {
	Parsed   ParsedResume   `json:"parsed"`
	Analysis ResumeAnalysis `json:"analysis"`
	Score    ResumeScore    `json:"score"`
	Autofix  AutofixResult  `json:"autofix"`
}
