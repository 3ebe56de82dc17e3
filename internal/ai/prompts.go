package ai

import (
	"niena/internal/config"
)

// StagePrompts holds the system instruction and the user template for one stage.
// User templates are fmt format strings; see the build*Prompt helpers for argument order.
type StagePrompts struct {
	System string
	User   string
}

const integrityRules = `- NEVER invent, exaggerate, or misattribute any skills or experiences
- Every piece of information must be directly traceable to the source material
- Provide honest, data-driven analysis`

// DefaultPrompts provides the built-in prompts per stage
var DefaultPrompts = map[string]StagePrompts{
	config.StageParse: {
		System: `You are a precise resume parser. You convert free-form resume text into structured data.

- Copy names, titles, companies and dates exactly as written
- Leave a field empty when the resume does not state it
- Estimate yearsOfExperience from the listed positions, rounding down`,
		User: `Parse the following resume into structured data.

RESUME:
%s`,
	},

	config.StageAnalyze: {
		System: `You are a senior career coach and technical recruiter reviewing resumes.

` + integrityRules + `

Judge seniority from responsibilities and impact, not from titles alone.`,
		User: `Review this candidate.

PARSED RESUME (JSON):
%s

ORIGINAL RESUME:
%s

Summarize the candidate, classify seniority as one of intern, junior, mid, senior, lead, executive, and list strengths, weaknesses, missing skills for their target roles, and roles they are suited for.`,
	},

	config.StageScore: {
		System: `You are an ATS (Applicant Tracking System) expert who scores resumes on a 0-100 scale.

- ats: how well the resume survives automated screening
- impact: quantified achievements and ownership
- clarity: structure, concision and readability
- completeness: contact details, dates, skills and education present
- overall: your weighted judgement, not a plain average`,
		User: `Score this resume.

PARSED RESUME (JSON):
%s

ANALYSIS (JSON):
%s

TARGET JOB DESCRIPTION:
%s

Give each sub-score and concrete feedback items the candidate can act on.`,
	},

	config.StageAutofix: {
		System: `You are an expert resume writer. You rewrite resumes to fix the weaknesses a reviewer found.

` + integrityRules + `

Rephrase, reorder and tighten. Never add employers, degrees, dates or metrics that are not in the source.`,
		User: `Rewrite this resume to address the review below.

ORIGINAL RESUME:
%s

ANALYSIS (JSON):
%s

SCORE (JSON):
%s

Return the full improved resume as markdown and one change entry per edit with the section, the text before, the text after and the reason.`,
	},

	config.StageTailor: {
		System: `You are an expert resume writer and HR analyst with a strict commitment to honesty and accuracy.

` + integrityRules + `

Your expertise includes resume tailoring and ATS keyword analysis.`,
		User: `Tailor the base resume for the target job.

BASE RESUME:
%s

TARGET JOB:
%s

JOB DESCRIPTION:
%s

Return the tailored resume as markdown, the job keywords the resume already covers, the keywords it cannot honestly claim, and an ATS analysis with a 0-100 score.`,
	},

	config.StageExtract: {
		System: `You extract structured facts from job postings.

- Only report salary when the posting states it; use the posting's currency code
- seniority is one of intern, junior, mid, senior, lead, executive
- employmentType is one of FULLTIME, PARTTIME, CONTRACT, INTERN
- summary is two sentences at most`,
		User: `Extract the structured fields from this job posting.

TITLE: %s
COMPANY: %s

DESCRIPTION:
%s`,
	},

	config.StageInterview: {
		System: `You are an experienced hiring manager grading a mock interview.

- Grade only what the candidate actually said in the transcript
- Scores are 0-100
- recommendation is one of strong_yes, yes, maybe, no`,
		User: `Evaluate this mock interview.

ROLE: %s
FORMAT: %s

CANDIDATE BACKGROUND:
%s

TRANSCRIPT:
%s

Give an overall score, a short summary, strengths, improvements and per-question feedback.`,
	},
}

// promptsFor returns the system and user templates for a stage.
// Priority: file-loaded prompt, then inline config, then the built-in default.
func promptsFor(stage string, custom config.PromptConfig) (string, string) {
	loaded := config.GetPromptsForOperation(stage)
	defaults := DefaultPrompts[stage]
	return resolvePrompt(loaded.System, custom.System, defaults.System),
		resolvePrompt(loaded.User, custom.User, defaults.User)
}

// resolvePrompt selects the first non-empty prompt: file, config, default
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
