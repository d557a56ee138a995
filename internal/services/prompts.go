// Package services – prompt construction.
//
// All provider prompts are assembled here so the wording lives in one
// place. Prompts reference the source document implicitly: the document
// reaches the provider either as a cache handle or as inline bytes
// (genai.DocumentRef); the text below never embeds document content.
package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
)

const (
	planStageCount = 5

	planSystemPrompt = `You are an instructional designer building an adaptive training curriculum
from the attached source document. You adapt structure and density to the
learner profile: beginners get more, simpler modules; advanced learners get
fewer, denser ones. Respond only with the requested JSON structure.`

	slideSystemPrompt = `You are a training content author. You write the markdown body of exactly
one slide of an e-learning course, grounded strictly in the attached source
document. Use headings, short paragraphs and bullet lists; no slide number,
no course title repetition, no closing remarks.`

	answerSystemPrompt = `You are a patient tutor answering a learner's question about the slide they
are viewing. Ground every answer in the attached source document; when the
document does not cover the question, say so briefly.`

	enrichmentSystemPrompt = `You observe a learner's questions during a training course and extract
short factual observations about their background, gaps and interests.
Only state what the conversation supports. Respond only with the requested
JSON structure.`
)

// profileSummary serializes the survey answers (and any enrichment notes)
// into the compact block embedded in every prompt.
func profileSummary(p *domain.LearnerProfile) string {
	var b strings.Builder
	b.WriteString("Learner profile:\n")
	fmt.Fprintf(&b, "- experience level: %s\n", p.ExperienceLevel)
	fmt.Fprintf(&b, "- learning style: %s\n", p.LearningStyle)
	if p.JobRole != "" {
		fmt.Fprintf(&b, "- job role: %s\n", p.JobRole)
	}
	if p.Sector != "" {
		fmt.Fprintf(&b, "- sector: %s\n", p.Sector)
	}
	if p.Country != "" {
		fmt.Fprintf(&b, "- country: %s\n", p.Country)
	}
	fmt.Fprintf(&b, "- content language: %s\n", languageName(p.Language))
	if p.Objectives != "" {
		fmt.Fprintf(&b, "- objectives: %s\n", p.Objectives)
	}
	if p.DurationMinutes > 0 {
		fmt.Fprintf(&b, "- available time: %d minutes\n", p.DurationMinutes)
	}
	if p.EnrichedNotes != "" {
		b.WriteString("Observed during the session:\n")
		for _, line := range strings.Split(p.EnrichedNotes, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}
	}
	return b.String()
}

// languageName normalizes a BCP 47 tag and keeps the raw value when it does
// not parse; the provider copes with either.
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return t.String()
}

// planUserPrompt builds the curriculum-skeleton request.
func planUserPrompt(p *domain.LearnerProfile) string {
	var b strings.Builder
	b.WriteString(profileSummary(p))
	fmt.Fprintf(&b, `
Design the full curriculum for this learner from the attached document.
Produce exactly %d stages. Choose the number of modules per stage, submodules
per module and slide titles per submodule to fit the profile above. Every
module needs at least one submodule and every submodule at least one slide
title. Slide titles must be concrete and specific to the document content.
`, planStageCount)
	return b.String()
}

// planCorrectiveInstruction is appended for the single retry after a shape
// violation.
func planCorrectiveInstruction(reason string) string {
	return fmt.Sprintf(`
Your previous answer was rejected: %s.
Follow the structure requirements exactly: exactly %d stages; at least one
module per stage; at least one submodule per module; at least one slide
title per submodule. Return only the JSON object.`, reason, planStageCount)
}

// planSchema is the JSON schema the provider must satisfy for skeletons.
func planSchema() *genai.Schema {
	slideTitles := genai.Array(genai.String("slide title"))
	slideTitles.MinItems = genai.Int64(1)

	submodules := genai.Array(genai.Object(map[string]*genai.Schema{
		"title":        genai.String("submodule title"),
		"slide_titles": slideTitles,
	}))
	submodules.MinItems = genai.Int64(1)

	modules := genai.Array(genai.Object(map[string]*genai.Schema{
		"title":      genai.String("module title"),
		"submodules": submodules,
	}))
	modules.MinItems = genai.Int64(1)

	stages := genai.Array(genai.Object(map[string]*genai.Schema{
		"title":   genai.String("stage title"),
		"modules": modules,
	}))
	stages.MinItems = genai.Int64(planStageCount)
	stages.MaxItems = genai.Int64(planStageCount)

	return genai.Object(map[string]*genai.Schema{
		"title":  genai.String("course title"),
		"stages": stages,
	})
}

// slidePosition describes where a slide sits in the curriculum, so the
// prompt can request appropriate depth and density.
type slidePosition struct {
	StageIndex     int
	StageTitle     string
	ModuleIndex    int
	ModuleTitle    string
	SubmoduleIndex int
	SubmoduleTitle string
	SlideIndex     int
	SlideTotal     int
}

// slideUserPrompt builds the lazy slide-fill request.
func slideUserPrompt(slide *domain.Slide, pos slidePosition, p *domain.LearnerProfile, history []domain.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(profileSummary(p))
	fmt.Fprintf(&b, `
Write the markdown content of the slide titled %q.
Curriculum position: stage %d of %d (%q), module %d (%q), submodule %d (%q),
slide %d of %d in the submodule. Later stages assume earlier ones are done;
match the depth to the position and the profile.
`, slide.Title,
		pos.StageIndex, planStageCount, pos.StageTitle,
		pos.ModuleIndex, pos.ModuleTitle,
		pos.SubmoduleIndex, pos.SubmoduleTitle,
		pos.SlideIndex, pos.SlideTotal)

	if len(history) > 0 {
		b.WriteString("\nRecent conversation with the learner, for continuity:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, clip(t.Content, 400))
		}
	}
	return b.String()
}

// mutationUserPrompt builds the prompt for an explicit content mutation.
// Returns ErrInvalidMutation for unknown kinds.
func mutationUserPrompt(kind string, slide *domain.Slide, current string, p *domain.LearnerProfile) (string, error) {
	var instruction string
	switch kind {
	case domain.MutationSimplify:
		instruction = `Rewrite the slide below in simpler language: shorter sentences, fewer
technical terms, concrete examples. Keep the same topic and markdown shape.`
	case domain.MutationExpand:
		instruction = `Expand the slide below with more detail and depth: background, edge
cases, a worked example where the document provides one. Keep it one slide.`
	case domain.MutationChart:
		instruction = `Augment the slide below with one mermaid diagram that captures its key
relationship or process. Return the full slide markdown with the diagram in
a fenced mermaid block where it fits best.`
	case domain.MutationImage:
		instruction = `Augment the slide below with one illustrative figure: add a markdown
image placeholder with a detailed alt text describing exactly what the
figure should show, plus a one-line caption. Return the full slide markdown.`
	default:
		return "", ErrInvalidMutation
	}

	var b strings.Builder
	b.WriteString(profileSummary(p))
	b.WriteString("\n")
	b.WriteString(instruction)
	fmt.Fprintf(&b, "\n\nSlide title: %q\n\nCurrent slide content:\n%s\n", slide.Title, current)
	return b.String(), nil
}

// answerUserPrompt builds the slide Q&A request.
func answerUserPrompt(question string, slide *domain.Slide, content string, p *domain.LearnerProfile, history []domain.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(profileSummary(p))
	fmt.Fprintf(&b, "\nThe learner is viewing the slide titled %q:\n%s\n", slide.Title, clip(content, 2000))
	if len(history) > 0 {
		b.WriteString("\nEarlier exchanges on this slide:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, clip(t.Content, 400))
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

// enrichmentUserPrompt asks for inferred profile attributes from recent
// conversation turns.
func enrichmentUserPrompt(p *domain.LearnerProfile, turns []domain.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(profileSummary(p))
	b.WriteString(`
From the conversation below, infer up to three short observations about this
learner that are not already in the profile (knowledge gaps, interests,
preferred explanation style). Only include observations with clear evidence.

Conversation:
`)
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, clip(t.Content, 400))
	}
	return b.String()
}

// enrichmentSchema constrains the enrichment response.
func enrichmentSchema() *genai.Schema {
	obs := genai.Array(genai.String("one observation, a single sentence"))
	obs.MaxItems = genai.Int64(3)
	return genai.Object(map[string]*genai.Schema{
		"observations": obs,
	})
}

// clip truncates s to max runes for prompt embedding.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
