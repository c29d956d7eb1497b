// Package prompts holds the system and user prompts for each judgment the
// oracle is asked to make.
//
// Each prompt pairs a fixed system instruction with a text/template user
// prompt. Every system instruction ends by demanding a bare YES or NO so the
// oracle reply can be parsed strictly.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ahrav/go-nuggeteval/internal/domain"
)

// SentenceData is the template input for prompts about a sentence alone.
type SentenceData struct {
	Sentence string
}

// RelevanceData is the template input for citation relevance.
type RelevanceData struct {
	Sentence string
	Citation string
}

// AgreementData is the template input for nugget agreement.
type AgreementData struct {
	Sentence string
	Question string
	Answer   string
}

// FirstInstanceData is the template input for the first-instance check.
// Previous holds the earlier sentences of the report in order.
type FirstInstanceData struct {
	Sentence string
	Previous []string
}

// Prompt is one judgment's system instruction and user template.
type Prompt struct {
	Type   domain.JudgmentType
	System string
	user   *template.Template
}

// Render executes the user template with data.
func (p Prompt) Render(data any) (string, error) {
	var sb strings.Builder
	if err := p.user.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", p.Type, err)
	}
	return sb.String(), nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"trim": strings.TrimSpace,
	}
}

func mustPrompt(t domain.JudgmentType, system, user string) Prompt {
	tmpl := template.Must(template.New(t.String()).
		Funcs(funcMap()).
		Option("missingkey=error").
		Parse(user))
	return Prompt{Type: t, System: system, user: tmpl}
}

// The five judgments, in the order a sentence may meet them.
var (
	// Relevance asks whether a cited document is relevant to the sentence.
	Relevance = mustPrompt(domain.JudgmentRelevance, relevanceSystem, relevanceUser)

	// NuggetAgreement asks whether the sentence agrees with one nugget answer.
	NuggetAgreement = mustPrompt(domain.JudgmentNuggetAgreement, nuggetAgreementSystem, nuggetAgreementUser)

	// RequiresNegative asks whether an uncited sentence asserts that something is not the case.
	RequiresNegative = mustPrompt(domain.JudgmentRequiresNegative, requiresNegativeSystem, requiresNegativeUser)

	// RequiresCitation asks whether an uncited sentence makes a claim that needs support.
	RequiresCitation = mustPrompt(domain.JudgmentRequiresCitation, requiresCitationSystem, requiresCitationUser)

	// FirstInstance asks whether the claim is new relative to the earlier sentences.
	FirstInstance = mustPrompt(domain.JudgmentFirstInstance, firstInstanceSystem, firstInstanceUser)
)

// ForType returns the prompt for a judgment type.
func ForType(t domain.JudgmentType) (Prompt, bool) {
	switch t {
	case domain.JudgmentRelevance:
		return Relevance, true
	case domain.JudgmentNuggetAgreement:
		return NuggetAgreement, true
	case domain.JudgmentRequiresNegative:
		return RequiresNegative, true
	case domain.JudgmentRequiresCitation:
		return RequiresCitation, true
	case domain.JudgmentFirstInstance:
		return FirstInstance, true
	default:
		return Prompt{}, false
	}
}
