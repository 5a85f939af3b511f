package model

import "time"

// Backend preference constants. The preference is what the user configured;
// the effective backend for a pass is resolved per invocation from the
// preference and live credential health.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Template constants. A template declares which block kinds a space needs,
// in generation order.
const (
	TemplateStudy = "study"
	TemplateSkim  = "skim"
	TemplateExam  = "exam"
)

// templateKinds maps each template to its required block kinds, in the
// order the sequential driver generates them.
var templateKinds = map[string][]string{
	TemplateStudy: {
		BlockSummary, BlockFlashcards, BlockQuiz, BlockKeyTerms,
		BlockMainQuestion, BlockInsights, BlockArgument, BlockOutline,
	},
	TemplateSkim: {BlockSummary, BlockKeyTerms, BlockOutline, BlockMainQuestion},
	TemplateExam: {BlockSummary, BlockFlashcards, BlockQuiz, BlockKeyTerms},
}

// TemplateKinds returns the ordered block kinds required by a template.
// Unknown templates fall back to the full study set.
func TemplateKinds(template string) []string {
	kinds, ok := templateKinds[template]
	if !ok {
		kinds = templateKinds[TemplateStudy]
	}
	out := make([]string, len(kinds))
	copy(out, kinds)
	return out
}

// ValidTemplate reports whether template names a known template.
func ValidTemplate(template string) bool {
	_, ok := templateKinds[template]
	return ok
}

// Space is a user workspace owning documents, blocks, and questions.
type Space struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BackendPref string `json:"backend_pref"`
	Template    string `json:"template"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SpaceWithBlocks is a Space together with its blocks.
type SpaceWithBlocks struct {
	Space
	Blocks []Block `json:"blocks"`
}

// NewSpace creates a new Space.
func NewSpace(id, name, backendPref, template string) Space {
	now := time.Now().UTC().Format(time.RFC3339)
	if backendPref == "" {
		backendPref = BackendLocal
	}
	if template == "" {
		template = TemplateStudy
	}
	return Space{
		ID:          id,
		Name:        name,
		BackendPref: backendPref,
		Template:    template,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
