package wizard

import (
	"fmt"
	"strings"

	"github.com/ad/persona-onboarding/internal/models"
)

// Form is what a shell renders for one step.
type Form interface {
	Key() string
	Kind() models.StepKind
	Prompt() string
}

type uploadForm struct {
	def models.StepDefinition
}

func (f uploadForm) Key() string           { return f.def.Key }
func (f uploadForm) Kind() models.StepKind { return models.StepKindUpload }
func (f uploadForm) Prompt() string {
	return "Upload your resume (PDF or DOCX) and we will prefill your persona from it."
}

type fieldsForm struct {
	def    models.StepDefinition
	prompt string
}

func (f fieldsForm) Key() string           { return f.def.Key }
func (f fieldsForm) Kind() models.StepKind { return models.StepKindForm }
func (f fieldsForm) Prompt() string        { return f.prompt }

type reviewForm struct {
	def models.StepDefinition
}

func (f reviewForm) Key() string           { return f.def.Key }
func (f reviewForm) Kind() models.StepKind { return models.StepKindReview }
func (f reviewForm) Prompt() string {
	return "Review your persona and confirm to finish onboarding."
}

// Placeholder is returned for indices the registry does not know.
type Placeholder struct{}

func (Placeholder) Key() string           { return "" }
func (Placeholder) Kind() models.StepKind { return "" }
func (Placeholder) Prompt() string        { return "" }

var formPrompts = map[string]string{
	"basic_info":      "Tell us your name, headline, location and how recruiters can reach you.",
	"job_preferences": "Which roles, seniority, locations and salary range are you looking for?",
	"work_history":    "List your previous positions: company, title, dates and key results.",
	"education":       "Add your degrees, schools and graduation years.",
	"skills":          "Which skills should every application highlight?",
	"certifications":  "Add certifications with issuer and date.",
	"projects":        "Describe projects you want to showcase, with links if you have them.",
	"achievements":    "Share awards, publications or other achievements.",
	"writing_style":   "Paste a cover letter or a paragraph that sounds like you.",
}

var formBuilders = map[models.StepKind]func(models.StepDefinition) Form{
	models.StepKindUpload: func(def models.StepDefinition) Form { return uploadForm{def: def} },
	models.StepKindReview: func(def models.StepDefinition) Form { return reviewForm{def: def} },
	models.StepKindForm: func(def models.StepDefinition) Form {
		prompt, ok := formPrompts[def.Key]
		if !ok {
			prompt = fmt.Sprintf("Tell us about your %s.", strings.ToLower(def.Name))
		}
		return fieldsForm{def: def, prompt: prompt}
	},
}

// Router maps a step index to its form. It holds no session state.
type Router struct {
	forms map[int]Form
}

func NewRouter(reg *Registry) *Router {
	forms := make(map[int]Form, reg.Len())
	for _, def := range reg.Steps() {
		build, ok := formBuilders[def.Kind]
		if !ok {
			build = formBuilders[models.StepKindForm]
		}
		forms[def.Index] = build(def)
	}
	return &Router{forms: forms}
}

// Route returns the form for step, or Placeholder and false when the index
// is outside the registry.
func (r *Router) Route(step int) (Form, bool) {
	form, ok := r.forms[step]
	if !ok {
		return Placeholder{}, false
	}
	return form, true
}
