package wizard

import (
	"testing"

	"github.com/ad/persona-onboarding/internal/models"
	"pgregory.net/rapid"
)

func TestRouter_EveryStepHasForm(t *testing.T) {
	reg := MustDefaultRegistry()
	router := NewRouter(reg)

	for _, def := range reg.Steps() {
		form, ok := router.Route(def.Index)
		if !ok {
			t.Fatalf("step %d has no form", def.Index)
		}
		if form.Key() != def.Key {
			t.Errorf("step %d: expected form key %q, got %q", def.Index, def.Key, form.Key())
		}
		if form.Kind() != def.Kind {
			t.Errorf("step %d: expected kind %q, got %q", def.Index, def.Kind, form.Kind())
		}
		if form.Prompt() == "" {
			t.Errorf("step %d: empty prompt", def.Index)
		}
	}
}

func TestProperty3_RouterOutOfRangeReturnsPlaceholder(t *testing.T) {
	router := NewRouter(MustDefaultRegistry())

	rapid.Check(t, func(rt *rapid.T) {
		step := rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(TotalSteps+1, 1000),
		).Draw(rt, "step")

		form, ok := router.Route(step)
		if ok {
			rt.Fatalf("Route(%d) should report out of range", step)
		}
		if _, isPlaceholder := form.(Placeholder); !isPlaceholder {
			rt.Fatalf("Route(%d) returned %T, want Placeholder", step, form)
		}
	})
}

func TestRouter_SmallerCatalogDoesNotPanic(t *testing.T) {
	reg, err := NewRegistry([]models.StepDefinition{
		{Index: 1, Key: "resume_upload", Name: "Resume Upload", Kind: models.StepKindUpload},
		{Index: 2, Key: "custom", Name: "Custom Thing", Kind: models.StepKindForm},
	})
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(reg)

	form, ok := router.Route(2)
	if !ok || form.Prompt() != "Tell us about your custom thing." {
		t.Errorf("unexpected fallback prompt: %q", form.Prompt())
	}

	if _, ok := router.Route(11); ok {
		t.Error("step 11 should not exist in a two-step catalog")
	}
}
