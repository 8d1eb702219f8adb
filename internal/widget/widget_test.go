package widget

import (
	"errors"
	"strings"
	"testing"

	"github.com/dermatics/derma-wizard/internal/models"
)

func TestFromDescriptorKinds(t *testing.T) {
	cases := []struct {
		uiType models.UIType
		want   models.UIType
	}{
		{models.UITypeCardSelect, models.UITypeCardSelect},
		{models.UITypePillList, models.UITypePillList},
		{models.UITypeButtonList, models.UITypeButtonList},
		{models.UITypeMultiSelect, models.UITypeMultiSelect},
		{models.UITypeImageUpload, models.UITypeImageUpload},
		{models.UITypeAnalysisCards, models.UITypeAnalysisCards},
		{models.UITypeProductRoutine, models.UITypeProductRoutine},
		{models.UITypeHairProductRoutine, models.UITypeHairProductRoutine},
		{models.UITypeAIReport, models.UITypeAIReport},
		{models.UITypeFinalActions, models.UITypeFinalActions},
		{models.UITypeActionButton, models.UITypeActionButton},
	}
	for _, tc := range cases {
		t.Run(string(tc.uiType), func(t *testing.T) {
			w, err := FromDescriptor(models.UIDescriptor{StepID: "s", UIType: tc.uiType})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.Kind() != tc.want {
				t.Errorf("expected kind %s, got %s", tc.want, w.Kind())
			}
			if w.Step() != "s" {
				t.Errorf("expected step id to carry through, got %q", w.Step())
			}
		})
	}
}

func TestFromDescriptorUnsupported(t *testing.T) {
	_, err := FromDescriptor(models.UIDescriptor{StepID: "s", UIType: "carousel_3d"})
	if !errors.Is(err, ErrUnsupportedUIType) {
		t.Errorf("expected ErrUnsupportedUIType, got %v", err)
	}
}

func TestCardSelectMarkupEscapes(t *testing.T) {
	w, err := FromDescriptor(models.UIDescriptor{
		StepID: "choose_concern",
		UIType: models.UITypeCardSelect,
		Options: []models.Option{
			{ID: `x" onclick="evil()`, Label: "<b>Acne</b>", Image: `https://cdn/a.png?x="1"`},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := w.Markup()
	if strings.Contains(out, `onclick="evil()`) || strings.Contains(out, "<b>Acne</b>") {
		t.Errorf("markup contains unescaped input: %s", out)
	}
	if !strings.Contains(out, `data-ev="select"`) {
		t.Errorf("card items must carry the select event: %s", out)
	}
}

func TestMultiSelectMarkup(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID: "goals",
		UIType: models.UITypeMultiSelect,
		Options: []models.Option{
			{ID: "glow", Label: "Glow"},
			{ID: "hydration", Label: "Hydration"},
		},
	})
	out := w.Markup()
	if strings.Count(out, `data-ev="toggle"`) != 2 {
		t.Errorf("expected 2 toggle items: %s", out)
	}
	if !strings.Contains(out, `id="multi-goals"`) || !strings.Contains(out, `data-ev="continue"`) {
		t.Errorf("expected step-scoped continue button: %s", out)
	}
}

func TestAnalysisCardsMarkupSortedAndFormatted(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID:  "analysis",
		UIType:  models.UITypeAnalysisCards,
		Results: map[string]float64{"Wrinkles": 12.5, "Acne": 72},
	})
	out := w.Markup()
	acne := strings.Index(out, "Acne")
	wrinkles := strings.Index(out, "Wrinkles")
	if acne == -1 || wrinkles == -1 || acne > wrinkles {
		t.Errorf("metrics must render in sorted order: %s", out)
	}
	if !strings.Contains(out, "72%") || !strings.Contains(out, "12.5%") {
		t.Errorf("percentages must render without trailing zeros: %s", out)
	}
}

func TestProductRoutineMarkup(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID: "routine",
		UIType: models.UITypeProductRoutine,
		Routine: models.Routine{
			"Moisturizer": {
				{Title: "Hydra Gel", Price: "699", VariantID: "42", Recommended: true},
			},
			"Cleanser": {
				{Title: "Foam Wash", Price: "499", MRP: "599"},
			},
		},
	})
	out := w.Markup()
	cleanser := strings.Index(out, "Cleanser")
	moisturizer := strings.Index(out, "Moisturizer")
	if cleanser == -1 || moisturizer == -1 || cleanser > moisturizer {
		t.Errorf("groups must render in sorted order: %s", out)
	}
	if !strings.Contains(out, `<div class="badge rec">Recommended</div>`) {
		t.Errorf("recommended badge missing: %s", out)
	}
	if !strings.Contains(out, `<div class="badge alt">Alternative</div>`) {
		t.Errorf("alternative badge missing: %s", out)
	}
	// ADD control is always present, even without a variant id.
	if strings.Count(out, `data-ev="add"`) != 2 {
		t.Errorf("expected an ADD control per product: %s", out)
	}
	if !strings.Contains(out, `<span>₹599</span>`) {
		t.Errorf("mrp must render next to price: %s", out)
	}
	if !strings.Contains(out, `data-ev="add-all"`) || !strings.Contains(out, `data-ev="continue"`) {
		t.Errorf("add-all and next controls missing: %s", out)
	}
}

func TestProductRoutineVariantIDs(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID: "routine",
		UIType: models.UITypeHairProductRoutine,
		Routine: models.Routine{
			"Shampoo": {
				{Title: "A", VariantID: "1"},
				{Title: "B"},
				{Title: "C", VariantID: "3"},
			},
		},
	})
	routine := w.(ProductRoutine)
	ids := routine.VariantIDs()
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "3" {
		t.Errorf("expected variant ids [1 3], got %v", ids)
	}
	if !routine.Hair {
		t.Error("hair_product_routine must set the hair marker")
	}
}

func TestAIReportMarkupWithPDF(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID:  "report",
		UIType:  models.UITypeAIReport,
		Heading: "Step 5: AI Doctor's Report",
		PDFURL:  "https://cdn/report.pdf",
	})
	out := w.Markup()
	if !strings.Contains(out, `href="https://cdn/report.pdf"`) {
		t.Errorf("download control must link to pdf_url: %s", out)
	}
	if strings.Contains(out, "still generating") {
		t.Errorf("fallback must not render when pdf_url is present: %s", out)
	}
	if !strings.Contains(out, "Step 5: AI Doctor&#39;s Report") {
		t.Errorf("heading must render inside the card, escaped: %s", out)
	}
}

func TestAIReportMarkupWithoutPDF(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{StepID: "report", UIType: models.UITypeAIReport})
	out := w.Markup()
	if strings.Contains(out, "href=") {
		t.Errorf("no link may render without a pdf_url: %s", out)
	}
	if !strings.Contains(out, "Report is still generating") {
		t.Errorf("fallback alert action missing: %s", out)
	}
}

func TestFinalActionsMarkup(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID: "done",
		UIType: models.UITypeFinalActions,
		Actions: []models.Action{
			{ID: "start-over", Label: "Start Over"},
			{ID: "ai_assistant", Label: "AI Assistant"},
		},
	})
	out := w.Markup()
	if strings.Count(out, `data-ev="action"`) != 2 {
		t.Errorf("expected 2 action buttons: %s", out)
	}
	if !strings.Contains(out, `data-id="start-over"`) || !strings.Contains(out, `data-id="ai_assistant"`) {
		t.Errorf("action ids missing: %s", out)
	}
}

func TestActionButtonDefaults(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{StepID: "next", UIType: models.UITypeActionButton})
	btn := w.(ActionButton)
	if btn.DisplayLabel() != "Continue" {
		t.Errorf("expected default label Continue, got %q", btn.DisplayLabel())
	}
	if btn.SubmitValue() != "continue" {
		t.Errorf("expected default value continue, got %q", btn.SubmitValue())
	}

	w2, _ := FromDescriptor(models.UIDescriptor{
		StepID: "next", UIType: models.UITypeActionButton,
		Label: "See my plan", Value: "show_plan",
	})
	btn2 := w2.(ActionButton)
	if btn2.DisplayLabel() != "See my plan" || btn2.SubmitValue() != "show_plan" {
		t.Errorf("custom label/value not carried: %+v", btn2)
	}
}

func TestPillListMarkupUsesStringOptions(t *testing.T) {
	w, _ := FromDescriptor(models.UIDescriptor{
		StepID:  "skin_type",
		UIType:  models.UITypePillList,
		Options: []models.Option{{ID: "Oily", Label: "Oily"}, {ID: "Dry", Label: "Dry"}},
	})
	out := w.Markup()
	if strings.Count(out, "pill-item") != 2 {
		t.Errorf("expected 2 pills: %s", out)
	}
	if !strings.Contains(out, `data-id="Oily"`) {
		t.Errorf("pill id must carry the text value: %s", out)
	}
}
