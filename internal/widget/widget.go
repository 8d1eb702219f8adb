// Package widget decodes server-supplied UI descriptors into typed widget
// values and renders them to HTML markup.
//
// The wire descriptor is a single JSON object whose ui_type field selects the
// widget kind. Decoding turns it into a small sum type so the renderer and the
// session controller can switch exhaustively over kinds instead of dispatching
// through a string-keyed map that can silently miss.
package widget

import (
	"errors"
	"fmt"
	"time"

	"github.com/dermatics/derma-wizard/internal/models"
)

// ErrUnsupportedUIType marks a descriptor whose ui_type has no renderer.
// Callers log a warning and render nothing; the flow stalls at the current
// step but the widget stays usable.
var ErrUnsupportedUIType = errors.New("unsupported ui type")

// Widget is one decoded UI descriptor. Implementations are the widget kinds
// below, nothing else.
type Widget interface {
	// Step returns the step id the widget belongs to.
	Step() string
	// Kind returns the wire ui_type the widget was decoded from.
	Kind() models.UIType
	// Markup renders the interactive block as an HTML fragment built from
	// escaped field values.
	Markup() string
}

// header carries the fields shared by every widget kind.
type header struct {
	StepID  string
	Heading string
	Message string
}

func (h header) Step() string { return h.StepID }

// CardSelect is a grid of image+label cards; selecting one submits its id.
type CardSelect struct {
	header
	Options []models.Option
}

func (CardSelect) Kind() models.UIType { return models.UITypeCardSelect }

// PillList is a row of text pills; clicking one submits its text.
type PillList struct {
	header
	Options []models.Option
}

func (PillList) Kind() models.UIType { return models.UITypePillList }

// ButtonList is a row of buttons; clicking one submits its text.
type ButtonList struct {
	header
	Options []models.Option
}

func (ButtonList) Kind() models.UIType { return models.UITypeButtonList }

// MultiSelect is a toggleable grid with a continue button; continue submits
// the ordered set of chosen ids and refuses to fire with nothing selected.
type MultiSelect struct {
	header
	Options []models.Option
}

func (MultiSelect) Kind() models.UIType { return models.UITypeMultiSelect }

// ImageUpload is a file picker; the chosen file goes out through the
// image-upload endpoint rather than step submit.
type ImageUpload struct {
	header
}

func (ImageUpload) Kind() models.UIType { return models.UITypeImageUpload }

// AnalysisCards shows percentage results per metric with a continue button.
type AnalysisCards struct {
	header
	Results map[string]float64
}

func (AnalysisCards) Kind() models.UIType { return models.UITypeAnalysisCards }

// ProductRoutine is the grouped product grid with per-product add-to-cart,
// an add-all button, and the next-report button. Hair marks the
// hair_product_routine wire variant; both render identically.
type ProductRoutine struct {
	header
	Hair    bool
	Routine models.Routine
}

func (w ProductRoutine) Kind() models.UIType {
	if w.Hair {
		return models.UITypeHairProductRoutine
	}
	return models.UITypeProductRoutine
}

// VariantIDs returns the variant ids of every product in the routine that has
// one, in rendered (group-sorted) order. Products without a variant are
// skipped; they render an ADD control that alerts instead of posting.
func (w ProductRoutine) VariantIDs() []string {
	var ids []string
	for _, group := range sortedKeys(w.Routine) {
		for _, p := range w.Routine[group] {
			if p.VariantID != "" {
				ids = append(ids, p.VariantID)
			}
		}
	}
	return ids
}

// AIReport is the terminal summary card. Its heading and message render
// inside the card, never as separate bot bubbles.
type AIReport struct {
	header
	PDFURL      string
	GeneratedOn string
}

func (AIReport) Kind() models.UIType { return models.UITypeAIReport }

// FinalActions is a list of labeled action buttons dispatching named actions
// instead of step submissions.
type FinalActions struct {
	header
	Actions []models.Action
}

func (FinalActions) Kind() models.UIType { return models.UITypeFinalActions }

// ActionButton is a single button with a custom label and submit value.
type ActionButton struct {
	header
	Label string
	Value string
}

func (ActionButton) Kind() models.UIType { return models.UITypeActionButton }

// FromDescriptor decodes a wire descriptor into its widget kind. Unknown
// ui_type values return ErrUnsupportedUIType.
func FromDescriptor(ui models.UIDescriptor) (Widget, error) {
	h := header{StepID: ui.StepID, Heading: ui.Heading, Message: ui.Message}
	switch ui.UIType {
	case models.UITypeCardSelect:
		return CardSelect{header: h, Options: ui.Options}, nil
	case models.UITypePillList:
		return PillList{header: h, Options: ui.Options}, nil
	case models.UITypeButtonList:
		return ButtonList{header: h, Options: ui.Options}, nil
	case models.UITypeMultiSelect:
		return MultiSelect{header: h, Options: ui.Options}, nil
	case models.UITypeImageUpload:
		return ImageUpload{header: h}, nil
	case models.UITypeAnalysisCards:
		return AnalysisCards{header: h, Results: ui.Results}, nil
	case models.UITypeProductRoutine:
		return ProductRoutine{header: h, Routine: ui.Routine}, nil
	case models.UITypeHairProductRoutine:
		return ProductRoutine{header: h, Hair: true, Routine: ui.Routine}, nil
	case models.UITypeAIReport:
		return AIReport{
			header:      h,
			PDFURL:      ui.PDFURL,
			GeneratedOn: time.Now().Format("2/1/2006"),
		}, nil
	case models.UITypeFinalActions:
		return FinalActions{header: h, Actions: ui.Actions}, nil
	case models.UITypeActionButton:
		return ActionButton{header: h, Label: ui.Label, Value: ui.Value}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedUIType, ui.UIType)
	}
}
