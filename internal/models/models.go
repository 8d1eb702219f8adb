// Package models defines the core data structures for the Derma Wizard.
//
// It includes the wire types exchanged with the external flow service and the
// storefront cart, which are shared across modules.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UIType selects which widget renderer applies to a descriptor.
type UIType string

const (
	// UITypeCardSelect renders a grid of image+label cards.
	UITypeCardSelect UIType = "card_select"
	// UITypePillList renders a row of text pills.
	UITypePillList UIType = "pill_list"
	// UITypeButtonList renders a row of buttons.
	UITypeButtonList UIType = "button_list"
	// UITypeMultiSelect renders a toggleable grid with a continue button.
	UITypeMultiSelect UIType = "multi_select"
	// UITypeImageUpload renders a file picker for photo analysis.
	UITypeImageUpload UIType = "image_upload"
	// UITypeAnalysisCards renders percentage bars per metric.
	UITypeAnalysisCards UIType = "analysis_cards"
	// UITypeProductRoutine renders the grouped skin product grid.
	UITypeProductRoutine UIType = "product_routine"
	// UITypeHairProductRoutine renders the grouped hair product grid.
	UITypeHairProductRoutine UIType = "hair_product_routine"
	// UITypeAIReport renders the final summary card.
	UITypeAIReport UIType = "ai_report"
	// UITypeFinalActions renders a list of labeled action buttons.
	UITypeFinalActions UIType = "final_actions"
	// UITypeActionButton renders a single button with a custom label/value.
	UITypeActionButton UIType = "action_button"
)

// IsValidUIType checks if the given UI type is supported.
func IsValidUIType(ut UIType) bool {
	switch ut {
	case UITypeCardSelect, UITypePillList, UITypeButtonList, UITypeMultiSelect,
		UITypeImageUpload, UITypeAnalysisCards, UITypeProductRoutine,
		UITypeHairProductRoutine, UITypeAIReport, UITypeFinalActions,
		UITypeActionButton:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptySessionID    = errors.New("session id cannot be empty")
	ErrEmptyStepID       = errors.New("step id cannot be empty")
	ErrEmptyResponse     = errors.New("response cannot be empty")
	ErrInvalidFlowType   = errors.New("invalid flow type")
	ErrMissingDescriptor = errors.New("response carries no UI descriptor")
)

// Option is one selectable entry in a card or multi-select grid. Pill and
// button lists send options as bare strings; card grids send objects. Both
// shapes decode into Option.
type Option struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	Image string `json:"image,omitempty"`
}

// UnmarshalJSON accepts either a JSON string or an {id,label,image} object.
func (o *Option) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		o.ID = s
		o.Label = s
		o.Image = ""
		return nil
	}
	type optionAlias Option
	var a optionAlias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*o = Option(a)
	return nil
}

// Product is a purchasable item shown inside a routine step. Rendering input
// only; never mutated by the engine.
type Product struct {
	Title       string `json:"title"`
	Image       string `json:"image,omitempty"`
	Price       string `json:"price,omitempty"`
	MRP         string `json:"mrp,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	Recommended bool   `json:"recommended,omitempty"`
}

// Action is one labeled entry in a final_actions descriptor.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Routine groups products by routine step name.
type Routine map[string][]Product

// UIDescriptor is the server-declared description of the next widget to
// render. Which fields are populated depends on UIType.
type UIDescriptor struct {
	StepID  string             `json:"step_id"`
	UIType  UIType             `json:"ui_type"`
	Heading string             `json:"heading,omitempty"`
	Message string             `json:"message,omitempty"`
	Options []Option           `json:"options,omitempty"`
	Results map[string]float64 `json:"results,omitempty"`
	Routine Routine            `json:"routine,omitempty"`
	Actions []Action           `json:"actions,omitempty"`
	PDFURL  string             `json:"pdf_url,omitempty"`
	Label   string             `json:"label,omitempty"`
	Value   string             `json:"value,omitempty"`
}

// StepResponse is the user's answer to a step: a single string for
// card/pill/button/action selections, an ordered sequence for multi-select.
// It marshals as a bare string or a JSON array to match the wire protocol.
type StepResponse struct {
	Single   string
	Multiple []string
}

// SingleResponse builds a StepResponse carrying one value.
func SingleResponse(v string) StepResponse {
	return StepResponse{Single: v}
}

// MultiResponse builds a StepResponse carrying an ordered sequence.
func MultiResponse(vs []string) StepResponse {
	return StepResponse{Multiple: vs}
}

// IsZero reports whether the response carries no value at all.
func (r StepResponse) IsZero() bool {
	return r.Single == "" && r.Multiple == nil
}

// MarshalJSON emits the single value as a string, otherwise the sequence.
func (r StepResponse) MarshalJSON() ([]byte, error) {
	if r.Multiple != nil {
		return json.Marshal(r.Multiple)
	}
	return json.Marshal(r.Single)
}

// UnmarshalJSON accepts either shape.
func (r *StepResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Multiple)
	}
	return json.Unmarshal(trimmed, &r.Single)
}

// SubmissionPayload is the body of a step-submit request.
type SubmissionPayload struct {
	SessionID string       `json:"session_id"`
	StepID    string       `json:"step_id"`
	Response  StepResponse `json:"response"`
	FlowType  string       `json:"flowType"`
}

// Validate performs validation on a SubmissionPayload before it goes out.
func (p *SubmissionPayload) Validate() error {
	if p.SessionID == "" {
		return ErrEmptySessionID
	}
	if p.StepID == "" {
		return ErrEmptyStepID
	}
	if p.Response.IsZero() {
		return ErrEmptyResponse
	}
	if p.FlowType == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFlowType)
	}
	return nil
}

// StartSessionRequest is the body of a session-start request.
type StartSessionRequest struct {
	Platform string `json:"platform"`
	FlowType string `json:"flowType"`
}

// StartSessionResponse is the flow service's answer to session start.
type StartSessionResponse struct {
	SessionID string        `json:"session_id"`
	UI        *UIDescriptor `json:"ui"`
}

// StepResponseEnvelope wraps the descriptor returned by step submit and
// image upload.
type StepResponseEnvelope struct {
	UI *UIDescriptor `json:"ui"`
}
