package session

import "github.com/dermatics/derma-wizard/internal/models"

// EventType names a user interaction arriving from the surface.
type EventType string

const (
	// EventStart opens the widget and starts (or restarts) a session.
	EventStart EventType = "start"
	// EventSelect is a click on a card, pill, button, or action button.
	EventSelect EventType = "select"
	// EventToggle flips one multi-select option.
	EventToggle EventType = "toggle"
	// EventContinue is the continue/next button of the current widget.
	EventContinue EventType = "continue"
	// EventUpload carries the user's photo.
	EventUpload EventType = "upload"
	// EventAction dispatches a named final action (start-over, ai_assistant).
	EventAction EventType = "action"
	// EventAddToCart adds a single product variant to the cart.
	EventAddToCart EventType = "add"
	// EventAddAll adds every available variant of the rendered routine.
	EventAddAll EventType = "add-all"
)

// ImageFile is an uploaded photo.
type ImageFile struct {
	Name string
	Data []byte
}

// Event is one user interaction. ID carries the option id, action id,
// variant id, or submit value depending on Type.
type Event struct {
	Type   EventType
	StepID string
	ID     string
	File   *ImageFile
}

// op tags which transport call produced a descriptorResult.
type op string

const (
	opStart  op = "start"
	opSubmit op = "submit"
	opUpload op = "upload"
)

// descriptorResult re-enters the event loop when a transport call completes.
// Generation and seq let the loop discard responses that resolved after a
// restart or after a newer request was issued.
type descriptorResult struct {
	op         op
	generation uint64
	seq        uint64
	ui         *models.UIDescriptor
	err        error
	sessionID  string // set for opStart
}
