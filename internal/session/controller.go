// Package session owns the assessment session: identity, active flow, the
// transcript, and the event loop that turns user interactions into step
// submissions.
//
// The controller is single-threaded by construction: all state mutation
// happens on the Run goroutine, which consumes surface events and transport
// completions from channels. Transport calls run on their own goroutines and
// re-enter the loop as descriptorResult values, so the loop stays responsive
// while a request is outstanding and the single-in-flight-submission guard
// can actually drop concurrent interactions.
package session

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/dermatics/derma-wizard/internal/models"
	"github.com/dermatics/derma-wizard/internal/timeline"
	"github.com/dermatics/derma-wizard/internal/widget"
)

// Surface is the display the widget renders into. Implementations must
// tolerate being called only from the controller goroutine.
type Surface interface {
	// Open makes the widget surface visible.
	Open()
	// SetTitle updates the drawer header title.
	SetTitle(title string)
	// RenderTimeline replaces the chat screen with the given HTML.
	RenderTimeline(html string)
	// Alert shows a transient user-visible warning outside the transcript.
	Alert(text string)
}

// FlowClient is the transport to the external flow service.
type FlowClient interface {
	StartSession(ctx context.Context, platform, flowType string) (string, *models.UIDescriptor, error)
	SubmitStep(ctx context.Context, payload models.SubmissionPayload) (*models.UIDescriptor, error)
	UploadImage(ctx context.Context, sessionID, filename string, image io.Reader, analysisType string) (*models.UIDescriptor, error)
}

// CartClient posts cart adds to the storefront.
type CartClient interface {
	AddOne(ctx context.Context, variantID string) error
	AddAll(ctx context.Context, variantIDs []string) (int, error)
}

// Session is the per-assessment state. The id is issued by the flow service;
// an empty id means no usable session (start failed or not started yet).
type Session struct {
	ID          string
	Flow        models.FlowType
	CurrentStep string
}

// User-facing copy. The flow switch rewords titles via models.FlowConfig.
const (
	msgPreparing         = "⏳ Preparing your personalized assessment..."
	msgStartFailed       = "❌ Unable to start session."
	msgSubmitFailed      = "❌ Something went wrong. Please try again."
	msgPhotoUploaded     = "📸 Photo uploaded"
	msgAnalyzing         = "⏳ Analyzing image..."
	msgSelectAtLeastOne  = "⚠ Please select at least one option."
	msgGeneratingRoutine = "⏳ Generating your personalized routine..."
	msgAssistantGreeting = "Hello! I'm your Dermatics AI Skincare Assistant. How can I help you with your routine or skin analysis?"
	labelNextReport      = "Next AI Doctor’s Report"
	labelContinue        = "Continue"
	alertMissingVariant  = "Product variant missing"
	alertNoProducts      = "No products available to add"
)

// The one-time flow branch: a card selection with this id at this step moves
// the session to the hair flow. This is an explicit special case of the
// concern-selection step, not a general mechanism.
const (
	stepChooseConcern    = "choose_concern"
	cardHairAssessment   = "hair_assessment"
	actionStartOver      = "start-over"
	actionAIAssistant    = "ai_assistant"
	responseContinueWire = "continue"
)

// DefaultQueueSize bounds the surface event queue.
const DefaultQueueSize = 32

// Config holds controller construction parameters.
type Config struct {
	// Platform is reported to the flow service on session start.
	// Defaults to "web".
	Platform string
	// QueueSize bounds the event queue. Defaults to DefaultQueueSize.
	QueueSize int
}

// Controller drives one widget instance.
type Controller struct {
	flow     FlowClient
	cart     CartClient
	surface  Surface
	platform string

	timeline *timeline.Store
	events   chan Event
	results  chan descriptorResult

	// State below is owned by the Run goroutine.
	sess       Session
	current    widget.Widget
	selected   []string // multi-select ids in toggle order
	submitting bool
	generation uint64 // bumped on every (re)start
	seq        uint64 // last issued transport request
}

// New creates a controller. The surface is inert until Start is dispatched.
func New(flow FlowClient, cartClient CartClient, surface Surface, cfg Config) *Controller {
	if cfg.Platform == "" {
		cfg.Platform = "web"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	c := &Controller{
		flow:     flow,
		cart:     cartClient,
		surface:  surface,
		platform: cfg.Platform,
		timeline: timeline.New(),
		events:   make(chan Event, cfg.QueueSize),
		results:  make(chan descriptorResult, 4),
	}
	c.timeline.OnChange(func() {
		surface.RenderTimeline(c.timeline.Render())
	})
	return c
}

// Dispatch enqueues a surface event. Events arriving faster than the loop
// drains them are dropped with a warning rather than blocking the surface.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("Controller.Dispatch: event queue full, dropping", "type", ev.Type, "step_id", ev.StepID)
	}
}

// Start enqueues a session (re)start.
func (c *Controller) Start() {
	c.Dispatch(Event{Type: EventStart})
}

// Run consumes events until the context is cancelled. All session state is
// mutated here and only here.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Controller.Run: context done, stopping")
			return
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		case res := <-c.results:
			c.applyResult(res)
		}
	}
}

// Timeline exposes the transcript store, primarily for the host and tests.
func (c *Controller) Timeline() *timeline.Store {
	return c.timeline
}

func (c *Controller) handleEvent(ctx context.Context, ev Event) {
	slog.Debug("Controller.handleEvent", "type", ev.Type, "step_id", ev.StepID, "id", ev.ID)
	switch ev.Type {
	case EventStart:
		c.start(ctx)
	case EventSelect:
		c.handleSelect(ctx, ev)
	case EventToggle:
		c.handleToggle(ev)
	case EventContinue:
		c.handleContinue(ctx)
	case EventUpload:
		c.handleUpload(ctx, ev)
	case EventAction:
		c.handleFinalAction(ctx, ev)
	case EventAddToCart:
		c.handleAddOne(ctx, ev)
	case EventAddAll:
		c.handleAddAll(ctx)
	default:
		slog.Warn("Controller.handleEvent: unknown event type", "type", ev.Type)
	}
}

// start resets everything and opens a fresh session. Also the restart path:
// the prior timeline and session id are fully discarded, and the generation
// bump makes any still-resolving response from the old session inert.
func (c *Controller) start(ctx context.Context) {
	c.generation++
	c.seq++
	c.sess = Session{Flow: models.FlowTypeSkin}
	c.current = nil
	c.selected = nil
	c.submitting = false

	c.timeline.Reset()
	c.surface.Open()
	c.timeline.AppendBot(msgPreparing)

	cfg := models.ConfigFor(c.sess.Flow)
	gen, seq := c.generation, c.seq
	slog.Info("Controller.start: starting session", "platform", c.platform, "flow_type", cfg.WireType, "generation", gen)
	go func() {
		id, ui, err := c.flow.StartSession(ctx, c.platform, cfg.WireType)
		c.results <- descriptorResult{op: opStart, generation: gen, seq: seq, ui: ui, err: err, sessionID: id}
	}()
}

func (c *Controller) handleSelect(ctx context.Context, ev Event) {
	switch w := c.current.(type) {
	case widget.CardSelect:
		opt, ok := findOption(w.Options, ev.ID)
		if !ok {
			slog.Warn("Controller.handleSelect: unknown card id", "id", ev.ID, "step_id", w.Step())
			return
		}
		if c.submitting {
			slog.Debug("Controller.handleSelect: submission in flight, dropping", "step_id", w.Step())
			return
		}
		c.timeline.AppendUser(opt.Label)
		if w.Step() == stepChooseConcern {
			c.switchFlow(opt.ID)
		}
		c.beginSubmit(ctx, w.Step(), models.SingleResponse(opt.ID))
	case widget.PillList:
		c.selectText(ctx, w.Options, ev.ID, w.Step())
	case widget.ButtonList:
		c.selectText(ctx, w.Options, ev.ID, w.Step())
	case widget.ActionButton:
		if c.submitting {
			slog.Debug("Controller.handleSelect: submission in flight, dropping", "step_id", w.Step())
			return
		}
		c.timeline.AppendUser(w.DisplayLabel())
		c.beginSubmit(ctx, w.Step(), models.SingleResponse(w.SubmitValue()))
	default:
		slog.Debug("Controller.handleSelect: current widget takes no selection", "id", ev.ID)
	}
}

// selectText handles pill and button lists, whose options are plain text:
// the clicked text is both the user bubble and the submitted response.
func (c *Controller) selectText(ctx context.Context, options []models.Option, id, stepID string) {
	opt, ok := findOption(options, id)
	if !ok {
		slog.Warn("Controller.selectText: unknown option", "id", id, "step_id", stepID)
		return
	}
	if c.submitting {
		slog.Debug("Controller.selectText: submission in flight, dropping", "step_id", stepID)
		return
	}
	c.timeline.AppendUser(opt.Label)
	c.beginSubmit(ctx, stepID, models.SingleResponse(opt.Label))
}

// switchFlow applies the one-time concern branch and retitles the surface.
func (c *Controller) switchFlow(cardID string) {
	if cardID == cardHairAssessment {
		c.sess.Flow = models.FlowTypeHair
	} else {
		c.sess.Flow = models.FlowTypeSkin
	}
	cfg := models.ConfigFor(c.sess.Flow)
	c.surface.SetTitle(cfg.Title)
	slog.Info("Controller.switchFlow: active flow set", "flow", c.sess.Flow)
}

func (c *Controller) handleToggle(ev Event) {
	if _, ok := c.current.(widget.MultiSelect); !ok {
		slog.Debug("Controller.handleToggle: current widget is not multi-select")
		return
	}
	for i, id := range c.selected {
		if id == ev.ID {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			return
		}
	}
	c.selected = append(c.selected, ev.ID)
}

func (c *Controller) handleContinue(ctx context.Context) {
	switch w := c.current.(type) {
	case widget.MultiSelect:
		if len(c.selected) == 0 {
			// Disabled-by-policy: warn, do not submit. Fully recoverable.
			c.timeline.AppendBot(msgSelectAtLeastOne)
			return
		}
		if c.submitting {
			slog.Debug("Controller.handleContinue: submission in flight, dropping", "step_id", w.Step())
			return
		}
		chosen := make([]string, len(c.selected))
		copy(chosen, c.selected)
		c.timeline.AppendUser(strings.Join(chosen, ", "))
		c.timeline.AppendBot(msgGeneratingRoutine)
		c.beginSubmit(ctx, w.Step(), models.MultiResponse(chosen))
	case widget.AnalysisCards:
		if c.submitting {
			return
		}
		c.timeline.AppendUser(labelContinue)
		c.beginSubmit(ctx, w.Step(), models.SingleResponse(responseContinueWire))
	case widget.ProductRoutine:
		if c.submitting {
			return
		}
		c.timeline.AppendUser(labelNextReport)
		c.beginSubmit(ctx, w.Step(), models.SingleResponse(responseContinueWire))
	default:
		slog.Debug("Controller.handleContinue: current widget has no continue")
	}
}

func (c *Controller) handleUpload(ctx context.Context, ev Event) {
	if _, ok := c.current.(widget.ImageUpload); !ok {
		slog.Debug("Controller.handleUpload: current widget is not an upload")
		return
	}
	if c.sess.ID == "" || ev.File == nil || len(ev.File.Data) == 0 {
		slog.Warn("Controller.handleUpload: missing session or file")
		return
	}
	c.timeline.AppendUser(msgPhotoUploaded)
	c.timeline.AppendBot(msgAnalyzing)

	c.seq++
	gen, seq := c.generation, c.seq
	sessID, name, data := c.sess.ID, ev.File.Name, ev.File.Data
	analysisType := string(c.sess.Flow)
	go func() {
		ui, err := c.flow.UploadImage(ctx, sessID, name, bytes.NewReader(data), analysisType)
		c.results <- descriptorResult{op: opUpload, generation: gen, seq: seq, ui: ui, err: err}
	}()
}

// handleFinalAction dispatches named actions from ai_report and
// final_actions widgets. Canonical behavior: start-over restarts the
// session; ai_assistant echoes the user's choice and appends the assistant
// greeting. Unknown ids are ignored.
func (c *Controller) handleFinalAction(ctx context.Context, ev Event) {
	switch ev.ID {
	case actionStartOver:
		slog.Info("Controller.handleFinalAction: start over")
		c.start(ctx)
	case actionAIAssistant:
		c.timeline.AppendUser("AI Assistant")
		c.timeline.AppendBot(msgAssistantGreeting)
	default:
		slog.Warn("Controller.handleFinalAction: unknown action", "id", ev.ID)
	}
}

func (c *Controller) handleAddOne(ctx context.Context, ev Event) {
	if ev.ID == "" {
		c.surface.Alert(alertMissingVariant)
		return
	}
	// Fire and forget: cart adds never touch flow state.
	go func() {
		if err := c.cart.AddOne(ctx, ev.ID); err != nil {
			slog.Error("Controller.handleAddOne: cart add failed", "variant_id", ev.ID, "error", err)
		}
	}()
}

func (c *Controller) handleAddAll(ctx context.Context) {
	routine, ok := c.current.(widget.ProductRoutine)
	if !ok {
		slog.Debug("Controller.handleAddAll: current widget is not a routine")
		return
	}
	ids := routine.VariantIDs()
	if len(ids) == 0 {
		c.surface.Alert(alertNoProducts)
		return
	}
	go func() {
		count, err := c.cart.AddAll(ctx, ids)
		if err != nil {
			slog.Error("Controller.handleAddAll: cart add failed", "error", err)
			return
		}
		slog.Info("Controller.handleAddAll: added to cart", "count", count)
	}()
}

// beginSubmit issues a step submission. At most one submission is in flight
// per session: the first caller wins and later calls before completion are
// no-ops (callers check c.submitting before appending bubbles).
func (c *Controller) beginSubmit(ctx context.Context, stepID string, response models.StepResponse) {
	if c.sess.ID == "" {
		slog.Warn("Controller.beginSubmit: no active session, dropping", "step_id", stepID)
		return
	}
	if c.submitting {
		slog.Debug("Controller.beginSubmit: submission already in flight, dropping", "step_id", stepID)
		return
	}
	c.submitting = true
	c.seq++
	gen, seq := c.generation, c.seq

	payload := models.SubmissionPayload{
		SessionID: c.sess.ID,
		StepID:    stepID,
		Response:  response,
		FlowType:  models.ConfigFor(c.sess.Flow).WireType,
	}
	slog.Debug("Controller.beginSubmit: submitting", "step_id", stepID, "seq", seq)
	go func() {
		ui, err := c.flow.SubmitStep(ctx, payload)
		c.results <- descriptorResult{op: opSubmit, generation: gen, seq: seq, ui: ui, err: err}
	}()
}

// applyResult applies a transport completion. Responses from a previous
// generation (restart happened) or superseded by a newer request are
// discarded so stale data can never overwrite newer state.
func (c *Controller) applyResult(res descriptorResult) {
	if res.op == opSubmit {
		// Clear the guard even for stale results so the session cannot
		// wedge; staleness only affects whether the descriptor applies.
		if res.generation == c.generation {
			c.submitting = false
		}
	}
	if res.generation != c.generation || res.seq != c.seq {
		slog.Debug("Controller.applyResult: discarding stale response",
			"op", res.op, "generation", res.generation, "seq", res.seq,
			"current_generation", c.generation, "current_seq", c.seq)
		return
	}

	if res.err != nil {
		slog.Error("Controller.applyResult: transport failure", "op", res.op, "error", res.err)
		if res.op == opStart {
			c.timeline.AppendBot(msgStartFailed)
		} else {
			c.timeline.AppendBot(msgSubmitFailed)
		}
		return
	}

	if res.op == opStart {
		c.sess.ID = res.sessionID
		cfg := models.ConfigFor(c.sess.Flow)
		c.surface.SetTitle(cfg.Title)
		c.timeline.AppendBot(cfg.Welcome)
	}
	if res.ui != nil {
		c.renderDescriptor(*res.ui)
	}
}

// renderDescriptor decodes and renders the next widget, echoing heading and
// message as bot bubbles first. ai_report is the one exception: the report
// card carries that text itself, so echoing would duplicate it.
func (c *Controller) renderDescriptor(ui models.UIDescriptor) {
	w, err := widget.FromDescriptor(ui)
	if err != nil {
		slog.Warn("Controller.renderDescriptor: unsupported descriptor", "ui_type", ui.UIType, "step_id", ui.StepID, "error", err)
		return
	}

	c.sess.CurrentStep = ui.StepID
	if _, isReport := w.(widget.AIReport); !isReport {
		c.timeline.AppendBot(ui.Heading)
		c.timeline.AppendBot(ui.Message)
	}

	c.selected = nil
	c.current = w
	c.timeline.AppendUIBlock(w.Markup())
}

func findOption(options []models.Option, id string) (models.Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return models.Option{}, false
}
