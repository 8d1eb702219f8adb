package widget

import (
	"html"
	"sort"
	"strconv"
	"strings"
)

// Interaction events the host shim echoes back over the wire. Controls carry
// a data-ev attribute naming the event and a data-id attribute carrying the
// control's value.
const (
	EvSelect   = "select"
	EvToggle   = "toggle"
	EvContinue = "continue"
	EvUpload   = "upload"
	EvAction   = "action"
	EvAddOne   = "add"
	EvAddAll   = "add-all"
	EvAlert    = "alert"
)

func esc(s string) string { return html.EscapeString(s) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Markup renders the card grid.
func (w CardSelect) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="card-select-grid">`)
	for _, o := range w.Options {
		sb.WriteString(`<div class="card-select-item" data-ev="` + EvSelect + `" data-id="` + esc(o.ID) + `">`)
		if o.Image != "" {
			sb.WriteString(`<img src="` + esc(o.Image) + `" alt="" />`)
		}
		sb.WriteString(`<div class="title">` + esc(o.Label) + `</div></div>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// Markup renders the pill row.
func (w PillList) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="pill-list">`)
	for _, o := range w.Options {
		sb.WriteString(`<div class="pill-item" data-ev="` + EvSelect + `" data-id="` + esc(o.ID) + `">` + esc(o.Label) + `</div>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// Markup renders the button row.
func (w ButtonList) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="btn-list">`)
	for _, o := range w.Options {
		sb.WriteString(`<button class="figma-btn" data-ev="` + EvSelect + `" data-id="` + esc(o.ID) + `">` + esc(o.Label) + `</button>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// Markup renders the toggle grid and its continue button.
func (w MultiSelect) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="goal-grid">`)
	for _, o := range w.Options {
		sb.WriteString(`<div class="goal-item" data-ev="` + EvToggle + `" data-id="` + esc(o.ID) + `">` + esc(o.Label) + `</div>`)
	}
	sb.WriteString(`</div>`)
	sb.WriteString(`<button class="figma-btn primary" id="multi-` + esc(w.StepID) + `" data-ev="` + EvContinue + `">Continue</button>`)
	return sb.String()
}

// Markup renders the file picker.
func (w ImageUpload) Markup() string {
	return `<input type="file" id="img-upload" accept="image/*" data-ev="` + EvUpload + `" />`
}

// Markup renders the per-metric percentage cards in sorted metric order so
// output does not depend on map iteration.
func (w AnalysisCards) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="analysis-grid">`)
	for _, metric := range sortedKeys(w.Results) {
		pct := strconv.FormatFloat(w.Results[metric], 'f', -1, 64)
		sb.WriteString(`<div class="analysis-card"><b>` + esc(metric) + `</b><div>` + pct + `%</div></div>`)
	}
	sb.WriteString(`</div>`)
	sb.WriteString(`<button class="figma-btn primary" id="analysis-continue" data-ev="` + EvContinue + `">Continue</button>`)
	return sb.String()
}

// Markup renders the grouped product grid. Groups render in sorted name
// order; the ADD control is always present even when a product has no
// variant, in which case clicking it alerts instead of posting.
func (w ProductRoutine) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="routine-wrapper"><h3>Your Personalized <span>Routine</span></h3>`)
	for _, group := range sortedKeys(w.Routine) {
		sb.WriteString(`<div class="routine-step"><h4>` + esc(group) + `</h4><div class="product-grid">`)
		for _, p := range w.Routine[group] {
			badge, badgeText := "alt", "Alternative"
			if p.Recommended {
				badge, badgeText = "rec", "Recommended"
			}
			sb.WriteString(`<div class="product-card">`)
			sb.WriteString(`<div class="badge ` + badge + `">` + badgeText + `</div>`)
			sb.WriteString(`<img src="` + esc(p.Image) + `" alt="" />`)
			sb.WriteString(`<div class="product-title">` + esc(p.Title) + `</div>`)
			sb.WriteString(`<div class="price">₹` + esc(p.Price))
			if p.MRP != "" {
				sb.WriteString(` <span>₹` + esc(p.MRP) + `</span>`)
			}
			sb.WriteString(`</div>`)
			sb.WriteString(`<button class="add-btn" data-ev="` + EvAddOne + `" data-variant="` + esc(p.VariantID) + `">ADD</button>`)
			sb.WriteString(`</div>`)
		}
		sb.WriteString(`</div></div>`)
	}
	sb.WriteString(`<button class="figma-btn primary add-all" data-ev="` + EvAddAll + `">Add All to Cart</button>`)
	sb.WriteString(`<button class="figma-btn primary" id="next-ai-report-` + esc(w.StepID) + `" data-ev="` + EvContinue + `">Next AI Doctor’s Report</button>`)
	sb.WriteString(`</div>`)
	return sb.String()
}

// Markup renders the terminal report card. Heading and message live inside
// the card; the download control links to the PDF when one exists and
// otherwise raises the still-generating alert rather than a broken link.
func (w AIReport) Markup() string {
	heading := w.Heading
	if heading == "" {
		heading = "AI Doctor's Report"
	}
	message := w.Message
	if message == "" {
		message = "Here is a summary of your analysis and personalized plan."
	}

	var sb strings.Builder
	sb.WriteString(`<div class="ai-report-wrapper">`)
	sb.WriteString(`<span class="step">` + esc(heading) + `</span>`)
	sb.WriteString(`<p>` + esc(message) + `</p>`)
	sb.WriteString(`<div class="ai-report-card-main"><div class="ai-report-card-top">`)
	sb.WriteString(`<div class="icon">🧑‍⚕️</div>`)
	sb.WriteString(`<div class="text"><h4>AI Doctor's Report</h4><p><b>Personalized Skincare Plan</b></p>`)
	sb.WriteString(`<p class="date">Generated on: ` + esc(w.GeneratedOn) + `</p></div></div>`)
	if w.PDFURL != "" {
		sb.WriteString(`<a class="ai-report-download-btn" href="` + esc(w.PDFURL) + `" target="_blank" rel="noopener">⬇ Download Report</a>`)
	} else {
		sb.WriteString(`<button class="ai-report-download-btn" data-ev="` + EvAlert + `" data-msg="Report is still generating. Please try again in a moment.">⬇ Download Report</button>`)
	}
	sb.WriteString(`</div>`)
	sb.WriteString(`<div class="ai-report-actions">`)
	sb.WriteString(`<button class="figma-btn" data-ev="` + EvAction + `" data-id="start-over">Start Over</button>`)
	sb.WriteString(`<button class="figma-btn primary" data-ev="` + EvAction + `" data-id="ai_assistant">AI Assistant</button>`)
	sb.WriteString(`</div></div>`)
	return sb.String()
}

// Markup renders the named action buttons.
func (w FinalActions) Markup() string {
	var sb strings.Builder
	sb.WriteString(`<div class="final-actions">`)
	for _, a := range w.Actions {
		sb.WriteString(`<button class="figma-btn" data-ev="` + EvAction + `" data-id="` + esc(a.ID) + `">` + esc(a.Label) + `</button>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// DisplayLabel is the text shown in the user bubble when the button fires.
func (w ActionButton) DisplayLabel() string {
	if w.Label != "" {
		return w.Label
	}
	return "Continue"
}

// SubmitValue is the response value sent to step submit.
func (w ActionButton) SubmitValue() string {
	if w.Value != "" {
		return w.Value
	}
	return "continue"
}

// Markup renders the single action button.
func (w ActionButton) Markup() string {
	return `<div class="action-button-wrapper">` +
		`<button class="figma-btn primary" id="action-` + esc(w.StepID) + `" data-ev="` + EvSelect + `" data-id="` + esc(w.SubmitValue()) + `">` +
		esc(w.DisplayLabel()) + `</button></div>`
}
