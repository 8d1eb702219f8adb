// Package timeline provides the append-only chat transcript for the widget.
//
// Entries are stored in insertion order, which is rendering order. Bot and
// user text is HTML-escaped at append time so nothing stored in a text entry
// can inject markup; UI blocks carry pre-rendered markup that was built from
// escaped field values by the widget package.
package timeline

import (
	"html"
	"strings"
)

// Kind tags the variant of a timeline entry.
type Kind string

const (
	// KindBot is a bot chat bubble.
	KindBot Kind = "bot"
	// KindUser is a user chat bubble.
	KindUser Kind = "user"
	// KindUIBlock is an embedded interactive widget block.
	KindUIBlock Kind = "ui"
)

// Entry is one turn in the transcript. Exactly one of Text or HTML is
// meaningful depending on Kind.
type Entry struct {
	Kind Kind
	Text string // escaped text for bot/user bubbles
	HTML string // trusted markup for UI blocks
}

// Store is the append-only transcript. It is owned and mutated exclusively by
// the session controller's event loop; it performs no locking of its own.
type Store struct {
	entries  []Entry
	onChange func()
}

// New creates an empty transcript store.
func New() *Store {
	return &Store{}
}

// OnChange registers a callback invoked after every append and reset. The
// controller uses it to push a fresh render to the surface.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

// AppendBot appends a bot bubble. Empty text is ignored, matching the
// original widget which skips blank headings and messages.
func (s *Store) AppendBot(text string) {
	if text == "" {
		return
	}
	s.entries = append(s.entries, Entry{Kind: KindBot, Text: html.EscapeString(text)})
	s.notify()
}

// AppendUser appends a user bubble.
func (s *Store) AppendUser(text string) {
	s.entries = append(s.entries, Entry{Kind: KindUser, Text: html.EscapeString(text)})
	s.notify()
}

// AppendUIBlock appends a pre-rendered widget block. The markup must already
// be built from escaped field values.
func (s *Store) AppendUIBlock(markup string) {
	s.entries = append(s.entries, Entry{Kind: KindUIBlock, HTML: markup})
	s.notify()
}

// Reset discards the transcript, as happens on session restart.
func (s *Store) Reset() {
	s.entries = nil
	s.notify()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the transcript for inspection.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Render serializes the full transcript to chat-screen HTML in insertion
// order. It is idempotent: rendering twice with unchanged state produces
// identical output.
func (s *Store) Render() string {
	var sb strings.Builder
	for _, e := range s.entries {
		switch e.Kind {
		case KindBot:
			sb.WriteString(`<div class="chat-row bot"><div class="bubble bot-bubble">`)
			sb.WriteString(e.Text)
			sb.WriteString(`</div></div>`)
		case KindUser:
			sb.WriteString(`<div class="chat-row user"><div class="bubble user-bubble">`)
			sb.WriteString(e.Text)
			sb.WriteString(`</div></div>`)
		case KindUIBlock:
			sb.WriteString(`<div class="chat-ui-block">`)
			sb.WriteString(e.HTML)
			sb.WriteString(`</div>`)
		}
	}
	return sb.String()
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
