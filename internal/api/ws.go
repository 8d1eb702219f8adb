package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dermatics/derma-wizard/internal/session"
)

// maxSocketMessageBytes bounds inbound frames. Photo uploads arrive base64
// encoded, so the limit is well above the flow service's image cap.
const maxSocketMessageBytes = 10 << 20

// frame is one outbound message to the widget shim.
type frame struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	HTML  string `json:"html,omitempty"`
	Text  string `json:"text,omitempty"`
}

// clientEvent is one inbound message from the widget shim. Data carries the
// base64 photo bytes for upload events.
type clientEvent struct {
	Type   string `json:"type"`
	StepID string `json:"step_id,omitempty"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Data   string `json:"data,omitempty"`
}

// wsSurface renders controller output onto one WebSocket connection.
// Writes use a background context so an in-flight render is not torn off
// mid-frame when the read loop cancels; the mutex serializes frames.
type wsSurface struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSurface) Open() { s.send(frame{Type: "open"}) }

func (s *wsSurface) SetTitle(title string) { s.send(frame{Type: "title", Title: title}) }

func (s *wsSurface) RenderTimeline(html string) { s.send(frame{Type: "render", HTML: html}) }

func (s *wsSurface) Alert(text string) { s.send(frame{Type: "alert", Text: text}) }

func (s *wsSurface) send(f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("wsSurface.send: failed to marshal frame", "error", err, "type", f.Type)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("wsSurface.send: write failed", "error", err, "type", f.Type)
	}
}

// widgetSocketHandler upgrades the request and runs one widget session until
// the client disconnects. Each connection gets its own controller.
func (s *Server) widgetSocketHandler(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Server.widgetSocketHandler: failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	ws.SetReadLimit(maxSocketMessageBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Server.widgetSocketHandler: failed to close websocket", "error", closeErr)
		}
	}()

	instanceID := uuid.NewString()
	s.instances.Add(instanceID)
	defer s.instances.Remove(instanceID)
	slog.Info("Server.widgetSocketHandler: widget connected", "instance_id", instanceID, "ip", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctrl := session.New(s.flow, s.cart, &wsSurface{conn: ws}, session.Config{Platform: "web"})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	s.readLoop(ctx, ws, ctrl, instanceID)

	cancel()
	<-done
	slog.Info("Server.widgetSocketHandler: widget disconnected", "instance_id", instanceID)
}

// readLoop decodes inbound frames and dispatches them to the controller.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, ctrl *session.Controller, instanceID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Server.readLoop: closed by client", "instance_id", instanceID)
			} else if ctx.Err() == nil {
				slog.Warn("Server.readLoop: read error", "error", err, "instance_id", instanceID)
			}
			return
		}

		var msg clientEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Server.readLoop: malformed frame", "error", err, "instance_id", instanceID)
			continue
		}

		ev, err := decodeEvent(msg)
		if err != nil {
			slog.Warn("Server.readLoop: dropping frame", "error", err, "instance_id", instanceID, "type", msg.Type)
			continue
		}
		ctrl.Dispatch(ev)
	}
}

// decodeEvent maps a client frame onto a controller event.
func decodeEvent(msg clientEvent) (session.Event, error) {
	ev := session.Event{
		Type:   session.EventType(msg.Type),
		StepID: msg.StepID,
		ID:     msg.ID,
	}
	switch ev.Type {
	case session.EventStart, session.EventSelect, session.EventToggle,
		session.EventContinue, session.EventAction,
		session.EventAddToCart, session.EventAddAll:
	case session.EventUpload:
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return session.Event{}, fmt.Errorf("decode image data: %w", err)
		}
		name := msg.Name
		if name == "" {
			name = "photo.jpg"
		}
		ev.File = &session.ImageFile{Name: name, Data: raw}
	default:
		return session.Event{}, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return ev, nil
}

// checkOrigin rejects cross-origin WebSocket upgrades outside development.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.IsDevelopment() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.AllowedOrigin == "*" || origin == s.cfg.AllowedOrigin {
		return true
	}
	slog.Warn("Server.checkOrigin: origin rejected", "origin", origin, "allowed", s.cfg.AllowedOrigin)
	return false
}
