package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dermatics/derma-wizard/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, srv
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error for missing base URL")
	}
}

func TestStartSession(t *testing.T) {
	var gotPath string
	var gotBody models.StartSessionRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(models.StartSessionResponse{
			SessionID: "sess-1",
			UI:        &models.UIDescriptor{StepID: "choose_concern", UIType: models.UITypeCardSelect},
		})
	})

	id, ui, err := c.StartSession(context.Background(), "web", "skin_flow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != SessionStartPath {
		t.Errorf("expected path %s, got %s", SessionStartPath, gotPath)
	}
	if gotBody.Platform != "web" || gotBody.FlowType != "skin_flow" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if id != "sess-1" || ui.StepID != "choose_concern" {
		t.Errorf("unexpected response: id=%q ui=%+v", id, ui)
	}
}

func TestStartSessionMalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"error": true})
	})
	_, _, err := c.StartSession(context.Background(), "web", "skin_flow")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport for missing session id, got %v", err)
	}
}

func TestSubmitStep(t *testing.T) {
	var gotRaw map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != FlowSubmitPath {
			t.Errorf("expected path %s, got %s", FlowSubmitPath, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRaw); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(models.StepResponseEnvelope{
			UI: &models.UIDescriptor{StepID: "skin_type", UIType: models.UITypePillList},
		})
	})

	ui, err := c.SubmitStep(context.Background(), models.SubmissionPayload{
		SessionID: "sess-1",
		StepID:    "choose_concern",
		Response:  models.SingleResponse("skin_assessment"),
		FlowType:  "skin_flow",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ui.StepID != "skin_type" {
		t.Errorf("unexpected descriptor: %+v", ui)
	}
	// Single responses must go out as a bare string.
	if string(gotRaw["response"]) != `"skin_assessment"` {
		t.Errorf("single response must marshal as string, got %s", gotRaw["response"])
	}
	if string(gotRaw["flowType"]) != `"skin_flow"` {
		t.Errorf("flowType missing from payload: %v", gotRaw)
	}
}

func TestSubmitStepValidates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid payload must not reach the wire")
	})
	_, err := c.SubmitStep(context.Background(), models.SubmissionPayload{})
	if !errors.Is(err, models.ErrEmptySessionID) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSubmitStepNonJSONResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		if _, err := w.Write([]byte("<html>502</html>")); err != nil {
			t.Errorf("write failed: %v", err)
		}
	})
	_, err := c.SubmitStep(context.Background(), models.SubmissionPayload{
		SessionID: "s", StepID: "x", Response: models.SingleResponse("y"), FlowType: "skin_flow",
	})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport for non-JSON body, got %v", err)
	}
}

func TestSubmitStepNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close() // connection refused from here on

	c, err := NewClient(WithBaseURL(baseURL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	_, err = c.SubmitStep(context.Background(), models.SubmissionPayload{
		SessionID: "s", StepID: "x", Response: models.SingleResponse("y"), FlowType: "skin_flow",
	})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport for network failure, got %v", err)
	}
}

func TestUploadImage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ImageUploadPath {
			t.Errorf("expected path %s, got %s", ImageUploadPath, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart form: %v", err)
		}
		if got := r.FormValue("session_id"); got != "sess-1" {
			t.Errorf("expected session_id field, got %q", got)
		}
		if got := r.FormValue("analysis_type"); got != "skin" {
			t.Errorf("expected analysis_type field, got %q", got)
		}
		file, hdr, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("expected image file: %v", err)
		}
		defer file.Close()
		if hdr.Filename != "face.jpg" {
			t.Errorf("expected filename face.jpg, got %q", hdr.Filename)
		}
		json.NewEncoder(w).Encode(models.StepResponseEnvelope{
			UI: &models.UIDescriptor{StepID: "analysis", UIType: models.UITypeAnalysisCards},
		})
	})

	ui, err := c.UploadImage(context.Background(), "sess-1", "face.jpg", strings.NewReader("jpegbytes"), "skin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ui.StepID != "analysis" {
		t.Errorf("unexpected descriptor: %+v", ui)
	}
}

func TestUploadImageRequiresSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upload without a session must not reach the wire")
	})
	_, err := c.UploadImage(context.Background(), "", "face.jpg", strings.NewReader("x"), "skin")
	if !errors.Is(err, models.ErrEmptySessionID) {
		t.Errorf("expected ErrEmptySessionID, got %v", err)
	}
}
