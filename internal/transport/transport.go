// Package transport wraps outbound calls to the external flow service.
//
// The flow service is an opaque collaborator: session start, step submit, and
// image upload are single POSTs returning a JSON envelope with the next UI
// descriptor. Network failures and non-JSON bodies normalize into a uniform
// error wrapping ErrTransport so the session controller never has to reason
// about transport details; it renders a generic failure bubble and waits for
// the user to act again. No call is ever retried automatically.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dermatics/derma-wizard/internal/models"
)

// ErrTransport marks any network or parse failure talking to the flow service.
var ErrTransport = errors.New("flow service transport failure")

// Endpoint paths on the flow service, relative to the base URL.
const (
	SessionStartPath = "/api/session/start"
	FlowSubmitPath   = "/api/flow/submit"
	ImageUploadPath  = "/api/flow/upload-image"
)

// DefaultTimeout bounds each flow service call. Image analysis on the far end
// can be slow, so this is generous.
const DefaultTimeout = 60 * time.Second

// Opts holds configuration for the transport client.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option configures the transport client.
type Option func(*Opts)

// WithBaseURL sets the flow service base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the flow service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a flow service client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport base URL not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("transport.NewClient: created", "base_url", cfg.BaseURL)
	return &Client{baseURL: cfg.BaseURL, http: httpClient}, nil
}

// StartSession opens a new assessment session and returns the issued session
// id with the first UI descriptor.
func (c *Client) StartSession(ctx context.Context, platform, flowType string) (string, *models.UIDescriptor, error) {
	req := models.StartSessionRequest{Platform: platform, FlowType: flowType}
	var resp models.StartSessionResponse
	if err := c.postJSON(ctx, SessionStartPath, req, &resp); err != nil {
		return "", nil, err
	}
	if resp.SessionID == "" || resp.UI == nil {
		slog.Warn("transport.StartSession: malformed response", "session_id_set", resp.SessionID != "", "ui_set", resp.UI != nil)
		return "", nil, fmt.Errorf("%w: malformed session start response", ErrTransport)
	}
	return resp.SessionID, resp.UI, nil
}

// SubmitStep posts the user's answer for a step and returns the next UI
// descriptor. A nil descriptor with a nil error means the flow has nothing
// further to render.
func (c *Client) SubmitStep(ctx context.Context, payload models.SubmissionPayload) (*models.UIDescriptor, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	var resp models.StepResponseEnvelope
	if err := c.postJSON(ctx, FlowSubmitPath, payload, &resp); err != nil {
		return nil, err
	}
	return resp.UI, nil
}

// UploadImage sends the user's photo as a multipart form carrying the session
// id, the file, and the active flow as analysis type. The returned descriptor
// is rendered directly by the caller, bypassing step submit.
func (c *Client) UploadImage(ctx context.Context, sessionID, filename string, image io.Reader, analysisType string) (*models.UIDescriptor, error) {
	if sessionID == "" {
		return nil, models.ErrEmptySessionID
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("session_id", sessionID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := form.WriteField("analysis_type", analysisType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	reqID := uuid.NewString()
	slog.Debug("transport.UploadImage: posting", "request_id", reqID, "session_id", sessionID, "analysis_type", analysisType, "filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ImageUploadPath, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp models.StepResponseEnvelope
	if err := c.do(req, reqID, &resp); err != nil {
		return nil, err
	}
	return resp.UI, nil
}

// postJSON issues a JSON POST to the flow service and decodes the response
// into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	reqID := uuid.NewString()
	slog.Debug("transport.postJSON: posting", "request_id", reqID, "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, reqID, out)
}

// do executes the request and decodes the JSON body. The flow service signals
// its own failures inside the JSON envelope, so the status code is not
// inspected beyond what decoding implies; anything that is not JSON is a
// transport failure.
func (c *Client) do(req *http.Request, reqID string, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		slog.Error("transport.do: request failed", "request_id", reqID, "path", req.URL.Path, "error", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		slog.Error("transport.do: non-JSON response", "request_id", reqID, "path", req.URL.Path, "status", res.StatusCode, "error", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	slog.Debug("transport.do: completed", "request_id", reqID, "path", req.URL.Path, "status", res.StatusCode)
	return nil
}
