// Package cart translates selected product variants into the storefront
// cart-add protocol.
//
// Cart adds are side effects only: they never touch assessment flow state,
// and a failure is surfaced to the user without blocking the flow.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Error variables surfaced as user-visible alerts by the session controller.
var (
	ErrMissingVariant = errors.New("product variant missing")
	ErrNoItems        = errors.New("no products available to add")
)

// AddPath is the storefront cart-add endpoint, relative to the cart base URL.
const AddPath = "/cart/add.js"

// DefaultTimeout bounds each cart call.
const DefaultTimeout = 15 * time.Second

// Item is one line of a cart add.
type Item struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// Opts holds configuration for the cart bridge.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option configures the cart bridge.
type Option func(*Opts)

// WithBaseURL sets the storefront base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Bridge posts cart adds to the storefront.
type Bridge struct {
	baseURL string
	http    *http.Client
}

// NewBridge creates a cart bridge.
func NewBridge(opts ...Option) (*Bridge, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cart base URL not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("cart.NewBridge: created", "base_url", cfg.BaseURL)
	return &Bridge{baseURL: cfg.BaseURL, http: httpClient}, nil
}

// AddOne posts a single-item add. An absent variant id is a validation
// error the caller surfaces as an alert; nothing is posted.
func (b *Bridge) AddOne(ctx context.Context, variantID string) error {
	if variantID == "" {
		return ErrMissingVariant
	}
	id, err := strconv.ParseInt(variantID, 10, 64)
	if err != nil {
		slog.Warn("cart.AddOne: non-numeric variant id", "variant_id", variantID)
		return fmt.Errorf("%w: %q", ErrMissingVariant, variantID)
	}
	slog.Debug("cart.AddOne: posting", "variant_id", id)
	return b.post(ctx, Item{ID: id, Quantity: 1})
}

// AddAll collects every available variant id and posts a single multi-item
// add. Empty ids are skipped. Returns the number of items posted; posting
// nothing is ErrNoItems.
func (b *Bridge) AddAll(ctx context.Context, variantIDs []string) (int, error) {
	var items []Item
	for _, v := range variantIDs {
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("cart.AddAll: skipping non-numeric variant id", "variant_id", v)
			continue
		}
		items = append(items, Item{ID: id, Quantity: 1})
	}
	if len(items) == 0 {
		return 0, ErrNoItems
	}
	slog.Debug("cart.AddAll: posting", "count", len(items))
	if err := b.post(ctx, map[string][]Item{"items": items}); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (b *Bridge) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cart: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+AddPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cart: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.http.Do(req)
	if err != nil {
		slog.Error("cart.post: request failed", "error", err)
		return fmt.Errorf("cart: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		slog.Warn("cart.post: storefront rejected add", "status", res.StatusCode)
		return fmt.Errorf("cart: storefront returned status %d", res.StatusCode)
	}
	return nil
}
