package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBridge(t *testing.T, handler http.HandlerFunc) *Bridge {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	b, err := NewBridge(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("failed to create bridge: %v", err)
	}
	return b
}

func TestAddOne(t *testing.T) {
	var got Item
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != AddPath {
			t.Errorf("expected path %s, got %s", AddPath, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := b.AddOne(context.Background(), "4411"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 4411 || got.Quantity != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestAddOneMissingVariant(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("missing variant must not reach the wire")
	})
	if err := b.AddOne(context.Background(), ""); !errors.Is(err, ErrMissingVariant) {
		t.Errorf("expected ErrMissingVariant, got %v", err)
	}
	if err := b.AddOne(context.Background(), "not-a-number"); !errors.Is(err, ErrMissingVariant) {
		t.Errorf("expected ErrMissingVariant for non-numeric id, got %v", err)
	}
}

func TestAddAllFiltersMissingVariants(t *testing.T) {
	var got struct {
		Items []Item `json:"items"`
	}
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	// Three rendered products, only two carry a variant id.
	count, err := b.AddAll(context.Background(), []string{"11", "", "33"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(got.Items) != 2 {
		t.Fatalf("expected exactly 2 items posted, got count=%d items=%+v", count, got.Items)
	}
	if got.Items[0].ID != 11 || got.Items[1].ID != 33 {
		t.Errorf("unexpected items: %+v", got.Items)
	}
}

func TestAddAllEmpty(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty add-all must not reach the wire")
	})
	if _, err := b.AddAll(context.Background(), []string{"", ""}); !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
}

func TestAddOneStorefrontError(t *testing.T) {
	b := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	if err := b.AddOne(context.Background(), "42"); err == nil {
		t.Error("expected error for storefront rejection")
	}
}
