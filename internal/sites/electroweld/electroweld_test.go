package electroweld

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricegrid/internal/fetch"
	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

func TestRegistered(t *testing.T) {
	e, ok := sites.Get("ELECTROWELD WEBSITE")
	if !ok {
		t.Fatal("source not registered")
	}
	if e.Pattern != "electroweld website" {
		t.Errorf("pattern = %q", e.Pattern)
	}
}

// A link outside the storefront prefix must be rejected before any
// network traffic.
func TestFetchRejectsForeignLinkWithoutNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("the network must not be touched for an invalid link")
	}))
	defer srv.Close()

	ex, err := New(sites.Env{Client: fetch.NewClient(time.Second)})
	if err != nil {
		t.Fatal(err)
	}

	_, err = ex.Fetch(context.Background(), srv.URL+"/product/viper-185")
	var f *source.Failure
	if !errors.As(err, &f) {
		t.Fatalf("error %v is not a *source.Failure", err)
	}
	if f.Kind != source.KindInvalidURL {
		t.Errorf("kind = %v, want %v", f.Kind, source.KindInvalidURL)
	}
}

func TestFetchEmptyLink(t *testing.T) {
	ex, err := New(sites.Env{Client: fetch.NewClient(time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	_, err = ex.Fetch(context.Background(), "")
	var f *source.Failure
	if !errors.As(err, &f) || f.Kind != source.KindInvalidURL {
		t.Errorf("error = %v, want an invalid_url failure", err)
	}
}
