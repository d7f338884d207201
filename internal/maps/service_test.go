package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"collection_portal_backend/platform/logger"
)

type testGeocoderConfig struct {
	url string
}

func (c testGeocoderConfig) GetGeocoderURL() string            { return c.url }
func (c testGeocoderConfig) GetGeocoderUserAgent() string      { return "test-agent" }
func (c testGeocoderConfig) GetGeocoderCountryCodes() string   { return "us" }
func (c testGeocoderConfig) GetGeocoderRatePerSecond() float64 { return 0 }

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(testGeocoderConfig{url: srv.URL}, logger.NewNop())
}

func TestGeocodeParsesFirstResult(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "1 Main St, Front Royal" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("missing user agent")
		}
		_, _ = w.Write([]byte(`[{"lat":"38.85","lon":"-78.2","address":{"road":"Main St","city":"Front Royal"}}]`))
	})

	point, err := svc.Geocode(context.Background(), "1 Main St, Front Royal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if point == nil || point.Lat != 38.85 || point.Lng != -78.2 {
		t.Fatalf("unexpected point: %+v", point)
	}
}

func TestGeocodeNotFoundReturnsNil(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	point, err := svc.Geocode(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if point != nil {
		t.Fatalf("expected nil point, got %+v", point)
	}
}

func TestGeocodeUpstreamError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := svc.Geocode(context.Background(), "1 Main St"); err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestSearchAddressSkipsIncompleteResults(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"lat":"1","lon":"2","address":{"road":"","city":"Nowhere"}},
			{"lat":"3","lon":"4","address":{"road":"Main St","house_number":"12","town":"Front Royal","state":"Virginia","postcode":"22630"}}
		]`))
	})

	results, err := svc.SearchAddress(context.Background(), "12 Main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(results))
	}
	if results[0].Label != "12 Main St, Front Royal, Virginia 22630" {
		t.Fatalf("unexpected label %q", results[0].Label)
	}
}
