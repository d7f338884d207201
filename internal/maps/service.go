package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Service talks to a Nominatim-compatible geocoding provider.
type Service struct {
	client       *http.Client
	baseURL      string
	userAgent    string
	countryCodes string
	limiter      *rate.Limiter
	log          *logger.Logger
}

func NewService(cfg config.GeocoderConfig, log *logger.Logger) *Service {
	perSecond := cfg.GetGeocoderRatePerSecond()
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &Service{
		client:       &http.Client{Timeout: 5 * time.Second},
		baseURL:      cfg.GetGeocoderURL(),
		userAgent:    cfg.GetGeocoderUserAgent(),
		countryCodes: cfg.GetGeocoderCountryCodes(),
		limiter:      rate.NewLimiter(limit, 1),
		log:          log,
	}
}

// Geocode resolves a free-form address to coordinates. It returns nil, nil
// when the provider has no result for the address.
func (s *Service) Geocode(ctx context.Context, address string) (*zones.Point, error) {
	raw, err := s.search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(raw[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", raw[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(raw[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", raw[0].Lon, err)
	}

	return &zones.Point{Lat: lat, Lng: lng}, nil
}

// SearchAddress returns up to five normalized suggestions for an address form.
func (s *Service) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	rawResults, err := s.search(ctx, query, 5)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(rawResults))
	for _, raw := range rawResults {
		suggestion, ok := buildSuggestion(raw)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	if s.countryCodes != "" {
		params.Add("countrycodes", s.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder upstream error: %d", resp.StatusCode)
	}

	var rawResults []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		return nil, fmt.Errorf("decode geocoder payload: %w", err)
	}
	return rawResults, nil
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}

	city := pickCity(raw.Address)
	if city == "" {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:      raw.Address.Road,
		HouseNumber: raw.Address.HouseNumber,
		ZipCode:     raw.Address.Postcode,
		State:       raw.Address.State,
		City:        city,
		Lat:         raw.Lat,
		Lon:         raw.Lon,
	}
	suggestion.Label = buildLabel(suggestion)

	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	for _, candidate := range []string{address.City, address.Town, address.Village, address.Hamlet} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func buildLabel(s AddressSuggestion) string {
	street := strings.TrimSpace(s.HouseNumber + " " + s.Street)
	parts := []string{street, s.City}
	if s.State != "" || s.ZipCode != "" {
		parts = append(parts, strings.TrimSpace(s.State+" "+s.ZipCode))
	}
	return strings.Join(parts, ", ")
}
