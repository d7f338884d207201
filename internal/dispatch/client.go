// Package dispatch provides the HTTP client for the external dispatch and
// routing provider. Only the feasibility check is consumed here; physical
// order creation stays with the provider.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const feasibilityPath = "/v1/feasibility"

// FeasibilityRequest is the stop submitted for a day check.
type FeasibilityRequest struct {
	PropertyID uuid.UUID      `json:"propertyId"`
	Address    string         `json:"address"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	ZoneID     string         `json:"zoneId,omitempty"`
	Day        domain.Weekday `json:"day"`
}

// Client is the HTTP client for the dispatch provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

// New creates a dispatch client from configuration.
func New(cfg config.DispatchConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(cfg.GetDispatchBaseURL(), "/"),
		apiKey:     cfg.GetDispatchAPIKey(),
		log:        log,
	}
}

// CheckFeasibility asks whether the stop can be served on the requested day.
// A non-nil error means no verdict was obtained.
func (c *Client) CheckFeasibility(ctx context.Context, req FeasibilityRequest) (domain.FeasibilityResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.FeasibilityResult{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+feasibilityPath, bytes.NewReader(body))
	if err != nil {
		return domain.FeasibilityResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.FeasibilityResult{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.FeasibilityResult{}, fmt.Errorf("unauthorized: invalid dispatch API key")
	default:
		return domain.FeasibilityResult{}, fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var payload feasibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.FeasibilityResult{}, fmt.Errorf("decode response: %w", err)
	}

	result := domain.FeasibilityResult{Feasible: payload.Feasible, Reason: payload.Reason}
	if payload.SuggestedDay != "" {
		if day, err := domain.ParseWeekday(payload.SuggestedDay); err == nil {
			result.SuggestedDay = &day
		} else {
			c.log.Debug("dispatch suggested unsupported day", "day", payload.SuggestedDay)
		}
	}
	return result, nil
}

type feasibilityResponse struct {
	Feasible     bool   `json:"feasible"`
	SuggestedDay string `json:"suggestedDay"`
	Reason       string `json:"reason"`
}
