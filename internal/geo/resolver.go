package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Unknown is the sentinel stored when a lookup cannot resolve a location.
// It is a real value, not absence.
const Unknown = "Unknown"

// Resolver looks up country and city for an IP address via ip-api.com.
// Lookup failures are absorbed, never propagated: event ingestion must not
// fail because geolocation did.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewResolver returns a resolver with a bounded request timeout. The timeout
// caps how long the tracking write path can stall on the lookup.
func NewResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// Resolve returns (country, city) for ip. Loopback and local addresses map
// to ("Local", "Development") without a network call. Transport errors,
// non-200 responses, undecodable bodies, and failed lookups all degrade to
// the Unknown sentinel pair.
func (r *Resolver) Resolve(ctx context.Context, ip string) (string, string) {
	if ip == "127.0.0.1" || ip == "::1" || ip == "localhost" {
		return "Local", "Development"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.baseURL, ip), nil)
	if err != nil {
		return Unknown, Unknown
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return Unknown, Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("geolocation lookup non-200", zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return Unknown, Unknown
	}

	var data lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		r.logger.Debug("geolocation response decode failed", zap.String("ip", ip), zap.Error(err))
		return Unknown, Unknown
	}
	if data.Status != "success" {
		return Unknown, Unknown
	}

	country, city := data.Country, data.City
	if country == "" {
		country = Unknown
	}
	if city == "" {
		city = Unknown
	}
	return country, city
}
