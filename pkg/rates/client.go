package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmoratto/storefront-backend/pkg/config"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
	"github.com/dmoratto/storefront-backend/pkg/types"
)

const responseBodyReadLimit int64 = 1024

// Client calls the external carrier rating service. Unlike tax, a failed
// rate lookup is survivable: callers fall back to a zero delivery price and
// surface a warning on the order.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the carrier rating client from config.
func NewClient(cfg config.RatesConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("rates base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// RateRequest is the payload sent to the rating service.
type RateRequest struct {
	CarrierRef    string   `json:"carrier_ref"`
	Currency      string   `json:"currency"`
	SubtotalCents int64    `json:"subtotal_cents"`
	Destination   RateAddr `json:"destination"`
}

// RateAddr carries the destination fields carriers rate on.
type RateAddr struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country"`
}

// AddrFromAddress maps a stored shipping address onto the rating payload.
func AddrFromAddress(addr types.Address) RateAddr {
	out := RateAddr{Street: addr.Street, City: addr.City, Country: addr.Country}
	if addr.Zip != nil {
		out.Zip = *addr.Zip
	}
	if addr.State != nil {
		out.State = *addr.State
	}
	return out
}

// Quote returns the delivery price in cents for the given carrier and
// destination.
func (c *Client) Quote(ctx context.Context, req RateRequest) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "rates client not configured")
	}
	if strings.TrimSpace(req.CarrierRef) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "carrier reference is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal rate request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rates", bytes.NewReader(payload))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build rate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"rate request failed")
	}

	var apiResp struct {
		PriceCents int64 `json:"price_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}
	if apiResp.PriceCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "rating service returned a negative price")
	}

	return apiResp.PriceCents, nil
}
