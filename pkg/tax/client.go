package tax

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

// Client calls the external tax quoting service. Tax is authoritative for
// checkout totals, so callers must treat any failure here as fatal to the
// quote rather than substituting zero.
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

// NewClient builds the tax client from config.
func NewClient(cfg config.TaxConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("tax base URL is required")
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

// QuoteRequest is the payload sent to the tax service.
type QuoteRequest struct {
	Currency      string      `json:"currency"`
	SubtotalCents int64       `json:"subtotal_cents"`
	Lines         []QuoteLine `json:"lines"`
	Address       QuoteAddr   `json:"address"`
}

// QuoteLine is a single taxable line.
type QuoteLine struct {
	ProductRef     string `json:"product_ref"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// QuoteAddr carries the address fields tax jurisdictions key on.
type QuoteAddr struct {
	City    string `json:"city"`
	Zip     string `json:"zip,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country"`
}

// AddrFromAddress maps a stored address onto the tax service payload.
func AddrFromAddress(addr types.Address) QuoteAddr {
	out := QuoteAddr{City: addr.City, Country: addr.Country}
	if addr.Zip != nil {
		out.Zip = *addr.Zip
	}
	if addr.State != nil {
		out.State = *addr.State
	}
	return out
}

// Quote returns the tax amount in cents for the given request.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "tax client not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal tax quote request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/quotes", bytes.NewReader(payload))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build tax quote request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute tax quote request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"tax quote request failed")
	}

	var apiResp struct {
		TaxCents int64 `json:"tax_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tax quote response")
	}
	if apiResp.TaxCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "tax service returned a negative amount")
	}

	return apiResp.TaxCents, nil
}
