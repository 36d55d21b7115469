// internal/domain/shipping/client.go
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/your-org/marketplace-backend/internal/config"
)

// ErrQuoteUnavailable covers every reason a quote cannot be produced:
// malformed destination, carrier API down, or no carrier serving the
// route. Callers treat them all the same way.
var ErrQuoteUnavailable = errors.New("shipping quote unavailable")

// Item is the subset of a cart line the rate API needs
type Item struct {
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// Option is one carrier offer. Order follows the carrier API response.
type Option struct {
	ID           int    `json:"id"`
	Carrier      string `json:"carrier"`
	Service      string `json:"service"`
	Price        int64  `json:"price"` // cents
	DeliveryDays int    `json:"delivery_days"`
}

// Client quotes shipping rates from an external carrier API
type Client struct {
	config *config.Config
	client *http.Client
}

// NewClient creates a new shipping rate client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Shipping.RequestTimeout},
	}
}

// rateRequest is the carrier API request body
type rateRequest struct {
	From     rateEndpoint `json:"from"`
	To       rateEndpoint `json:"to"`
	Package  ratePackage  `json:"package"`
	Options  rateOptions  `json:"options"`
	Services string       `json:"services"`
}

type rateEndpoint struct {
	PostalCode string `json:"postal_code"`
}

type ratePackage struct {
	Weight float64 `json:"weight"` // kg
	Height int     `json:"height"` // cm
	Width  int     `json:"width"`
	Length int     `json:"length"`
}

type rateOptions struct {
	InsuranceValue float64 `json:"insurance_value"` // BRL
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
}

// rateOffer is one entry of the carrier API response
type rateOffer struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"` // BRL
	DeliveryTime int     `json:"delivery_time"`
	Error        string  `json:"error,omitempty"`
	Company      struct {
		Name string `json:"name"`
	} `json:"company"`
}

// Quote returns the carrier options for delivering items to destCEP.
// The option order of the carrier response is preserved.
func (c *Client) Quote(ctx context.Context, destCEP string, items []Item) ([]Option, error) {
	dest, err := NormalizeCEP(destCEP)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing to ship", ErrQuoteUnavailable)
	}

	totalQuantity := 0
	var declaredValue int64
	for _, item := range items {
		totalQuantity += item.Quantity
		declaredValue += item.UnitPrice * int64(item.Quantity)
	}

	payload := rateRequest{
		From:    rateEndpoint{PostalCode: c.config.Shipping.OriginCEP},
		To:      rateEndpoint{PostalCode: dest},
		Package: c.packageFor(totalQuantity),
		Options: rateOptions{
			InsuranceValue: float64(declaredValue) / 100,
		},
		Services: "1,2,17",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Shipping.RateAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.config.Shipping.RateAPIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: carrier API returned status %d: %s",
			ErrQuoteUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var offers []rateOffer
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, fmt.Errorf("%w: malformed carrier response: %v", ErrQuoteUnavailable, err)
	}

	options := make([]Option, 0, len(offers))
	for _, offer := range offers {
		// Routes the carrier cannot serve come back as entries with an
		// error field instead of being omitted
		if offer.Error != "" {
			continue
		}
		options = append(options, Option{
			ID:           offer.ID,
			Carrier:      offer.Company.Name,
			Service:      offer.Name,
			Price:        int64(math.Round(offer.Price * 100)),
			DeliveryDays: offer.DeliveryTime,
		})
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no carrier serves this route", ErrQuoteUnavailable)
	}
	return options, nil
}

// packageFor estimates package dimensions from the item count. The
// catalog does not track real weight so a fixed per-item proxy is used.
func (c *Client) packageFor(totalQuantity int) ratePackage {
	weightKg := float64(c.config.Shipping.ItemWeightGrams*totalQuantity) / 1000
	return ratePackage{
		Weight: weightKg,
		Height: 10,
		Width:  20,
		Length: 20,
	}
}

// NormalizeCEP strips formatting from a Brazilian postal code and
// validates it has exactly 8 digits
func NormalizeCEP(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cep := b.String()
	if len(cep) != 8 {
		return "", fmt.Errorf("%w: invalid postal code %q", ErrQuoteUnavailable, raw)
	}
	return cep, nil
}
