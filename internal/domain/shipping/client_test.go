// internal/domain/shipping/client_test.go
package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/marketplace-backend/internal/config"
)

func testClient(apiURL string) *Client {
	return NewClient(&config.Config{
		Shipping: config.ShippingConfig{
			RateAPIURL:      apiURL,
			RateAPIToken:    "test-token",
			OriginCEP:       "01310100",
			ItemWeightGrams: 500,
			RequestTimeout:  2 * time.Second,
		},
	})
}

func TestNormalizeCEP(t *testing.T) {
	cep, err := NormalizeCEP("01310-100")
	require.NoError(t, err)
	assert.Equal(t, "01310100", cep)

	cep, err = NormalizeCEP("  04538 132 ")
	require.NoError(t, err)
	assert.Equal(t, "04538132", cep)

	_, err = NormalizeCEP("1234")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = NormalizeCEP("013101000")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestQuoteParsesOffersInOrder(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":17,"name":"Mini Envios","price":9.63,"delivery_time":9,"company":{"name":"Correios"}},
			{"id":1,"name":"PAC","price":21.52,"delivery_time":8,"company":{"name":"Correios"}},
			{"id":2,"name":"SEDEX","price":35.10,"delivery_time":3,"company":{"name":"Correios"}}
		]`))
	}))
	defer server.Close()

	items := []Item{{Quantity: 2, UnitPrice: 1000}, {Quantity: 1, UnitPrice: 5000}}
	options, err := testClient(server.URL).Quote(context.Background(), "04538-132", items)
	require.NoError(t, err)
	require.Len(t, options, 3)

	assert.Equal(t, "Mini Envios", options[0].Service)
	assert.Equal(t, int64(963), options[0].Price)
	assert.Equal(t, "PAC", options[1].Service)
	assert.Equal(t, int64(2152), options[1].Price)
	assert.Equal(t, 3, options[2].DeliveryDays)

	// Request carried the normalized destination and declared value
	to := captured["to"].(map[string]interface{})
	assert.Equal(t, "04538132", to["postal_code"])
	opts := captured["options"].(map[string]interface{})
	assert.InDelta(t, 70.0, opts["insurance_value"], 0.001)
	pkg := captured["package"].(map[string]interface{})
	assert.InDelta(t, 1.5, pkg["weight"], 0.001)
}

func TestQuoteSkipsOffersWithErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":17,"name":"Mini Envios","error":"route not served","company":{"name":"Correios"}},
			{"id":2,"name":"SEDEX","price":12.00,"delivery_time":4,"company":{"name":"Correios"}}
		]`))
	}))
	defer server.Close()

	options, err := testClient(server.URL).Quote(context.Background(), "04538132", []Item{{Quantity: 1, UnitPrice: 100}})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "SEDEX", options[0].Service)
}

func TestQuoteAllOffersFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"PAC","error":"route not served"}]`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Quote(context.Background(), "04538132", []Item{{Quantity: 1, UnitPrice: 100}})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestQuoteCarrierAPIDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Quote(context.Background(), "04538132", []Item{{Quantity: 1, UnitPrice: 100}})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestQuoteInvalidDestination(t *testing.T) {
	// No server needed, the destination is rejected before any call
	_, err := testClient("http://127.0.0.1:0").Quote(context.Background(), "abc", []Item{{Quantity: 1, UnitPrice: 100}})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestQuoteEmptyCart(t *testing.T) {
	_, err := testClient("http://127.0.0.1:0").Quote(context.Background(), "04538132", nil)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}
