package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "order-1", req.ExternalReference)
		require.Len(t, req.Items, 1)
		assert.True(t, decimal.NewFromInt(45000).Equal(req.Items[0].UnitPrice))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.test/checkout/pref-1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	pref, err := client.CreatePreference(context.Background(), &PreferenceRequest{
		Items:             []Item{{Title: "Aretes", Quantity: 2, UnitPrice: decimal.NewFromInt(45000), CurrencyID: "COP"}},
		ExternalReference: "order-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp.test/checkout/pref-1", pref.InitPoint)
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/123":
			_, _ = w.Write([]byte(`{"id":123,"status":"approved","status_detail":"accredited",
				"payment_method_id":"visa","external_reference":"abc","transaction_amount":90000,"currency_id":"COP"}`))
		case "/v1/payments/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)

	p, err := client.GetPayment(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, ID("123"), p.ID)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "visa", p.PaymentMethodID)
	assert.Equal(t, "abc", p.ExternalReference)
	assert.True(t, decimal.NewFromInt(90000).Equal(p.TransactionAmount))

	_, err = client.GetPayment(context.Background(), "404")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = client.GetPayment(context.Background(), "500")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "t", 20*time.Millisecond)
	_, err := client.GetPayment(context.Background(), "1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentNotFound)
}

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		query url.Values
		topic string
		id    string
		err   error
	}{
		{name: "body with numeric id", body: `{"type":"payment","data":{"id":123}}`, topic: "payment", id: "123"},
		{name: "body with string id", body: `{"type":"payment","data":{"id":"456"}}`, topic: "payment", id: "456"},
		{name: "query data.id", query: url.Values{"type": {"payment"}, "data.id": {"789"}}, topic: "payment", id: "789"},
		{name: "legacy topic query", query: url.Values{"topic": {"payment"}, "id": {"42"}}, topic: "payment", id: "42"},
		{name: "action only", body: `{"action":"payment.updated","data":{"id":"7"}}`, topic: "payment", id: "7"},
		{name: "merchant order", body: `{"type":"merchant_order","data":{"id":"9"}}`, topic: "merchant_order", id: "9"},
		{name: "missing id", body: `{"type":"payment","data":{}}`, topic: "payment", err: ErrMissingPaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := tt.query
			if query == nil {
				query = url.Values{}
			}
			topic, id, err := ParseNotification([]byte(tt.body), query)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.topic, topic)
			assert.Equal(t, tt.id, id)
		})
	}

	_, _, err := ParseNotification([]byte(`{not json`), url.Values{})
	assert.Error(t, err)
}
