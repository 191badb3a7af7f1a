package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

func TestYooKassaCreatePayment(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/payments", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotence-Key"))

		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pay_1","status":"pending","confirmation":{"type":"redirect","confirmation_url":"https://pay.example/1"}}`))
	}))
	defer srv.Close()

	yk := NewYooKassa(srv.URL, "shop-1", "secret", []string{"RUB"})
	res, err := yk.CreatePayment(context.Background(), &CreateRequest{
		OrderID:        "order-1",
		Amount:         decimal.RequireFromString("1500.5"),
		Currency:       "rub",
		Description:    "Order #1",
		ReturnURL:      "https://shop.example/ok",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", res.ExternalID)
	assert.Equal(t, "https://pay.example/1", res.PaymentURL)
	assert.Equal(t, StatusPending, res.Status)

	amount := gotBody["amount"].(map[string]interface{})
	assert.Equal(t, "1500.50", amount["value"])
	assert.Equal(t, "RUB", amount["currency"])
	assert.Equal(t, "order-1", gotBody["metadata"].(map[string]interface{})["orderId"])
}

func TestYooKassaErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","code":"invalid_request","description":"Bad amount"}`))
	}))
	defer srv.Close()

	yk := NewYooKassa(srv.URL, "shop", "key", []string{"RUB"})
	_, err := yk.CreatePayment(context.Background(), &CreateRequest{Amount: decimal.NewFromInt(1), Currency: "RUB"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad amount")
}

func TestYooKassaWebhookRefetchesPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v3/payments/pay_9", r.URL.Path)
		w.Write([]byte(`{"id":"pay_9","status":"succeeded","amount":{"value":"990.00","currency":"RUB"},"metadata":{"orderId":"order-9"}}`))
	}))
	defer srv.Close()

	yk := NewYooKassa(srv.URL, "shop", "key", []string{"RUB"})
	// the notification claims canceled; the api answer wins
	ev, err := yk.ParseWebhook(context.Background(), http.Header{},
		[]byte(`{"type":"notification","event":"payment.canceled","object":{"id":"pay_9","status":"canceled"}}`))
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, ev.Status)
	assert.Equal(t, "order-9", ev.OrderID)
	assert.True(t, decimal.RequireFromString("990").Equal(ev.Amount))
	assert.Equal(t, "RUB", ev.Currency)
}

func TestStripeCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "12345", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "order-2", r.PostForm.Get("metadata[orderId]"))
		w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.test/cs_1"}`))
	}))
	defer srv.Close()

	s := NewStripe(srv.URL, "sk_test", "whsec", []string{"USD"})
	res, err := s.CreatePayment(context.Background(), &CreateRequest{
		OrderID:     "order-2",
		Amount:      decimal.RequireFromString("123.45"),
		Currency:    "USD",
		Description: "Order #2",
		ReturnURL:   "https://shop.example/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", res.ExternalID)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", res.PaymentURL)
}

func signedStripeHeader(secret string, body []byte, at time.Time) http.Header {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: at,
	})
	h := http.Header{}
	h.Set("Stripe-Signature", signed.Header)
	return h
}

func TestStripeWebhookSignature(t *testing.T) {
	s := NewStripe("", "sk", "whsec_test", []string{"USD"})
	body := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_7","object":"checkout.session","payment_status":"paid","amount_total":12345,"currency":"usd","metadata":{"orderId":"order-7"}}}}`)

	t.Run("valid", func(t *testing.T) {
		ev, err := s.ParseWebhook(context.Background(), signedStripeHeader("whsec_test", body, time.Now()), body)
		require.NoError(t, err)
		assert.Equal(t, "cs_7", ev.ExternalID)
		assert.Equal(t, "order-7", ev.OrderID)
		assert.Equal(t, StatusSucceeded, ev.Status)
		assert.True(t, decimal.RequireFromString("123.45").Equal(ev.Amount), "amount %s", ev.Amount)
		assert.Equal(t, "USD", ev.Currency)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := s.ParseWebhook(context.Background(), signedStripeHeader("other", body, time.Now()), body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := s.ParseWebhook(context.Background(), signedStripeHeader("whsec_test", body, time.Now().Add(-time.Hour)), body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := s.ParseWebhook(context.Background(), http.Header{}, body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unpaid session ignored", func(t *testing.T) {
		unpaid := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_8","object":"checkout.session","payment_status":"unpaid"}}}`)
		_, err := s.ParseWebhook(context.Background(), signedStripeHeader("whsec_test", unpaid, time.Now()), unpaid)
		assert.ErrorIs(t, err, ErrIgnoredEvent)
	})
}

func TestStripeMetadataCannotOverrideOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "order-mine", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "order-mine", r.PostForm.Get("metadata[orderId]"))
		assert.Equal(t, "landing", r.PostForm.Get("metadata[source]"))
		w.Write([]byte(`{"id":"cs_2","url":"https://checkout.stripe.test/cs_2"}`))
	}))
	defer srv.Close()

	s := NewStripe(srv.URL, "sk_test", "whsec", []string{"USD"})
	_, err := s.CreatePayment(context.Background(), &CreateRequest{
		OrderID:   "order-mine",
		Amount:    decimal.NewFromInt(10),
		Currency:  "USD",
		ReturnURL: "https://shop.example/ok",
		Metadata:  map[string]string{"orderId": "order-victim", "source": "landing"},
	})
	require.NoError(t, err)
}

func TestYooKassaMetadataCannotOverrideOrderID(t *testing.T) {
	var gotBody struct {
		Metadata map[string]string `json:"metadata"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"id":"pay_2","status":"pending","confirmation":{"type":"redirect","confirmation_url":"https://pay.example/2"}}`))
	}))
	defer srv.Close()

	yk := NewYooKassa(srv.URL, "shop", "key", []string{"RUB"})
	_, err := yk.CreatePayment(context.Background(), &CreateRequest{
		OrderID:   "order-mine",
		Amount:    decimal.NewFromInt(10),
		Currency:  "RUB",
		ReturnURL: "https://shop.example/ok",
		Metadata:  map[string]string{"orderId": "order-victim"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order-mine", gotBody.Metadata["orderId"])
}

func TestRegistryForCurrency(t *testing.T) {
	r := NewRegistry(
		NewYooKassa("", "s", "k", []string{"RUB"}),
		NewStripe("", "k", "w", []string{"USD", "EUR"}),
	)

	rub := r.ForCurrency("rub")
	require.Len(t, rub, 1)
	assert.Equal(t, "yookassa", rub[0].Name)

	assert.Len(t, r.ForCurrency(""), 2)
	assert.Empty(t, r.ForCurrency("GBP"))

	_, err := r.Get("paypal")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
