package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// signatureTolerance bounds the age of a signed webhook.
const signatureTolerance = 5 * time.Minute

// Stripe client for hosted Checkout Sessions.
type Stripe struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	currencies    []string
	httpClient    *http.Client
}

func NewStripe(baseURL, secretKey, webhookSecret string, currencies []string) *Stripe {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Stripe{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		currencies:    currencies,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *Stripe) Name() string         { return "stripe" }
func (s *Stripe) Currencies() []string { return s.currencies }

func (s *Stripe) CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	start := time.Now()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.ReturnURL)
	cancelURL := req.FailURL
	if cancelURL == "" {
		cancelURL = req.ReturnURL
	}
	form.Set("cancel_url", cancelURL)
	form.Set("client_reference_id", req.OrderID)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	// one line for the discounted total
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(MinorUnits(req.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	form.Set("metadata["+MetadataOrderID+"]", req.OrderID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build stripe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordPaymentProviderLatency(s.Name(), "create", "error", time.Since(start))
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode >= 300 {
		metrics.RecordPaymentProviderLatency(s.Name(), "create", "error", time.Since(start))
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe error [%d %s]: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe error [%d]", resp.StatusCode)
	}
	metrics.RecordPaymentProviderLatency(s.Name(), "create", "ok", time.Since(start))

	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode stripe response: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("stripe session %s has no url", session.ID)
	}

	return &CreateResult{
		ExternalID: session.ID,
		PaymentURL: session.URL,
		Status:     StatusPending,
	}, nil
}

func (s *Stripe) ParseWebhook(_ context.Context, header http.Header, body []byte) (*WebhookEvent, error) {
	sig := header.Get("Stripe-Signature")
	if s.webhookSecret == "" || sig == "" {
		return nil, ErrInvalidSignature
	}
	if err := webhook.ValidatePayloadWithTolerance(body, sig, s.webhookSecret, signatureTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}
	if event.Data == nil {
		return nil, ErrIgnoredEvent
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode stripe session: %w", err)
	}

	orderID := session.Metadata[MetadataOrderID]
	if orderID == "" {
		orderID = session.ClientReferenceID
	}

	var status Status
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, ErrIgnoredEvent
		}
		status = StatusSucceeded
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		status = StatusCanceled
	default:
		return nil, ErrIgnoredEvent
	}

	return &WebhookEvent{
		ExternalID: session.ID,
		OrderID:    orderID,
		Status:     status,
		Amount:     FromMinorUnits(session.AmountTotal),
		Currency:   strings.ToUpper(string(session.Currency)),
	}, nil
}
