package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// YooKassa client for the v3 payments API.
type YooKassa struct {
	baseURL    string
	shopID     string
	secretKey  string
	currencies []string
	httpClient *http.Client
}

func NewYooKassa(baseURL, shopID, secretKey string, currencies []string) *YooKassa {
	if baseURL == "" {
		baseURL = "https://api.yookassa.ru"
	}
	return &YooKassa{
		baseURL:    strings.TrimRight(baseURL, "/"),
		shopID:     shopID,
		secretKey:  secretKey,
		currencies: currencies,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (y *YooKassa) Name() string         { return "yookassa" }
func (y *YooKassa) Currencies() []string { return y.currencies }

type ykAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type ykPayment struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Paid     bool              `json:"paid"`
	Amount   ykAmount          `json:"amount"`
	Metadata map[string]string `json:"metadata"`
	Confirmation struct {
		Type            string `json:"type"`
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

type ykError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// doRequest performs an authenticated call and decodes the JSON answer.
func (y *YooKassa) doRequest(ctx context.Context, method, path, idempotenceKey string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode yookassa request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build yookassa request: %w", err)
	}
	req.SetBasicAuth(y.shopID, y.secretKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read yookassa response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr ykError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Description != "" {
			return fmt.Errorf("yookassa error [%d %s]: %s", resp.StatusCode, apiErr.Code, apiErr.Description)
		}
		return fmt.Errorf("yookassa error [%d]", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decode yookassa response: %w", err)
		}
	}
	return nil
}

func (y *YooKassa) CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	start := time.Now()

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[MetadataOrderID] = req.OrderID

	body := map[string]interface{}{
		"amount": ykAmount{
			Value:    req.Amount.StringFixed(2),
			Currency: strings.ToUpper(req.Currency),
		},
		"capture": true,
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": req.ReturnURL,
		},
		"description": truncate(req.Description, 128),
		"metadata":    metadata,
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	var payment ykPayment
	err := y.doRequest(ctx, http.MethodPost, "/v3/payments", key, body, &payment)
	if err != nil {
		metrics.RecordPaymentProviderLatency(y.Name(), "create", "error", time.Since(start))
		return nil, err
	}
	metrics.RecordPaymentProviderLatency(y.Name(), "create", "ok", time.Since(start))

	if payment.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("yookassa payment %s has no confirmation url", payment.ID)
	}

	return &CreateResult{
		ExternalID: payment.ID,
		PaymentURL: payment.Confirmation.ConfirmationURL,
		Status:     ykStatus(payment.Status),
	}, nil
}

// ParseWebhook trusts nothing but the payment id and re-reads the payment.
func (y *YooKassa) ParseWebhook(ctx context.Context, _ http.Header, body []byte) (*WebhookEvent, error) {
	var notification struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	}
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil, fmt.Errorf("decode yookassa notification: %w", err)
	}
	if notification.Object.ID == "" || !strings.HasPrefix(notification.Event, "payment.") {
		return nil, ErrIgnoredEvent
	}

	var payment ykPayment
	if err := y.doRequest(ctx, http.MethodGet, "/v3/payments/"+notification.Object.ID, "", nil, &payment); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(payment.Amount.Value)
	if err != nil && payment.Amount.Value != "" {
		return nil, fmt.Errorf("decode yookassa amount %q: %w", payment.Amount.Value, err)
	}

	return &WebhookEvent{
		ExternalID: payment.ID,
		OrderID:    payment.Metadata[MetadataOrderID],
		Status:     ykStatus(payment.Status),
		Amount:     amount,
		Currency:   strings.ToUpper(payment.Amount.Currency),
	}, nil
}

func ykStatus(s string) Status {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "canceled":
		return StatusCanceled
	default:
		return StatusPending
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
