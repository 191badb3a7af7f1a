package payment

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the normalized provider payment state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
)

var (
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrIgnoredEvent     = errors.New("webhook event ignored")
)

// CreateRequest is what the checkout hands to a provider.
type CreateRequest struct {
	OrderID        string
	OrderNumber    string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	CustomerEmail  string
	ReturnURL      string
	FailURL        string
	IdempotencyKey string
	Metadata       map[string]string
}

// CreateResult carries the redirect the buyer must follow.
type CreateResult struct {
	ExternalID string
	PaymentURL string
	Status     Status
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ExternalID string
	OrderID    string
	Status     Status
	Amount     decimal.Decimal
	Currency   string
}

// MetadataOrderID is the metadata key carrying our order id. Caller metadata cannot override it.
const MetadataOrderID = "orderId"

// Provider is one payment gateway.
type Provider interface {
	Name() string
	Currencies() []string
	CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error)
	ParseWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookEvent, error)
}

// Info describes a provider to the storefront.
type Info struct {
	Name       string   `json:"name"`
	Currencies []string `json:"currencies"`
}

// Registry holds the enabled providers.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[strings.ToLower(p.Name())] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Supports reports whether provider accepts currency.
func Supports(p Provider, currency string) bool {
	for _, c := range p.Currencies() {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

// ForCurrency lists providers accepting currency, sorted by name. Empty currency lists all.
func (r *Registry) ForCurrency(currency string) []Info {
	out := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		if currency != "" && !Supports(p, currency) {
			continue
		}
		out = append(out, Info{Name: p.Name(), Currencies: p.Currencies()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FromMinorUnits converts integer cents/kopecks back to an amount.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// MinorUnits converts an amount to integer cents/kopecks.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
