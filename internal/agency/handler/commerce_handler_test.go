package handler

import (
	"net/http"
	"testing"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/testutil"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/shopspring/decimal"
)

func seedDiscount(t *testing.T, srv *testServer, code string, percent int64) {
	t.Helper()
	d := &entity.DiscountCode{
		ID:           "dc-" + code,
		Code:         code,
		Type:         entity.DiscountPercentage,
		Value:        decimal.NewFromInt(percent),
		MinCartTotal: decimal.Zero,
		IsActive:     true,
	}
	if err := srv.DB.Create(d).Error; err != nil {
		t.Fatalf("Failed to seed discount: %v", err)
	}
}

func paymentBody(amount string, discount string) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"itemType": "service", "itemId": "svc-audit", "title": "SEO audit", "quantity": 2, "priceSnapshot": "1500.00"},
		},
		"customer":     map[string]string{"email": "buyer@example.com", "name": "Buyer"},
		"provider":     "fake",
		"currency":     "RUB",
		"amount":       amount,
		"returnUrl":    "https://flow-masters.test/thanks",
		"discountCode": discount,
	}
}

func decimalField(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Expected decimal string, got %T %v", v, v)
	}
	return decimal.RequireFromString(s)
}

func TestCreatePayment(t *testing.T) {
	srv := newTestServer(t)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.Data(w)
	orderID, _ := data["orderId"].(string)
	if orderID == "" {
		t.Fatal("Expected orderId in response")
	}
	if data["paymentUrl"] != "https://pay.test/"+orderID {
		t.Errorf("Expected provider payment url, got %v", data["paymentUrl"])
	}

	var order entity.Order
	if err := srv.DB.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("Order not stored: %v", err)
	}
	if order.Status != entity.OrderStatusPending {
		t.Errorf("Expected pending order, got %s", order.Status)
	}
	if order.ExternalPaymentID != "ext-"+orderID {
		t.Errorf("Expected external id stored, got %s", order.ExternalPaymentID)
	}
	if !order.Total.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected total 3000, got %s", order.Total)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Errorf("Expected one line with quantity 2, got %+v", order.Items)
	}
}

func TestCreatePaymentAmountMismatch(t *testing.T) {
	srv := newTestServer(t)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("2999.00", ""), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if srv.Provider.calls != 0 {
		t.Errorf("Provider must not be called on mismatch, got %d calls", srv.Provider.calls)
	}

	// Within a cent is accepted
	w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000.01", ""), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 within tolerance, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	srv := newTestServer(t)

	body := paymentBody("3000", "")
	body["items"] = []map[string]interface{}{}
	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty cart, got %d", w.Code)
	}

	body = paymentBody("3000", "")
	body["customer"] = map[string]string{"email": "not-an-email"}
	w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for bad email, got %d", w.Code)
	}

	body = paymentBody("3000", "")
	body["currency"] = "EUR"
	w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unsupported currency, got %d", w.Code)
	}
}

func TestCreatePaymentIdempotencyKey(t *testing.T) {
	srv := newTestServer(t)
	headers := map[string]string{"Idempotency-Key": "key-123"}

	w := testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), "", headers)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), "", headers)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for duplicate key, got %d: %s", w.Code, w.Body.String())
	}

	var n int64
	srv.DB.Model(&entity.Order{}).Count(&n)
	if n != 1 {
		t.Errorf("Expected 1 order, got %d", n)
	}
}

func TestCreatePaymentProviderFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.Provider.fail = true

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d: %s", w.Code, w.Body.String())
	}
	var order entity.Order
	srv.DB.First(&order)
	if order.Status != entity.OrderStatusFailed {
		t.Errorf("Expected failed order, got %q", order.Status)
	}
}

func TestPaymentWebhookMarksOrderPaid(t *testing.T) {
	srv := newTestServer(t)
	buyer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)
	seedDiscount(t, srv, "SAVE10", 10)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("2700", "save10"), testutil.Token(buyer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	orderID := testutil.Data(w)["orderId"].(string)

	hook := map[string]string{"externalId": "ext-" + orderID, "status": "succeeded", "amount": "2700.00", "currency": "RUB"}
	for i := 0; i < 2; i++ {
		w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/webhook/fake", hook, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200 from webhook, got %d: %s", w.Code, w.Body.String())
		}
	}

	var order entity.Order
	srv.DB.First(&order, "id = ?", orderID)
	if order.Status != entity.OrderStatusPaid || order.PaidAt == nil {
		t.Errorf("Expected paid order, got %s", order.Status)
	}
	if order.CustomerID == nil || *order.CustomerID != buyer.ID {
		t.Errorf("Expected order linked to buyer, got %v", order.CustomerID)
	}

	var code entity.DiscountCode
	srv.DB.First(&code, "code = ?", "SAVE10")
	if code.UsedCount != 1 {
		t.Errorf("Expected discount used once, got %d", code.UsedCount)
	}

	var progress entity.UserProgress
	if err := srv.DB.First(&progress, "user_id = ?", buyer.ID).Error; err != nil {
		t.Fatalf("Expected buyer progress row: %v", err)
	}
	if progress.XP == 0 {
		t.Error("Expected buyer to earn XP for the paid order")
	}
	paidEvents := 0
	for _, k := range srv.Events.Keys() {
		if k == events.OrderPaid {
			paidEvents++
		}
	}
	if paidEvents != 1 {
		t.Errorf("Expected one %s event for two deliveries, got %d", events.OrderPaid, paidEvents)
	}

	// Buyer sees the order, others do not
	w = testutil.DoRequest(srv.Router, "GET", "/api/v1/orders/"+orderID, nil, testutil.Token(buyer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for buyer, got %d", w.Code)
	}
	stranger := testutil.SeedUser(t, srv.DB, "cust-2", entity.RoleCustomer)
	w = testutil.DoRequest(srv.Router, "GET", "/api/v1/orders/"+orderID, nil, testutil.Token(stranger))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for stranger, got %d", w.Code)
	}
}

func TestPaymentWebhookAmountMismatch(t *testing.T) {
	srv := newTestServer(t)
	buyer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), testutil.Token(buyer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	orderID := testutil.Data(w)["orderId"].(string)

	for _, hook := range []map[string]string{
		{"externalId": "ext-" + orderID, "status": "succeeded", "amount": "1.00", "currency": "RUB"},
		{"externalId": "ext-" + orderID, "status": "succeeded", "amount": "3000.00", "currency": "USD"},
	} {
		w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/webhook/fake", hook, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400 for %s %s, got %d: %s", hook["amount"], hook["currency"], w.Code, w.Body.String())
		}
	}

	var order entity.Order
	srv.DB.First(&order, "id = ?", orderID)
	if order.Status != entity.OrderStatusPending || order.PaidAt != nil {
		t.Errorf("Expected order to stay pending, got %s", order.Status)
	}
	if srv.published(events.OrderPaid) {
		t.Error("Expected no order.paid event")
	}
}

func TestPaymentWebhookCannotPayAnotherOrder(t *testing.T) {
	srv := newTestServer(t)
	buyer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/create", paymentBody("3000", ""), testutil.Token(buyer))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	victimID := testutil.Data(w)["orderId"].(string)

	// a payment for something else that names the victim order in its metadata
	hook := map[string]string{"externalId": "ext-attacker", "orderId": victimID, "status": "succeeded", "amount": "3000.00", "currency": "RUB"}
	w = testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/webhook/fake", hook, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}

	var order entity.Order
	srv.DB.First(&order, "id = ?", victimID)
	if order.Status != entity.OrderStatusPending {
		t.Errorf("Expected victim order to stay pending, got %s", order.Status)
	}
}

func TestWebhookUnknownProvider(t *testing.T) {
	srv := newTestServer(t)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/payment/webhook/paypal", "{}", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateDiscount(t *testing.T) {
	srv := newTestServer(t)
	seedDiscount(t, srv, "SAVE10", 10)

	w := testutil.DoRequest(srv.Router, "POST", "/api/v1/discount/validate",
		map[string]interface{}{"code": "save10", "cartTotal": 1999.99}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.Data(w)
	if data["isValid"] != true {
		t.Fatalf("Expected valid code, got %v", data)
	}
	if got := decimalField(t, data["discountAmount"]); !got.Equal(decimal.RequireFromString("200")) {
		t.Errorf("Expected discount 200, got %s", got)
	}

	w = testutil.DoRequest(srv.Router, "POST", "/api/v1/discount/validate",
		map[string]interface{}{"code": "NOPE", "cartTotal": 100}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for unknown code, got %d", w.Code)
	}
	if data := testutil.Data(w); data["isValid"] != false || data["message"] == "" {
		t.Errorf("Expected invalid result with message, got %v", data)
	}
}
