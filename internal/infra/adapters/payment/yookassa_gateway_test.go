package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain/model"
)

func testGateway(t *testing.T, handler http.HandlerFunc) *YooKassaGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewYooKassaGateway(
		config.YooKassaConfig{ShopID: "shop-1", SecretKey: "sk-test", ReturnURL: "https://t.me/bot"},
		config.SubscriptionConfig{
			DurationDays: 30,
			Prices:       map[string]string{"basic": "149.00", "premium": "499.00"},
			Currency:     "USD",
		},
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	g.SetAPIBase(srv.URL)
	return g
}

func TestYooKassaGateway_CreateCharge(t *testing.T) {
	ctx := context.Background()
	var gotReq map[string]any
	var gotIdemKey, gotAuth string

	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotIdemKey = r.Header.Get("Idempotence-Key")
		u, p, _ := r.BasicAuth()
		gotAuth = u + ":" + p
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pay-123",
			"status": "pending",
			"confirmation": map[string]string{
				"type":             "redirect",
				"confirmation_url": "https://pay.example/confirm/pay-123",
			},
		})
	})

	res, err := g.CreateCharge(ctx, "42", model.TariffBasic)
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if res.PaymentID != "pay-123" || res.ConfirmationURL != "https://pay.example/confirm/pay-123" {
		t.Fatalf("result = %+v", res)
	}
	if res.Status != model.PaymentStatusPending {
		t.Fatalf("status = %s", res.Status)
	}

	if gotAuth != "shop-1:sk-test" {
		t.Fatalf("basic auth = %q", gotAuth)
	}
	if gotIdemKey == "" {
		t.Fatal("idempotence key header missing")
	}
	amount := gotReq["amount"].(map[string]any)
	if amount["value"] != "149.00" || amount["currency"] != "USD" {
		t.Fatalf("amount = %v", amount)
	}
	meta := gotReq["metadata"].(map[string]any)
	if meta["user_id"] != "42" || meta["tariff_type"] != "basic" {
		t.Fatalf("metadata = %v", meta)
	}
	if gotReq["save_payment_method"] != true {
		t.Fatal("save_payment_method must be requested")
	}
}

func TestYooKassaGateway_CreateCharge_FreshIdempotenceKeys(t *testing.T) {
	ctx := context.Background()
	var keys []string
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotence-Key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "p", "status": "pending",
			"confirmation": map[string]string{"confirmation_url": "https://x"},
		})
	})

	if _, err := g.CreateCharge(ctx, "42", model.TariffBasic); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := g.CreateCharge(ctx, "42", model.TariffBasic); err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(keys) != 2 || keys[0] == keys[1] {
		t.Fatalf("keys = %v, want two distinct", keys)
	}
}

func TestYooKassaGateway_QueryStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeded carries the subscription window and method token", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payments/pay-123" {
				t.Errorf("path = %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "pay-123",
				"status": "succeeded",
				"payment_method": map[string]any{
					"id":    "pm-777",
					"saved": true,
				},
				"metadata": map[string]string{"user_id": "42", "tariff_type": "premium"},
			})
		})
		g.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

		res, err := g.QueryStatus(ctx, "pay-123")
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if res.Status != model.PaymentStatusSucceeded {
			t.Fatalf("status = %s", res.Status)
		}
		if res.SubscriptionStart != "01.06.2025" || res.SubscriptionEnd != "01.07.2025" {
			t.Fatalf("window = %s..%s", res.SubscriptionStart, res.SubscriptionEnd)
		}
		if res.PaymentMethodID != "pm-777" {
			t.Fatalf("method = %q", res.PaymentMethodID)
		}
		if res.UserID != "42" || res.Tariff != model.TariffPremium {
			t.Fatalf("metadata = %q %q", res.UserID, res.Tariff)
		}
	})

	t.Run("waiting_for_capture reads as pending", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "p", "status": "waiting_for_capture"})
		})
		res, err := g.QueryStatus(ctx, "p")
		if err != nil || res.Status != model.PaymentStatusPending {
			t.Fatalf("got (%v,%v), want pending", res, err)
		}
	})

	t.Run("unrecognized status reads as unknown", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "p", "status": "refund_in_progress"})
		})
		res, err := g.QueryStatus(ctx, "p")
		if err != nil || res.Status != model.PaymentStatusUnknown {
			t.Fatalf("got (%v,%v), want unknown", res, err)
		}
	})

	t.Run("provider errors are errors, not pending", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"type":"error"}`, http.StatusBadGateway)
		})
		if _, err := g.QueryStatus(ctx, "p"); err == nil {
			t.Fatal("expected error on http 502")
		}
	})

	t.Run("unsaved payment method is not returned", func(t *testing.T) {
		g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "p", "status": "succeeded",
				"payment_method": map[string]any{"id": "pm-1", "saved": false},
			})
		})
		res, err := g.QueryStatus(ctx, "p")
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if res.PaymentMethodID != "" {
			t.Fatal("unsaved method must not be exposed")
		}
	})
}

func TestYooKassaGateway_CreateRecurringCharge(t *testing.T) {
	ctx := context.Background()
	var gotReq map[string]any
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pay-9", "status": "pending"})
	})

	res, err := g.CreateRecurringCharge(ctx, "42", model.TariffPremium, "pm-777")
	if err != nil {
		t.Fatalf("recurring charge: %v", err)
	}
	if res.PaymentID != "pay-9" || res.ConfirmationURL != "" {
		t.Fatalf("result = %+v", res)
	}
	if gotReq["payment_method_id"] != "pm-777" {
		t.Fatalf("payment_method_id = %v", gotReq["payment_method_id"])
	}
	if _, hasConfirmation := gotReq["confirmation"]; hasConfirmation {
		t.Fatal("recurring charge must not request a redirect")
	}
}
