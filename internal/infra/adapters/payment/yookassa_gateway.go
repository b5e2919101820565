package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
)

const defaultAPIBase = "https://api.yookassa.ru/v3"

var _ adapter.PaymentGateway = (*YooKassaGateway)(nil)

// YooKassaGateway implements adapter.PaymentGateway over the YooKassa REST v3
// API. Every create call carries a fresh Idempotence-Key; the provider's
// retry-dedup semantics are therefore per attempt, matching CreateCharge's
// contract that each call is a new purchase.
type YooKassaGateway struct {
	shopID    string
	secretKey string
	returnURL string
	prices    map[string]string
	currency  string
	duration  int
	apiBase   string
	client    *http.Client
	now       func() time.Time
}

func NewYooKassaGateway(cfg config.YooKassaConfig, sub config.SubscriptionConfig) (*YooKassaGateway, error) {
	if cfg.ShopID == "" || cfg.SecretKey == "" {
		return nil, errors.New("yookassa credentials empty")
	}
	return &YooKassaGateway{
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		returnURL: cfg.ReturnURL,
		prices:    sub.Prices,
		currency:  sub.Currency,
		duration:  sub.DurationDays,
		apiBase:   defaultAPIBase,
		client:    &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}, nil
}

// SetAPIBase overrides the endpoint, for tests against a local server.
func (g *YooKassaGateway) SetAPIBase(base string) { g.apiBase = base }

func (g *YooKassaGateway) Name() string { return "yookassa" }

type amountJSON struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paymentJSON struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Amount       amountJSON `json:"amount"`
	Confirmation *struct {
		Type            string `json:"type"`
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation,omitempty"`
	PaymentMethod *struct {
		ID    string `json:"id"`
		Saved bool   `json:"saved"`
	} `json:"payment_method,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (g *YooKassaGateway) CreateCharge(ctx context.Context, userID string, tariff model.Tariff) (*model.ChargeResult, error) {
	price, ok := g.prices[string(tariff)]
	if !ok {
		return nil, fmt.Errorf("%w: no price for tariff %q", domain.ErrUnknownTariff, tariff)
	}

	body := map[string]any{
		"amount":              amountJSON{Value: price, Currency: g.currency},
		"capture":             true,
		"save_payment_method": true,
		"description":         fmt.Sprintf("%s subscription, %d days", tariff.DisplayName(), g.duration),
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": g.returnURL,
		},
		"metadata": map[string]string{
			"user_id":     userID,
			"tariff_type": string(tariff),
		},
	}
	p, err := g.post(ctx, "/payments", body)
	if err != nil {
		return nil, err
	}
	res := &model.ChargeResult{PaymentID: p.ID, Status: mapStatus(p.Status)}
	if p.Confirmation != nil {
		res.ConfirmationURL = p.Confirmation.ConfirmationURL
	}
	if res.ConfirmationURL == "" {
		return nil, fmt.Errorf("yookassa: payment %s has no confirmation url", p.ID)
	}
	return res, nil
}

func (g *YooKassaGateway) CreateRecurringCharge(ctx context.Context, userID string, tariff model.Tariff, paymentMethodID string) (*model.ChargeResult, error) {
	price, ok := g.prices[string(tariff)]
	if !ok {
		return nil, fmt.Errorf("%w: no price for tariff %q", domain.ErrUnknownTariff, tariff)
	}

	body := map[string]any{
		"amount":            amountJSON{Value: price, Currency: g.currency},
		"capture":           true,
		"payment_method_id": paymentMethodID,
		"description":       fmt.Sprintf("%s subscription renewal, %d days", tariff.DisplayName(), g.duration),
		"metadata": map[string]string{
			"user_id":     userID,
			"tariff_type": string(tariff),
		},
	}
	p, err := g.post(ctx, "/payments", body)
	if err != nil {
		return nil, err
	}
	return &model.ChargeResult{PaymentID: p.ID, Status: mapStatus(p.Status)}, nil
}

// QueryStatus reads the payment and, on success, attaches the subscription
// window the purchase grants: starting today, lasting the configured number
// of days, in the provider-facing date format.
func (g *YooKassaGateway) QueryStatus(ctx context.Context, paymentID string) (*model.StatusResult, error) {
	p, err := g.get(ctx, "/payments/"+paymentID)
	if err != nil {
		return nil, err
	}

	res := &model.StatusResult{
		Status: mapStatus(p.Status),
		UserID: p.Metadata["user_id"],
	}
	if t, terr := model.ParseTariff(p.Metadata["tariff_type"]); terr == nil {
		res.Tariff = t
	}
	if res.Status == model.PaymentStatusSucceeded {
		start := model.DateOnly(g.now())
		res.SubscriptionStart = model.FormatWireDate(start)
		res.SubscriptionEnd = model.FormatWireDate(start.AddDate(0, 0, g.duration))
		if p.PaymentMethod != nil && p.PaymentMethod.Saved {
			res.PaymentMethodID = p.PaymentMethod.ID
		}
	}
	return res, nil
}

func mapStatus(s string) model.PaymentStatus {
	switch s {
	case "succeeded":
		return model.PaymentStatusSucceeded
	case "canceled":
		return model.PaymentStatusCanceled
	case "pending", "waiting_for_capture":
		return model.PaymentStatusPending
	default:
		return model.PaymentStatusUnknown
	}
}

func (g *YooKassaGateway) post(ctx context.Context, path string, body any) (*paymentJSON, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	return g.do(req)
}

func (g *YooKassaGateway) get(ctx context.Context, path string) (*paymentJSON, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return nil, err
	}
	return g.do(req)
}

func (g *YooKassaGateway) do(req *http.Request) (*paymentJSON, error) {
	req.SetBasicAuth(g.shopID, g.secretKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yookassa request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yookassa http %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var p paymentJSON
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("yookassa decode: %w", err)
	}
	if p.ID == "" && req.Method == http.MethodGet {
		return nil, fmt.Errorf("yookassa: empty payment object")
	}
	return &p, nil
}
