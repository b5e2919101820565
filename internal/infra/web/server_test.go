package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/usecase"
)

// stubUserRepo serves a single canned user.
type stubUserRepo struct{ user *model.User }

func (s *stubUserRepo) Save(ctx context.Context, u *model.User) error { return nil }
func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if s.user != nil && s.user.ID == id {
		cp := *s.user
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}
func (s *stubUserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return nil
}
func (s *stubUserRepo) PushToArray(ctx context.Context, id string, field string, item any) error {
	return nil
}
func (s *stubUserRepo) ReplaceArray(ctx context.Context, id string, field string, items any) error {
	return nil
}
func (s *stubUserRepo) FindActiveSubscribers(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	logger := zerolog.New(io.Discard)

	u, _ := model.NewUser("42", "Ann", "", "ann")
	u.SubscriptionActive = true
	u.Subscription = model.SubscriptionInfo{Type: "basic", Start: "2025-01-01", End: "2025-01-31"}
	users := &stubUserRepo{user: u}
	subUC := usecase.NewSubscriptionUseCase(users, nil, 30, 3, &logger)

	monitor := usecase.NewPaymentMonitor(nil, subUC, nil, nil, config.MonitorConfig{
		PendingTTL:   10 * time.Minute,
		BusyInterval: 15 * time.Second,
		IdleInterval: 60 * time.Second,
	}, &logger)

	cfg := config.AdminConfig{
		Port:      0,
		APIKey:    "secret-key",
		JWTSecret: "jwt-secret",
		TokenTTL:  30 * time.Minute,
	}
	srv := NewServer(monitor, subUC, cfg, true, &logger)
	return srv, srv.routes()
}

func TestServer_Healthz(t *testing.T) {
	_, h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServer_LoginAndAuth(t *testing.T) {
	_, h := newTestServer(t)

	t.Run("rejects unauthenticated admin calls", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/pending", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("rejects a wrong api key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"api_key":"wrong"}`))
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("mints a token and serves admin reads", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"api_key":"secret-key"}`))
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("login status = %d", rec.Code)
		}
		var body struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Token == "" {
			t.Fatalf("token missing: %v", err)
		}

		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/pending", nil)
		req.Header.Set("Authorization", "Bearer "+body.Token)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("pending status = %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/v1/users/42/subscription", nil)
		req.Header.Set("Authorization", "Bearer "+body.Token)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("subscription status = %d", rec.Code)
		}
		var sub map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &sub)
		if sub["active"] != true || sub["tariff"] != "basic" {
			t.Fatalf("subscription = %v", sub)
		}
	})
}
