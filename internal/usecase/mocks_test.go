package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memUserRepo is a small in-memory user store used by unit tests.
type memUserRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.User
	saveErr   error
	findErr   error
	updateErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	cp.Sessions = append([]model.ConsultSession(nil), u.Sessions...)
	return &cp, nil
}

func (m *memUserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "subscription_active":
			u.SubscriptionActive = v.(bool)
		case "subscription_info":
			u.Subscription = v.(model.SubscriptionInfo)
		case "payment_method_id":
			if v == nil {
				u.PaymentMethodID = ""
			} else {
				u.PaymentMethodID = v.(string)
			}
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "username":
			u.Username = v.(string)
		case "agreement_time":
			t := v.(time.Time)
			u.AgreementTime = &t
		}
	}
	return nil
}

func (m *memUserRepo) PushToArray(ctx context.Context, id string, field string, item any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if field == "previous_requests" {
		u.Sessions = append(u.Sessions, item.(model.ConsultSession))
	}
	return nil
}

func (m *memUserRepo) ReplaceArray(ctx context.Context, id string, field string, items any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if field == "previous_requests" {
		u.Sessions = append([]model.ConsultSession(nil), items.([]model.ConsultSession)...)
	}
	return nil
}

func (m *memUserRepo) FindActiveSubscribers(ctx context.Context) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		if u.SubscriptionActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockGateway lets each test script the provider's behavior per call.
type mockGateway struct {
	mu              sync.Mutex
	createFunc      func(ctx context.Context, userID string, tariff model.Tariff) (*model.ChargeResult, error)
	queryFunc       func(ctx context.Context, paymentID string) (*model.StatusResult, error)
	recurFunc       func(ctx context.Context, userID string, tariff model.Tariff, pmID string) (*model.ChargeResult, error)
	queryCalls      int
	lastQueriedID   string
	createCallCount int
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateCharge(ctx context.Context, userID string, tariff model.Tariff) (*model.ChargeResult, error) {
	g.mu.Lock()
	g.createCallCount++
	g.mu.Unlock()
	if g.createFunc != nil {
		return g.createFunc(ctx, userID, tariff)
	}
	return &model.ChargeResult{PaymentID: "pay-1", ConfirmationURL: "https://pay.example/1", Status: model.PaymentStatusPending}, nil
}

func (g *mockGateway) QueryStatus(ctx context.Context, paymentID string) (*model.StatusResult, error) {
	g.mu.Lock()
	g.queryCalls++
	g.lastQueriedID = paymentID
	g.mu.Unlock()
	if g.queryFunc != nil {
		return g.queryFunc(ctx, paymentID)
	}
	return &model.StatusResult{Status: model.PaymentStatusPending}, nil
}

func (g *mockGateway) CreateRecurringCharge(ctx context.Context, userID string, tariff model.Tariff, pmID string) (*model.ChargeResult, error) {
	if g.recurFunc != nil {
		return g.recurFunc(ctx, userID, tariff, pmID)
	}
	return &model.ChargeResult{PaymentID: "pay-recur-1", Status: model.PaymentStatusPending}, nil
}

func (g *mockGateway) queryCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queryCalls
}

// mockNotifier records every delivered message.
type mockNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

type sentMessage struct {
	UserID string
	Text   string
}

func (n *mockNotifier) Send(ctx context.Context, userID string, text string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{UserID: userID, Text: text})
	return nil
}

func (n *mockNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

// mockPendingStore is an in-memory durable store with injectable failures.
type mockPendingStore struct {
	mu        sync.Mutex
	store     map[string]*model.PendingPayment
	saveErr   error
	deleteErr error
}

func newMockPendingStore() *mockPendingStore {
	return &mockPendingStore{store: make(map[string]*model.PendingPayment)}
}

func (s *mockPendingStore) Save(ctx context.Context, p *model.PendingPayment) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.store[p.PaymentID] = &cp
	return nil
}

func (s *mockPendingStore) Delete(ctx context.Context, paymentID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, paymentID)
	return nil
}

func (s *mockPendingStore) ListAll(ctx context.Context) ([]*model.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PendingPayment
	for _, p := range s.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *mockPendingStore) contains(paymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.store[paymentID]
	return ok
}

// mockLedger lets monitor tests script ledger outcomes and count mutations.
type mockLedger struct {
	mu             sync.Mutex
	activateFunc   func(ctx context.Context, userID string, tariff model.Tariff, start time.Time) error
	setMethodFunc  func(ctx context.Context, userID, token string) error
	activations    []ledgerActivation
	methodsSet     []string
	activateErrSeq []error // consumed one per call when set
}

type ledgerActivation struct {
	UserID string
	Tariff model.Tariff
	Start  time.Time
}

func (l *mockLedger) ActivateOrExtend(ctx context.Context, userID string, tariff model.Tariff, start time.Time) error {
	l.mu.Lock()
	if len(l.activateErrSeq) > 0 {
		err := l.activateErrSeq[0]
		l.activateErrSeq = l.activateErrSeq[1:]
		if err != nil {
			l.mu.Unlock()
			return err
		}
	}
	l.mu.Unlock()
	if l.activateFunc != nil {
		if err := l.activateFunc(ctx, userID, tariff, start); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activations = append(l.activations, ledgerActivation{UserID: userID, Tariff: tariff, Start: start})
	return nil
}

func (l *mockLedger) SetPaymentMethod(ctx context.Context, userID, token string) error {
	if l.setMethodFunc != nil {
		if err := l.setMethodFunc(ctx, userID, token); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methodsSet = append(l.methodsSet, token)
	return nil
}

func (l *mockLedger) activationCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.activations)
}

// mockAI returns a scripted reply and records the conversation it was given.
type mockAI struct {
	mu      sync.Mutex
	reply   string
	err     error
	lastMsg []adapter.Message
}

func (a *mockAI) Name() string { return "mock-ai" }

func (a *mockAI) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	a.mu.Lock()
	a.lastMsg = append([]adapter.Message(nil), messages...)
	a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	if a.reply == "" {
		return "mock answer", nil
	}
	return a.reply, nil
}

// mockRenderer echoes the document title as file content.
type mockRenderer struct {
	err error
}

func (r *mockRenderer) Render(ctx context.Context, doc *model.Document) ([]byte, string, error) {
	if r.err != nil {
		return nil, "", r.err
	}
	return []byte(doc.Title), "doc.html", nil
}
