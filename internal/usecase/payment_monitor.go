package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/adapter"
	"telegram-legal-assistant/internal/domain/ports/repository"
	"telegram-legal-assistant/internal/infra/logging"
	"telegram-legal-assistant/internal/infra/metrics"
)

// PendingSummary is the per-user view of one pending payment.
type PendingSummary struct {
	PaymentID string
	Tariff    model.Tariff
	CreatedAt time.Time
	Age       time.Duration
}

// PaymentMonitor owns the set of payments awaiting settlement. It polls the
// gateway until each entry reaches a terminal state (succeeded, canceled or
// TTL-expired), drives the subscription ledger, and notifies the user exactly
// once on success.
//
// Entries are held in an in-memory map mirrored to a durable store. While an
// entry is being processed it is taken out of the map and merged back only if
// it remains non-terminal, so a full pass and an out-of-band single check can
// never handle the same payment twice. The ledger mutation must succeed before
// the entry is removed; until then the entry stays pending and is retried on
// the next cycle, which is what makes activation effectively exactly-once.
type PaymentMonitor struct {
	gateway  adapter.PaymentGateway
	ledger   SubscriptionLedger
	notifier adapter.Notifier
	store    repository.PendingPaymentRepository
	cfg      config.MonitorConfig
	log      *zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*model.PendingPayment
	running bool

	// passMu serializes full poll passes; single checks run beside them.
	passMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPaymentMonitor(
	gateway adapter.PaymentGateway,
	ledger SubscriptionLedger,
	notifier adapter.Notifier,
	store repository.PendingPaymentRepository,
	cfg config.MonitorConfig,
	logger *zerolog.Logger,
) *PaymentMonitor {
	monLog := logger.With().Str("component", "PaymentMonitor").Logger()
	return &PaymentMonitor{
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
		store:    store,
		cfg:      cfg,
		log:      &monLog,
		now:      time.Now,
		pending:  make(map[string]*model.PendingPayment),
		stopCh:   make(chan struct{}),
	}
}

// SetNotifier installs the notification sink. The bot transport depends on
// the use cases, so wiring happens in two steps at startup, before Run.
func (m *PaymentMonitor) SetNotifier(n adapter.Notifier) { m.notifier = n }

// Restore reloads the pending set from the durable store. Call once at
// startup, before Run.
func (m *PaymentMonitor) Restore(ctx context.Context) error {
	entries, err := m.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("restore pending payments: %w", err)
	}
	m.mu.Lock()
	for _, p := range entries {
		if _, ok := m.pending[p.PaymentID]; !ok {
			m.pending[p.PaymentID] = p
		}
	}
	n := len(m.pending)
	m.mu.Unlock()
	metrics.SetPendingPayments(n)
	if n > 0 {
		m.log.Info().Int("count", n).Msg("restored pending payments from store")
	}
	return nil
}

// Register adds a charge to the pending set. A payment id already present is
// rejected: once a payment is being tracked (or has been resolved), a second
// registration would threaten the at-most-once activation guarantee.
func (m *PaymentMonitor) Register(ctx context.Context, paymentID, userID string, tariff model.Tariff) error {
	p, err := model.NewPendingPayment(paymentID, userID, tariff, m.now())
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, dup := m.pending[paymentID]; dup {
		m.mu.Unlock()
		return domain.ErrAlreadyExists
	}
	m.mu.Unlock()

	if err := m.store.Save(ctx, p); err != nil {
		return fmt.Errorf("persist pending payment %s: %w", paymentID, err)
	}

	m.mu.Lock()
	if _, dup := m.pending[paymentID]; dup {
		m.mu.Unlock()
		return domain.ErrAlreadyExists
	}
	m.pending[paymentID] = p
	n := len(m.pending)
	m.mu.Unlock()

	metrics.SetPendingPayments(n)
	m.log.Info().
		Str("payment_id", paymentID).
		Str("user_id", userID).
		Str("tariff", string(tariff)).
		Msg("payment registered for monitoring")
	return nil
}

// Run drives the polling loop until the context is canceled or Stop is
// called. The sleep between cycles adapts to the queue: short while payments
// are pending, long when the set is empty. Calling Run on an already running
// monitor is a logged no-op.
func (m *PaymentMonitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Warn().Msg("payment monitor already running")
		return nil
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.log.Info().
		Dur("busy_interval", m.cfg.BusyInterval).
		Dur("idle_interval", m.cfg.IdleInterval).
		Dur("pending_ttl", m.cfg.PendingTTL).
		Msg("payment monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("payment monitor stopped: context canceled")
			return ctx.Err()
		case <-m.stopCh:
			m.log.Info().Msg("payment monitor stopped")
			return nil
		case <-time.After(m.nextInterval()):
		}
		m.PollOnce(ctx)
	}
}

// Stop ends the loop after the current sleep or cycle completes. Idempotent.
func (m *PaymentMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// nextInterval picks the sleep before the next cycle.
func (m *PaymentMonitor) nextInterval() time.Duration {
	if m.PendingCount() > 0 {
		return m.cfg.BusyInterval
	}
	return m.cfg.IdleInterval
}

// PollOnce runs one full pass over a snapshot of the pending set. Entries are
// processed independently; one entry's failure never aborts the pass.
func (m *PaymentMonitor) PollOnce(ctx context.Context) {
	defer logging.TraceDuration(m.log, "PaymentMonitor.PollOnce")()
	m.passMu.Lock()
	defer m.passMu.Unlock()

	m.mu.Lock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	m.log.Debug().Int("count", len(ids)).Msg("checking pending payments")

	for _, id := range ids {
		m.checkOne(ctx, id)
	}
	metrics.IncPollCycle()
	metrics.SetPendingPayments(m.PendingCount())
}

// CheckSingle forces an out-of-band check of exactly one entry without
// disturbing a concurrently running full pass.
func (m *PaymentMonitor) CheckSingle(ctx context.Context, paymentID string) error {
	m.mu.Lock()
	_, ok := m.pending[paymentID]
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	m.checkOne(ctx, paymentID)
	metrics.SetPendingPayments(m.PendingCount())
	return nil
}

func (m *PaymentMonitor) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// UserPending lists the user's in-flight payments with their age.
func (m *PaymentMonitor) UserPending(userID string) []PendingSummary {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PendingSummary
	for _, p := range m.pending {
		if p.UserID != userID {
			continue
		}
		out = append(out, PendingSummary{
			PaymentID: p.PaymentID,
			Tariff:    p.Tariff,
			CreatedAt: p.CreatedAt,
			Age:       p.Age(now),
		})
	}
	return out
}

// checkOne takes ownership of the entry for the duration of its processing:
// it is removed from the shared map and merged back only when it remains
// non-terminal and no other path resolved it meanwhile.
func (m *PaymentMonitor) checkOne(ctx context.Context, paymentID string) {
	m.mu.Lock()
	p, ok := m.pending[paymentID]
	if !ok {
		// resolved by a concurrent check
		m.mu.Unlock()
		return
	}
	delete(m.pending, paymentID)
	m.mu.Unlock()

	if m.processEntry(ctx, p) {
		m.mu.Lock()
		if _, exists := m.pending[p.PaymentID]; !exists {
			m.pending[p.PaymentID] = p
		}
		m.mu.Unlock()
	}
}

// processEntry classifies one payment and applies its side effects. The return
// value reports whether the entry is still pending and must be kept.
func (m *PaymentMonitor) processEntry(ctx context.Context, p *model.PendingPayment) (keep bool) {
	ctx = logging.WithPaymentID(logging.WithUserID(ctx, p.UserID), p.PaymentID)
	log := logging.With(ctx, m.log)

	if p.Age(m.now()) > m.cfg.PendingTTL {
		// Soft TTL against queue garbage, not a user-facing failure: no
		// ledger call, no notification.
		m.deleteStored(ctx, p.PaymentID)
		metrics.IncPaymentResolved("expired")
		log.Info().Msg("pending payment expired, removed from queue")
		return false
	}

	res, err := m.gateway.QueryStatus(ctx, p.PaymentID)
	if err != nil {
		log.Warn().Err(err).Msg("gateway status check failed, will retry")
		return true
	}

	switch res.Status {
	case model.PaymentStatusSucceeded:
		return m.settleSucceeded(ctx, p, res)
	case model.PaymentStatusCanceled:
		m.deleteStored(ctx, p.PaymentID)
		metrics.IncPaymentResolved("canceled")
		log.Info().Msg("payment canceled")
		m.notify(ctx, p.UserID, msgPaymentCanceled)
		return false
	case model.PaymentStatusPending:
		log.Debug().Msg("payment still pending")
		return true
	default:
		log.Warn().Str("status", string(res.Status)).Msg("unknown payment status, keeping entry")
		return true
	}
}

// settleSucceeded applies the success transition: ledger mutation first, then
// the stored payment method, then removal and exactly one notification. Any
// ledger failure keeps the entry pending and withholds the notification.
func (m *PaymentMonitor) settleSucceeded(ctx context.Context, p *model.PendingPayment, res *model.StatusResult) (keep bool) {
	log := logging.With(ctx, m.log)

	start := time.Time{}
	if res.SubscriptionStart != "" {
		d, err := model.ParseWireDate(res.SubscriptionStart)
		if err != nil {
			log.Warn().
				Str("start", res.SubscriptionStart).
				Msg("unparseable subscription start from gateway, using today")
		} else {
			start = d
		}
	}

	if err := m.ledger.ActivateOrExtend(ctx, p.UserID, p.Tariff, start); err != nil {
		log.Error().Err(err).Msg("ledger update failed, payment stays pending")
		return true
	}
	if res.PaymentMethodID != "" {
		if err := m.ledger.SetPaymentMethod(ctx, p.UserID, res.PaymentMethodID); err != nil {
			log.Error().Err(err).Msg("saving payment method failed, payment stays pending")
			return true
		}
	}

	m.deleteStored(ctx, p.PaymentID)
	metrics.IncPaymentResolved("succeeded")
	m.notify(ctx, p.UserID, successMessage(p.Tariff, res))
	log.Info().Str("tariff", string(p.Tariff)).Msg("payment settled, subscription active")
	return false
}

// deleteStored removes the durable copy. A failure here is logged only: the
// in-memory entry is already resolved, and a replayed entry after restart
// re-runs an idempotent activation.
func (m *PaymentMonitor) deleteStored(ctx context.Context, paymentID string) {
	if err := m.store.Delete(ctx, paymentID); err != nil {
		m.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to delete pending payment from store")
	}
}

// notify is attempted exactly once at the moment of transition and never
// retried.
func (m *PaymentMonitor) notify(ctx context.Context, userID, text string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, userID, text); err != nil {
		metrics.IncNotification("failed")
		m.log.Error().Err(err).Str("user_id", userID).Msg("failed to send payment notification")
		return
	}
	metrics.IncNotification("sent")
}

func successMessage(tariff model.Tariff, res *model.StatusResult) string {
	start := res.SubscriptionStart
	if start == "" {
		start = "today"
	}
	end := res.SubscriptionEnd
	if end == "" {
		end = "in a month"
	}
	return fmt.Sprintf(
		"✅ Payment received!\n\nTariff: %s\nActive from %s until %s.\n\nYou can start asking questions right away.",
		tariff.DisplayName(), start, end,
	)
}
