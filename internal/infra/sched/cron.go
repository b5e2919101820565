package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/usecase"
)

// Scheduler drives the periodic jobs: a safety-net payment check on top of
// the monitor's own loop, and the daily subscription expiry sweep.
type Scheduler struct {
	cron    *cron.Cron
	monitor *usecase.PaymentMonitor
	subUC   *usecase.SubscriptionUseCase
	cfg     config.SchedulerConfig
	log     *zerolog.Logger
}

func New(monitor *usecase.PaymentMonitor, subUC *usecase.SubscriptionUseCase, cfg config.SchedulerConfig, logger *zerolog.Logger) *Scheduler {
	schedLog := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		monitor: monitor,
		subUC:   subUC,
		cfg:     cfg,
		log:     &schedLog,
	}
}

// Start registers the jobs and launches the cron loop. Job functions get a
// context bounded well below the shortest schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	checkSpec := fmt.Sprintf("@every %s", s.cfg.PaymentCheckEvery)
	if _, err := s.cron.AddFunc(checkSpec, func() {
		if s.monitor.PendingCount() == 0 {
			return
		}
		jctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentCheckEvery/2)
		defer cancel()
		s.monitor.PollOnce(jctx)
	}); err != nil {
		return fmt.Errorf("schedule payment check: %w", err)
	}

	sweepSpec := fmt.Sprintf("0 %d * * *", s.cfg.DailySweepHour)
	if _, err := s.cron.AddFunc(sweepSpec, func() {
		jctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		expired, warned, err := s.subUC.DailySweep(jctx)
		if err != nil {
			s.log.Error().Err(err).Msg("daily subscription sweep failed")
			return
		}
		s.log.Info().Int("expired", expired).Int("warned", warned).Msg("daily subscription sweep finished")
	}); err != nil {
		return fmt.Errorf("schedule daily sweep: %w", err)
	}

	s.cron.Start()
	s.log.Info().
		Str("payment_check", checkSpec).
		Str("daily_sweep", sweepSpec).
		Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("scheduler stopped")
}
