package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type expirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// Sweeper expires lapsed trials on a cron schedule, so reports and the chat
// gate agree even for users who never call CheckStatus.
type Sweeper struct {
	svc     expirer
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
}

func NewSweeper(svc expirer, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		svc:     svc,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "expiry_sweeper").Logger(),
		timeout: time.Minute,
	}
}

// Start schedules the sweep using a standard cron spec or a descriptor such
// as "@every 15m". It does not block.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", spec).Msg("expiry sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.svc.ExpireDue(s.logger.WithContext(ctx))
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return 0, err
	}
	s.logger.Info().Int64("expired", n).Msg("expiry sweep finished")
	return n, nil
}
