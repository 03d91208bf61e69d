package rate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically drops ledger entries older than MaxAge.
type Sweeper struct {
	store    Store
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// StartSweeper launches the background sweep loop.
func StartSweeper(store Store, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(context.Background()); err != nil {
				s.logger.Warn("Attempt ledger: sweep failed", "error", err)
			}
		case <-s.stop:
			return
		}
	}
}

// SweepOnce removes stale entries immediately.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Debug("Attempt ledger: swept stale entries", "removed", removed)
	}
	return removed, nil
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}
