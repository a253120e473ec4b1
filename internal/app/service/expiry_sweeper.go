package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/repository"
)

// ExpirySweeper periodically deactivates links whose expiry has passed so
// stale links stop resolving even if nobody visits them.
type ExpirySweeper struct {
	logger   *zap.Logger
	links    repository.LinkRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewExpirySweeper creates a sweeper ticking at the given interval.
func NewExpirySweeper(logger *zap.Logger, links repository.LinkRepository, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		logger:   logger,
		links:    links,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweep.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
}

func (s *ExpirySweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	affected, err := s.links.DeactivateExpired(ctx, now)
	if err != nil {
		s.logger.Error("failed to deactivate expired links", zap.Error(err))
		return
	}

	if affected > 0 {
		s.logger.Info("deactivated expired links",
			zap.Int64("count", affected),
			zap.Time("as_of", now),
		)
	}
}
