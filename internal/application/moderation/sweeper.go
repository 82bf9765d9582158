package moderation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SweepBatch is how many due listings one sweep pass expires at most.
const SweepBatch = 200

// RunExpirySweeper calls ExpireDue every interval until ctx is done. A full batch is followed
// immediately by another pass so a backlog drains without waiting for the next tick.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Info().Msg("expiry sweeper disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := s.ExpireDue(ctx, SweepBatch)
		if err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
			return
		}
		if n < SweepBatch {
			return
		}
	}
}
