package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/ranking"
	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

// maxParallelLookups bounds concurrent event lookups in TopPerformers.
const maxParallelLookups = 8

// Leaderboard ranks every session linked to the event. An unknown event is
// an error; an event without sessions yields an empty board.
func (s *Service) Leaderboard(ctx context.Context, eventID int64) ([]model.LeaderboardEntry, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := store.LeaderboardRows(ctx, eventID)
	if err != nil {
		metrics.RecordRankingError()
		return nil, fmt.Errorf("load leaderboard rows: %w", err)
	}
	entries := ranking.Rank(rows)
	metrics.RecordLeaderboardQuery(sinceMs(start), len(entries))
	return entries, nil
}

// JoggerStanding returns the jogger's best entry on the event leaderboard.
func (s *Service) JoggerStanding(ctx context.Context, eventID int64, email string) (model.LeaderboardEntry, error) {
	entries, err := s.Leaderboard(ctx, eventID)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	e, ok := ranking.Standing(entries, email)
	if !ok {
		return model.LeaderboardEntry{}, ErrNotRanked
	}
	return e, nil
}

// TopPerformers aggregates distance over a set of events. Duplicate ids are
// collapsed and every id must name an existing event.
func (s *Service) TopPerformers(ctx context.Context, eventIDs []int64, limit int) ([]model.TopPerformer, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ranking.ErrInvalidLimit
	}
	if limit > s.maxTopPerformersLimit {
		return nil, ErrLimitExceeded
	}
	ids := slices.Clone(eventIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil, ErrNoEvents
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := store.GetEvent(gctx, id); err != nil {
				return fmt.Errorf("event %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, err := store.PerformerRows(ctx, ids)
	if err != nil {
		metrics.RecordRankingError()
		return nil, fmt.Errorf("load performer rows: %w", err)
	}
	top, err := ranking.TopPerformers(rows, limit)
	if err != nil {
		metrics.RecordRankingError()
		return nil, err
	}
	metrics.RecordTopPerformersLatency(sinceMs(start))
	s.logger.Debug(ctx, "top performers computed",
		logger.Int("events", len(ids)),
		logger.Int("rows", len(rows)),
		logger.Int("performers", len(top)),
	)
	return top, nil
}
