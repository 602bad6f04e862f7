package discovery

import (
	"context"
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation error")

const defaultPoolSize = 50

type Ledger interface {
	DecidedTargets(ctx context.Context, actorUserID int64, candidateIDs []int64) (map[int64]struct{}, error)
}

type MatchStore interface {
	MatchedUserIDs(ctx context.Context, userID int64) (map[int64]struct{}, error)
}

// CandidateSource produces the raw, ranked candidate pool for a user.
type CandidateSource interface {
	ListPool(ctx context.Context, userID int64, limit int) ([]int64, error)
}

type Service struct {
	ledger     Ledger
	matchStore MatchStore
	source     CandidateSource
	poolSize   int
}

type Dependencies struct {
	Ledger     Ledger
	MatchStore MatchStore
	Source     CandidateSource
	PoolSize   int
}

func NewService(deps Dependencies) *Service {
	poolSize := deps.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Service{
		ledger:     deps.Ledger,
		matchStore: deps.MatchStore,
		source:     deps.Source,
		poolSize:   poolSize,
	}
}

// Filter removes the viewer themselves, anyone the viewer has already
// decided on, and anyone they are matched with, active or archived.
// Relative order of the survivors is preserved.
func (s *Service) Filter(ctx context.Context, userID int64, candidateIDs []int64) ([]int64, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.ledger == nil || s.matchStore == nil {
		return nil, fmt.Errorf("discovery dependencies are not configured")
	}
	if len(candidateIDs) == 0 {
		return []int64{}, nil
	}

	decided, err := s.ledger.DecidedTargets(ctx, userID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup decided targets: %w", err)
	}
	matched, err := s.matchStore.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup matched users: %w", err)
	}

	seen := make(map[int64]struct{}, len(candidateIDs))
	filtered := make([]int64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id <= 0 || id == userID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := decided[id]; ok {
			continue
		}
		if _, ok := matched[id]; ok {
			continue
		}
		filtered = append(filtered, id)
	}
	return filtered, nil
}

// Discover pulls a fresh pool from the candidate source and filters it.
func (s *Service) Discover(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.source == nil {
		return nil, fmt.Errorf("discovery dependencies are not configured")
	}
	if limit <= 0 || limit > s.poolSize {
		limit = s.poolSize
	}

	// Over-fetch so that filtering still leaves a full page.
	pool, err := s.source.ListPool(ctx, userID, limit*3)
	if err != nil {
		return nil, fmt.Errorf("list candidate pool: %w", err)
	}

	filtered, err := s.Filter(ctx, userID, pool)
	if err != nil {
		return nil, err
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}
