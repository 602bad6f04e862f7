package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("match not found")
	ErrNotParticipant = errors.New("user is not a participant of this match")
)

type Registry interface {
	Get(ctx context.Context, matchID uuid.UUID) (model.Match, error)
	FindByPair(ctx context.Context, userID, targetID int64) (model.Match, bool, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]model.MatchSummary, error)
	Archive(ctx context.Context, matchID uuid.UUID, now time.Time) (model.Match, bool, error)
}

type Service struct {
	registry Registry
	now      func() time.Time
}

type Dependencies struct {
	Registry Registry
}

func NewService(deps Dependencies) *Service {
	return &Service{
		registry: deps.Registry,
		now:      time.Now,
	}
}

// List returns the caller's matches, newest first, with conversation
// previews. Archived matches are excluded.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]model.MatchSummary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.registry == nil {
		return nil, fmt.Errorf("match registry is not configured")
	}

	summaries, err := s.registry.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	// Both stores filter by status already; keep the contract enforced
	// here too so no registry implementation can leak archived rows.
	active := summaries[:0]
	for _, summary := range summaries {
		if summary.Match.IsActive() {
			active = append(active, summary)
		}
	}
	return active, nil
}

// Get returns a single match the caller participates in. Archived
// matches are still readable; only their conversation is frozen.
func (s *Service) Get(ctx context.Context, userID int64, matchID uuid.UUID) (model.Match, error) {
	if userID <= 0 || matchID == uuid.Nil {
		return model.Match{}, ErrValidation
	}
	if s.registry == nil {
		return model.Match{}, fmt.Errorf("match registry is not configured")
	}

	match, err := s.registry.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !match.HasParticipant(userID) {
		return model.Match{}, ErrNotParticipant
	}
	return match, nil
}

// FindByPair locates the match for a user pair regardless of status.
func (s *Service) FindByPair(ctx context.Context, userID, targetID int64) (model.Match, bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return model.Match{}, false, ErrValidation
	}
	if s.registry == nil {
		return model.Match{}, false, fmt.Errorf("match registry is not configured")
	}
	return s.registry.FindByPair(ctx, userID, targetID)
}

// Archive unmatches. The operation is idempotent: archiving an already
// archived match returns the existing state without error. An archived
// match is never reactivated, even if the pair likes each other again.
func (s *Service) Archive(ctx context.Context, userID int64, matchID uuid.UUID) (model.Match, error) {
	if userID <= 0 || matchID == uuid.Nil {
		return model.Match{}, ErrValidation
	}
	if s.registry == nil {
		return model.Match{}, fmt.Errorf("match registry is not configured")
	}

	current, err := s.Get(ctx, userID, matchID)
	if err != nil {
		return model.Match{}, err
	}
	if !current.IsActive() {
		return current, nil
	}

	archived, _, err := s.registry.Archive(ctx, matchID, s.now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("archive match: %w", err)
	}
	return archived, nil
}
