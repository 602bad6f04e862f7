package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// MatchOutcome is the detector's verdict for a recorded like.
type MatchOutcome int

const (
	OutcomeNoMatch MatchOutcome = iota
	OutcomeMatchCreated
	OutcomeAlreadyMatched
)

type Ledger interface {
	Record(ctx context.Context, actorUserID, targetUserID int64, action enums.SwipeAction, now time.Time) (model.SwipeRecord, bool, error)
	DecisionOf(ctx context.Context, actorUserID, targetUserID int64) (enums.SwipeAction, bool, error)
	HasLike(ctx context.Context, actorUserID, targetUserID int64) (bool, error)
}

type MatchStore interface {
	CreateIfAbsent(ctx context.Context, userID, targetID int64, now time.Time) (model.Match, bool, error)
}

type Metrics interface {
	RecordSwipe(action string)
	RecordMatchCreated()
}

type SwipeResult struct {
	Record         model.SwipeRecord
	AlreadyDecided bool
	Outcome        MatchOutcome
	Match          *model.Match
}

type Service struct {
	ledger     Ledger
	matchStore MatchStore
	metrics    Metrics
	now        func() time.Time
}

type Dependencies struct {
	Ledger     Ledger
	MatchStore MatchStore
	Metrics    Metrics
}

func NewService(deps Dependencies) *Service {
	return &Service{
		ledger:     deps.Ledger,
		matchStore: deps.MatchStore,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Swipe records the decision and, for likes, runs reciprocal detection.
// A repeated swipe on the same target is reported via AlreadyDecided
// with the original record; detection still runs so a blind retry of
// the whole flow converges on the correct outcome.
func (s *Service) Swipe(ctx context.Context, actorUserID, targetUserID int64, action string) (SwipeResult, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return SwipeResult{}, ErrValidation
	}

	normalized, err := normalizeAction(action)
	if err != nil {
		return SwipeResult{}, err
	}

	if s.ledger == nil || s.matchStore == nil {
		return SwipeResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	now := s.now().UTC()

	rec, created, err := s.ledger.Record(ctx, actorUserID, targetUserID, normalized, now)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("record swipe: %w", err)
	}

	result := SwipeResult{
		Record:         rec,
		AlreadyDecided: !created,
		Outcome:        OutcomeNoMatch,
	}

	if rec.IsLike() {
		outcome, match, err := s.detect(ctx, actorUserID, targetUserID, now)
		if err != nil {
			return SwipeResult{}, err
		}
		result.Outcome = outcome
		result.Match = match
	}

	if created && s.metrics != nil {
		s.metrics.RecordSwipe(string(normalized))
		if result.Outcome == OutcomeMatchCreated {
			s.metrics.RecordMatchCreated()
		}
	}

	return result, nil
}

// OnLikeRecorded re-runs detection for an already durable like. It is a
// pure function of ledger state, safe to call any number of times,
// including crash recovery after the ledger write.
func (s *Service) OnLikeRecorded(ctx context.Context, actorUserID, targetUserID int64) (MatchOutcome, *model.Match, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return OutcomeNoMatch, nil, ErrValidation
	}
	if s.ledger == nil || s.matchStore == nil {
		return OutcomeNoMatch, nil, fmt.Errorf("swipe dependencies are not configured")
	}
	return s.detect(ctx, actorUserID, targetUserID, s.now().UTC())
}

// DecisionOf exposes the ledger query used by the candidate filter.
func (s *Service) DecisionOf(ctx context.Context, actorUserID, targetUserID int64) (enums.SwipeAction, bool, error) {
	if actorUserID <= 0 || targetUserID <= 0 {
		return "", false, ErrValidation
	}
	if s.ledger == nil {
		return "", false, fmt.Errorf("swipe dependencies are not configured")
	}
	return s.ledger.DecisionOf(ctx, actorUserID, targetUserID)
}

func (s *Service) detect(ctx context.Context, actorUserID, targetUserID int64, now time.Time) (MatchOutcome, *model.Match, error) {
	reciprocal, err := s.ledger.HasLike(ctx, targetUserID, actorUserID)
	if err != nil {
		return OutcomeNoMatch, nil, fmt.Errorf("lookup reciprocal like: %w", err)
	}
	if !reciprocal {
		return OutcomeNoMatch, nil, nil
	}

	match, created, err := s.matchStore.CreateIfAbsent(ctx, actorUserID, targetUserID, now)
	if err != nil {
		return OutcomeNoMatch, nil, fmt.Errorf("create match: %w", err)
	}
	if created {
		return OutcomeMatchCreated, &match, nil
	}
	return OutcomeAlreadyMatched, &match, nil
}

func normalizeAction(input string) (enums.SwipeAction, error) {
	value := strings.ToUpper(strings.TrimSpace(input))
	switch enums.SwipeAction(value) {
	case enums.SwipeActionLike, enums.SwipeActionDislike:
		return enums.SwipeAction(value), nil
	default:
		return "", ErrUnsupportedAction
	}
}
