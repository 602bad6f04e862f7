package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

// SwipeRepo is the durable swipe ledger. The unique index on
// (actor_user_id, target_user_id) makes Record an atomic
// create-if-absent; records are never updated or deleted.
type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// Record inserts the decision and reports whether this call created it.
// When the pair was already decided, the original record is returned
// unchanged.
func (r *SwipeRepo) Record(ctx context.Context, actorUserID, targetUserID int64, action enums.SwipeAction, now time.Time) (model.SwipeRecord, bool, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return model.SwipeRecord{}, false, fmt.Errorf("invalid swipe payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec model.SwipeRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO swipes (
	actor_user_id,
	target_user_id,
	action,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (actor_user_id, target_user_id) DO NOTHING
RETURNING id, actor_user_id, target_user_id, action, created_at
`, actorUserID, targetUserID, string(action), now.UTC()).Scan(
		&rec.ID,
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Action,
		&rec.CreatedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.SwipeRecord{}, false, fmt.Errorf("record swipe: %w", err)
	}

	existing, err := r.get(ctx, actorUserID, targetUserID)
	if err != nil {
		return model.SwipeRecord{}, false, err
	}
	return existing, false, nil
}

// DecisionOf reports the recorded action for the ordered pair, if any.
func (r *SwipeRepo) DecisionOf(ctx context.Context, actorUserID, targetUserID int64) (enums.SwipeAction, bool, error) {
	rec, err := r.get(ctx, actorUserID, targetUserID)
	if err != nil {
		if errors.Is(err, model.ErrSwipeNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Action, true, nil
}

// HasLike reports whether a LIKE exists for the ordered pair. The match
// detector uses it for the reciprocal lookup.
func (r *SwipeRepo) HasLike(ctx context.Context, actorUserID, targetUserID int64) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2 AND action = $3
LIMIT 1
`, actorUserID, targetUserID, string(enums.SwipeActionLike)).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}
	return true, nil
}

// DecidedTargets returns the subset of candidateIDs the actor has
// already swiped on, either direction of decision.
func (r *SwipeRepo) DecidedTargets(ctx context.Context, actorUserID int64, candidateIDs []int64) (map[int64]struct{}, error) {
	if actorUserID <= 0 {
		return nil, fmt.Errorf("invalid actor user id")
	}
	if len(candidateIDs) == 0 {
		return map[int64]struct{}{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT target_user_id
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = ANY($2)
`, actorUserID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("list decided targets: %w", err)
	}
	defer rows.Close()

	decided := make(map[int64]struct{}, len(candidateIDs))
	for rows.Next() {
		var targetID int64
		if err := rows.Scan(&targetID); err != nil {
			return nil, fmt.Errorf("scan decided target: %w", err)
		}
		decided[targetID] = struct{}{}
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate decided targets: %w", rows.Err())
	}

	return decided, nil
}

func (r *SwipeRepo) get(ctx context.Context, actorUserID, targetUserID int64) (model.SwipeRecord, error) {
	var rec model.SwipeRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, actor_user_id, target_user_id, action, created_at
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2
`, actorUserID, targetUserID).Scan(
		&rec.ID,
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Action,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipeRecord{}, model.ErrSwipeNotFound
		}
		return model.SwipeRecord{}, fmt.Errorf("get swipe: %w", err)
	}
	return rec, nil
}
