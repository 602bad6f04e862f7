package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

// MatchRepo holds match rows keyed by the normalized unordered pair.
// The unique index on (user_a_id, user_b_id) is what turns match
// creation into an idempotent create-if-absent.
type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

const matchColumns = `id, user_a_id, user_b_id, status, created_at, archived_at, last_seq`

// CreateIfAbsent creates the match for the unordered pair, or returns
// the existing row when one of the two completing calls got there
// first. Archived rows are returned as-is and never resurrected.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, userID, targetID int64, now time.Time) (model.Match, bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return model.Match{}, false, fmt.Errorf("invalid match pair")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := model.PairKey(userID, targetID)

	var m model.Match
	err := r.pool.QueryRow(ctx, `
INSERT INTO matches (
	id,
	user_a_id,
	user_b_id,
	status,
	created_at,
	last_seq
) VALUES ($1, $2, $3, $4, $5, 0)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING `+matchColumns+`
`, uuid.New(), userA, userB, string(enums.MatchStatusActive), now.UTC()).Scan(
		&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.CreatedAt, &m.ArchivedAt, &m.LastSeq,
	)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	existing, found, err := r.FindByPair(ctx, userA, userB)
	if err != nil {
		return model.Match{}, false, err
	}
	if !found {
		// Matches are never deleted, so losing the insert race
		// implies the row is visible by now.
		return model.Match{}, false, fmt.Errorf("match row vanished after conflict for pair (%d,%d)", userA, userB)
	}
	return existing, false, nil
}

func (r *MatchRepo) Get(ctx context.Context, matchID uuid.UUID) (model.Match, error) {
	var m model.Match
	err := r.pool.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE id = $1
`, matchID).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.CreatedAt, &m.ArchivedAt, &m.LastSeq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, model.ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) FindByPair(ctx context.Context, userID, targetID int64) (model.Match, bool, error) {
	userA, userB := model.PairKey(userID, targetID)

	var m model.Match
	err := r.pool.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, userA, userB).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.CreatedAt, &m.ArchivedAt, &m.LastSeq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, false, nil
		}
		return model.Match{}, false, fmt.Errorf("find match by pair: %w", err)
	}
	return m, true, nil
}

// ListForUser returns the user's active matches newest-first, each with
// the conversation tail and the count of incoming unread messages.
// Archived matches stay readable through Get but never appear here.
func (r *MatchRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]model.MatchSummary, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id, m.user_a_id, m.user_b_id, m.status, m.created_at, m.archived_at, m.last_seq,
	last_msg.body,
	last_msg.created_at,
	COALESCE(unread.cnt, 0)
FROM matches m
LEFT JOIN LATERAL (
	SELECT body, created_at
	FROM messages
	WHERE match_id = m.id
	ORDER BY seq_no DESC
	LIMIT 1
) last_msg ON TRUE
LEFT JOIN LATERAL (
	SELECT COUNT(*) AS cnt
	FROM messages
	WHERE match_id = m.id AND sender_id <> $1 AND read_at IS NULL
) unread ON TRUE
WHERE (m.user_a_id = $1 OR m.user_b_id = $1) AND m.status = $3
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2
`, userID, limit, string(enums.MatchStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]model.MatchSummary, 0, limit)
	for rows.Next() {
		var item model.MatchSummary
		if err := rows.Scan(
			&item.Match.ID,
			&item.Match.UserAID,
			&item.Match.UserBID,
			&item.Match.Status,
			&item.Match.CreatedAt,
			&item.Match.ArchivedAt,
			&item.Match.LastSeq,
			&item.LastMessage,
			&item.LastMessageAt,
			&item.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan match summary: %w", err)
		}
		item.OtherUserID = item.Match.OtherUser(userID)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate match summaries: %w", rows.Err())
	}

	return items, nil
}

// Archive flips the match to archived and reports whether this call did
// the transition. Re-archiving an archived match is a no-op.
func (r *MatchRepo) Archive(ctx context.Context, matchID uuid.UUID, now time.Time) (model.Match, bool, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var m model.Match
	err := r.pool.QueryRow(ctx, `
UPDATE matches
SET status = $2, archived_at = $3
WHERE id = $1 AND status = $4
RETURNING `+matchColumns+`
`, matchID, string(enums.MatchStatusArchived), now.UTC(), string(enums.MatchStatusActive)).Scan(
		&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.CreatedAt, &m.ArchivedAt, &m.LastSeq,
	)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, false, fmt.Errorf("archive match: %w", err)
	}

	existing, err := r.Get(ctx, matchID)
	if err != nil {
		return model.Match{}, false, err
	}
	return existing, false, nil
}

// MatchedUserIDs returns every user the given user has ever matched
// with, archived matches included.
func (r *MatchRepo) MatchedUserIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_a_id, user_b_id
FROM matches
WHERE user_a_id = $1 OR user_b_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list matched users: %w", err)
	}
	defer rows.Close()

	matched := make(map[int64]struct{})
	for rows.Next() {
		var userA, userB int64
		if err := rows.Scan(&userA, &userB); err != nil {
			return nil, fmt.Errorf("scan matched pair: %w", err)
		}
		if userA == userID {
			matched[userB] = struct{}{}
		} else {
			matched[userA] = struct{}{}
		}
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matched pairs: %w", rows.Err())
	}

	return matched, nil
}
