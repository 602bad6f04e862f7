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

// MessageRepo is the per-match conversation log. Appends run in a
// transaction that locks the match row, so sequence assignment is
// serialized per match while unrelated matches proceed in parallel.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, match_id, sender_id, seq_no, body, idempotency_key, created_at, read_at`

// Append assigns the next sequence number and inserts the message. A
// repeat of a previously applied idempotency key returns the original
// message with replayed=true and does not advance the sequence.
func (r *MessageRepo) Append(ctx context.Context, matchID uuid.UUID, senderID int64, body, idempotencyKey string, now time.Time) (model.Message, bool, error) {
	if senderID <= 0 || body == "" || idempotencyKey == "" {
		return model.Message{}, false, fmt.Errorf("invalid message payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var (
		msg      model.Message
		replayed bool
	)
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(txCtx, `
SELECT status
FROM matches
WHERE id = $1
FOR UPDATE
`, matchID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrMatchNotFound
			}
			return fmt.Errorf("lock match for append: %w", err)
		}
		if status != string(enums.MatchStatusActive) {
			return model.ErrMatchArchived
		}

		// The match row is locked, so the key lookup and the
		// insert below cannot race another append to this match.
		err = tx.QueryRow(txCtx, `
SELECT `+messageColumns+`
FROM messages
WHERE match_id = $1 AND idempotency_key = $2
`, matchID, idempotencyKey).Scan(
			&msg.ID, &msg.MatchID, &msg.SenderID, &msg.SeqNo, &msg.Body, &msg.IdempotencyKey, &msg.CreatedAt, &msg.ReadAt,
		)
		if err == nil {
			replayed = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lookup idempotency key: %w", err)
		}

		var seqNo int64
		if err := tx.QueryRow(txCtx, `
UPDATE matches
SET last_seq = last_seq + 1
WHERE id = $1
RETURNING last_seq
`, matchID).Scan(&seqNo); err != nil {
			return fmt.Errorf("advance match sequence: %w", err)
		}

		err = tx.QueryRow(txCtx, `
INSERT INTO messages (
	id,
	match_id,
	sender_id,
	seq_no,
	body,
	idempotency_key,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+messageColumns+`
`, uuid.New(), matchID, senderID, seqNo, body, idempotencyKey, now.UTC()).Scan(
			&msg.ID, &msg.MatchID, &msg.SenderID, &msg.SeqNo, &msg.Body, &msg.IdempotencyKey, &msg.CreatedAt, &msg.ReadAt,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Message{}, false, err
	}

	return msg, replayed, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, matchID, messageID uuid.UUID) (model.Message, error) {
	var msg model.Message
	err := r.pool.QueryRow(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE match_id = $1 AND id = $2
`, matchID, messageID).Scan(
		&msg.ID, &msg.MatchID, &msg.SenderID, &msg.SeqNo, &msg.Body, &msg.IdempotencyKey, &msg.CreatedAt, &msg.ReadAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, model.ErrMessageNotFound
		}
		return model.Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// ListAfter returns messages with seq_no greater than afterSeq in
// ascending order; the cursor makes the fetch restartable.
func (r *MessageRepo) ListAfter(ctx context.Context, matchID uuid.UUID, afterSeq int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE match_id = $1 AND seq_no > $2
ORDER BY seq_no ASC
LIMIT $3
`, matchID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID, &msg.MatchID, &msg.SenderID, &msg.SeqNo, &msg.Body, &msg.IdempotencyKey, &msg.CreatedAt, &msg.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

// MarkRead stamps read_at on the other participant's messages up to and
// including upToSeq. Already-read messages keep their original stamp.
func (r *MessageRepo) MarkRead(ctx context.Context, matchID uuid.UUID, readerID int64, upToSeq int64, now time.Time) (int64, error) {
	if readerID <= 0 || upToSeq <= 0 {
		return 0, fmt.Errorf("invalid mark-read payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET read_at = $4
WHERE match_id = $1
	AND sender_id <> $2
	AND seq_no <= $3
	AND read_at IS NULL
`, matchID, readerID, upToSeq, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return result.RowsAffected(), nil
}
