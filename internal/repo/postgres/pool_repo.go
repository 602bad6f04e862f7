package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CandidatePoolRepo produces the raw discovery pool. Ranking proper is
// an external concern; this default source simply surfaces recently
// active users and lets the candidate filter do the exclusions.
type CandidatePoolRepo struct {
	pool *pgxpool.Pool
}

func NewCandidatePoolRepo(pool *pgxpool.Pool) *CandidatePoolRepo {
	return &CandidatePoolRepo{pool: pool}
}

func (r *CandidatePoolRepo) ListPool(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id
FROM users
WHERE id <> $1 AND is_active
ORDER BY last_active_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidate pool: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidate pool: %w", rows.Err())
	}

	return ids, nil
}
