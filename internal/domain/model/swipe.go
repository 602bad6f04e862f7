package model

import (
	"time"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
)

// SwipeRecord is the ledger entry for a single unilateral decision.
// At most one record exists per ordered (actor, target) pair and it is
// never mutated or deleted after the insert.
type SwipeRecord struct {
	ID           int64
	ActorUserID  int64
	TargetUserID int64
	Action       enums.SwipeAction
	CreatedAt    time.Time
}

func (s SwipeRecord) IsLike() bool {
	return s.Action == enums.SwipeActionLike
}
