package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
)

// Match is keyed by the unordered user pair: UserAID always holds the
// smaller id. LastSeq is the per-match message counter owned by the
// storage layer; it only ever grows.
type Match struct {
	ID         uuid.UUID
	UserAID    int64
	UserBID    int64
	Status     enums.MatchStatus
	CreatedAt  time.Time
	ArchivedAt *time.Time
	LastSeq    int64
}

func (m Match) IsActive() bool {
	return m.Status == enums.MatchStatusActive
}

func (m Match) HasParticipant(userID int64) bool {
	return userID == m.UserAID || userID == m.UserBID
}

func (m Match) OtherUser(userID int64) int64 {
	if userID == m.UserAID {
		return m.UserBID
	}
	return m.UserAID
}

// MatchSummary is a match joined with its conversation tail, shaped for
// the match list.
type MatchSummary struct {
	Match         Match
	OtherUserID   int64
	LastMessage   *string
	LastMessageAt *time.Time
	UnreadCount   int64
}

// PairKey normalizes an unordered user pair so both directions of a
// mutual like map to the same identity.
func PairKey(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
