package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once appended. SeqNo is assigned by the storage
// layer at append time and is gapless per match.
type Message struct {
	ID             uuid.UUID
	MatchID        uuid.UUID
	SenderID       int64
	SeqNo          int64
	Body           string
	IdempotencyKey string
	CreatedAt      time.Time
	ReadAt         *time.Time
}
