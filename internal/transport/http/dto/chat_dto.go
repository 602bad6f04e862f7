package dto

import "time"

type SendMessageRequest struct {
	MatchID        string `json:"match_id"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key"`
}

type MessageResponse struct {
	ID            string     `json:"id"`
	SeqNo         int64      `json:"seq_no"`
	SenderID      int64      `json:"sender_id"`
	IsCurrentUser bool       `json:"is_current_user"`
	Body          string     `json:"body"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}

type SendMessageResponse struct {
	Message  MessageResponse `json:"message"`
	Replayed bool            `json:"replayed"`
}

type ConversationResponse struct {
	Items   []MessageResponse `json:"items"`
	NextSeq int64             `json:"next_seq"`
	HasMore bool              `json:"has_more"`
}

type MarkReadRequest struct {
	UpToSeq int64 `json:"up_to_seq"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
