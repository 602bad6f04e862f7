package dto

import "time"

type MatchResponse struct {
	ID          string     `json:"id"`
	OtherUserID int64      `json:"other_user_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

type MatchItemResponse struct {
	MatchResponse
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int64      `json:"unread_count"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type UnmatchRequest struct {
	MatchID string `json:"match_id"`
}

type UnmatchResponse struct {
	OK    bool          `json:"ok"`
	Match MatchResponse `json:"match"`
}
