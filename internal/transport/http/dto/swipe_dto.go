package dto

import "time"

type SwipeRequest struct {
	TargetUserID int64  `json:"target_user_id"`
	Action       string `json:"action"`
}

type SwipeResponse struct {
	Action         string         `json:"action"`
	AlreadyDecided bool           `json:"already_decided"`
	DecidedAt      time.Time      `json:"decided_at"`
	Matched        bool           `json:"matched"`
	IsNewMatch     bool           `json:"is_new_match"`
	Match          *MatchResponse `json:"match,omitempty"`
}
