package dto

type SessionRequest struct {
	UserID int64 `json:"user_id"`
}

type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
	UserID       int64  `json:"user_id"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
