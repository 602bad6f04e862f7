package enums

type MatchStatus string

const (
	MatchStatusActive   MatchStatus = "active"
	MatchStatusArchived MatchStatus = "archived"
)
