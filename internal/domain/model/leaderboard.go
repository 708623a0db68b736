package model

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Currency int    `json:"currency"`
	MapTier  string `json:"map_tier"`
}
