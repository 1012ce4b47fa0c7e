package models

// Channel is a text channel known to the ledger.
type Channel struct {
	ID       uint64 `json:"id"`
	ServerID uint64 `json:"server_id"`
	Name     string `json:"name"`
	Visible  bool   `json:"visible"`
}

// User is the subset of author facts the ledger keeps.
type User struct {
	ID            uint64 `json:"id"`
	Username      string `json:"username"`
	Bot           bool   `json:"bot"`
	Discriminator string `json:"discriminator"`
}

// StoredReply links a notice the bot sent to the message it answered.
type StoredReply struct {
	ID        uint64 `json:"id"`
	ChannelID uint64 `json:"channel_id"`
	RepliedTo uint64 `json:"replied_to"`
}

// RepostCount is one row of the most reposted links report.
type RepostCount struct {
	Link  string `json:"link"`
	Count int    `json:"count"`
}

// ReposterCount is one row of the reposters leaderboard.
type ReposterCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// WordleScore is one bucket of a server's score distribution. Score 0 is a failed puzzle.
type WordleScore struct {
	Score int `json:"score"`
	Count int `json:"count"`
}
