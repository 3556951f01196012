package models

import "time"

// User represents a bot user and their points balance
type User struct {
	UserID        int64      `bson:"user_id"`
	FirstName     string     `bson:"first_name"`
	Username      string     `bson:"username,omitempty"`
	Points        int64      `bson:"points"`
	Banned        bool       `bson:"banned"`
	LastBonusTime *time.Time `bson:"last_bonus_time"`
	JoinedAt      time.Time  `bson:"joined_at"`
}

// Profile carries the Telegram profile fields copied into a new user record
type Profile struct {
	FirstName string
	Username  string
}

// Setting is a single named configuration value
type Setting struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

// Reason labels why a points balance changed
type Reason string

const (
	ReasonWelcome     Reason = "welcome"
	ReasonAsk         Reason = "ask"
	ReasonRefund      Reason = "refund"
	ReasonBonus       Reason = "bonus"
	ReasonAdminAdd    Reason = "admin_add"
	ReasonAdminRemove Reason = "admin_remove"
)

// JournalEntry represents one recorded balance change
type JournalEntry struct {
	UserID    int64
	Delta     int64
	Reason    Reason
	CreatedAt time.Time
}

// Stats represents aggregate user statistics
type Stats struct {
	TotalUsers  int64
	BannedUsers int64
	TotalPoints int64
}
