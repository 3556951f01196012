// Package state tracks which follow-up message each user owes the bot.
package state

import "context"

// Tag names the pending action a user's next plain message completes
type Tag string

const (
	TagNone         Tag = ""
	TagAsk          Tag = "awaiting_ask"
	TagAddPoints    Tag = "add_points"
	TagRemovePoints Tag = "rem_points"
	TagBan          Tag = "ban"
	TagUnban        Tag = "unban"
	TagSetKey       Tag = "set_key"
	TagBroadcast    Tag = "broadcast"
)

// Valid reports whether t is one of the known pending tags
func (t Tag) Valid() bool {
	switch t {
	case TagAsk, TagAddPoints, TagRemovePoints, TagBan, TagUnban, TagSetKey, TagBroadcast:
		return true
	}
	return false
}

// Admin reports whether the tag belongs to an owner-only flow
func (t Tag) Admin() bool {
	return t.Valid() && t != TagAsk
}

// Tracker stores at most one pending tag per user. Set overwrites any
// previous tag.
type Tracker interface {
	Set(ctx context.Context, userID int64, tag Tag) error
	Get(ctx context.Context, userID int64) (Tag, bool, error)
	// Take returns the pending tag and removes it in one step
	Take(ctx context.Context, userID int64) (Tag, bool, error)
	Clear(ctx context.Context, userID int64) error
}
