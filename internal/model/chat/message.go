package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser = Role("user")
	RoleBot  = Role("bot")
)

// Message is one append-only transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
