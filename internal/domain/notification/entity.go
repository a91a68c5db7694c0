package notification

import (
	"database/sql"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	// ChannelOps broadcasts to the staff operations feed.
	ChannelOps Channel = "ops"
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

type Notification struct {
	ID         int64         `json:"id" db:"id"`
	CustomerID sql.NullInt64 `json:"customer_id,omitempty" db:"customer_id"`
	Subject    string        `json:"subject" db:"subject"`
	Message    string        `json:"message" db:"message"`
	Channel    Channel       `json:"channel" db:"channel"`
	Status     Status        `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
