package models

import "time"

// User represents a user in the database. The ID is the Telegram user ID.
type User struct {
	ID               int64     `db:"id"`
	TelegramUsername string    `db:"telegram_username"`
	FeedUUID         string    `db:"feed_uuid"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type contextKey string

// UserContextKey is the key for the authenticated user in a request context.
const UserContextKey = contextKey("user")
