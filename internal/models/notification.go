package models

import "time"

// Notification is the delivery ledger: one row per (user, release group)
// pairing that has been queued for email. The unique constraint on the pair
// is what makes dispatch idempotent; a duplicate insert is absorbed, never
// re-sent.
type Notification struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ReleaseGroupID int64     `json:"release_group_id"`
	CreatedAt      time.Time `json:"created_at"`
}
