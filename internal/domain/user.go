package domain

import (
	"time"
)

// User is an anonymous per-device identity. Users are created lazily by the
// identity middleware and swept by the TTL worker once inactive.
type User struct {
	UserID     string
	Username   string
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
