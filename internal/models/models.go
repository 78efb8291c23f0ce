package models

import "time"

// User is one row per (platform, platform user id) pair. Created on the
// first inbound message from an unseen pair, mutated on every message,
// never deleted.
type User struct {
	ID               int64
	Platform         string
	PlatformUserID   string
	Name             string
	MessageCount     int
	LastReset        string // YYYY-MM-DD of the last daily counter reset
	LastActive       time.Time
	LastReminder     time.Time
	IsPremium        bool
	PremiumExpiresAt *time.Time // nil means non-expiring premium
	CreatedAt        time.Time
}

// PremiumActive reports whether the premium entitlement is valid at t.
func (u *User) PremiumActive(t time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || u.PremiumExpiresAt.After(t)
}

// MemoryEntry is an append-only rolling emotional summary, read back
// newest-first to build conversational context.
type MemoryEntry struct {
	ID             int64
	Platform       string
	PlatformUserID string
	Summary        string
	EmotionTag     string
	CreatedAt      time.Time
}

// MoodLogEntry is an emoji-derived mood sample used for weekly digests.
type MoodLogEntry struct {
	ID             int64
	Platform       string
	PlatformUserID string
	MoodScore      int
	MoodLabel      string
	CreatedAt      time.Time
}
