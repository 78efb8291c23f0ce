package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "maya.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	u, err := s.GetUser("telegram", "42")
	if err != nil {
		t.Fatalf("get unknown user: %v", err)
	}
	if u != nil {
		t.Fatal("expected nil for unknown user")
	}

	if err := s.CreateUser("telegram", "42", "Asha", now); err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err = s.GetUser("telegram", "42")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil {
		t.Fatal("user not found after create")
	}
	if u.Name != "Asha" || u.MessageCount != 0 || u.IsPremium {
		t.Errorf("unexpected defaults: %+v", u)
	}
	if u.LastReset != "2026-08-30" {
		t.Errorf("last_reset = %q", u.LastReset)
	}
	if u.PremiumExpiresAt != nil {
		t.Errorf("expected nil premium expiry, got %v", u.PremiumExpiresAt)
	}
	if !u.LastActive.Equal(now) {
		t.Errorf("last_active = %v, want %v", u.LastActive, now)
	}
}

func TestCreateUser_DuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.CreateUser("telegram", "42", "Asha", now); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser("telegram", "42", "Asha", now); err == nil {
		t.Fatal("expected unique constraint error on duplicate create")
	}
	// Same id on a different platform is a different user.
	if err := s.CreateUser("whatsapp", "42", "Asha", now); err != nil {
		t.Fatalf("create user on other platform: %v", err)
	}
}

func TestIncrementAndReset(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if err := s.CreateUser("telegram", "42", "Asha", now); err != nil {
		t.Fatalf("create user: %v", err)
	}

	later := now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if err := s.IncrementMessageCount("telegram", "42", later); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	u, _ := s.GetUser("telegram", "42")
	if u.MessageCount != 3 {
		t.Fatalf("message_count = %d, want 3", u.MessageCount)
	}
	if !u.LastActive.Equal(later) {
		t.Errorf("last_active = %v, want %v", u.LastActive, later)
	}

	if err := s.ResetDailyCount("telegram", "42", "2026-08-31"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	u, _ = s.GetUser("telegram", "42")
	if u.MessageCount != 0 || u.LastReset != "2026-08-31" {
		t.Errorf("after reset: count=%d last_reset=%q", u.MessageCount, u.LastReset)
	}
}

func TestPremiumRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if err := s.CreateUser("telegram", "42", "Asha", now); err != nil {
		t.Fatalf("create user: %v", err)
	}

	expiry := now.Add(30 * 24 * time.Hour)
	if err := s.SetPremium("telegram", "42", &expiry); err != nil {
		t.Fatalf("set premium: %v", err)
	}
	u, _ := s.GetUser("telegram", "42")
	if !u.IsPremium || u.PremiumExpiresAt == nil || !u.PremiumExpiresAt.Equal(expiry) {
		t.Fatalf("premium not stored: %+v", u)
	}
	if !u.PremiumActive(now) {
		t.Error("premium should be active before expiry")
	}
	if u.PremiumActive(expiry.Add(time.Second)) {
		t.Error("premium should be inactive after expiry")
	}

	if err := s.SetPremium("telegram", "42", nil); err != nil {
		t.Fatalf("set non-expiring premium: %v", err)
	}
	u, _ = s.GetUser("telegram", "42")
	if !u.IsPremium || u.PremiumExpiresAt != nil {
		t.Fatalf("non-expiring premium not stored: %+v", u)
	}

	if err := s.Downgrade("telegram", "42"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	u, _ = s.GetUser("telegram", "42")
	if u.IsPremium {
		t.Error("user still premium after downgrade")
	}
}

func TestRecentMemories_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for i, tag := range []string{"sad", "tired", "hopeful"} {
		if err := s.InsertMemory("telegram", "42", "summary", tag, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert memory: %v", err)
		}
	}

	got, err := s.RecentMemories("telegram", "42", 2)
	if err != nil {
		t.Fatalf("recent memories: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].EmotionTag != "hopeful" || got[1].EmotionTag != "tired" {
		t.Errorf("order = [%s, %s], want [hopeful, tired]", got[0].EmotionTag, got[1].EmotionTag)
	}
}

func TestMoodsSince_WindowFilter(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if err := s.InsertMoodLog("telegram", "42", 3, "sad", now.Add(-10*24*time.Hour)); err != nil {
		t.Fatalf("insert old mood: %v", err)
	}
	if err := s.InsertMoodLog("telegram", "42", 7, "happy", now.Add(-2*24*time.Hour)); err != nil {
		t.Fatalf("insert recent mood: %v", err)
	}
	if err := s.InsertMoodLog("telegram", "99", 9, "excited", now); err != nil {
		t.Fatalf("insert other user mood: %v", err)
	}

	got, err := s.MoodsSince("telegram", "42", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("moods since: %v", err)
	}
	if len(got) != 1 || got[0].MoodLabel != "happy" {
		t.Fatalf("got %+v, want single happy entry", got)
	}
}

func TestSilentUsers(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	// quiet: last active 3 days ago, never reminded
	if err := s.CreateUser("telegram", "quiet", "Q", now.Add(-72*time.Hour)); err != nil {
		t.Fatal(err)
	}
	// active: messaged an hour ago
	if err := s.CreateUser("telegram", "active", "A", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	// reminded: quiet but nudged recently
	if err := s.CreateUser("telegram", "reminded", "R", now.Add(-72*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.TouchReminder("telegram", "reminded", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := s.SilentUsers(now.Add(-48*time.Hour), now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("silent users: %v", err)
	}
	if len(got) != 1 || got[0].PlatformUserID != "quiet" {
		t.Fatalf("got %d users, want only 'quiet': %+v", len(got), got)
	}

	// Stamping the reminder suppresses the user on the next pass.
	if err := s.TouchReminder("telegram", "quiet", now); err != nil {
		t.Fatal(err)
	}
	got, err = s.SilentUsers(now.Add(-48*time.Hour), now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("silent users: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d users after reminder, want 0", len(got))
	}
}

func TestUsersWithMoodSince(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if err := s.CreateUser("telegram", "logger", "L", now); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser("telegram", "silent", "S", now); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertMoodLog("telegram", "logger", 7, "happy", now.Add(-24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := s.UsersWithMoodSince(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("users with mood: %v", err)
	}
	if len(got) != 1 || got[0].PlatformUserID != "logger" {
		t.Fatalf("got %+v, want only 'logger'", got)
	}
}
