package jobs

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/config"
	"github.com/softlyai/maya/internal/store"
)

var testNow = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Store, *bus.MessageBus) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "maya.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	b := bus.NewMessageBus(16)
	s := New(st, b, config.DefaultConfig().Policy)
	s.now = func() time.Time { return testNow }
	return s, st, b
}

func drainOutbound(b *bus.MessageBus) []bus.OutboundMessage {
	var out []bus.OutboundMessage
	for {
		select {
		case msg := <-b.Outbound:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRunSilenceCheck(t *testing.T) {
	s, st, b := newTestService(t)

	if err := st.CreateUser("telegram", "quiet", "Q", testNow.Add(-72*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateUser("telegram", "active", "A", testNow.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	s.RunSilenceCheck()

	msgs := drainOutbound(b)
	if len(msgs) != 1 {
		t.Fatalf("outbound = %d messages, want 1", len(msgs))
	}
	if msgs[0].Channel != "telegram" || msgs[0].ChatID != "quiet" {
		t.Errorf("nudge routed to %s/%s", msgs[0].Channel, msgs[0].ChatID)
	}
	if msgs[0].Content != nudgeMessage {
		t.Errorf("nudge content = %q", msgs[0].Content)
	}

	// The reminder stamp suppresses a second nudge inside the cooldown.
	s.RunSilenceCheck()
	if msgs := drainOutbound(b); len(msgs) != 0 {
		t.Fatalf("second pass nudged again: %+v", msgs)
	}
}

func TestRunWeeklyDigest(t *testing.T) {
	s, st, b := newTestService(t)

	if err := st.CreateUser("whatsapp", "logger", "L", testNow); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateUser("whatsapp", "silent", "S", testNow); err != nil {
		t.Fatal(err)
	}
	for _, m := range []struct {
		score int
		label string
	}{{8, "happy"}, {9, "excited"}, {4, "tired"}} {
		if err := st.InsertMoodLog("whatsapp", "logger", m.score, m.label, testNow.Add(-24*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	s.RunWeeklyDigest()

	msgs := drainOutbound(b)
	if len(msgs) != 1 {
		t.Fatalf("outbound = %d messages, want 1", len(msgs))
	}
	if msgs[0].Channel != "whatsapp" || msgs[0].ChatID != "logger" {
		t.Errorf("digest routed to %s/%s", msgs[0].Channel, msgs[0].ChatID)
	}
	if !strings.Contains(msgs[0].Content, "Average mood: 7.0/10") {
		t.Errorf("digest content:\n%s", msgs[0].Content)
	}
	// Free user gets the teaser.
	if !strings.Contains(msgs[0].Content, "Unlock detailed emotional insights") {
		t.Errorf("digest missing teaser:\n%s", msgs[0].Content)
	}
}

func TestRunWeeklyDigest_PremiumBreakdown(t *testing.T) {
	s, st, b := newTestService(t)

	if err := st.CreateUser("telegram", "vip", "V", testNow); err != nil {
		t.Fatal(err)
	}
	if err := st.SetPremium("telegram", "vip", nil); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertMoodLog("telegram", "vip", 7, "happy", testNow.Add(-24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	s.RunWeeklyDigest()

	msgs := drainOutbound(b)
	if len(msgs) != 1 {
		t.Fatalf("outbound = %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "💎 Detailed Emotional Insights:") {
		t.Errorf("premium digest missing breakdown:\n%s", msgs[0].Content)
	}
}
