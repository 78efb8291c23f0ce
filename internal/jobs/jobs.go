// Package jobs runs the proactive schedules: silence nudges and weekly
// mood digests.
package jobs

import (
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/config"
	"github.com/softlyai/maya/internal/store"
)

const nudgeMessage = "Hey… thoda quiet ho gaye ho. Sab theek hai? 💛"

type Service struct {
	store  *store.Store
	bus    *bus.MessageBus
	policy config.PolicyConfig
	cron   *rcron.Cron
	now    func() time.Time
}

func New(st *store.Store, b *bus.MessageBus, policy config.PolicyConfig) *Service {
	return &Service{
		store:  st,
		bus:    b,
		policy: policy,
		now:    time.Now,
	}
}

// Start registers the schedules. Jobs run on the cron goroutine and
// never block message handling.
func (s *Service) Start() error {
	s.cron = rcron.New()

	if _, err := s.cron.AddFunc("@every 6h", s.RunSilenceCheck); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 168h", s.RunWeeklyDigest); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[jobs] scheduled silence check (6h) and weekly digest (168h)")
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Printf("[jobs] stopped")
}

// RunSilenceCheck nudges users who have gone quiet. The reminder stamp
// suppresses repeats until the cooldown passes; per-user failures are
// logged and skipped so one bad row cannot abort the batch.
func (s *Service) RunSilenceCheck() {
	now := s.now()
	users, err := s.store.SilentUsers(
		now.Add(-s.policy.SilenceThreshold()),
		now.Add(-s.policy.ReminderCooldown()),
	)
	if err != nil {
		log.Printf("[jobs] silence check query failed: %v", err)
		return
	}

	for _, u := range users {
		s.bus.Outbound <- bus.OutboundMessage{
			Channel: u.Platform,
			ChatID:  u.PlatformUserID,
			Content: nudgeMessage,
		}
		if err := s.store.TouchReminder(u.Platform, u.PlatformUserID, now); err != nil {
			log.Printf("[jobs] touch reminder for %s/%s failed: %v", u.Platform, u.PlatformUserID, err)
		}
	}

	if len(users) > 0 {
		log.Printf("[jobs] nudged %d silent users", len(users))
	}
}

// RunWeeklyDigest sends the mood reflection to everyone who logged a
// mood in the trailing window.
func (s *Service) RunWeeklyDigest() {
	now := s.now()
	since := now.Add(-s.policy.DigestWindow())

	users, err := s.store.UsersWithMoodSince(since)
	if err != nil {
		log.Printf("[jobs] weekly digest query failed: %v", err)
		return
	}

	sent := 0
	for _, u := range users {
		moods, err := s.store.MoodsSince(u.Platform, u.PlatformUserID, since)
		if err != nil {
			log.Printf("[jobs] moods for %s/%s failed: %v", u.Platform, u.PlatformUserID, err)
			continue
		}
		if len(moods) == 0 {
			continue
		}

		s.bus.Outbound <- bus.OutboundMessage{
			Channel: u.Platform,
			ChatID:  u.PlatformUserID,
			Content: BuildDigest(moods, u.PremiumActive(now)),
		}
		sent++
	}

	if sent > 0 {
		log.Printf("[jobs] sent %d weekly digests", sent)
	}
}
