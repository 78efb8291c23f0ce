// Package engine orchestrates one inbound message: quota and
// entitlement checks, mood detection, memory context, and the
// completion call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/softlyai/maya/internal/config"
	"github.com/softlyai/maya/internal/llm"
	"github.com/softlyai/maya/internal/models"
	"github.com/softlyai/maya/internal/mood"
	"github.com/softlyai/maya/internal/store"
)

const personaPrompt = `You are Maya — Emotional intelligence powered by AI.

Tone:
- Calm
- Compassionate
- Clear
- Encouraging but not clingy
- Growth oriented
- Never replace therapy or real relationships
`

// Pre-authored replies. The user never sees a raw error.
const (
	replyQuotaWarning = "Sirf 10 messages bache hain aaj ke liye 💛"
	replyQuotaLimit   = "Aaj ka free limit khatam ho gaya 💛 Kal phir baat karte hain."
	replyMoodAck      = "Main yahin hoon 💛"
	replySystemSlow   = "System thoda slow lag raha hai 💛"
	replyNetworkIssue = "Network issue… ek baar aur try karo 💛"
)

// Completer abstracts the completions client so tests can fake it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

type Engine struct {
	store  *store.Store
	llm    Completer
	policy config.PolicyConfig
	now    func() time.Time
}

func New(st *store.Store, completer Completer, policy config.PolicyConfig) *Engine {
	return &Engine{
		store:  st,
		llm:    completer,
		policy: policy,
		now:    time.Now,
	}
}

// Reply handles one inbound message end to end and returns the text to
// send back. Only persistence failures surface as errors; completion
// and summarizer failures are absorbed into fixed replies.
func (e *Engine) Reply(ctx context.Context, platform, userID, name, text string) (string, error) {
	now := e.now()
	today := now.Format("2006-01-02")

	user, err := e.store.GetUser(platform, userID)
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		if err := e.store.CreateUser(platform, userID, name, now); err != nil {
			return "", fmt.Errorf("resolve user: %w", err)
		}
		user = &models.User{
			Platform:       platform,
			PlatformUserID: userID,
			Name:           name,
			LastReset:      today,
		}
	}

	// Daily reset fires exactly once on the first message after midnight.
	if user.LastReset != today {
		if err := e.store.ResetDailyCount(platform, userID, today); err != nil {
			return "", err
		}
		user.MessageCount = 0
		user.LastReset = today
	}

	// Expired premium is downgraded before any gate is evaluated.
	if user.IsPremium && user.PremiumExpiresAt != nil && !user.PremiumExpiresAt.After(now) {
		if err := e.store.Downgrade(platform, userID); err != nil {
			return "", err
		}
		user.IsPremium = false
	}

	if !user.IsPremium {
		switch {
		case user.MessageCount >= e.policy.FreeDailyLimit:
			// Terminal: no increment, no API call. Idempotent at the ceiling.
			return replyQuotaLimit, nil
		case user.MessageCount == e.policy.QuotaWarnAt:
			if err := e.store.IncrementMessageCount(platform, userID, now); err != nil {
				return "", err
			}
			return replyQuotaWarning, nil
		}
	}

	if score, label, ok := mood.Detect(text); ok {
		if err := e.store.InsertMoodLog(platform, userID, score, label, now); err != nil {
			return "", err
		}
		// Essentially emoji-only: acknowledge without burning an API call.
		if utf8.RuneCountInString(strings.TrimSpace(text)) <= 2 {
			if err := e.store.IncrementMessageCount(platform, userID, now); err != nil {
				return "", err
			}
			return replyMoodAck, nil
		}
	}

	system, err := e.systemPrompt(platform, userID, name)
	if err != nil {
		return "", err
	}

	reply := e.generate(ctx, system, text)

	countBefore := user.MessageCount
	if err := e.store.IncrementMessageCount(platform, userID, now); err != nil {
		return "", err
	}

	if (countBefore+1)%e.policy.MemoryCadence == 0 {
		e.captureMemory(ctx, platform, userID, text)
	}

	return reply, nil
}

func (e *Engine) systemPrompt(platform, userID, name string) (string, error) {
	memories, err := e.store.RecentMemories(platform, userID, e.policy.MemoryContextLimit)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(personaPrompt)
	sb.WriteString("\nUser name: ")
	sb.WriteString(name)
	sb.WriteString("\n")
	if len(memories) > 0 {
		sb.WriteString("\nWhat you remember about them:\n")
		for _, m := range memories {
			fmt.Fprintf(&sb, "- Previously felt %s: %s\n", m.EmotionTag, m.Summary)
		}
	}
	return sb.String(), nil
}

func (e *Engine) generate(ctx context.Context, system, text string) string {
	ctx, cancel := context.WithTimeout(ctx, e.policy.ReplyTimeout())
	defer cancel()

	out, err := e.llm.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      text,
		Temperature: e.policy.Temperature,
		MaxTokens:   e.policy.MaxTokens,
	})
	if err != nil {
		log.Printf("[engine] completion failed: %v", err)
		return FallbackFor(err)
	}
	return out
}

// FallbackFor maps a completion failure to its fixed in-character
// reply: a response the API answered but we could not use reads as
// "slow", anything on the wire reads as a network problem.
func FallbackFor(err error) string {
	if errors.Is(err, llm.ErrMalformed) {
		return replySystemSlow
	}
	return replyNetworkIssue
}
