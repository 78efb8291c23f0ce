package engine

import (
	"context"
	"log"
	"strings"

	"github.com/softlyai/maya/internal/llm"
)

const summaryPrompt = `Summarize the user's message in 2 lines.
The last line must be exactly one word naming the emotion.`

// captureMemory condenses the message into a rolling emotional summary.
// Every failure here is swallowed: memory capture must never cost the
// user their reply.
func (e *Engine) captureMemory(ctx context.Context, platform, userID, text string) {
	ctx, cancel := context.WithTimeout(ctx, e.policy.ReplyTimeout())
	defer cancel()

	out, err := e.llm.Complete(ctx, llm.Request{
		System:      summaryPrompt,
		Prompt:      text,
		Temperature: e.policy.SummaryTemperature,
		MaxTokens:   e.policy.SummaryMaxTokens,
	})
	if err != nil {
		log.Printf("[engine] memory summary failed: %v", err)
		return
	}

	lines := splitLines(out)
	if len(lines) < 2 {
		log.Printf("[engine] memory summary too short, skipping")
		return
	}

	summary := lines[0]
	emotionTag := lines[len(lines)-1]
	if err := e.store.InsertMemory(platform, userID, summary, emotionTag, e.now()); err != nil {
		log.Printf("[engine] save memory failed: %v", err)
	}
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
