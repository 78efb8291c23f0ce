package jobs

import (
	"fmt"
	"math"
	"strings"

	"github.com/softlyai/maya/internal/models"
)

// BuildDigest renders the weekly reflection. Free users get the teaser;
// premium users get the per-label breakdown plus tier commentary.
// Ties for the most common feeling break toward the label encountered
// first.
func BuildDigest(moods []models.MoodLogEntry, premium bool) string {
	sum := 0
	counts := make(map[string]int, len(moods))
	var order []string
	for _, m := range moods {
		sum += m.MoodScore
		if counts[m.MoodLabel] == 0 {
			order = append(order, m.MoodLabel)
		}
		counts[m.MoodLabel]++
	}

	avg := math.Round(float64(sum)/float64(len(moods))*10) / 10

	mostCommon, best := "mixed", 0
	for _, label := range order {
		if counts[label] > best {
			mostCommon, best = label, counts[label]
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 Weekly Reflection 💛\n\n")
	fmt.Fprintf(&sb, "This week you logged %d mood check-ins.\n", len(moods))
	fmt.Fprintf(&sb, "Average mood: %.1f/10\n", avg)
	fmt.Fprintf(&sb, "Most common feeling: %s\n\n", mostCommon)

	if !premium {
		sb.WriteString("Unlock detailed emotional insights with Premium 💎")
		return sb.String()
	}

	sb.WriteString("💎 Detailed Emotional Insights:\n")
	for _, label := range order {
		fmt.Fprintf(&sb, "- %s: %d times\n", label, counts[label])
	}

	switch {
	case avg <= 4:
		sb.WriteString("\nThis pattern shows consistent low energy. Consider slow recovery days.")
	case avg <= 6:
		sb.WriteString("\nYour emotional pattern is fluctuating. Stability habits may help.")
	default:
		sb.WriteString("\nYou maintained strong emotional balance this week ✨")
	}
	return sb.String()
}
