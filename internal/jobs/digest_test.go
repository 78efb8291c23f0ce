package jobs

import (
	"strings"
	"testing"

	"github.com/softlyai/maya/internal/models"
)

func moodList(pairs ...any) []models.MoodLogEntry {
	var out []models.MoodLogEntry
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.MoodLogEntry{
			MoodScore: pairs[i].(int),
			MoodLabel: pairs[i+1].(string),
		})
	}
	return out
}

func TestBuildDigest_Free(t *testing.T) {
	moods := moodList(8, "happy", 9, "excited", 4, "tired")

	got := BuildDigest(moods, false)

	for _, want := range []string{
		"📊 Weekly Reflection 💛",
		"This week you logged 3 mood check-ins.",
		"Average mood: 7.0/10",
		"Most common feeling: happy",
		"Unlock detailed emotional insights with Premium 💎",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Detailed Emotional Insights") {
		t.Errorf("free digest leaked the premium breakdown:\n%s", got)
	}
}

func TestBuildDigest_Premium(t *testing.T) {
	moods := moodList(8, "happy", 9, "excited", 4, "tired", 7, "happy")

	got := BuildDigest(moods, true)

	for _, want := range []string{
		"💎 Detailed Emotional Insights:",
		"- happy: 2 times",
		"- excited: 1 times",
		"- tired: 1 times",
		"You maintained strong emotional balance this week ✨",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Unlock detailed") {
		t.Errorf("premium digest still shows the teaser:\n%s", got)
	}
}

func TestBuildDigest_TierCommentary(t *testing.T) {
	tests := []struct {
		name  string
		moods []models.MoodLogEntry
		want  string
	}{
		{"low energy", moodList(2, "crying", 3, "sad"), "consistent low energy"},
		{"fluctuating", moodList(4, "tired", 6, "okay"), "fluctuating"},
		{"balanced", moodList(8, "happy", 9, "excited"), "strong emotional balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDigest(tt.moods, true)
			if !strings.Contains(got, tt.want) {
				t.Errorf("digest missing %q:\n%s", tt.want, got)
			}
		})
	}
}

func TestBuildDigest_TieBreaksTowardFirstEncountered(t *testing.T) {
	moods := moodList(3, "sad", 7, "happy", 3, "sad", 7, "happy")

	got := BuildDigest(moods, false)
	if !strings.Contains(got, "Most common feeling: sad") {
		t.Errorf("tie should break toward the first label seen:\n%s", got)
	}
}
