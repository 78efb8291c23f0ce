// Package mood maps emoji content to a bounded mood score and label.
package mood

import "strings"

type mapping struct {
	emoji string
	score int
	label string
}

// Table order is the tie-break: the first mapped emoji present in the
// message wins, regardless of its position in the text.
var table = []mapping{
	{"😭", 2, "crying"},
	{"😢", 3, "sad"},
	{"😡", 3, "angry"},
	{"😰", 3, "anxious"},
	{"😔", 4, "down"},
	{"😴", 4, "tired"},
	{"😕", 5, "unsure"},
	{"🙂", 6, "okay"},
	{"😌", 6, "calm"},
	{"😊", 7, "happy"},
	{"😄", 8, "joyful"},
	{"🤩", 9, "excited"},
}

// Detect scans text for a mapped emoji. ok is false when no mapped
// emoji is present.
func Detect(text string) (score int, label string, ok bool) {
	for _, m := range table {
		if strings.Contains(text, m.emoji) {
			return m.score, m.label, true
		}
	}
	return 0, "", false
}
