package recognize

import (
	"strconv"
	"strings"
)

// CleanSubtitles reduces SRT content to its spoken text. Blank lines, cue
// numbers, and timing lines are dropped; the remaining lines are trimmed and
// joined with "\n". Cleaning already-clean text returns it unchanged.
func CleanSubtitles(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimPrefix(raw, "\ufeff")

	kept := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
