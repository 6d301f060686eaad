package bot

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// contextWithCommandTimeout bounds the work done on behalf of one command
func contextWithCommandTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// splitCommand separates a command name from its arguments
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	name, args, _ := strings.Cut(s, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// chunkString splits a long string into smaller chunks, ensuring no chunk exceeds the specified size
func chunkString(s string, size int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for len(s) > size {
		// Try to split on paragraph or sentence boundaries
		split := findSplit(s[:size])
		out = append(out, strings.TrimSpace(s[:split]))
		s = s[split:]
	}
	if strings.TrimSpace(s) != "" {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// splitRe is a regex to find natural split points in text
var splitRe = regexp.MustCompile(`(?s)(.*?[\n\r]{2}|.*?[.!?])$`)

// findSplit finds the index of a good split point in the string
func findSplit(s string) int {
	m := splitRe.FindStringSubmatchIndex(s)
	if len(m) >= 4 {
		return m[3]
	}
	return len(s)
}

// formatDuration renders an elapsed session duration in whole seconds
func formatDuration(d time.Duration) string {
	return (d / time.Second * time.Second).String()
}
