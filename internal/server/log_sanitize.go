package server

import (
	"regexp"
)

// secretWord matches setting names whose values must not leave the server,
// as they appear in slog text output and in tool environments.
const secretWord = `(?i)\b([a-z0-9_]*(?:password|passwd|secret|token|api[_-]?key|access[_-]?key))`

var logRedactions = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	// Home directories show up in tool paths, args and work dirs.
	{regex: regexp.MustCompile(`(/home/|/Users/|\\Users\\)[^/\\\s"]+`), replacement: "$1~"},
	// Credentials embedded in download or proxy URLs printed by tools.
	{regex: regexp.MustCompile(`(?i)\b(https?|ftp)://[^:@/\s"]+:[^@/\s"]+@`), replacement: "$1://[redacted]@"},
	{regex: regexp.MustCompile(secretWord + `="[^"]*"`), replacement: `$1="[redacted]"`},
	{regex: regexp.MustCompile(secretWord + `=[^\s"]+`), replacement: "$1=[redacted]"},
}

// SanitizeLogLines redacts log lines before they are exposed through the
// logs resources.
func SanitizeLogLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		for _, r := range logRedactions {
			l = r.regex.ReplaceAllString(l, r.replacement)
		}
		out[i] = l
	}
	return out
}
