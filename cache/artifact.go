package cache

import (
	"fmt"
	"strings"
)

const (
	titlePrefix  = "Title: "
	authorPrefix = "Author: "
)

// EncodeTranscript composes the single-video transcript artifact: a small
// inline header followed by a blank line and the transcript body.
func EncodeTranscript(title, author, text string) []byte {
	return []byte(fmt.Sprintf("%s%s\n%s%s\n\n%s", titlePrefix, title, authorPrefix, author, text))
}

// DecodeTranscript splits an artifact into its header fields and body.
// Artifacts written before the header format existed are returned whole as
// the body with hasHeader false.
func DecodeTranscript(data []byte) (title, author, text string, hasHeader bool) {
	content := string(data)

	if !strings.HasPrefix(content, titlePrefix) {
		return "", "", content, false
	}

	lines := strings.SplitN(content, "\n", 3)
	if len(lines) < 2 || !strings.HasPrefix(lines[1], authorPrefix) {
		return "", "", content, false
	}

	title = strings.TrimPrefix(lines[0], titlePrefix)
	author = strings.TrimPrefix(lines[1], authorPrefix)
	if len(lines) == 3 {
		text = strings.TrimPrefix(lines[2], "\n")
	}
	return title, author, text, true
}
