package scanner

import (
	"strings"
	"unicode/utf8"

	"github.com/mnemo-ai/mnemo/internal/source"
)

const minTurnLen = 5

// eligible reports whether a turn should feed consolidation. Assistant
// output, bot announcements, commands, attachments, code, links, and trivial
// messages carry no personal facts worth keeping.
func (s *Scanner) eligible(t source.Turn) bool {
	if t.Role != source.RoleUser {
		return false
	}
	if t.HasAttachment {
		return false
	}
	content := strings.TrimSpace(t.Content)
	if utf8.RuneCountInString(content) < minTurnLen {
		return false
	}
	if strings.HasPrefix(content, "BOT:") {
		return false
	}
	if s.commandPrefix != "" && strings.HasPrefix(content, s.commandPrefix) {
		return false
	}
	if strings.Contains(content, "```") {
		return false
	}
	if strings.Contains(content, "http://") || strings.Contains(content, "https://") {
		return false
	}
	return true
}
