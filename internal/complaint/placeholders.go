package complaint

import (
	"regexp"
	"sort"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// ExtractPlaceholders returns the distinct token names written literally in
// texts, sorted. It never returns nil.
func ExtractPlaceholders(texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Placeholders scans the four drafted bodies. Subjects are not scanned.
func (d *Drafts) Placeholders() []string {
	return ExtractPlaceholders(d.WhatsAppMessage, d.EmailBody, d.EscalationBody, d.FollowupMessage)
}
