package parser

import (
	"regexp"
	"strings"
)

const targetPlaceholder = "{target}"

// TemplateMatcher matches a configured game message template against lines.
// A template contains at most one {target} placeholder which captures the
// resolved target name; a template without one degrades to substring
// containment for backward compatibility with older definitions.
type TemplateMatcher struct {
	re      *regexp.Regexp
	literal string
}

// CompileTemplate converts a message template into a matcher
func CompileTemplate(template string) *TemplateMatcher {
	idx := strings.Index(template, targetPlaceholder)
	if idx < 0 {
		return &TemplateMatcher{literal: template}
	}

	before := regexp.QuoteMeta(template[:idx])
	after := template[idx+len(targetPlaceholder):]

	var pattern string
	if after == "" {
		// Placeholder at end: capture up to sentence-ending punctuation
		// or end of string.
		pattern = before + `(.+?)(?:[.!?]\s*)?$`
	} else {
		pattern = before + `(.+?)` + regexp.QuoteMeta(after)
	}

	return &TemplateMatcher{re: regexp.MustCompile(pattern)}
}

// Match tests a line against the template. For placeholder templates the
// returned target is the captured text trimmed of surrounding whitespace
// and trailing punctuation; substring templates return an empty target.
func (m *TemplateMatcher) Match(line string) (string, bool) {
	if m.re == nil {
		if m.literal == "" {
			return "", false
		}
		return "", strings.Contains(line, m.literal)
	}

	sub := m.re.FindStringSubmatch(line)
	if sub == nil {
		return "", false
	}

	target := strings.TrimSpace(sub[1])
	target = strings.TrimRight(target, ".!?,;:")
	target = strings.TrimSpace(target)
	return target, true
}

// ResolveSelf reports whether a captured target name refers to the player.
// The game abbreviates "First Last" names to "First" inconsistently across
// message types, so matching is deliberately loose in both directions:
//   - exact match
//   - name is a prefix of the player name followed by a space
//   - name contains the player name as a space-delimited prefix
//   - name equals the first space-delimited token of the player name
//
// The first-token rule can misfire when another character shares the
// player's first name; that behavior is long-standing and kept as is.
func ResolveSelf(name, playerName string) bool {
	if name == "" || playerName == "" {
		return false
	}
	if name == playerName {
		return true
	}
	if strings.HasPrefix(playerName, name+" ") {
		return true
	}
	if strings.HasPrefix(name, playerName+" ") {
		return true
	}
	if first, _, ok := strings.Cut(playerName, " "); ok && name == first {
		return true
	}
	return false
}
