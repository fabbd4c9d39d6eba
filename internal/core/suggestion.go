package core

// suggestion.go parses free-text fix suggestions, typically produced by an
// external assistant, into structured edits.
//
// The grammar is deliberately narrow. A rename is accepted in two forms:
//
//	Rename "Client Id" to "ClientID"     (quotes optional for single words)
//	Header "Client Id" is not canonical. Fix: ClientID
//
// Anything else yields ErrUnparsableSuggestion rather than a guess.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparsableSuggestion is returned when a suggestion does not match the
// supported grammar.
var ErrUnparsableSuggestion = errors.New("unparsable suggestion")

const quotedOrWord = `(?:"([^"]+)"|'([^']+)'|` + "`([^`]+)`" + `|([^\s"'` + "`" + `.,;!]+))`

var (
	renamePattern    = regexp.MustCompile(`(?i)\brename\s+(?:(?:column|header)\s+)?` + quotedOrWord + `\s+to\s+` + quotedOrWord)
	fixSectionOld    = regexp.MustCompile(`"([^"]+)"`)
	fixSectionNew    = regexp.MustCompile(`(?i)\bfix:\s*(?:"([^"]+)"|'([^']+)'|` + "`([^`]+)`" + `|([^\s"'` + "`" + `.,;]+))`)
	addColumnPattern = regexp.MustCompile(`(?i)\badd\s+(?:(?:the|a)\s+)?(?:missing\s+)?(?:column|header)\s+` + quotedOrWord)
	newIDPattern     = regexp.MustCompile(`(?i)\bto\s+(?:"([^"]+)"|'([^']+)'|([A-Za-z0-9_\-]+))`)
)

// firstGroup returns the first non-empty capture among groups.
func firstGroup(m []string, groups ...int) string {
	for _, g := range groups {
		if g < len(m) && m[g] != "" {
			return strings.TrimSpace(m[g])
		}
	}
	return ""
}

// ParseRenameSuggestion extracts the old and new header names from a
// rename suggestion.
func ParseRenameSuggestion(s string) (oldName, newName string, err error) {
	s = strings.TrimSpace(s)
	if m := renamePattern.FindStringSubmatch(s); m != nil {
		oldName = firstGroup(m, 1, 2, 3, 4)
		newName = firstGroup(m, 5, 6, 7, 8)
		if oldName != "" && newName != "" {
			return oldName, newName, nil
		}
	}

	idx := strings.Index(strings.ToLower(s), "fix:")
	if idx > 0 {
		old := fixSectionOld.FindStringSubmatch(s[:idx])
		neu := fixSectionNew.FindStringSubmatch(s[idx:])
		if old != nil && neu != nil {
			oldName = strings.TrimSpace(old[1])
			newName = firstGroup(neu, 1, 2, 3, 4)
			if oldName != "" && newName != "" {
				return oldName, newName, nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: expected `Rename \"Old\" to \"New\"`, got %q", ErrUnparsableSuggestion, s)
}

// ParseAddColumnSuggestion extracts the column name from a suggestion such
// as `Add column "GroupTag"`.
func ParseAddColumnSuggestion(s string) (string, error) {
	if m := addColumnPattern.FindStringSubmatch(s); m != nil {
		if name := firstGroup(m, 1, 2, 3, 4); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: expected `Add column \"Name\"`, got %q", ErrUnparsableSuggestion, s)
}

// ParseReplacementValue extracts the target of a "change X to Y"
// suggestion.
func ParseReplacementValue(s string) (string, error) {
	if m := newIDPattern.FindStringSubmatch(s); m != nil {
		if v := firstGroup(m, 1, 2, 3); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: expected `... to \"Value\"`, got %q", ErrUnparsableSuggestion, s)
}

// ExtractJSONObject returns the first balanced, valid JSON object embedded
// in s, compacted.
func ExtractJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			candidate := s[start : end+1]
			var obj map[string]any
			if json.Unmarshal([]byte(candidate), &obj) == nil {
				var buf bytes.Buffer
				if json.Compact(&buf, []byte(candidate)) == nil {
					return buf.String(), true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
