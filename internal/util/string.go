package util

import (
	"regexp"
	"strings"
	"unicode"
)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	cjkPattern           = regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{3040}-\x{30ff}\x{ac00}-\x{d7af}]+`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
	speakerPrefixPattern = regexp.MustCompile(`(?i)^(Кассир|Клиент|Cashier|Client|Seller|Salesperson|Customer):\s*`)
)

// StripCJK removes Chinese, Japanese and Korean runs that small models leak into
// Russian or English replies, then collapses whitespace.
func StripCJK(s string) string {
	if s == "" {
		return s
	}
	s = cjkPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// StripSpeakerPrefix drops an echoed "Cashier:" / "Клиент:" label.
func StripSpeakerPrefix(s string) string {
	return strings.TrimSpace(speakerPrefixPattern.ReplaceAllString(s, ""))
}

// CollapseSpaces trims and squeezes whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
// Both are compared lowercased; a boundary is any rune that is not a letter or digit.
func ContainsPhrase(text, phrase string) bool {
	text = strings.ToLower(text)
	phrase = Normalize(phrase)
	if phrase == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
		for offset < len(text) && !isRuneStart(text[offset]) {
			offset++
		}
		if offset >= len(text) {
			return false
		}
	}
}

// ContainsAnyPhrase reports whether any phrase matches text.
func ContainsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := []rune(s[i:])[0]
	return !isWordRune(r)
}

func lastRune(s string) rune {
	runes := []rune(s)
	return runes[len(runes)-1]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
