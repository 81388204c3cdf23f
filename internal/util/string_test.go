package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPhrase(t *testing.T) {
	cases := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"Yes, thank you!", "yes", true},
		{"I'd like a small coke", "all", false},
		{"That's all, thanks.", "that's all", true},
		{"okay then", "ok", false},
		{"Ok.", "ok", true},
		{"Да, всё верно", "всё верно", true},
		{"Давайте", "да", false},
		{"Хорошего дня!", "хорошего дня", true},
		{"", "yes", false},
		{"yes", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ContainsPhrase(tc.text, tc.phrase), "%q in %q", tc.phrase, tc.text)
	}
}

func TestStripCJKAndSpeakerPrefix(t *testing.T) {
	assert.Equal(t, "Hello there", StripCJK("Hello 你好 there"))
	assert.Equal(t, "Burger please", StripSpeakerPrefix("Client: Burger please"))
	assert.Equal(t, "Что ещё?", StripSpeakerPrefix("кассир: Что ещё?"))
	assert.Equal(t, "no prefix", StripSpeakerPrefix("no prefix"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdef", 2))
	assert.Equal(t, "кас...", TruncateString("кассир", 3))
}
