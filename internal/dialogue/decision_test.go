package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		in   Attempt
		want Action
	}{
		{"usable", Attempt{Speaker: domain.SpeakerClient, Number: 2, MaxAttempts: 3, Usable: true}, ActionAccept},
		{"retry", Attempt{Speaker: domain.SpeakerClient, Number: 0, MaxAttempts: 3}, ActionRetry},
		{"client fallback", Attempt{Speaker: domain.SpeakerClient, Number: 2, MaxAttempts: 3, TurnCount: 5, FallbackLimit: 6}, ActionFallback},
		{"client terminate", Attempt{Speaker: domain.SpeakerClient, Number: 2, MaxAttempts: 3, TurnCount: 6, FallbackLimit: 6}, ActionTerminate},
		{"cashier never terminates", Attempt{Speaker: domain.SpeakerCashier, Number: 2, MaxAttempts: 3, TurnCount: 19, FallbackLimit: 6}, ActionFallback},
		{"no limit", Attempt{Speaker: domain.SpeakerClient, Number: 0, MaxAttempts: 1, TurnCount: 50}, ActionFallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.in))
		})
	}
	assert.Equal(t, "terminate", ActionTerminate.String())
}

func TestChooseClientFallback(t *testing.T) {
	pb, err := LoadPhraseBook()
	require.NoError(t, err)

	assert.Equal(t, FallbackOpening, ChooseClientFallback(pb, 0, "Anything else?"))
	assert.Equal(t, FallbackDone, ChooseClientFallback(pb, 3, "Anything else?"))
	assert.Equal(t, FallbackDone, ChooseClientFallback(pb, 3, "Что-нибудь ещё?"))
	assert.Equal(t, FallbackChoice, ChooseClientFallback(pb, 3, "McChicken or McVeggie?"))

	assert.NotEmpty(t, pb.FallbackPhrases(FallbackDone, domain.LangRussian))
	assert.Equal(t, pb.ClientFallbacks.Choice.EN, pb.FallbackPhrases(FallbackChoice, domain.LangEnglish))
}

func TestPhraseMatchingUsesWordBoundaries(t *testing.T) {
	pb, err := LoadPhraseBook()
	require.NoError(t, err)

	assert.True(t, pb.ClientConfirms("Yes, that's right"))
	assert.True(t, pb.ClientConfirms("Всё, спасибо!"))
	assert.False(t, pb.ClientConfirms("I'd like a small coffee"), "'all' inside 'small' is not a match")
	assert.False(t, pb.ClientConfirms("Eyes on the fries"))

	assert.True(t, pb.CashierSaysFarewell("Приятного аппетита!"))
	assert.True(t, pb.CashierSaysFarewell("Thank you for your order. Have a nice day!"))
	assert.False(t, pb.CashierSaysFarewell("Anything else?"))

	assert.True(t, pb.NeedsMenuSearch("What drinks do you have?"))
	assert.False(t, pb.NeedsMenuSearch("A burger please"))
}

func TestParsePhraseBookRejectsEmptyTables(t *testing.T) {
	_, err := ParsePhraseBook([]byte("greeting:\n  en: hi\n"))
	assert.Error(t, err)

	_, err = ParsePhraseBook([]byte("client_confirmations: [\n"))
	assert.Error(t, err)
}
