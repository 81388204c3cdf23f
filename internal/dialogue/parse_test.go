package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

func TestParseTranscript(t *testing.T) {
	raw := `Here is the dialogue:

**Кассир:** Здравствуйте! Чем могу помочь?
* Клиент: Бургер и колу.
CASHIER: Что-нибудь ещё?
2) client:   Нет, спасибо.
Client:
(end)`

	got := ParseTranscript(raw)
	assert.Equal(t, domain.Transcript{
		{Speaker: domain.SpeakerCashier, Text: "Здравствуйте! Чем могу помочь?"},
		{Speaker: domain.SpeakerClient, Text: "Бургер и колу."},
		{Speaker: domain.SpeakerCashier, Text: "Что-нибудь ещё?"},
		{Speaker: domain.SpeakerClient, Text: "Нет, спасибо."},
	}, got)

	assert.Empty(t, ParseTranscript("no labels at all"))
}

func TestSplitBatch(t *testing.T) {
	chunks := SplitBatch("preamble\n===DIALOG 1===\nCashier: Hi\n=== dialog 2 ===\nClient: Yo\n===DIALOG 3===\n")
	assert.Equal(t, []BatchChunk{
		{Index: 1, Text: "Cashier: Hi"},
		{Index: 2, Text: "Client: Yo"},
	}, chunks)

	assert.Equal(t, []BatchChunk{{Index: 1, Text: "Cashier: Hi"}}, SplitBatch("  Cashier: Hi \n"))
	assert.Empty(t, SplitBatch(" \n "))
}

func TestAssignChunks(t *testing.T) {
	// numbered out of order, dialog 2 missing
	slots := AssignChunks([]BatchChunk{{Index: 3, Text: "c"}, {Index: 1, Text: "a"}}, 3)
	assert.Equal(t, []string{"a", "", "c"}, slots)

	// repeated numbers fall back to positional order
	slots = AssignChunks([]BatchChunk{{Index: 1, Text: "a"}, {Index: 1, Text: "b"}, {Index: 9, Text: "c"}, {Index: 4, Text: "d"}}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, slots)

	assert.Equal(t, []string{"", ""}, AssignChunks(nil, 2))
}

func TestRepair(t *testing.T) {
	pb, err := LoadPhraseBook()
	require.NoError(t, err)

	assert.Equal(t, pb.ScriptedExchange(domain.LangEnglish), Repair(nil, domain.LangEnglish, 1, pb))

	one := domain.Transcript{{Speaker: domain.SpeakerCashier, Text: "Hi"}}
	assert.Equal(t, one, Repair(one, domain.LangEnglish, 1, pb))
	assert.Equal(t, pb.ScriptedExchange(domain.LangRussian), Repair(one, domain.LangRussian, 2, pb))

	clientFirst := domain.Transcript{
		{Speaker: domain.SpeakerClient, Text: "Burger"},
		{Speaker: domain.SpeakerCashier, Text: "Sure"},
	}
	repaired := Repair(clientFirst, domain.LangEnglish, 2, pb)
	require.Len(t, repaired, 3)
	assert.Equal(t, domain.Turn{Speaker: domain.SpeakerCashier, Text: pb.ShortGreeting.EN}, repaired[0])
	assert.Equal(t, clientFirst, repaired[1:])
}

func TestAgentMessagesReframeBySpeaker(t *testing.T) {
	tr := domain.Transcript{
		{Speaker: domain.SpeakerCashier, Text: "Здравствуйте!"},
		{Speaker: domain.SpeakerClient, Text: "Бургер."},
	}
	msgs := agentMessages("sys", domain.SpeakerClient, tr, domain.LangRussian)
	require.Len(t, msgs, 3)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "user", string(msgs[1].Role))
	assert.Equal(t, "Кассир: Здравствуйте!", msgs[1].Content)
	assert.Equal(t, "assistant", string(msgs[2].Role))
	assert.Equal(t, "Клиент: Бургер.", msgs[2].Content)

	assert.Equal(t, "A burger please", cleanAgentText("Client: 我 A burger please"))
}
