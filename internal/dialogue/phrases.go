package dialogue

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/util"
)

//go:embed phrases.yaml
var phrasesYAML []byte

// Localized holds one phrase per language.
type Localized struct {
	EN string `yaml:"en"`
	RU string `yaml:"ru"`
}

func (l Localized) For(lang domain.Language) string {
	if lang.Normalize() == domain.LangRussian {
		return l.RU
	}
	return l.EN
}

// LocalizedList holds alternatives per language.
type LocalizedList struct {
	EN []string `yaml:"en"`
	RU []string `yaml:"ru"`
}

func (l LocalizedList) For(lang domain.Language) []string {
	if lang.Normalize() == domain.LangRussian {
		return l.RU
	}
	return l.EN
}

// PhraseBook is the data behind termination, search triggers and fallbacks.
type PhraseBook struct {
	ClientConfirmations []string  `yaml:"client_confirmations"`
	CashierFarewells    []string  `yaml:"cashier_farewells"`
	MenuSearchSignals   []string  `yaml:"menu_search_signals"`
	AnythingElse        []string  `yaml:"anything_else"`
	Greeting            Localized `yaml:"greeting"`
	ShortGreeting       Localized `yaml:"short_greeting"`
	ScriptedClient      Localized `yaml:"scripted_client"`
	CashierFallback     Localized `yaml:"cashier_fallback"`
	ClientFallbacks     struct {
		Opening LocalizedList `yaml:"opening"`
		Choice  LocalizedList `yaml:"choice"`
		Done    LocalizedList `yaml:"done"`
	} `yaml:"client_fallbacks"`
}

// LoadPhraseBook decodes the embedded phrase tables.
func LoadPhraseBook() (*PhraseBook, error) {
	return ParsePhraseBook(phrasesYAML)
}

// ParsePhraseBook decodes phrase tables from YAML.
func ParsePhraseBook(data []byte) (*PhraseBook, error) {
	var pb PhraseBook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("decode phrase book: %w", err)
	}
	if len(pb.ClientConfirmations) == 0 || len(pb.CashierFarewells) == 0 {
		return nil, fmt.Errorf("phrase book has no termination phrases")
	}
	return &pb, nil
}

// ClientConfirms reports whether a client utterance closes the order.
func (pb *PhraseBook) ClientConfirms(text string) bool {
	return util.ContainsAnyPhrase(text, pb.ClientConfirmations)
}

// CashierSaysFarewell reports whether a cashier utterance ends the visit.
func (pb *PhraseBook) CashierSaysFarewell(text string) bool {
	return util.ContainsAnyPhrase(text, pb.CashierFarewells)
}

// NeedsMenuSearch reports whether a client utterance asks about the menu.
func (pb *PhraseBook) NeedsMenuSearch(text string) bool {
	return util.ContainsAnyPhrase(text, pb.MenuSearchSignals)
}

// AsksAnythingElse reports whether the cashier asked if the client wants more.
func (pb *PhraseBook) AsksAnythingElse(text string) bool {
	return util.ContainsAnyPhrase(text, pb.AnythingElse)
}

// ScriptedExchange is the minimal two-turn dialogue used when generation yields nothing usable.
func (pb *PhraseBook) ScriptedExchange(lang domain.Language) domain.Transcript {
	return domain.Transcript{
		{Speaker: domain.SpeakerCashier, Text: pb.ShortGreeting.For(lang)},
		{Speaker: domain.SpeakerClient, Text: pb.ScriptedClient.For(lang)},
	}
}
