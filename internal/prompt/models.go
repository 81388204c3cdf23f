package prompt

import (
	"strings"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

// AgentPromptData feeds the client and cashier system prompts.
type AgentPromptData struct {
	Profile       domain.Profile
	Russian       bool
	LanguageRule  string
	Restrictions  string
	Style         string
	FirstGreeting bool
	MenuContext   string
	OrderJSON     string
}

type SingleShotData struct {
	Profile      domain.Profile
	Language     string
	Restrictions string
	MenuContext  string
}

type BatchDialog struct {
	Index        int
	Profile      domain.Profile
	Restrictions string
	MenuContext  string
}

type BatchData struct {
	Count      int
	Dialogs    []BatchDialog
	OrderHints []string
}

type ExtractOrderData struct {
	MenuNames string
	Dialogue  string
}

// NewAgentPromptData fills the language-dependent fields for p.
func NewAgentPromptData(p domain.Profile) AgentPromptData {
	russian := p.Lang.Normalize() == domain.LangRussian
	rule := "OBLIGATORY: Reply ONLY in English. No Russian."
	if russian {
		rule = "ОБЯЗАТЕЛЬНО: Отвечай ТОЛЬКО на русском. Никакого английского."
	}
	return AgentPromptData{
		Profile:      p,
		Russian:      russian,
		LanguageRule: rule,
		Restrictions: RestrictionList(p),
		Style:        StyleFor(p.Personality, p.Lang),
		OrderJSON:    "[]",
	}
}

// RestrictionList joins the profile's restriction keys, "" when there are none.
func RestrictionList(p domain.Profile) string {
	return strings.Join(p.RestrictionNames(), ", ")
}
