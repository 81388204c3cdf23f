package domain

// Language of a dialogue.
type Language string

const (
	LangEnglish Language = "en"
	LangRussian Language = "ru"
)

// Languages lists supported languages.
var Languages = []Language{LangRussian, LangEnglish}

// Normalize maps anything unknown to English.
func (l Language) Normalize() Language {
	if l == LangRussian {
		return LangRussian
	}
	return LangEnglish
}

// DisplayName is the language name used inside prompts.
func (l Language) DisplayName() string {
	if l.Normalize() == LangRussian {
		return "Russian"
	}
	return "English"
}

// SpeakerLabel returns the transcript label for a speaker in this language.
func (l Language) SpeakerLabel(s Speaker) string {
	if l.Normalize() == LangRussian {
		if s == SpeakerCashier {
			return "Кассир"
		}
		return "Клиент"
	}
	if s == SpeakerCashier {
		return "Cashier"
	}
	return "Client"
}
