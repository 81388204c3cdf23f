package dialogue

import "github.com/kapu/cashier-dialog-gen/internal/domain"

// Action is what to do after one generation attempt for an agent turn.
type Action int

const (
	ActionAccept Action = iota
	ActionRetry
	ActionFallback
	ActionTerminate
)

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionTerminate:
		return "terminate"
	}
	return "unknown"
}

// Attempt describes the outcome of one generation attempt.
type Attempt struct {
	Speaker     domain.Speaker
	Number      int // zero-based
	MaxAttempts int
	Usable      bool
	TurnCount   int // completed client/cashier exchanges
	// FallbackLimit is the exchange count from which a failed client turn ends
	// the dialogue instead of falling back. Zero means no limit.
	FallbackLimit int
}

// Decide is the retry/fallback table:
//
//	usable                                   -> accept
//	attempts left                            -> retry
//	client, turn count at or past the limit  -> terminate
//	otherwise                                -> fallback
func Decide(a Attempt) Action {
	switch {
	case a.Usable:
		return ActionAccept
	case a.Number+1 < a.MaxAttempts:
		return ActionRetry
	case a.Speaker == domain.SpeakerClient && a.FallbackLimit > 0 && a.TurnCount >= a.FallbackLimit:
		return ActionTerminate
	default:
		return ActionFallback
	}
}

// FallbackKind selects which scripted client phrase list to draw from.
type FallbackKind int

const (
	FallbackOpening FallbackKind = iota
	FallbackDone
	FallbackChoice
)

// ChooseClientFallback: first exchange -> opening order; cashier asked
// "anything else" -> closing phrase; otherwise accept the first option.
func ChooseClientFallback(pb *PhraseBook, turnCount int, lastCashier string) FallbackKind {
	switch {
	case turnCount == 0:
		return FallbackOpening
	case pb.AsksAnythingElse(lastCashier):
		return FallbackDone
	default:
		return FallbackChoice
	}
}

// FallbackPhrases returns the alternatives for kind in lang.
func (pb *PhraseBook) FallbackPhrases(kind FallbackKind, lang domain.Language) []string {
	switch kind {
	case FallbackOpening:
		return pb.ClientFallbacks.Opening.For(lang)
	case FallbackDone:
		return pb.ClientFallbacks.Done.For(lang)
	default:
		return pb.ClientFallbacks.Choice.For(lang)
	}
}

// usable reports whether generated text is long enough to keep.
func usable(text string, minLength int) bool {
	return len([]rune(text)) >= minLength
}
