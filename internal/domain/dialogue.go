package domain

import (
	"strings"
	"time"
)

// Speaker of a turn.
type Speaker string

const (
	SpeakerClient  Speaker = "client"
	SpeakerCashier Speaker = "cashier"
)

// Turn is a single utterance.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered, append-only list of turns of one dialogue.
type Transcript []Turn

// Last returns the most recent turn, if any.
func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}

// LastBy returns the most recent turn spoken by s.
func (t Transcript) LastBy(s Speaker) (Turn, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Speaker == s {
			return t[i], true
		}
	}
	return Turn{}, false
}

// String renders "speaker: text" lines, the form used for order extraction.
func (t Transcript) String() string {
	var b strings.Builder
	for i, turn := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(turn.Speaker))
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}

// OrderItem is a resolved catalog entry with its quantity. Extracted keeps
// the name as the extraction step produced it, before menu resolution.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Energy    float64 `json:"energy"`
	Extracted string  `json:"extracted_name,omitempty"`
}

// ExtractedName is the pre-resolution name, falling back to Name.
func (it OrderItem) ExtractedName() string {
	if it.Extracted != "" {
		return it.Extracted
	}
	return it.Name
}

// Order is derived from a transcript; never hand-edited.
type Order struct {
	Items       []OrderItem `json:"items"`
	TotalEnergy float64     `json:"total_energy"`
	Allergens   []string    `json:"allergens_in_order"`
}

// EmptyOrder returns an order with non-nil slices so it serializes as [].
func EmptyOrder() Order {
	return Order{Items: []OrderItem{}, Allergens: []string{}}
}

// ValidationFlags are four independent rule-check results.
type ValidationFlags struct {
	AllergenViolation bool `json:"allergen_violation"`
	CalorieWarning    bool `json:"calorie_warning"`
	Hallucination     bool `json:"hallucination"`
	IncompleteOrder   bool `json:"incomplete_order"`
}

// Count returns how many flags are raised.
func (f ValidationFlags) Count() int {
	n := 0
	for _, v := range []bool{f.AllergenViolation, f.CalorieWarning, f.Hallucination, f.IncompleteOrder} {
		if v {
			n++
		}
	}
	return n
}

// Named returns the flags keyed by their persisted names.
func (f ValidationFlags) Named() map[string]bool {
	return map[string]bool{
		"allergen_violation": f.AllergenViolation,
		"calorie_warning":    f.CalorieWarning,
		"hallucination":      f.Hallucination,
		"incomplete_order":   f.IncompleteOrder,
	}
}

// DialogueRecord is the unit of persistence, created once per dialogue.
type DialogueRecord struct {
	DialogID        int64           `json:"dialog_id"`
	RunID           string          `json:"run_id,omitempty"`
	Mode            string          `json:"mode"`
	ClientProfile   Profile         `json:"client_profile"`
	Turns           Transcript      `json:"turns"`
	FinalOrder      Order           `json:"final_order"`
	TotalEnergy     float64         `json:"total_energy"`
	ValidationFlags ValidationFlags `json:"validation_flags"`
	CreatedAt       time.Time       `json:"created_at"`
}
