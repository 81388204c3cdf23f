package dialogue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/profile"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
	"github.com/kapu/cashier-dialog-gen/internal/util"
)

// Mode selects a generation strategy.
type Mode string

const (
	ModeTurnByTurn Mode = "turn"
	ModeSingleShot Mode = "single"
	ModeBatched    Mode = "batch"
)

// ParseMode accepts the CLI spellings of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "turn", "turn-by-turn":
		return ModeTurnByTurn, nil
	case "single", "single-shot":
		return ModeSingleShot, nil
	case "batch", "batched":
		return ModeBatched, nil
	}
	return "", fmt.Errorf("unknown mode %q (want turn, single or batch)", s)
}

// Result is one finished, validated dialogue.
type Result struct {
	Mode       Mode
	Profile    domain.Profile
	Transcript domain.Transcript
	Order      domain.Order
	Flags      domain.ValidationFlags
}

// Generator produces dialogues. Size is how many dialogues one Generate call
// aims for; a call may return fewer.
type Generator interface {
	Mode() Mode
	Size() int
	Generate(ctx context.Context) ([]*Result, error)
}

// OrderExtractor turns a finished transcript into an order.
type OrderExtractor interface {
	Extract(ctx context.Context, t domain.Transcript, p domain.Profile) (domain.Order, error)
}

// OrderValidator computes the rule-check flags of an order.
type OrderValidator interface {
	Validate(t domain.Transcript, p domain.Profile, o domain.Order) domain.ValidationFlags
}

// Deps are the collaborators every strategy shares.
type Deps struct {
	Completer llm.Completer
	Menu      *menu.Index
	Sampler   *profile.Sampler
	Prompts   *prompt.PromptBuilder
	Phrases   *PhraseBook
	Extractor OrderExtractor
	Validator OrderValidator
	Logger    *zap.Logger
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// New builds the generator for mode. batchSize only matters for ModeBatched.
func New(mode Mode, deps Deps, maxTurns, batchSize int) (Generator, error) {
	switch mode {
	case ModeTurnByTurn:
		return NewTurnByTurn(deps, maxTurns), nil
	case ModeSingleShot:
		return NewSingleShot(deps), nil
	case ModeBatched:
		return NewBatched(deps, batchSize), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// finish extracts and validates; shared by all strategies.
func (d *Deps) finish(ctx context.Context, mode Mode, p domain.Profile, t domain.Transcript) (*Result, error) {
	order, err := d.Extractor.Extract(ctx, t, p)
	if err != nil {
		return nil, fmt.Errorf("extract order: %w", err)
	}
	flags := d.Validator.Validate(t, p, order)

	d.logger().Debug("Dialogue finished",
		zap.String("mode", string(mode)),
		zap.Int("turns", len(t)),
		zap.Int("items", len(order.Items)),
		zap.Int("flags", flags.Count()),
	)

	return &Result{
		Mode:       mode,
		Profile:    p,
		Transcript: t,
		Order:      order,
		Flags:      flags,
	}, nil
}

// agentMessages reframes the transcript from one speaker's point of view:
// its own turns are "assistant", the other side's are "user", each with the
// localized speaker label.
func agentMessages(system string, self domain.Speaker, t domain.Transcript, lang domain.Language) []llm.Message {
	messages := make([]llm.Message, 0, len(t)+1)
	messages = append(messages, llm.System(system))
	for _, turn := range t {
		content := lang.SpeakerLabel(turn.Speaker) + ": " + turn.Text
		if turn.Speaker == self {
			messages = append(messages, llm.Assistant(content))
		} else {
			messages = append(messages, llm.User(content))
		}
	}
	return messages
}

// cleanAgentText strips leaked CJK runs and echoed speaker labels.
func cleanAgentText(text string) string {
	return util.StripSpeakerPrefix(util.StripCJK(text))
}
