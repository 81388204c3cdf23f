package dialogue

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
	"github.com/kapu/cashier-dialog-gen/internal/util"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// State of a turn-by-turn conversation.
type State int

const (
	StateGreeting State = iota
	StateInProgress
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateInProgress:
		return "in_progress"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// TurnByTurn lets two agents alternate, one completion per utterance.
type TurnByTurn struct {
	deps     Deps
	maxTurns int
}

func NewTurnByTurn(deps Deps, maxTurns int) *TurnByTurn {
	if maxTurns <= 0 {
		maxTurns = constants.DialogueDefaults.MaxTurns
	}
	return &TurnByTurn{deps: deps, maxTurns: maxTurns}
}

func (g *TurnByTurn) Mode() Mode { return ModeTurnByTurn }
func (g *TurnByTurn) Size() int  { return 1 }

// conversation is the mutable state of one dialogue.
type conversation struct {
	profile     domain.Profile
	transcript  domain.Transcript
	turnCount   int
	state       State
	baseContext []domain.MenuItem
}

func (g *TurnByTurn) Generate(ctx context.Context) ([]*Result, error) {
	p := g.deps.Sampler.Sample()
	result, err := g.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	return []*Result{result}, nil
}

// Run plays one dialogue for an already sampled profile.
func (g *TurnByTurn) Run(ctx context.Context, p domain.Profile) (*Result, error) {
	logger := g.deps.logger()
	idx := g.deps.Menu

	base := idx.Search("", &p, constants.SearchLimits.Base)
	conv := &conversation{
		profile:     p,
		state:       StateGreeting,
		baseContext: idx.EnrichForFamilies(base, &p, constants.SearchLimits.Enrich),
	}

	greeting, err := g.cashierTurn(ctx, conv, conv.baseContext, true)
	if err != nil {
		return nil, err
	}
	conv.transcript = append(conv.transcript, domain.Turn{Speaker: domain.SpeakerCashier, Text: greeting})
	conv.state = StateInProgress

	for !g.terminate(conv) {
		clientText, ok, err := g.clientTurn(ctx, conv)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("Client produced nothing past the fallback limit, ending early",
				zap.Int("turn_count", conv.turnCount))
			break
		}
		conv.transcript = append(conv.transcript, domain.Turn{Speaker: domain.SpeakerClient, Text: clientText})

		items := conv.baseContext
		if g.deps.Phrases.NeedsMenuSearch(clientText) {
			searched := idx.Search(clientText, &p, constants.SearchLimits.Enrich)
			items = idx.EnrichForFamilies(searched, &p, constants.SearchLimits.Enrich)
		}

		cashierText, err := g.cashierTurn(ctx, conv, items, false)
		if err != nil {
			return nil, err
		}
		conv.transcript = append(conv.transcript, domain.Turn{Speaker: domain.SpeakerCashier, Text: cashierText})
		conv.turnCount++
	}
	conv.state = StateTerminated

	logger.Info("Turn-by-turn dialogue complete",
		zap.String("lang", string(p.Lang)),
		zap.String("personality", string(p.Personality)),
		zap.Int("exchanges", conv.turnCount),
		zap.Int("turns", len(conv.transcript)),
	)

	return g.deps.finish(ctx, ModeTurnByTurn, p, conv.transcript)
}

// terminate: ceiling reached, the latest client turn confirms, or the latest
// cashier turn says goodbye.
func (g *TurnByTurn) terminate(conv *conversation) bool {
	if conv.turnCount >= g.maxTurns {
		return true
	}
	if len(conv.transcript) < 2 {
		return false
	}
	// the opening order ("yes, all of it with fries") is never a confirmation
	if conv.turnCount > 1 {
		if last, ok := conv.transcript.LastBy(domain.SpeakerClient); ok && g.deps.Phrases.ClientConfirms(last.Text) {
			return true
		}
	}
	if last, ok := conv.transcript.LastBy(domain.SpeakerCashier); ok && g.deps.Phrases.CashierSaysFarewell(last.Text) {
		return true
	}
	return false
}

// clientTurn returns the next client utterance; ok is false when the dialogue
// should end instead.
func (g *TurnByTurn) clientTurn(ctx context.Context, conv *conversation) (string, bool, error) {
	p := conv.profile
	rendered, err := g.deps.Prompts.Render(prompt.TemplateClientSystem, prompt.NewAgentPromptData(p))
	if err != nil {
		return "", false, err
	}
	messages := agentMessages(rendered.System, domain.SpeakerClient, conv.transcript, p.Lang)

	for attempt := 0; ; attempt++ {
		text, err := g.deps.Completer.Complete(ctx, llm.Request{
			Messages:    messages,
			Temperature: constants.Temperature.Client,
			MaxRetries:  constants.RateLimitConfig.MaxRetries,
		})
		if err != nil {
			return "", false, err
		}
		text = cleanAgentText(text)

		switch Decide(Attempt{
			Speaker:       domain.SpeakerClient,
			Number:        attempt,
			MaxAttempts:   constants.AttemptConfig.Client,
			Usable:        usable(text, constants.AttemptConfig.ReplyMinLength),
			TurnCount:     conv.turnCount,
			FallbackLimit: constants.AttemptConfig.FallbackTurnLimit,
		}) {
		case ActionAccept:
			return text, true, nil
		case ActionRetry:
			continue
		case ActionTerminate:
			return "", false, nil
		default:
			lastCashier, _ := conv.transcript.LastBy(domain.SpeakerCashier)
			kind := ChooseClientFallback(g.deps.Phrases, conv.turnCount, lastCashier.Text)
			options := g.deps.Phrases.FallbackPhrases(kind, p.Lang)
			if len(options) == 0 {
				return "", false, nil
			}
			choice := options[g.deps.Sampler.IntN(len(options))]
			g.deps.logger().Warn("Client generation unusable, using fallback",
				zap.Error(errors.NewEmptyGenerationError("client", attempt+1)),
				zap.String("fallback", choice),
				zap.Int("turn_count", conv.turnCount),
			)
			return choice, true, nil
		}
	}
}

// cashierTurn generates the greeting (first) or a reply grounded in items.
func (g *TurnByTurn) cashierTurn(ctx context.Context, conv *conversation, items []domain.MenuItem, first bool) (string, error) {
	p := conv.profile
	data := prompt.NewAgentPromptData(p)
	data.FirstGreeting = first
	data.MenuContext = menu.FormatContext(items)

	rendered, err := g.deps.Prompts.Render(prompt.TemplateCashierSystem, data)
	if err != nil {
		return "", err
	}
	messages := agentMessages(rendered.System, domain.SpeakerCashier, conv.transcript, p.Lang)

	maxAttempts := constants.AttemptConfig.Cashier
	minLength := constants.AttemptConfig.ReplyMinLength
	fallback := g.deps.Phrases.CashierFallback.For(p.Lang)
	if first {
		maxAttempts = constants.AttemptConfig.Greeting
		minLength = constants.AttemptConfig.GreetingMinLength
		fallback = g.deps.Phrases.Greeting.For(p.Lang)
	}

	for attempt := 0; ; attempt++ {
		text, err := g.deps.Completer.Complete(ctx, llm.Request{
			Messages:    messages,
			Temperature: constants.Temperature.Cashier,
			MaxRetries:  constants.RateLimitConfig.MaxRetries,
		})
		if err != nil {
			return "", err
		}
		text = cleanAgentText(text)

		switch Decide(Attempt{
			Speaker:     domain.SpeakerCashier,
			Number:      attempt,
			MaxAttempts: maxAttempts,
			Usable:      usable(text, minLength),
		}) {
		case ActionAccept:
			return text, nil
		case ActionRetry:
			continue
		default:
			g.deps.logger().Warn("Cashier generation unusable, using fallback",
				zap.Error(errors.NewEmptyGenerationError("cashier", attempt+1)),
				zap.Bool("greeting", first),
				zap.String("text", util.TruncateString(text, constants.StringLimits.LogPreview)),
			)
			return fallback, nil
		}
	}
}
