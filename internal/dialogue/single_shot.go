package dialogue

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
)

// SingleShot asks for a whole dialogue in one completion.
type SingleShot struct {
	deps Deps
}

func NewSingleShot(deps Deps) *SingleShot {
	return &SingleShot{deps: deps}
}

func (g *SingleShot) Mode() Mode { return ModeSingleShot }
func (g *SingleShot) Size() int  { return 1 }

func (g *SingleShot) Generate(ctx context.Context) ([]*Result, error) {
	p := g.deps.Sampler.Sample()
	result, err := g.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	return []*Result{result}, nil
}

// Run generates one dialogue for p.
func (g *SingleShot) Run(ctx context.Context, p domain.Profile) (*Result, error) {
	idx := g.deps.Menu
	items := idx.EnrichForFamilies(idx.Search("", &p, constants.SearchLimits.Base), &p, constants.SearchLimits.Enrich)

	rendered, err := g.deps.Prompts.Render(prompt.TemplateSingleShot, prompt.SingleShotData{
		Profile:      p,
		Language:     p.Lang.DisplayName(),
		Restrictions: prompt.RestrictionList(p),
		MenuContext:  menu.FormatContext(items),
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.deps.Completer.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(rendered.System), llm.User(rendered.User)},
		Temperature: constants.Temperature.SingleShot,
		MaxRetries:  constants.RateLimitConfig.MaxRetries,
		MaxTokens:   constants.MaxTokens.SingleShot,
	})
	if err != nil {
		return nil, err
	}

	parsed := ParseTranscript(raw)
	if len(parsed) == 0 {
		g.deps.logger().Warn("Single-shot output had no parsable turns, using scripted exchange",
			zap.Int("raw_length", len(raw)))
	}
	transcript := Repair(parsed, p.Lang, 1, g.deps.Phrases)

	return g.deps.finish(ctx, ModeSingleShot, p, transcript)
}
