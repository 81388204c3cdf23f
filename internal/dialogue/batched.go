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

// Batched asks for several dialogues, each with its own profile and menu,
// in one completion.
type Batched struct {
	deps Deps
	size int
}

// NewBatched clamps size into the supported batch range.
func NewBatched(deps Deps, size int) *Batched {
	return &Batched{deps: deps, size: ClampBatchSize(size)}
}

// ClampBatchSize keeps n within the batch bounds; zero picks the default.
func ClampBatchSize(n int) int {
	switch {
	case n == 0:
		return constants.BatchConfig.DefaultSize
	case n < constants.BatchConfig.MinSize:
		return constants.BatchConfig.MinSize
	case n > constants.BatchConfig.MaxSize:
		return constants.BatchConfig.MaxSize
	}
	return n
}

func (g *Batched) Mode() Mode { return ModeBatched }
func (g *Batched) Size() int  { return g.size }

func (g *Batched) Generate(ctx context.Context) ([]*Result, error) {
	return g.Run(ctx, g.deps.Sampler.SampleBatch(g.size))
}

// Run generates one dialogue per profile, pairing each ===DIALOG N=== chunk
// with profiles[N-1]. Missing chunks are dropped, so the result may be
// shorter than profiles.
func (g *Batched) Run(ctx context.Context, profiles []domain.Profile) ([]*Result, error) {
	logger := g.deps.logger()
	idx := g.deps.Menu

	data := prompt.BatchData{Count: len(profiles)}
	for i := range profiles {
		p := &profiles[i]
		items := idx.EnrichForFamilies(idx.Search("", p, constants.SearchLimits.Enrich), p, constants.SearchLimits.Enrich)
		data.Dialogs = append(data.Dialogs, prompt.BatchDialog{
			Index:        i + 1,
			Profile:      *p,
			Restrictions: prompt.RestrictionList(*p),
			MenuContext:  menu.FormatContext(items),
		})
	}

	hints := append([]string(nil), prompt.OrderHints...)
	g.deps.Sampler.Shuffle(hints)
	if len(hints) > len(profiles) {
		hints = hints[:len(profiles)]
	}
	data.OrderHints = hints

	rendered, err := g.deps.Prompts.Render(prompt.TemplateBatch, data)
	if err != nil {
		return nil, err
	}

	raw, err := g.deps.Completer.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(rendered.System), llm.User(rendered.User)},
		Temperature: constants.Temperature.Batch,
		MaxRetries:  constants.RateLimitConfig.MaxRetries,
		MaxTokens:   constants.MaxTokens.Batch,
	})
	if err != nil {
		return nil, err
	}

	chunks := SplitBatch(raw)
	if len(chunks) != len(profiles) {
		logger.Warn("Batch returned a different number of dialogues than requested",
			zap.Int("requested", len(profiles)),
			zap.Int("received", len(chunks)),
		)
	}

	results := make([]*Result, 0, len(profiles))
	for i, chunk := range AssignChunks(chunks, len(profiles)) {
		if chunk == "" {
			logger.Warn("Batch dialogue missing", zap.Int("dialog", i+1))
			continue
		}
		p := profiles[i]
		transcript := Repair(ParseTranscript(chunk), p.Lang, 2, g.deps.Phrases)
		result, err := g.deps.finish(ctx, ModeBatched, p, transcript)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
