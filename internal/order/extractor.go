package order

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// Extractor distills a finished transcript into a catalog-resolved order.
type Extractor struct {
	completer llm.Completer
	menu      *menu.Index
	prompts   *prompt.PromptBuilder
	logger    *zap.Logger
}

func NewExtractor(completer llm.Completer, idx *menu.Index, prompts *prompt.PromptBuilder, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		completer: completer,
		menu:      idx,
		prompts:   prompts,
		logger:    logger,
	}
}

// Extract asks the model for the final item list and resolves it against the
// menu. Malformed model output yields an empty order, not an error; only
// completion failures are returned.
func (e *Extractor) Extract(ctx context.Context, t domain.Transcript, p domain.Profile) (domain.Order, error) {
	dialogue := t.String()
	rendered, err := e.prompts.Render(prompt.TemplateExtractOrder, prompt.ExtractOrderData{
		MenuNames: strings.Join(e.menu.Names(), "\n"),
		Dialogue:  dialogue,
	})
	if err != nil {
		return domain.EmptyOrder(), err
	}

	raw, err := e.completer.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.User(rendered.User)},
		Temperature: constants.Temperature.Extraction,
		MaxRetries:  constants.RateLimitConfig.MaxRetries,
	})
	if err != nil {
		return domain.EmptyOrder(), err
	}

	lines, err := ParseItems(raw)
	if err != nil {
		e.logger.Debug("Order extraction output unparsable, using empty order",
			zap.String("lang", string(p.Lang)),
			zap.Error(err),
		)
		return domain.EmptyOrder(), nil
	}

	o := e.Build(lines, dialogue)
	e.logger.Debug("Order extracted",
		zap.Int("requested", len(lines)),
		zap.Int("resolved", len(o.Items)),
		zap.Float64("total_energy", o.TotalEnergy),
	)
	return o, nil
}

// Line is one extracted name with its quantity, before resolution.
type Line struct {
	Name     string
	Quantity int
}

// Build resolves lines against the menu, using the transcript to pick between size
// variants. Unresolved names are dropped; resolved items keep the extracted
// name for the hallucination check. Totals are energy times quantity;
// allergens are unioned in first-seen order.
func (e *Extractor) Build(lines []Line, transcript string) domain.Order {
	o := domain.EmptyOrder()
	seen := make(map[string]bool)
	for _, line := range lines {
		item, ok := e.menu.ResolveInContext(line.Name, transcript)
		if !ok {
			e.logger.Debug("Dropping unresolved order item", zap.String("name", line.Name))
			continue
		}
		o.Items = append(o.Items, domain.OrderItem{
			Name:      item.Name,
			Quantity:  line.Quantity,
			Energy:    item.Energy,
			Extracted: line.Name,
		})
		o.TotalEnergy += item.Energy * float64(line.Quantity)
		for _, a := range item.Allergens {
			if !seen[a] {
				seen[a] = true
				o.Allergens = append(o.Allergens, a)
			}
		}
	}
	return o
}

type rawItem struct {
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
}

// ParseItems reads the outermost [...] of raw. Elements may be bare strings
// or {name, quantity} objects; quantities below one become one.
func ParseItems(raw string) ([]Line, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, errors.NewParseError("no JSON array in extraction output", raw, nil)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &elems); err != nil {
		return nil, errors.NewParseError("invalid JSON array in extraction output", raw, err)
	}

	lines := make([]Line, 0, len(elems))
	for _, elem := range elems {
		var name string
		if err := json.Unmarshal(elem, &name); err == nil {
			if name = strings.TrimSpace(name); name != "" {
				lines = append(lines, Line{Name: name, Quantity: 1})
			}
			continue
		}

		var obj rawItem
		if err := json.Unmarshal(elem, &obj); err != nil {
			continue
		}
		if obj.Name = strings.TrimSpace(obj.Name); obj.Name == "" {
			continue
		}
		lines = append(lines, Line{Name: obj.Name, Quantity: parseQuantity(obj.Quantity)})
	}
	return lines, nil
}

// parseQuantity accepts numbers or numeric strings; anything else is one.
func parseQuantity(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &f); err != nil {
			return 1
		}
	}
	if q := int(f); q >= 1 {
		return q
	}
	return 1
}
