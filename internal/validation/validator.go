package validation

import (
	"math"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
)

// Validator applies the four rule checks to an extracted order.
type Validator struct {
	menu      *menu.Index
	threshold float64
	logger    *zap.Logger
}

// NewValidator uses the default calorie threshold when threshold is not in (0, 1].
func NewValidator(idx *menu.Index, threshold float64, logger *zap.Logger) *Validator {
	if threshold <= 0 || threshold > 1 {
		threshold = constants.DialogueDefaults.CalorieThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{menu: idx, threshold: threshold, logger: logger}
}

// Validate computes the flags. The checks are independent of each other and of
// item order. The transcript is accepted for interface symmetry with the
// extractor; no current check reads it.
func (v *Validator) Validate(_ domain.Transcript, p domain.Profile, o domain.Order) domain.ValidationFlags {
	flags := domain.ValidationFlags{
		AllergenViolation: v.allergenViolation(p, o),
		CalorieWarning:    v.CalorieWarning(p, o.TotalEnergy),
		Hallucination:     v.hallucination(o),
		IncompleteOrder:   p.ChildQuant > 0 && !menu.HasKidsItems(o.Items),
	}
	if n := flags.Count(); n > 0 {
		v.logger.Debug("Order flagged", zap.Int("flags", n), zap.Any("flags_detail", flags.Named()))
	}
	return flags
}

// CalorieWarning reports whether energy is further than threshold*target from
// the profile's calorie target. An unset target counts as the default.
func (v *Validator) CalorieWarning(p domain.Profile, energy float64) bool {
	target := float64(p.CalApprValue)
	if target <= 0 {
		target = float64(constants.DialogueDefaults.CalorieTarget)
	}
	return math.Abs(energy-target) > v.threshold*target
}

func (v *Validator) allergenViolation(p domain.Profile, o domain.Order) bool {
	for _, it := range o.Items {
		item, ok := v.menu.Resolve(it.Name)
		if !ok {
			continue
		}
		if menu.Conflicts(item, &p) {
			return true
		}
	}
	return false
}

// hallucination checks the names as extracted. Resolution is looser than
// Exists, so a fuzzy name can carry energy and allergens and still be flagged.
func (v *Validator) hallucination(o domain.Order) bool {
	for _, it := range o.Items {
		if !v.menu.Exists(it.ExtractedName()) {
			return true
		}
	}
	return false
}
