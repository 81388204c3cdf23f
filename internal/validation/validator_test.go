package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/order"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
)

func testMenu() *menu.Index {
	return menu.NewIndex([]domain.MenuItem{
		{Name: "McVeggie Burger", Allergens: []string{"Cereal containing gluten", "Milk", "Soya"}, Energy: 402},
		{Name: "Fries (154g)", Energy: 423},
		{Name: "Chicken McNuggets (320g)", Allergens: []string{"Cereal containing gluten"}, Energy: 720},
		{Name: "Filet-O-Fish", Allergens: []string{"Fish"}, Energy: 348},
		{Name: "Coca-Cola", Energy: 160},
	})
}

func orderOf(energy float64, names ...string) domain.Order {
	o := domain.EmptyOrder()
	for _, n := range names {
		o.Items = append(o.Items, domain.OrderItem{Name: n, Quantity: 1})
	}
	o.TotalEnergy = energy
	return o
}

func TestValidateCleanOrder(t *testing.T) {
	v := NewValidator(testMenu(), 0.2, zap.NewNop())
	p := domain.Profile{ChildQuant: 2, Restrictions: []domain.Restriction{domain.NoMilk}, CalApprValue: 2000}

	flags := v.Validate(nil, p, orderOf(2023, "Chicken McNuggets (320g)", "Fries (154g)", "Coca-Cola"))
	assert.Equal(t, domain.ValidationFlags{}, flags)
	assert.Zero(t, flags.Count())
}

func TestValidateAllergenViolation(t *testing.T) {
	v := NewValidator(testMenu(), 0.2, nil)

	p := domain.Profile{Restrictions: []domain.Restriction{domain.NoMilk}, CalApprValue: 400}
	assert.True(t, v.Validate(nil, p, orderOf(402, "McVeggie Burger")).AllergenViolation)

	// a companion's fish allergy counts as noFish
	spouse := domain.Profile{SpouseAllergyFish: true, CalApprValue: 350}
	assert.True(t, v.Validate(nil, spouse, orderOf(348, "Filet-O-Fish")).AllergenViolation)

	free := domain.Profile{CalApprValue: 350}
	assert.False(t, v.Validate(nil, free, orderOf(348, "Filet-O-Fish")).AllergenViolation)
}

func TestCalorieWarning(t *testing.T) {
	v := NewValidator(testMenu(), 0.2, nil)

	cases := []struct {
		target int
		energy float64
		want   bool
	}{
		{2000, 2000, false},
		{2000, 2400, false},
		{2000, 2401, true},
		{2000, 1599, true},
		{0, 1700, false}, // unset target uses 2000
		{0, 1000, true},
		{1500, 0, true},
	}
	for _, tc := range cases {
		p := domain.Profile{CalApprValue: tc.target}
		assert.Equal(t, tc.want, v.CalorieWarning(p, tc.energy), "target=%d energy=%v", tc.target, tc.energy)
	}
}

func TestThresholdFallsBackToDefault(t *testing.T) {
	v := NewValidator(testMenu(), 0, nil)
	assert.InDelta(t, 0.2, v.threshold, 1e-9)

	v = NewValidator(testMenu(), 0.5, nil)
	assert.False(t, v.CalorieWarning(domain.Profile{CalApprValue: 2000}, 1100))
}

func TestHallucinationUsesExactNames(t *testing.T) {
	v := NewValidator(testMenu(), 0.2, nil)
	p := domain.Profile{CalApprValue: 423}

	assert.False(t, v.Validate(nil, p, orderOf(423, "fries (154g)")).Hallucination)
	// fuzzy enough to resolve, but not a catalog name
	assert.True(t, v.Validate(nil, p, orderOf(423, "Fries")).Hallucination)
	assert.True(t, v.Validate(nil, p, orderOf(423, "Whopper")).Hallucination)
}

type cannedCompleter string

func (c cannedCompleter) Complete(context.Context, llm.Request) (string, error) {
	return string(c), nil
}

func TestHallucinationAfterExtraction(t *testing.T) {
	idx := testMenu()
	v := NewValidator(idx, 0.2, nil)
	transcript := domain.Transcript{
		{Speaker: domain.SpeakerCashier, Text: "Hello! What would you like?"},
		{Speaker: domain.SpeakerClient, Text: "A veggie one and fries 154g, please."},
	}
	p := domain.Profile{Restrictions: []domain.Restriction{domain.NoMilk}, CalApprValue: 825}

	extract := func(reply string) domain.Order {
		e := order.NewExtractor(cannedCompleter(reply), idx, prompt.NewPromptBuilder(), zap.NewNop())
		o, err := e.Extract(context.Background(), transcript, p)
		require.NoError(t, err)
		return o
	}

	fuzzy := extract(`[{"name": "Veggie"}, {"name": "Fries (154g)"}]`)
	require.Len(t, fuzzy.Items, 2)
	assert.Equal(t, "McVeggie Burger", fuzzy.Items[0].Name)
	flags := v.Validate(transcript, p, fuzzy)
	assert.True(t, flags.Hallucination, "a name that only resolves loosely is flagged")
	assert.True(t, flags.AllergenViolation, "the resolved item still carries its allergens")
	assert.False(t, flags.CalorieWarning)

	exact := extract(`["McVeggie Burger", "fries (154g)"]`)
	assert.False(t, v.Validate(transcript, p, exact).Hallucination)
}

func TestIncompleteOrder(t *testing.T) {
	v := NewValidator(testMenu(), 0.2, nil)

	kids := domain.Profile{ChildQuant: 1, CalApprValue: 402}
	assert.True(t, v.Validate(nil, kids, orderOf(402, "McVeggie Burger")).IncompleteOrder)
	assert.True(t, v.Validate(nil, kids, domain.EmptyOrder()).IncompleteOrder)
	assert.False(t, v.Validate(nil, kids, orderOf(402, "McVeggie Burger", "Fries (154g)")).IncompleteOrder)

	alone := domain.Profile{CalApprValue: 402}
	assert.False(t, v.Validate(nil, alone, orderOf(402, "McVeggie Burger")).IncompleteOrder)
}
