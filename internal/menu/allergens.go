package menu

import (
	"strings"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

// allergenKeywords maps a restriction to the allergen tags it forbids.
// noBeef is matched against ingredient and description text because beef is
// rarely listed as an allergen.
var allergenKeywords = map[domain.Restriction][]string{
	domain.NoMilk:      {"Milk", "milk", "diary", "Diary"},
	domain.NoFish:      {"Fish", "fish"},
	domain.NoNuts:      {"Nuts", "nuts", "Nut"},
	domain.NoEgg:       {"Egg", "egg"},
	domain.NoGluten:    {"gluten", "Gluten", "Cereal containing gluten"},
	domain.NoSoya:      {"Soya", "soya", "Soy"},
	domain.NoBeef:      {"Beef", "beef", "говядин"},
	domain.NoSulphites: {"Sulphites", "sulphites"},
}

// textMatched restrictions look at ingredients and description instead of tags.
var textMatched = map[domain.Restriction]bool{
	domain.NoBeef: true,
}

var kidsKeywords = []string{
	"mcnugget", "nugget", "fries", "mcflurry", "soft serve", "sundae",
	"kids", "happy", "child", "маленьк",
}

// sugarFreeIntent are query phrases that ask for something without sugar.
var sugarFreeIntent = []string{
	"sugar-free", "sugar free", "no sugar", "without sugar", "water",
	"без сахара", "вода", "воды", "воду",
}

// Conflicts reports whether item violates any of the profile's restrictions,
// including the implicit noFish of a companion's fish allergy.
func Conflicts(item *domain.MenuItem, p *domain.Profile) bool {
	if p == nil {
		return false
	}
	var itemText string
	for _, r := range p.EffectiveRestrictions() {
		for _, kw := range allergenKeywords[r] {
			kwLow := strings.ToLower(kw)
			if textMatched[r] {
				if itemText == "" {
					itemText = strings.ToLower(item.Ingredients + " " + item.Description)
				}
				if strings.Contains(itemText, kwLow) {
					return true
				}
				continue
			}
			for _, a := range item.Allergens {
				if strings.Contains(strings.ToLower(a), kwLow) {
					return true
				}
			}
		}
	}
	return false
}

// IsKidsItem applies the kid-appropriate keyword heuristic to an item name.
func IsKidsItem(name string) bool {
	n := strings.ToLower(name)
	for _, kw := range kidsKeywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

// HasKidsItems reports whether any order item passes IsKidsItem.
func HasKidsItems(items []domain.OrderItem) bool {
	for _, it := range items {
		if IsKidsItem(it.Name) {
			return true
		}
	}
	return false
}
