package domain

// MenuItem is one normalized catalog row. Read-only after loading.
type MenuItem struct {
	Name        string   `json:"name"`
	ServingSize string   `json:"serving_size"`
	Ingredients string   `json:"ingredients"`
	Allergens   []string `json:"allergy"`
	Energy      float64  `json:"energy"`
	TotalSugar  float64  `json:"total_sugar"`
	AddedSugar  float64  `json:"added_sugar"`
	Description string   `json:"description"`
}

// SugarFree reports whether the item carries no sugar at all.
func (m *MenuItem) SugarFree() bool {
	return m.TotalSugar == 0 && m.AddedSugar == 0
}
