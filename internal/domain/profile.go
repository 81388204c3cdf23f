package domain

// Gender of the sampled customer.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Personality drives the customer's phrasing style.
type Personality string

const (
	PersonalityFriendly   Personality = "friendly"
	PersonalityImpatient  Personality = "impatient"
	PersonalityIndecisive Personality = "indecisive"
	PersonalityPolite     Personality = "polite_and_respectful"
	PersonalityRegular    Personality = "regular"
)

// Personalities lists every personality in a stable order.
var Personalities = []Personality{
	PersonalityFriendly,
	PersonalityImpatient,
	PersonalityIndecisive,
	PersonalityPolite,
	PersonalityRegular,
}

// Restriction is a dietary restriction key from the fixed allergen vocabulary.
type Restriction string

const (
	NoMilk      Restriction = "noMilk"
	NoFish      Restriction = "noFish"
	NoNuts      Restriction = "noNuts"
	NoEgg       Restriction = "noEgg"
	NoGluten    Restriction = "noGluten"
	NoSoya      Restriction = "noSoya"
	NoBeef      Restriction = "noBeef"
	NoSulphites Restriction = "noSulphites"
)

// Restrictions is the canonical ordering of the vocabulary.
var Restrictions = []Restriction{
	NoMilk, NoFish, NoNuts, NoEgg, NoGluten, NoSoya, NoBeef, NoSulphites,
}

// Profile is a sampled synthetic customer. It is immutable once sampled.
type Profile struct {
	Gender            Gender        `json:"gender"`
	Age               int           `json:"age"`
	AgeGroup          string        `json:"age_group"`
	Personality       Personality   `json:"personality"`
	Lang              Language      `json:"lang"`
	Restrictions      []Restriction `json:"restrictions"`
	ChildQuant        int           `json:"child_quant"`
	Companions        int           `json:"companions"`
	HasPregnantWife   bool          `json:"has_pregnant_wife"`
	Overweight        bool          `json:"overweight"`
	KidsDislikeSweets bool          `json:"kids_dislike_sweets"`
	SpouseAllergyFish bool          `json:"spouse_allergy_fish"`
	CalApprValue      int           `json:"cal_appr_value"`
	Text              string        `json:"text"`
	RegLine           string        `json:"reg_line"`
}

// HasRestriction reports whether r is active for the profile.
func (p *Profile) HasRestriction(r Restriction) bool {
	for _, active := range p.Restrictions {
		if active == r {
			return true
		}
	}
	return false
}

// EffectiveRestrictions adds the implicit noFish of a companion's fish allergy.
func (p *Profile) EffectiveRestrictions() []Restriction {
	if !p.SpouseAllergyFish || p.HasRestriction(NoFish) {
		return p.Restrictions
	}
	out := make([]Restriction, 0, len(p.Restrictions)+1)
	for _, r := range Restrictions {
		if r == NoFish || p.HasRestriction(r) {
			out = append(out, r)
		}
	}
	return out
}

// HasFamily reports whether the customer orders for anyone else.
func (p *Profile) HasFamily() bool {
	return p.ChildQuant > 0 || p.Companions > 0
}

// RestrictionNames returns restriction keys as plain strings.
func (p *Profile) RestrictionNames() []string {
	names := make([]string, len(p.Restrictions))
	for i, r := range p.Restrictions {
		names[i] = string(r)
	}
	return names
}
