package profile

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

type ageGroup struct {
	Label  string
	MinAge int
	MaxAge int
	MinCal int
	MaxCal int
}

var ageGroups = []ageGroup{
	{Label: "young", MinAge: 18, MaxAge: 25, MinCal: 1800, MaxCal: 2800},
	{Label: "adult", MinAge: 26, MaxAge: 40, MinCal: 2000, MaxCal: 2500},
	{Label: "middle", MinAge: 41, MaxAge: 55, MinCal: 1800, MaxCal: 2200},
	{Label: "senior", MinAge: 56, MaxAge: 70, MinCal: 1600, MaxCal: 2000},
}

var genders = []domain.Gender{domain.GenderMale, domain.GenderFemale}

// restrictionProbability is the Bernoulli probability of each restriction.
var restrictionProbability = map[domain.Restriction]float64{
	domain.NoMilk:      0.15,
	domain.NoFish:      0.08,
	domain.NoNuts:      0.10,
	domain.NoEgg:       0.05,
	domain.NoGluten:    0.05,
	domain.NoSoya:      0.05,
	domain.NoBeef:      0.08,
	domain.NoSulphites: 0.02,
}

var familyOdds = struct {
	Children          float64
	Companions        float64
	PregnantWife      float64
	Overweight        float64
	KidsDislikeSweets float64
	SpouseAllergyFish float64
}{
	Children:          0.25,
	Companions:        0.30,
	PregnantWife:      0.05,
	Overweight:        0.20,
	KidsDislikeSweets: 0.15,
	SpouseAllergyFish: 0.05,
}

// familyRetries bounds the redraws spent looking for a family profile to lead a batch.
const familyRetries = 15

// Sampler draws synthetic customer profiles. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler seeds the sampler. Seed 0 uses the current time.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSamplerWithSource uses an existing random source.
func NewSamplerWithSource(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// Sample draws one profile.
func (s *Sampler) Sample() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleLocked()
}

// SampleBatch draws n profiles with distinct personalities while possible.
// The first profile is redrawn a bounded number of times to favour a customer
// with children or companions.
func (s *Sampler) SampleBatch(n int) []domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]domain.Profile, 0, n)
	used := make(map[domain.Personality]bool)
	for i := 0; i < n; i++ {
		p := s.sampleLocked()
		for used[p.Personality] && len(used) < len(domain.Personalities) {
			p = s.sampleLocked()
		}
		if i == 0 {
			for k := 0; k < familyRetries && !p.HasFamily(); k++ {
				alt := s.sampleLocked()
				if alt.HasFamily() {
					p = alt
					break
				}
			}
		}
		used[p.Personality] = true
		profiles = append(profiles, p)
	}
	return profiles
}

// Shuffle permutes a slice of strings in place with the sampler's source.
func (s *Sampler) Shuffle(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

// IntN returns a uniform int in [0, n).
func (s *Sampler) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Sampler) sampleLocked() domain.Profile {
	gender := genders[s.rng.IntN(len(genders))]
	group := ageGroups[s.rng.IntN(len(ageGroups))]
	age := s.randomInt(group.MinAge, group.MaxAge)
	personality := domain.Personalities[s.rng.IntN(len(domain.Personalities))]
	lang := domain.Languages[s.rng.IntN(len(domain.Languages))]

	restrictions := make([]domain.Restriction, 0, 2)
	for _, r := range domain.Restrictions {
		if s.coin(restrictionProbability[r]) {
			restrictions = append(restrictions, r)
		}
	}

	childQuant := 0
	if s.coin(familyOdds.Children) {
		childQuant = s.randomInt(1, 3)
	}
	companions := 0
	if s.coin(familyOdds.Companions) {
		companions = s.randomInt(0, 2)
	}
	pregnantWife := s.coin(familyOdds.PregnantWife) && gender == domain.GenderMale
	overweight := s.coin(familyOdds.Overweight)
	kidsDislikeSweets := s.coin(familyOdds.KidsDislikeSweets) && childQuant > 0
	spouseAllergyFish := s.coin(familyOdds.SpouseAllergyFish)

	p := domain.Profile{
		Gender:            gender,
		Age:               age,
		AgeGroup:          group.Label,
		Personality:       personality,
		Lang:              lang,
		Restrictions:      restrictions,
		ChildQuant:        childQuant,
		Companions:        companions,
		HasPregnantWife:   pregnantWife,
		Overweight:        overweight,
		KidsDislikeSweets: kidsDislikeSweets,
		SpouseAllergyFish: spouseAllergyFish,
		CalApprValue:      s.randomInt(group.MinCal, group.MaxCal),
	}
	p.Text = Describe(p)
	p.RegLine = RegLine(p)
	return p
}

func (s *Sampler) coin(probability float64) bool {
	return s.rng.Float64() < probability
}

func (s *Sampler) randomInt(minValue, maxValue int) int {
	return minValue + s.rng.IntN(maxValue-minValue+1)
}

// RegLine renders the compact space-separated key=value line of a profile.
func RegLine(p domain.Profile) string {
	parts := []string{
		"gender=" + string(p.Gender),
		fmt.Sprintf("age=%d", p.Age),
		"personality=" + string(p.Personality),
		"lang=" + string(p.Lang),
	}
	parts = append(parts, p.RestrictionNames()...)
	if p.ChildQuant > 0 {
		parts = append(parts, fmt.Sprintf("childQuant=%d", p.ChildQuant))
	}
	if p.Companions > 0 {
		parts = append(parts, fmt.Sprintf("companions=%d", p.Companions))
	}
	if p.HasPregnantWife {
		parts = append(parts, "hasPregnantWife")
	}
	parts = append(parts, fmt.Sprintf("calApprValue=%d", p.CalApprValue))
	if p.Overweight {
		parts = append(parts, "overweight")
	}
	if p.KidsDislikeSweets {
		parts = append(parts, "kidsDislikeSweets")
	}
	if p.SpouseAllergyFish {
		parts = append(parts, "spouseAllergyFish")
	}
	return strings.Join(parts, " ")
}

type descriptionPhrases struct {
	Header        func(p domain.Profile) string
	Alone         string
	Children      string
	Companions    string
	PregnantWife  string
	Overweight    string
	FishAllergy   string
	NoSweets      string
	Restrictions  string
	CalorieTarget string
}

var descriptions = map[domain.Language]descriptionPhrases{
	domain.LangEnglish: {
		Header: func(p domain.Profile) string {
			return fmt.Sprintf("%d-year-old %s", p.Age, p.Gender)
		},
		Alone:         "alone",
		Children:      "%d child(ren)",
		Companions:    "%d companion(s)",
		PregnantWife:  "pregnant wife (dietary caution)",
		Overweight:    "overweight",
		FishAllergy:   "companion has fish allergy",
		NoSweets:      "kids dislike sweets",
		Restrictions:  "restrictions: %s",
		CalorieTarget: "target calories ≈%d kcal",
	},
	domain.LangRussian: {
		Header: func(p domain.Profile) string {
			g := "женщина"
			if p.Gender == domain.GenderMale {
				g = "мужчина"
			}
			return fmt.Sprintf("%d лет, %s", p.Age, g)
		},
		Alone:         "одинокий посетитель",
		Children:      "%d ребёнок/дети",
		Companions:    "%d сопровождающих",
		PregnantWife:  "беременная жена (осторожность с питанием)",
		Overweight:    "повышенный вес",
		FishAllergy:   "у спутника аллергия на рыбу",
		NoSweets:      "дети не любят сладкое",
		Restrictions:  "ограничения: %s",
		CalorieTarget: "целевые калории ≈%d ккал",
	},
}

// Describe renders the human-readable profile text in the profile's language.
func Describe(p domain.Profile) string {
	d := descriptions[p.Lang.Normalize()]

	parts := []string{d.Header(p)}
	if !p.HasFamily() {
		parts = append(parts, d.Alone)
	}
	if p.ChildQuant > 0 {
		parts = append(parts, fmt.Sprintf(d.Children, p.ChildQuant))
	}
	if p.Companions > 0 {
		parts = append(parts, fmt.Sprintf(d.Companions, p.Companions))
	}
	if p.HasPregnantWife {
		parts = append(parts, d.PregnantWife)
	}
	if p.Overweight {
		parts = append(parts, d.Overweight)
	}
	if p.SpouseAllergyFish {
		parts = append(parts, d.FishAllergy)
	}
	if p.KidsDislikeSweets {
		parts = append(parts, d.NoSweets)
	}
	if len(p.Restrictions) > 0 {
		parts = append(parts, fmt.Sprintf(d.Restrictions, strings.Join(p.RestrictionNames(), ", ")))
	}
	parts = append(parts, fmt.Sprintf(d.CalorieTarget, p.CalApprValue))

	return strings.Join(parts, ". ") + ". "
}
