package prompt

import "github.com/kapu/cashier-dialog-gen/internal/domain"

var personalityStyles = map[domain.Language]map[domain.Personality]string{
	domain.LangRussian: {
		domain.PersonalityFriendly:   "Тепло, благодарно, 2–4 развёрнутые фразы (например: «Спасибо! Вы так помогаете. Давайте бургер и колу.»)",
		domain.PersonalityImpatient:  "Коротко и прямо, минимум слов (например: «Бургер. Кола. Всё.»)",
		domain.PersonalityIndecisive: "Сомнения, просьба совета (например: «Хм, не знаю... Что бы вы взяли на моём месте?»)",
		domain.PersonalityPolite:     "Формально, вежливо (например: «Будьте добры, один бургер и напиток»)",
		domain.PersonalityRegular:    "Нейтрально, стандартно.",
	},
	domain.LangEnglish: {
		domain.PersonalityFriendly:   "Warm, thankful, 2–4 phrases (e.g. «Thanks! That helps. I'll take a burger and coke.»)",
		domain.PersonalityImpatient:  "Short and direct, minimal words (e.g. «Burger. Coke. Done.»)",
		domain.PersonalityIndecisive: "Hesitant, ask for advice (e.g. «Hmm, not sure... What would you get?»)",
		domain.PersonalityPolite:     "Formal, polite (e.g. «Could I have one burger and a drink, please»)",
		domain.PersonalityRegular:    "Neutral, standard.",
	},
}

// StyleFor returns the speaking style for a personality; unknown ones speak regular.
func StyleFor(p domain.Personality, lang domain.Language) string {
	styles := personalityStyles[lang.Normalize()]
	if s, ok := styles[p]; ok {
		return s
	}
	return styles[domain.PersonalityRegular]
}

// OrderHints push a batch towards different kinds of order.
var OrderHints = []string{
	"burger + fries + drink (e.g. McChicken, Fries, Cold Coffee)",
	"McNuggets + fries + soft drink",
	"vegetarian meal (McAloo Tikki, McVeggie, or Paneer burger + drink)",
	"dessert + coffee (McFlurry or Sundae + Cold Coffee / Black Coffee)",
	"wrap + drink (Spicy Chicken or Paneer Wrap)",
	"quick snack (Fries + Iced Tea or Black Coffee)",
	"family order: 2 different burgers + fries + 2 drinks",
}
