package menu

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/util"
)

// Index answers lookups over one loaded catalog. Read-only after construction.
type Index struct {
	items []domain.MenuItem
	keys  []string // normalized names
	bases []string // normalized names without size tokens
	sizes []string // size token from the name, else from the serving size
}

func NewIndex(items []domain.MenuItem) *Index {
	idx := &Index{
		items: items,
		keys:  make([]string, len(items)),
		bases: make([]string, len(items)),
		sizes: make([]string, len(items)),
	}
	for i := range items {
		idx.keys[i] = normalizeKey(items[i].Name)
		idx.bases[i] = stripSizes(idx.keys[i])
		idx.sizes[i] = firstSizeToken(items[i].Name)
		if idx.sizes[i] == "" {
			idx.sizes[i] = firstSizeToken(items[i].ServingSize)
		}
	}
	return idx
}

// Items returns the catalog in source order.
func (x *Index) Items() []domain.MenuItem { return x.items }

// Len returns the number of items.
func (x *Index) Len() int { return len(x.items) }

// Names returns catalog names in source order.
func (x *Index) Names() []string {
	names := make([]string, len(x.items))
	for i := range x.items {
		names[i] = x.items[i].Name
	}
	return names
}

// Allowed returns the items that do not conflict with the profile.
func (x *Index) Allowed(p *domain.Profile) []domain.MenuItem {
	out := make([]domain.MenuItem, 0, len(x.items))
	for i := range x.items {
		if !Conflicts(&x.items[i], p) {
			out = append(out, x.items[i])
		}
	}
	return out
}

// Search is lexical retrieval over the profile-safe part of the catalog.
//
// A sugar-free or water request floats sugar-free items to the front. Otherwise
// items are scored by how many query tokens occur in name, description and
// ingredients; zero-score items are dropped and ties keep catalog order. When
// nothing scores, the unscored safe list is returned.
func (x *Index) Search(query string, p *domain.Profile, limit int) []domain.MenuItem {
	filtered := x.Allowed(p)

	if util.ContainsAnyPhrase(query, sugarFreeIntent) {
		ranked := make([]domain.MenuItem, len(filtered))
		copy(ranked, filtered)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].SugarFree() && !ranked[j].SugarFree()
		})
		return head(ranked, limit)
	}

	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return head(filtered, limit)
	}

	type scored struct {
		item  domain.MenuItem
		score int
	}
	hits := make([]scored, 0, len(filtered))
	for _, item := range filtered {
		text := strings.ToLower(item.Name + " " + item.Description + " " + item.Ingredients)
		score := 0
		for _, t := range tokens {
			if strings.Contains(text, t) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{item: item, score: score})
		}
	}
	if len(hits) == 0 {
		return head(filtered, limit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]domain.MenuItem, 0, min(len(hits), limit))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.item)
	}
	return out
}

// EnrichForFamilies moves kid-appropriate items to the front when the profile
// has children, so they survive later truncation.
func (x *Index) EnrichForFamilies(items []domain.MenuItem, p *domain.Profile, limit int) []domain.MenuItem {
	if p == nil || p.ChildQuant <= 0 {
		return head(items, limit)
	}
	out := make([]domain.MenuItem, 0, len(items))
	for _, it := range items {
		if IsKidsItem(it.Name) {
			out = append(out, it)
		}
	}
	for _, it := range items {
		if !IsKidsItem(it.Name) {
			out = append(out, it)
		}
	}
	return head(out, limit)
}

// Resolve finds the catalog item a free-form name refers to.
//
// An exact case-insensitive name wins. Otherwise candidates are items whose
// name and the query contain one another (compared with punctuation folded,
// and again with serving sizes removed). Among several candidates the one
// carrying the query's size token wins, else the first.
func (x *Index) Resolve(name string) (*domain.MenuItem, bool) {
	if i, ok := x.exact(name); ok {
		return &x.items[i], true
	}
	candidates := x.candidates(name)
	if len(candidates) == 0 {
		return nil, false
	}
	if size := firstSizeToken(name); size != "" {
		for _, i := range candidates {
			if x.sizes[i] == size {
				return &x.items[i], true
			}
		}
	}
	return &x.items[candidates[0]], true
}

// ResolveInContext is Resolve with a tie-breaker for size variants: when name
// carries no size of its own and matches several items, the variant whose size
// was mentioned last in context wins.
func (x *Index) ResolveInContext(name, context string) (*domain.MenuItem, bool) {
	if _, ok := x.exact(name); ok || firstSizeToken(name) != "" {
		return x.Resolve(name)
	}
	candidates := x.candidates(name)
	if len(candidates) > 1 {
		mentioned := sizeTokens(context)
		for k := len(mentioned) - 1; k >= 0; k-- {
			for _, i := range candidates {
				if x.sizes[i] != "" && x.sizes[i] == mentioned[k] {
					return &x.items[i], true
				}
			}
		}
	}
	return x.Resolve(name)
}

// Exists is the strict check: name equals a catalog name, ignoring case and
// surrounding space. Fuzzy matches that Resolve accepts do not count.
func (x *Index) Exists(name string) bool {
	_, ok := x.exact(name)
	return ok
}

func (x *Index) exact(name string) (int, bool) {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0, false
	}
	for i := range x.items {
		if strings.EqualFold(x.items[i].Name, n) {
			return i, true
		}
	}
	return 0, false
}

func (x *Index) candidates(name string) []int {
	key := normalizeKey(name)
	if key == "" {
		return nil
	}
	base := stripSizes(key)

	var out []int
	for i := range x.items {
		if containsEither(x.keys[i], key) || (base != "" && x.bases[i] != "" && containsEither(x.bases[i], base)) {
			out = append(out, i)
		}
	}
	return out
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// FormatContext renders items as the retrieval block placed into prompts.
func FormatContext(items []domain.MenuItem) string {
	var b strings.Builder
	for i, m := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		allergens := "none"
		if len(m.Allergens) > 0 {
			allergens = strings.Join(m.Allergens, ", ")
		}
		fmt.Fprintf(&b, "- %s (%s) | %s kcal | allergens: %s",
			m.Name, m.ServingSize, strconv.FormatFloat(m.Energy, 'f', -1, 64), allergens)
	}
	return b.String()
}

func head(items []domain.MenuItem, limit int) []domain.MenuItem {
	if limit < 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

var sizePattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|ml|g|l|кг|гр|мл|г|л)(?:[^\p{L}]|$)`)

// sizeTokens returns serving-size tokens in order of appearance, normalized
// to "<digits><unit>" (e.g. "154 g" -> "154g").
func sizeTokens(s string) []string {
	matches := sizePattern.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, normalizeSize(m[1], m[2]))
	}
	return out
}

func firstSizeToken(s string) string {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return normalizeSize(m[1], m[2])
}

func normalizeSize(amount, unit string) string {
	unit = strings.ToLower(unit)
	switch unit {
	case "гр", "г":
		unit = "g"
	case "кг":
		unit = "kg"
	case "мл":
		unit = "ml"
	case "л":
		unit = "l"
	}
	return strings.ReplaceAll(amount, ",", ".") + unit
}

// normalizeKey lowercases, drops trademark signs and punctuation, and collapses spaces.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '®' || r == '™':
		default:
			b.WriteByte(' ')
		}
	}
	return util.CollapseSpaces(b.String())
}

func stripSizes(key string) string {
	return util.CollapseSpaces(sizePattern.ReplaceAllStringFunc(key, func(m string) string {
		// keep the trailing boundary rune the pattern consumed
		last := []rune(m)
		tail := last[len(last)-1]
		if unicode.IsLetter(tail) {
			return " "
		}
		return " " + string(tail)
	}))
}

func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
