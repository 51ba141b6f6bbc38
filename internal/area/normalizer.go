package area

import "strings"

// Area is a normalized administrative area triple. District is optional.
type Area struct {
	Province string
	City     string
	District string
}

// Normalizer canonicalizes free-text Korean administrative area names.
// Normalization is best effort, never validation: unknown tokens pass
// through unchanged and no method returns an error.
type Normalizer struct{}

// NewNormalizer returns a stateless area normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize expands short provincial names to their full legal form and
// appends the administrative suffix to bare city/district tokens. The suffix
// is picked from the fixed district/county lookups, with the city suffix as
// the default fallback. Idempotent: Normalize(Normalize(a)) == Normalize(a).
func (n *Normalizer) Normalize(a Area) Area {
	out := Area{
		Province: normalizeProvince(a.Province),
		City:     normalizeToken(a.City),
		District: normalizeToken(a.District),
	}
	return out
}

// Parse splits a free-text area string on whitespace into an Area and
// normalizes it. Tokens beyond the third are ignored.
func (n *Normalizer) Parse(raw string) Area {
	fields := strings.Fields(raw)
	var a Area
	if len(fields) > 0 {
		a.Province = fields[0]
	}
	if len(fields) > 1 {
		a.City = fields[1]
	}
	if len(fields) > 2 {
		a.District = fields[2]
	}
	return n.Normalize(a)
}

// CanonicalKey renders the normalized area as a single stable string.
func (n *Normalizer) CanonicalKey(a Area) string {
	norm := n.Normalize(a)
	parts := make([]string, 0, 3)
	for _, part := range []string{norm.Province, norm.City, norm.District} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// VariantsOf returns every textual rendering under which the same area may
// appear in heterogeneously formatted records: {full, short} province forms
// crossed with {suffixed, bare} city forms, with and without the district.
func (n *Normalizer) VariantsOf(a Area) map[string]struct{} {
	norm := n.Normalize(a)

	provinces := []string{}
	if norm.Province != "" {
		provinces = append(provinces, norm.Province)
		if short, ok := provinceShortByFull[norm.Province]; ok {
			provinces = append(provinces, short)
		}
	}

	cities := []string{}
	if norm.City != "" {
		cities = append(cities, norm.City)
		if bare := stripSuffix(norm.City); bare != norm.City {
			cities = append(cities, bare)
		}
	}

	variants := make(map[string]struct{})
	for _, province := range provinces {
		if len(cities) == 0 {
			variants[province] = struct{}{}
			continue
		}
		for _, city := range cities {
			key := province + " " + city
			variants[key] = struct{}{}
			if norm.District != "" {
				variants[key+" "+norm.District] = struct{}{}
			}
		}
	}
	return variants
}

// Match reports whether two free-text area names refer to the same area:
// exact canonical equality or substring containment in either direction.
// Containment is a deliberate approximation biased toward false positives
// for partially specified names.
func (n *Normalizer) Match(a, b string) bool {
	ka := n.CanonicalKey(n.Parse(a))
	kb := n.CanonicalKey(n.Parse(b))
	if ka == "" || kb == "" {
		return false
	}
	return ka == kb || strings.Contains(ka, kb) || strings.Contains(kb, ka)
}

func normalizeProvince(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if full, ok := provinceFullByShort[token]; ok {
		return full
	}
	return token
}

func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if suffixed(token) {
		return token
	}
	if _, ok := districtNames[token]; ok {
		return token + "구"
	}
	if _, ok := countyNames[token]; ok {
		return token + "군"
	}
	return token + "시"
}

// stripSuffix drops a trailing 시/구/군 to recover the bare token form.
func stripSuffix(token string) string {
	runes := []rune(token)
	if len(runes) < 2 {
		return token
	}
	switch runes[len(runes)-1] {
	case '시', '구', '군':
		return string(runes[:len(runes)-1])
	}
	return token
}
