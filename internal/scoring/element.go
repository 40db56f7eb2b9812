package scoring

import (
	"sort"
	"strings"
)

// Element is one of the five elemental attributes carried by members and tasks.
type Element string

const (
	Fire  Element = "fire"
	Metal Element = "metal"
	Wood  Element = "wood"
	Water Element = "water"
	Earth Element = "earth"
)

// Elements lists the attributes in canonical order. Every loop over a profile
// walks this order so results never depend on map iteration.
var Elements = []Element{Fire, Metal, Wood, Water, Earth}

// generates: wood→fire→earth→metal→water→wood
var generates = map[Element]Element{
	Wood:  Fire,
	Fire:  Earth,
	Earth: Metal,
	Metal: Water,
	Water: Wood,
}

// overcomes: wood→earth→water→fire→metal→wood
var overcomes = map[Element]Element{
	Wood:  Earth,
	Earth: Water,
	Water: Fire,
	Fire:  Metal,
	Metal: Wood,
}

var glyphs = map[string]Element{
	"火": Fire,
	"金": Metal,
	"木": Wood,
	"水": Water,
	"土": Earth,
}

// Generates returns the element e strengthens along the productive cycle.
func Generates(e Element) Element { return generates[e] }

// Overcomes returns the element e conflicts with along the destructive cycle.
func Overcomes(e Element) Element { return overcomes[e] }

// ParseElement accepts canonical names (any case) and the single-glyph forms.
func ParseElement(s string) (Element, bool) {
	s = strings.TrimSpace(s)
	if e, ok := glyphs[s]; ok {
		return e, true
	}
	e := Element(strings.ToLower(s))
	if _, ok := generates[e]; ok {
		return e, true
	}
	return "", false
}

// Profile is a fixed-shape elemental profile. Values are in [0,100] and are
// not required to sum to any total.
type Profile struct {
	Fire  float64 `json:"fire"`
	Metal float64 `json:"metal"`
	Wood  float64 `json:"wood"`
	Water float64 `json:"water"`
	Earth float64 `json:"earth"`
}

// Get returns the value for e, or 0 for an unknown element.
func (p Profile) Get(e Element) float64 {
	switch e {
	case Fire:
		return p.Fire
	case Metal:
		return p.Metal
	case Wood:
		return p.Wood
	case Water:
		return p.Water
	case Earth:
		return p.Earth
	}
	return 0
}

// With returns a copy of p with e set to v.
func (p Profile) With(e Element, v float64) Profile {
	switch e {
	case Fire:
		p.Fire = v
	case Metal:
		p.Metal = v
	case Wood:
		p.Wood = v
	case Water:
		p.Water = v
	case Earth:
		p.Earth = v
	}
	return p
}

// Sum returns the total of all five values.
func (p Profile) Sum() float64 {
	return p.Fire + p.Metal + p.Wood + p.Water + p.Earth
}

// Dominant returns the strongest element; ties go to the earlier element in
// canonical order. An all-zero profile has no dominant element.
func (p Profile) Dominant() (Element, bool) {
	var best Element
	bestVal := 0.0
	for _, e := range Elements {
		if v := p.Get(e); v > bestVal {
			best, bestVal = e, v
		}
	}
	return best, bestVal > 0
}

// Clamped returns p with every value bounded to [0,100].
func (p Profile) Clamped() Profile {
	for _, e := range Elements {
		p = p.With(e, clamp(p.Get(e), 0, 100))
	}
	return p
}

// LegacyAffinity turns a single dominant-element requirement into a one-hot
// vector so the scorer sees one input shape.
func LegacyAffinity(e Element) *Profile {
	p := Profile{}.With(e, 100)
	return &p
}

// ProfileFromMap builds a profile from loosely typed input. Unknown keys are
// ignored and values are clamped; missing elements read as 0. When a map
// names an element more than once, the lower-case English key wins over
// other spellings and glyphs.
func ProfileFromMap(m map[string]float64) Profile {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := keyRank(keys[i]), keyRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	var p Profile
	for _, k := range keys {
		if e, ok := ParseElement(k); ok {
			p = p.With(e, m[k])
		}
	}
	return p.Clamped()
}

// keyRank orders map keys so later, more canonical spellings overwrite
// earlier ones.
func keyRank(k string) int {
	e, ok := ParseElement(k)
	switch {
	case !ok:
		return 0
	case k == string(e):
		return 3
	case strings.EqualFold(strings.TrimSpace(k), string(e)):
		return 2
	}
	return 1
}

// AsMap returns the profile keyed by canonical element name.
func (p Profile) AsMap() map[string]float64 {
	out := make(map[string]float64, len(Elements))
	for _, e := range Elements {
		out[string(e)] = p.Get(e)
	}
	return out
}
