package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	generativeStrong    = 60.0
	generativeFactor    = 0.30
	destructiveStrong   = 70.0
	destructivePenalty  = 10.0
	skillOverlapLimit   = 3
	skillOverlapPenalty = 10.0
	neutralSkillScore   = 50.0

	// DefaultPartnerLimit is the number of partners returned when the caller
	// does not ask for a specific count.
	DefaultPartnerLimit = 3
)

// ComplementResult describes how well a partner offsets the focal member.
type ComplementResult struct {
	MemberID       string   `json:"member_id"`
	MemberName     string   `json:"member_name,omitempty"`
	TotalScore     int      `json:"total_score"`
	ElementalScore float64  `json:"elemental_score"`
	SkillScore     float64  `json:"skill_score"`
	Reasons        []string `json:"reasons"`
}

type compensation struct {
	from, to Element
	amount   float64
}

// generativeFlow sums what a gives b through the productive cycle and
// reports the strongest single contribution.
func generativeFlow(a, b Profile) (float64, *compensation) {
	var sum float64
	var best *compensation
	for _, e := range Elements {
		g := Generates(e)
		if a.Get(e) > generativeStrong && b.Get(g) < generativeStrong {
			c := a.Get(e) * (100 - b.Get(g)) / 100 * generativeFactor
			sum += c
			if best == nil || c > best.amount {
				best = &compensation{from: e, to: g, amount: c}
			}
		}
	}
	return sum, best
}

// conflicts counts mutually dominant attributes a holds against b along the
// destructive cycle.
func conflicts(a, b Profile) int {
	n := 0
	for _, e := range Elements {
		if a.Get(e) > destructiveStrong && b.Get(Overcomes(e)) > destructiveStrong {
			n++
		}
	}
	return n
}

func profileOrZero(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	return p.Clamped()
}

// ElementalComplement scores the elemental fit of a pairing in [0,100].
// Both directions contribute, so the score is symmetric in its arguments.
func ElementalComplement(a, b Profile) float64 {
	score, _, _ := elementalComplement(a, b)
	return score
}

func elementalComplement(a, b Profile) (float64, *compensation, *compensation) {
	ab, abBest := generativeFlow(a, b)
	ba, baBest := generativeFlow(b, a)
	penalty := float64(conflicts(a, b)+conflicts(b, a)) * destructivePenalty
	return clamp(ab+ba-penalty, 0, 100), abBest, baBest
}

// SkillComplement scores skill diversity of a pairing in [0,100].
func SkillComplement(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return neutralSkillScore
	}
	setA := skillSet(a)
	setB := skillSet(b)

	shared := 0
	union := len(setB)
	for s := range setA {
		if setB[s] {
			shared++
		} else {
			union++
		}
	}
	score := float64(union) / float64(len(a)+len(b)) * 100
	if shared > skillOverlapLimit {
		score -= skillOverlapPenalty
	}
	return clamp(score, 0, 100)
}

func skillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		if k := strings.ToLower(strings.TrimSpace(s)); k != "" {
			set[k] = true
		}
	}
	return set
}

// Complement scores partner b from a's point of view.
func Complement(a, b Member) ComplementResult {
	elemental, abBest, baBest := elementalComplement(profileOrZero(a.Elements), profileOrZero(b.Elements))
	skill := SkillComplement(a.Skills, b.Skills)

	reasons := []string{}
	if abBest != nil {
		reasons = append(reasons, fmt.Sprintf("your %s strengthens their weak %s", abBest.from, abBest.to))
	}
	if baBest != nil {
		reasons = append(reasons, fmt.Sprintf("their %s strengthens your weak %s", baBest.from, baBest.to))
	}

	return ComplementResult{
		MemberID:       b.ID,
		MemberName:     b.Name,
		TotalScore:     int(math.Round(elemental*complementElementalWeight + skill*complementSkillWeight)),
		ElementalScore: elemental,
		SkillScore:     skill,
		Reasons:        reasons,
	}
}

// RecommendPartners ranks pool by complementarity with focal and returns the
// top limit results. The focal member is skipped if present in pool; equal
// totals keep pool order.
func RecommendPartners(focal Member, pool []Member, limit int) []ComplementResult {
	if limit <= 0 {
		limit = DefaultPartnerLimit
	}
	results := make([]ComplementResult, 0, len(pool))
	for _, m := range pool {
		if focal.ID != "" && m.ID == focal.ID {
			continue
		}
		results = append(results, Complement(focal, m))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
