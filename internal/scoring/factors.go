package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Component names, kept stable for explainability in API responses.
const (
	ComponentSkill     = "skill"
	ComponentElemental = "elemental"
	ComponentWorkload  = "workload"
)

// FactorResult captures one component's contribution to a match total.
// Score is Raw rounded for display; totals are computed from Raw.
type FactorResult struct {
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	Raw     float64  `json:"raw_score"`
	Weight  float64  `json:"weight"`
	Neutral bool     `json:"neutral"`
	Reason  string   `json:"reason"`
	Matched []string `json:"matched,omitempty"`
}

// Member is the read-only snapshot of a candidate the engine scores.
type Member struct {
	ID     string
	Name   string
	Skills []string
	// Elements is nil when the member has never been profiled.
	Elements    *Profile
	ActiveTasks int
}

// Task is the read-only snapshot of the task being matched.
type Task struct {
	ID             string
	RequiredSkills []string
	// Affinity is nil when the task carries no elemental requirement.
	Affinity *Profile
}

// SkillMatcher reports whether a member skill satisfies a required skill.
type SkillMatcher func(required, have string) bool

// ContainsMatch matches when either skill contains the other, ignoring case.
// Short tags over-match ("ai" matches "pain").
func ContainsMatch(required, have string) bool {
	r := strings.ToLower(strings.TrimSpace(required))
	h := strings.ToLower(strings.TrimSpace(have))
	if r == "" || h == "" {
		return false
	}
	return strings.Contains(h, r) || strings.Contains(r, h)
}

// ExactMatch matches equal skills, ignoring case and surrounding space.
func ExactMatch(required, have string) bool {
	r := strings.TrimSpace(required)
	return r != "" && strings.EqualFold(r, strings.TrimSpace(have))
}

// --- Component calculators ---

// SkillFactor scores the share of required skills the member covers.
func SkillFactor(w WeightSet, match SkillMatcher, task Task, m Member) FactorResult {
	if len(task.RequiredSkills) == 0 {
		return FactorResult{
			Name: ComponentSkill, Score: roundScore(w.Skill / 2), Raw: w.Skill / 2, Weight: w.Skill,
			Neutral: true, Reason: "no skills required",
		}
	}
	var matched []string
	for _, req := range task.RequiredSkills {
		for _, have := range m.Skills {
			if match(req, have) {
				matched = append(matched, req)
				break
			}
		}
	}
	raw := float64(len(matched)) / float64(len(task.RequiredSkills)) * w.Skill
	return FactorResult{
		Name:    ComponentSkill,
		Score:   roundScore(raw),
		Raw:     raw,
		Weight:  w.Skill,
		Reason:  fmt.Sprintf("%d of %d required skills", len(matched), len(task.RequiredSkills)),
		Matched: matched,
	}
}

// ElementalFactor scores the member's strength on the task's elemental
// requirement as an affinity-weighted mean of the member's profile.
func ElementalFactor(w WeightSet, task Task, m Member) FactorResult {
	neutral := FactorResult{
		Name: ComponentElemental, Score: roundScore(w.Elemental / 2), Raw: w.Elemental / 2,
		Weight: w.Elemental, Neutral: true,
	}
	if task.Affinity == nil || task.Affinity.Sum() <= 0 {
		neutral.Reason = "no elemental requirement"
		return neutral
	}
	if m.Elements == nil {
		neutral.Reason = "member has no elemental profile"
		return neutral
	}

	var weighted, total float64
	for _, e := range Elements {
		wt := math.Max(0, task.Affinity.Get(e))
		weighted += wt * clamp(m.Elements.Get(e), 0, 100)
		total += wt
	}
	strength := weighted / total
	reason := fmt.Sprintf("affinity strength %.0f", strength)
	if dom, ok := task.Affinity.Dominant(); ok {
		reason = fmt.Sprintf("%s strength %.0f", dom, strength)
	}
	raw := strength * w.Elemental / 100
	return FactorResult{
		Name:   ComponentElemental,
		Score:  roundScore(raw),
		Raw:    raw,
		Weight: w.Elemental,
		Reason: reason,
	}
}

// WorkloadFactor deducts a fixed penalty per active task from the budget.
func WorkloadFactor(w WeightSet, m Member) FactorResult {
	active := m.ActiveTasks
	if active < 0 {
		active = 0
	}
	raw := math.Max(0, w.Workload-w.WorkloadPenalty*float64(active))
	return FactorResult{
		Name:   ComponentWorkload,
		Score:  roundScore(raw),
		Raw:    raw,
		Weight: w.Workload,
		Reason: fmt.Sprintf("%d active tasks", active),
	}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// roundScore rounds half away from zero and bounds the result to [0,100].
func roundScore(v float64) int {
	return int(math.Round(clamp(v, 0, 100)))
}
