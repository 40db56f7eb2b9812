package scoring

import (
	"fmt"
	"math"
	"sort"
)

// IdealDistribution is the target share (percent) of active work per element.
var IdealDistribution = Profile{Fire: 15, Metal: 7, Wood: 40, Water: 35, Earth: 3}

const balanceTolerance = 10.0

// BalanceReport compares the elemental mix of active work with the ideal.
type BalanceReport struct {
	Counts      map[string]int     `json:"current_distribution"`
	Percentages map[string]int     `json:"current_percentages"`
	Ideal       map[string]float64 `json:"ideal_distribution"`
	Deviations  map[string]int     `json:"deviations"`
	Balanced    bool               `json:"is_balanced"`
	Warnings    []string           `json:"warnings"`
}

// CheckBalance tallies the dominant element of each affinity (tasks without
// a requirement are skipped) and flags elements more than ten points away
// from the ideal share.
func CheckBalance(affinities []*Profile) BalanceReport {
	report := BalanceReport{
		Counts:      make(map[string]int, len(Elements)),
		Percentages: make(map[string]int, len(Elements)),
		Ideal:       IdealDistribution.AsMap(),
		Deviations:  make(map[string]int, len(Elements)),
		Balanced:    true,
		Warnings:    []string{},
	}
	for _, e := range Elements {
		report.Counts[string(e)] = 0
	}

	total := 0
	for _, a := range affinities {
		if a == nil {
			continue
		}
		if dom, ok := a.Dominant(); ok {
			report.Counts[string(dom)]++
			total++
		}
	}

	for _, e := range Elements {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(report.Counts[string(e)]) / float64(total) * 100))
		}
		report.Percentages[string(e)] = pct
		dev := pct - int(IdealDistribution.Get(e))
		report.Deviations[string(e)] = dev
		if math.Abs(float64(dev)) > balanceTolerance {
			report.Balanced = false
			if dev > 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s over-represented (+%d%%)", e, dev))
			} else {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s under-represented (%d%%)", e, dev))
			}
		}
	}
	return report
}

// TeamProfile averages the elemental profiles of members. Unprofiled members
// count as all-zero.
func TeamProfile(members []Member) Profile {
	var avg Profile
	if len(members) == 0 {
		return avg
	}
	n := float64(len(members))
	for _, m := range members {
		p := profileOrZero(m.Elements)
		for _, e := range Elements {
			avg = avg.With(e, avg.Get(e)+p.Get(e)/n)
		}
	}
	return avg
}

// GapFit scores how well a candidate fills the team's weakest elements.
// The weakest element weighs 5, the strongest 1.
func GapFit(candidate, team Profile) float64 {
	order := make([]Element, len(Elements))
	copy(order, Elements)
	sort.SliceStable(order, func(i, j int) bool {
		return team.Get(order[i]) < team.Get(order[j])
	})

	score := 0.0
	for i, e := range order {
		weight := float64(len(order) - i)
		cv, tv := candidate.Get(e), team.Get(e)
		switch {
		case tv < 50 && cv > 60:
			score += weight * 8
		case cv > tv:
			score += weight * 3
		}
	}
	return math.Min(score, 100)
}
