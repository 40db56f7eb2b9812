package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Strategy selects which components contribute to a match total.
type Strategy string

const (
	StrategySkill     Strategy = "skill"
	StrategyElemental Strategy = "elemental"
	StrategyWorkload  Strategy = "workload"
	StrategyHybrid    Strategy = "hybrid"
)

var (
	// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
	ErrUnknownStrategy = errors.New("unknown matching strategy")
	// ErrNoEligibleMember is returned by AutoAssign when the pool is empty.
	ErrNoEligibleMember = errors.New("no eligible member")
)

// ParseStrategy maps a caller-supplied name to a Strategy. The empty string
// selects hybrid; "wuxing" and "load" are accepted as older aliases.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hybrid":
		return StrategyHybrid, nil
	case "skill":
		return StrategySkill, nil
	case "elemental", "wuxing":
		return StrategyElemental, nil
	case "workload", "load":
		return StrategyWorkload, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (s Strategy) enables(component string) bool {
	switch s {
	case StrategySkill:
		return component == ComponentSkill
	case StrategyElemental:
		return component == ComponentElemental
	case StrategyWorkload:
		return component == ComponentWorkload
	}
	return true
}

// MatchResult is one candidate's score against a task.
type MatchResult struct {
	MemberID   string         `json:"member_id"`
	MemberName string         `json:"member_name,omitempty"`
	TotalScore int            `json:"total_score"`
	Breakdown  []FactorResult `json:"breakdown"`
}

// Component returns the named breakdown entry, if the strategy enabled it.
func (r MatchResult) Component(name string) (FactorResult, bool) {
	for _, f := range r.Breakdown {
		if f.Name == name {
			return f, true
		}
	}
	return FactorResult{}, false
}

// Ranking is the ordered outcome of scoring a candidate pool.
type Ranking struct {
	TaskID       string        `json:"task_id"`
	Strategy     Strategy      `json:"strategy"`
	Results      []MatchResult `json:"results"`
	NoCandidates bool          `json:"no_candidates"`
}

// Best returns the top-ranked result.
func (r Ranking) Best() (MatchResult, bool) {
	if len(r.Results) == 0 {
		return MatchResult{}, false
	}
	return r.Results[0], true
}

// Decision is the outcome of an automatic assignment.
type Decision struct {
	Member  MatchResult `json:"member"`
	Ranking Ranking     `json:"ranking"`
}

// Scorer ranks members against tasks. It holds only configuration and is
// safe for concurrent use.
type Scorer struct {
	weights WeightSet
	match   SkillMatcher
	logger  *slog.Logger
}

// NewScorer creates a Scorer. exactSkills switches skill matching from
// substring containment to exact case-insensitive equality.
func NewScorer(weights WeightSet, exactSkills bool, logger *slog.Logger) *Scorer {
	match := ContainsMatch
	if exactSkills {
		match = ExactMatch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{weights: weights, match: match, logger: logger}
}

// Weights returns the scorer's component budgets.
func (s *Scorer) Weights() WeightSet { return s.weights }

// ScoreCandidate computes one member's result for the task under strategy.
func (s *Scorer) ScoreCandidate(task Task, m Member, strategy Strategy) MatchResult {
	result := MatchResult{MemberID: m.ID, MemberName: m.Name}

	if strategy.enables(ComponentSkill) {
		result.Breakdown = append(result.Breakdown, SkillFactor(s.weights, s.match, task, m))
	}
	if strategy.enables(ComponentElemental) {
		result.Breakdown = append(result.Breakdown, ElementalFactor(s.weights, task, m))
	}
	if strategy.enables(ComponentWorkload) {
		result.Breakdown = append(result.Breakdown, WorkloadFactor(s.weights, m))
	}

	// Components are summed unrounded; only the total is rounded.
	var total float64
	for _, f := range result.Breakdown {
		total += f.Raw
	}
	result.TotalScore = roundScore(total)
	return result
}

// Rank scores every candidate and orders them by total descending. Equal
// totals keep input order. An empty pool yields a NoCandidates ranking.
func (s *Scorer) Rank(task Task, candidates []Member, strategy Strategy) Ranking {
	if strategy == "" {
		strategy = StrategyHybrid
	}
	ranking := Ranking{TaskID: task.ID, Strategy: strategy}
	if len(candidates) == 0 {
		ranking.NoCandidates = true
		return ranking
	}

	results := make([]MatchResult, 0, len(candidates))
	for _, m := range candidates {
		results = append(results, s.ScoreCandidate(task, m, strategy))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	ranking.Results = results

	s.logger.Debug("ranked candidates",
		"task_id", task.ID,
		"strategy", strategy,
		"candidates", len(candidates),
		"best", results[0].MemberID,
		"best_score", results[0].TotalScore,
	)
	return ranking
}

// AutoAssign picks the top hybrid-ranked member for the task.
func (s *Scorer) AutoAssign(task Task, candidates []Member) (Decision, error) {
	ranking := s.Rank(task, candidates, StrategyHybrid)
	best, ok := ranking.Best()
	if !ok {
		return Decision{Ranking: ranking}, ErrNoEligibleMember
	}
	return Decision{Member: best, Ranking: ranking}, nil
}
