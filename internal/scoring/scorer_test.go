package scoring

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profilePtr(p Profile) *Profile { return &p }

func newTestScorer() *Scorer {
	return NewScorer(DefaultWeights(), false, discardLogger())
}

func TestDefaultWeightsValid(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
	if w.Sum() != 100 {
		t.Errorf("default weights sum to %f, expected 100", w.Sum())
	}

	bad := WeightSet{Skill: 50, Elemental: 30, Workload: 30}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for weights summing to 110")
	}
	neg := WeightSet{Skill: 110, Elemental: -10, Workload: 0}
	if err := neg.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", StrategyHybrid},
		{"hybrid", StrategyHybrid},
		{"SKILL", StrategySkill},
		{"elemental", StrategyElemental},
		{"wuxing", StrategyElemental},
		{"workload", StrategyWorkload},
		{"load", StrategyWorkload},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := ParseStrategy("random"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestSkillFactor(t *testing.T) {
	w := DefaultWeights()

	t.Run("no requirements is neutral", func(t *testing.T) {
		for _, skills := range [][]string{nil, {"go"}, {"go", "rust", "design"}} {
			r := SkillFactor(w, ContainsMatch, Task{}, Member{Skills: skills})
			if r.Score != 20 {
				t.Errorf("skills %v: expected 20, got %d", skills, r.Score)
			}
			if !r.Neutral {
				t.Error("expected neutral=true")
			}
		}
	})

	t.Run("partial match", func(t *testing.T) {
		task := Task{RequiredSkills: []string{"python", "design", "ops"}}
		r := SkillFactor(w, ContainsMatch, task, Member{Skills: []string{"Python"}})
		if r.Score != 13 {
			t.Errorf("expected 13 (40/3 rounded), got %d", r.Score)
		}
		if !reflect.DeepEqual(r.Matched, []string{"python"}) {
			t.Errorf("unexpected matched skills %v", r.Matched)
		}
	})

	t.Run("substring containment both ways", func(t *testing.T) {
		task := Task{RequiredSkills: []string{"AI", "system architecture"}}
		r := SkillFactor(w, ContainsMatch, task, Member{Skills: []string{"ai development", "architecture"}})
		if r.Score != 40 {
			t.Errorf("expected 40, got %d", r.Score)
		}
	})

	t.Run("exact matching rejects substrings", func(t *testing.T) {
		task := Task{RequiredSkills: []string{"ai"}}
		r := SkillFactor(w, ExactMatch, task, Member{Skills: []string{"pain"}})
		if r.Score != 0 {
			t.Errorf("expected 0, got %d", r.Score)
		}
		r = SkillFactor(w, ContainsMatch, task, Member{Skills: []string{"pain"}})
		if r.Score != 40 {
			t.Errorf("containment should over-match, got %d", r.Score)
		}
	})
}

func TestElementalFactor(t *testing.T) {
	w := DefaultWeights()

	t.Run("legacy dominant attribute", func(t *testing.T) {
		task := Task{Affinity: LegacyAffinity(Fire)}
		m := Member{Elements: profilePtr(Profile{Fire: 80})}
		r := ElementalFactor(w, task, m)
		if r.Score != 24 {
			t.Errorf("expected 24, got %d", r.Score)
		}
		if r.Neutral {
			t.Error("expected neutral=false")
		}
	})

	t.Run("no requirement is neutral", func(t *testing.T) {
		r := ElementalFactor(w, Task{}, Member{Elements: profilePtr(Profile{Fire: 100})})
		if r.Score != 15 || !r.Neutral {
			t.Errorf("expected neutral 15, got %d (neutral=%v)", r.Score, r.Neutral)
		}
	})

	t.Run("unprofiled member is neutral", func(t *testing.T) {
		r := ElementalFactor(w, Task{Affinity: LegacyAffinity(Water)}, Member{})
		if r.Score != 15 || !r.Neutral {
			t.Errorf("expected neutral 15, got %d", r.Score)
		}
	})

	t.Run("zero vector is neutral", func(t *testing.T) {
		r := ElementalFactor(w, Task{Affinity: &Profile{}}, Member{Elements: profilePtr(Profile{Wood: 90})})
		if r.Score != 15 {
			t.Errorf("expected 15, got %d", r.Score)
		}
	})

	t.Run("full vector is weighted mean", func(t *testing.T) {
		task := Task{Affinity: &Profile{Wood: 50, Water: 50}}
		m := Member{Elements: profilePtr(Profile{Wood: 100, Water: 60})}
		r := ElementalFactor(w, task, m)
		if r.Score != 24 {
			t.Errorf("expected 24 (80*0.3), got %d", r.Score)
		}
	})
}

func TestWorkloadFactor(t *testing.T) {
	tests := []struct {
		active int
		want   int
	}{
		{0, 30},
		{1, 25},
		{3, 15},
		{5, 5},
		{6, 0},
		{12, 0},
		{-2, 30},
	}
	for _, tt := range tests {
		r := WorkloadFactor(DefaultWeights(), Member{ActiveTasks: tt.active})
		if r.Score != tt.want {
			t.Errorf("active=%d: got %d, want %d", tt.active, r.Score, tt.want)
		}
	}
}

func TestRankScenarioA(t *testing.T) {
	s := newTestScorer()
	task := Task{ID: "t1", RequiredSkills: []string{"python", "design"}}
	candidates := []Member{
		{ID: "m1", Skills: []string{"Python", "ai"}},
		{ID: "m2", Skills: []string{"Python", "Design"}},
	}

	ranking := s.Rank(task, candidates, StrategyHybrid)
	if ranking.NoCandidates {
		t.Fatal("unexpected NoCandidates")
	}
	if len(ranking.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranking.Results))
	}

	first, second := ranking.Results[0], ranking.Results[1]
	if first.MemberID != "m2" || first.TotalScore != 85 {
		t.Errorf("expected m2 with 85 first, got %s with %d", first.MemberID, first.TotalScore)
	}
	if second.MemberID != "m1" || second.TotalScore != 65 {
		t.Errorf("expected m1 with 65 second, got %s with %d", second.MemberID, second.TotalScore)
	}

	want := map[string]map[string]int{
		"m2": {ComponentSkill: 40, ComponentElemental: 15, ComponentWorkload: 30},
		"m1": {ComponentSkill: 20, ComponentElemental: 15, ComponentWorkload: 30},
	}
	for _, r := range ranking.Results {
		for name, score := range want[r.MemberID] {
			f, ok := r.Component(name)
			if !ok {
				t.Errorf("%s: missing component %s", r.MemberID, name)
				continue
			}
			if f.Score != score {
				t.Errorf("%s %s: got %d, want %d", r.MemberID, name, f.Score, score)
			}
		}
	}
}

func TestRankStrategyIsolation(t *testing.T) {
	s := newTestScorer()
	task := Task{RequiredSkills: []string{"go"}, Affinity: LegacyAffinity(Metal)}
	candidates := []Member{
		{ID: "a", Skills: []string{"go"}, Elements: profilePtr(Profile{Metal: 77}), ActiveTasks: 2},
	}

	tests := []struct {
		strategy Strategy
		want     []string
	}{
		{StrategySkill, []string{ComponentSkill}},
		{StrategyElemental, []string{ComponentElemental}},
		{StrategyWorkload, []string{ComponentWorkload}},
		{StrategyHybrid, []string{ComponentSkill, ComponentElemental, ComponentWorkload}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			r := s.Rank(task, candidates, tt.strategy).Results[0]
			var names []string
			var sum float64
			for _, f := range r.Breakdown {
				names = append(names, f.Name)
				sum += f.Raw
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("components %v, want %v", names, tt.want)
			}
			if want := int(math.Round(sum)); r.TotalScore != want {
				t.Errorf("total %d != rounded sum of components %d (%.3f)", r.TotalScore, want, sum)
			}
		})
	}

	// Disabling components lowers the achievable maximum rather than rescaling.
	skillOnly := s.Rank(task, candidates, StrategySkill).Results[0]
	if skillOnly.TotalScore != 40 {
		t.Errorf("expected skill-only total 40, got %d", skillOnly.TotalScore)
	}
}

func TestRankRoundsSummedComponents(t *testing.T) {
	s := newTestScorer()
	tests := []struct {
		name      string
		fire      float64
		active    int
		wantTotal int
		wantShown []int
	}{
		// 13.333 + 15.3 + 30 = 58.633
		{"fractions round up together", 51, 0, 59, []int{13, 15, 30}},
		// 13.333 + 14.4 + 25 = 52.733
		{"busy member", 48, 1, 53, []int{13, 14, 25}},
		// 13.333 + 24 + 30 = 67.333
		{"single fraction rounds down", 80, 0, 67, []int{13, 24, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{RequiredSkills: []string{"go", "rust", "sql"}, Affinity: LegacyAffinity(Fire)}
			m := Member{ID: "m", Skills: []string{"go"}, Elements: profilePtr(Profile{Fire: tt.fire}), ActiveTasks: tt.active}
			r := s.ScoreCandidate(task, m, StrategyHybrid)
			if r.TotalScore != tt.wantTotal {
				t.Errorf("total %d, want %d", r.TotalScore, tt.wantTotal)
			}
			var shown []int
			for _, f := range r.Breakdown {
				shown = append(shown, f.Score)
			}
			if !reflect.DeepEqual(shown, tt.wantShown) {
				t.Errorf("breakdown %v, want %v", shown, tt.wantShown)
			}
		})
	}
}

func TestRankNearTieUsesUnroundedTotal(t *testing.T) {
	s := newTestScorer()
	task := Task{RequiredSkills: []string{"go", "rust", "sql"}, Affinity: LegacyAffinity(Fire)}
	candidates := []Member{
		// 13.333 + 15.3 + 30 = 58.633; shown components add to 58.
		{ID: "first", Skills: []string{"go"}, Elements: profilePtr(Profile{Fire: 51})},
		// 26.667 + 1.95 + 30 = 58.617; shown components add to 59.
		{ID: "second", Skills: []string{"go", "rust"}, Elements: profilePtr(Profile{Fire: 6.5})},
	}
	r := s.Rank(task, candidates, StrategyHybrid)
	for _, res := range r.Results {
		if res.TotalScore != 59 {
			t.Errorf("%s: total %d, want 59", res.MemberID, res.TotalScore)
		}
	}
	if r.Results[0].MemberID != "first" {
		t.Errorf("equal totals should keep input order, got %s first", r.Results[0].MemberID)
	}
}

func TestRankTieBreakKeepsInputOrder(t *testing.T) {
	s := newTestScorer()
	candidates := []Member{
		{ID: "low", ActiveTasks: 4},
		{ID: "first"},
		{ID: "second"},
		{ID: "third"},
	}
	ranking := s.Rank(Task{}, candidates, StrategyHybrid)
	got := []string{}
	for _, r := range ranking.Results {
		got = append(got, r.MemberID)
	}
	want := []string{"first", "second", "third", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order %v, want %v", got, want)
	}
}

func TestRankDeterministic(t *testing.T) {
	s := newTestScorer()
	task := Task{ID: "t", RequiredSkills: []string{"go", "sql"}, Affinity: &Profile{Water: 30, Wood: 70}}
	candidates := []Member{
		{ID: "a", Skills: []string{"Go"}, Elements: profilePtr(Profile{Wood: 65, Water: 12}), ActiveTasks: 1},
		{ID: "b", Skills: []string{"sql", "golang"}, Elements: profilePtr(Profile{Water: 99}), ActiveTasks: 3},
		{ID: "c", Skills: nil, ActiveTasks: 0},
	}
	first := s.Rank(task, candidates, StrategyHybrid)
	for i := 0; i < 20; i++ {
		if again := s.Rank(task, candidates, StrategyHybrid); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestRankScoreBounds(t *testing.T) {
	s := newTestScorer()
	task := Task{RequiredSkills: []string{"x"}, Affinity: &Profile{Fire: 100, Earth: 100}}
	candidates := []Member{
		{ID: "max", Skills: []string{"x"}, Elements: profilePtr(Profile{Fire: 100, Earth: 100})},
		{ID: "overflow", Skills: []string{"x"}, Elements: profilePtr(Profile{Fire: 400, Earth: 250})},
		{ID: "negative", Elements: profilePtr(Profile{Fire: -50, Earth: -1}), ActiveTasks: 99},
	}
	for _, strategy := range []Strategy{StrategySkill, StrategyElemental, StrategyWorkload, StrategyHybrid} {
		for _, r := range s.Rank(task, candidates, strategy).Results {
			if r.TotalScore < 0 || r.TotalScore > 100 {
				t.Errorf("%s/%s total out of bounds: %d", strategy, r.MemberID, r.TotalScore)
			}
			for _, f := range r.Breakdown {
				if f.Score < 0 || f.Score > 100 {
					t.Errorf("%s/%s %s out of bounds: %d", strategy, r.MemberID, f.Name, f.Score)
				}
			}
		}
	}
}

func TestRankEmptyPool(t *testing.T) {
	s := newTestScorer()
	ranking := s.Rank(Task{ID: "t"}, nil, StrategyHybrid)
	if !ranking.NoCandidates {
		t.Error("expected NoCandidates sentinel")
	}
	if _, ok := ranking.Best(); ok {
		t.Error("expected no best result")
	}
}

func TestAutoAssign(t *testing.T) {
	s := newTestScorer()

	t.Run("picks top hybrid member", func(t *testing.T) {
		task := Task{ID: "t", RequiredSkills: []string{"python", "design"}}
		decision, err := s.AutoAssign(task, []Member{
			{ID: "m1", Skills: []string{"Python", "ai"}},
			{ID: "m2", Skills: []string{"Python", "Design"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Member.MemberID != "m2" {
			t.Errorf("expected m2, got %s", decision.Member.MemberID)
		}
		if len(decision.Ranking.Results) != 2 {
			t.Errorf("expected full ranking, got %d results", len(decision.Ranking.Results))
		}
		if decision.Ranking.Strategy != StrategyHybrid {
			t.Errorf("expected hybrid strategy, got %s", decision.Ranking.Strategy)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := s.AutoAssign(Task{ID: "t"}, nil)
		if !errors.Is(err, ErrNoEligibleMember) {
			t.Errorf("expected ErrNoEligibleMember, got %v", err)
		}
	})
}
