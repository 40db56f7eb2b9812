package scoring

import (
	"fmt"
	"math"
)

// WeightSet defines the point budget of each match component.
// Budgets must sum to 100 (±0.001 tolerance).
type WeightSet struct {
	Skill     float64
	Elemental float64
	Workload  float64

	// WorkloadPenalty is the number of workload points each active task costs.
	WorkloadPenalty float64
}

// DefaultWeights returns the 40/30/30 hybrid distribution with a 5-point
// penalty per active task.
func DefaultWeights() WeightSet {
	return WeightSet{
		Skill:           40,
		Elemental:       30,
		Workload:        30,
		WorkloadPenalty: 5,
	}
}

// Sum returns the total of all component budgets.
func (w WeightSet) Sum() float64 {
	return w.Skill + w.Elemental + w.Workload
}

// Validate checks that budgets sum to 100 and none are negative.
func (w WeightSet) Validate() error {
	if math.Abs(w.Sum()-100) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 100", w.Sum())
	}
	for _, v := range []float64{w.Skill, w.Elemental, w.Workload, w.WorkloadPenalty} {
		if v < 0 {
			return fmt.Errorf("negative weight: %f", v)
		}
	}
	return nil
}

// Complement mixes the elemental and skill sub-scores of a partner pairing.
const (
	complementElementalWeight = 0.70
	complementSkillWeight     = 0.30
)
