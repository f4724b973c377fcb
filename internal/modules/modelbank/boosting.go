package modelbank

import (
	"math"
	"math/rand"
)

// Family selects the tree growth strategy.
type Family string

const (
	FamilyDepthwise Family = "depthwise_gbt"
	FamilyLeafwise  Family = "leafwise_gbt"
	FamilySymmetric Family = "symmetric_gbt"
	FamilyForest    Family = "random_forest"
)

// Families lists every model family in training order.
var Families = []Family{FamilyDepthwise, FamilyLeafwise, FamilySymmetric, FamilyForest}

// Objective selects the loss.
type Objective string

const (
	ObjectiveSquared Objective = "squared_error"
	ObjectivePoisson Objective = "poisson"
)

// ObjectiveFor picks the loss for a target stat: low-count stats train under
// Poisson, the rest under squared error.
func ObjectiveFor(target string) Objective {
	switch target {
	case "blocks", "steals":
		return ObjectivePoisson
	}
	return ObjectiveSquared
}

// Params are the tree-ensemble hyperparameters.
type Params struct {
	Trees           int     `json:"n_estimators" msgpack:"trees"`
	MaxDepth        int     `json:"max_depth" msgpack:"max_depth"`
	MaxLeaves       int     `json:"num_leaves" msgpack:"max_leaves"`
	LearningRate    float64 `json:"learning_rate" msgpack:"learning_rate"`
	Subsample       float64 `json:"subsample" msgpack:"subsample"`
	ColSampleByTree float64 `json:"colsample_bytree" msgpack:"colsample_bytree"`
	MinSamplesLeaf  int     `json:"min_samples_leaf" msgpack:"min_samples_leaf"`
	Lambda          float64 `json:"reg_lambda" msgpack:"lambda"`
	MinSplitGain    float64 `json:"min_split_gain" msgpack:"min_split_gain"`
	Seed            int64   `json:"random_state" msgpack:"seed"`
}

// DefaultParams returns the baseline hyperparameters shared by every family.
func DefaultParams() Params {
	return Params{
		Trees:           100,
		MaxDepth:        6,
		MaxLeaves:       31,
		LearningRate:    0.1,
		Subsample:       0.8,
		ColSampleByTree: 0.8,
		MinSamplesLeaf:  5,
		Lambda:          1.0,
		Seed:            42,
	}
}

// Model is a trained tree ensemble.
type Model struct {
	Family       Family    `msgpack:"family"`
	Objective    Objective `msgpack:"objective"`
	BaseScore    float64   `msgpack:"base_score"`
	LearningRate float64   `msgpack:"learning_rate"`
	Trees        []*Node   `msgpack:"trees"`

	// FeatureGain is split gain summed per feature index across all trees.
	FeatureGain map[int]float64 `msgpack:"feature_gain"`
}

// Predict scores one row of scaled features.
func (m *Model) Predict(x []float64) float64 {
	if m.Family == FamilyForest {
		var sum float64
		for _, t := range m.Trees {
			sum += t.predict(x)
		}
		if len(m.Trees) == 0 {
			return m.BaseScore
		}
		return sum / float64(len(m.Trees))
	}

	score := m.BaseScore
	for _, t := range m.Trees {
		score += m.LearningRate * t.predict(x)
	}
	if m.Objective == ObjectivePoisson {
		return math.Exp(score)
	}
	return score
}

// Train fits one model family on a scaled training matrix.
func Train(family Family, objective Objective, x [][]float64, y []float64, params Params) *Model {
	if family == FamilyForest {
		return trainForest(objective, x, y, params)
	}
	return trainBoosted(family, objective, x, y, params)
}

func trainBoosted(family Family, objective Objective, x [][]float64, y []float64, params Params) *Model {
	m := &Model{
		Family:       family,
		Objective:    objective,
		LearningRate: params.LearningRate,
		FeatureGain:  make(map[int]float64),
	}
	m.BaseScore = baseScore(objective, y)

	score := make([]float64, len(y))
	for i := range score {
		score[i] = m.BaseScore
	}
	grad := make([]float64, len(y))
	hess := make([]float64, len(y))
	rng := rand.New(rand.NewSource(params.Seed))

	for t := 0; t < params.Trees; t++ {
		computeGradients(objective, score, y, grad, hess)

		idx := sampleRows(len(y), params.Subsample, rng)
		builder := newTreeBuilder(x, grad, hess, params, rng)

		var root *Node
		switch family {
		case FamilyLeafwise:
			root = builder.buildLeafwise(idx)
		case FamilySymmetric:
			root = builder.buildSymmetric(idx)
		default:
			root = builder.buildDepthwise(idx, 0)
		}
		m.Trees = append(m.Trees, root)
		root.collectGain(m.FeatureGain, builder.nodeGains)

		for i := range score {
			score[i] += params.LearningRate * root.predict(x[i])
		}
	}
	return m
}

// trainForest bags full-depth trees against the raw targets. With unit
// hessians and gradients set to the negated target, the shared leaf formula
// reduces to the in-leaf target mean.
func trainForest(objective Objective, x [][]float64, y []float64, params Params) *Model {
	m := &Model{
		Family:      FamilyForest,
		Objective:   objective,
		FeatureGain: make(map[int]float64),
	}

	grad := make([]float64, len(y))
	hess := make([]float64, len(y))
	for i, v := range y {
		grad[i] = -v
		hess[i] = 1
	}

	rng := rand.New(rand.NewSource(params.Seed))
	forestParams := params
	forestParams.Lambda = 0

	for t := 0; t < params.Trees; t++ {
		idx := bootstrapRows(len(y), params.Subsample, rng)
		builder := newTreeBuilder(x, grad, hess, forestParams, rng)
		root := builder.buildDepthwise(idx, 0)
		m.Trees = append(m.Trees, root)
		root.collectGain(m.FeatureGain, builder.nodeGains)
	}
	return m
}

func baseScore(objective Objective, y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	mean := 0.0
	if len(y) > 0 {
		mean = sum / float64(len(y))
	}
	if objective == ObjectivePoisson {
		if mean <= 0 {
			return 0
		}
		return math.Log(mean)
	}
	return mean
}

func computeGradients(objective Objective, score, y, grad, hess []float64) {
	if objective == ObjectivePoisson {
		for i := range y {
			e := math.Exp(score[i])
			grad[i] = e - y[i]
			hess[i] = e
		}
		return
	}
	for i := range y {
		grad[i] = score[i] - y[i]
		hess[i] = 1
	}
}

// sampleRows draws a subsample without replacement.
func sampleRows(n int, fraction float64, rng *rand.Rand) []int {
	k := int(float64(n) * fraction)
	if k < 1 {
		k = n
	}
	idx := rng.Perm(n)[:k]
	return idx
}

// bootstrapRows draws with replacement, forest-style.
func bootstrapRows(n int, fraction float64, rng *rand.Rand) []int {
	k := int(float64(n) * fraction)
	if k < 1 {
		k = n
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}
