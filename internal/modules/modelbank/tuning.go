package modelbank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Policy marks which family/target pairs consult tuned hyperparameters.
// Tuning is selective: it is only worth the maintenance where validation has
// shown the defaults leave error on the table. Pairs not listed use defaults.
type Policy map[Family]map[string]bool

// Enabled reports whether a family/target pair uses tuned parameters.
func (p Policy) Enabled(family Family, target string) bool {
	return p[family][target]
}

// DefaultPolicy returns the pairs that opt into tuned parameters. Each call
// builds a fresh map so callers cannot mutate shared state.
func DefaultPolicy() Policy {
	return Policy{
		FamilyDepthwise: {
			"blocks": true,
			"steals": true,
		},
		FamilySymmetric: {
			"points":              true,
			"rebounds_total":      true,
			"assists":             true,
			"steals":              true,
			"blocks":              true,
			"turnovers":           true,
			"three_pointers_made": true,
		},
	}
}

// Tuning resolves hyperparameters, overlaying stored best-parameter files on
// the defaults for the pairs the policy opts in.
type Tuning struct {
	dir    string // best_params directory
	policy Policy
	log    zerolog.Logger
}

// NewTuning creates a tuning resolver
func NewTuning(dir string, log zerolog.Logger) *Tuning {
	return &Tuning{
		dir:    dir,
		policy: DefaultPolicy(),
		log:    log.With().Str("component", "tuning").Logger(),
	}
}

// ParamsFor returns the hyperparameters for one family/target pair.
func (t *Tuning) ParamsFor(family Family, target string) Params {
	params := DefaultParams()
	if t == nil || !t.policy.Enabled(family, target) {
		return params
	}

	path := filepath.Join(t.dir, fmt.Sprintf("%s_%s.json", family, target))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return params
	}
	if err != nil {
		t.log.Warn().Err(err).Str("path", path).Msg("Tuned params unreadable, using defaults")
		return params
	}

	var file struct {
		BestParams map[string]float64 `json:"best_params"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		t.log.Warn().Err(err).Str("path", path).Msg("Tuned params malformed, using defaults")
		return params
	}

	applyTuned(&params, file.BestParams)
	return params
}

func applyTuned(params *Params, tuned map[string]float64) {
	for key, v := range tuned {
		switch key {
		case "n_estimators":
			params.Trees = int(v)
		case "max_depth":
			params.MaxDepth = int(v)
		case "num_leaves":
			params.MaxLeaves = int(v)
		case "learning_rate":
			params.LearningRate = v
		case "subsample":
			params.Subsample = v
		case "colsample_bytree":
			params.ColSampleByTree = v
		case "min_samples_leaf":
			params.MinSamplesLeaf = int(v)
		case "reg_lambda":
			params.Lambda = v
		case "min_split_gain":
			params.MinSplitGain = v
		}
	}
}
