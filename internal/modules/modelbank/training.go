package modelbank

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hoopsight/hoopsight/internal/modules/features"
)

// Report is one family/target training outcome.
type Report struct {
	Family Family
	Target string
	MAE    float64
	RMSE   float64
	Folds  int
}

// Trainer runs cross-validated training for every family and target and
// persists the winning artifacts.
type Trainer struct {
	modelsDir string
	tuning    *Tuning
	log       zerolog.Logger
}

// NewTrainer creates a model trainer
func NewTrainer(modelsDir string, tuning *Tuning, log zerolog.Logger) *Trainer {
	return &Trainer{
		modelsDir: modelsDir,
		tuning:    tuning,
		log:       log.With().Str("component", "trainer").Logger(),
	}
}

// fold is one chronological train/test split over row indices.
type fold struct {
	train []int
	test  []int
}

// TrainAll trains every family on every target from a featurized history,
// writes artifacts and league means to the models directory, and returns the
// per-model validation reports.
func (t *Trainer) TrainAll(rows []features.TrainingRow, means *features.Means) ([]Report, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows")
	}

	if err := means.Save(t.modelsDir); err != nil {
		return nil, err
	}

	x := make([][]float64, len(rows))
	for i, row := range rows {
		x[i] = row.Features
	}
	folds := seasonFolds(rows)
	featureNames := features.ColumnNames()

	var reports []Report
	for _, family := range Families {
		for _, target := range features.Stats {
			params := t.tuning.ParamsFor(family, target)
			objective := ObjectiveFor(target)

			y := make([]float64, len(rows))
			for i, row := range rows {
				y[i] = row.Targets.Value(target)
			}

			mae, rmse := crossValidate(family, objective, x, y, folds, params)

			scaler := FitScaler(x)
			model := Train(family, objective, scaler.TransformAll(x), y, params)

			artifact := &Artifact{
				SchemaVersion: features.SchemaVersion,
				Family:        family,
				Target:        target,
				FeatureNames:  featureNames,
				Scaler:        scaler,
				Model:         model,
				MAE:           mae,
				Importance:    importanceByName(model, featureNames),
			}
			if err := SaveArtifact(t.modelsDir, artifact); err != nil {
				return nil, err
			}

			t.log.Info().
				Str("family", string(family)).
				Str("target", target).
				Float64("mae", mae).
				Float64("rmse", rmse).
				Int("folds", len(folds)).
				Msg("Model trained")

			reports = append(reports, Report{
				Family: family,
				Target: target,
				MAE:    mae,
				RMSE:   rmse,
				Folds:  len(folds),
			})
		}
	}
	return reports, nil
}

func crossValidate(family Family, objective Objective, x [][]float64, y []float64, folds []fold, params Params) (mae, rmse float64) {
	var maeSum, rmseSum float64
	var counted int

	for _, f := range folds {
		if len(f.train) == 0 || len(f.test) == 0 {
			continue
		}
		trainX := subset(x, f.train)
		trainY := subsetY(y, f.train)

		scaler := FitScaler(trainX)
		model := Train(family, objective, scaler.TransformAll(trainX), trainY, params)

		var absSum, sqSum float64
		for _, i := range f.test {
			pred := model.Predict(scaler.Transform(x[i]))
			diff := pred - y[i]
			absSum += math.Abs(diff)
			sqSum += diff * diff
		}
		n := float64(len(f.test))
		maeSum += absSum / n
		rmseSum += math.Sqrt(sqSum / n)
		counted++
	}

	if counted == 0 {
		return 0, 0
	}
	return maeSum / float64(counted), rmseSum / float64(counted)
}

// seasonFolds splits chronologically by season: each season from the third
// onward is tested against a model trained on all earlier seasons. Histories
// spanning two seasons or fewer fall back to three expanding chronological
// splits.
func seasonFolds(rows []features.TrainingRow) []fold {
	seasonSet := make(map[string]struct{})
	for _, row := range rows {
		seasonSet[row.Season] = struct{}{}
	}
	seasons := make([]string, 0, len(seasonSet))
	for s := range seasonSet {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)

	if len(seasons) > 2 {
		var folds []fold
		for si := 2; si < len(seasons); si++ {
			earlier := make(map[string]struct{}, si)
			for _, s := range seasons[:si] {
				earlier[s] = struct{}{}
			}
			var f fold
			for i, row := range rows {
				if row.Season == seasons[si] {
					f.test = append(f.test, i)
				} else if _, ok := earlier[row.Season]; ok {
					f.train = append(f.train, i)
				}
			}
			folds = append(folds, f)
		}
		return folds
	}

	// Expanding chronological splits; rows arrive date-ordered from the
	// batch builder.
	n := len(rows)
	var folds []fold
	for k := 1; k <= 3; k++ {
		cut := n * k / 4
		end := n * (k + 1) / 4
		if cut == 0 || cut >= end {
			continue
		}
		f := fold{}
		for i := 0; i < cut; i++ {
			f.train = append(f.train, i)
		}
		for i := cut; i < end; i++ {
			f.test = append(f.test, i)
		}
		folds = append(folds, f)
	}
	return folds
}

func subset(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func subsetY(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func importanceByName(model *Model, names []string) map[string]float64 {
	out := make(map[string]float64)
	var total float64
	for _, gain := range model.FeatureGain {
		total += gain
	}
	if total == 0 {
		return out
	}
	for idx, gain := range model.FeatureGain {
		if idx >= 0 && idx < len(names) {
			out[names[idx]] = gain / total
		}
	}
	return out
}
