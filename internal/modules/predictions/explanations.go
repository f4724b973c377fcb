package predictions

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/hoopsight/hoopsight/internal/modules/features"
)

// explanationDepth is how many drivers are reported per stat.
const explanationDepth = 5

// FeatureImpact is one ranked driver behind a projected stat.
type FeatureImpact struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Impact  float64 `json:"impact"`
}

// explain ranks features for one stat by how far the player's value sits from
// the league mean, weighted by the model's learned importance.
func explain(vector *features.Vector, fallback func(string) float64,
	importance map[string]float64, means *features.Means) []FeatureImpact {

	impacts := make([]FeatureImpact, 0, len(importance))
	for name, weight := range importance {
		if weight <= 0 {
			continue
		}
		value, ok := vector.Value(name)
		if !ok {
			value = fallback(name)
		}
		impacts = append(impacts, FeatureImpact{
			Feature: name,
			Value:   value,
			Impact:  math.Abs(value-means.Value(name)) * weight,
		})
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].Impact != impacts[j].Impact {
			return impacts[i].Impact > impacts[j].Impact
		}
		return impacts[i].Feature < impacts[j].Feature
	})

	if len(impacts) > explanationDepth {
		impacts = impacts[:explanationDepth]
	}
	return impacts
}

// encodeExplanations serializes per-stat impact rankings for storage.
func encodeExplanations(byStat map[string][]FeatureImpact) string {
	if len(byStat) == 0 {
		return "{}"
	}
	data, err := json.Marshal(byStat)
	if err != nil {
		return "{}"
	}
	return string(data)
}
