package features

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// MeansFileName is the league means artifact written next to trained models.
const MeansFileName = "league_means.msgpack"

// Means carries per-column league averages captured at training time. The
// online path uses them as fallbacks, so serving sees the same neutral values
// training saw.
type Means struct {
	SchemaVersion string             `msgpack:"schema_version"`
	Values        map[string]float64 `msgpack:"values"`
}

// ComputeMeans derives fallback values from a training table whose columns
// follow the schema order. Flags and trends get a neutral 0 regardless of the
// observed average; everything else gets the training mean.
func ComputeMeans(rows [][]float64) *Means {
	m := &Means{
		SchemaVersion: SchemaVersion,
		Values:        make(map[string]float64, len(schema)),
	}
	for i, col := range schema {
		switch col.Kind {
		case KindFlag, KindTrend:
			m.Values[col.Name] = 0
		default:
			var sum float64
			for _, row := range rows {
				sum += row[i]
			}
			if len(rows) > 0 {
				m.Values[col.Name] = sum / float64(len(rows))
			} else {
				m.Values[col.Name] = 0
			}
		}
	}
	return m
}

// Value returns the fallback for a column, 0 when the column is unknown.
func (m *Means) Value(name string) float64 {
	return m.Values[name]
}

// Save writes the means artifact into dir.
func (m *Means) Save(dir string) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode league means: %w", err)
	}
	path := filepath.Join(dir, MeansFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write league means: %w", err)
	}
	return nil
}

// LoadMeans reads the means artifact from dir.
func LoadMeans(dir string) (*Means, error) {
	data, err := os.ReadFile(filepath.Join(dir, MeansFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read league means: %w", err)
	}
	var m Means
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode league means: %w", err)
	}
	if m.Values == nil {
		m.Values = make(map[string]float64)
	}
	return &m, nil
}
