package modelbank

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Artifact is one trained model plus everything serving needs to reproduce
// training-time inputs: the feature names in training order, the fitted
// scaler, and the validation error used for ensemble bookkeeping.
type Artifact struct {
	SchemaVersion string             `msgpack:"schema_version"`
	Family        Family             `msgpack:"family"`
	Target        string             `msgpack:"target"`
	FeatureNames  []string           `msgpack:"feature_names"`
	Scaler        *Scaler            `msgpack:"scaler"`
	Model         *Model             `msgpack:"model"`
	MAE           float64            `msgpack:"mae"`
	Importance    map[string]float64 `msgpack:"importance"`
}

// artifactFileName is <family>_<target>.msgpack.
func artifactFileName(family Family, target string) string {
	return fmt.Sprintf("%s_%s.msgpack", family, target)
}

// SaveArtifact writes one artifact into dir.
func SaveArtifact(dir string, a *Artifact) error {
	data, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}
	path := filepath.Join(dir, artifactFileName(a.Family, a.Target))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads one artifact, returning nil without error when the
// family/target pair has not been trained. An absent model is a normal
// state, not a failure.
func LoadArtifact(dir string, family Family, target string) (*Artifact, error) {
	path := filepath.Join(dir, artifactFileName(family, target))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var a Artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", path, err)
	}
	return &a, nil
}

// Bank holds the loaded model artifacts for serving.
type Bank struct {
	dir       string
	artifacts map[string]*Artifact // family/target
	log       zerolog.Logger
}

// NewBank creates an empty bank rooted at a models directory.
func NewBank(dir string, log zerolog.Logger) *Bank {
	return &Bank{
		dir:       dir,
		artifacts: make(map[string]*Artifact),
		log:       log.With().Str("component", "model_bank").Logger(),
	}
}

// Load reads every available artifact for the given targets. Missing
// artifacts are skipped; corrupt ones fail the load.
func (b *Bank) Load(targets []string) error {
	loaded := 0
	for _, family := range Families {
		for _, target := range targets {
			a, err := LoadArtifact(b.dir, family, target)
			if err != nil {
				return err
			}
			if a == nil {
				continue
			}
			b.artifacts[bankKey(family, target)] = a
			loaded++
		}
	}
	b.log.Info().Int("models", loaded).Str("dir", b.dir).Msg("Model bank loaded")
	return nil
}

// Put registers a freshly trained artifact.
func (b *Bank) Put(a *Artifact) {
	b.artifacts[bankKey(a.Family, a.Target)] = a
}

// Get returns the artifact for a family/target pair, or nil when untrained.
func (b *Bank) Get(family Family, target string) *Artifact {
	return b.artifacts[bankKey(family, target)]
}

// MAE returns validation error per family/target for the loaded artifacts.
func (b *Bank) MAE() map[string]float64 {
	out := make(map[string]float64, len(b.artifacts))
	for key, a := range b.artifacts {
		out[key] = a.MAE
	}
	return out
}

func bankKey(family Family, target string) string {
	return string(family) + "/" + target
}
