package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Kind selects one of the two persisted models.
type Kind string

const (
	KindApproval Kind = "approval"
	KindNoShow   Kind = "noshow"
)

// Artifact file names inside the model directory. Training overwrites
// them in place; re-training supersedes, never mutates, a loaded model.
const (
	ApprovalArtifactFile = "decision_tree.json"
	NoShowArtifactFile   = "logistic_regression.json"
)

// ErrModelNotFound reports a missing artifact at prediction time. The
// caller surfaces it as a structured error result, not a crash.
var ErrModelNotFound = errors.New("model artifact not found")

// Artifact is a persisted fitted model: the classifier parameters plus
// the exact ordered feature names it was fit on, and enough training
// metadata to judge how much to trust it.
type Artifact struct {
	Kind         Kind      `json:"kind"`
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	TrainedAt    time.Time `json:"trained_at"`

	// exactly one of the two is set, matching Kind
	Tree     *DecisionTree       `json:"tree,omitempty"`
	Logistic *LogisticRegression `json:"logistic,omitempty"`

	// Samples is the labeled row count the model was fit on. Synthetic
	// marks the zero-data fallback model; NoHoldout marks the
	// under-five-rows path where evaluation is diagnostic only. Both
	// flag the artifact as baseline/low-confidence downstream.
	Samples   int  `json:"samples"`
	Synthetic bool `json:"synthetic"`
	NoHoldout bool `json:"no_holdout"`

	Evaluation  Evaluation         `json:"evaluation"`
	Importances map[string]float64 `json:"importances,omitempty"`
}

// Baseline reports whether the model should be treated as a
// low-confidence baseline rather than a data-fitted model.
func (a *Artifact) Baseline() bool {
	return a.Synthetic || a.NoHoldout
}

// PredictProba scores one feature vector with whichever classifier the
// artifact carries.
func (a *Artifact) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != len(a.FeatureNames) {
		return [2]float64{}, fmt.Errorf("expected %d features %v, got %d", len(a.FeatureNames), a.FeatureNames, len(x))
	}
	switch {
	case a.Tree != nil:
		return a.Tree.PredictProba(x)
	case a.Logistic != nil:
		return a.Logistic.PredictProba(x)
	default:
		return [2]float64{}, fmt.Errorf("artifact %s carries no model", a.Kind)
	}
}

// Save writes the artifact atomically (temp file, then rename) so a
// crashed training run cannot leave a truncated model behind.
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename artifact into place: %w", err)
	}
	return nil
}

// LoadArtifact reads a persisted model. A missing file maps to
// ErrModelNotFound so callers can distinguish "not trained yet" from a
// corrupt artifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if a.Tree == nil && a.Logistic == nil {
		return nil, fmt.Errorf("artifact %s carries no model parameters", path)
	}
	if len(a.FeatureNames) == 0 {
		return nil, fmt.Errorf("artifact %s carries no feature names", path)
	}
	return &a, nil
}

// ArtifactPath resolves the artifact file for a model kind inside the
// model directory.
func ArtifactPath(modelDir string, kind Kind) (string, error) {
	switch kind {
	case KindApproval:
		return filepath.Join(modelDir, ApprovalArtifactFile), nil
	case KindNoShow:
		return filepath.Join(modelDir, NoShowArtifactFile), nil
	default:
		return "", fmt.Errorf("invalid model type %q", kind)
	}
}
