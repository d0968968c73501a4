// Package ml contains the two booking classifiers, their training
// routines, artifact persistence, and the serving-time predictor.
//
// Training follows one pattern for both models: filter the feature table
// to rows with a resolved label, derive the binary target, split into
// train/holdout under the small-sample policy, fit, evaluate, persist.
// The policy is a deliberate robustness contract: the trainer always
// emits a usable artifact, degrading to diagnostic evaluation or a
// synthetic baseline rather than blocking the pipeline.
package ml

import (
	"fmt"
	"time"

	"bookingml/internal/dataset"

	"github.com/rs/zerolog/log"
)

// warnSampleCount is the row count under which accuracy is unlikely to
// mean much; training proceeds with a visible warning.
const warnSampleCount = 10

var (
	approvalLabels = [2]string{"Denied", "Approved"}
	noShowLabels   = [2]string{"No-Show", "Attended"}
)

// TrainApproval fits the auto-approval decision tree on rows whose
// status carries a resolved ground truth (approved or denied; pending
// and cancelled rows are excluded). Returns the unsaved artifact.
func TrainApproval(records []dataset.BookingRecord) (*Artifact, error) {
	var filtered []dataset.BookingRecord
	var y []int
	for _, r := range records {
		switch r.Status {
		case "approved":
			filtered = append(filtered, r)
			y = append(y, 1)
		case "denied":
			filtered = append(filtered, r)
			y = append(y, 0)
		}
	}

	if len(filtered) == 0 {
		return nil, fmt.Errorf("train approval: no approved or denied rows to learn from")
	}
	if len(filtered) < warnSampleCount {
		log.Warn().Int("rows", len(filtered)).Msg("few labeled approval rows, model may not be accurate")
	}

	X, err := featureMatrix(filtered, ApprovalFeatures)
	if err != nil {
		return nil, fmt.Errorf("train approval: %w", err)
	}

	tree := NewDecisionTree(5, 2)
	artifact, err := fit(tree.Fit, tree.PredictProba, X, y, approvalLabels)
	if err != nil {
		return nil, fmt.Errorf("train approval: %w", err)
	}

	artifact.Kind = KindApproval
	artifact.FeatureNames = ApprovalFeatures
	artifact.Tree = tree
	artifact.Importances = importanceMap(ApprovalFeatures, tree.FeatureImportances())

	logTraining(artifact)
	return artifact, nil
}

// TrainNoShow fits the attendance classifier on rows with an observed
// outcome (completed, approved or cancelled). With zero such rows it
// falls back to a fixed synthetic baseline so the pipeline still
// produces a scoring model; the artifact is flagged accordingly.
func TrainNoShow(records []dataset.BookingRecord) (*Artifact, error) {
	var filtered []dataset.BookingRecord
	var y []int
	for _, r := range records {
		switch r.Status {
		case "completed", "approved", "cancelled":
			filtered = append(filtered, r)
			y = append(y, r.AttendanceSuccess)
		}
	}

	synthetic := false
	var X [][]float64
	var err error

	if len(filtered) == 0 {
		log.Warn().Msg("no rows with attendance outcomes, training baseline no-show model on synthetic data")
		X, y = syntheticNoShowData()
		synthetic = true
	} else {
		if len(filtered) < warnSampleCount {
			log.Warn().Int("rows", len(filtered)).Msg("few labeled attendance rows, no-show model may not be accurate")
		}
		X, err = featureMatrix(filtered, NoShowFeatures)
		if err != nil {
			return nil, fmt.Errorf("train noshow: %w", err)
		}
	}

	lr := NewLogisticRegression()
	artifact, err := fit(lr.Fit, lr.PredictProba, X, y, noShowLabels)
	if err != nil {
		return nil, fmt.Errorf("train noshow: %w", err)
	}

	artifact.Kind = KindNoShow
	artifact.FeatureNames = NoShowFeatures
	artifact.Logistic = lr
	artifact.Synthetic = synthetic

	logTraining(artifact)
	return artifact, nil
}

// fit runs the shared split/fit/evaluate steps and assembles the
// artifact skeleton. Model-specific fields are filled by the caller.
func fit(
	fitFn func([][]float64, []int) error,
	probaFn func([]float64) ([2]float64, error),
	X [][]float64,
	y []int,
	labels [2]string,
) (*Artifact, error) {
	trainIdx, holdoutIdx := splitHoldout(y)
	noHoldout := len(y) < minSplitRows
	if noHoldout {
		log.Warn().Int("rows", len(y)).Msg("using all rows for training due to small sample size, evaluation is diagnostic only")
	}

	trainX, trainY := subset(X, y, trainIdx)
	if err := fitFn(trainX, trainY); err != nil {
		return nil, err
	}

	holdX, holdY := subset(X, y, holdoutIdx)
	predicted := make([]int, len(holdX))
	for i, row := range holdX {
		p, err := probaFn(row)
		if err != nil {
			return nil, err
		}
		if p[1] >= p[0] {
			predicted[i] = 1
		}
	}

	ev := evaluate(holdY, predicted, labels)
	ev.Diagnostic = noHoldout

	now := time.Now()
	return &Artifact{
		Version:    now.Format("20060102-150405"),
		TrainedAt:  now,
		Samples:    len(y),
		NoHoldout:  noHoldout,
		Evaluation: ev,
	}, nil
}

// syntheticNoShowData is the fixed five-row illustrative dataset used
// when no labeled attendance rows exist at all. Rows span a spread of
// hours, weekdays, lead times and completion rates with a mixed label,
// enough for a weak but usable prior.
func syntheticNoShowData() ([][]float64, []int) {
	// columns follow NoShowFeatures order
	X := [][]float64{
		{9, 1, 7, 2, 0.90, 0, 1},
		{10, 2, 5, 3, 0.80, 0, 2},
		{14, 3, 3, 1, 0.70, 0, 3},
		{15, 4, 1, 2, 0.60, 0, 1},
		{16, 5, 14, 4, 0.95, 1, 2},
	}
	y := []int{1, 1, 0, 0, 1}
	return X, y
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}

func importanceMap(names []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}

func logTraining(a *Artifact) {
	ev := a.Evaluation
	event := log.Info().
		Str("model", string(a.Kind)).
		Str("version", a.Version).
		Int("samples", a.Samples).
		Float64("accuracy", ev.Accuracy).
		Int("holdout_rows", ev.HoldoutRows).
		Bool("diagnostic", ev.Diagnostic).
		Bool("synthetic", a.Synthetic)
	for _, c := range ev.PerClass {
		event = event.
			Float64(c.Label+"_precision", c.Precision).
			Float64(c.Label+"_recall", c.Recall).
			Float64(c.Label+"_f1", c.F1)
	}
	event.Msg("model trained")

	for name, imp := range a.Importances {
		log.Debug().Str("feature", name).Float64("importance", imp).Msg("feature importance")
	}
}
