package ml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leafArtifact builds a one-leaf model whose probabilities are fixed by
// the class counts, so threshold behavior can be tested exactly.
func leafArtifact(kind Kind, counts [2]int) *Artifact {
	names := ApprovalFeatures
	if kind == KindNoShow {
		names = NoShowFeatures
	}
	tree := &DecisionTree{
		MaxDepth:        5,
		MinSamplesSplit: 2,
		NumFeatures:     len(names),
		Nodes: []TreeNode{
			{Feature: leafMarker, Left: leafMarker, Right: leafMarker, ClassCounts: counts},
		},
	}
	return &Artifact{
		Kind:         kind,
		Version:      "test",
		FeatureNames: names,
		TrainedAt:    time.Now(),
		Tree:         tree,
		Samples:      counts[0] + counts[1],
	}
}

func saveLeafArtifact(t *testing.T, dir string, kind Kind, counts [2]int) {
	t.Helper()
	path, err := ArtifactPath(dir, kind)
	require.NoError(t, err)
	require.NoError(t, leafArtifact(kind, counts).Save(path))
}

func TestPredictApprovalAutoApproveGate(t *testing.T) {
	cases := []struct {
		name        string
		counts      [2]int
		prediction  string
		confidence  float64
		autoApprove bool
	}{
		{"at threshold", [2]int{30, 70}, "approve", 0.70, true},
		{"just under threshold", [2]int{31, 69}, "approve", 0.69, false},
		{"clear approve", [2]int{5, 95}, "approve", 0.95, true},
		{"manual review", [2]int{80, 20}, "manual_review", 0.80, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			saveLeafArtifact(t, dir, KindApproval, tc.counts)

			res, err := NewPredictor(dir).PredictApproval(Input{})
			require.NoError(t, err)

			assert.Equal(t, tc.prediction, res.Prediction)
			assert.InDelta(t, tc.confidence, res.Confidence, 1e-9)
			assert.Equal(t, tc.autoApprove, res.ShouldAutoApprove)
			assert.Equal(t, "test", res.ModelVersion)
		})
	}
}

func TestPredictNoShowRiskLevels(t *testing.T) {
	cases := []struct {
		name     string
		counts   [2]int // [no-show, attended]
		noShow   float64
		risk     string
		reminder bool
	}{
		{"high at boundary", [2]int{70, 30}, 0.70, "high", true},
		{"medium at boundary", [2]int{40, 60}, 0.40, "medium", false},
		{"medium above reminder cutoff", [2]int{61, 39}, 0.61, "medium", true},
		{"reminder cutoff is strict", [2]int{60, 40}, 0.60, "medium", false},
		{"low", [2]int{39, 61}, 0.39, "low", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			saveLeafArtifact(t, dir, KindNoShow, tc.counts)

			res, err := NewPredictor(dir).PredictNoShow(Input{})
			require.NoError(t, err)

			assert.InDelta(t, tc.noShow, res.NoShowProb, 1e-9)
			assert.Equal(t, tc.risk, res.RiskLevel)
			assert.Equal(t, tc.reminder, res.SendExtraReminder)
		})
	}
}

func TestPredictMissingModel(t *testing.T) {
	p := NewPredictor(t.TempDir())

	_, err := p.PredictApproval(Input{})
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = p.PredictNoShow(Input{})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestInputDefaults(t *testing.T) {
	got := Input{}.vector(ApprovalFeatures)
	want := []float64{10, 1, 7, 2, 0.5, 0.5, 0, 0}
	assert.Equal(t, want, got)

	hour := 15.0
	weekend := 1.0
	got = Input{HourOfDay: &hour, IsWeekend: &weekend}.vector(ApprovalFeatures)
	assert.Equal(t, 15.0, got[0])
	assert.Equal(t, 1.0, got[7])
	assert.Equal(t, 7.0, got[2], "unset fields keep their defaults")
}

func TestRiskLevelTable(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.95, "high"},
		{0.70, "high"},
		{0.69, "medium"},
		{0.40, "medium"},
		{0.39, "low"},
		{0.0, "low"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RiskLevel(tc.p), "p=%v", tc.p)
	}
}
