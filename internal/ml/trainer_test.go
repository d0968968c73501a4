package ml

import (
	"path/filepath"
	"testing"

	"bookingml/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// approvalRecord builds a labeled row whose approval outcome tracks the
// user's historical approval rate, a rule both models can recover.
func approvalRecord(status string, approvalRate float64, hour int) dataset.BookingRecord {
	return dataset.BookingRecord{
		Status:             status,
		HourOfDay:          hour,
		DayOfWeek:          1 + hour%5,
		AdvanceBookingDays: 3,
		DurationHours:      2,
		UserApprovalRate:   approvalRate,
		UserCompletionRate: 0.5,
	}
}

func attendanceRecord(status string, attended int, completionRate float64, hour int) dataset.BookingRecord {
	return dataset.BookingRecord{
		Status:             status,
		AttendanceSuccess:  attended,
		HourOfDay:          hour,
		DayOfWeek:          1 + hour%5,
		AdvanceBookingDays: 3,
		DurationHours:      2,
		UserCompletionRate: completionRate,
	}
}

func TestTrainApprovalNoLabeledRows(t *testing.T) {
	records := []dataset.BookingRecord{
		approvalRecord("pending", 0.5, 9),
		approvalRecord("cancelled", 0.5, 10),
	}
	_, err := TrainApproval(records)
	assert.Error(t, err)
}

func TestTrainApprovalEndToEnd(t *testing.T) {
	var records []dataset.BookingRecord
	for i := 0; i < 12; i++ {
		records = append(records, approvalRecord("approved", 0.9, 9+i%8))
	}
	for i := 0; i < 8; i++ {
		records = append(records, approvalRecord("denied", 0.1, 9+i%8))
	}
	// rows without a resolved label are ignored, not an error
	records = append(records, approvalRecord("pending", 0.5, 12))

	artifact, err := TrainApproval(records)
	require.NoError(t, err)

	assert.Equal(t, KindApproval, artifact.Kind)
	assert.Equal(t, ApprovalFeatures, artifact.FeatureNames)
	assert.Equal(t, 20, artifact.Samples)
	assert.False(t, artifact.Baseline())
	assert.Equal(t, 4, artifact.Evaluation.HoldoutRows)
	assert.False(t, artifact.Evaluation.Diagnostic)
	assert.InDelta(t, 1.0, artifact.Evaluation.Accuracy, 1e-9)
	require.NotNil(t, artifact.Tree)

	// the separating feature carries all the importance
	assert.InDelta(t, 1.0, artifact.Importances["user_approval_rate"], 1e-9)
}

func TestTrainApprovalTinySampleDiagnostic(t *testing.T) {
	records := []dataset.BookingRecord{
		approvalRecord("approved", 0.9, 9),
		approvalRecord("approved", 0.8, 10),
		approvalRecord("denied", 0.1, 11),
	}
	artifact, err := TrainApproval(records)
	require.NoError(t, err)

	assert.True(t, artifact.NoHoldout)
	assert.True(t, artifact.Baseline())
	assert.True(t, artifact.Evaluation.Diagnostic)
	assert.Equal(t, 3, artifact.Evaluation.HoldoutRows)
}

func TestTrainNoShowSyntheticFallback(t *testing.T) {
	// pending rows carry no outcome, so nothing is labeled
	records := []dataset.BookingRecord{
		approvalRecord("pending", 0.5, 9),
	}
	artifact, err := TrainNoShow(records)
	require.NoError(t, err)

	assert.Equal(t, KindNoShow, artifact.Kind)
	assert.True(t, artifact.Synthetic)
	assert.True(t, artifact.Baseline())
	assert.Equal(t, 5, artifact.Samples)
	require.NotNil(t, artifact.Logistic)

	proba, err := artifact.PredictProba(make([]float64, len(NoShowFeatures)))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-9)
}

func TestTrainNoShowEndToEnd(t *testing.T) {
	var records []dataset.BookingRecord
	for i := 0; i < 10; i++ {
		records = append(records, attendanceRecord("completed", 1, 0.9, 9+i%8))
	}
	for i := 0; i < 10; i++ {
		records = append(records, attendanceRecord("approved", 0, 0.1, 9+i%8))
	}

	artifact, err := TrainNoShow(records)
	require.NoError(t, err)

	assert.False(t, artifact.Synthetic)
	assert.False(t, artifact.Baseline())
	assert.Equal(t, 20, artifact.Samples)
	assert.Equal(t, NoShowFeatures, artifact.FeatureNames)
	assert.Greater(t, artifact.Evaluation.Accuracy, 0.5)
}

func TestArtifactSaveLoadRoundTrip(t *testing.T) {
	var records []dataset.BookingRecord
	for i := 0; i < 12; i++ {
		records = append(records, approvalRecord("approved", 0.9, 9+i%8))
	}
	for i := 0; i < 8; i++ {
		records = append(records, approvalRecord("denied", 0.1, 9+i%8))
	}
	artifact, err := TrainApproval(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), ApprovalArtifactFile)
	require.NoError(t, artifact.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.Version, loaded.Version)
	assert.Equal(t, artifact.FeatureNames, loaded.FeatureNames)

	x := featureRow(t, records[0], ApprovalFeatures)
	want, err := artifact.PredictProba(x)
	require.NoError(t, err)
	got, err := loaded.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// the modal training row (majority class) classifies as approved
	assert.Greater(t, got[1], got[0])
}

func featureRow(t *testing.T, r dataset.BookingRecord, names []string) []float64 {
	t.Helper()
	rows, err := featureMatrix([]dataset.BookingRecord{r}, names)
	require.NoError(t, err)
	return rows[0]
}
