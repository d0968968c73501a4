package ml

import (
	"fmt"
	"time"
)

// Input is a serving-time feature vector. Fields are pointers so a
// caller can distinguish "absent" from zero; absent fields take the
// documented defaults, which describe a typical one-week-ahead morning
// booking by an unknown user.
type Input struct {
	HourOfDay             *float64 `json:"hour_of_day,omitempty"`
	DayOfWeek             *float64 `json:"day_of_week,omitempty"`
	AdvanceBookingDays    *float64 `json:"advance_booking_days,omitempty"`
	DurationHours         *float64 `json:"duration_hours,omitempty"`
	UserApprovalRate      *float64 `json:"user_approval_rate,omitempty"`
	UserCompletionRate    *float64 `json:"user_completion_rate,omitempty"`
	SameDayFacilityDemand *float64 `json:"same_day_facility_demand,omitempty"`
	IsWeekend             *float64 `json:"is_weekend,omitempty"`
}

var inputDefaults = map[string]float64{
	"hour_of_day":              10,
	"day_of_week":              1,
	"advance_booking_days":     7,
	"duration_hours":           2,
	"user_approval_rate":       0.5,
	"user_completion_rate":     0.5,
	"same_day_facility_demand": 0,
	"is_weekend":               0,
}

// vector resolves the input against a model's feature name list,
// substituting defaults for unset fields.
func (in Input) vector(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := in.value(name)
		if !ok {
			v = inputDefaults[name]
		}
		out[i] = v
	}
	return out
}

func (in Input) value(name string) (float64, bool) {
	var p *float64
	switch name {
	case "hour_of_day":
		p = in.HourOfDay
	case "day_of_week":
		p = in.DayOfWeek
	case "advance_booking_days":
		p = in.AdvanceBookingDays
	case "duration_hours":
		p = in.DurationHours
	case "user_approval_rate":
		p = in.UserApprovalRate
	case "user_completion_rate":
		p = in.UserCompletionRate
	case "same_day_facility_demand":
		p = in.SameDayFacilityDemand
	case "is_weekend":
		p = in.IsWeekend
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ApprovalResult is the auto-approval recommendation for one request.
type ApprovalResult struct {
	Prediction        string    `json:"prediction"`
	Confidence        float64   `json:"confidence"`
	ApproveProb       float64   `json:"approve_probability"`
	ShouldAutoApprove bool      `json:"should_auto_approve"`
	ModelVersion      string    `json:"model_version"`
	Baseline          bool      `json:"baseline,omitempty"`
	At                time.Time `json:"at"`
}

// NoShowResult is the attendance risk assessment for one booking.
type NoShowResult struct {
	NoShowProb        float64   `json:"no_show_probability"`
	ShowProb          float64   `json:"show_probability"`
	RiskLevel         string    `json:"risk_level"`
	SendExtraReminder bool      `json:"send_extra_reminder"`
	ModelVersion      string    `json:"model_version"`
	Baseline          bool      `json:"baseline,omitempty"`
	At                time.Time `json:"at"`
}

// Predictor loads trained artifacts from a model directory and scores
// serving-time inputs against them. Thresholds are operational policy,
// kept outside the artifacts so they can be tuned without retraining.
type Predictor struct {
	modelDir          string
	AutoApproveMin    float64
	ExtraReminderOver float64
}

const (
	defaultAutoApproveMin    = 0.7
	defaultExtraReminderOver = 0.6
)

func NewPredictor(modelDir string) *Predictor {
	return &Predictor{
		modelDir:          modelDir,
		AutoApproveMin:    defaultAutoApproveMin,
		ExtraReminderOver: defaultExtraReminderOver,
	}
}

// PredictApproval scores one request against the approval tree. The
// auto-approve gate requires both the approved class and confidence at
// or above the configured minimum.
func (p *Predictor) PredictApproval(in Input) (ApprovalResult, error) {
	path, err := ArtifactPath(p.modelDir, KindApproval)
	if err != nil {
		return ApprovalResult{}, err
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("predict approval: %w", err)
	}

	proba, err := artifact.PredictProba(in.vector(artifact.FeatureNames))
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("predict approval: %w", err)
	}

	res := ApprovalResult{
		ApproveProb:  proba[1],
		ModelVersion: artifact.Version,
		Baseline:     artifact.Baseline(),
		At:           time.Now(),
	}
	if proba[1] >= proba[0] {
		res.Prediction = "approve"
		res.Confidence = proba[1]
	} else {
		res.Prediction = "manual_review"
		res.Confidence = proba[0]
	}
	res.ShouldAutoApprove = res.Prediction == "approve" && res.Confidence >= p.AutoApproveMin
	return res, nil
}

// PredictNoShow scores one booking against the attendance model. The
// no-show probability is the complement of the attended probability.
func (p *Predictor) PredictNoShow(in Input) (NoShowResult, error) {
	path, err := ArtifactPath(p.modelDir, KindNoShow)
	if err != nil {
		return NoShowResult{}, err
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		return NoShowResult{}, fmt.Errorf("predict noshow: %w", err)
	}

	proba, err := artifact.PredictProba(in.vector(artifact.FeatureNames))
	if err != nil {
		return NoShowResult{}, fmt.Errorf("predict noshow: %w", err)
	}

	noShow := 1 - proba[1]
	return NoShowResult{
		NoShowProb:        noShow,
		ShowProb:          proba[1],
		RiskLevel:         RiskLevel(noShow),
		SendExtraReminder: noShow > p.ExtraReminderOver,
		ModelVersion:      artifact.Version,
		Baseline:          artifact.Baseline(),
		At:                time.Now(),
	}, nil
}

// RiskLevel buckets a no-show probability. Boundaries are inclusive so
// a probability sitting exactly on a cutoff lands in the higher bucket.
func RiskLevel(noShowProb float64) string {
	switch {
	case noShowProb >= 0.7:
		return "high"
	case noShowProb >= 0.4:
		return "medium"
	default:
		return "low"
	}
}
