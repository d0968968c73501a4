package ml

import (
	"fmt"

	"bookingml/internal/dataset"
)

// ApprovalFeatures is the exact ordered feature vector of the approval
// model. The order is part of the artifact contract: a persisted model
// is only valid together with the feature names it was fit on.
var ApprovalFeatures = []string{
	"hour_of_day",
	"day_of_week",
	"advance_booking_days",
	"duration_hours",
	"user_approval_rate",
	"user_completion_rate",
	"same_day_facility_demand",
	"is_weekend",
}

// NoShowFeatures is the ordered feature vector of the no-show model.
var NoShowFeatures = []string{
	"hour_of_day",
	"day_of_week",
	"advance_booking_days",
	"duration_hours",
	"user_completion_rate",
	"is_weekend",
	"same_day_facility_demand",
}

// featureValue reads one named feature from a unified record.
func featureValue(r *dataset.BookingRecord, name string) (float64, error) {
	switch name {
	case "hour_of_day":
		return float64(r.HourOfDay), nil
	case "day_of_week":
		return float64(r.DayOfWeek), nil
	case "advance_booking_days":
		return float64(r.AdvanceBookingDays), nil
	case "duration_hours":
		return r.DurationHours, nil
	case "user_approval_rate":
		return r.UserApprovalRate, nil
	case "user_completion_rate":
		return r.UserCompletionRate, nil
	case "same_day_facility_demand":
		return float64(r.SameDayFacilityDemand), nil
	case "is_weekend":
		return float64(r.IsWeekend), nil
	default:
		return 0, fmt.Errorf("unknown feature %q", name)
	}
}

// featureMatrix builds the design matrix for records in the given
// feature order.
func featureMatrix(records []dataset.BookingRecord, names []string) ([][]float64, error) {
	X := make([][]float64, len(records))
	for i := range records {
		row := make([]float64, len(names))
		for j, name := range names {
			v, err := featureValue(&records[i], name)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		X[i] = row
	}
	return X, nil
}

// RecordInput converts a unified record into a serving-time Input, for
// callers that score existing rows (the reminder scan) rather than
// partial JSON requests.
func RecordInput(r dataset.BookingRecord) Input {
	hour := float64(r.HourOfDay)
	day := float64(r.DayOfWeek)
	advance := float64(r.AdvanceBookingDays)
	duration := r.DurationHours
	approval := r.UserApprovalRate
	completion := r.UserCompletionRate
	demand := float64(r.SameDayFacilityDemand)
	weekend := float64(r.IsWeekend)

	return Input{
		HourOfDay:             &hour,
		DayOfWeek:             &day,
		AdvanceBookingDays:    &advance,
		DurationHours:         &duration,
		UserApprovalRate:      &approval,
		UserCompletionRate:    &completion,
		SameDayFacilityDemand: &demand,
		IsWeekend:             &weekend,
	}
}
