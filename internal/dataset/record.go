// Package dataset defines the unified booking feature table used by the
// training pipeline. Historical requests from all source entity types
// (facility bookings, item borrowings, vehicle requests) are normalized
// into one BookingRecord shape with an identical column set, so the
// trainer never has to care which table a row came from.
//
// The package also owns the CSV artifact format: the exporter writes it,
// the trainer reads it, and the header is the single source of truth for
// column names and ordering.
package dataset

import (
	"fmt"
	"strconv"
)

// EntityType tags which source table a record was normalized from.
type EntityType string

const (
	EntityFacility EntityType = "facility"
	EntityItem     EntityType = "item"
	EntityVehicle  EntityType = "vehicle"
)

// Columns is the exact header of the feature table artifact, in order.
// Changing it is a format change for every downstream consumer.
var Columns = []string{
	"booking_id",
	"user_id",
	"resource_id",
	"booking_date",
	"entity_type",
	"hour_of_day",
	"day_of_week",
	"advance_booking_days",
	"duration_hours",
	"status",
	"request_type",
	"expected_attendees",
	"actual_attendees",
	"user_total_bookings",
	"user_approved_count",
	"user_completed_count",
	"user_cancelled_count",
	"attendance_success",
	"same_day_facility_demand",
	"user_approval_rate",
	"user_completion_rate",
	"is_weekend",
}

// BookingRecord is one row of the unified feature table. Booking IDs are
// only unique within their source entity type; (EntityType, BookingID) is
// the global key.
type BookingRecord struct {
	BookingID  int64
	UserID     int64
	ResourceID int64
	// BookingDate is the scheduled date in YYYY-MM-DD form.
	BookingDate string
	EntityType  EntityType

	HourOfDay int
	// DayOfWeek uses the source numbering: 1=Sunday .. 7=Saturday.
	DayOfWeek int
	// AdvanceBookingDays may be negative when source data is inconsistent
	// (booking dated before its own creation). Kept as-is.
	AdvanceBookingDays int
	DurationHours      float64

	Status      string
	RequestType string

	ExpectedAttendees int
	ActualAttendees   int

	// Point-in-time user history: counts over this user's requests created
	// strictly before this record's creation time.
	UserTotalBookings  int
	UserApprovedCount  int
	UserCompletedCount int
	UserCancelledCount int

	// AttendanceSuccess is the no-show label candidate, 0 or 1, derived by
	// an entity-specific rule at export time.
	AttendanceSuccess int

	// SameDayFacilityDemand counts every request for the same resource on
	// the same date, including this one and later-created ones. It is a
	// demand-density signal, not a leakage-free feature.
	SameDayFacilityDemand int

	UserApprovalRate   float64
	UserCompletionRate float64
	IsWeekend          int
}

// ComputeEngineered fills the derived rate and weekend columns from the
// exported counts. The +1 denominators keep brand-new users at a rate
// below 0.5 instead of dividing by zero.
func (r *BookingRecord) ComputeEngineered() {
	r.UserApprovalRate = float64(r.UserApprovedCount) / float64(r.UserTotalBookings+1)
	r.UserCompletionRate = float64(r.UserCompletedCount) / float64(r.UserApprovedCount+1)
	if r.DayOfWeek == 1 || r.DayOfWeek == 7 {
		r.IsWeekend = 1
	} else {
		r.IsWeekend = 0
	}
}

func (r *BookingRecord) row() []string {
	return []string{
		strconv.FormatInt(r.BookingID, 10),
		strconv.FormatInt(r.UserID, 10),
		strconv.FormatInt(r.ResourceID, 10),
		r.BookingDate,
		string(r.EntityType),
		strconv.Itoa(r.HourOfDay),
		strconv.Itoa(r.DayOfWeek),
		strconv.Itoa(r.AdvanceBookingDays),
		formatFloat(r.DurationHours),
		r.Status,
		r.RequestType,
		strconv.Itoa(r.ExpectedAttendees),
		strconv.Itoa(r.ActualAttendees),
		strconv.Itoa(r.UserTotalBookings),
		strconv.Itoa(r.UserApprovedCount),
		strconv.Itoa(r.UserCompletedCount),
		strconv.Itoa(r.UserCancelledCount),
		strconv.Itoa(r.AttendanceSuccess),
		strconv.Itoa(r.SameDayFacilityDemand),
		formatFloat(r.UserApprovalRate),
		formatFloat(r.UserCompletionRate),
		strconv.Itoa(r.IsWeekend),
	}
}

func parseRow(fields []string) (BookingRecord, error) {
	if len(fields) != len(Columns) {
		return BookingRecord{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(fields))
	}

	var r BookingRecord
	var err error

	if r.BookingID, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
		return r, fmt.Errorf("booking_id: %w", err)
	}
	if r.UserID, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return r, fmt.Errorf("user_id: %w", err)
	}
	if r.ResourceID, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return r, fmt.Errorf("resource_id: %w", err)
	}
	r.BookingDate = fields[3]
	r.EntityType = EntityType(fields[4])

	if r.HourOfDay, err = strconv.Atoi(fields[5]); err != nil {
		return r, fmt.Errorf("hour_of_day: %w", err)
	}
	if r.DayOfWeek, err = strconv.Atoi(fields[6]); err != nil {
		return r, fmt.Errorf("day_of_week: %w", err)
	}
	if r.AdvanceBookingDays, err = strconv.Atoi(fields[7]); err != nil {
		return r, fmt.Errorf("advance_booking_days: %w", err)
	}
	if r.DurationHours, err = strconv.ParseFloat(fields[8], 64); err != nil {
		return r, fmt.Errorf("duration_hours: %w", err)
	}
	r.Status = fields[9]
	r.RequestType = fields[10]

	if r.ExpectedAttendees, err = strconv.Atoi(fields[11]); err != nil {
		return r, fmt.Errorf("expected_attendees: %w", err)
	}
	if r.ActualAttendees, err = strconv.Atoi(fields[12]); err != nil {
		return r, fmt.Errorf("actual_attendees: %w", err)
	}
	if r.UserTotalBookings, err = strconv.Atoi(fields[13]); err != nil {
		return r, fmt.Errorf("user_total_bookings: %w", err)
	}
	if r.UserApprovedCount, err = strconv.Atoi(fields[14]); err != nil {
		return r, fmt.Errorf("user_approved_count: %w", err)
	}
	if r.UserCompletedCount, err = strconv.Atoi(fields[15]); err != nil {
		return r, fmt.Errorf("user_completed_count: %w", err)
	}
	if r.UserCancelledCount, err = strconv.Atoi(fields[16]); err != nil {
		return r, fmt.Errorf("user_cancelled_count: %w", err)
	}
	if r.AttendanceSuccess, err = strconv.Atoi(fields[17]); err != nil {
		return r, fmt.Errorf("attendance_success: %w", err)
	}
	// binary label; anything else would poison the no-show trainer
	if r.AttendanceSuccess != 0 && r.AttendanceSuccess != 1 {
		return r, fmt.Errorf("attendance_success: %d is not a binary label", r.AttendanceSuccess)
	}
	if r.SameDayFacilityDemand, err = strconv.Atoi(fields[18]); err != nil {
		return r, fmt.Errorf("same_day_facility_demand: %w", err)
	}
	if r.UserApprovalRate, err = strconv.ParseFloat(fields[19], 64); err != nil {
		return r, fmt.Errorf("user_approval_rate: %w", err)
	}
	if r.UserCompletionRate, err = strconv.ParseFloat(fields[20], 64); err != nil {
		return r, fmt.Errorf("user_completion_rate: %w", err)
	}
	if r.IsWeekend, err = strconv.Atoi(fields[21]); err != nil {
		return r, fmt.Errorf("is_weekend: %w", err)
	}

	return r, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
