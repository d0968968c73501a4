package history

import (
	"database/sql"
	"time"

	"bookingml/internal/dataset"
)

const (
	dateLayout = "2006-01-02"

	// defaultHour stands in for entity types with no time-of-day concept
	// (item borrowings).
	defaultHour = 12

	// attendanceRatio is the facility attendance-success cutoff: showing
	// up with at least 80% of the expected headcount counts as attended.
	attendanceRatio = 0.8
)

// sourceRow is the tagged variant read from one of the three entity
// tables. Entity-specific fields stay nullable here; normalize folds them
// into the total unified schema.
type sourceRow struct {
	entity     dataset.EntityType
	id         int64
	userID     int64
	resourceID int64
	date       string
	startTime  sql.NullString
	endTime    sql.NullString

	// item borrowings only
	returnDate   sql.NullString
	actualReturn sql.NullString

	status      string
	requestType string

	// facility: expected/actual attendees; vehicle: passenger count for
	// both; item: zero.
	expected int
	actual   int

	createdAt time.Time

	// point-in-time user aggregates and same-day demand, computed by the
	// source query
	userTotal     int
	userApproved  int
	userCompleted int
	userCancelled int
	sameDay       int
}

// normalize maps a source row of any entity type onto the unified record.
// Every column is populated regardless of entity type; the schema union
// is total by construction.
func (r sourceRow) normalize() dataset.BookingRecord {
	rec := dataset.BookingRecord{
		BookingID:             r.id,
		UserID:                r.userID,
		ResourceID:            r.resourceID,
		BookingDate:           r.date,
		EntityType:            r.entity,
		HourOfDay:             defaultHour,
		DayOfWeek:             dayOfWeek(r.date),
		AdvanceBookingDays:    daysBetween(r.createdAt.Format(dateLayout), r.date),
		Status:                r.status,
		RequestType:           r.requestType,
		ExpectedAttendees:     r.expected,
		ActualAttendees:       r.actual,
		UserTotalBookings:     r.userTotal,
		UserApprovedCount:     r.userApproved,
		UserCompletedCount:    r.userCompleted,
		UserCancelledCount:    r.userCancelled,
		SameDayFacilityDemand: r.sameDay,
	}

	switch r.entity {
	case dataset.EntityFacility:
		if h, ok := hourOf(r.startTime); ok {
			rec.HourOfDay = h
		}
		rec.DurationHours = hoursBetween(r.startTime, r.endTime)
		// A zero expected headcount satisfies the ratio trivially and
		// labels as attended: sparse data leans toward "attended".
		if float64(r.actual) >= attendanceRatio*float64(r.expected) {
			rec.AttendanceSuccess = 1
		}

	case dataset.EntityItem:
		// Borrow duration is measured in days but carried in the
		// duration_hours column, matching the historical table layout.
		if r.returnDate.Valid {
			rec.DurationHours = float64(daysBetween(r.date, r.returnDate.String))
		}
		if r.actualReturn.Valid && r.actualReturn.String != "" {
			rec.AttendanceSuccess = 1
		}

	case dataset.EntityVehicle:
		if h, ok := hourOf(r.startTime); ok {
			rec.HourOfDay = h
		}
		rec.DurationHours = hoursBetween(r.startTime, r.endTime)
		if r.status == "completed" {
			rec.AttendanceSuccess = 1
		}
	}

	return rec
}

// dayOfWeek returns the source numbering 1=Sunday .. 7=Saturday, or 0
// when the date does not parse.
func dayOfWeek(date string) int {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0
	}
	return int(t.Weekday()) + 1
}

// daysBetween returns to - from in whole days. Negative when the data is
// inconsistent (a request dated before its own creation); kept as-is.
func daysBetween(from, to string) int {
	a, err := time.Parse(dateLayout, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(dateLayout, to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func hourOf(v sql.NullString) (int, bool) {
	t, ok := parseClock(v)
	if !ok {
		return 0, false
	}
	return t.Hour(), true
}

func hoursBetween(start, end sql.NullString) float64 {
	a, ok := parseClock(start)
	if !ok {
		return 0
	}
	b, ok := parseClock(end)
	if !ok {
		return 0
	}
	return b.Sub(a).Hours()
}

func parseClock(v sql.NullString) (time.Time, bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
