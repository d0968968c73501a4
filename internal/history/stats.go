package history

import (
	"context"
	"fmt"
	"time"

	"bookingml/internal/dataset"
)

// UserStats carries serving-time rate features for a user. Unlike the
// export-time aggregates these are computed over the user's full facility
// history, because at prediction time the booking being scored does not
// exist yet.
type UserStats struct {
	ApprovalRate   float64
	CompletionRate float64
	TotalBookings  int
}

// neutralStats is returned for users with no history at all: 0.5 is the
// neutral prior the models were trained to expect for rate features.
var neutralStats = UserStats{ApprovalRate: 0.5, CompletionRate: 0.5}

// FacilityUserStats computes live approval and completion rates for one
// user from the facility bookings table. Users without history get the
// neutral 0.5 rates rather than zeros.
func (s *Store) FacilityUserStats(ctx context.Context, userID int64) (UserStats, error) {
	const q = `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
        FROM facility_bookings
        WHERE user_id = $1
    `

	var total, approved, completed int
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&total, &approved, &completed); err != nil {
		return UserStats{}, fmt.Errorf("user stats for %d: %w", userID, err)
	}

	if total == 0 {
		return neutralStats, nil
	}

	stats := UserStats{TotalBookings: total}
	stats.ApprovalRate = float64(approved) / float64(total)
	if approved > 0 {
		stats.CompletionRate = float64(completed) / float64(approved)
	} else {
		stats.CompletionRate = 0.5
	}
	return stats, nil
}

// UpcomingFacilityBookings returns approved facility bookings scheduled
// in [from, from+days) with their point-in-time aggregates, for no-show
// scanning ahead of the booking date.
func (s *Store) UpcomingFacilityBookings(ctx context.Context, from time.Time, days int) ([]dataset.BookingRecord, error) {
	const q = `
        SELECT fb.id, fb.user_id, fb.facility_id, fb.booking_date,
               fb.start_time, fb.end_time, fb.status, fb.request_type,
               fb.expected_attendees, fb.actual_attendees, fb.created_at,
               (SELECT COUNT(*) FROM facility_bookings h
                 WHERE h.user_id = fb.user_id AND h.created_at < fb.created_at),
               (SELECT COUNT(*) FROM facility_bookings h
                 WHERE h.user_id = fb.user_id AND h.created_at < fb.created_at
                   AND h.status = 'approved'),
               (SELECT COUNT(*) FROM facility_bookings h
                 WHERE h.user_id = fb.user_id AND h.created_at < fb.created_at
                   AND h.status = 'completed'),
               (SELECT COUNT(*) FROM facility_bookings h
                 WHERE h.user_id = fb.user_id AND h.created_at < fb.created_at
                   AND h.status = 'cancelled'),
               (SELECT COUNT(*) FROM facility_bookings d
                 WHERE d.facility_id = fb.facility_id
                   AND d.booking_date = fb.booking_date)
        FROM facility_bookings fb
        WHERE fb.status = 'approved'
          AND fb.booking_date >= $1 AND fb.booking_date < $2
        ORDER BY fb.booking_date, fb.id
    `

	fromDate := from.Format(dateLayout)
	toDate := from.AddDate(0, 0, days).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, q, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("upcoming bookings: %w", err)
	}
	defer rows.Close()

	var out []dataset.BookingRecord
	for rows.Next() {
		r := sourceRow{entity: dataset.EntityFacility}
		if err := rows.Scan(
			&r.id, &r.userID, &r.resourceID, &r.date,
			&r.startTime, &r.endTime, &r.status, &r.requestType,
			&r.expected, &r.actual, &r.createdAt,
			&r.userTotal, &r.userApproved, &r.userCompleted, &r.userCancelled,
			&r.sameDay,
		); err != nil {
			return nil, err
		}
		rec := r.normalize()
		rec.ComputeEngineered()
		out = append(out, rec)
	}
	return out, rows.Err()
}
