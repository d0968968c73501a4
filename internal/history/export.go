package history

import (
	"context"
	"fmt"

	"bookingml/internal/dataset"

	"github.com/rs/zerolog/log"
)

// The three export queries share one shape: the base row, four
// point-in-time user aggregates, and the same-day demand count.
//
// The user aggregates use strictly `<` on created_at so a row never
// counts itself or anything created after it — these are leakage-free
// training features. The same-day demand subquery deliberately has no
// created_at bound: it counts every request for the resource on that
// date, including this one and requests created later. That asymmetry is
// intentional; the column is a demand-density signal, not a
// point-in-time feature.

const facilityQuery = `
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
    WHERE fb.created_at >= $1 AND fb.created_at < $2
    ORDER BY fb.id
`

const itemQuery = `
    SELECT ib.id, ib.user_id, ib.item_id, ib.borrow_date,
           ib.return_date, ib.actual_return_date, ib.status, ib.request_type,
           ib.created_at,
           (SELECT COUNT(*) FROM item_borrowings h
             WHERE h.user_id = ib.user_id AND h.created_at < ib.created_at),
           (SELECT COUNT(*) FROM item_borrowings h
             WHERE h.user_id = ib.user_id AND h.created_at < ib.created_at
               AND h.status = 'approved'),
           (SELECT COUNT(*) FROM item_borrowings h
             WHERE h.user_id = ib.user_id AND h.created_at < ib.created_at
               AND h.status = 'returned'),
           (SELECT COUNT(*) FROM item_borrowings h
             WHERE h.user_id = ib.user_id AND h.created_at < ib.created_at
               AND h.status = 'cancelled'),
           (SELECT COUNT(*) FROM item_borrowings d
             WHERE d.item_id = ib.item_id
               AND d.borrow_date = ib.borrow_date)
    FROM item_borrowings ib
    WHERE ib.created_at >= $1 AND ib.created_at < $2
    ORDER BY ib.id
`

const vehicleQuery = `
    SELECT vr.id, vr.user_id, vr.vehicle_id, vr.request_date,
           vr.start_time, vr.end_time, vr.status, vr.request_type,
           vr.passenger_count, vr.created_at,
           (SELECT COUNT(*) FROM vehicle_requests h
             WHERE h.user_id = vr.user_id AND h.created_at < vr.created_at),
           (SELECT COUNT(*) FROM vehicle_requests h
             WHERE h.user_id = vr.user_id AND h.created_at < vr.created_at
               AND h.status = 'approved'),
           (SELECT COUNT(*) FROM vehicle_requests h
             WHERE h.user_id = vr.user_id AND h.created_at < vr.created_at
               AND h.status = 'completed'),
           (SELECT COUNT(*) FROM vehicle_requests h
             WHERE h.user_id = vr.user_id AND h.created_at < vr.created_at
               AND h.status = 'cancelled'),
           (SELECT COUNT(*) FROM vehicle_requests d
             WHERE d.vehicle_id = vr.vehicle_id
               AND d.request_date = vr.request_date)
    FROM vehicle_requests vr
    WHERE vr.created_at >= $1 AND vr.created_at < $2
    ORDER BY vr.id
`

// Export reads every request created inside the window from all three
// source tables and returns the unified feature rows with engineered
// columns computed. A window with no rows yields an empty, non-nil slice.
func (s *Store) Export(ctx context.Context, w Window) ([]dataset.BookingRecord, error) {
	records := make([]dataset.BookingRecord, 0)

	for _, src := range []struct {
		entity dataset.EntityType
		fetch  func(context.Context, Window) ([]dataset.BookingRecord, error)
	}{
		{dataset.EntityFacility, s.fetchFacilities},
		{dataset.EntityItem, s.fetchItems},
		{dataset.EntityVehicle, s.fetchVehicles},
	} {
		rows, err := src.fetch(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("export %s rows: %w", src.entity, err)
		}
		log.Info().Str("entity", string(src.entity)).Int("rows", len(rows)).Msg("entity exported")
		records = append(records, rows...)
	}

	for i := range records {
		records[i].ComputeEngineered()
	}
	return records, nil
}

func (s *Store) fetchFacilities(ctx context.Context, w Window) ([]dataset.BookingRecord, error) {
	rows, err := s.db.QueryContext(ctx, facilityQuery, w.From, w.To)
	if err != nil {
		return nil, err
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
		out = append(out, r.normalize())
	}
	return out, rows.Err()
}

func (s *Store) fetchItems(ctx context.Context, w Window) ([]dataset.BookingRecord, error) {
	rows, err := s.db.QueryContext(ctx, itemQuery, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.BookingRecord
	for rows.Next() {
		r := sourceRow{entity: dataset.EntityItem}
		if err := rows.Scan(
			&r.id, &r.userID, &r.resourceID, &r.date,
			&r.returnDate, &r.actualReturn, &r.status, &r.requestType,
			&r.createdAt,
			&r.userTotal, &r.userApproved, &r.userCompleted, &r.userCancelled,
			&r.sameDay,
		); err != nil {
			return nil, err
		}
		out = append(out, r.normalize())
	}
	return out, rows.Err()
}

func (s *Store) fetchVehicles(ctx context.Context, w Window) ([]dataset.BookingRecord, error) {
	rows, err := s.db.QueryContext(ctx, vehicleQuery, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.BookingRecord
	for rows.Next() {
		r := sourceRow{entity: dataset.EntityVehicle}
		if err := rows.Scan(
			&r.id, &r.userID, &r.resourceID, &r.date,
			&r.startTime, &r.endTime, &r.status, &r.requestType,
			&r.expected, &r.createdAt,
			&r.userTotal, &r.userApproved, &r.userCompleted, &r.userCancelled,
			&r.sameDay,
		); err != nil {
			return nil, err
		}
		// a vehicle request has no separate headcount reading; the
		// passenger count stands in for both attendee columns
		r.actual = r.expected
		out = append(out, r.normalize())
	}
	return out, rows.Err()
}
