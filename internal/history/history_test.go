package history

import (
	"context"
	"testing"
	"time"

	"bookingml/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

type facilityFixture struct {
	id         int64
	userID     int64
	facilityID int64
	date       string
	start, end string
	status     string
	expected   int
	actual     int
	createdAt  time.Time
}

func insertFacility(t *testing.T, s *Store, f facilityFixture) {
	t.Helper()
	_, err := s.db.Exec(`
        INSERT INTO facility_bookings
            (id, user_id, facility_id, booking_date, start_time, end_time,
             status, request_type, expected_attendees, actual_attendees, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'facility', $8, $9, $10)`,
		f.id, f.userID, f.facilityID, f.date, f.start, f.end,
		f.status, f.expected, f.actual, f.createdAt.UTC(),
	)
	require.NoError(t, err)
}

func TestExportEmptyWindow(t *testing.T) {
	store := setupTestStore(t)

	w := DefaultWindow(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	records, err := store.Export(context.Background(), w)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestPointInTimeAggregates(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Three bookings by the same user, created at T1 < T2 < T3. The
	// aggregate on the T3 row must count T1 and T2 but never T3 itself.
	insertFacility(t, store, facilityFixture{
		id: 1, userID: 9, facilityID: 1, date: "2025-03-05",
		start: "09:00", end: "11:00", status: "approved",
		createdAt: base,
	})
	insertFacility(t, store, facilityFixture{
		id: 2, userID: 9, facilityID: 1, date: "2025-03-10",
		start: "09:00", end: "11:00", status: "cancelled",
		createdAt: base.Add(24 * time.Hour),
	})
	insertFacility(t, store, facilityFixture{
		id: 3, userID: 9, facilityID: 2, date: "2025-03-20",
		start: "14:00", end: "16:00", status: "pending",
		createdAt: base.Add(48 * time.Hour),
	})

	w := Window{From: base.Add(-time.Hour), To: base.Add(72 * time.Hour)}
	records, err := store.Export(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, records, 3)

	byID := map[int64]dataset.BookingRecord{}
	for _, r := range records {
		byID[r.BookingID] = r
	}

	assert.Equal(t, 0, byID[1].UserTotalBookings, "first booking has no prior history")
	assert.Equal(t, 1, byID[2].UserTotalBookings)
	assert.Equal(t, 1, byID[2].UserApprovedCount)
	assert.Equal(t, 2, byID[3].UserTotalBookings, "T3 counts T1 and T2 only")
	assert.Equal(t, 1, byID[3].UserApprovedCount)
	assert.Equal(t, 1, byID[3].UserCancelledCount)
}

func TestSameDayDemandIncludesLaterCreated(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	// Two requests for the same facility and date; the earlier-created
	// row still sees the later one in its demand count. This is the
	// documented asymmetry with the user aggregates.
	insertFacility(t, store, facilityFixture{
		id: 1, userID: 1, facilityID: 5, date: "2025-04-10",
		start: "09:00", end: "10:00", status: "approved",
		createdAt: base,
	})
	insertFacility(t, store, facilityFixture{
		id: 2, userID: 2, facilityID: 5, date: "2025-04-10",
		start: "13:00", end: "14:00", status: "pending",
		createdAt: base.Add(time.Hour),
	})

	w := Window{From: base.Add(-time.Hour), To: base.Add(2 * time.Hour)}
	records, err := store.Export(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.Equal(t, 2, r.SameDayFacilityDemand, "booking %d", r.BookingID)
	}
}

func TestSchemaTotalityAcrossEntities(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	insertFacility(t, store, facilityFixture{
		id: 1, userID: 1, facilityID: 1, date: "2025-05-10",
		start: "10:00", end: "12:30", status: "approved",
		expected: 10, actual: 9, createdAt: created,
	})
	_, err := store.db.Exec(`
        INSERT INTO item_borrowings
            (id, user_id, item_id, borrow_date, return_date, actual_return_date,
             status, request_type, created_at)
        VALUES (1, 1, 2, '2025-05-11', '2025-05-14', '2025-05-13', 'returned', 'item', $1)`,
		created)
	require.NoError(t, err)
	_, err = store.db.Exec(`
        INSERT INTO vehicle_requests
            (id, user_id, vehicle_id, request_date, start_time, end_time,
             status, request_type, passenger_count, created_at)
        VALUES (1, 1, 3, '2025-05-12', '08:00', '17:00', 'completed', 'vehicle', 4, $1)`,
		created)
	require.NoError(t, err)

	w := Window{From: created.Add(-time.Hour), To: created.Add(time.Hour)}
	records, err := store.Export(ctx, w)
	require.NoError(t, err)
	require.Len(t, records, 3)

	byEntity := map[dataset.EntityType]dataset.BookingRecord{}
	for _, r := range records {
		byEntity[r.EntityType] = r
	}
	require.Len(t, byEntity, 3)

	facility := byEntity[dataset.EntityFacility]
	assert.Equal(t, 10, facility.HourOfDay)
	assert.InDelta(t, 2.5, facility.DurationHours, 1e-9)
	assert.Equal(t, 1, facility.AttendanceSuccess, "9 of 10 expected is above the 80% cutoff")

	item := byEntity[dataset.EntityItem]
	assert.Equal(t, 12, item.HourOfDay, "items default to noon")
	assert.Zero(t, item.ExpectedAttendees)
	assert.Zero(t, item.ActualAttendees)
	assert.InDelta(t, 3, item.DurationHours, 1e-9, "borrow duration in days")
	assert.Equal(t, 1, item.AttendanceSuccess, "returned item counts as attended")

	vehicle := byEntity[dataset.EntityVehicle]
	assert.Equal(t, 8, vehicle.HourOfDay)
	assert.Equal(t, 4, vehicle.ExpectedAttendees)
	assert.Equal(t, 4, vehicle.ActualAttendees, "passenger count fills both columns")
	assert.Equal(t, 1, vehicle.AttendanceSuccess, "completed vehicle request")
}

func TestFacilityAttendanceBelowCutoff(t *testing.T) {
	store := setupTestStore(t)
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	insertFacility(t, store, facilityFixture{
		id: 1, userID: 1, facilityID: 1, date: "2025-05-10",
		start: "10:00", end: "12:00", status: "completed",
		expected: 10, actual: 7, createdAt: created,
	})

	w := Window{From: created.Add(-time.Hour), To: created.Add(time.Hour)}
	records, err := store.Export(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].AttendanceSuccess, "7 of 10 is below the 80% cutoff")
}

func TestFacilityAttendanceNoHeadcount(t *testing.T) {
	store := setupTestStore(t)
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	// no headcount reading at all: zero expected satisfies the ratio
	// trivially, so the row labels as attended rather than no-show
	insertFacility(t, store, facilityFixture{
		id: 1, userID: 1, facilityID: 1, date: "2025-05-10",
		start: "10:00", end: "12:00", status: "completed",
		expected: 0, actual: 0, createdAt: created,
	})

	w := Window{From: created.Add(-time.Hour), To: created.Add(time.Hour)}
	records, err := store.Export(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].AttendanceSuccess, "missing headcount leans toward attended")
}

func TestFacilityUserStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stats, err := store.FacilityUserStats(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, 0.5, stats.ApprovalRate, "unknown users get the neutral prior")
	assert.Equal(t, 0.5, stats.CompletionRate)
	assert.Zero(t, stats.TotalBookings)

	created := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []string{"approved", "approved", "completed", "denied"} {
		insertFacility(t, store, facilityFixture{
			id: int64(i + 1), userID: 7, facilityID: 1, date: "2025-02-10",
			start: "09:00", end: "10:00", status: status,
			createdAt: created.Add(time.Duration(i) * time.Hour),
		})
	}

	stats, err = store.FacilityUserStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBookings)
	assert.InDelta(t, 0.5, stats.ApprovalRate, 1e-9)
	assert.InDelta(t, 0.5, stats.CompletionRate, 1e-9, "1 completed of 2 approved")
}

func TestUpcomingFacilityBookings(t *testing.T) {
	store := setupTestStore(t)
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	insertFacility(t, store, facilityFixture{
		id: 1, userID: 1, facilityID: 1, date: "2025-06-05",
		start: "10:00", end: "12:00", status: "approved",
		createdAt: created,
	})
	insertFacility(t, store, facilityFixture{
		id: 2, userID: 1, facilityID: 1, date: "2025-06-05",
		start: "14:00", end: "15:00", status: "pending",
		createdAt: created,
	})
	insertFacility(t, store, facilityFixture{
		id: 3, userID: 1, facilityID: 1, date: "2025-07-20",
		start: "10:00", end: "12:00", status: "approved",
		createdAt: created,
	})

	from := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	records, err := store.UpcomingFacilityBookings(context.Background(), from, 7)
	require.NoError(t, err)
	require.Len(t, records, 1, "only approved bookings inside the horizon")
	assert.Equal(t, int64(1), records[0].BookingID)
	assert.Equal(t, 2, records[0].SameDayFacilityDemand, "pending same-day request still counts toward demand")
}

func TestOpenBadDriver(t *testing.T) {
	_, err := Open("nosuchdriver", ":memory:")
	assert.Error(t, err)
}
