// Command remind scans upcoming approved facility bookings, scores
// their no-show risk, and writes a reminder-candidates CSV for the host
// application's notifier. Bookings at or below the reminder threshold
// are skipped.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookingml/internal/cfg"
	"bookingml/internal/history"
	"bookingml/internal/metrics"
	"bookingml/internal/ml"
	"bookingml/internal/mlstore"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const candidatesFile = "reminder_candidates.csv"

type candidate struct {
	bookingID int64
	userID    int64
	date      string
	noShow    float64
	risk      string
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	m := metrics.New()
	ctx := context.Background()

	store, err := history.Open(c.Driver, c.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", c.Driver).Msg("cannot open booking history database")
	}
	defer store.Close()

	upcoming, err := store.UpcomingFacilityBookings(ctx, time.Now(), c.ReminderDays)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot list upcoming bookings")
	}
	log.Info().Int("bookings", len(upcoming)).Int("days", c.ReminderDays).Msg("scanning upcoming approved facility bookings")

	predictor := ml.NewPredictor(c.ModelPath)
	predictor.ExtraReminderOver = c.ExtraReminderOver

	audit, err := mlstore.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("prediction audit log unavailable")
		audit = nil
	} else {
		defer audit.Close()
	}

	var candidates []candidate
	for _, booking := range upcoming {
		input := ml.RecordInput(booking)

		start := time.Now()
		res, err := predictor.PredictNoShow(input)
		if err != nil {
			m.PredictionErrors.Inc()
			log.Fatal().Err(err).Int64("booking_id", booking.BookingID).Msg("scoring failed, train a model first")
		}
		m.Predictions.WithLabelValues(string(ml.KindNoShow)).Inc()
		m.PredictionLatency.Observe(time.Since(start).Seconds())
		m.PredictionScores.Observe(res.NoShowProb)

		if audit != nil {
			if _, err := audit.LogNoShow(input, res); err != nil {
				log.Warn().Err(err).Int64("booking_id", booking.BookingID).Msg("prediction not recorded in audit log")
			}
		}

		if !res.SendExtraReminder {
			continue
		}
		m.RemindersFlagged.Inc()
		candidates = append(candidates, candidate{
			bookingID: booking.BookingID,
			userID:    booking.UserID,
			date:      booking.BookingDate,
			noShow:    res.NoShowProb,
			risk:      res.RiskLevel,
		})
	}

	path := filepath.Join(c.DataPath, candidatesFile)
	if err := writeCandidates(path, candidates); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("cannot write reminder candidates")
	}

	log.Info().
		Int("scanned", len(upcoming)).
		Int("flagged", len(candidates)).
		Str("path", path).
		Msg("reminder scan complete")
}

// writeCandidates writes the CSV atomically, mirroring the feature
// table convention. Zero candidates still produce a header-only file so
// the notifier can distinguish "ran, nothing to do" from "never ran".
func writeCandidates(path string, candidates []candidate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := csv.NewWriter(f)
	rows := [][]string{{"booking_id", "user_id", "booking_date", "no_show_probability", "risk_level"}}
	for _, c := range candidates {
		rows = append(rows, []string{
			strconv.FormatInt(c.bookingID, 10),
			strconv.FormatInt(c.userID, 10),
			c.date,
			strconv.FormatFloat(c.noShow, 'g', -1, 64),
			c.risk,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write candidates: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
