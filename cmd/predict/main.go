// Command predict scores one booking against a persisted model and
// prints the result as JSON on stdout.
//
// Usage:
//
//	predict approval '{"hour_of_day": 14, "user_approval_rate": 0.9}'
//	predict noshow < input.json
//	predict -user-id 42 approval '{"hour_of_day": 14}'
//
// Unset input fields take serving defaults. With -user-id the user's
// live approval and completion rates are looked up in the booking
// history database first. Every failure is reported as an {"error": ...}
// object, never a crash; only invocation errors (bad arguments,
// malformed JSON, unusable config) carry exit code 1. A missing or
// corrupt model artifact is an expected runtime condition for the host
// app and exits 0 with the error object.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"bookingml/internal/cfg"
	"bookingml/internal/history"
	"bookingml/internal/ml"
	"bookingml/internal/mlstore"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// usageError marks failures of the invocation itself, which exit 1.
// Prediction-path failures still produce the error object but exit 0.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func usagef(format string, args ...interface{}) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// the result JSON owns stdout; logs go to stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	userID := flag.Int64("user-id", 0, "look up live user rates in the booking history database")
	flag.Parse()

	if err := run(flag.Args(), *userID); err != nil {
		fail(err)
	}
}

func run(args []string, userID int64) error {
	if len(args) < 1 || len(args) > 2 {
		return usagef("usage: predict [-user-id N] approval|noshow ['{json}']")
	}

	kind := ml.Kind(args[0])
	if kind != ml.KindApproval && kind != ml.KindNoShow {
		return usagef("unknown model %q (want approval or noshow)", args[0])
	}

	input, err := readInput(args)
	if err != nil {
		return err
	}

	c, err := cfg.Load()
	if err != nil {
		return usagef("config load failed: %v", err)
	}

	if userID != 0 {
		if err := fillUserRates(c, userID, &input); err != nil {
			return err
		}
	}

	predictor := ml.NewPredictor(c.ModelPath)
	predictor.AutoApproveMin = c.AutoApproveMin
	predictor.ExtraReminderOver = c.ExtraReminderOver

	var result interface{}
	switch kind {
	case ml.KindApproval:
		res, err := predictor.PredictApproval(input)
		if err != nil {
			return err
		}
		logPrediction(c.DataPath, func(s *mlstore.Store) (string, error) {
			return s.LogApproval(input, res)
		})
		result = res
	case ml.KindNoShow:
		res, err := predictor.PredictNoShow(input)
		if err != nil {
			return err
		}
		logPrediction(c.DataPath, func(s *mlstore.Store) (string, error) {
			return s.LogNoShow(input, res)
		})
		result = res
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readInput(args []string) (ml.Input, error) {
	var data []byte
	if len(args) == 2 {
		data = []byte(args[1])
	} else {
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return ml.Input{}, usagef("read stdin: %v", err)
		}
	}

	if len(data) == 0 {
		return ml.Input{}, nil
	}

	var input ml.Input
	if err := json.Unmarshal(data, &input); err != nil {
		return ml.Input{}, usagef("malformed input JSON: %v", err)
	}
	return input, nil
}

// fillUserRates replaces the rate fields with the user's live history.
// Explicit values in the input still win.
func fillUserRates(c cfg.Settings, userID int64, input *ml.Input) error {
	store, err := history.Open(c.Driver, c.DSN)
	if err != nil {
		return fmt.Errorf("cannot open booking history database: %w", err)
	}
	defer store.Close()

	stats, err := store.FacilityUserStats(context.Background(), userID)
	if err != nil {
		return fmt.Errorf("user stats lookup failed: %w", err)
	}

	if input.UserApprovalRate == nil {
		input.UserApprovalRate = &stats.ApprovalRate
	}
	if input.UserCompletionRate == nil {
		input.UserCompletionRate = &stats.CompletionRate
	}
	return nil
}

// logPrediction appends to the audit store; failures degrade to a
// warning because the prediction itself already succeeded.
func logPrediction(dataPath string, logFn func(*mlstore.Store) (string, error)) {
	store, err := mlstore.New(dataPath)
	if err != nil {
		log.Warn().Err(err).Msg("prediction audit log unavailable")
		return
	}
	defer store.Close()

	if _, err := logFn(store); err != nil {
		log.Warn().Err(err).Msg("prediction not recorded in audit log")
	}
}

func fail(err error) {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Println(string(out))
	if errors.As(err, &usageError{}) {
		os.Exit(1)
	}
}
