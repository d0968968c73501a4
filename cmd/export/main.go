// Command export reads the booking history database and writes the
// unified feature table CSV. It is the first stage of the pipeline and
// is safe to re-run at any time: the CSV is replaced atomically.
package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"bookingml/internal/cfg"
	"bookingml/internal/dataset"
	"bookingml/internal/history"
	"bookingml/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	m := metrics.New()
	if c.MetricsPort > 0 {
		go serveMetrics(c.MetricsPort)
	}

	ctx := context.Background()

	store, err := history.Open(c.Driver, c.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", c.Driver).Msg("cannot open booking history database")
	}
	defer store.Close()

	start := time.Now()
	from, to := c.Window(start)
	records, err := store.Export(ctx, history.Window{From: from, To: to})
	if err != nil {
		m.ExportErrors.Inc()
		log.Fatal().Err(err).Msg("export failed")
	}
	m.ExportDuration.Observe(time.Since(start).Seconds())

	entities := map[dataset.EntityType]int{}
	statuses := map[string]int{}
	for _, r := range records {
		entities[r.EntityType]++
		statuses[r.Status]++
	}
	for entity, n := range entities {
		m.ExportedRows.WithLabelValues(string(entity)).Add(float64(n))
	}

	path := filepath.Join(c.DataPath, dataset.TrainingDataFile)
	if err := dataset.WriteCSV(path, records); err != nil {
		m.ExportErrors.Inc()
		log.Fatal().Err(err).Str("path", path).Msg("cannot write feature table")
	}

	event := log.Info().
		Str("path", path).
		Int("rows", len(records)).
		Time("from", from).
		Time("to", to).
		Dur("took", time.Since(start))
	for status, n := range statuses {
		event = event.Int("status_"+status, n)
	}
	event.Msg("feature table exported")
}

func serveMetrics(port int) {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics endpoint failed")
	}
}
