// Command train fits both booking models from the exported feature
// table and persists their artifacts. Training degrades rather than
// fails on thin data: small samples train without a holdout and zero
// attendance labels fall back to a synthetic no-show baseline.
package main

import (
	"path/filepath"

	"bookingml/internal/cfg"
	"bookingml/internal/dataset"
	"bookingml/internal/metrics"
	"bookingml/internal/ml"
	"bookingml/internal/report"

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

	path := filepath.Join(c.DataPath, dataset.TrainingDataFile)
	records, err := dataset.ReadCSV(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("cannot read feature table, run export first")
	}
	log.Info().Int("rows", len(records)).Str("path", path).Msg("feature table loaded")

	approval, err := ml.TrainApproval(records)
	if err != nil {
		log.Fatal().Err(err).Msg("approval model training failed")
	}
	saveArtifact(c.ModelPath, approval)
	m.ObserveTraining(string(approval.Kind), approval.Evaluation.Accuracy, approval.Samples, approval.Baseline())

	noShow, err := ml.TrainNoShow(records)
	if err != nil {
		log.Fatal().Err(err).Msg("no-show model training failed")
	}
	saveArtifact(c.ModelPath, noShow)
	m.ObserveTraining(string(noShow.Kind), noShow.Evaluation.Accuracy, noShow.Samples, noShow.Baseline())

	if c.ReportPath != "" {
		if err := report.Write(c.ReportPath, approval, noShow); err != nil {
			log.Error().Err(err).Str("path", c.ReportPath).Msg("training report failed")
		}
	}

	log.Info().
		Str("model_path", c.ModelPath).
		Str("approval_version", approval.Version).
		Str("noshow_version", noShow.Version).
		Msg("training complete")
}

func saveArtifact(modelDir string, a *ml.Artifact) {
	path, err := ml.ArtifactPath(modelDir, a.Kind)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot resolve artifact path")
	}
	if err := a.Save(path); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("cannot save model artifact")
	}
	log.Info().Str("model", string(a.Kind)).Str("path", path).Msg("artifact saved")
}
