// Package report renders a training run into an xlsx workbook: one
// metrics sheet across both models and one feature importance sheet for
// the approval tree. Operators who review model quality live in
// spreadsheets, not in log output.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bookingml/internal/ml"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	metricsSheet    = "Metrics"
	importanceSheet = "Feature Importance"
)

// Write renders the two trained artifacts into an xlsx file at path.
func Write(path string, approval, noShow *ml.Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeMetricsSheet(f, approval, noShow); err != nil {
		return err
	}
	if err := writeImportanceSheet(f, approval); err != nil {
		return err
	}
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	log.Info().Str("path", path).Msg("training report written")
	return nil
}

func writeMetricsSheet(f *excelize.File, artifacts ...*ml.Artifact) error {
	index, err := f.NewSheet(metricsSheet)
	if err != nil {
		return fmt.Errorf("create metrics sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Model", "Version", "Samples", "Holdout Rows", "Accuracy",
		"Class", "Precision", "Recall", "F1", "Support", "Notes",
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(metricsSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(metricsSheet, "A1", last, style)
	}

	row := 2
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		for _, class := range a.Evaluation.PerClass {
			values := []interface{}{
				string(a.Kind), a.Version, a.Samples, a.Evaluation.HoldoutRows,
				a.Evaluation.Accuracy, class.Label, class.Precision,
				class.Recall, class.F1, class.Support, notes(a),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(metricsSheet, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(metricsSheet, "A", "K", 16)
	return nil
}

func writeImportanceSheet(f *excelize.File, approval *ml.Artifact) error {
	if _, err := f.NewSheet(importanceSheet); err != nil {
		return fmt.Errorf("create importance sheet: %w", err)
	}

	_ = f.SetCellValue(importanceSheet, "A1", "Feature")
	_ = f.SetCellValue(importanceSheet, "B1", "Importance")
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(importanceSheet, "A1", "B1", style)
	}

	if approval == nil {
		return nil
	}

	// highest importance first; ties resolve by name for a stable sheet
	type pair struct {
		name  string
		value float64
	}
	pairs := make([]pair, 0, len(approval.Importances))
	for name, value := range approval.Importances {
		pairs = append(pairs, pair{name, value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value != pairs[j].value {
			return pairs[i].value > pairs[j].value
		}
		return pairs[i].name < pairs[j].name
	})

	for i, p := range pairs {
		cellA, _ := excelize.CoordinatesToCellName(1, i+2)
		cellB, _ := excelize.CoordinatesToCellName(2, i+2)
		_ = f.SetCellValue(importanceSheet, cellA, p.name)
		_ = f.SetCellValue(importanceSheet, cellB, p.value)
	}

	_ = f.SetColWidth(importanceSheet, "A", "A", 28)
	_ = f.SetColWidth(importanceSheet, "B", "B", 14)
	return nil
}

func notes(a *ml.Artifact) string {
	switch {
	case a.Synthetic:
		return "baseline: trained on synthetic data"
	case a.NoHoldout:
		return "diagnostic: evaluated on training rows"
	default:
		return ""
	}
}
