package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// TrainingDataFile is the feature table file name inside the data
// directory, shared by the export and train stages.
const TrainingDataFile = "training_data.csv"

// WriteCSV writes the feature table atomically: rows go to a temporary
// file next to the target which is renamed into place only after a
// successful flush. An interrupted export never leaves a half-written
// artifact behind. A nil or empty slice produces a header-only file.
func WriteCSV(path string, records []BookingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := w.Write(records[i].row()); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}

	log.Debug().Str("path", path).Int("rows", len(records)).Msg("feature table written")
	return nil
}

// ReadCSV loads a feature table and validates its header against Columns.
// A header-only file yields an empty slice, not an error; downstream
// stages handle zero rows explicitly.
func ReadCSV(path string) ([]BookingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read feature table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("feature table %s has no header row", path)
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	records := make([]BookingRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("header has %d columns, expected %d", len(header), len(Columns))
	}
	for i, name := range header {
		if name != Columns[i] {
			return fmt.Errorf("header column %d is %q, expected %q", i, name, Columns[i])
		}
	}
	return nil
}
