// Package export writes stored metrics out as a training set, either as
// Parquet (github.com/parquet-go/parquet-go) or CSV. The first four columns
// match the feature and label names the scoring model is trained on.
package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/wellness/internal/filex"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/parquet-go/parquet-go"
)

// Row is one exported metric.
type Row struct {
	Steps         int64     `parquet:"steps,snappy"`
	Calories      int64     `parquet:"calories,snappy"`
	SleepHours    float64   `parquet:"sleep_hours,snappy"`
	WellnessScore *float64  `parquet:"wellness_score,optional,snappy"`
	UserID        int64     `parquet:"user_id,snappy"`
	ObservedAt    time.Time `parquet:"observed_at,snappy"`
}

// Columns is the CSV header, in column order.
var Columns = []string{"steps", "calories", "sleep_hours", "wellness_score", "user_id", "observed_at"}

// Format selects the output encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export extension %q (want .parquet or .csv)", filepath.Ext(path))
	}
}

// Rows reads every metric, or only scored ones, ordered by user then time.
func Rows(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, scoredOnly bool) ([]Row, error) {
	metrics, err := m.Metrics(db).ListAll(ctx, scoredOnly)
	if err != nil {
		return nil, err
	}
	return FromMetrics(metrics), nil
}

func FromMetrics(metrics []models.Metric) []Row {
	rows := make([]Row, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, Row{
			Steps:         m.Steps,
			Calories:      m.Calories,
			SleepHours:    m.SleepHours,
			WellnessScore: m.WellnessScore,
			UserID:        m.UserID,
			ObservedAt:    m.ObservedAt.UTC(),
		})
	}
	return rows
}

// WriteParquet encodes rows as a single Parquet file body.
func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteCSV encodes rows with a header. An unscored row has an empty
// wellness_score cell.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		score := ""
		if r.WellnessScore != nil {
			score = strconv.FormatFloat(*r.WellnessScore, 'f', -1, 64)
		}
		record := []string{
			strconv.FormatInt(r.Steps, 10),
			strconv.FormatInt(r.Calories, 10),
			strconv.FormatFloat(r.SleepHours, 'f', -1, 64),
			score,
			strconv.FormatInt(r.UserID, 10),
			r.ObservedAt.Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path (and its directory) and writes rows in the format
// implied by its extension.
func WriteFile(path string, rows []Row) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return err
	}

	file, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatParquet:
		err = WriteParquet(file, rows)
	default:
		err = WriteCSV(file, rows)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
