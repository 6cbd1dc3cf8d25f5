package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wellness/internal/server/testdb"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	score := 72.5
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []Row{
		{Steps: 8000, Calories: 2000, SleepHours: 7, WellnessScore: &score, UserID: 1, ObservedAt: at},
		{Steps: 100, Calories: 50, SleepHours: 4.5, UserID: 2, ObservedAt: at.Add(time.Hour)},
	}
}

func TestRowStructTags(t *testing.T) {
	schema := parquet.SchemaOf(new(Row))
	require.NotNil(t, schema)

	for _, colName := range Columns {
		col, ok := schema.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col)
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("out/train.PARQUET")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)

	f, err = FormatFromPath("train.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromPath("train.json")
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"8000", "2000", "7", "72.5", "1", "2025-01-02T03:04:05Z"}, records[1])
	assert.Equal(t, "", records[2][3], "unscored rows leave the label empty")
	assert.Equal(t, "4.5", records[2][2])
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, sampleRows()))

	reader := parquet.NewGenericReader[Row](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()

	got := make([]Row, 2)
	n, err := reader.Read(got)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)

	want := sampleRows()
	assert.Equal(t, want[0].Steps, got[0].Steps)
	require.NotNil(t, got[0].WellnessScore)
	assert.Equal(t, 72.5, *got[0].WellnessScore)
	assert.Nil(t, got[1].WellnessScore)
	assert.True(t, want[1].ObservedAt.Equal(got[1].ObservedAt))
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"nested/train.parquet", "nested/train.csv"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sampleRows()))

		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, fi.Size())
	}

	require.Error(t, WriteFile(filepath.Join(dir, "train.txt"), sampleRows()))
}

func TestRows_FromStore(t *testing.T) {
	db := testdb.NewSQLite(t)
	rm, err := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, err)
	ctx := context.Background()

	u, err := rm.Users(db).Create(ctx, &models.User{Name: "T", Email: "t@example.com", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := rm.Metrics(db).Create(ctx, &models.Metric{UserID: u.ID, ObservedAt: at, Steps: 1, Calories: 2, SleepHours: 3})
	require.NoError(t, err)
	_, err = rm.Metrics(db).Create(ctx, &models.Metric{UserID: u.ID, ObservedAt: at.Add(time.Hour), Steps: 4, Calories: 5, SleepHours: 6})
	require.NoError(t, err)
	_, err = rm.Metrics(db).UpdateScore(ctx, first.ID, 50)
	require.NoError(t, err)

	all, err := Rows(ctx, db, rm, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].Steps)

	scored, err := Rows(ctx, db, rm, true)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, 50.0, *scored[0].WellnessScore)
}
