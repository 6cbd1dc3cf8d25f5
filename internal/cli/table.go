package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func writeMetricsTable(w io.Writer, list []models.Metric) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"ID", "Date", "Steps", "Calories", "Sleep", "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(list))
	for _, m := range list {
		data = append(data, []string{
			strconv.FormatInt(m.ID, 10),
			m.ObservedAt.Format(time.DateTime),
			strconv.FormatInt(m.Steps, 10),
			strconv.FormatInt(m.Calories, 10),
			strconv.FormatFloat(m.SleepHours, 'f', -1, 64),
			formatScore(&m),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
