package ratings

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var header = table.Row{"Date", "La Revuelta", "Share", "El Hormiguero", "Share"}

// PrintDataset writes the newest limit daily records as a table.
// A limit <= 0 prints everything.
func PrintDataset(w io.Writer, d *Dataset, limit int) {
	t := newTable(w)
	records := d.DailyData
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for _, r := range records {
		t.AppendRow(row(r))
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d days", len(d.DailyData)), "", "", "updated", d.LastUpdated})
	t.Render()
}

// PrintRecord writes a single daily record as a table.
func PrintRecord(w io.Writer, r DailyRecord) {
	t := newTable(w)
	t.AppendRow(row(r))
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return t
}

func row(r DailyRecord) table.Row {
	date := r.Date
	if date == "" {
		date = "(no date)"
	}
	return table.Row{
		date,
		r.LaRevuelta.Viewers, fmt.Sprintf("%.1f%%", r.LaRevuelta.Share),
		r.ElHormiguero.Viewers, fmt.Sprintf("%.1f%%", r.ElHormiguero.Share),
	}
}
