package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one column of tabular CLI output. Numeric columns
// right-align so ids and counts line up; WidthMax keeps free-text values
// such as episode titles from blowing out the row.
type column struct {
	Title    string
	Numeric  bool
	WidthMax int
}

// countColumns is the label/count shape the queue status and health views
// share.
func countColumns(label string) []column {
	return []column{{Title: label}, {Title: "Count", Numeric: true}}
}

// episodeColumns is the episode list layout. Order matches
// buildEpisodeRows.
func episodeColumns() []column {
	return []column{
		{Title: "ID", Numeric: true},
		{Title: "Title", WidthMax: 48},
		{Title: "Status"},
		{Title: "Stage"},
		{Title: "Progress", Numeric: true},
		{Title: "Created"},
	}
}

// renderTable renders rows under the given column specs. Short rows pad
// with blanks so a missing cell cannot shift later columns.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col.Title
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		align := text.AlignLeft
		if col.Numeric {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    col.WidthMax,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
