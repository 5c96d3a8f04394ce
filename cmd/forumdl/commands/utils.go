package commands

import (
	"forumdl/internal/catalog"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

func recordTable(records []catalog.Record) table.Writer {
	t := newTable()
	t.AppendHeader(table.Row{"Id", "Title", "Author", "Downloads", "Views", "File"})
	for _, record := range records {
		file := record.Filename
		if record.Broken {
			file = "(broken)"
		}
		t.AppendRow(table.Row{
			record.Id,
			record.Title,
			record.Author,
			formatCount(record.Downloads),
			formatCount(record.Views),
			file,
		})
	}
	return t
}
