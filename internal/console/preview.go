package console

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/KI7MT/swx-plotter/internal/table"
)

// MaxCellWidth truncates long cells such as nested lists.
const MaxCellWidth = 48

// Preview renders the first n rows of t as a text table.
func Preview(w io.Writer, t *table.Table, n int) error {
	if t.NumColumns() == 0 {
		_, err := fmt.Fprintln(w, "(empty table)")
		return err
	}

	head := t.Head(n)
	tbl := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.Off,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.On,
				},
			},
		}),
	)

	tbl.Header(t.Columns())
	rows := make([][]string, head.NumRows())
	for i := range rows {
		cells := head.Row(i)
		row := make([]string, len(cells))
		for c, v := range cells {
			row[c] = cellText(v)
		}
		rows[i] = row
	}
	if err := tbl.Bulk(rows); err != nil {
		return err
	}
	if err := tbl.Render(); err != nil {
		return err
	}

	if rest := t.NumRows() - head.NumRows(); rest > 0 {
		_, err := fmt.Fprintf(w, "... %d more rows\n", rest)
		return err
	}
	return nil
}

func cellText(v table.Value) string {
	if v.IsAbsent() {
		return "-"
	}
	if v.IsNull() {
		return "null"
	}
	s := []rune(v.String())
	if len(s) > MaxCellWidth {
		return string(s[:MaxCellWidth-3]) + "..."
	}
	return string(s)
}
