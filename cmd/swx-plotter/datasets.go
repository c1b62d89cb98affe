package main

import (
	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/console"
	"github.com/KI7MT/swx-plotter/internal/solar"
	"github.com/KI7MT/swx-plotter/internal/table"
)

func (a *app) newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		Short:   "List available datasets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := catalogue(solar.Datasets())
			if err != nil {
				return err
			}
			return console.Preview(a.printer.Out(), t, t.NumRows())
		},
	}
}

// catalogue lays the dataset definitions out as a table.
func catalogue(ds []solar.Dataset) (*table.Table, error) {
	cols := []table.Column{
		{Name: "name"}, {Name: "endpoint"}, {Name: "start"},
		{Name: "chart"}, {Name: "resample"}, {Name: "description"},
	}
	for _, d := range ds {
		cells := []string{d.Name, d.Endpoint, d.StartDate, d.Plot.Kind.String(), d.Frequency, d.Desc}
		for i, c := range cells {
			cols[i].Values = append(cols[i].Values, table.String(c))
		}
	}
	return table.FromColumns(cols...)
}
