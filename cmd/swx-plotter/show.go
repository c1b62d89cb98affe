package main

import (
	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/console"
	"github.com/KI7MT/swx-plotter/internal/resample"
	"github.com/KI7MT/swx-plotter/internal/solar"
)

func (a *app) newShowCmd() *cobra.Command {
	var (
		head int
		freq string
	)

	cmd := &cobra.Command{
		Use:   "show <dataset>",
		Short: "Print the normalised table for a dataset",
		Long: `Print the first rows of a dataset's normalised table.

Examples:
  swx-plotter show storms              # First 10 rows
  swx-plotter show flares --freq 1w    # Weekly counts`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: datasetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := solar.Lookup(args[0])
			if err != nil {
				return err
			}
			t, err := a.load(cmd.Context(), a.source(), d)
			if err != nil {
				return err
			}
			if freq != "" {
				if t, err = resample.Resample(t, solar.TimeColumn, freq); err != nil {
					return err
				}
			}
			a.printer.Info("%s: %d rows, %d columns", d.Label, t.NumRows(), t.NumColumns())
			return console.Preview(a.printer.Out(), t, head)
		},
	}

	cmd.Flags().IntVarP(&head, "head", "n", 10, "number of rows to print")
	cmd.Flags().StringVar(&freq, "freq", "", "resample frequency before printing")
	return cmd
}
