package main

import (
	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/console"
	"github.com/KI7MT/swx-plotter/internal/render"
	"github.com/KI7MT/swx-plotter/internal/resample"
)

func (a *app) newPlotCmd() *cobra.Command {
	var (
		freq   string
		kind   string
		color  string
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "plot <dataset>",
		Short: "Render one dataset to an image file",
		Long: `Render one dataset to an image file.

Examples:
  swx-plotter plot flares                 # Weekly counts, bar chart
  swx-plotter plot flares --freq 1mo      # Monthly counts
  swx-plotter plot storms --kind line     # Kp index without markers
  swx-plotter plot wind --format svg`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: datasetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := lookupArgs(args)
			if err != nil {
				return err
			}
			d := ds[0]

			if cmd.Flags().Changed("freq") {
				d.Frequency = freq
				if freq != "" {
					d.Plot.Y = resample.CountColumn
				} else if d.Plot.Y == resample.CountColumn {
					d.Plot.Y = d.ValueColumn
				}
			}
			if kind != "" {
				if d.Plot.Kind = render.ParseKind(kind); d.Plot.Kind == render.KindUnknown {
					a.printer.Warning("Unknown chart kind %q, the chart will be empty", kind)
				}
			}
			if color != "" {
				d.Plot.Color = color
			}

			r := a.renderer()
			if outDir != "" {
				r.Dir = outDir
			}
			if format != "" {
				r.Format = format
			}

			t, err := a.load(cmd.Context(), a.source(), d)
			if err != nil {
				return err
			}
			s := &console.Session{Plotter: r, Printer: a.printer}
			return s.Visualize(console.Entry{Dataset: d, Table: t})
		},
	}

	cmd.Flags().StringVar(&freq, "freq", "", "resample frequency, e.g. 1d, 1w, 1mo (empty disables)")
	cmd.Flags().StringVar(&kind, "kind", "", "chart kind: line, line_dot or bar")
	cmd.Flags().StringVar(&color, "color", "", "chart colour name")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default output.dir)")
	cmd.Flags().StringVar(&format, "format", "", "image format: png or svg (default output.format)")
	return cmd
}
