package main

import (
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/resample"
	"github.com/KI7MT/swx-plotter/internal/sink"
	"github.com/KI7MT/swx-plotter/internal/solar"
)

// exportSet holds the rows produced for one dataset.
type exportSet struct {
	dataset solar.Dataset
	events  []sink.EventRow
	counts  []sink.CountRow
}

// flatten loads d and converts it to sink rows. Counts are only produced
// for datasets with a resample frequency.
func (a *app) flatten(cmd *cobra.Command, loadID string, d solar.Dataset) (exportSet, error) {
	set := exportSet{dataset: d}

	t, err := a.load(cmd.Context(), a.source(), d)
	if err != nil {
		return set, err
	}
	if t.IsEmpty() {
		return set, nil
	}

	set.events, err = sink.FlattenEvents(loadID, d.Name, t, solar.TimeColumn, d.ValueColumn)
	if err != nil {
		return set, err
	}

	if d.Frequency != "" {
		counts, err := d.ChartTable(t)
		if err != nil {
			return set, err
		}
		set.counts = sink.FlattenCounts(loadID, d.Name, d.Frequency, counts, solar.TimeColumn, resample.CountColumn)
	}
	return set, nil
}

func (a *app) newExportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export [dataset...]",
		Short: "Write normalised events to Parquet files",
		Long: `Write normalised events, and resampled counts where the dataset has a
frequency, to Parquet files.

Examples:
  swx-plotter export                      # All datasets into ./parquet
  swx-plotter export flares --dir /tmp    # <dir>/flares_events.parquet, flares_counts.parquet`,
		ValidArgs: datasetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := lookupArgs(args)
			if err != nil {
				return err
			}

			loadID := sink.NewLoadID()
			startTime := time.Now()
			files := 0

			for _, d := range ds {
				set, err := a.flatten(cmd, loadID, d)
				if err != nil {
					return err
				}
				if len(set.events) == 0 {
					a.printer.Warning("No data available for %s.", d.Plot.Title)
					continue
				}

				path := filepath.Join(outDir, d.Name+"_events.parquet")
				n, err := sink.WriteParquet(path, set.events)
				if err != nil {
					return errors.Wrapf(err, "export %s", d.Name)
				}
				a.printer.Success("Wrote %d events to %s", n, path)
				files++

				if len(set.counts) > 0 {
					path = filepath.Join(outDir, d.Name+"_counts.parquet")
					n, err = sink.WriteParquet(path, set.counts)
					if err != nil {
						return errors.Wrapf(err, "export %s counts", d.Name)
					}
					a.printer.Success("Wrote %d %s buckets to %s", n, d.Frequency, path)
					files++
				}
			}

			a.printer.Print("Load %s: %d files in %v", loadID, files,
				time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "dir", "d", "parquet", "output directory")
	return cmd
}
