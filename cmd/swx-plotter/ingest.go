package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/sink"
)

func (a *app) newIngestCmd() *cobra.Command {
	var protocol string

	cmd := &cobra.Command{
		Use:   "ingest [dataset...]",
		Short: "Load normalised events into ClickHouse",
		Long: `Load normalised events, and resampled counts where the dataset has a
frequency, into ClickHouse. The database and tables are created if needed.

Examples:
  swx-plotter ingest                       # All datasets over the native protocol
  swx-plotter ingest storms --protocol batch`,
		ValidArgs: datasetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := lookupArgs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg := a.cfg.ClickHouse
			if protocol != "" {
				cfg.Protocol = protocol
			}

			out := a.printer
			out.Banner(fmt.Sprintf("ClickHouse Ingest v%s", Version))
			out.Print("Target:   %s/%s", cfg.Addr, cfg.Database)
			out.Print("Protocol: %s", cfg.Protocol)
			out.Print("")

			w, err := sink.OpenWriter(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.EnsureSchema(ctx); err != nil {
				return err
			}

			loadID := sink.NewLoadID()
			startTime := time.Now()
			var events, buckets int

			for _, d := range ds {
				set, err := a.flatten(cmd, loadID, d)
				if err != nil {
					return err
				}
				if len(set.events) == 0 {
					out.Warning("No data available for %s.", d.Plot.Title)
					continue
				}
				if err := w.WriteEvents(ctx, set.events); err != nil {
					return err
				}
				if err := w.WriteCounts(ctx, set.counts); err != nil {
					return err
				}
				events += len(set.events)
				buckets += len(set.counts)
				a.logger.Info("["+d.Endpoint+"] ingested",
					zap.String("load_id", loadID),
					zap.Int("events", len(set.events)),
					zap.Int("buckets", len(set.counts)))
			}

			out.Print("")
			out.Banner("Ingest Summary")
			out.Print("Load ID: %s", loadID)
			out.Print("Events:  %d", events)
			out.Print("Buckets: %d", buckets)
			out.Print("Elapsed: %v", time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&protocol, "protocol", "", "native (ch-go) or batch (clickhouse-go), default clickhouse.protocol")
	return cmd
}
