package main

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/common"
	"github.com/KI7MT/swx-plotter/internal/console"
	"github.com/KI7MT/swx-plotter/internal/donki"
	"github.com/KI7MT/swx-plotter/internal/logging"
	"github.com/KI7MT/swx-plotter/internal/render"
	"github.com/KI7MT/swx-plotter/internal/solar"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// app carries state shared by all commands once configuration is loaded.
type app struct {
	cfgFile string
	verbose bool
	offline bool
	quiet   bool
	in      io.Reader

	cfg     *common.Config
	logger  *zap.Logger
	printer *console.Printer
	stats   *common.Stats
}

func newRootCmd(in io.Reader) *cobra.Command {
	a := &app{in: in}

	root := &cobra.Command{
		Use:   "swx-plotter",
		Short: "Space weather plotter for NASA DONKI data",
		Long: `swx-plotter fetches solar flare, geomagnetic storm and solar wind events
from NASA's DONKI service, normalises them into tables and charts them.

Example usage:
  swx-plotter                      # Interactive menu
  swx-plotter plot flares          # Weekly flare counts as a bar chart
  swx-plotter show storms --head 5 # Preview the storm table
  swx-plotter download             # Save raw payloads for offline use
  swx-plotter ingest wind          # Load events into ClickHouse`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMenu(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./swx.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&a.offline, "offline", false, "read raw dumps instead of calling DONKI")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only print errors and requested output")

	root.AddCommand(
		a.newMenuCmd(),
		a.newPlotCmd(),
		a.newShowCmd(),
		a.newDownloadCmd(),
		a.newExportCmd(),
		a.newIngestCmd(),
		a.newDatasetsCmd(),
	)
	return root
}

// init loads configuration and builds the logger, printer and stats.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := common.Load(a.cfgFile)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	if a.offline {
		cfg.Data.Offline = true
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	a.logger, err = logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.printer = console.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), console.ResolveColors(cfg.Output.Colors))
	a.printer.SetQuiet(a.quiet)
	a.stats = common.NewStats(cmd.ErrOrStderr())
	a.stats.SetSilent(a.quiet)

	a.logger.Debug("configuration loaded",
		zap.String("base_url", cfg.API.BaseURL),
		zap.Bool("offline", cfg.Data.Offline),
		zap.String("dump_dir", cfg.Data.DumpDir),
		zap.String("output_dir", cfg.Output.Dir),
	)
	return nil
}

func (a *app) client() *donki.Client {
	return donki.New(donki.Config{
		BaseURL: a.cfg.API.BaseURL,
		APIKey:  a.cfg.API.Key,
		Timeout: a.cfg.API.Timeout,
	}, donki.WithLogger(a.logger), donki.WithStats(a.stats))
}

// source returns the configured payload source: dumps when offline,
// otherwise the DONKI API.
func (a *app) source() donki.Source {
	if a.cfg.Data.Offline {
		return &donki.FileSource{Dir: a.cfg.Data.DumpDir, Logger: a.logger}
	}
	return a.client()
}

func (a *app) renderer() *render.Renderer {
	return render.New(a.cfg.Output.Dir, a.cfg.Output.Format, a.logger)
}

// load fetches and builds one dataset. A failed fetch yields an empty table
// and a warning.
func (a *app) load(ctx context.Context, src donki.Source, d solar.Dataset) (*table.Table, error) {
	start := time.Now()
	a.printer.Info("[%s] Fetching %s...", d.Endpoint, d.Label)

	a.stats.StartReporter()
	t, ok, err := d.Load(ctx, src, a.cfg.Data.StartDate, a.cfg.EndDate(start))
	a.stats.StopReporter()
	if err != nil {
		return nil, err
	}
	if !ok {
		a.printer.Warning("[%s] No data received, continuing with an empty table", d.Endpoint)
		return t, nil
	}

	a.stats.AddRecords(uint64(t.NumRows()))
	a.logger.Info("["+d.Endpoint+"] loaded",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return t, nil
}

// lookupArgs resolves dataset names; none means the whole catalogue.
func lookupArgs(args []string) ([]solar.Dataset, error) {
	if len(args) == 0 {
		return solar.Datasets(), nil
	}
	out := make([]solar.Dataset, 0, len(args))
	for _, name := range args {
		d, err := solar.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func datasetNames() []string {
	var names []string
	for _, d := range solar.Datasets() {
		names = append(names, d.Name, d.Endpoint)
	}
	return names
}
