package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/donki"
)

func (a *app) newDownloadCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "download [dataset...]",
		Short: "Save raw DONKI payloads as gzip JSON dumps",
		Long: `Save raw DONKI payloads as gzip JSON dumps for offline use.

Examples:
  swx-plotter download                 # All datasets
  swx-plotter download storms wind     # Selected datasets`,
		ValidArgs: datasetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := lookupArgs(args)
			if err != nil {
				return err
			}
			if destDir == "" {
				destDir = a.cfg.Data.DumpDir
			}

			out := a.printer
			out.Banner(fmt.Sprintf("DONKI Download v%s", Version))
			out.Print("Destination: %s", destDir)
			out.Print("Timeout:     %v", a.cfg.API.Timeout)
			out.Print("")

			client := a.client()
			startTime := time.Now()
			downloaded, failed := 0, 0

			for _, d := range ds {
				out.Info("[%s] Downloading %s...", d.Endpoint, d.Label)
				a.stats.StartReporter()
				path, n, err := donki.Download(cmd.Context(), client, destDir, d.Endpoint,
					d.Params(a.cfg.Data.StartDate, a.cfg.EndDate(startTime)))
				a.stats.StopReporter()
				if err != nil {
					out.Error("[%s] %v", d.Endpoint, err)
					failed++
					continue
				}
				out.Print("  Downloaded %s (%d bytes)", filepath.Base(path), n)
				downloaded++
			}

			out.Print("")
			out.Banner("Download Summary")
			out.Print("Downloaded: %d files", downloaded)
			out.Print("Failed:     %d files", failed)
			out.Print("Elapsed:    %v", time.Since(startTime).Round(time.Millisecond))
			out.Print("%s", a.stats.Summary())

			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(ds))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&destDir, "dest", "", "destination directory (default data.dump_dir)")
	return cmd
}
