package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/KI7MT/swx-plotter/internal/console"
	"github.com/KI7MT/swx-plotter/internal/solar"
)

func (a *app) newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Fetch all datasets and choose charts interactively (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMenu(cmd.Context())
		},
	}
}

func (a *app) runMenu(ctx context.Context) error {
	a.printer.Banner("Welcome to the Space Weather Plotter v" + Version)
	a.printer.Info("Fetching current space weather data from NASA this may take a few minutes...")

	src := a.source()
	var entries []console.Entry
	for _, d := range solar.Datasets() {
		t, err := a.load(ctx, src, d)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.printer.Error("[%s] %v", d.Endpoint, err)
		}
		entries = append(entries, console.Entry{Dataset: d, Table: t, Err: err})
	}
	a.printer.Info("%s", a.stats.Summary())

	s := &console.Session{
		Entries: entries,
		Plotter: a.renderer(),
		Printer: a.printer,
		In:      a.in,
	}
	return s.Run(ctx)
}
