package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/KI7MT/swx-plotter/internal/render"
	"github.com/KI7MT/swx-plotter/internal/resample"
	"github.com/KI7MT/swx-plotter/internal/solar"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// Plotter draws a chart and returns the written file, or "" when nothing
// was drawn.
type Plotter interface {
	Render(t *table.Table, opts render.Options) (string, error)
}

// Entry is a menu choice: a dataset and its already loaded table. Err holds
// the build failure when the dataset could not be loaded.
type Entry struct {
	Dataset solar.Dataset
	Table   *table.Table
	Err     error
}

// Session runs the interactive visualisation menu.
type Session struct {
	Entries []Entry
	Plotter Plotter
	Printer *Printer
	In      io.Reader
}

// Run shows the menu until the user exits or input ends.
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.In)
	exit := len(s.Entries) + 1

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.Printer.Menu("\nChoose an option to visualize:")
		for i, e := range s.Entries {
			s.Printer.Menu("%d. %s", i+1, e.Dataset.Label)
		}
		s.Printer.Menu("%d. Exit", exit)
		s.Printer.Prompt(fmt.Sprintf("Enter your choice (1-%d): ", exit))

		if !scanner.Scan() {
			s.Printer.Print("")
			s.Printer.Info("Exiting the program. Goodbye!")
			return scanner.Err()
		}

		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		switch {
		case err != nil || choice < 1 || choice > exit:
			s.Printer.Warning("Invalid choice. Please try again.")
		case choice == exit:
			s.Printer.Info("Exiting the program. Goodbye!")
			return nil
		default:
			e := s.Entries[choice-1]
			if err := s.Visualize(e); err != nil {
				s.Printer.Error("%s: %v", e.Dataset.Label, err)
			}
		}
	}
}

// Visualize charts one entry. A dataset without rows prints a warning and
// returns nil; build, resample and render failures are returned.
func (s *Session) Visualize(e Entry) error {
	if e.Err != nil {
		return e.Err
	}
	d := e.Dataset
	chart, err := d.ChartTable(e.Table)
	switch {
	case errors.Is(err, resample.ErrEmptyInput):
		s.Printer.Warning("No data available for %s: nothing to resample at %s.", d.Plot.Title, d.Frequency)
		return nil
	case err != nil:
		return err
	}

	path, err := s.Plotter.Render(chart, d.RenderOptions())
	if err != nil {
		return err
	}
	if path == "" {
		s.Printer.Warning("No data available for %s.", d.Plot.Title)
		return nil
	}
	s.Printer.Success("Saved %s", path)
	return nil
}
