// Package solar defines the DONKI space-weather datasets the plotter knows
// how to fetch, normalise and chart.
package solar

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/KI7MT/swx-plotter/internal/donki"
	"github.com/KI7MT/swx-plotter/internal/render"
	"github.com/KI7MT/swx-plotter/internal/resample"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// TimeColumn is the normalised event time column shared by all datasets.
const TimeColumn = "time"

// Plot holds the chart settings for a dataset.
type Plot struct {
	Title  string
	XLabel string
	YLabel string
	Y      string // column plotted against TimeColumn
	Kind   render.Kind
	Color  string
}

// Dataset defines a DONKI event source
type Dataset struct {
	Name        string // short CLI name
	Label       string // menu entry
	Endpoint    string // DONKI path segment
	Desc        string
	StartDate   string // YYYY-MM-DD
	Columns     table.ColumnMapping
	Nested      table.NestedSpec
	ValueColumn string // per-event measurement exported by the sinks
	Frequency   string // resample before plotting when set
	Plot        Plot
}

var datasets = []Dataset{
	{
		Name:        "flares",
		Label:       "Solar Flares",
		ValueColumn: "intensity",
		Endpoint:    "FLR",
		Desc:        "Solar flares, counted per week",
		StartDate:   "2013-01-01",
		Columns:     table.ColumnMapping{"beginTime": TimeColumn, "classType": "intensity"},
		Frequency:   "1w",
		Plot: Plot{
			Title:  "Solar Flares Count over the last Sun cycle",
			XLabel: "Time",
			YLabel: "Count",
			Y:      resample.CountColumn,
			Kind:   render.Bar,
			Color:  "red",
		},
	},
	{
		Name:        "storms",
		Label:       "Geomagnetic Storms",
		ValueColumn: "kp_index",
		Endpoint:    "GST",
		Desc:        "Geomagnetic storms, planetary Kp index",
		StartDate:   "2010-01-01",
		Columns:     table.ColumnMapping{"startTime": TimeColumn},
		Nested: table.NestedSpec{{
			Source: "allKpIndex",
			Fields: []table.FieldMap{
				{From: "observedTime", To: TimeColumn},
				{From: "kpIndex", To: "kp_index"},
			},
		}},
		Plot: Plot{
			Title:  "Geomagnetic Storms since 2010",
			XLabel: "Start Time",
			YLabel: "KP Index",
			Y:      "kp_index",
			Kind:   render.LineWithMarkers,
			Color:  "blue",
		},
	},
	{
		Name:        "wind",
		Label:       "Solar Wind",
		ValueColumn: "speed",
		Endpoint:    "WSAEnlilSimulations",
		Desc:        "WSA-Enlil solar wind simulations, CME input speed",
		StartDate:   "2013-01-01",
		Columns:     table.ColumnMapping{"time21_5": TimeColumn},
		Nested: table.NestedSpec{{
			Source: "cmeInputs",
			Fields: []table.FieldMap{
				{From: "cmeStartTime", To: TimeColumn},
				{From: "speed", To: "speed"},
			},
		}},
		Plot: Plot{
			Title:  "Solar Wind Speeds evolution over the last Sun cycle",
			XLabel: "Time",
			YLabel: "Speed (km/s)",
			Y:      "speed",
			Kind:   render.Line,
			Color:  "green",
		},
	},
}

// ErrUnknownDataset is returned by Lookup for unrecognised names.
var ErrUnknownDataset = errors.New("unknown dataset")

// Datasets returns the catalogue in menu order.
func Datasets() []Dataset {
	out := make([]Dataset, len(datasets))
	copy(out, datasets)
	return out
}

// Lookup finds a dataset by name or DONKI endpoint, case-insensitively.
func Lookup(name string) (Dataset, error) {
	for _, d := range datasets {
		if strings.EqualFold(d.Name, name) || strings.EqualFold(d.Endpoint, name) {
			return d, nil
		}
	}
	return Dataset{}, errors.Wrapf(ErrUnknownDataset, "%q", name)
}

// Params builds the DONKI query. An empty start uses the dataset's default
// start date; an empty end means today (UTC).
func (d Dataset) Params(start, end string) map[string]string {
	if start == "" {
		start = d.StartDate
	}
	if end == "" {
		end = time.Now().UTC().Format(time.DateOnly)
	}
	return map[string]string{"startDate": start, "endDate": end}
}

// Build normalises a fetch payload into the dataset's table.
func (d Dataset) Build(payload table.Value) (*table.Table, error) {
	t, err := table.Build(table.Records(payload), d.Columns, d.Nested, TimeColumn)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", d.Endpoint)
	}
	return t, nil
}

// ChartTable returns the table to plot: t resampled to the dataset's
// frequency, or t unchanged when the dataset has none.
func (d Dataset) ChartTable(t *table.Table) (*table.Table, error) {
	if d.Frequency == "" {
		return t, nil
	}
	return resample.Resample(t, TimeColumn, d.Frequency)
}

// RenderOptions converts the plot settings for the renderer.
func (d Dataset) RenderOptions() render.Options {
	return render.Options{
		X:      TimeColumn,
		Y:      d.Plot.Y,
		Title:  d.Plot.Title,
		XLabel: d.Plot.XLabel,
		YLabel: d.Plot.YLabel,
		Kind:   d.Plot.Kind,
		Color:  d.Plot.Color,
		Name:   d.Name,
	}
}

// Load fetches and builds the dataset. A fetch that yields no data gives an
// empty table and ok=false.
func (d Dataset) Load(ctx context.Context, src donki.Source, start, end string) (t *table.Table, ok bool, err error) {
	payload, ok := src.Fetch(ctx, d.Endpoint, d.Params(start, end))
	if !ok {
		return table.New(), false, nil
	}
	t, err = d.Build(payload)
	if err != nil {
		return nil, true, err
	}
	return t, true, nil
}
