// Package render draws tables as line, marker or bar charts and saves them
// as image files.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KI7MT/swx-plotter/internal/logging"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// Kind selects the chart style.
type Kind int

const (
	KindUnknown Kind = iota
	Line
	LineWithMarkers
	Bar
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case LineWithMarkers:
		return "line_dot"
	case Bar:
		return "bar"
	default:
		return "unknown"
	}
}

// ParseKind maps a chart style name to a Kind. Unrecognised names give
// KindUnknown.
func ParseKind(s string) Kind {
	switch strings.TrimSpace(s) {
	case "line":
		return Line
	case "line_dot", "lineWithMarkers":
		return LineWithMarkers
	case "bar":
		return Bar
	default:
		return KindUnknown
	}
}

const (
	// MaxTicks bounds the labelled ticks on each axis.
	MaxTicks = 20
	// DateFormat labels time axes.
	DateFormat = "2006-01-02"
)

// ErrMissingColumn is returned when X or Y does not name a table column.
var ErrMissingColumn = errors.New("missing column")

// Options describes one chart.
type Options struct {
	X, Y   string // column names
	Title  string
	XLabel string
	YLabel string
	Kind   Kind
	Color  string // colour name, e.g. "red"; unknown names fall back to blue
	Name   string // output file name without extension; derived from Title when empty
}

// Renderer writes charts into Dir.
type Renderer struct {
	Dir    string
	Format string // png or svg
	Width  vg.Length
	Height vg.Length
	Logger *zap.Logger
}

// New returns a Renderer with 10x5 inch charts.
func New(dir, format string, logger *zap.Logger) *Renderer {
	if format == "" {
		format = "png"
	}
	return &Renderer{
		Dir:    dir,
		Format: format,
		Width:  10 * vg.Inch,
		Height: 5 * vg.Inch,
		Logger: logging.OrNop(logger),
	}
}

// Render draws t and returns the written file path. An empty table draws
// nothing and returns "" with a nil error. An unknown Kind saves a titled
// chart with no data.
func (r *Renderer) Render(t *table.Table, opts Options) (string, error) {
	logger := logging.OrNop(r.Logger)
	if t.IsEmpty() {
		logger.Info("no data to plot", zap.String("title", opts.Title))
		return "", nil
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	if opts.Kind != KindUnknown {
		if err := r.draw(p, t, opts); err != nil {
			return "", err
		}
	} else {
		logger.Warn("unknown plot kind, chart left empty", zap.String("title", opts.Title))
	}

	path, err := r.save(p, opts)
	if err != nil {
		return "", err
	}
	logger.Info("chart saved", zap.String("path", path), zap.Stringer("kind", opts.Kind))
	return path, nil
}

func (r *Renderer) draw(p *plot.Plot, t *table.Table, opts Options) error {
	xs, ok := t.Column(opts.X)
	if !ok {
		return errors.Wrapf(ErrMissingColumn, "x %q", opts.X)
	}
	ys, ok := t.Column(opts.Y)
	if !ok {
		return errors.Wrapf(ErrMissingColumn, "y %q", opts.Y)
	}

	s := collect(xs, ys)
	if s.timeX {
		p.X.Tick.Marker = plot.TimeTicks{Format: DateFormat, Ticker: limitTicks{plot.DefaultTicks{}}}
	} else {
		p.X.Tick.Marker = limitTicks{plot.DefaultTicks{}}
	}
	if s.categories != nil {
		p.Y.Tick.Marker = categoryTicks(s.categories)
	} else {
		p.Y.Tick.Marker = limitTicks{plot.DefaultTicks{}}
	}
	if len(s.points) == 0 {
		return nil
	}

	c := Color(opts.Color)
	switch opts.Kind {
	case Line:
		l, err := plotter.NewLine(s.points)
		if err != nil {
			return errors.Wrap(err, "line")
		}
		l.LineStyle.Color = c
		p.Add(l)
	case LineWithMarkers:
		l, pts, err := plotter.NewLinePoints(s.points)
		if err != nil {
			return errors.Wrap(err, "line points")
		}
		l.LineStyle.Color = c
		pts.GlyphStyle.Color = c
		pts.GlyphStyle.Shape = draw.CircleGlyph{}
		pts.GlyphStyle.Radius = vg.Points(2)
		p.Add(l, pts)
	case Bar:
		p.Add(bars(s.points, c))
	}
	return nil
}

func (r *Renderer) save(p *plot.Plot, opts Options) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	name := opts.Name
	if name == "" {
		name = FileName(opts.Title)
	}
	w, h := r.Width, r.Height
	if w == 0 || h == 0 {
		w, h = 10*vg.Inch, 5*vg.Inch
	}
	path := filepath.Join(r.Dir, fmt.Sprintf("%s.%s", name, r.Format))
	if err := p.Save(w, h, path); err != nil {
		return "", errors.Wrapf(err, "save %s", path)
	}
	return path, nil
}

// FileName turns a chart title into a file name.
func FileName(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		return "chart"
	}
	return name
}

// Color resolves a colour name, falling back to blue.
func Color(name string) color.Color {
	if c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return colornames.Blue
}

type series struct {
	points     plotter.XYs
	timeX      bool
	categories []string // sorted distinct Y strings, nil for numeric Y
}

// collect pairs X and Y cells. Time X becomes Unix seconds. String Y cells
// are mapped to their index among the sorted distinct strings. Rows whose
// cells cannot be placed are skipped.
func collect(xs, ys []table.Value) series {
	var s series
	for _, v := range xs {
		if v.Kind() == table.KindTime {
			s.timeX = true
			break
		}
	}

	index := map[string]int{}
	for _, v := range ys {
		if str, ok := v.Str(); ok {
			index[str] = 0
		}
	}
	if len(index) > 0 {
		s.categories = make([]string, 0, len(index))
		for k := range index {
			s.categories = append(s.categories, k)
		}
		sort.Strings(s.categories)
		for i, k := range s.categories {
			index[k] = i
		}
	}

	for i := range xs {
		if i >= len(ys) {
			break
		}
		x, ok := xValue(xs[i], s.timeX)
		if !ok {
			continue
		}
		var y float64
		if s.categories != nil {
			str, ok := ys[i].Str()
			if !ok {
				continue
			}
			y = float64(index[str])
		} else {
			if y, ok = ys[i].Num(); !ok {
				continue
			}
		}
		s.points = append(s.points, plotter.XY{X: x, Y: y})
	}
	return s
}

func xValue(v table.Value, timeX bool) (float64, bool) {
	if timeX {
		t, ok := v.TimeValue()
		if !ok {
			return 0, false
		}
		return float64(t.Unix()), true
	}
	return v.Num()
}

// bars draws one bar per point, centred on X. Bar width is 80% of the
// closest spacing between points.
func bars(points plotter.XYs, c color.Color) *plotter.Histogram {
	xs := make([]float64, len(points))
	for i, pt := range points {
		xs[i] = pt.X
	}
	sort.Float64s(xs)
	gap := math.Inf(1)
	for i := 1; i < len(xs); i++ {
		if d := xs[i] - xs[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	if math.IsInf(gap, 1) {
		gap = 1
	}
	width := gap * 0.8

	h := &plotter.Histogram{
		Width:     width,
		FillColor: c,
		LineStyle: plotter.DefaultLineStyle,
	}
	for _, pt := range points {
		h.Bins = append(h.Bins, plotter.HistogramBin{
			Min:    pt.X - width/2,
			Max:    pt.X + width/2,
			Weight: pt.Y,
		})
	}
	return h
}

// limitTicks keeps at most MaxTicks labelled ticks from the wrapped ticker;
// the rest become unlabelled minor ticks.
type limitTicks struct {
	plot.Ticker
}

func (l limitTicks) Ticks(min, max float64) []plot.Tick {
	ticks := l.Ticker.Ticks(min, max)
	return thinTicks(ticks, MaxTicks)
}

func thinTicks(ticks []plot.Tick, limit int) []plot.Tick {
	labelled := 0
	for _, t := range ticks {
		if t.Label != "" {
			labelled++
		}
	}
	if labelled <= limit {
		return ticks
	}
	step := (labelled + limit - 1) / limit
	n := 0
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		if n%step != 0 {
			ticks[i].Label = ""
		}
		n++
	}
	return ticks
}

func categoryTicks(categories []string) plot.Ticker {
	ticks := make([]plot.Tick, len(categories))
	for i, c := range categories {
		ticks[i] = plot.Tick{Value: float64(i), Label: c}
	}
	return plot.ConstantTicks(thinTicks(ticks, MaxTicks))
}
