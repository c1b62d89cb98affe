package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"

	"github.com/KI7MT/swx-plotter/internal/table"
)

func timeSeries(t *testing.T, ys ...table.Value) *table.Table {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	xs := make([]table.Value, len(ys))
	for i := range ys {
		xs[i] = table.Time(start.Add(time.Duration(i) * 7 * 24 * time.Hour))
	}
	tbl, err := table.FromColumns(
		table.Column{Name: "time", Values: xs},
		table.Column{Name: "len", Values: ys},
	)
	require.NoError(t, err)
	return tbl
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, Line, ParseKind("line"))
	assert.Equal(t, LineWithMarkers, ParseKind("line_dot"))
	assert.Equal(t, LineWithMarkers, ParseKind("lineWithMarkers"))
	assert.Equal(t, Bar, ParseKind("bar"))
	assert.Equal(t, KindUnknown, ParseKind("pie"))
	assert.Equal(t, "line_dot", LineWithMarkers.String())
}

func TestRender_EmptyTableIsNoOp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	core, logs := observer.New(zapcore.InfoLevel)
	r := New(dir, "png", zap.New(core))

	path, err := r.Render(table.New(), Options{X: "time", Y: "len", Title: "Solar Flares", Kind: Bar})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 1, logs.FilterMessage("no data to plot").Len())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "nothing is written for an empty table")

	path, err = r.Render(nil, Options{Kind: Line})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestRender_Kinds(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "png", nil)
	tbl := timeSeries(t, table.Number(3), table.Number(1), table.Number(4), table.Number(1))

	for _, kind := range []Kind{Line, LineWithMarkers, Bar} {
		path, err := r.Render(tbl, Options{
			X: "time", Y: "len",
			Title: "Weekly " + kind.String(),
			Kind:  kind,
			Color: "red",
		})
		require.NoError(t, err, kind)
		assert.Equal(t, filepath.Join(dir, "weekly-"+FileName(kind.String())+".png"), path)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestRender_UnknownKindSavesEmptyChart(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "svg", nil)

	path, err := r.Render(timeSeries(t, table.Number(1)), Options{X: "time", Y: "len", Title: "Mystery", Kind: KindUnknown})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mystery.svg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Mystery")
}

func TestRender_MissingColumn(t *testing.T) {
	r := New(t.TempDir(), "png", nil)
	_, err := r.Render(timeSeries(t, table.Number(1)), Options{X: "time", Y: "speed", Kind: Line})
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestRender_CategoricalY(t *testing.T) {
	r := New(t.TempDir(), "png", nil)
	tbl := timeSeries(t, table.String("M1.2"), table.String("X1.0"), table.Null(), table.String("C3.4"))

	path, err := r.Render(tbl, Options{X: "time", Y: "len", Title: "Flare class", Kind: LineWithMarkers})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestCollect(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	xs := []table.Value{table.Time(at), table.Absent(), table.Time(at.Add(time.Hour)), table.Time(at.Add(2 * time.Hour))}
	ys := []table.Value{table.String("X1.0"), table.String("M1.0"), table.Number(7), table.String("C1.0")}

	s := collect(xs, ys)
	assert.True(t, s.timeX)
	assert.Equal(t, []string{"C1.0", "M1.0", "X1.0"}, s.categories)
	require.Len(t, s.points, 2)
	assert.Equal(t, float64(at.Unix()), s.points[0].X)
	assert.Equal(t, 2.0, s.points[0].Y)
	assert.Equal(t, 0.0, s.points[1].Y)

	n := collect([]table.Value{table.Number(1), table.Number(2)}, []table.Value{table.Number(5), table.Bool(true)})
	assert.False(t, n.timeX)
	assert.Nil(t, n.categories)
	assert.Len(t, n.points, 1)
}

func TestThinTicks(t *testing.T) {
	ticks := make([]plot.Tick, 50)
	for i := range ticks {
		ticks[i] = plot.Tick{Value: float64(i), Label: "x"}
	}
	out := thinTicks(ticks, MaxTicks)
	labelled := 0
	for _, tk := range out {
		if tk.Label != "" {
			labelled++
		}
	}
	assert.LessOrEqual(t, labelled, MaxTicks)
	assert.Len(t, out, 50)
}

func TestColorAndFileName(t *testing.T) {
	assert.Equal(t, colornames.Red, Color("red"))
	assert.Equal(t, colornames.Green, Color(" Green "))
	assert.Equal(t, colornames.Blue, Color("not-a-colour"))

	assert.Equal(t, "solar-flares-per-week", FileName("Solar Flares (per week)"))
	assert.Equal(t, "chart", FileName("!!"))
}
