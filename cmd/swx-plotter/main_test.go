package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/swx-plotter/internal/donki"
	"github.com/KI7MT/swx-plotter/internal/resample"
	"github.com/KI7MT/swx-plotter/internal/sink"
	"github.com/KI7MT/swx-plotter/internal/solar"
	"github.com/KI7MT/swx-plotter/internal/table"
)

const flarePayload = `[
  {"flrID": "2024-01-01-F1", "beginTime": "2024-01-01T04:10Z", "classType": "M1.2"},
  {"flrID": "2024-01-03-F2", "beginTime": "2024-01-03T11:00Z", "classType": "X1.0"},
  {"flrID": "2024-01-15-F3", "beginTime": "2024-01-15T08:30Z", "classType": "C3.4"}
]`

const stormPayload = `[
  {"gstID": "2024-03-24-G1", "startTime": "2024-03-24T12:00Z",
   "allKpIndex": [{"observedTime": "2024-03-24T15:00Z", "kpIndex": 8}]},
  {"gstID": "2024-05-10-G1", "startTime": "2024-05-10T15:00Z",
   "allKpIndex": [{"observedTime": "2024-05-10T18:00Z", "kpIndex": 9}]}
]`

// testEnv is a scratch directory with a config file pointing dumps, charts
// and logs inside it.
type testEnv struct {
	dir     string
	cfgFile string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`data:
  dump_dir: %q
output:
  dir: %q
  format: svg
  colors: false
log:
  level: error
%s`, filepath.Join(dir, "dumps"), filepath.Join(dir, "charts"), extra)
	path := filepath.Join(dir, "swx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{dir: dir, cfgFile: path}
}

func (e *testEnv) dump(t *testing.T, endpoint, payload string) {
	t.Helper()
	v, err := table.ParseJSON([]byte(payload))
	require.NoError(t, err)
	_, err = donki.WriteDump(donki.DumpPath(filepath.Join(e.dir, "dumps"), endpoint), v)
	require.NoError(t, err)
}

func (e *testEnv) run(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.cfgFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	e := newTestEnv(t, "")
	out, _, err := e.run(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"menu", "plot", "show", "download", "export", "ingest", "datasets"} {
		assert.Contains(t, out, name)
	}
}

func TestDatasetsCommand(t *testing.T) {
	e := newTestEnv(t, "")
	out, _, err := e.run(t, "", "datasets")
	require.NoError(t, err)
	for _, d := range solar.Datasets() {
		assert.Contains(t, out, d.Name)
		assert.Contains(t, out, d.Endpoint)
	}
}

func TestPlotOffline(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", flarePayload)

	out, _, err := e.run(t, "", "--offline", "plot", "flares")
	require.NoError(t, err)

	path := filepath.Join(e.dir, "charts", "flares.svg")
	assert.Contains(t, out, path)
	svg, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "Solar Flares Count over the last Sun cycle")
}

func TestPlotOfflineMissingDump(t *testing.T) {
	e := newTestEnv(t, "")

	_, errOut, err := e.run(t, "", "--offline", "plot", "storms")
	require.NoError(t, err)
	assert.Contains(t, errOut, "No data available for Geomagnetic Storms since 2010.")
	assert.NoFileExists(t, filepath.Join(e.dir, "charts", "storms.svg"))
}

func TestPlotInvalidFrequencyFails(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", flarePayload)

	_, _, err := e.run(t, "", "--offline", "plot", "flares", "--freq", "bogus")
	assert.ErrorIs(t, err, resample.ErrInvalidFrequency)
	assert.NoFileExists(t, filepath.Join(e.dir, "charts", "flares.svg"))
}

func TestPlotQuiet(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", flarePayload)

	out, errOut, err := e.run(t, "", "--offline", "--quiet", "plot", "flares")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotContains(t, errOut, "[Progress]")
	assert.FileExists(t, filepath.Join(e.dir, "charts", "flares.svg"))
}

func TestPlotUnknownDataset(t *testing.T) {
	e := newTestEnv(t, "")
	_, _, err := e.run(t, "", "--offline", "plot", "sunspots")
	assert.ErrorIs(t, err, solar.ErrUnknownDataset)
}

func TestShowOffline(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "GST", stormPayload)

	out, _, err := e.run(t, "", "--offline", "show", "storms", "--head", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows")
	assert.Contains(t, out, "2024-03-24-G1")
	assert.NotContains(t, out, "2024-05-10-G1")
	assert.Contains(t, out, "1 more rows")
}

func TestMenuOffline(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", flarePayload)

	out, errOut, err := e.run(t, "2\n1\n7\n4\n", "--offline")
	require.NoError(t, err)

	assert.Contains(t, out, "Welcome to the Space Weather Plotter")
	assert.Contains(t, out, "Choose an option to visualize:")
	assert.Contains(t, out, "Exiting the program. Goodbye!")
	assert.Contains(t, errOut, "No data available for Geomagnetic Storms since 2010.")
	assert.Contains(t, errOut, "Invalid choice. Please try again.")
	assert.FileExists(t, filepath.Join(e.dir, "charts", "flares.svg"))
}

func TestMenuOfflineBadDumpOnlyAffectsItsDataset(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", `[{"flrID": "bad", "beginTime": "2024-01-01 00:00", "classType": "M1.0"}]`)
	e.dump(t, "GST", stormPayload)

	out, errOut, err := e.run(t, "1\n2\n4\n", "--offline")
	require.NoError(t, err)

	assert.Contains(t, out, "[GST] Fetching Geomagnetic Storms...")
	assert.Contains(t, out, "Exiting the program. Goodbye!")
	assert.Contains(t, errOut, "[ERROR] [FLR]")
	assert.Contains(t, errOut, "[ERROR] Solar Flares:")
	assert.NoFileExists(t, filepath.Join(e.dir, "charts", "flares.svg"))
	assert.FileExists(t, filepath.Join(e.dir, "charts", "storms.svg"))
}

func TestMenuQuietKeepsPrompts(t *testing.T) {
	e := newTestEnv(t, "")

	out, _, err := e.run(t, "4\n", "--offline", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Choose an option to visualize:")
	assert.NotContains(t, out, "Welcome to the Space Weather Plotter")
}

func TestExportOffline(t *testing.T) {
	e := newTestEnv(t, "")
	e.dump(t, "FLR", flarePayload)
	outDir := filepath.Join(e.dir, "parquet")

	_, _, err := e.run(t, "", "--offline", "export", "flares", "--dir", outDir)
	require.NoError(t, err)

	events, err := sink.ReadParquet[sink.EventRow](filepath.Join(outDir, "flares_events.parquet"))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "M1.2", events[0].Label)
	assert.Equal(t, "flares", events[0].Dataset)

	counts, err := sink.ReadParquet[sink.CountRow](filepath.Join(outDir, "flares_counts.parquet"))
	require.NoError(t, err)
	var total uint32
	for _, c := range counts {
		assert.Equal(t, "1w", c.Frequency)
		assert.Equal(t, events[0].LoadID, c.LoadID)
		total += c.Count
	}
	assert.Equal(t, uint32(3), total)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/FLR" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, flarePayload)
	}))
	defer srv.Close()

	e := newTestEnv(t, fmt.Sprintf("api:\n  base_url: %q\n", srv.URL+"/"))

	out, _, err := e.run(t, "", "download", "flares")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded: 1 files")

	v, err := donki.ReadDump(donki.DumpPath(filepath.Join(e.dir, "dumps"), "FLR"))
	require.NoError(t, err)
	assert.Len(t, table.Records(v), 3)

	_, _, err = e.run(t, "", "download", "storms")
	assert.Error(t, err)
}
