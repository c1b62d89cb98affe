package table

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) Value {
	t.Helper()
	v, err := ParseJSON([]byte(doc))
	require.NoError(t, err)
	return v
}

func TestDecode_PreservesKeyOrder(t *testing.T) {
	v := mustParse(t, `{"zeta":1,"alpha":"a","mid":[true,null,{"b":2,"a":1}]}`)

	require.Equal(t, KindObject, v.Kind())
	var keys []string
	for _, f := range v.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	mid, ok := v.Get("mid")
	require.True(t, ok)
	items := mid.Items()
	require.Len(t, items, 3)
	b, _ := items[0].Boolean()
	assert.True(t, b)
	assert.True(t, items[1].IsNull())
	assert.Equal(t, `{"b":2,"a":1}`, items[2].String())
}

func TestDecode_DuplicateKeyLastValueWins(t *testing.T) {
	v := mustParse(t, `{"a":1,"b":2,"a":3}`)
	require.Len(t, v.Fields(), 2)
	a, _ := v.Get("a")
	n, _ := a.Num()
	assert.Equal(t, 3.0, n)
	assert.Equal(t, "a", v.Fields()[0].Key)
}

func TestDecode_RejectsTrailingData(t *testing.T) {
	_, err := ParseJSON([]byte(`[1] [2]`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestValue_MarshalJSONRoundTrip(t *testing.T) {
	doc := `[{"classType":"X1.2","peak":3.5,"linked":[{"activityID":"a"}],"ok":false,"none":null}]`
	v := mustParse(t, doc)
	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	assert.Equal(t, doc, string(out))
}

func TestBuild_ScenarioA(t *testing.T) {
	records := Records(mustParse(t, `[{"beginTime": "2024-01-01T00:00Z", "classType": "M1"}]`))
	mapping := ColumnMapping{"beginTime": "time", "classType": "intensity"}

	tbl, err := Build(records, mapping, nil, "time")
	require.NoError(t, err)

	assert.Equal(t, []string{"time", "intensity"}, tbl.Columns())
	assert.Equal(t, 1, tbl.NumRows())

	times, _ := tbl.Column("time")
	ts, ok := times[0].TimeValue()
	require.True(t, ok, "time column should hold parsed timestamps")
	assert.True(t, ts.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	intensity, _ := tbl.Column("intensity")
	s, _ := intensity[0].Str()
	assert.Equal(t, "M1", s)
}

func TestBuild_EmptyInput(t *testing.T) {
	for name, records := range map[string][]Value{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			tbl, err := Build(records, ColumnMapping{"beginTime": "time"}, nil, "time")
			require.NoError(t, err)
			assert.Equal(t, 0, tbl.NumRows())
			assert.Equal(t, 0, tbl.NumColumns())
			assert.True(t, tbl.IsEmpty())
		})
	}
}

func TestBuild_OnlyNonObjectEntries(t *testing.T) {
	records := Records(mustParse(t, `["a", 1, null, [1,2], true]`))
	tbl, err := Build(records, nil, nil, "time")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 0, tbl.NumColumns())
}

func TestRecords_NonListPayload(t *testing.T) {
	assert.Nil(t, Records(mustParse(t, `{"error":"nope"}`)))
	assert.Nil(t, Records(Absent()))
}

func TestBuild_UnionOfColumnsBackfillsAbsent(t *testing.T) {
	records := Records(mustParse(t, `[{"a":1},{"b":2},{"a":3,"c":"x"},"skip"]`))
	tbl, err := Build(records, nil, nil, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())
	require.Equal(t, 3, tbl.NumRows())

	b, _ := tbl.Column("b")
	assert.True(t, b[0].IsAbsent())
	assert.False(t, b[1].IsAbsent())
	assert.True(t, b[2].IsAbsent())

	c, _ := tbl.Column("c")
	assert.True(t, c[0].IsAbsent())
	assert.Equal(t, "x", c[2].String())
}

func TestBuild_RenameCollisionKeepsFirstPosition(t *testing.T) {
	records := Records(mustParse(t, `[{"startTime":"s","other":1,"time21_5":"w"}]`))
	mapping := ColumnMapping{"startTime": "time", "time21_5": "time"}

	tbl, err := Build(records, mapping, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "other"}, tbl.Columns())
	times, _ := tbl.Column("time")
	assert.Equal(t, "w", times[0].String())
}

func TestBuild_NestedExtraction(t *testing.T) {
	doc := `[{
		"gstID": "2024-05-10T15:00:00-GST-001",
		"startTime": "2024-05-10T15:00Z",
		"allKpIndex": [
			{"observedTime": "2024-05-10T18:00Z", "kpIndex": 8, "source": "NOAA"},
			{"observedTime": "2024-05-11T00:00Z", "kpIndex": 9, "source": "NOAA"}
		]
	}]`
	records := Records(mustParse(t, doc))
	nested := NestedSpec{{
		Source: "allKpIndex",
		Fields: []FieldMap{{From: "observedTime", To: "time"}, {From: "kpIndex", To: "kp_index"}},
	}}

	tbl, err := Build(records, ColumnMapping{"startTime": "time"}, nested, "time")
	require.NoError(t, err)

	assert.Equal(t, []string{"gstID", "time", "allKpIndex", "kp_index"}, tbl.Columns())
	times, _ := tbl.Column("time")
	ts, _ := times[0].TimeValue()
	assert.True(t, ts.Equal(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)), "last nested entry wins")
	kp, _ := tbl.Column("kp_index")
	n, _ := kp[0].Num()
	assert.Equal(t, 9.0, n)
}

func TestBuild_NestedSingleEntryMatchesManualMerge(t *testing.T) {
	nested := NestedSpec{{
		Source: "cmeInputs",
		Fields: []FieldMap{{From: "cmeStartTime", To: "time"}, {From: "speed", To: "speed"}},
	}}
	flattened, err := Build(
		Records(mustParse(t, `[{"time21_5":"2024-01-01T00:00Z","cmeInputs":[{"cmeStartTime":"2024-01-02T03:04Z","speed":512}]}]`)),
		ColumnMapping{"time21_5": "time"}, nested, "time")
	require.NoError(t, err)

	manual, err := Build(
		Records(mustParse(t, `[{"time":"2024-01-02T03:04Z","cmeInputs":[{"cmeStartTime":"2024-01-02T03:04Z","speed":512}],"speed":512}]`)),
		nil, nil, "time")
	require.NoError(t, err)

	assert.Equal(t, manual.Columns(), flattened.Columns())
	for _, col := range []string{"time", "speed"} {
		want, _ := manual.Column(col)
		got, _ := flattened.Column(col)
		assert.Equal(t, want[0].String(), got[0].String(), col)
	}
}

func TestBuild_NestedIgnoresWrongShapes(t *testing.T) {
	records := Records(mustParse(t, `[
		{"cmeInputs": {"speed": 1}},
		{"cmeInputs": "none"},
		{"cmeInputs": [1, "x", {"speed": 700}]},
		{"cmeInputs": [{"other": 1}]}
	]`))
	nested := NestedSpec{{Source: "cmeInputs", Fields: []FieldMap{{From: "speed", To: "speed"}}}}

	tbl, err := Build(records, nil, nested, "")
	require.NoError(t, err)

	speed, ok := tbl.Column("speed")
	require.True(t, ok)
	assert.True(t, speed[0].IsAbsent())
	assert.True(t, speed[1].IsAbsent())
	n, _ := speed[2].Num()
	assert.Equal(t, 700.0, n)
	assert.True(t, speed[3].IsNull(), "missing nested key extracts null")
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	payload := mustParse(t, `[{"beginTime":"2024-01-01T00:00Z","nested":[{"k":"v"}]}]`)
	before := payload.String()

	_, err := Build(Records(payload), ColumnMapping{"beginTime": "time"},
		NestedSpec{{Source: "nested", Fields: []FieldMap{{From: "k", To: "beginTime"}}}}, "time")
	require.NoError(t, err)
	assert.Equal(t, before, payload.String())
}

func TestBuild_MalformedTimestampFailsWholeBuild(t *testing.T) {
	records := Records(mustParse(t, `[{"time":"2024-01-01T00:00Z"},{"time":"2024-01-01 00:00"}]`))
	tbl, err := Build(records, nil, nil, "time")
	require.Error(t, err)
	assert.Nil(t, tbl)
	assert.True(t, errors.Is(err, ErrTimestampParse))

	var perr *TimestampParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "time", perr.Column)
	assert.Equal(t, 1, perr.Row)
}

func TestBuild_NonStringTimestampFails(t *testing.T) {
	records := Records(mustParse(t, `[{"time":1704067200}]`))
	_, err := Build(records, nil, nil, "time")
	assert.ErrorIs(t, err, ErrTimestampParse)
}

func TestBuild_TimestampColumnAbsentOrNullTolerated(t *testing.T) {
	records := Records(mustParse(t, `[{"time":"2024-01-01T00:00Z"},{"time":null},{"other":1}]`))
	tbl, err := Build(records, nil, nil, "time")
	require.NoError(t, err)
	times, _ := tbl.Column("time")
	assert.Equal(t, KindTime, times[0].Kind())
	assert.True(t, times[1].IsNull())
	assert.True(t, times[2].IsAbsent())

	tbl, err = Build(records, nil, nil, "missing")
	require.NoError(t, err)
	assert.False(t, tbl.Has("missing"))
}

func TestBuild_ZeroTimestampIsParsed(t *testing.T) {
	records := Records(mustParse(t, `[{"time":"0001-01-01T00:00Z"}]`))
	tbl, err := Build(records, nil, nil, "time")
	require.NoError(t, err)
	times, _ := tbl.Column("time")
	ts, ok := times[0].TimeValue()
	require.True(t, ok)
	assert.True(t, ts.IsZero())
}

func TestFromColumns_Validates(t *testing.T) {
	_, err := FromColumns(Column{Name: "a", Values: []Value{Number(1)}}, Column{Name: "b"})
	assert.Error(t, err)

	_, err = FromColumns(Column{Name: "a"}, Column{Name: "a"})
	assert.Error(t, err)

	tbl, err := FromColumns(Column{Name: "a", Values: []Value{Number(1), Number(2)}})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestTable_HeadAndRow(t *testing.T) {
	tbl, err := FromColumns(
		Column{Name: "a", Values: []Value{Number(1), Number(2), Number(3)}},
		Column{Name: "b", Values: []Value{String("x"), Absent(), String("z")}},
	)
	require.NoError(t, err)

	head := tbl.Head(2)
	assert.Equal(t, 2, head.NumRows())
	assert.Equal(t, []string{"a", "b"}, head.Columns())

	row := tbl.Row(2)
	assert.Equal(t, "3", row[0].String())
	assert.Equal(t, "z", row[1].String())

	assert.Equal(t, 3, tbl.Head(10).NumRows())

	var nilTable *Table
	assert.True(t, nilTable.IsEmpty())
	assert.Equal(t, 0, nilTable.Head(3).NumRows())
}
