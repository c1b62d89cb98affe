// Package sink exports normalised DONKI tables to Parquet files and
// ClickHouse.
package sink

import (
	"github.com/google/uuid"

	"github.com/KI7MT/swx-plotter/internal/table"
)

// EventRow is one table row flattened for export.
type EventRow struct {
	LoadID    string  `parquet:"load_id"`
	Dataset   string  `parquet:"dataset"`
	Row       uint32  `parquet:"row"`
	EventTime int64   `parquet:"event_time_ms"` // Unix milliseconds, 0 when absent
	Value     float64 `parquet:"value"`         // numeric value column
	HasValue  bool    `parquet:"has_value"`
	Label     string  `parquet:"label"`  // string value column, e.g. flare class
	Fields    string  `parquet:"fields"` // all present cells as a JSON object
}

// CountRow is one resampled bucket.
type CountRow struct {
	LoadID    string `parquet:"load_id"`
	Dataset   string `parquet:"dataset"`
	Frequency string `parquet:"frequency"`
	Bucket    int64  `parquet:"bucket_ms"`
	Count     uint32 `parquet:"count"`
}

// NewLoadID returns a fresh identifier grouping the rows of one export.
func NewLoadID() string {
	return uuid.NewString()
}

// FlattenEvents converts t into event rows. timeColumn supplies EventTime and
// valueColumn supplies Value (numbers) or Label (strings); either may be
// missing from t.
func FlattenEvents(loadID, dataset string, t *table.Table, timeColumn, valueColumn string) ([]EventRow, error) {
	n := t.NumRows()
	if n == 0 {
		return nil, nil
	}
	names := t.Columns()
	times, _ := t.Column(timeColumn)
	values, _ := t.Column(valueColumn)

	rows := make([]EventRow, 0, n)
	for i := 0; i < n; i++ {
		r := EventRow{LoadID: loadID, Dataset: dataset, Row: uint32(i)}

		if times != nil && !times[i].IsAbsent() && !times[i].IsNull() {
			ts, err := table.ToTime(times[i])
			if err != nil {
				return nil, &table.TimestampParseError{Column: timeColumn, Row: i, Value: times[i], Err: err}
			}
			r.EventTime = ts.UnixMilli()
		}
		if values != nil {
			if f, ok := values[i].Num(); ok {
				r.Value, r.HasValue = f, true
			} else if s, ok := values[i].Str(); ok {
				r.Label = s
			}
		}

		cells := t.Row(i)
		fields := make([]table.Field, 0, len(cells))
		for c, v := range cells {
			if v.IsAbsent() {
				continue
			}
			fields = append(fields, table.Field{Key: names[c], Value: v})
		}
		js, err := table.Object(fields...).MarshalJSON()
		if err != nil {
			return nil, err
		}
		r.Fields = string(js)

		rows = append(rows, r)
	}
	return rows, nil
}

// FlattenCounts converts a resampled table into count rows.
func FlattenCounts(loadID, dataset, frequency string, t *table.Table, timeColumn, countColumn string) []CountRow {
	buckets, _ := t.Column(timeColumn)
	counts, _ := t.Column(countColumn)
	if buckets == nil || counts == nil {
		return nil
	}
	rows := make([]CountRow, 0, len(buckets))
	for i := range buckets {
		ts, ok := buckets[i].TimeValue()
		if !ok {
			continue
		}
		n, _ := counts[i].Num()
		rows = append(rows, CountRow{
			LoadID:    loadID,
			Dataset:   dataset,
			Frequency: frequency,
			Bucket:    ts.UnixMilli(),
			Count:     uint32(n),
		})
	}
	return rows
}
