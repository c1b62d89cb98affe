package resample

import (
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/KI7MT/swx-plotter/internal/table"
)

// CountColumn names the per-bucket row count in resampled tables.
const CountColumn = "len"

var (
	// ErrEmptyInput is returned when the input table has no rows.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidFrequency is returned for tokens ParseFrequency rejects.
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrMissingColumn is returned when the time column does not exist.
	ErrMissingColumn = errors.New("missing time column")
)

// Resample counts the rows of t per bucket of the given frequency.
//
// The result has two columns: timeColumn holding bucket starts and
// CountColumn holding row counts. Only non-empty buckets appear, in
// ascending order. Time cells may already be parsed or still be strings in
// table.TimestampLayout; absent and null cells are not counted.
func Resample(t *table.Table, timeColumn, frequency string) (*table.Table, error) {
	if t.IsEmpty() {
		return nil, ErrEmptyInput
	}

	freq, err := ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}

	cells, ok := t.Column(timeColumn)
	if !ok {
		return nil, errors.Wrapf(ErrMissingColumn, "%q", timeColumn)
	}

	counts := make(map[time.Time]int)
	for i, v := range cells {
		if v.IsAbsent() || v.IsNull() {
			continue
		}
		ts, err := table.ToTime(v)
		if err != nil {
			return nil, &table.TimestampParseError{Column: timeColumn, Row: i, Value: v, Err: err}
		}
		counts[freq.Truncate(ts)]++
	}

	buckets := make([]time.Time, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

	starts := make([]table.Value, len(buckets))
	lens := make([]table.Value, len(buckets))
	for i, b := range buckets {
		starts[i] = table.Time(b)
		lens[i] = table.Number(float64(counts[b]))
	}

	return table.FromColumns(
		table.Column{Name: timeColumn, Values: starts},
		table.Column{Name: CountColumn, Values: lens},
	)
}
