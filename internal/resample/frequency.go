// Package resample buckets timestamped tables into fixed-width windows and
// counts the rows falling in each window.
package resample

import (
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/go-faster/errors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// fixedUnits are the duration units with a constant length.
var fixedUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  day,
	"w":  week,
}

// calendarUnits are counted in months.
var calendarUnits = map[string]int{
	"mo": 1,
	"q":  3,
	"y":  12,
}

var (
	unixEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	// Monday on or before the Unix epoch; week buckets start on Mondays.
	weekEpoch = time.Date(1969, 12, 29, 0, 0, 0, 0, time.UTC)
)

// Frequency is a parsed bucket width such as "1d", "1w", "6h30m" or "3mo".
type Frequency struct {
	token  string
	fixed  time.Duration
	months int
	weekly bool
}

// ParseFrequency parses a bucket-width token: one or more <count><unit>
// pairs with units ns, us, ms, s, m, h, d, w, mo, q and y. Calendar units
// (mo, q, y) cannot be combined with fixed ones. Failures match
// ErrInvalidFrequency.
func ParseFrequency(token string) (Frequency, error) {
	f := Frequency{token: token}
	invalid := func(reason string) (Frequency, error) {
		return Frequency{}, errors.Wrapf(ErrInvalidFrequency, "%q: %s", token, reason)
	}
	if token == "" {
		return invalid("empty")
	}

	var sawWeek, sawOther bool
	rest := token
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 {
			return invalid("expected a count")
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return invalid("count out of range")
		}
		rest = rest[i:]

		j := 0
		for j < len(rest) && rest[j] >= 'a' && rest[j] <= 'z' {
			j++
		}
		unit := rest[:j]
		rest = rest[j:]

		if months, ok := calendarUnits[unit]; ok {
			if n > math.MaxInt32/int64(months) {
				return invalid("count out of range")
			}
			f.months += int(n) * months
			continue
		}
		d, ok := fixedUnits[unit]
		if !ok {
			return invalid("unknown unit " + strconv.Quote(unit))
		}
		if n > int64(math.MaxInt64/d) || f.fixed > math.MaxInt64-time.Duration(n)*d {
			return invalid("duration out of range")
		}
		f.fixed += time.Duration(n) * d
		if unit == "w" {
			sawWeek = true
		} else {
			sawOther = true
		}
	}

	switch {
	case f.months > 0 && f.fixed > 0:
		return invalid("cannot mix calendar and fixed units")
	case f.months == 0 && f.fixed == 0:
		return invalid("zero width")
	}
	f.weekly = sawWeek && !sawOther
	return f, nil
}

// String returns the token the frequency was parsed from.
func (f Frequency) String() string { return f.token }

// Truncate returns the start of the bucket containing t.
//
// Calendar widths align to month boundaries counted from January 1970.
// Whole-week widths align to Monday 00:00 UTC, every other fixed width to
// the Unix epoch.
func (f Frequency) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if f.months > 0 {
		idx := (t.Year()-1970)*12 + int(t.Month()) - 1
		idx = floorDiv(idx, f.months) * f.months
		return time.Date(1970+floorDiv(idx, 12), time.Month(idx-floorDiv(idx, 12)*12+1), 1, 0, 0, 0, 0, time.UTC)
	}

	origin := unixEpoch
	if f.weekly {
		origin = weekEpoch
	}
	sec := t.Unix() - origin.Unix()

	// Whole-second widths stay in int64 seconds, which covers every year
	// the timestamp layout can express.
	if f.fixed%time.Second == 0 {
		width := int64(f.fixed / time.Second)
		return time.Unix(origin.Unix()+floorDiv64(sec, width)*width, 0).UTC()
	}

	// Sub-second widths need nanosecond offsets beyond the int64 range.
	width := big.NewInt(int64(f.fixed))
	ns := new(big.Int).Mul(big.NewInt(sec), big.NewInt(int64(time.Second)))
	ns.Add(ns, big.NewInt(int64(t.Nanosecond())))
	ns.Mul(new(big.Int).Div(ns, width), width) // Div is Euclidean, so this floors
	start, frac := new(big.Int).DivMod(ns, big.NewInt(int64(time.Second)), new(big.Int))
	return time.Unix(origin.Unix()+start.Int64(), frac.Int64()).UTC()
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
