// internal/content/coerce.go
package content

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	errNotADate    = errors.New("value is not date-like")
	errDateOutside = errors.New("date outside years 0000-9999")
)

// maxEpochMillis is the largest magnitude a JavaScript Date accepts.
const maxEpochMillis = 8.64e15

// CoerceDate converts a front-matter value into a time. Strings are parsed
// leniently (values without a zone are taken as UTC), native timestamps pass
// through, and numbers are read as Unix milliseconds. Results must fall in
// years 0000-9999 so they can be stored and read back as RFC 3339.
func CoerceDate(v any) (time.Time, error) {
	t, err := coerceDate(v)
	if err != nil {
		return time.Time{}, err
	}
	if y := t.UTC().Year(); y < 0 || y > 9999 {
		return time.Time{}, fmt.Errorf("%w: %d", errDateOutside, y)
	}
	return t, nil
}

func coerceDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return floatingToUTC(t), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, errNotADate
		}
		return floatingToUTC(*t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, errNotADate
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
		}
		return parsed, nil
	case int:
		return fromEpochMillis(float64(t))
	case int64:
		return fromEpochMillis(float64(t))
	case uint64:
		return fromEpochMillis(float64(t))
	case float64:
		return fromEpochMillis(t)
	default:
		return time.Time{}, errNotADate
	}
}

func fromEpochMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}, errNotADate
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// floatingToUTC reads TOML local dates and datetimes, which carry the host
// offset in a "*-local" zone, as UTC wall-clock times.
func floatingToUTC(t time.Time) time.Time {
	switch t.Location().String() {
	case "date-local", "datetime-local", "time-local":
		return time.Date(t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t
}
