package parse

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout     = "02/01/2006"
	clockLayout    = "15:04"
	dateTimeLayout = "02/01/2006 15:04:05"
)

// remoteLayouts lists the localized date-time formats the remote store is
// known to emit, most specific first.
var remoteLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006, 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006, 15:04",
	"02/01/2006",
}

// Location loads the named timezone, falling back to UTC for an empty name.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// FromMillis converts an epoch-millisecond timestamp into loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// FormatDate renders the dd/mm/yyyy date of an epoch-ms timestamp, "-" for zero.
func FormatDate(ms int64, loc *time.Location) string {
	if ms == 0 {
		return "-"
	}
	return FromMillis(ms, loc).Format(dateLayout)
}

// FormatClock renders the HH:MM time of an epoch-ms timestamp, "-" for zero.
func FormatClock(ms int64, loc *time.Location) string {
	if ms == 0 {
		return "-"
	}
	return FromMillis(ms, loc).Format(clockLayout)
}

// FormatDateTime renders "dd/mm/yyyy HH:MM:SS", "-" for zero.
func FormatDateTime(ms int64, loc *time.Location) string {
	if ms == 0 {
		return "-"
	}
	return FromMillis(ms, loc).Format(dateTimeLayout)
}

// ParseDateTime reads a localized remote date-time string in loc and returns
// epoch milliseconds. RFC3339 is accepted as well.
func ParseDateTime(raw string, loc *time.Location) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	for _, layout := range remoteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("failed to parse timestamp %q", raw)
}

// PeriodKey is the MM_YYYY batching hint the remote shards data by.
func PeriodKey(now time.Time) string {
	return fmt.Sprintf("%02d_%d", int(now.Month()), now.Year())
}
