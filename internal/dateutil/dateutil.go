// Package dateutil handles the ISO calendar dates (YYYY-MM-DD) that key
// every NASA query in this system.
package dateutil

import (
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
)

// Layout is the wire format for all NASA date parameters.
const Layout = "2006-01-02"

// Parse converts a YYYY-MM-DD string into a UTC midnight time.
func Parse(op, s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, apierror.Errorf(apierror.KindInvalidArgument, op,
			"date %q must be in YYYY-MM-DD format", s)
	}
	return t.UTC(), nil
}

// Format renders a time as YYYY-MM-DD in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// ValidateRange checks an inclusive date range. Returns InvalidArgument when
// start is after end, RangeTooLarge when the span exceeds maxDays. A maxDays
// of zero disables the span check.
func ValidateRange(op string, start, end time.Time, maxDays int) error {
	if start.After(end) {
		return apierror.Errorf(apierror.KindInvalidArgument, op,
			"start date %s is after end date %s", Format(start), Format(end))
	}
	if maxDays > 0 && SpanDays(start, end) > maxDays {
		return apierror.Errorf(apierror.KindRangeTooLarge, op,
			"range %s to %s exceeds maximum span of %d days",
			Format(start), Format(end), maxDays)
	}
	return nil
}

// SpanDays returns the number of whole days between start and end.
func SpanDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}

// Days returns every date in [start, end] inclusive, ascending.
func Days(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
