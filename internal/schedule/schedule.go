// Package schedule parses advertisement posting windows and decides whether
// an advert is due at a given instant.
//
// A window expression looks like "2-10 GMT+3": post between 02:00 and 10:00,
// at most once per day. Windows are evaluated against the deployment's
// configured reference timezone; the GMT offset is validated at parse time
// but deliberately not applied to the evaluation instant (see DESIGN.md).
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/teleads/internal/ads"
)

// Window is a parsed posting window. Start is inclusive, End exclusive.
// A window with Start >= End never matches any hour.
type Window struct {
	Start  int
	End    int
	Offset int
}

// Contains reports whether the given hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// ParseWindow parses an expression of the form "<start>-<end> GMT<±offset>".
func ParseWindow(expr string) (Window, error) {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 2 {
		return Window{}, fmt.Errorf("schedule %q: want \"<start>-<end> GMT<±offset>\"", expr)
	}

	hours := strings.SplitN(fields[0], "-", 2)
	if len(hours) != 2 {
		return Window{}, fmt.Errorf("schedule %q: malformed hour range", expr)
	}
	start, err := strconv.Atoi(hours[0])
	if err != nil {
		return Window{}, fmt.Errorf("schedule %q: start hour: %w", expr, err)
	}
	end, err := strconv.Atoi(hours[1])
	if err != nil {
		return Window{}, fmt.Errorf("schedule %q: end hour: %w", expr, err)
	}
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return Window{}, fmt.Errorf("schedule %q: hours out of range", expr)
	}

	tz := fields[1]
	if !strings.HasPrefix(tz, "GMT") {
		return Window{}, fmt.Errorf("schedule %q: missing GMT marker", expr)
	}
	offset, err := strconv.Atoi(strings.TrimPrefix(tz, "GMT"))
	if err != nil {
		return Window{}, fmt.Errorf("schedule %q: offset: %w", expr, err)
	}

	return Window{Start: start, End: end, Offset: offset}, nil
}

// Due decides whether the advert should be posted at now. The returned error
// is non-nil only when the advert's schedule fails to parse; the advert is
// then not due, and the caller should surface the error as a data-quality
// signal rather than a fault.
//
// lastPosted, when present, suppresses a second posting on the same calendar
// date if the previous pass already landed inside the window.
func Due(ad ads.Advert, now time.Time, lastPosted time.Time, hasLastPosted bool) (bool, error) {
	if !ad.Active {
		return false, nil
	}

	w, err := ParseWindow(ad.Schedule)
	if err != nil {
		return false, err
	}

	if hasLastPosted {
		last := lastPosted.In(now.Location())
		sameDate := last.Year() == now.Year() && last.YearDay() == now.YearDay()
		if sameDate && w.Contains(last.Hour()) {
			return false, nil
		}
	}

	return w.Contains(now.Hour()), nil
}

// FormatWindow renders a window expression as "02:00–10:00" for menus.
// Unparsable expressions are returned unchanged.
func FormatWindow(expr string) string {
	w, err := ParseWindow(expr)
	if err != nil {
		return expr
	}
	return fmt.Sprintf("%02d:00–%02d:00", w.Start, w.End)
}
