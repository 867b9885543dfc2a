package availability

import (
	"encoding/json"
	"time"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/timeutil"
)

// DateRange is a half-open interval of calendar days [Start, End).
// Checkout day equals the next guest's check-in day without conflict.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to calendar days and requires End > Start
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: timeutil.Day(start), End: timeutil.Day(end)}
	if !r.End.After(r.Start) {
		return DateRange{}, apperrors.New(apperrors.KindInvalidRange, "end date must be after start date")
	}
	return r, nil
}

// ParseDateRange parses YYYY-MM-DD bounds
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := timeutil.ParseDate(start)
	if err != nil {
		return DateRange{}, apperrors.New(apperrors.KindInvalidRange, "invalid start date %q", start)
	}
	e, err := timeutil.ParseDate(end)
	if err != nil {
		return DateRange{}, apperrors.New(apperrors.KindInvalidRange, "invalid end date %q", end)
	}
	return NewDateRange(s, e)
}

// Overlaps implements s1 < e2 && s2 < e1
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r DateRange) Days() int {
	return timeutil.DaysBetween(r.Start, r.End)
}

func (r DateRange) Months() int {
	return timeutil.MonthsFor(r.Days())
}

func (r DateRange) String() string {
	return r.Start.Format(timeutil.DateLayout) + " to " + r.End.Format(timeutil.DateLayout)
}

type dateRangeJSON struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(timeutil.DateLayout),
		End:   r.End.Format(timeutil.DateLayout),
	})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDateRange(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
