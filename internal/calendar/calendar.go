// Package calendar counts business days for the cost model's duration
// classification. A business day is a weekday not listed in the exchange
// holiday file.
package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const dateLayout = "2006-01-02"

// Calendar holds the exchange holidays for the running year(s).
type Calendar struct {
	holidays map[string]struct{}
}

// New returns a calendar with the given holiday dates.
func New(dates []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		c.holidays[d.Format(dateLayout)] = struct{}{}
	}
	return c
}

// holidayFile mirrors the persisted JSON document: {"dates": ["2006-01-02", ...]}.
type holidayFile struct {
	Dates []string `json:"dates"`
}

// Load reads the holiday file. A missing file yields an empty calendar and
// a nil error so the session can run in degraded mode; the caller decides
// whether to log that.
func Load(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read holiday file: %w", err)
	}
	var hf holidayFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("parse holiday file: %w", err)
	}
	dates := make([]time.Time, 0, len(hf.Dates))
	for _, s := range hf.Dates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parse holiday date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	return New(dates), nil
}

// IsHoliday reports whether the date is in the holiday list.
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[t.Format(dateLayout)]
	return ok
}

// BusinessDays counts weekdays from the start date through the end date
// inclusive, minus the holidays falling in that range. A position opened
// and evaluated on the same weekday therefore counts as 1 day.
func (c *Calendar) BusinessDays(from, to time.Time) int {
	from = truncate(from)
	to = truncate(to)
	if to.Before(from) {
		return 0
	}
	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days++
	}
	// ISO dates sort lexically, so the range check works on the keys.
	fromKey, toKey := from.Format(dateLayout), to.Format(dateLayout)
	for key := range c.holidays {
		if key >= fromKey && key <= toKey {
			days--
		}
	}
	return days
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
