// Package normalize reshapes backend records into chart points.
//
// Every magnitude is the negation of the backend value. Renderers draw the
// absolute value, so the sign never reaches the screen.
package normalize

import (
	"fmt"
	"time"

	"github.com/projectcapital/capital/pkg/api"
)

const dateLayout = "2006-01-02"

// Normalize converts records for the given chart kind. The input is never
// modified and the result is always a new slice.
func Normalize(kind api.ChartKind, records []api.RawRecord) ([]api.ChartPoint, error) {
	switch kind {
	case api.ChartPie:
		return Pie(records), nil
	case api.ChartLine:
		return Line(records), nil
	case api.ChartStackedBar:
		return Stacked(records), nil
	default:
		return nil, fmt.Errorf("no normalizer for chart kind %s", kind)
	}
}

// Pie maps {category, total} records to category points.
// Records without a category or a numeric total are dropped.
func Pie(records []api.RawRecord) []api.ChartPoint {
	points := make([]api.ChartPoint, 0, len(records))
	for _, r := range records {
		category := r.String("category")
		total, ok := r.Number("total")
		if category == "" || !ok {
			continue
		}
		points = append(points, api.ChartPoint{Category: category, Magnitude: -total})
	}
	return points
}

// Line maps {date, cummulative_total} records to dated points.
// Records whose date is not YYYY-MM-DD are dropped.
func Line(records []api.RawRecord) []api.ChartPoint {
	points := make([]api.ChartPoint, 0, len(records))
	for _, r := range records {
		date := r.String("date")
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		total, ok := r.Number("cummulative_total")
		if !ok {
			total, ok = r.Number("cumulative_total")
		}
		if !ok {
			continue
		}
		points = append(points, api.ChartPoint{Date: date, Magnitude: -total})
	}
	return points
}

// Stacked emits one point per non-date key of each record, keeping the
// record's key order so series appear in first-seen order.
func Stacked(records []api.RawRecord) []api.ChartPoint {
	points := make([]api.ChartPoint, 0, len(records)*2)
	for _, r := range records {
		date := r.String("date")
		if date == "" {
			continue
		}
		for _, f := range r.Fields {
			if f.Key == "date" {
				continue
			}
			v, ok := f.NumberValue()
			if !ok {
				continue
			}
			points = append(points, api.ChartPoint{Date: date, Series: f.Key, Magnitude: -v})
		}
	}
	return points
}
