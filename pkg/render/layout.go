package render

import (
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/projectcapital/capital/pkg/api"
)

// Minimum drawing size. Smaller containers are drawn at this size.
const (
	MinWidth  = 200
	MinHeight = 150
)

// minValueAngle is the smallest sector span, in radians, that still gets a
// value label under its name.
const minValueAngle = 0.25

const dateLayout = "2006-01-02"

// Size is the container size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clamp raises each dimension to its minimum.
func (s Size) Clamp() Size {
	if s.Width < MinWidth {
		s.Width = MinWidth
	}
	if s.Height < MinHeight {
		s.Height = MinHeight
	}
	return s
}

// Margins around the plot area.
type Margins struct {
	Top, Right, Bottom, Left int
}

// DefaultMargins leave room for axis labels.
var DefaultMargins = Margins{Top: 20, Right: 20, Bottom: 40, Left: 50}

// Rect is a plot area in canvas coordinates.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func plotArea(size Size) Rect {
	m := DefaultMargins
	return Rect{
		X0: float64(m.Left),
		Y0: float64(m.Top),
		X1: float64(size.Width - m.Right),
		Y1: float64(size.Height - m.Bottom),
	}
}

// Sector is one pie slice. Angles run clockwise from twelve o'clock.
type Sector struct {
	Label      string
	Value      float64
	Start, End float64
	// LabelX and LabelY are the label anchor on the label circle.
	LabelX, LabelY float64
	ShowValue      bool
	Color          drawing.Color
	Tooltip        string
}

// Span returns the sector's angle in radians.
func (s Sector) Span() float64 { return s.End - s.Start }

// PieLayout is the geometry of a pie chart.
type PieLayout struct {
	Size        Size
	CX, CY      float64
	Radius      float64
	LabelRadius float64
	Total       float64
	Sectors     []Sector
}

// LayoutPie sizes sectors by absolute magnitude, in input order.
func LayoutPie(size Size, points []api.ChartPoint) PieLayout {
	size = size.Clamp()
	plot := plotArea(size)

	l := PieLayout{
		Size:   size,
		CX:     float64(size.Width) / 2,
		CY:     float64(size.Height) / 2,
		Radius: math.Max(math.Min(plot.Width(), plot.Height())/2-1, 1),
	}
	l.LabelRadius = l.Radius * 0.8

	for _, p := range points {
		l.Total += math.Abs(p.Magnitude)
	}
	if l.Total == 0 {
		return l
	}

	colors := PiePalette(len(points))
	angle := 0.0
	for i, p := range points {
		v := math.Abs(p.Magnitude)
		span := v / l.Total * 2 * math.Pi
		mid := angle + span/2
		l.Sectors = append(l.Sectors, Sector{
			Label:     p.Category,
			Value:     v,
			Start:     angle,
			End:       angle + span,
			LabelX:    l.CX + l.LabelRadius*math.Sin(mid),
			LabelY:    l.CY - l.LabelRadius*math.Cos(mid),
			ShowValue: span > minValueAngle,
			Color:     colors[i],
			Tooltip:   p.Category + ": " + FormatValue(v),
		})
		angle += span
	}
	return l
}

// LinePoint is a dated value on the line chart.
type LinePoint struct {
	Date  time.Time
	Value float64
}

// LineLayout is the domain of a line chart.
type LineLayout struct {
	Size   Size
	Points []LinePoint
	XMin   time.Time
	XMax   time.Time
	YMax   float64
}

// LayoutLine sorts points by date and computes the axis domains: x spans the
// observed dates and y runs from zero to the largest absolute magnitude.
// Points with unparseable dates are skipped.
func LayoutLine(size Size, points []api.ChartPoint) LineLayout {
	l := LineLayout{Size: size.Clamp()}
	for _, p := range points {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		l.Points = append(l.Points, LinePoint{Date: d, Value: math.Abs(p.Magnitude)})
	}
	if len(l.Points) == 0 {
		return l
	}

	sort.SliceStable(l.Points, func(i, j int) bool {
		return l.Points[i].Date.Before(l.Points[j].Date)
	})
	l.XMin = l.Points[0].Date
	l.XMax = l.Points[len(l.Points)-1].Date
	for _, p := range l.Points {
		l.YMax = math.Max(l.YMax, p.Value)
	}
	return l
}

// Segment is one series' share of a band.
type Segment struct {
	Series  string
	Value   float64
	X, Y    float64
	W, H    float64
	Color   drawing.Color
	Tooltip string
}

// Band is one date's stack.
type Band struct {
	Date     string
	Total    float64
	X, W     float64
	Segments []Segment
}

// StackLayout is the geometry of a stacked bar chart.
type StackLayout struct {
	Size   Size
	Plot   Rect
	Series []string
	YMax   float64
	Ticks  []float64
	Bands  []Band
}

// bandPadding is the share of each step left empty between bands.
const bandPadding = 0.1

// LayoutStack groups points by date and stacks series in first-seen order.
// Bands are ordered by descending total. A series absent from a date adds no
// segment to that band.
func LayoutStack(size Size, points []api.ChartPoint) StackLayout {
	size = size.Clamp()
	l := StackLayout{Size: size, Plot: plotArea(size)}

	seriesIndex := make(map[string]int)
	bandIndex := make(map[string]int)
	for _, p := range points {
		if _, ok := seriesIndex[p.Series]; !ok {
			seriesIndex[p.Series] = len(l.Series)
			l.Series = append(l.Series, p.Series)
		}
		i, ok := bandIndex[p.Date]
		if !ok {
			i = len(l.Bands)
			bandIndex[p.Date] = i
			l.Bands = append(l.Bands, Band{Date: p.Date})
		}
		v := math.Abs(p.Magnitude)
		l.Bands[i].Total += v
		l.Bands[i].Segments = append(l.Bands[i].Segments, Segment{Series: p.Series, Value: v})
	}
	if len(l.Bands) == 0 {
		return l
	}

	sort.SliceStable(l.Bands, func(i, j int) bool {
		return l.Bands[i].Total > l.Bands[j].Total
	})
	for _, b := range l.Bands {
		l.YMax = math.Max(l.YMax, b.Total)
	}
	l.Ticks = Ticks(l.YMax, 5)

	colors := Palette(len(l.Series))
	n := float64(len(l.Bands))
	step := l.Plot.Width() / (n - bandPadding + 2*bandPadding)
	width := step * (1 - bandPadding)
	scale := 0.0
	if l.YMax > 0 {
		scale = l.Plot.Height() / l.YMax
	}

	for i := range l.Bands {
		b := &l.Bands[i]
		b.X = l.Plot.X0 + step*bandPadding + float64(i)*step
		b.W = width

		// Series stack in first-seen order regardless of the order within the record.
		sort.SliceStable(b.Segments, func(x, y int) bool {
			return seriesIndex[b.Segments[x].Series] < seriesIndex[b.Segments[y].Series]
		})
		base := 0.0
		for j := range b.Segments {
			s := &b.Segments[j]
			s.X = b.X
			s.W = width
			s.H = s.Value * scale
			s.Y = l.Plot.Y1 - (base+s.Value)*scale
			s.Color = colors[seriesIndex[s.Series]]
			s.Tooltip = b.Date + " " + s.Series + "\n" + FormatValue(s.Value)
			base += s.Value
		}
	}
	return l
}

// Ticks returns round values from zero up to top, about count of them.
func Ticks(top float64, count int) []float64 {
	if top <= 0 || count < 1 {
		return []float64{0}
	}
	step := niceStep(top / float64(count))
	ticks := []float64{0}
	for i := 1; float64(i)*step <= top*(1+1e-9); i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return ticks
}

func niceStep(raw float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

// Y maps a value to its vertical canvas position.
func (l StackLayout) Y(v float64) float64 {
	if l.YMax <= 0 {
		return l.Plot.Y1
	}
	return l.Plot.Y1 - v/l.YMax*l.Plot.Height()
}
