// Package render draws chart points as SVG documents.
//
// Layout is computed by the Layout* functions and drawn with go-chart's SVG
// renderer. Each call produces one complete document, so drawing the same
// dataset twice never leaves stale markup behind.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/projectcapital/capital/pkg/api"
)

const (
	fontSize    = 10.0
	placeholder = "Ask a question about your spending to draw a chart"
	noData      = "No spending found for this question"
)

// Render writes one SVG document for the dataset. ChartNone draws a
// placeholder.
func Render(w io.Writer, size Size, kind api.ChartKind, points []api.ChartPoint) error {
	size = size.Clamp()

	var (
		doc []byte
		err error
	)
	switch kind {
	case api.ChartPie:
		doc, err = drawPie(LayoutPie(size, points))
	case api.ChartLine:
		doc, err = drawLine(LayoutLine(size, points))
	case api.ChartStackedBar:
		doc, err = drawStack(LayoutStack(size, points))
	default:
		doc, err = drawMessage(size, placeholder)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(doc)
	return err
}

func newCanvas(size Size) (chart.Renderer, error) {
	r, err := chart.SVG(size.Width, size.Height)
	if err != nil {
		return nil, fmt.Errorf("creating svg renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	r.SetFont(font)
	r.SetFontSize(fontSize)
	r.SetFontColor(labelColor)
	return r, nil
}

func save(r chart.Renderer) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("writing svg: %w", err)
	}
	return buf.Bytes(), nil
}

func drawMessage(size Size, msg string) ([]byte, error) {
	r, err := newCanvas(size)
	if err != nil {
		return nil, err
	}
	r.SetFontColor(emptyColor)
	tb := r.MeasureText(msg)
	r.Text(msg, (size.Width-tb.Width())/2, (size.Height+tb.Height())/2)
	return save(r)
}

func drawPie(l PieLayout) ([]byte, error) {
	if len(l.Sectors) == 0 {
		return drawMessage(l.Size, noData)
	}
	r, err := newCanvas(l.Size)
	if err != nil {
		return nil, err
	}

	cx, cy := int(math.Round(l.CX)), int(math.Round(l.CY))
	tips := make([]tooltip, 0, len(l.Sectors))
	for _, s := range l.Sectors {
		r.SetFillColor(s.Color)
		r.SetStrokeColor(drawing.ColorWhite)
		r.SetStrokeWidth(1)

		// go-chart measures arc angles from three o'clock.
		start := s.Start - math.Pi/2
		if s.Span() >= 2*math.Pi-1e-9 {
			r.ArcTo(cx, cy, l.Radius, l.Radius, start, math.Pi)
			r.ArcTo(cx, cy, l.Radius, l.Radius, start+math.Pi, math.Pi)
		} else {
			r.MoveTo(cx, cy)
			r.ArcTo(cx, cy, l.Radius, l.Radius, start, s.Span())
			r.LineTo(cx, cy)
		}
		r.Close()
		r.FillStroke()

		tips = append(tips, tooltip{elem: "path", attrs: sectorPath(l, s), title: s.Tooltip})
	}

	r.SetFontColor(labelColor)
	for _, s := range l.Sectors {
		name := plainText(s.Label)
		tb := r.MeasureText(name)
		r.Text(name, int(s.LabelX)-tb.Width()/2, int(s.LabelY-0.4*fontSize))
		if s.ShowValue {
			value := FormatValue(s.Value)
			tb = r.MeasureText(value)
			r.Text(value, int(s.LabelX)-tb.Width()/2, int(s.LabelY+1.1*fontSize))
		}
	}

	doc, err := save(r)
	if err != nil {
		return nil, err
	}
	return withTooltips(doc, tips), nil
}

// sectorPath returns the SVG path of a sector for its tooltip hit area.
func sectorPath(l PieLayout, s Sector) string {
	if s.Span() >= 2*math.Pi-1e-9 {
		return fmt.Sprintf(`d="M %.2f %.2f m -%.2f 0 a %.2f %.2f 0 1 0 %.2f 0 a %.2f %.2f 0 1 0 -%.2f 0"`,
			l.CX, l.CY, l.Radius, l.Radius, l.Radius, 2*l.Radius, l.Radius, l.Radius, 2*l.Radius)
	}
	x0, y0 := l.CX+l.Radius*math.Sin(s.Start), l.CY-l.Radius*math.Cos(s.Start)
	x1, y1 := l.CX+l.Radius*math.Sin(s.End), l.CY-l.Radius*math.Cos(s.End)
	large := 0
	if s.Span() > math.Pi {
		large = 1
	}
	return fmt.Sprintf(`d="M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f Z"`,
		l.CX, l.CY, x0, y0, l.Radius, l.Radius, large, x1, y1)
}

func drawLine(l LineLayout) ([]byte, error) {
	if len(l.Points) == 0 {
		return drawMessage(l.Size, noData)
	}

	xs := make([]time.Time, len(l.Points))
	ys := make([]float64, len(l.Points))
	for i, p := range l.Points {
		xs[i] = p.Date
		ys[i] = p.Value
	}

	// go-chart refuses an empty range, so a single day or an all-zero series
	// is widened.
	xmin, xmax := l.XMin, l.XMax
	if !xmax.After(xmin) {
		xmin = xmin.Add(-12 * time.Hour)
		xmax = xmax.Add(12 * time.Hour)
	}
	ymax := l.YMax
	if ymax == 0 {
		ymax = 1
	}

	// go-chart reserves room for the axis labels itself, so the padding only
	// keeps the canvas off the edge.
	m := DefaultMargins
	graph := chart.Chart{
		Width:  l.Size.Width,
		Height: l.Size.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: m.Top, Right: m.Right, Bottom: m.Top, Left: m.Top},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 02"),
			Range:          &chart.ContinuousRange{Min: float64(xmin.UnixNano()), Max: float64(xmax.UnixNano())},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatValue(f)
				}
				return ""
			},
			Range: &chart.ContinuousRange{Min: 0, Max: ymax},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "cumulative",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 1.5,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("rendering line chart: %w", err)
	}
	return buf.Bytes(), nil
}

func drawStack(l StackLayout) ([]byte, error) {
	if len(l.Bands) == 0 || l.YMax == 0 {
		return drawMessage(l.Size, noData)
	}
	r, err := newCanvas(l.Size)
	if err != nil {
		return nil, err
	}

	x0, y1 := int(l.Plot.X0), int(l.Plot.Y1)

	// Y axis: ticks and labels, no domain line.
	r.SetStrokeColor(axisColor)
	r.SetStrokeWidth(1)
	for _, t := range l.Ticks {
		y := int(math.Round(l.Y(t)))
		r.MoveTo(x0-6, y)
		r.LineTo(x0, y)
		r.Stroke()

		label := FormatValue(t)
		tb := r.MeasureText(label)
		r.Text(label, x0-9-tb.Width(), y+tb.Height()/2)
	}

	tips := make([]tooltip, 0, len(l.Bands)*len(l.Series))
	for _, b := range l.Bands {
		for _, s := range b.Segments {
			if s.H <= 0 {
				continue
			}
			r.SetFillColor(s.Color)
			r.SetStrokeColor(drawing.ColorWhite)
			r.SetStrokeWidth(0.5)
			left, top := int(math.Round(s.X)), int(math.Round(s.Y))
			right, bottom := int(math.Round(s.X+s.W)), int(math.Round(s.Y+s.H))
			r.MoveTo(left, top)
			r.LineTo(right, top)
			r.LineTo(right, bottom)
			r.LineTo(left, bottom)
			r.Close()
			r.FillStroke()

			tips = append(tips, tooltip{
				elem:  "rect",
				attrs: fmt.Sprintf(`x="%.2f" y="%.2f" width="%.2f" height="%.2f"`, s.X, s.Y, s.W, s.H),
				title: s.Tooltip,
			})
		}
	}

	// X axis: domain line and one date label per band, thinned when crowded.
	r.SetStrokeColor(axisColor)
	r.SetStrokeWidth(1)
	r.MoveTo(x0, y1)
	r.LineTo(int(l.Plot.X1), y1)
	r.Stroke()

	r.SetFontColor(labelColor)
	stride := labelStride(r, l)
	for i, b := range l.Bands {
		if i%stride != 0 {
			continue
		}
		label := plainText(b.Date)
		tb := r.MeasureText(label)
		r.Text(label, int(b.X+b.W/2)-tb.Width()/2, y1+6+tb.Height())
	}

	doc, err := save(r)
	if err != nil {
		return nil, err
	}
	return withTooltips(doc, tips), nil
}

// labelStride returns how many bands share one x axis label.
func labelStride(r chart.Renderer, l StackLayout) int {
	widest := 0
	for _, b := range l.Bands {
		if w := r.MeasureText(b.Date).Width(); w > widest {
			widest = w
		}
	}
	fit := int(l.Plot.Width()) / (widest + 6)
	if fit < 1 {
		fit = 1
	}
	return (len(l.Bands) + fit - 1) / fit
}

type tooltip struct {
	elem  string
	attrs string
	title string
}

// withTooltips adds transparent hit areas carrying <title> elements just
// before the closing tag. go-chart has no notion of tooltips.
func withTooltips(doc []byte, tips []tooltip) []byte {
	end := bytes.LastIndex(doc, []byte("</svg>"))
	if end < 0 || len(tips) == 0 {
		return doc
	}

	var g strings.Builder
	g.WriteString(`<g class="tooltips" fill="#000" fill-opacity="0">`)
	for _, t := range tips {
		fmt.Fprintf(&g, "<%s %s><title>%s</title></%s>", t.elem, t.attrs, html.EscapeString(t.title), t.elem)
	}
	g.WriteString("</g>")

	out := make([]byte, 0, len(doc)+g.Len())
	out = append(out, doc[:end]...)
	out = append(out, g.String()...)
	return append(out, doc[end:]...)
}
