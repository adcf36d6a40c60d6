package charts

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"race-telemetry-dashboard/internal/log"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 400
)

func hexColor(s string) drawing.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) > 6 {
		s = s[:6]
	}
	return drawing.ColorFromHex(s)
}

// RenderPNG draws cfg as PNG. Configurations which cannot be drawn, e.g. without
// any data point, produce a blank image of the requested size.
func RenderPNG(w io.Writer, cfg Config, title string, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	var buf bytes.Buffer
	var err error
	switch {
	case cfg.Empty():
		return blank(w, width, height)
	case cfg.Type == TypeBar:
		err = renderBars(&buf, cfg, title, width, height)
	default:
		err = renderSeries(&buf, cfg, title, width, height)
	}
	if err != nil {
		log.Default().Named("charts").Warn("chart render failed, using blank image",
			log.String("type", string(cfg.Type)), log.ErrorField(err))
		return blank(w, width, height)
	}
	_, err = buf.WriteTo(w)
	return err
}

func renderSeries(w io.Writer, cfg Config, title string, width, height int) error {
	categories := map[string]float64{}
	var ticks []chart.Tick
	for i, label := range cfg.Data.Labels {
		categories[label] = float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: label})
	}

	xr, yr := newBounds(), newBounds()
	series := make([]chart.Series, 0, len(cfg.Data.Datasets))
	for _, ds := range cfg.Data.Datasets {
		if len(ds.Data) == 0 {
			continue
		}
		xs := make([]float64, 0, len(ds.Data))
		ys := make([]float64, 0, len(ds.Data))
		for _, p := range ds.Data {
			x := p.X
			if p.Category != "" {
				x = categories[p.Category]
			}
			xs = append(xs, x)
			ys = append(ys, p.Y)
			xr.add(x)
			yr.add(p.Y)
		}
		style := chart.Style{
			StrokeColor: hexColor(ds.BorderColor),
			StrokeWidth: 2,
		}
		if ds.Dashed() {
			style.StrokeDashArray = []float64{5, 5}
		}
		if cfg.Type == TypeScatter {
			style = chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    hexColor(ds.BackgroundColor),
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    ds.Label,
			Style:   style,
			XValues: xs,
			YValues: ys,
		})
	}

	x := cfg.Options.Scales["x"]
	y := cfg.Options.Scales["y"]
	c := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  x.Title.Text,
			Range: xr.rangeFor(),
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  y.Title.Text,
			Range: yr.rangeFor(),
		},
		Series: series,
	}
	if y.Ticks.Format == FormatLapTimeName {
		c.YAxis.ValueFormatter = func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return FormatLapTime(f)
			}
			return ""
		}
	}
	if cfg.Type != TypeScatter {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}
	return c.Render(chart.PNG, w)
}

func renderBars(w io.Writer, cfg Config, title string, width, height int) error {
	bars := make([]chart.StackedBar, 0, len(cfg.Data.Labels))
	for _, label := range cfg.Data.Labels {
		bar := chart.StackedBar{Name: label}
		for _, ds := range cfg.Data.Datasets {
			for _, p := range ds.Data {
				if p.Category == label && p.Y > 0 {
					bar.Values = append(bar.Values, chart.Value{
						Label: ds.Label,
						Value: p.Y,
						Style: chart.Style{
							FillColor:   hexColor(ds.BackgroundColor),
							StrokeColor: hexColor(ds.BorderColor),
							StrokeWidth: float64(ds.BorderWidth),
						},
					})
				}
			}
		}
		if len(bar.Values) > 0 {
			bars = append(bars, bar)
		}
	}
	sbc := chart.StackedBarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Bars:       bars,
	}
	return sbc.Render(chart.PNG, w)
}

type bounds struct{ min, max float64 }

func newBounds() *bounds { return &bounds{min: math.Inf(1), max: math.Inf(-1)} }

func (b *bounds) add(v float64) {
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

// rangeFor widens degenerate ranges which the renderer refuses to draw.
func (b *bounds) rangeFor() chart.Range {
	if b.min != b.max {
		return nil
	}
	return &chart.ContinuousRange{Min: b.min - 1, Max: b.max + 1}
}

func blank(w io.Writer, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	return png.Encode(w, img)
}
