package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotEnoughData is returned when fewer than two distinct observations are available.
var ErrNotEnoughData = errors.New("not enough price history to draw a chart")

const (
	width  = 1024
	height = 400
)

var (
	lineColor = drawing.Color{R: 0, G: 122, B: 255, A: 255}
	fillColor = drawing.Color{R: 0, G: 122, B: 255, A: 40}
)

// Point is one price observation.
type Point struct {
	Time  time.Time
	Price float64
}

// RenderPNG draws points, which must be ordered oldest first, as a PNG line chart.
func RenderPNG(title string, points []Point) ([]byte, error) {
	if len(points) < 2 || !points[len(points)-1].Time.After(points[0].Time) {
		return nil, ErrNotEnoughData
	}

	times := make([]time.Time, 0, len(points))
	prices := make([]float64, 0, len(points))
	for _, p := range points {
		times = append(times, p.Time)
		prices = append(prices, p.Price)
	}
	minValue, maxValue := paddedRange(prices)

	graph := gochart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("02-Jan 15:04"),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: minValue, Max: maxValue},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return humanize.FormatFloat("#,###.##", f)
				}
				return fmt.Sprint(v)
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Price",
				XValues: times,
				YValues: prices,
				Style: gochart.Style{
					StrokeColor: lineColor,
					FillColor:   fillColor,
					StrokeWidth: 2,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange returns the value range with 10% headroom, never empty.
func paddedRange(values []float64) (float64, float64) {
	minValue, maxValue := values[0], values[0]
	for _, v := range values {
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}

	padding := (maxValue - minValue) * 0.1
	if padding == 0 {
		padding = maxValue * 0.05
	}
	if padding == 0 {
		padding = 1
	}
	low := minValue - padding
	if low < 0 {
		low = 0
	}
	return low, maxValue + padding
}
