package plot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

const DefaultWindow = 50

// MovingAverage returns the mean of every full window of xs. When xs is
// shorter than window it is returned unchanged.
func MovingAverage(xs []float64, window int) []float64 {
	if window <= 1 || len(xs) < window {
		out := make([]float64, len(xs))
		copy(out, xs)
		return out
	}
	out := make([]float64, 0, len(xs)-window+1)
	for i := window; i <= len(xs); i++ {
		out = append(out, stat.Mean(xs[i-window:i], nil))
	}
	return out
}

// Render writes an HTML page with reward, episode length and smoothed reward
// curves for episodes.
func Render(w io.Writer, episodes []Episode, window int) error {
	rewards := make([]float64, len(episodes))
	lengths := make([]float64, len(episodes))
	for i, ep := range episodes {
		rewards[i] = ep.Reward
		lengths[i] = float64(ep.Length)
	}

	smoothed := MovingAverage(rewards, window)
	offset := len(rewards) - len(smoothed)

	page := components.NewPage()
	page.PageTitle = "LaneAvoid learning curves"
	page.AddCharts(
		newLine("Reward per episode", "reward", rewards, 0),
		newLine("Episode length", "steps", lengths, 0),
		newLine(fmt.Sprintf("Moving average reward (window %d)", window), "mean reward", smoothed, offset),
	)
	return page.Render(w)
}

// newLine plots ys against episode numbers starting at offset+1.
func newLine(title, series string, ys []float64, offset int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
	)

	xs := make([]string, len(ys))
	items := make([]opts.LineData, len(ys))
	for i, y := range ys {
		xs[i] = fmt.Sprintf("%d", offset+i+1)
		items[i] = opts.LineData{Value: y}
	}
	line.SetXAxis(xs).AddSeries(series, items)
	return line
}
