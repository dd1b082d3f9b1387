package experiment

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/stat"

	"github.com/boristopalov/laneavoid/pkg/core"
)

// Summary aggregates the episodes of one evaluation setting.
type Summary struct {
	Name           string
	Episodes       int
	MeanReward     float64
	MeanSteps      float64
	Collisions     int
	LaneDepartures int
	Timeouts       int
	Overrides      int
}

func Summarize(name string, results []EpisodeResult) Summary {
	s := Summary{Name: name, Episodes: len(results)}
	if len(results) == 0 {
		return s
	}

	rewards := make([]float64, len(results))
	steps := make([]float64, len(results))
	for i, r := range results {
		rewards[i] = r.Reward
		steps[i] = float64(r.Steps)
		s.Overrides += r.Overrides
		switch r.Event {
		case core.EventCollision:
			s.Collisions++
		case core.EventLaneDeparture:
			s.LaneDepartures++
		case core.EventTimeout:
			s.Timeouts++
		}
	}
	s.MeanReward = stat.Mean(rewards, nil)
	s.MeanSteps = stat.Mean(steps, nil)
	return s
}

// Rate returns n as a fraction of the episode count.
func (s Summary) Rate(n int) float64 {
	if s.Episodes == 0 {
		return 0
	}
	return float64(n) / float64(s.Episodes)
}

// PrintSummary writes a human-readable block for s. Colours are ANSI escapes
// and should be disabled for non-terminals.
func PrintSummary(w io.Writer, s Summary, colors bool) {
	au := aurora.NewAurora(colors)

	fmt.Fprintf(w, "\n%s\n", au.Bold(fmt.Sprintf("=== %s ===", s.Name)))
	fmt.Fprintf(w, "Mean reward: %.4f\n", s.MeanReward)
	fmt.Fprintf(w, "Mean steps: %.2f\n", s.MeanSteps)
	fmt.Fprintf(w, "Collisions: %s\n", au.Red(fmt.Sprintf("%d (%.1f%%)", s.Collisions, 100*s.Rate(s.Collisions))))
	fmt.Fprintf(w, "Lane departures: %s\n", au.Yellow(fmt.Sprintf("%d (%.1f%%)", s.LaneDepartures, 100*s.Rate(s.LaneDepartures))))
	fmt.Fprintf(w, "Timeouts: %s\n", au.Green(fmt.Sprintf("%d (%.1f%%)", s.Timeouts, 100*s.Rate(s.Timeouts))))
	if s.Overrides > 0 {
		fmt.Fprintf(w, "Shield overrides: %d\n", s.Overrides)
	}
}
