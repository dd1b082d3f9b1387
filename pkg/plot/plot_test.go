package plot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMonitor = `#{"t_start":1700000000.5,"env_id":"LaneAvoid-v0"}
r,l,t
-10.5,12,0.01
1.2,300,0.5
-5,40,0.75
`

func TestReadMonitor(t *testing.T) {
	episodes, err := ReadMonitor(strings.NewReader(sampleMonitor))
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, Episode{Reward: -10.5, Length: 12, Elapsed: 0.01}, episodes[0])
	assert.Equal(t, 300, episodes[1].Length)
}

func TestReadMonitorColumnOrder(t *testing.T) {
	episodes, err := ReadMonitor(strings.NewReader("t,r,l\n0.5,2.5,7\n"))
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, Episode{Reward: 2.5, Length: 7, Elapsed: 0.5}, episodes[0])
}

func TestReadMonitorErrors(t *testing.T) {
	_, err := ReadMonitor(strings.NewReader("r,l\n1,2\n"))
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadMonitor(strings.NewReader("r,l,t\nx,2,3\n"))
	require.Error(t, err)

	episodes, err := ReadMonitor(strings.NewReader("#only a comment\n"))
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		window int
		want   []float64
	}{
		{"shorter than window", []float64{1, 2}, 3, []float64{1, 2}},
		{"exact window", []float64{1, 2, 3}, 3, []float64{2}},
		{"rolling", []float64{1, 2, 3, 4, 5}, 2, []float64{1.5, 2.5, 3.5, 4.5}},
		{"window of one", []float64{4, 5}, 1, []float64{4, 5}},
		{"empty", nil, 5, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MovingAverage(tt.xs, tt.window)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestRender(t *testing.T) {
	episodes, err := ReadMonitor(strings.NewReader(sampleMonitor))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, episodes, 2))
	html := buf.String()
	assert.Contains(t, html, "Reward per episode")
	assert.Contains(t, html, "Episode length")
	assert.Contains(t, html, "Moving average reward (window 2)")
}
