package experiment

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/boristopalov/laneavoid/pkg/messaging"
)

// DefaultEnvID names the environment in monitor headers.
const DefaultEnvID = "LaneAvoid-v0"

type monitorHeader struct {
	TStart float64 `json:"t_start"`
	EnvID  string  `json:"env_id"`
}

// Monitor writes per-episode rows in the stable-baselines monitor layout:
// a JSON comment line, a "r,l,t" header, then reward, length and seconds
// since the monitor started.
type Monitor struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	start  time.Time
	now    func() time.Time
}

func NewMonitor(w io.Writer, envID string) (*Monitor, error) {
	m := &Monitor{
		w:     csv.NewWriter(w),
		start: time.Now(),
		now:   time.Now,
	}

	header, err := json.Marshal(monitorHeader{
		TStart: float64(m.start.UnixNano()) / 1e9,
		EnvID:  envID,
	})
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(w, "#%s\n", header); err != nil {
		return nil, err
	}
	if err := m.w.Write([]string{"r", "l", "t"}); err != nil {
		return nil, err
	}
	m.w.Flush()
	return m, m.w.Error()
}

// CreateMonitor creates the monitor file at path, making parent directories.
func CreateMonitor(path, envID string) (*Monitor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor file: %w", err)
	}
	m, err := NewMonitor(f, envID)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.closer = f
	return m, nil
}

func (m *Monitor) Record(res EpisodeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.now().Sub(m.start).Seconds()
	row := []string{
		strconv.FormatFloat(round6(res.Reward), 'f', -1, 64),
		strconv.Itoa(res.Steps),
		strconv.FormatFloat(round6(elapsed), 'f', -1, 64),
	}
	if err := m.w.Write(row); err != nil {
		return err
	}
	m.w.Flush()
	return m.w.Error()
}

// Listen records every EpisodeResult arriving on ch until ch is closed or
// ctx is done.
func (m *Monitor) Listen(ctx context.Context, ch <-chan messaging.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			res, ok := msg.Content.(EpisodeResult)
			if !ok {
				continue
			}
			if err := m.Record(res); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		return err
	}
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
