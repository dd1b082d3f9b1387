package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

var statsHeader = []string{
	"Setting", "Episodes", "MeanReward", "MeanSteps",
	"Collisions", "LaneDepartures", "Timeouts",
	"CollisionRate", "LaneDepartureRate", "TimeoutRate", "ShieldOverrides",
}

// StatsWriter appends one CSV row per evaluated setting.
type StatsWriter struct {
	w      *csv.Writer
	closer io.Closer
}

func NewStatsWriter(w io.Writer) (*StatsWriter, error) {
	sw := &StatsWriter{w: csv.NewWriter(w)}
	if err := sw.w.Write(statsHeader); err != nil {
		return nil, err
	}
	return sw, nil
}

// CreateStatsFile creates path (and its directory) and writes the header.
func CreateStatsFile(path string) (*StatsWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats file: %w", err)
	}
	sw, err := NewStatsWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	sw.closer = f
	return sw, nil
}

func (sw *StatsWriter) Write(s Summary) error {
	row := []string{
		s.Name,
		strconv.Itoa(s.Episodes),
		strconv.FormatFloat(s.MeanReward, 'f', 4, 64),
		strconv.FormatFloat(s.MeanSteps, 'f', 2, 64),
		strconv.Itoa(s.Collisions),
		strconv.Itoa(s.LaneDepartures),
		strconv.Itoa(s.Timeouts),
		strconv.FormatFloat(s.Rate(s.Collisions), 'f', 3, 64),
		strconv.FormatFloat(s.Rate(s.LaneDepartures), 'f', 3, 64),
		strconv.FormatFloat(s.Rate(s.Timeouts), 'f', 3, 64),
		strconv.Itoa(s.Overrides),
	}
	if err := sw.w.Write(row); err != nil {
		return err
	}
	sw.w.Flush()
	return sw.w.Error()
}

func (sw *StatsWriter) Close() error {
	sw.w.Flush()
	if err := sw.w.Error(); err != nil {
		return err
	}
	if sw.closer != nil {
		return sw.closer.Close()
	}
	return nil
}
