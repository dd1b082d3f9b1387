package plot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMissingColumn = errors.New("monitor file is missing a column")

// Episode is one row of a monitor file.
type Episode struct {
	Reward  float64
	Length  int
	Elapsed float64
}

// ReadMonitor parses a monitor CSV. Lines starting with '#' are skipped and
// the r, l and t columns are located by header name.
func ReadMonitor(r io.Reader) ([]Episode, error) {
	var body bytes.Buffer
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	rows, err := csv.NewReader(&body).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse monitor csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"r", "l", "t"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	episodes := make([]Episode, 0, len(rows)-1)
	for i, row := range rows[1:] {
		reward, err := strconv.ParseFloat(row[cols["r"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad reward: %w", i+1, err)
		}
		length, err := strconv.Atoi(row[cols["l"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad length: %w", i+1, err)
		}
		elapsed, err := strconv.ParseFloat(row[cols["t"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time: %w", i+1, err)
		}
		episodes = append(episodes, Episode{Reward: reward, Length: length, Elapsed: elapsed})
	}
	return episodes, nil
}
