package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/windfarm-yield/model"
)

var (
	timeColumns      = []string{"time", "timestamp", "datetime", "date"}
	speedColumns     = []string{"ws", "wind_speed", "speed", "windspeed"}
	directionColumns = []string{"wd", "wind_direction", "direction", "winddirection"}
)

// ReadWindCSV reads an hourly (or regularly spaced) wind series. The header
// must name a speed and a direction column; a timestamp column is optional.
// When timestamps are present the step is taken from the first two rows and
// must stay constant.
func ReadWindCSV(r io.Reader, height float64, source string) (*model.WindResource, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("wind csv header: %w", err)
	}
	ti := findColumn(header, timeColumns)
	si := findColumn(header, speedColumns)
	di := findColumn(header, directionColumns)
	if si < 0 || di < 0 {
		return nil, fmt.Errorf("%w: wind csv needs speed and direction columns, got %v", model.ErrInvalidResource, header)
	}

	var (
		samples []model.WindSample
		start   time.Time
		prev    time.Time
		step    time.Duration
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("wind csv line %d: %w", line, err)
		}
		ws, err := strconv.ParseFloat(strings.TrimSpace(rec[si]), 64)
		if err != nil {
			return nil, fmt.Errorf("wind csv line %d speed: %w", line, err)
		}
		wd, err := strconv.ParseFloat(strings.TrimSpace(rec[di]), 64)
		if err != nil {
			return nil, fmt.Errorf("wind csv line %d direction: %w", line, err)
		}
		if ti >= 0 {
			ts, err := parseTimestamp(rec[ti])
			if err != nil {
				return nil, fmt.Errorf("wind csv line %d time: %w", line, err)
			}
			switch len(samples) {
			case 0:
				start = ts
			case 1:
				step = ts.Sub(prev)
				if step <= 0 {
					return nil, fmt.Errorf("%w: wind csv line %d timestamps not increasing", model.ErrInvalidResource, line)
				}
			default:
				if ts.Sub(prev) != step {
					return nil, fmt.Errorf("%w: wind csv line %d breaks the %s step", model.ErrInvalidResource, line, step)
				}
			}
			prev = ts
		}
		samples = append(samples, model.WindSample{Speed: ws, Direction: wd})
	}
	return model.NewWindResource(samples, height, source, start, step)
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
