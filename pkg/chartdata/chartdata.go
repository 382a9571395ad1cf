// Package chartdata prepares chart series from section documents.
package chartdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/yourusername/report-slides-app/pkg/model"
)

// Series returns the chart's data points, parsing CSV text when no inline
// series is given.
func Series(chart *model.Chart) ([]model.DataPoint, error) {
	if chart == nil {
		return nil, fmt.Errorf("chart configuration is missing")
	}
	if len(chart.Series) > 0 {
		return chart.Series, nil
	}
	if strings.TrimSpace(chart.CSV) == "" {
		return nil, fmt.Errorf("chart has no data")
	}
	return ParseCSV(strings.NewReader(chart.CSV))
}

// ParseCSV reads label,value rows. A first row whose value column is not
// numeric is treated as a header. Thousands separators, currency symbols and
// trailing percent signs are ignored.
func ParseCSV(r io.Reader) ([]model.DataPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var points []model.DataPoint
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row+1, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("csv row %d: expected label,value", row+1)
		}
		value, err := ParseNumber(record[1])
		if err != nil {
			if row == 0 {
				continue
			}
			return nil, fmt.Errorf("csv row %d: %w", row+1, err)
		}
		points = append(points, model.DataPoint{Label: strings.TrimSpace(record[0]), Value: value})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("csv contains no data rows")
	}
	return points, nil
}

// ParseNumber parses a loosely formatted number such as "$1,234.5" or "12%".
func ParseNumber(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "%")
	clean = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(clean)
	if clean == "" {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// FormatNumber renders v compactly: 1234 -> "1.2K", 2500000 -> "2.5M".
func FormatNumber(v float64) string {
	abs := math.Abs(v)
	var (
		scaled float64
		suffix string
	)
	switch {
	case abs >= 1e9:
		scaled, suffix = v/1e9, "B"
	case abs >= 1e6:
		scaled, suffix = v/1e6, "M"
	case abs >= 1e3:
		scaled, suffix = v/1e3, "K"
	default:
		scaled = v
	}
	out := strconv.FormatFloat(scaled, 'f', 1, 64)
	out = strings.TrimSuffix(out, ".0")
	return out + suffix
}

// MaxValue returns the largest value, or 0 for an empty or all-negative series.
func MaxValue(points []model.DataPoint) float64 {
	max := 0.0
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
	}
	return max
}
