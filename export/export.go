// Package export serializes decoded activity tables for downstream
// tooling: CSV with the table's dynamic column set, and Parquet with the
// canonical activity schema.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	endureio "github.com/PySport/EndureIO"
)

// WriteCSV writes the full table, one row per sample. The header is
// timestamp, the table's value columns in order, then lap, lap_trigger
// and duration_s.
func WriteCSV(w io.Writer, table *endureio.Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(table.Columns)+4)
	header = append(header, "timestamp")
	header = append(header, table.Columns...)
	header = append(header, "lap", "lap_trigger", "duration_s")
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range table.Rows {
		sample := &table.Rows[i]
		rec := make([]string, 0, len(header))
		rec = append(rec, sample.Timestamp.Format(time.RFC3339))
		for _, column := range table.Columns {
			rec = append(rec, formatValue(sample.Values[column]))
		}
		if sample.Lap != nil {
			rec = append(rec, strconv.Itoa(*sample.Lap))
		} else {
			rec = append(rec, "")
		}
		if sample.LapTrigger != nil {
			rec = append(rec, *sample.LapTrigger)
		} else {
			rec = append(rec, "")
		}
		if sample.Duration != nil {
			rec = append(rec, strconv.FormatFloat(sample.Duration.Seconds(), 'f', 3, 64))
		} else {
			rec = append(rec, "")
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func floatOrNaN(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return math.NaN()
	}
}

func stringOr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
