package endureio

import "time"

// Sample is one row of a decoded activity: a record message enriched
// with lap segmentation and the duration since the previous row.
type Sample struct {
	// Timestamp is the row's time index, converted to the activity's
	// local offset when one was resolved.
	Timestamp time.Time

	// Values holds every decoded column, always including sport and
	// sub_sport. Numeric columns from the float set are coerced to
	// float64; missing/invalid values are nil.
	Values map[string]any

	// Lap and LapTrigger are nil only when the file carries no lap
	// messages.
	Lap        *int
	LapTrigger *string

	// Duration is the gap to the previous row, nil on the first row.
	Duration *time.Duration
}

// Table is the decoded activity: rows ordered by non-decreasing
// timestamp plus document-level metadata.
type Table struct {
	// Columns lists value columns in order of first appearance.
	// Timestamp, lap, lap_trigger and duration are typed Sample fields
	// and not listed here.
	Columns []string

	Rows []Sample

	// Device is the resolved creator device identity, "" when no
	// creator device_info message could be resolved.
	Device string

	// Location is the fixed offset resolved from the activity message,
	// nil when timestamps stay naive UTC.
	Location *time.Location
}

// HasColumn reports whether the named value column exists.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the named column's values in row order, nil-padded for
// rows that never saw the field.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Rows[i].Values[name]
	}
	return out
}
