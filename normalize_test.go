package endureio

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeFloatColumns(t *testing.T) {
	t0 := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)
	table := &Table{
		Columns: []string{"power", "grade", "heart_rate"},
		Rows: []Sample{
			{Timestamp: t0, Values: map[string]any{"power": int64(200), "grade": int64(2), "heart_rate": nil}},
			{Timestamp: t0.Add(time.Second), Values: map[string]any{"power": 210.5, "grade": int64(3)}},
		},
	}

	if err := normalizeFloatColumns(table); err != nil {
		t.Fatalf("normalize error: %v", err)
	}

	if table.Rows[0].Values["power"] != 200.0 {
		t.Fatalf("power = %v (%T), want 200.0", table.Rows[0].Values["power"], table.Rows[0].Values["power"])
	}
	if table.Rows[1].Values["power"] != 210.5 {
		t.Fatalf("power = %v, want 210.5", table.Rows[1].Values["power"])
	}
	// grade is not in the float set and keeps its decoded type.
	if table.Rows[0].Values["grade"] != int64(2) {
		t.Fatalf("grade = %v (%T), want int64 2", table.Rows[0].Values["grade"], table.Rows[0].Values["grade"])
	}
	if table.Rows[0].Values["heart_rate"] != nil {
		t.Fatalf("nil heart_rate mutated to %v", table.Rows[0].Values["heart_rate"])
	}
}

func TestNormalizeRejectsNonNumeric(t *testing.T) {
	table := &Table{
		Columns: []string{"power"},
		Rows: []Sample{
			{Values: map[string]any{"power": "FTP"}},
		},
	}

	err := normalizeFloatColumns(table)
	if !errors.Is(err, ErrTypeCoercion) {
		t.Fatalf("error = %v, want ErrTypeCoercion", err)
	}
}
