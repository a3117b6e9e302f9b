package endureio

import (
	"sort"
	"time"

	"github.com/PySport/EndureIO/fitwire"
)

// manualTrigger marks the implicit closing lap: the end of an activity
// is always a manual boundary, whatever the last lap message recorded.
const manualTrigger = "manual"

type lapBoundary struct {
	start   time.Time
	trigger *string
}

// annotateLaps assigns each row the 0-based index and trigger of the lap
// interval containing it. Consecutive lap start times form half-open
// intervals [start_i, start_i+1); the trailing interval runs from the
// last start to the end of data with trigger forced to "manual". Rows
// before the first start fold into interval 0 so the intervals partition
// the full sample range. With zero lap messages every row stays nil.
func annotateLaps(table *Table, laps []fitwire.Message) {
	boundaries := make([]lapBoundary, 0, len(laps))
	for i := range laps {
		start, ok := laps[i].Time("start_time")
		if !ok {
			continue
		}
		b := lapBoundary{start: start}
		if trigger, ok := laps[i].String("lap_trigger"); ok {
			b.trigger = &trigger
		}
		boundaries = append(boundaries, b)
	}
	if len(boundaries) == 0 {
		return
	}
	sort.SliceStable(boundaries, func(i, j int) bool {
		return boundaries[i].start.Before(boundaries[j].start)
	})

	last := len(boundaries) - 1
	for i := range table.Rows {
		ts := table.Rows[i].Timestamp
		// First boundary strictly after ts; the row belongs to the
		// interval before it.
		next := sort.Search(len(boundaries), func(j int) bool {
			return boundaries[j].start.After(ts)
		})
		idx := next - 1
		if idx < 0 {
			idx = 0
		}

		lap := idx
		table.Rows[i].Lap = &lap
		if idx == last {
			trigger := manualTrigger
			table.Rows[i].LapTrigger = &trigger
		} else {
			table.Rows[i].LapTrigger = boundaries[idx].trigger
		}
	}
}
