package endureio

// columnTranslations maps vendor and profile-specific field names onto
// the canonical column vocabulary. "Power"/"Cadence" are developer field
// names as emitted by e.g. Stryd pods.
var columnTranslations = map[string]string{
	"enhanced_speed":               "speed",
	"position_lat":                 "latitude",
	"position_long":                "longitude",
	"enhanced_altitude":            "altitude",
	"saturated_hemoglobin_percent": "smo2",
	"Power":                        "power",
	"Cadence":                      "cadence",
}

// opinionatedColumns is the canonical column set kept when unopinionated
// columns are excluded.
var opinionatedColumns = map[string]struct{}{
	"timestamp":        {},
	"sport":            {},
	"sub_sport":        {},
	"power":            {},
	"speed":            {},
	"distance":         {},
	"longitude":        {},
	"latitude":         {},
	"altitude":         {},
	"heart_rate":       {},
	"cadence":          {},
	"temperature":      {},
	"core_temperature": {},
	"smo2":             {},
}

// floatColumns are coerced to float64 by the normalizer.
var floatColumns = map[string]struct{}{
	"power":            {},
	"speed":            {},
	"distance":         {},
	"heart_rate":       {},
	"cadence":          {},
	"temperature":      {},
	"core_temperature": {},
	"smo2":             {},
}

// row keeps column insertion order alongside the value map so the output
// table can report columns in first-appearance order.
type row struct {
	keys   []string
	values map[string]any
}

func newRow() *row {
	return &row{values: make(map[string]any)}
}

func (r *row) set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// translateColumns renames keys per columnTranslations. A key keeps its
// original name when the canonical target is already an established
// column and overwrites are disallowed. Pure: the input row is not
// modified.
func translateColumns(in *row, present map[string]struct{}, allowOverwrites bool) *row {
	out := newRow()
	for _, key := range in.keys {
		translated := key
		if canonical, ok := columnTranslations[key]; ok {
			_, taken := present[canonical]
			if !taken || allowOverwrites {
				translated = canonical
			}
		}
		out.set(translated, in.values[key])
	}
	return out
}

// filterColumns keeps only the opinionated column set.
func filterColumns(in *row) *row {
	out := newRow()
	for _, key := range in.keys {
		if _, ok := opinionatedColumns[key]; ok {
			out.set(key, in.values[key])
		}
	}
	return out
}
