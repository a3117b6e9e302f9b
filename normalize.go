package endureio

import (
	"errors"
	"fmt"
)

// ErrTypeCoercion reports a designated numeric column holding a value
// that cannot be represented as a float.
var ErrTypeCoercion = errors.New("endureio: type coercion failed")

// normalizeFloatColumns coerces the designated numeric columns to
// float64 in place. Columns that never appeared are left absent and nil
// values stay nil; anything non-numeric is an error surfaced to the
// caller.
func normalizeFloatColumns(table *Table) error {
	for _, column := range table.Columns {
		if _, ok := floatColumns[column]; !ok {
			continue
		}
		for i := range table.Rows {
			value, ok := table.Rows[i].Values[column]
			if !ok || value == nil {
				continue
			}
			coerced, err := toFloat(value)
			if err != nil {
				return fmt.Errorf("%w: column %q: %v", ErrTypeCoercion, column, err)
			}
			table.Rows[i].Values[column] = coerced
		}
	}
	return nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", value, value)
	}
}
