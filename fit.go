// Package endureio decodes FIT activity files into a normalized,
// time-indexed table of sensor readings with lap segmentation metadata.
// The binary stream is parsed by the fitwire subpackage; this package
// folds the decoded messages into the output table.
package endureio

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/PySport/EndureIO/fitwire"
)

// Options controls column normalization of the decoded table.
type Options struct {
	// Opinionated renames vendor and profile-specific columns to the
	// canonical vocabulary, e.g. "Power" -> "power".
	Opinionated bool

	// IncludeUnopinionated keeps columns outside the canonical set.
	IncludeUnopinionated bool

	// AllowColumnOverwrites lets a canonical rename replace an existing
	// column of the same name. When false an existing "power" column
	// blocks the "Power" -> "power" rename.
	AllowColumnOverwrites bool
}

// DefaultOptions mirrors the decoder's historical defaults.
func DefaultOptions() Options {
	return Options{
		Opinionated:           true,
		IncludeUnopinionated:  true,
		AllowColumnOverwrites: false,
	}
}

// ReadFit decodes a FIT byte stream into an activity table.
func ReadFit(r io.Reader, opts Options) (*Table, error) {
	dec, err := fitwire.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return assemble(dec, opts)
}

// ReadFitBytes decodes an in-memory FIT file.
func ReadFitBytes(data []byte, opts Options) (*Table, error) {
	dec, err := fitwire.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return assemble(dec, opts)
}

// ReadFitFile decodes the FIT file at path.
func ReadFitFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fit file: %w", err)
	}
	defer f.Close()
	return ReadFit(f, opts)
}

// deviceIdentityFields are captured from the creator device_info message;
// absent fields stay nil.
var deviceIdentityFields = []string{
	"device_index",
	"manufacturer",
	"device_name",
	"garmin_product",
	"product_name",
	"serial_number",
	"descriptor",
}

// assembler folds the message stream into the raw table. It is the only
// owner of the activity context (sport, device identity, local offset).
type assembler struct {
	opts Options

	sport    any
	subSport any
	device   map[string]any
	location *time.Location

	laps     []fitwire.Message
	sessions []fitwire.Message

	rows    []*row
	present map[string]struct{}
}

func assemble(dec *fitwire.Decoder, opts Options) (*Table, error) {
	a := &assembler{
		opts:    opts,
		present: make(map[string]struct{}),
	}
	for {
		msg, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		a.fold(msg)
	}
	return a.finish()
}

func (a *assembler) fold(msg *fitwire.Message) {
	switch msg.Kind {
	case fitwire.KindRecord:
		a.foldRecord(msg)
	case fitwire.KindSport:
		// Last seen wins; earlier rows are not backfilled.
		if v, ok := msg.Value("sport"); ok {
			a.sport = v
		}
		if v, ok := msg.Value("sub_sport"); ok {
			a.subSport = v
		}
	case fitwire.KindLap:
		a.laps = append(a.laps, *msg)
	case fitwire.KindSession:
		a.sessions = append(a.sessions, *msg)
	case fitwire.KindDeviceInfo:
		a.foldDeviceInfo(msg)
	case fitwire.KindActivity:
		a.foldActivity(msg)
	}
}

func (a *assembler) foldRecord(msg *fitwire.Message) {
	r := newRow()
	r.set("sport", a.sport)
	r.set("sub_sport", a.subSport)
	for _, f := range msg.Fields {
		r.set(f.Name, f.Value)
	}

	if a.opts.Opinionated {
		for _, key := range r.keys {
			a.present[key] = struct{}{}
		}
		r = translateColumns(r, a.present, a.opts.AllowColumnOverwrites)
	}
	if !a.opts.IncludeUnopinionated {
		r = filterColumns(r)
	}
	a.rows = append(a.rows, r)
}

func (a *assembler) foldDeviceInfo(msg *fitwire.Message) {
	idx, ok := msg.Value("device_index")
	if !ok {
		return
	}
	if name, _ := idx.(string); name != "creator" {
		return
	}
	a.device = make(map[string]any, len(deviceIdentityFields))
	for _, name := range deviceIdentityFields {
		if v, ok := msg.Value(name); ok {
			a.device[name] = v
		} else {
			a.device[name] = nil
		}
	}
}

func (a *assembler) foldActivity(msg *fitwire.Message) {
	local, ok := msg.Time("local_timestamp")
	if !ok {
		// Some FIT files don't carry local_timestamp; timestamps stay
		// naive UTC.
		return
	}
	stamp, ok := msg.Time("timestamp")
	if !ok {
		return
	}
	offset := int(local.Sub(stamp) / time.Second)
	a.location = time.FixedZone("activity_local", offset)
}

func (a *assembler) finish() (*Table, error) {
	if a.opts.Opinionated {
		a.renameLeftovers()
	}

	table := &Table{
		Rows:     make([]Sample, 0, len(a.rows)),
		Device:   resolveDeviceIdentity(a.device),
		Location: a.location,
	}

	seen := make(map[string]struct{})
	for _, r := range a.rows {
		sample := Sample{Values: r.values}
		if ts, ok := r.values["timestamp"].(time.Time); ok {
			if a.location != nil {
				ts = ts.In(a.location)
			}
			sample.Timestamp = ts
		}
		delete(r.values, "timestamp")
		for _, key := range r.keys {
			if key == "timestamp" {
				continue
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				table.Columns = append(table.Columns, key)
			}
		}
		table.Rows = append(table.Rows, sample)
	}

	// Source order is already chronological, but ordering is an
	// invariant here, not an accident.
	sort.SliceStable(table.Rows, func(i, j int) bool {
		return table.Rows[i].Timestamp.Before(table.Rows[j].Timestamp)
	})
	for i := 1; i < len(table.Rows); i++ {
		d := table.Rows[i].Timestamp.Sub(table.Rows[i-1].Timestamp)
		table.Rows[i].Duration = &d
	}

	annotateLaps(table, a.laps)

	if err := normalizeFloatColumns(table); err != nil {
		return nil, err
	}
	return table, nil
}

// renameLeftovers retries translations that were blocked per-record but
// whose canonical target never materialized as a column of its own.
func (a *assembler) renameLeftovers() {
	established := make(map[string]struct{})
	for _, r := range a.rows {
		for _, key := range r.keys {
			established[key] = struct{}{}
		}
	}
	for original, canonical := range columnTranslations {
		if _, ok := established[original]; !ok {
			continue
		}
		if _, ok := established[canonical]; ok {
			continue
		}
		for _, r := range a.rows {
			if v, ok := r.values[original]; ok {
				delete(r.values, original)
				r.values[canonical] = v
				for i, key := range r.keys {
					if key == original {
						r.keys[i] = canonical
					}
				}
			}
		}
	}
}

// resolveDeviceIdentity renders the creator device as a display string,
// preferring the richest naming field available.
func resolveDeviceIdentity(device map[string]any) string {
	if device == nil {
		return ""
	}
	if manufacturer, _ := device["manufacturer"].(string); manufacturer == "garmin" {
		if product := device["garmin_product"]; product != nil {
			return fmt.Sprintf("garmin %v", product)
		}
	}
	if name := device["product_name"]; name != nil {
		return fmt.Sprintf("%v", name)
	}
	if descriptor := device["descriptor"]; descriptor != nil {
		return fmt.Sprintf("%v", descriptor)
	}
	if name := device["device_name"]; name != nil {
		return fmt.Sprintf("%v", name)
	}
	return ""
}
