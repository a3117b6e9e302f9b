package endureio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/tormoder/fit/dyncrc16"

	"github.com/PySport/EndureIO/fitwire"
)

var testEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// fitFileBuilder assembles a little-endian FIT file for end-to-end reads.
type fitFileBuilder struct {
	data []byte
}

func (b *fitFileBuilder) raw(p ...byte) {
	b.data = append(b.data, p...)
}

func (b *fitFileBuilder) definition(local byte, global uint16, fields ...[3]byte) {
	b.raw(0x40|local, 0x00, 0x00, byte(global), byte(global>>8), byte(len(fields)))
	for _, f := range fields {
		b.raw(f[0], f[1], f[2])
	}
}

func (b *fitFileBuilder) message(local byte, payload ...byte) {
	b.raw(local)
	b.raw(payload...)
}

func (b *fitFileBuilder) file() []byte {
	header := make([]byte, 14)
	header[0] = 14
	header[1] = 0x20
	binary.LittleEndian.PutUint16(header[2:4], 2140)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(b.data)))
	copy(header[8:12], ".FIT")
	binary.LittleEndian.PutUint16(header[12:14], dyncrc16.Checksum(header[:12]))

	out := append(header, b.data...)
	crc := dyncrc16.Checksum(out)
	return append(out, byte(crc), byte(crc>>8))
}

func fitSeconds(t time.Time) uint32 {
	return uint32(t.Sub(testEpoch) / time.Second)
}

func u16le(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

func u32le(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

// buildRideFixture produces a ten-sample cycling activity recorded by a
// Garmin fenix5, with two laps and a +02:00 local offset.
func buildRideFixture(start time.Time) []byte {
	var b fitFileBuilder

	b.definition(0, 12, // sport
		[3]byte{0, 1, 0x00},
		[3]byte{1, 1, 0x00},
	)
	b.message(0, 2, 7) // cycling, road

	b.definition(1, 23, // device_info
		[3]byte{0, 1, 0x02}, // device_index
		[3]byte{2, 2, 0x84}, // manufacturer
		[3]byte{4, 2, 0x84}, // product
	)
	devicePayload := []byte{0}
	devicePayload = append(devicePayload, u16le(1)...)    // garmin
	devicePayload = append(devicePayload, u16le(2697)...) // fenix5
	b.message(1, devicePayload...)

	b.definition(2, 20, // record
		[3]byte{253, 4, 0x86}, // timestamp
		[3]byte{7, 2, 0x84},   // power
		[3]byte{3, 1, 0x02},   // heart_rate
		[3]byte{73, 4, 0x86},  // enhanced_speed, scale 1000
	)
	for i := 0; i < 10; i++ {
		payload := u32le(fitSeconds(start.Add(time.Duration(i) * time.Second)))
		payload = append(payload, u16le(uint16(200+i))...)
		payload = append(payload, byte(130+i))
		payload = append(payload, u32le(uint32(2500+i*10))...)
		b.message(2, payload...)
	}

	b.definition(3, 19, // lap
		[3]byte{2, 4, 0x86},  // start_time
		[3]byte{24, 1, 0x00}, // lap_trigger
	)
	lap1 := append(u32le(fitSeconds(start)), 2) // distance
	b.message(3, lap1...)
	lap2 := append(u32le(fitSeconds(start.Add(5*time.Second))), 1) // time
	b.message(3, lap2...)

	b.definition(4, 34, // activity
		[3]byte{253, 4, 0x86}, // timestamp
		[3]byte{5, 4, 0x86},   // local_timestamp
	)
	end := start.Add(10 * time.Second)
	activityPayload := u32le(fitSeconds(end))
	activityPayload = append(activityPayload, u32le(fitSeconds(end)+7200)...)
	b.message(4, activityPayload...)

	return b.file()
}

func TestReadFitBytes(t *testing.T) {
	start := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)
	table, err := ReadFitBytes(buildRideFixture(start), DefaultOptions())
	if err != nil {
		t.Fatalf("ReadFitBytes error: %v", err)
	}

	if len(table.Rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(table.Rows))
	}
	for _, column := range []string{"sport", "sub_sport", "power", "heart_rate", "speed"} {
		if !table.HasColumn(column) {
			t.Fatalf("missing column %q (have %v)", column, table.Columns)
		}
	}
	if table.HasColumn("enhanced_speed") {
		t.Fatal("enhanced_speed should have been renamed to speed")
	}

	first := table.Rows[0]
	if first.Values["sport"] != "cycling" || first.Values["sub_sport"] != "road" {
		t.Fatalf("sport context = %v/%v", first.Values["sport"], first.Values["sub_sport"])
	}
	if first.Values["power"] != 200.0 {
		t.Fatalf("power = %v (%T), want 200.0", first.Values["power"], first.Values["power"])
	}
	if first.Values["heart_rate"] != 130.0 {
		t.Fatalf("heart_rate = %v, want 130.0", first.Values["heart_rate"])
	}
	if first.Values["speed"] != 2.5 {
		t.Fatalf("speed = %v, want 2.5", first.Values["speed"])
	}

	if table.Device != "garmin fenix5" {
		t.Fatalf("device = %q, want garmin fenix5", table.Device)
	}
}

func TestReadFitBytesLocalTime(t *testing.T) {
	start := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)
	table, err := ReadFitBytes(buildRideFixture(start), DefaultOptions())
	if err != nil {
		t.Fatalf("ReadFitBytes error: %v", err)
	}

	if table.Location == nil {
		t.Fatal("no local offset resolved")
	}
	first := table.Rows[0].Timestamp
	if !first.Equal(start) {
		t.Fatalf("timestamp instant = %v, want %v", first, start)
	}
	if _, offset := first.Zone(); offset != 7200 {
		t.Fatalf("zone offset = %d, want 7200", offset)
	}

	if table.Rows[0].Duration != nil {
		t.Fatalf("first duration = %v, want nil", table.Rows[0].Duration)
	}
	for i := 1; i < len(table.Rows); i++ {
		if table.Rows[i].Duration == nil || *table.Rows[i].Duration != time.Second {
			t.Fatalf("duration[%d] = %v, want 1s", i, table.Rows[i].Duration)
		}
		if table.Rows[i].Timestamp.Before(table.Rows[i-1].Timestamp) {
			t.Fatalf("timestamps out of order at row %d", i)
		}
	}
}

func TestReadFitBytesLapAssignment(t *testing.T) {
	start := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)
	table, err := ReadFitBytes(buildRideFixture(start), DefaultOptions())
	if err != nil {
		t.Fatalf("ReadFitBytes error: %v", err)
	}

	for i, sample := range table.Rows {
		if sample.Lap == nil || sample.LapTrigger == nil {
			t.Fatalf("row %d missing lap annotation", i)
		}
		wantLap, wantTrigger := 0, "distance"
		if i >= 5 {
			// Trailing lap always closes manually, whatever its message said.
			wantLap, wantTrigger = 1, "manual"
		}
		if *sample.Lap != wantLap || *sample.LapTrigger != wantTrigger {
			t.Fatalf("row %d lap = %d/%q, want %d/%q",
				i, *sample.Lap, *sample.LapTrigger, wantLap, wantTrigger)
		}
	}
}

func recordMsg(ts time.Time, fields ...fitwire.Field) *fitwire.Message {
	msg := &fitwire.Message{Kind: fitwire.KindRecord, Name: "record", GlobalNum: 20}
	msg.Fields = append(msg.Fields, fitwire.Field{Name: "timestamp", Num: 253, Value: ts})
	msg.Fields = append(msg.Fields, fields...)
	return msg
}

func sportMsg(sport, subSport string) *fitwire.Message {
	return &fitwire.Message{
		Kind: fitwire.KindSport,
		Name: "sport",
		Fields: []fitwire.Field{
			{Name: "sport", Value: sport},
			{Name: "sub_sport", Value: subSport},
		},
	}
}

func TestSportContextIsNotBackfilled(t *testing.T) {
	a := &assembler{opts: DefaultOptions(), present: make(map[string]struct{})}
	t0 := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)

	a.fold(sportMsg("running", "trail"))
	a.fold(recordMsg(t0))
	a.fold(sportMsg("cycling", "road"))
	a.fold(recordMsg(t0.Add(time.Second)))

	table, err := a.finish()
	if err != nil {
		t.Fatalf("finish error: %v", err)
	}
	if table.Rows[0].Values["sport"] != "running" {
		t.Fatalf("row 0 sport = %v, want running", table.Rows[0].Values["sport"])
	}
	if table.Rows[1].Values["sport"] != "cycling" {
		t.Fatalf("row 1 sport = %v, want cycling", table.Rows[1].Values["sport"])
	}
}

func TestDeveloperPowerBlockedThenRenamed(t *testing.T) {
	a := &assembler{opts: DefaultOptions(), present: make(map[string]struct{})}
	// A native power column was already observed, so the per-record
	// translation must keep the developer name.
	a.present["power"] = struct{}{}
	t0 := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)

	a.fold(recordMsg(t0, fitwire.Field{Name: "Power", Value: int64(301), Developer: true}))
	a.fold(recordMsg(t0.Add(time.Second), fitwire.Field{Name: "Power", Value: int64(305), Developer: true}))

	table, err := a.finish()
	if err != nil {
		t.Fatalf("finish error: %v", err)
	}
	// The native column never materialized, so the whole-table pass
	// reclaims the canonical name.
	if table.HasColumn("Power") || !table.HasColumn("power") {
		t.Fatalf("columns = %v, want power without Power", table.Columns)
	}
	if table.Rows[0].Values["power"] != 301.0 {
		t.Fatalf("power = %v, want 301.0", table.Rows[0].Values["power"])
	}
}

func TestOpinionatedColumnFilter(t *testing.T) {
	a := &assembler{
		opts:    Options{Opinionated: true, IncludeUnopinionated: false},
		present: make(map[string]struct{}),
	}
	t0 := time.Date(2026, 6, 20, 7, 0, 0, 0, time.UTC)
	a.fold(recordMsg(t0,
		fitwire.Field{Name: "power", Value: int64(210)},
		fitwire.Field{Name: "grade", Value: 1.5},
	))

	table, err := a.finish()
	if err != nil {
		t.Fatalf("finish error: %v", err)
	}
	if !table.HasColumn("power") {
		t.Fatalf("columns = %v, want power", table.Columns)
	}
	if table.HasColumn("grade") {
		t.Fatalf("columns = %v, grade should be filtered", table.Columns)
	}
}

func TestResolveDeviceIdentity(t *testing.T) {
	cases := []struct {
		name   string
		device map[string]any
		want   string
	}{
		{"no device", nil, ""},
		{"garmin product", map[string]any{"manufacturer": "garmin", "garmin_product": "fenix5"}, "garmin fenix5"},
		{"product name", map[string]any{"manufacturer": "stryd", "product_name": "Stryd"}, "Stryd"},
		{"descriptor", map[string]any{"descriptor": "SomePod"}, "SomePod"},
		{"device name", map[string]any{"device_name": "Edge"}, "Edge"},
		{"all nil fields", map[string]any{"manufacturer": nil, "product_name": nil}, ""},
	}
	for _, tc := range cases {
		if got := resolveDeviceIdentity(tc.device); got != tc.want {
			t.Errorf("%s: identity = %q, want %q", tc.name, got, tc.want)
		}
	}
}
