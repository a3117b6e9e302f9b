package fitwire

import "fmt"

// The profile tables below cover the subset of the Garmin FIT global
// profile the activity pipeline consumes. Unknown messages and fields
// fall back to numeric names and pass through undecorated.

const semicirclesToDegrees = 180.0 / 2147483648.0 // 2^31

type valueForm int

const (
	formPlain valueForm = iota
	formScaled
	formTimestamp
	formSemicircles
	formEnum
)

type fieldSpec struct {
	name   string
	units  string
	form   valueForm
	scale  float64
	offset float64
	enums  map[int64]string
}

func scaled(name, units string, scale, offset float64) fieldSpec {
	return fieldSpec{name: name, units: units, form: formScaled, scale: scale, offset: offset}
}

func plain(name, units string) fieldSpec {
	return fieldSpec{name: name, units: units}
}

func stamp(name string) fieldSpec {
	return fieldSpec{name: name, form: formTimestamp}
}

func enum(name string, values map[int64]string) fieldSpec {
	return fieldSpec{name: name, form: formEnum, enums: values}
}

func position(name string) fieldSpec {
	return fieldSpec{name: name, units: "degrees", form: formSemicircles}
}

const (
	mesgFileID           uint16 = 0
	mesgSport            uint16 = 12
	mesgSession          uint16 = 18
	mesgLap              uint16 = 19
	mesgRecord           uint16 = 20
	mesgEvent            uint16 = 21
	mesgDeviceInfo       uint16 = 23
	mesgActivity         uint16 = 34
	mesgFieldDescription uint16 = 206
	mesgDeveloperDataID  uint16 = 207
)

var messageNames = map[uint16]string{
	mesgFileID:           "file_id",
	mesgSport:            "sport",
	mesgSession:          "session",
	mesgLap:              "lap",
	mesgRecord:           "record",
	mesgEvent:            "event",
	mesgDeviceInfo:       "device_info",
	mesgActivity:         "activity",
	mesgFieldDescription: "field_description",
	mesgDeveloperDataID:  "developer_data_id",
}

var messageKinds = map[uint16]Kind{
	mesgSport:      KindSport,
	mesgSession:    KindSession,
	mesgLap:        KindLap,
	mesgRecord:     KindRecord,
	mesgDeviceInfo: KindDeviceInfo,
	mesgActivity:   KindActivity,
}

var sportNames = map[int64]string{
	0:  "generic",
	1:  "running",
	2:  "cycling",
	3:  "transition",
	4:  "fitness_equipment",
	5:  "swimming",
	6:  "basketball",
	7:  "soccer",
	8:  "tennis",
	9:  "american_football",
	10: "training",
	11: "walking",
	12: "cross_country_skiing",
	13: "alpine_skiing",
	14: "snowboarding",
	15: "rowing",
	16: "mountaineering",
	17: "hiking",
	18: "multisport",
	19: "paddling",
}

var subSportNames = map[int64]string{
	0:  "generic",
	1:  "treadmill",
	2:  "street",
	3:  "trail",
	4:  "track",
	5:  "spin",
	6:  "indoor_cycling",
	7:  "road",
	8:  "mountain",
	9:  "downhill",
	10: "recumbent",
	11: "cyclocross",
	12: "hand_cycling",
	13: "track_cycling",
	14: "indoor_rowing",
	15: "elliptical",
	16: "stair_climbing",
	17: "lap_swimming",
	18: "open_water",
}

var lapTriggerNames = map[int64]string{
	0: "manual",
	1: "time",
	2: "distance",
	3: "position_start",
	4: "position_lap",
	5: "position_waypoint",
	6: "position_marked",
	7: "session_end",
	8: "fitness_equipment",
}

var deviceIndexNames = map[int64]string{
	0: "creator",
}

var manufacturerNames = map[int64]string{
	1:   "garmin",
	6:   "srm",
	7:   "quarq",
	9:   "saris",
	13:  "dynastream_oem",
	15:  "dynastream",
	23:  "suunto",
	32:  "wahoo_fitness",
	38:  "sigmasport",
	63:  "specialized",
	69:  "stages_cycling",
	76:  "bryton",
	89:  "tacx",
	95:  "stryd",
	260: "zwift",
	263: "favero_electronics",
	265: "coros",
	289: "hammerhead",
}

var garminProductNames = map[int64]string{
	2697: "fenix5",
	3110: "fenix5_plus",
	3287: "fenix6",
	3907: "fenix7",
	2713: "edge1030",
	3121: "edge530",
	3122: "edge830",
	3843: "edge1040",
	2886: "fr935",
	3113: "fr945",
	3589: "fr955",
	4315: "fr965",
	3990: "epix_gen2",
}

var eventNames = map[int64]string{
	0:  "timer",
	3:  "workout",
	4:  "workout_step",
	8:  "session",
	9:  "lap",
	10: "course_point",
	26: "rear_gear_change",
	42: "front_gear_change",
}

var eventTypeNames = map[int64]string{
	0: "start",
	1: "stop",
	2: "consecutive_depreciated",
	3: "marker",
	4: "stop_all",
	5: "begin_depreciated",
	6: "end_depreciated",
	7: "end_all_depreciated",
	8: "stop_disable",
	9: "stop_disable_all",
}

var fieldsByMessage = map[uint16]map[uint8]fieldSpec{
	mesgFileID: {
		0: plain("type", ""),
		1: enum("manufacturer", manufacturerNames),
		2: plain("product", ""),
		3: plain("serial_number", ""),
		4: stamp("time_created"),
		5: plain("number", ""),
		8: plain("product_name", ""),
	},
	mesgSport: {
		0: enum("sport", sportNames),
		1: enum("sub_sport", subSportNames),
		3: plain("name", ""),
	},
	mesgSession: {
		253: stamp("timestamp"),
		2:   stamp("start_time"),
		5:   enum("sport", sportNames),
		6:   enum("sub_sport", subSportNames),
		7:   scaled("total_elapsed_time", "s", 1000, 0),
		8:   scaled("total_timer_time", "s", 1000, 0),
		9:   scaled("total_distance", "m", 100, 0),
		14:  scaled("avg_speed", "m/s", 1000, 0),
		15:  scaled("max_speed", "m/s", 1000, 0),
		16:  plain("avg_heart_rate", "bpm"),
		17:  plain("max_heart_rate", "bpm"),
		18:  plain("avg_cadence", "rpm"),
		19:  plain("max_cadence", "rpm"),
		20:  plain("avg_power", "watts"),
		21:  plain("max_power", "watts"),
		24:  plain("total_calories", "kcal"),
		48:  plain("normalized_power", "watts"),
		57:  plain("threshold_power", "watts"),
	},
	mesgLap: {
		253: stamp("timestamp"),
		254: plain("message_index", ""),
		0:   enum("event", eventNames),
		1:   enum("event_type", eventTypeNames),
		2:   stamp("start_time"),
		3:   position("start_position_lat"),
		4:   position("start_position_long"),
		5:   position("end_position_lat"),
		6:   position("end_position_long"),
		7:   scaled("total_elapsed_time", "s", 1000, 0),
		8:   scaled("total_timer_time", "s", 1000, 0),
		9:   scaled("total_distance", "m", 100, 0),
		13:  scaled("avg_speed", "m/s", 1000, 0),
		14:  scaled("max_speed", "m/s", 1000, 0),
		15:  plain("avg_heart_rate", "bpm"),
		16:  plain("max_heart_rate", "bpm"),
		17:  plain("avg_cadence", "rpm"),
		18:  plain("max_cadence", "rpm"),
		19:  plain("avg_power", "watts"),
		20:  plain("max_power", "watts"),
		24:  enum("lap_trigger", lapTriggerNames),
		25:  enum("sport", sportNames),
		42:  plain("total_work", "j"),
	},
	mesgRecord: {
		253: stamp("timestamp"),
		0:   position("position_lat"),
		1:   position("position_long"),
		2:   scaled("altitude", "m", 5, 500),
		3:   plain("heart_rate", "bpm"),
		4:   plain("cadence", "rpm"),
		5:   scaled("distance", "m", 100, 0),
		6:   scaled("speed", "m/s", 1000, 0),
		7:   plain("power", "watts"),
		9:   scaled("grade", "%", 100, 0),
		13:  plain("temperature", "C"),
		39:  scaled("vertical_oscillation", "mm", 10, 0),
		53:  scaled("fractional_cadence", "rpm", 128, 0),
		57:  scaled("saturated_hemoglobin_percent", "%", 10, 0),
		73:  scaled("enhanced_speed", "m/s", 1000, 0),
		78:  scaled("enhanced_altitude", "m", 5, 500),
		139: scaled("core_temperature", "C", 100, 0),
	},
	mesgEvent: {
		253: stamp("timestamp"),
		0:   enum("event", eventNames),
		1:   enum("event_type", eventTypeNames),
		2:   plain("data16", ""),
		3:   plain("data", ""),
		4:   plain("event_group", ""),
	},
	mesgDeviceInfo: {
		253: stamp("timestamp"),
		0:   enum("device_index", deviceIndexNames),
		1:   plain("device_type", ""),
		2:   enum("manufacturer", manufacturerNames),
		3:   plain("serial_number", ""),
		4:   plain("product", ""),
		5:   scaled("software_version", "", 100, 0),
		6:   plain("hardware_version", ""),
		19:  plain("descriptor", ""),
		27:  plain("product_name", ""),
	},
	mesgActivity: {
		253: stamp("timestamp"),
		0:   scaled("total_timer_time", "s", 1000, 0),
		1:   plain("num_sessions", ""),
		2:   plain("type", ""),
		3:   enum("event", eventNames),
		4:   enum("event_type", eventTypeNames),
		5:   stamp("local_timestamp"),
		6:   plain("event_group", ""),
	},
	mesgFieldDescription: {
		0:  plain("developer_data_index", ""),
		1:  plain("field_definition_number", ""),
		2:  plain("fit_base_type_id", ""),
		3:  plain("field_name", ""),
		6:  plain("native_mesg_num", ""),
		7:  plain("native_field_num", ""),
		8:  plain("units", ""),
	},
	mesgDeveloperDataID: {
		0: plain("developer_id", ""),
		1: plain("application_id", ""),
		2: plain("manufacturer_id", ""),
		3: plain("developer_data_index", ""),
		4: plain("application_version", ""),
	},
}

func messageName(global uint16) string {
	if name, ok := messageNames[global]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%d", global)
}

func messageKind(global uint16) Kind {
	if kind, ok := messageKinds[global]; ok {
		return kind
	}
	return KindOther
}

func specForField(global uint16, field uint8) fieldSpec {
	if m, ok := fieldsByMessage[global]; ok {
		if s, ok := m[field]; ok {
			return s
		}
	}
	return fieldSpec{name: fmt.Sprintf("field_%d", field)}
}

// garminProduct resolves the dynamic product field of device_info and
// file_id messages for Garmin-built devices.
func garminProduct(raw int64) string {
	if name, ok := garminProductNames[raw]; ok {
		return name
	}
	return fmt.Sprintf("%d", raw)
}
