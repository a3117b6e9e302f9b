// Package fitwire decodes the FIT binary container format into typed
// messages. It parses the file header, the definition/data record stream
// and the trailing CRC directly from the wire bytes; only the CRC-16
// implementation is shared with the tormoder/fit ecosystem.
package fitwire

import (
	"errors"
	"time"
)

var (
	// ErrMalformedHeader reports a header with a bad size or magic marker.
	ErrMalformedHeader = errors.New("fitwire: malformed header")

	// ErrTruncatedFile reports fewer bytes than a header or message declares.
	ErrTruncatedFile = errors.New("fitwire: truncated file")

	// ErrCRCMismatch reports a trailing checksum that disagrees with the
	// computed one.
	ErrCRCMismatch = errors.New("fitwire: crc mismatch")
)

// Kind classifies the message types the activity pipeline folds over.
// Everything else is KindOther and passes through untouched.
type Kind int

const (
	KindOther Kind = iota
	KindRecord
	KindLap
	KindSession
	KindSport
	KindDeviceInfo
	KindActivity
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindLap:
		return "lap"
	case KindSession:
		return "session"
	case KindSport:
		return "sport"
	case KindDeviceInfo:
		return "device_info"
	case KindActivity:
		return "activity"
	default:
		return "other"
	}
}

// Header stores the parsed FIT file header values.
type Header struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	DataType        string
}

// Message is one decoded FIT data message. Fields preserve definition
// order. Values are one of float64, int64, string, time.Time, []any or
// nil when the wire value is the base type's invalid sentinel.
type Message struct {
	Kind      Kind
	Name      string
	GlobalNum uint16
	LocalType uint8
	Fields    []Field
}

// Field is a single decoded field. Unknown fields keep their numeric
// identity under a field_<n> name. Developer is set for fields declared
// through field_description messages.
type Field struct {
	Name      string
	Num       uint8
	Units     string
	Value     any
	Developer bool
}

// Value returns the named field's decoded value.
func (m *Message) Value(name string) (any, bool) {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return m.Fields[i].Value, true
		}
	}
	return nil, false
}

// Time returns the named field as a timestamp.
func (m *Message) Time(name string) (time.Time, bool) {
	v, ok := m.Value(name)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// String returns the named field as a string (enum values decode to
// their profile names).
func (m *Message) String(name string) (string, bool) {
	v, ok := m.Value(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
