package fitwire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/tormoder/fit/dyncrc16"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14
)

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

type fieldDef struct {
	num  uint8
	size uint8
	base baseType
}

type devFieldDef struct {
	num     uint8
	size    uint8
	dataIdx uint8
}

type localDef struct {
	local     uint8
	global    uint16
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []devFieldDef
}

type devKey struct {
	dataIdx uint8
	num     uint8
}

type devDesc struct {
	name  string
	units string
	base  baseType
}

// Decoder reads a FIT byte stream and produces its data messages in file
// order. The header and trailing CRC are validated up front; definition
// messages are consumed internally to drive data message layout.
type Decoder struct {
	header Header
	data   []byte

	pos            int
	defs           map[uint8]localDef
	devDescs       map[devKey]devDesc
	lastTimestamp  uint32
	lastTimeOffset int32
}

// NewDecoder reads the full stream from r and prepares a Decoder.
func NewDecoder(r io.Reader) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fitwire: read stream: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes prepares a Decoder over an in-memory FIT file.
func DecodeBytes(data []byte) (*Decoder, error) {
	if len(data) < headerSizeNoCRC {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedFile, len(data))
	}

	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return nil, fmt.Errorf("%w: header size %d", ErrMalformedHeader, size)
	}
	if len(data) < int(size) {
		return nil, fmt.Errorf("%w: header needs %d bytes", ErrTruncatedFile, size)
	}

	header := Header{
		Size:            size,
		ProtocolVersion: data[1],
		ProfileVersion:  binary.LittleEndian.Uint16(data[2:4]),
		DataSize:        binary.LittleEndian.Uint32(data[4:8]),
		DataType:        string(data[8:12]),
	}
	if header.DataType != ".FIT" {
		return nil, fmt.Errorf("%w: data type %q", ErrMalformedHeader, header.DataType)
	}

	if size == headerSizeCRC {
		stored := binary.LittleEndian.Uint16(data[12:14])
		if stored != 0 {
			computed := dyncrc16.Checksum(data[:12])
			if stored != computed {
				return nil, fmt.Errorf("%w: header crc stored 0x%04X computed 0x%04X", ErrCRCMismatch, stored, computed)
			}
		}
	}

	required := int(size) + int(header.DataSize) + 2
	if len(data) < required {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncatedFile, len(data), required)
	}

	dataEnd := int(size) + int(header.DataSize)
	stored := binary.LittleEndian.Uint16(data[dataEnd : dataEnd+2])
	computed := dyncrc16.Checksum(data[:dataEnd])
	if stored != computed {
		return nil, fmt.Errorf("%w: stored 0x%04X computed 0x%04X", ErrCRCMismatch, stored, computed)
	}

	return &Decoder{
		header:   header,
		data:     data[size:dataEnd],
		defs:     make(map[uint8]localDef),
		devDescs: make(map[devKey]devDesc),
	}, nil
}

// Header returns the parsed file header.
func (d *Decoder) Header() Header {
	return d.header
}

// Reset rewinds the decoder to the first message. Definition and
// developer-field state is rebuilt on the next pass.
func (d *Decoder) Reset() {
	d.pos = 0
	d.defs = make(map[uint8]localDef)
	d.devDescs = make(map[devKey]devDesc)
	d.lastTimestamp = 0
	d.lastTimeOffset = 0
}

// Messages decodes the whole stream from the beginning.
func (d *Decoder) Messages() ([]Message, error) {
	d.Reset()
	var out []Message
	for {
		msg, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
}

// Next returns the next data message, or io.EOF once the declared data
// size is consumed.
func (d *Decoder) Next() (*Message, error) {
	for d.pos < len(d.data) {
		headerByte := d.data[d.pos]
		d.pos++

		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			def, ok := d.defs[local]
			if !ok {
				return nil, fmt.Errorf("fitwire: data message local=%d has no definition", local)
			}
			return d.parseData(headerByte, local, def, true)
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			def, err := d.parseDefinition(headerByte)
			if err != nil {
				return nil, err
			}
			d.defs[def.local] = def
		default:
			local := headerByte & localMesgNumMask
			def, ok := d.defs[local]
			if !ok {
				return nil, fmt.Errorf("fitwire: data message local=%d has no definition", local)
			}
			return d.parseData(headerByte, local, def, false)
		}
	}
	return nil, io.EOF
}

func (d *Decoder) read(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: message needs %d bytes at offset %d", ErrTruncatedFile, n, d.pos)
	}
	out := d.data[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *Decoder) parseDefinition(headerByte uint8) (localDef, error) {
	local := headerByte & localMesgNumMask
	if _, err := d.read(1); err != nil { // reserved
		return localDef{}, err
	}

	archRaw, err := d.read(1)
	if err != nil {
		return localDef{}, err
	}
	var arch binary.ByteOrder
	switch archRaw[0] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return localDef{}, fmt.Errorf("fitwire: invalid architecture byte %d", archRaw[0])
	}

	globalRaw, err := d.read(2)
	if err != nil {
		return localDef{}, err
	}
	global := arch.Uint16(globalRaw)

	countRaw, err := d.read(1)
	if err != nil {
		return localDef{}, err
	}
	fields := make([]fieldDef, 0, countRaw[0])
	for i := 0; i < int(countRaw[0]); i++ {
		raw, err := d.read(3)
		if err != nil {
			return localDef{}, err
		}
		fields = append(fields, fieldDef{
			num:  raw[0],
			size: raw[1],
			base: canonicalBaseType(raw[2]),
		})
	}

	var devFields []devFieldDef
	if headerByte&devDataMask == devDataMask {
		devCountRaw, err := d.read(1)
		if err != nil {
			return localDef{}, err
		}
		devFields = make([]devFieldDef, 0, devCountRaw[0])
		for i := 0; i < int(devCountRaw[0]); i++ {
			raw, err := d.read(3)
			if err != nil {
				return localDef{}, err
			}
			devFields = append(devFields, devFieldDef{
				num:     raw[0],
				size:    raw[1],
				dataIdx: raw[2],
			})
		}
	}

	return localDef{
		local:     local,
		global:    global,
		arch:      arch,
		fields:    fields,
		devFields: devFields,
	}, nil
}

func (d *Decoder) parseData(headerByte, local uint8, def localDef, compressed bool) (*Message, error) {
	msg := &Message{
		Kind:      messageKind(def.global),
		Name:      messageName(def.global),
		GlobalNum: def.global,
		LocalType: local,
		Fields:    make([]Field, 0, len(def.fields)+1),
	}

	sawTimestamp := false
	for _, fd := range def.fields {
		raw, err := d.read(int(fd.size))
		if err != nil {
			return nil, err
		}
		spec := specForField(def.global, fd.num)
		value := d.decodeFieldValue(raw, fd, spec, def.arch)
		if fd.num == 253 {
			sawTimestamp = true
		}
		msg.Fields = append(msg.Fields, Field{
			Name:  spec.name,
			Num:   fd.num,
			Units: spec.units,
			Value: value,
		})
	}

	if compressed && !sawTimestamp && d.lastTimestamp != 0 {
		offset := int32(headerByte & compressedTimeMask)
		d.lastTimestamp += uint32((offset - d.lastTimeOffset) & int32(compressedTimeMask))
		d.lastTimeOffset = offset
		msg.Fields = append(msg.Fields, Field{
			Name:  "timestamp",
			Num:   253,
			Value: fitEpoch.Add(time.Duration(d.lastTimestamp) * time.Second),
		})
	}

	for _, ddf := range def.devFields {
		raw, err := d.read(int(ddf.size))
		if err != nil {
			return nil, err
		}
		msg.Fields = append(msg.Fields, d.decodeDeveloperField(raw, ddf, def.arch))
	}

	switch def.global {
	case mesgFieldDescription:
		d.registerFieldDescription(msg)
	case mesgDeviceInfo, mesgFileID:
		resolveProductField(msg)
	}
	return msg, nil
}

// decodeFieldValue decodes one standard field, tracking the running
// timestamp reference used by compressed headers.
func (d *Decoder) decodeFieldValue(raw []byte, fd fieldDef, spec fieldSpec, arch binary.ByteOrder) any {
	if fd.base == baseString {
		str := decodeNullTerminatedString(raw)
		if str == "" && allBytes(raw, 0x00) {
			return nil
		}
		return str
	}
	if fd.base == baseByte {
		if allBytes(raw, 0xFF) {
			return nil
		}
		return bytesToInts(raw)
	}

	bspec, ok := baseSpecs[fd.base]
	if !ok || bspec.size <= 0 || len(raw)%bspec.size != 0 {
		// Unknown base type or ragged size: raw bytes, never fatal.
		return bytesToInts(raw)
	}

	count := len(raw) / bspec.size
	if count == 1 {
		scalar, invalid := decodeScalar(raw, fd.base, arch)
		if fd.num == 253 && !invalid {
			if ts, ok := scalar.(int64); ok {
				d.lastTimestamp = uint32(ts)
				d.lastTimeOffset = int32(ts) & compressedTimeMask
			}
		}
		return convertValue(spec, scalar, invalid)
	}

	values := make([]any, 0, count)
	invalidCount := 0
	for i := 0; i < count; i++ {
		part := raw[i*bspec.size : (i+1)*bspec.size]
		scalar, invalid := decodeScalar(part, fd.base, arch)
		if invalid {
			invalidCount++
		}
		values = append(values, convertValue(spec, scalar, invalid))
	}
	if invalidCount == count {
		return nil
	}
	return values
}

func (d *Decoder) decodeDeveloperField(raw []byte, ddf devFieldDef, arch binary.ByteOrder) Field {
	desc, ok := d.devDescs[devKey{dataIdx: ddf.dataIdx, num: ddf.num}]
	if !ok {
		return Field{
			Name:      fmt.Sprintf("developer_%d_%d", ddf.dataIdx, ddf.num),
			Num:       ddf.num,
			Value:     bytesToInts(raw),
			Developer: true,
		}
	}

	field := Field{
		Name:      desc.name,
		Num:       ddf.num,
		Units:     desc.units,
		Developer: true,
	}
	if desc.base == baseString {
		str := decodeNullTerminatedString(raw)
		if str == "" && allBytes(raw, 0x00) {
			return field
		}
		field.Value = str
		return field
	}
	bspec, ok := baseSpecs[desc.base]
	if !ok || bspec.size <= 0 || len(raw)%bspec.size != 0 {
		field.Value = bytesToInts(raw)
		return field
	}
	scalar, invalid := decodeScalar(raw[:bspec.size], desc.base, arch)
	if !invalid {
		field.Value = scalar
	}
	return field
}

func (d *Decoder) registerFieldDescription(msg *Message) {
	name, _ := msg.String("field_name")
	if name == "" {
		return
	}
	dataIdx, ok := intField(msg, "developer_data_index")
	if !ok {
		return
	}
	num, ok := intField(msg, "field_definition_number")
	if !ok {
		return
	}
	base := baseUint8
	if raw, ok := intField(msg, "fit_base_type_id"); ok {
		base = canonicalBaseType(byte(raw))
	}
	units, _ := msg.String("units")
	d.devDescs[devKey{dataIdx: uint8(dataIdx), num: uint8(num)}] = devDesc{
		name:  name,
		units: units,
		base:  base,
	}
}

// resolveProductField renames the dynamic product field to garmin_product
// for Garmin-built devices, matching the profile's dynamic field rules.
func resolveProductField(msg *Message) {
	manufacturer, _ := msg.String("manufacturer")
	switch manufacturer {
	case "garmin", "dynastream", "dynastream_oem":
	default:
		return
	}
	for i := range msg.Fields {
		if msg.Fields[i].Name != "product" {
			continue
		}
		msg.Fields[i].Name = "garmin_product"
		if raw, ok := msg.Fields[i].Value.(int64); ok {
			msg.Fields[i].Value = garminProduct(raw)
		}
		return
	}
}

func convertValue(spec fieldSpec, scalar any, invalid bool) any {
	if invalid {
		return nil
	}
	switch spec.form {
	case formTimestamp:
		if raw, ok := scalar.(int64); ok {
			return fitEpoch.Add(time.Duration(raw) * time.Second)
		}
		return scalar
	case formSemicircles:
		if raw, ok := scalar.(int64); ok {
			return float64(raw) * semicirclesToDegrees
		}
		return scalar
	case formScaled:
		switch v := scalar.(type) {
		case int64:
			return float64(v)/spec.scale - spec.offset
		case float64:
			return v/spec.scale - spec.offset
		default:
			return scalar
		}
	case formEnum:
		if raw, ok := scalar.(int64); ok {
			if name, ok := spec.enums[raw]; ok {
				return name
			}
		}
		return scalar
	default:
		return scalar
	}
}

func intField(msg *Message, name string) (int64, bool) {
	v, ok := msg.Value(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}
