package fitwire

import (
	"encoding/binary"
	"math"
)

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

type baseSpec struct {
	name string
	size int
}

var baseSpecs = map[baseType]baseSpec{
	baseEnum:    {name: "enum", size: 1},
	baseSint8:   {name: "sint8", size: 1},
	baseUint8:   {name: "uint8", size: 1},
	baseSint16:  {name: "sint16", size: 2},
	baseUint16:  {name: "uint16", size: 2},
	baseSint32:  {name: "sint32", size: 4},
	baseUint32:  {name: "uint32", size: 4},
	baseString:  {name: "string", size: 1},
	baseFloat32: {name: "float32", size: 4},
	baseFloat64: {name: "float64", size: 8},
	baseUint8z:  {name: "uint8z", size: 1},
	baseUint16z: {name: "uint16z", size: 2},
	baseUint32z: {name: "uint32z", size: 4},
	baseByte:    {name: "byte", size: 1},
	baseSint64:  {name: "sint64", size: 8},
	baseUint64:  {name: "uint64", size: 8},
	baseUint64z: {name: "uint64z", size: 8},
}

// canonicalBaseType restores the architecture bit some devices strip from
// multi-byte base type bytes in definition records.
func canonicalBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

// decodeScalar decodes one base-type element. Integers widen to int64 and
// floats to float64. The second return reports the invalid sentinel.
func decodeScalar(raw []byte, bt baseType, arch binary.ByteOrder) (any, bool) {
	switch bt {
	case baseEnum:
		v := raw[0]
		return int64(v), v == 0xFF
	case baseSint8:
		v := int8(raw[0])
		return int64(v), v == int8(0x7F)
	case baseUint8:
		v := raw[0]
		return int64(v), v == 0xFF
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return int64(v), v == int16(0x7FFF)
	case baseUint16:
		v := arch.Uint16(raw)
		return int64(v), v == 0xFFFF
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return int64(v), v == int32(0x7FFFFFFF)
	case baseUint32:
		v := arch.Uint32(raw)
		return int64(v), v == 0xFFFFFFFF
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits == 0xFFFFFFFF
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits == 0xFFFFFFFFFFFFFFFF
	case baseUint8z:
		v := raw[0]
		return int64(v), v == 0x00
	case baseUint16z:
		v := arch.Uint16(raw)
		return int64(v), v == 0x0000
	case baseUint32z:
		v := arch.Uint32(raw)
		return int64(v), v == 0x00000000
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return v, v == int64(0x7FFFFFFFFFFFFFFF)
	case baseUint64:
		v := arch.Uint64(raw)
		return int64(v), v == 0xFFFFFFFFFFFFFFFF
	case baseUint64z:
		v := arch.Uint64(raw)
		return int64(v), v == 0x0000000000000000
	default:
		return bytesToInts(raw), false
	}
}

func decodeNullTerminatedString(raw []byte) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] == 0x00 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func allBytes(raw []byte, value byte) bool {
	if len(raw) == 0 {
		return false
	}
	for _, b := range raw {
		if b != value {
			return false
		}
	}
	return true
}

func bytesToInts(raw []byte) []any {
	out := make([]any, len(raw))
	for i := range raw {
		out[i] = int64(raw[i])
	}
	return out
}
