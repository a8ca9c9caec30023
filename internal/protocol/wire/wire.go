// Package wire is the default envelope codec: a field-tagged binary encoding
// of the protocol unions. One encoded envelope is a single variant tag byte
// followed by id/type/length fields, all big-endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const fieldHeaderLen = 2 + 1 + 2

var (
	ErrShortField   = errors.New("wire: short field header")
	ErrShortValue   = errors.New("wire: short field value")
	ErrFieldType    = errors.New("wire: field type mismatch")
	ErrValueLength  = errors.New("wire: invalid value length")
	ErrEmptyPayload = errors.New("wire: empty payload")
)

type fieldType uint8

const (
	typeU32    fieldType = 1
	typeI32    fieldType = 2
	typeBool   fieldType = 3
	typeString fieldType = 4
	typeBytes  fieldType = 5
)

type field struct {
	id    uint16
	typ   fieldType
	value []byte
}

func appendField(buf []byte, f field) []byte {
	var header [fieldHeaderLen]byte
	binary.BigEndian.PutUint16(header[0:2], f.id)
	header[2] = byte(f.typ)
	binary.BigEndian.PutUint16(header[3:5], uint16(len(f.value)))
	buf = append(buf, header[:]...)
	return append(buf, f.value...)
}

func parseFields(payload []byte) ([]field, error) {
	fields := make([]field, 0, 4)
	for offset := 0; offset < len(payload); {
		if len(payload)-offset < fieldHeaderLen {
			return nil, ErrShortField
		}
		id := binary.BigEndian.Uint16(payload[offset : offset+2])
		typ := fieldType(payload[offset+2])
		n := int(binary.BigEndian.Uint16(payload[offset+3 : offset+5]))
		offset += fieldHeaderLen
		if n > len(payload)-offset {
			return nil, ErrShortValue
		}
		value := make([]byte, n)
		copy(value, payload[offset:offset+n])
		offset += n
		fields = append(fields, field{id: id, typ: typ, value: value})
	}
	return fields, nil
}

func findField(fields []field, id uint16) (field, bool) {
	for _, f := range fields {
		if f.id == id {
			return f, true
		}
	}
	return field{}, false
}

func u32Field(id uint16, v uint32) field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return field{id: id, typ: typeU32, value: buf}
}

func i32Field(id uint16, v int32) field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return field{id: id, typ: typeI32, value: buf}
}

func boolField(id uint16, v bool) field {
	b := byte(0)
	if v {
		b = 1
	}
	return field{id: id, typ: typeBool, value: []byte{b}}
}

func strField(id uint16, v string) field {
	return field{id: id, typ: typeString, value: []byte(v)}
}

func bytesField(id uint16, v []byte) field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return field{id: id, typ: typeBytes, value: buf}
}

func (f field) u32() (uint32, error) {
	if f.typ != typeU32 {
		return 0, fmt.Errorf("%w: field %d", ErrFieldType, f.id)
	}
	if len(f.value) != 4 {
		return 0, fmt.Errorf("%w: field %d", ErrValueLength, f.id)
	}
	return binary.BigEndian.Uint32(f.value), nil
}

func (f field) i32() (int32, error) {
	if f.typ != typeI32 {
		return 0, fmt.Errorf("%w: field %d", ErrFieldType, f.id)
	}
	if len(f.value) != 4 {
		return 0, fmt.Errorf("%w: field %d", ErrValueLength, f.id)
	}
	return int32(binary.BigEndian.Uint32(f.value)), nil
}

func (f field) boolean() (bool, error) {
	if f.typ != typeBool {
		return false, fmt.Errorf("%w: field %d", ErrFieldType, f.id)
	}
	if len(f.value) != 1 {
		return false, fmt.Errorf("%w: field %d", ErrValueLength, f.id)
	}
	return f.value[0] != 0, nil
}

func (f field) str() (string, error) {
	if f.typ != typeString {
		return "", fmt.Errorf("%w: field %d", ErrFieldType, f.id)
	}
	return string(f.value), nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != typeBytes {
		return nil, fmt.Errorf("%w: field %d", ErrFieldType, f.id)
	}
	buf := make([]byte, len(f.value))
	copy(buf, f.value)
	return buf, nil
}
