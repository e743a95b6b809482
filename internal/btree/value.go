// Package btree implements a persistent B+Tree keyed by non-negative 32-bit
// integers, layered on top of the pager package. Rows are tagged-value
// tuples; leaves are linked left-to-right for ordered scans; splits cascade
// upward to a fresh root exactly as described in the storage format (§4.2,
// §6 of the design document).
package btree

import (
	"encoding/binary"
	"fmt"
)

// Kind tags the three value shapes a cell can hold.
type Kind uint8

const (
	KindNull    Kind = 0x00
	KindInteger Kind = 0x01
	KindText    Kind = 0x02
)

// Value is a tagged sum of NULL, INTEGER, or TEXT — the uniform shape every
// stored row value takes. Using an explicit tag instead of an `any` keeps the
// binary encoding unambiguous and allocation-light.
type Value struct {
	Kind Kind
	Int  int32
	Text string
}

// Null returns the NULL value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an INTEGER value.
func Int(n int32) Value { return Value{Kind: KindInteger, Int: n} }

// Str returns a TEXT value.
func Str(s string) Value { return Value{Kind: KindText, Text: s} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindText:
		return v.Text
	default:
		return fmt.Sprintf("<bad-kind-%d>", v.Kind)
	}
}

// Row is a fixed-width ordered tuple of tagged values, one per column.
type Row []Value

// marshalValue appends the tagged-value wire encoding of v to buf.
func marshalValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindNull:
		// no payload
	case KindInteger:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v.Int))
		buf = append(buf, b[:]...)
	case KindText:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(len(v.Text)))
		buf = append(buf, b[:]...)
		buf = append(buf, v.Text...)
	}
	return buf
}

// unmarshalValue reads one tagged value starting at off, returning the value
// and the offset just past it.
func unmarshalValue(buf []byte, off int) (Value, int, error) {
	if off >= len(buf) {
		return Value{}, 0, fmt.Errorf("btree: truncated value at offset %d", off)
	}
	kind := Kind(buf[off])
	off++
	switch kind {
	case KindNull:
		return Value{Kind: KindNull}, off, nil
	case KindInteger:
		if off+4 > len(buf) {
			return Value{}, 0, fmt.Errorf("btree: truncated integer at offset %d", off)
		}
		n := int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		return Value{Kind: KindInteger, Int: n}, off + 4, nil
	case KindText:
		if off+2 > len(buf) {
			return Value{}, 0, fmt.Errorf("btree: truncated text length at offset %d", off)
		}
		n := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+n > len(buf) {
			return Value{}, 0, fmt.Errorf("btree: truncated text data at offset %d", off)
		}
		return Value{Kind: KindText, Text: string(buf[off : off+n])}, off + n, nil
	default:
		return Value{}, 0, fmt.Errorf("btree: unknown value tag 0x%02x at offset %d", kind, off)
	}
}

// MarshalRow encodes key and row into the cell wire format: key (u32) +
// valueCount (u16) + tagged values.
func MarshalRow(key uint32, row Row) []byte {
	buf := make([]byte, 0, 6+len(row)*4)
	var kb [4]byte
	binary.LittleEndian.PutUint32(kb[:], key)
	buf = append(buf, kb[:]...)
	var cb [2]byte
	binary.LittleEndian.PutUint16(cb[:], uint16(len(row)))
	buf = append(buf, cb[:]...)
	for _, v := range row {
		buf = marshalValue(buf, v)
	}
	return buf
}

// UnmarshalRow decodes a cell, returning the key, the row, and the number of
// bytes consumed.
func UnmarshalRow(buf []byte) (uint32, Row, int, error) {
	if len(buf) < 6 {
		return 0, nil, 0, fmt.Errorf("btree: cell too short (%d bytes)", len(buf))
	}
	key := binary.LittleEndian.Uint32(buf[0:4])
	count := int(binary.LittleEndian.Uint16(buf[4:6]))
	off := 6
	row := make(Row, count)
	for i := 0; i < count; i++ {
		v, next, err := unmarshalValue(buf, off)
		if err != nil {
			return 0, nil, 0, err
		}
		row[i] = v
		off = next
	}
	return key, row, off, nil
}
