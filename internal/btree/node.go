package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/pagedb/sqlt/internal/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// On-disk node layout
// ───────────────────────────────────────────────────────────────────────────
//
// Leaf page:     [0]=0x02 tag | [1:3] cellCount u16 | [3:7] rightSibling u32
//                | cells, packed from offset 7, each key(u32)+valueCount(u16)
//                +tagged values.
// Internal page: [0]=0x03 tag | [1:3] keyCount u16 | [3:7] leftmostChild u32
//                | keyCount * (key u32, child u32), packed from offset 7.
//
// Both node types are small enough (maxLeafCells = maxInternalKeys = 4) that
// a mutation simply rebuilds the whole page buffer rather than patching a
// slotted layout in place — the same "rewrite in full" approach the catalog
// page uses.

const (
	tagLeaf     = 0x02
	tagInternal = 0x03

	leafHeaderSize     = 7 // tag(1) + cellCount(2) + rightSibling(4)
	internalHeaderSize = 7 // tag(1) + keyCount(2) + leftmostChild(4)
)

// maxLeafCells and maxInternalKeys are intentionally small so splits happen
// early and are easy to observe in tests; correctness does not depend on
// the exact value chosen, only that it is >= 2.
const (
	maxLeafCells    = 4
	maxInternalKeys = 4
)

// LeafCell is one (key, row) pair stored in a leaf node.
type LeafCell struct {
	Key uint32
	Row Row
}

// leafNode is the in-memory form of a leaf page.
type leafNode struct {
	page         pager.PageID
	cells        []LeafCell
	rightSibling pager.PageID
}

// internalEntry is one (key, child) routing pair.
type internalEntry struct {
	Key   uint32
	Child pager.PageID
}

// internalNode is the in-memory form of an internal page.
type internalNode struct {
	page          pager.PageID
	leftmostChild pager.PageID
	entries       []internalEntry
}

// nodeTag inspects a page buffer's first byte without fully decoding it.
func nodeTag(buf []byte) byte { return buf[0] }

// ── Leaf (de)serialization ─────────────────────────────────────────────────

func newEmptyLeaf(page pager.PageID) *leafNode {
	return &leafNode{page: page}
}

func decodeLeaf(page pager.PageID, buf []byte) (*leafNode, error) {
	if buf[0] != tagLeaf {
		return nil, fmt.Errorf("btree: page %d is not a leaf (tag 0x%02x)", page, buf[0])
	}
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	right := pager.PageID(binary.LittleEndian.Uint32(buf[3:7]))
	n := &leafNode{page: page, rightSibling: right, cells: make([]LeafCell, 0, count)}
	off := leafHeaderSize
	for i := 0; i < count; i++ {
		key, row, consumed, err := UnmarshalRow(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("btree: decode leaf page %d cell %d: %w", page, i, err)
		}
		n.cells = append(n.cells, LeafCell{Key: key, Row: row})
		off += consumed
	}
	return n, nil
}

func encodeLeaf(n *leafNode, pageSize int) ([]byte, error) {
	buf := make([]byte, pageSize)
	buf[0] = tagLeaf
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(n.cells)))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(n.rightSibling))
	off := leafHeaderSize
	for _, c := range n.cells {
		enc := MarshalRow(c.Key, c.Row)
		if off+len(enc) > pageSize {
			return nil, fmt.Errorf("btree: leaf page %d overflowed page size %d", n.page, pageSize)
		}
		copy(buf[off:], enc)
		off += len(enc)
	}
	return buf, nil
}

// ── Internal (de)serialization ──────────────────────────────────────────────

func decodeInternal(page pager.PageID, buf []byte) (*internalNode, error) {
	if buf[0] != tagInternal {
		return nil, fmt.Errorf("btree: page %d is not internal (tag 0x%02x)", page, buf[0])
	}
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	leftmost := pager.PageID(binary.LittleEndian.Uint32(buf[3:7]))
	n := &internalNode{page: page, leftmostChild: leftmost, entries: make([]internalEntry, 0, count)}
	off := internalHeaderSize
	for i := 0; i < count; i++ {
		if off+8 > len(buf) {
			return nil, fmt.Errorf("btree: internal page %d truncated at entry %d", page, i)
		}
		key := binary.LittleEndian.Uint32(buf[off : off+4])
		child := pager.PageID(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
		n.entries = append(n.entries, internalEntry{Key: key, Child: child})
		off += 8
	}
	return n, nil
}

func encodeInternal(n *internalNode, pageSize int) ([]byte, error) {
	buf := make([]byte, pageSize)
	buf[0] = tagInternal
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(n.entries)))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(n.leftmostChild))
	off := internalHeaderSize
	for _, e := range n.entries {
		if off+8 > pageSize {
			return nil, fmt.Errorf("btree: internal page %d overflowed page size %d", n.page, pageSize)
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], e.Key)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(e.Child))
		off += 8
	}
	return buf, nil
}

// childFor returns the child page that key routes to, per the routing
// invariant in §4.2: keys < entries[0].Key go to leftmostChild; key in
// [entries[i-1].Key, entries[i].Key) goes to entries[i-1].Child; keys >=
// the last entry's key go to the last entry's child.
func (n *internalNode) childFor(key uint32) pager.PageID {
	for i, e := range n.entries {
		if key < e.Key {
			if i == 0 {
				return n.leftmostChild
			}
			return n.entries[i-1].Child
		}
	}
	if len(n.entries) == 0 {
		return n.leftmostChild
	}
	return n.entries[len(n.entries)-1].Child
}

// insertSorted inserts (key, child) in ascending key order.
func (n *internalNode) insertSorted(key uint32, child pager.PageID) {
	pos := 0
	for pos < len(n.entries) && n.entries[pos].Key < key {
		pos++
	}
	n.entries = append(n.entries, internalEntry{})
	copy(n.entries[pos+1:], n.entries[pos:])
	n.entries[pos] = internalEntry{Key: key, Child: child}
}
