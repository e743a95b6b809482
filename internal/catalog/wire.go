package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/pagedb/sqlt/internal/btree"
	"github.com/pagedb/sqlt/internal/pager"
)

// catalogTag marks page 1 as a catalog page, distinct from the leaf (0x02)
// and internal (0x03) B+Tree node tags.
const catalogTag = 0x01

// newTree allocates a fresh empty B+Tree and returns its root page. It is
// the catalog's only use of package btree; the catalog records just the
// root page number.
func newTree(p *pager.Pager) (pager.PageID, error) {
	tree, err := btree.Create(p)
	if err != nil {
		return 0, err
	}
	return tree.RootPage(), nil
}

func (c *Catalog) decode(buf []byte) error {
	if len(buf) == 0 || buf[0] != catalogTag {
		return fmt.Errorf("page %d is not a catalog page", c.page)
	}
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	off := 3
	for i := 0; i < count; i++ {
		name, next, err := readString(buf, off)
		if err != nil {
			return fmt.Errorf("table %d: name: %w", i, err)
		}
		off = next

		if off+2 > len(buf) {
			return fmt.Errorf("table %q: truncated column count", name)
		}
		colCount := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2

		columns := make([]Column, 0, colCount)
		for j := 0; j < colCount; j++ {
			colName, next, err := readString(buf, off)
			if err != nil {
				return fmt.Errorf("table %q column %d: name: %w", name, j, err)
			}
			off = next
			if off+2 > len(buf) {
				return fmt.Errorf("table %q column %d: truncated tags", name, j)
			}
			columns = append(columns, Column{
				Name:        colName,
				Type:        ColType(buf[off]),
				Constraints: Constraint(buf[off+1]),
			})
			off += 2
		}

		if off+4 > len(buf) {
			return fmt.Errorf("table %q: truncated root page", name)
		}
		root := pager.PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4

		t := &Table{Name: name, Columns: columns, RootPage: root}
		folded := fold(name)
		c.tables[folded] = t
		c.order = append(c.order, folded)
	}
	return nil
}

func (c *Catalog) encode(pageSize int) ([]byte, error) {
	buf := make([]byte, pageSize)
	buf[0] = catalogTag
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(c.order)))
	off := 3
	for _, key := range c.order {
		t := c.tables[key]
		var err error
		off, err = writeString(buf, off, t.Name)
		if err != nil {
			return nil, fmt.Errorf("catalog: encode table %q: %w", t.Name, err)
		}
		if off+2 > pageSize {
			return nil, fmt.Errorf("catalog: page overflow encoding table %q", t.Name)
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(t.Columns)))
		off += 2
		for _, col := range t.Columns {
			off, err = writeString(buf, off, col.Name)
			if err != nil {
				return nil, fmt.Errorf("catalog: encode column %q: %w", col.Name, err)
			}
			if off+2 > pageSize {
				return nil, fmt.Errorf("catalog: page overflow encoding column %q", col.Name)
			}
			buf[off] = byte(col.Type)
			buf[off+1] = byte(col.Constraints)
			off += 2
		}
		if off+4 > pageSize {
			return nil, fmt.Errorf("catalog: page overflow encoding root page for %q", t.Name)
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(t.RootPage))
		off += 4
	}
	return buf, nil
}

func readString(buf []byte, off int) (string, int, error) {
	if off+2 > len(buf) {
		return "", 0, fmt.Errorf("truncated string length at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint16(buf[off : off+2]))
	off += 2
	if off+n > len(buf) {
		return "", 0, fmt.Errorf("truncated string data at offset %d", off)
	}
	return string(buf[off : off+n]), off + n, nil
}

func writeString(buf []byte, off int, s string) (int, error) {
	if off+2+len(s) > len(buf) {
		return 0, fmt.Errorf("string %q overflows page", s)
	}
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(s)))
	off += 2
	copy(buf[off:], s)
	return off + len(s), nil
}
