// Package pager implements the page-based storage layer for a single-file
// database: a fixed-size paged file with a four-field header on page 0.
//
// What: Open/create a paged file, allocate whole pages, and read/write them
// by page number. Page 0 is always the file header; everything above it is
// opaque to the Pager — the B+Tree and catalog packages interpret page
// contents.
// How: Every page is a fixed pageSize []byte. The header tracks the magic
// number, page size, total page count, and the catalog's page number, and is
// re-flushed on every allocation and on Close so a reopen always finds a
// consistent page count.
// Why: A single-threaded, synchronous actor with no WAL and no fsync keeps
// the format simple and bit-exact; crash safety and concurrent access are
// explicitly out of scope for this core.
package pager

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultPageSize is used when a database is created without an explicit
	// page size.
	DefaultPageSize = 4096

	// MinPageSize and MaxPageSize bound the page size accepted by Open.
	// MaxPageSize is the largest power of two the header's 16-bit page-size
	// field can hold.
	MinPageSize = 512
	MaxPageSize = 32768

	// HeaderPage is the file header's fixed page number.
	HeaderPage PageID = 0

	// magic is the 4 ASCII bytes "SQLT" read as little-endian uint32.
	magicBytes = "SQLT"
)

// Magic is the expected little-endian uint32 value of the 4 magic bytes.
var Magic = binary.LittleEndian.Uint32([]byte(magicBytes))

// Header field offsets within page 0.
const (
	hdrMagicOff       = 0
	hdrPageSizeOff    = 4
	hdrTotalPagesOff  = 6
	hdrCatalogPageOff = 10
	// Remaining bytes up to PageSize are reserved and zero-filled.
)

// PageID identifies a page by its 0-based offset into the file.
type PageID uint32

// FileHeader is the parsed contents of page 0.
type FileHeader struct {
	PageSize    uint16
	TotalPages  uint32
	CatalogPage PageID
}

// MarshalHeader serializes a FileHeader into a full-page buffer. buf must be
// at least MinPageSize bytes; bytes beyond the header fields are left zero.
func MarshalHeader(h FileHeader, buf []byte) {
	binary.LittleEndian.PutUint32(buf[hdrMagicOff:], Magic)
	binary.LittleEndian.PutUint16(buf[hdrPageSizeOff:], h.PageSize)
	binary.LittleEndian.PutUint32(buf[hdrTotalPagesOff:], h.TotalPages)
	binary.LittleEndian.PutUint32(buf[hdrCatalogPageOff:], uint32(h.CatalogPage))
}

// UnmarshalHeader parses page 0. It returns a Format error if the magic
// bytes do not match.
func UnmarshalHeader(buf []byte) (FileHeader, error) {
	if len(buf) < hdrCatalogPageOff+4 {
		return FileHeader{}, &Error{Kind: Format, Msg: "header page too short"}
	}
	got := binary.LittleEndian.Uint32(buf[hdrMagicOff:])
	if got != Magic {
		return FileHeader{}, &Error{Kind: Format, Msg: fmt.Sprintf("bad magic 0x%08X, expected 0x%08X", got, Magic)}
	}
	return FileHeader{
		PageSize:    binary.LittleEndian.Uint16(buf[hdrPageSizeOff:]),
		TotalPages:  binary.LittleEndian.Uint32(buf[hdrTotalPagesOff:]),
		CatalogPage: PageID(binary.LittleEndian.Uint32(buf[hdrCatalogPageOff:])),
	}, nil
}
