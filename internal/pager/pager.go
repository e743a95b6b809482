package pager

import (
	"fmt"
	"log/slog"
	"os"
)

// ───────────────────────────────────────────────────────────────────────────
// Pager
// ───────────────────────────────────────────────────────────────────────────
//
// The Pager is the sole owner of the database file handle and the header. It
// is used by exactly one logical actor at a time (see package btree and
// catalog) — there is no locking because there is nothing to lock against.

// Config configures Open.
type Config struct {
	// PageSize is used only when creating a new file. Defaults to
	// DefaultPageSize. Ignored (the on-disk value wins) when opening an
	// existing file.
	PageSize int

	// MaxCachePages bounds the read-through page cache. Zero means
	// unlimited — reasonable at this core's scale, where a whole database
	// rarely exceeds a few hundred pages.
	MaxCachePages int

	// Logger receives Debug-level operational events (allocation, header
	// flush). A nil Logger disables logging; logging never affects control
	// flow or return values.
	Logger *slog.Logger
}

// Pager manages page-level I/O and the file header for one open database.
type Pager struct {
	file        *os.File
	path        string
	pageSize    int
	totalPages  uint32
	catalogPage PageID
	log         *slog.Logger

	cache       map[PageID][]byte
	maxCache    int
}

// Open opens path, creating it (with an empty catalog page) if it does not
// already exist.
func Open(path string, cfg Config) (*Pager, error) {
	ps := cfg.PageSize
	if ps == 0 {
		ps = DefaultPageSize
	}
	if ps < MinPageSize || ps > MaxPageSize {
		return nil, &Error{Kind: Format, Msg: fmt.Sprintf("page size %d outside [%d, %d]", ps, MinPageSize, MaxPageSize)}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, ioErr("open database file", err)
	}

	p := &Pager{
		file:     f,
		path:     path,
		pageSize: ps,
		log:      logger,
		cache:    make(map[PageID][]byte),
		maxCache: cfg.MaxCachePages,
	}

	if isNew {
		if err := p.initEmpty(); err != nil {
			f.Close()
			return nil, err
		}
		logger.Debug("created database", "path", path, "pageSize", ps)
		return p, nil
	}

	if err := p.loadHeader(); err != nil {
		f.Close()
		return nil, err
	}
	logger.Debug("opened database", "path", path, "pageSize", p.pageSize, "totalPages", p.totalPages)
	return p, nil
}

// initEmpty writes page 0 (header, totalPages=2) and page 1 (empty
// catalog) for a brand-new file.
func (p *Pager) initEmpty() error {
	p.totalPages = 2
	p.catalogPage = 1

	hdrBuf := make([]byte, p.pageSize)
	MarshalHeader(FileHeader{PageSize: uint16(p.pageSize), TotalPages: p.totalPages, CatalogPage: p.catalogPage}, hdrBuf)
	if err := p.writeRaw(HeaderPage, hdrBuf); err != nil {
		return err
	}

	catBuf := make([]byte, p.pageSize)
	catBuf[0] = 0x01 // catalog tag; table count defaults to 0
	if err := p.writeRaw(PageID(1), catBuf); err != nil {
		return err
	}
	return nil
}

func (p *Pager) loadHeader() error {
	// The on-disk page size is unknown until we've read the header, so read
	// a conservatively large chunk first.
	buf := make([]byte, MaxPageSize)
	n, err := p.file.ReadAt(buf, 0)
	if err != nil && n < hdrCatalogPageOff+4 {
		return ioErr("read header page", err)
	}
	hdr, err := UnmarshalHeader(buf)
	if err != nil {
		return err
	}
	if hdr.PageSize < MinPageSize || hdr.PageSize > MaxPageSize {
		return &Error{Kind: Format, Msg: fmt.Sprintf("header page size %d out of bounds", hdr.PageSize)}
	}
	p.pageSize = int(hdr.PageSize)
	p.totalPages = hdr.TotalPages
	p.catalogPage = hdr.CatalogPage
	return nil
}

func (p *Pager) flushHeader() error {
	buf := make([]byte, p.pageSize)
	MarshalHeader(FileHeader{PageSize: uint16(p.pageSize), TotalPages: p.totalPages, CatalogPage: p.catalogPage}, buf)
	if err := p.writeRaw(HeaderPage, buf); err != nil {
		return err
	}
	p.log.Debug("flushed header", "totalPages", p.totalPages, "catalogPage", p.catalogPage)
	return nil
}

// ── Public page I/O ───────────────────────────────────────────────────────

// ReadPage returns a copy of page n. Callers own the returned buffer and may
// mutate it freely; it must be passed back to WritePage to persist changes.
func (p *Pager) ReadPage(n PageID) ([]byte, error) {
	if uint32(n) >= p.totalPages {
		return nil, outOfRangeErr(n, p.totalPages)
	}
	if cached, ok := p.cache[n]; ok {
		out := make([]byte, p.pageSize)
		copy(out, cached)
		return out, nil
	}
	buf, err := p.readRaw(n)
	if err != nil {
		return nil, err
	}
	p.putCache(n, buf)
	out := make([]byte, p.pageSize)
	copy(out, buf)
	return out, nil
}

// WritePage writes buf (which must be exactly PageSize bytes) to page n.
func (p *Pager) WritePage(n PageID, buf []byte) error {
	if uint32(n) >= p.totalPages {
		return outOfRangeErr(n, p.totalPages)
	}
	if len(buf) != p.pageSize {
		return &Error{Kind: SizeMismatch, Msg: fmt.Sprintf("got %d bytes, want %d", len(buf), p.pageSize)}
	}
	if err := p.writeRaw(n, buf); err != nil {
		return err
	}
	p.putCache(n, buf)
	return nil
}

// AllocatePage extends the file by one zeroed page and returns its number.
// The new page's total count is reflected in the header immediately.
func (p *Pager) AllocatePage() (PageID, error) {
	id := PageID(p.totalPages)
	buf := make([]byte, p.pageSize)
	if err := p.writeRaw(id, buf); err != nil {
		return 0, err
	}
	p.totalPages++
	if err := p.flushHeader(); err != nil {
		return 0, err
	}
	p.putCache(id, buf)
	p.log.Debug("allocated page", "page", id, "totalPages", p.totalPages)
	return id, nil
}

// Header returns a snapshot of the current file header.
func (p *Pager) Header() FileHeader {
	return FileHeader{PageSize: uint16(p.pageSize), TotalPages: p.totalPages, CatalogPage: p.catalogPage}
}

// SetCatalogPage updates the header's catalog page pointer. The catalog page
// number never changes after creation in this design (§3); Open sets it
// directly when it creates a file and does not call this setter.
func (p *Pager) SetCatalogPage(id PageID) error {
	p.catalogPage = id
	return p.flushHeader()
}

// PageSize returns the page size this database was created or opened with.
func (p *Pager) PageSize() int { return p.pageSize }

// Close flushes the header and releases the file.
func (p *Pager) Close() error {
	if err := p.flushHeader(); err != nil {
		p.file.Close()
		return err
	}
	p.log.Debug("closed database", "path", p.path, "totalPages", p.totalPages)
	return p.file.Close()
}

// ── raw I/O, bypassing the cache ──────────────────────────────────────────

func (p *Pager) readRaw(id PageID) ([]byte, error) {
	buf := make([]byte, p.pageSize)
	off := int64(id) * int64(p.pageSize)
	if _, err := p.file.ReadAt(buf, off); err != nil {
		return nil, ioErr(fmt.Sprintf("read page %d", id), err)
	}
	return buf, nil
}

func (p *Pager) writeRaw(id PageID, buf []byte) error {
	off := int64(id) * int64(p.pageSize)
	if _, err := p.file.WriteAt(buf, off); err != nil {
		return ioErr(fmt.Sprintf("write page %d", id), err)
	}
	return nil
}

func (p *Pager) putCache(id PageID, buf []byte) {
	if p.maxCache > 0 && len(p.cache) >= p.maxCache {
		// Single-threaded, low-stakes eviction: drop an arbitrary entry.
		// The cache is read-through, so correctness never depends on what
		// stays resident — only on the source of truth in the file.
		for k := range p.cache {
			delete(p.cache, k)
			break
		}
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	p.cache[id] = cp
}
