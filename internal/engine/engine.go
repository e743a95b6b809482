// Package engine is the Catalog & Executor component: it turns parsed
// CreateTable/Insert/Select statements into Pager and B+Tree operations,
// keeping the catalog's tree-root pointers in sync with root promotions.
package engine

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pagedb/sqlt/internal/catalog"
	"github.com/pagedb/sqlt/internal/pager"
)

// Options configures Open.
type Options struct {
	PageSize      int
	MaxCachePages int
	Logger        *slog.Logger
}

// DB is one open database: its Pager, its Catalog, and a session identifier
// minted fresh on every Open purely to correlate log lines. The identifier
// never touches disk.
type DB struct {
	p         *pager.Pager
	cat       *catalog.Catalog
	sessionID uuid.UUID
	log       *slog.Logger
}

// Open opens (or creates) the database file at path and loads its catalog.
func Open(path string, opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p, err := pager.Open(path, pager.Config{
		PageSize:      opts.PageSize,
		MaxCachePages: opts.MaxCachePages,
		Logger:        logger,
	})
	if err != nil {
		return nil, wrapErr(classifyPagerErr(err), err, "open database %q", path)
	}
	cat, err := catalog.Open(p)
	if err != nil {
		p.Close()
		return nil, wrapErr(Format, err, "load catalog")
	}

	session := uuid.New()
	logger = logger.With("session", session.String())
	logger.Debug("database opened", "path", path)

	return &DB{p: p, cat: cat, sessionID: session, log: logger}, nil
}

// SessionID returns the in-memory-only identifier minted for this open.
func (d *DB) SessionID() uuid.UUID { return d.sessionID }

// Close flushes the header and releases the underlying file.
func (d *DB) Close() error {
	d.log.Debug("database closed")
	return d.p.Close()
}

// Execute dispatches a parsed statement to its handler. stmt must be one of
// CreateTable, Insert, or Select; anything else fails Unsupported.
func (d *DB) Execute(stmt any) (Result, error) {
	switch s := stmt.(type) {
	case CreateTable:
		return d.executeCreateTable(s)
	case Insert:
		return d.executeInsert(s)
	case Select:
		return d.executeSelect(s)
	default:
		return Result{}, newErr(Unsupported, "unsupported statement type %T", stmt)
	}
}

func classifyPagerErr(err error) ErrKind {
	var perr *pager.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case pager.Format:
			return Format
		case pager.OutOfRange:
			return OutOfRange
		case pager.SizeMismatch:
			return SizeMismatch
		default:
			return IO
		}
	}
	return IO
}
