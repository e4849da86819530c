// Package pager owns the database file and lends page-sized byte slices by
// page number, enforcing the "one dirty page at a time" single-writer /
// multiple-reader discipline described in SPEC_FULL.md §4.3 and §5.
package pager

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/kavelabs/litesql/dberr"
)

// exclusiveWeight is the full capacity of the lease semaphore: a write
// lease takes all of it, so it is only granted while no read (or write)
// lease is outstanding, and it blocks any new lease until it releases.
const exclusiveWeight = int64(1 << 30)

// Option configures a Pager at Open time.
type Option func(*config)

type config struct {
	cacheLimit int
	logger     *logrus.Logger
}

// WithCacheLimit bounds the number of resident (unleased) pages kept in the
// cache before the oldest unleased page is evicted.
func WithCacheLimit(n int) Option {
	return func(c *config) { c.cacheLimit = n }
}

// WithLogger overrides the package logger, e.g. to attach request-scoped
// fields from the engine.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}

func defaultConfig() *config {
	return &config{cacheLimit: 256, logger: logrus.StandardLogger()}
}

// Pager is the sole owner of page memory for one open database file.
type Pager struct {
	file      *os.File
	readOnly  bool
	header    *FileHeader
	pageSize  uint32
	pageCount uint32

	sem *semaphore.Weighted // one read unit per read lease; full capacity for a write lease

	cacheMu    sync.Mutex
	cache      map[uint32][]byte
	cacheOrder []uint32 // FIFO eviction order among pages with no live lease
	leased     map[uint32]int
	cacheLimit int

	log *logrus.Entry
}

// Open opens path, validates its header, and returns a ready Pager.
func Open(path string, readOnly bool, opts ...Option) (*Pager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIo, "pager.Open", err)
	}

	headerBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		f.Close()
		return nil, dberr.Wrap(dberr.KindIo, "pager.Open", err)
	}
	hdr, err := parseHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.Wrap(dberr.KindIo, "pager.Open", err)
	}

	log := cfg.logger.WithField("component", "pager").WithField("path", path)
	log.WithFields(logrus.Fields{"page_size": hdr.PageSize, "read_only": readOnly}).Info("opened database file")

	return &Pager{
		file:      f,
		readOnly:  readOnly,
		header:    hdr,
		pageSize:  hdr.PageSize,
		pageCount: uint32(info.Size()) / hdr.PageSize,
		sem:        semaphore.NewWeighted(exclusiveWeight),
		cache:      make(map[uint32][]byte),
		leased:     make(map[uint32]int),
		cacheLimit: cfg.cacheLimit,
		log:        log,
	}, nil
}

// Close releases the underlying file. It does not wait for outstanding
// leases; callers must release all leases before closing.
func (p *Pager) Close() error {
	p.log.Info("closing pager")
	return p.file.Close()
}

// PageSize returns the page size in bytes.
func (p *Pager) PageSize() uint32 { return p.pageSize }

// PageCount returns the number of pages currently in the file.
func (p *Pager) PageCount() uint32 { return p.pageCount }

// ReadLease is a scoped read-only view of one page's bytes. The backing
// slice is only valid until Release is called.
type ReadLease struct {
	pager    *Pager
	page     uint32
	buf      []byte
	released bool
}

// Bytes returns the page's bytes. Do not retain this slice past Release.
func (l *ReadLease) Bytes() []byte { return l.buf }

// Page returns the 1-based page number this lease covers.
func (l *ReadLease) Page() uint32 { return l.page }

// Release returns the page to the pager. Idempotent.
func (l *ReadLease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.pager.unlease(l.page)
	l.pager.sem.Release(1)
}

// WriteLease is a scoped mutable view of one page's bytes, held exclusively
// across the whole Pager per the "one dirty page" rule.
type WriteLease struct {
	pager    *Pager
	page     uint32
	buf      []byte
	released bool
}

// Bytes returns the page's mutable bytes.
func (l *WriteLease) Bytes() []byte { return l.buf }

// Release flushes the page to disk and releases the exclusive lease.
// Idempotent; a second call is a no-op that returns nil.
func (l *WriteLease) Release() error {
	if l.released {
		return nil
	}
	l.released = true
	defer l.pager.sem.Release(exclusiveWeight)

	p := l.pager
	if _, err := p.file.WriteAt(l.buf, p.offset(l.page)); err != nil {
		return dberr.Wrap(dberr.KindIo, "pager.WriteLease.Release", err)
	}
	if err := p.file.Sync(); err != nil {
		return dberr.Wrap(dberr.KindIo, "pager.WriteLease.Release", err)
	}

	p.cacheMu.Lock()
	cp := make([]byte, len(l.buf))
	copy(cp, l.buf)
	p.cache[l.page] = cp
	if p.leased[l.page] > 0 {
		p.leased[l.page]--
	}
	p.cacheMu.Unlock()
	return nil
}

// ReadPage grants a read lease on page n, blocking (subject to ctx) until no
// write lease is held anywhere in the Pager.
func (p *Pager) ReadPage(ctx context.Context, n uint32) (*ReadLease, error) {
	if n < 1 || n > p.pageCount {
		return nil, dberr.New(dberr.KindCorrupt, "pager.ReadPage").WithContext(map[string]interface{}{"page": n, "page_count": p.pageCount})
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, dberr.Wrap(dberr.KindClosed, "pager.ReadPage", err)
	}

	buf, err := p.fetch(n)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	p.cacheMu.Lock()
	p.leased[n]++
	p.cacheMu.Unlock()

	p.log.WithField("page", n).Debug("read lease granted")
	return &ReadLease{pager: p, page: n, buf: buf}, nil
}

// WritePage grants the exclusive write lease on page n. It does not wait:
// it fails with KindBusy if any other lease is outstanding, and with
// KindUnsupported if the Pager was opened read-only.
func (p *Pager) WritePage(ctx context.Context, n uint32) (*WriteLease, error) {
	if p.readOnly {
		return nil, dberr.New(dberr.KindUnsupported, "pager.WritePage").WithContext(map[string]interface{}{"reason": "pager opened read-only"})
	}
	if n < 1 || n > p.pageCount {
		return nil, dberr.New(dberr.KindCorrupt, "pager.WritePage").WithContext(map[string]interface{}{"page": n, "page_count": p.pageCount})
	}

	if !p.sem.TryAcquire(exclusiveWeight) {
		return nil, dberr.New(dberr.KindBusy, "pager.WritePage").WithContext(map[string]interface{}{"page": n})
	}

	buf, err := p.fetch(n)
	if err != nil {
		p.sem.Release(exclusiveWeight)
		return nil, err
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)

	p.cacheMu.Lock()
	p.leased[n]++
	p.cacheMu.Unlock()

	p.log.WithField("page", n).Debug("write lease granted")
	return &WriteLease{pager: p, page: n, buf: cp}, nil
}

// fetch returns a page's bytes from cache, reading through to disk on a
// miss. The returned slice is a private copy safe to hand to a lease.
func (p *Pager) fetch(n uint32) ([]byte, error) {
	p.cacheMu.Lock()
	if buf, ok := p.cache[n]; ok {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		p.cacheMu.Unlock()
		return cp, nil
	}
	p.cacheMu.Unlock()

	buf := make([]byte, p.pageSize)
	if _, err := p.file.ReadAt(buf, p.offset(n)); err != nil {
		return nil, dberr.Wrap(dberr.KindIo, "pager.fetch", err).WithContext(map[string]interface{}{"page": n})
	}

	p.cacheMu.Lock()
	p.cache[n] = buf
	p.cacheOrder = append(p.cacheOrder, n)
	p.evictLocked()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	p.cacheMu.Unlock()

	return cp, nil
}

// evictLocked drops the oldest unleased cached pages until the cache is
// within its configured limit. cacheMu must be held.
func (p *Pager) evictLocked() {
	for len(p.cache) > p.cacheLimit && len(p.cacheOrder) > 0 {
		oldest := p.cacheOrder[0]
		if p.leased[oldest] > 0 {
			break // FIFO: a leased page blocks eviction of anything behind it too, conservatively
		}
		p.cacheOrder = p.cacheOrder[1:]
		delete(p.cache, oldest)
	}
}

func (p *Pager) unlease(n uint32) {
	p.cacheMu.Lock()
	if p.leased[n] > 0 {
		p.leased[n]--
	}
	p.cacheMu.Unlock()
}

// offset returns the file byte offset for page n: page 1 starts at 0 (its
// 100-byte header is logically part of the page, not skipped at this
// layer), all others at (n-1)*page_size.
func (p *Pager) offset(n uint32) int64 {
	return int64(n-1) * int64(p.pageSize)
}
