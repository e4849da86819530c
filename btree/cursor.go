// Package btree provides streaming iteration over SQLite table B-trees.
// The cursor holds a stack of (page, next_cell_index) frames and yields
// leaf cells in ascending rowid order, per SPEC_FULL.md §4.4.
package btree

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/varint"
)

var log = logrus.WithField("component", "btree")

// CellRef is one decoded leaf cell: a rowid and its payload bytes. The
// Payload slice is owned by the cursor's current leaf-page lease and is
// invalidated by the following call to Next or Close — callers that need
// it afterward must copy it (SPEC_FULL.md §4.4, §4.9, §9).
type CellRef struct {
	Rowid   int64
	Payload []byte
}

type frame struct {
	page        uint32
	lease       *pager.ReadLease
	header      *pageHeader
	ptrs        []uint16
	next        int  // index of the next cell pointer to process
	rightPushed bool // whether the interior right-pointer child has been pushed
	base        int  // byte offset of the page header (100 for page 1, else 0)
}

// TableCursor streams cells of one table B-tree in ascending rowid order.
type TableCursor struct {
	p      *pager.Pager
	root   uint32
	stack  []*frame
	opened bool
	closed bool
}

// NewTableCursor creates a cursor rooted at root. Call Open before Next.
func NewTableCursor(p *pager.Pager, root uint32) *TableCursor {
	return &TableCursor{p: p, root: root}
}

// Open seats the cursor at the root page.
func (c *TableCursor) Open(ctx context.Context) error {
	if c.opened {
		return nil
	}
	c.opened = true
	fr, err := c.loadFrame(ctx, c.root)
	if err != nil {
		return err
	}
	c.stack = append(c.stack, fr)
	return nil
}

func (c *TableCursor) loadFrame(ctx context.Context, page uint32) (*frame, error) {
	lease, err := c.p.ReadPage(ctx, page)
	if err != nil {
		return nil, err
	}
	base := 0
	if page == 1 {
		base = 100
	}
	buf := lease.Bytes()
	h, err := parsePageHeader(buf, base)
	if err != nil {
		lease.Release()
		return nil, err
	}
	if h.kind == PageIndexLeaf || h.kind == PageIndexInterior {
		lease.Release()
		return nil, dberr.New(dberr.KindUnsupported, "btree.TableCursor").WithContext(map[string]interface{}{"reason": "index b-tree iteration unsupported", "page": page})
	}
	ptrs, err := cellPointers(buf, base, h)
	if err != nil {
		lease.Release()
		return nil, err
	}
	return &frame{page: page, lease: lease, header: h, ptrs: ptrs, base: base}, nil
}

// Next returns the next cell in ascending rowid order, or (nil, nil) at
// end of stream. The returned CellRef's Payload is only valid until the
// next call to Next or Close.
func (c *TableCursor) Next(ctx context.Context) (*CellRef, error) {
	if c.closed {
		return nil, dberr.New(dberr.KindClosed, "btree.TableCursor.Next")
	}
	for len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]

		if top.next >= len(top.ptrs) {
			if top.header.kind == PageTableInterior && !top.rightPushed {
				top.rightPushed = true
				child, err := c.loadFrame(ctx, top.header.rightPage)
				if err != nil {
					return nil, err
				}
				c.stack = append(c.stack, child)
				continue
			}
			top.lease.Release()
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}

		cellOff := int(top.ptrs[top.next])
		top.next++
		buf := top.lease.Bytes()

		if top.header.kind == PageTableInterior {
			child, rowid, err := decodeInteriorCell(buf, top.base+cellOff)
			if err != nil {
				return nil, err
			}
			_ = rowid // table interior cells carry a separator key only, not a row
			childFrame, err := c.loadFrame(ctx, child)
			if err != nil {
				return nil, err
			}
			c.stack = append(c.stack, childFrame)
			continue
		}

		ref, err := c.decodeLeafCell(ctx, top, cellOff)
		if err != nil {
			return nil, err
		}
		return ref, nil
	}
	return nil, nil
}

func decodeInteriorCell(buf []byte, off int) (child uint32, rowid int64, err error) {
	if off+4 > len(buf) {
		return 0, 0, dberr.New(dberr.KindCorrupt, "btree.decodeInteriorCell").WithContext(map[string]interface{}{"reason": "truncated cell"})
	}
	child = uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3])
	rowid, _, err = varint.Decode(buf[off+4:])
	if err != nil {
		return 0, 0, dberr.Wrap(dberr.KindCorrupt, "btree.decodeInteriorCell", err)
	}
	return child, rowid, nil
}

func (c *TableCursor) decodeLeafCell(ctx context.Context, fr *frame, off int) (*CellRef, error) {
	buf := fr.lease.Bytes()
	payloadSize, n1, err := varint.Decode(buf[off:])
	if err != nil {
		return nil, dberr.Wrap(dberr.KindCorrupt, "btree.decodeLeafCell", err)
	}
	rowid, n2, err := varint.Decode(buf[off+n1:])
	if err != nil {
		return nil, dberr.Wrap(dberr.KindCorrupt, "btree.decodeLeafCell", err)
	}
	bodyOff := off + n1 + n2

	usable := int(c.p.PageSize())
	local, overflow := localPayloadSplit(usable, int(payloadSize))
	if overflow > 0 {
		return nil, dberr.New(dberr.KindUnsupported, "btree.decodeLeafCell").WithContext(map[string]interface{}{"reason": "overflow payload not supported", "page": fr.page})
	}
	if bodyOff+local > len(buf) {
		return nil, dberr.New(dberr.KindCorrupt, "btree.decodeLeafCell").WithContext(map[string]interface{}{"reason": "truncated payload"})
	}

	return &CellRef{Rowid: rowid, Payload: buf[bodyOff : bodyOff+local]}, nil
}

// Close releases all held leases. Idempotent.
func (c *TableCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, fr := range c.stack {
		fr.lease.Release()
	}
	c.stack = nil
	return nil
}
