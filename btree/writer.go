package btree

import (
	"context"
	"encoding/binary"

	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/varint"
)

// AppendLeaf appends one cell to the single (root) leaf page of a table
// B-tree. Multi-page growth is a non-goal: this only ever succeeds against
// a table whose root page is itself a leaf. It fails with KindNoRoom if the
// page lacks sufficient free space, and KindUnsupported if root is an
// interior page.
func AppendLeaf(ctx context.Context, p *pager.Pager, root uint32, rowid int64, payload []byte) error {
	lease, err := p.WritePage(ctx, root)
	if err != nil {
		return err
	}
	defer lease.Release()

	buf := lease.Bytes()
	base := 0
	if root == 1 {
		base = 100
	}
	h, err := parsePageHeader(buf, base)
	if err != nil {
		return err
	}
	if h.kind != PageTableLeaf {
		return dberr.New(dberr.KindUnsupported, "btree.AppendLeaf").WithContext(map[string]interface{}{"reason": "multi-page growth unsupported", "page": root})
	}

	cellBody := append(varint.Encode(int64(len(payload))), varint.Encode(rowid)...)
	cellBody = append(cellBody, payload...)

	usable := int(p.PageSize())
	local, overflow := localPayloadSplit(usable, len(payload))
	if overflow > 0 {
		return dberr.New(dberr.KindUnsupported, "btree.AppendLeaf").WithContext(map[string]interface{}{"reason": "payload requires overflow page"})
	}
	_ = local

	ptrArrayEnd := base + h.headerLen + int(h.cellCount)*2
	newPtrArrayEnd := ptrArrayEnd + 2
	contentStart := int(h.cellContentStart)
	if contentStart == 0 {
		contentStart = usable // SQLite stores 0 to mean a full page of content (page size 65536 case); treated literally here for the common case
	}
	newContentStart := contentStart - len(cellBody)

	if newContentStart < newPtrArrayEnd {
		return dberr.New(dberr.KindNoRoom, "btree.AppendLeaf").WithContext(map[string]interface{}{"page": root, "needed": len(cellBody), "available": contentStart - ptrArrayEnd})
	}

	copy(buf[newContentStart:contentStart], cellBody)

	// Insert the new cell pointer; table leaf inserts preserve on-disk
	// insertion order here since the core only ever appends to one leaf.
	newPtrOff := base + h.headerLen + int(h.cellCount)*2
	binary.BigEndian.PutUint16(buf[newPtrOff:newPtrOff+2], uint16(newContentStart))

	binary.BigEndian.PutUint16(buf[base+3:base+5], h.cellCount+1)
	binary.BigEndian.PutUint16(buf[base+5:base+7], uint16(newContentStart))

	return nil
}

// SeekRowid looks up a single row by rowid. The core only supports the
// trivial single-page case; any table whose root is an interior page
// returns KindUnsupported rather than attempting a multi-level descent.
func SeekRowid(ctx context.Context, p *pager.Pager, root uint32, rowid int64) (*CellRef, bool, error) {
	lease, err := p.ReadPage(ctx, root)
	if err != nil {
		return nil, false, err
	}
	defer lease.Release()

	base := 0
	if root == 1 {
		base = 100
	}
	buf := lease.Bytes()
	h, err := parsePageHeader(buf, base)
	if err != nil {
		return nil, false, err
	}
	if h.kind != PageTableLeaf {
		return nil, false, dberr.New(dberr.KindUnsupported, "btree.SeekRowid").WithContext(map[string]interface{}{"reason": "multi-level seek unsupported", "page": root})
	}
	ptrs, err := cellPointers(buf, base, h)
	if err != nil {
		return nil, false, err
	}

	usable := int(p.PageSize())
	for _, ptr := range ptrs {
		off := base + int(ptr)
		payloadSize, n1, err := varint.Decode(buf[off:])
		if err != nil {
			return nil, false, dberr.Wrap(dberr.KindCorrupt, "btree.SeekRowid", err)
		}
		rid, n2, err := varint.Decode(buf[off+n1:])
		if err != nil {
			return nil, false, dberr.Wrap(dberr.KindCorrupt, "btree.SeekRowid", err)
		}
		if rid != rowid {
			continue
		}
		bodyOff := off + n1 + n2
		local, overflow := localPayloadSplit(usable, int(payloadSize))
		if overflow > 0 {
			return nil, false, dberr.New(dberr.KindUnsupported, "btree.SeekRowid").WithContext(map[string]interface{}{"reason": "overflow payload not supported"})
		}
		cp := make([]byte, local)
		copy(cp, buf[bodyOff:bodyOff+local])
		return &CellRef{Rowid: rid, Payload: cp}, true, nil
	}
	return nil, false, nil
}
