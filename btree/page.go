package btree

import (
	"encoding/binary"

	"github.com/kavelabs/litesql/dberr"
)

// Page type bytes per SPEC_FULL.md §6.
const (
	PageTableLeaf     = 0x0D
	PageTableInterior = 0x05
	PageIndexLeaf     = 0x0A
	PageIndexInterior = 0x02
)

type pageHeader struct {
	kind             byte
	freeBlock        uint16
	cellCount        uint16
	cellContentStart uint16
	fragFree         uint8
	rightPage        uint32 // only meaningful for interior pages
	headerLen        int    // 8 or 12 bytes
}

// parsePageHeader reads the page header starting at buf[base:], where base
// is 100 for page 1 (to skip the file header) and 0 otherwise.
func parsePageHeader(buf []byte, base int) (*pageHeader, error) {
	if base+8 > len(buf) {
		return nil, dberr.New(dberr.KindCorrupt, "btree.parsePageHeader").WithContext(map[string]interface{}{"reason": "truncated page header"})
	}
	h := &pageHeader{
		kind:             buf[base],
		freeBlock:        binary.BigEndian.Uint16(buf[base+1 : base+3]),
		cellCount:        binary.BigEndian.Uint16(buf[base+3 : base+5]),
		cellContentStart: binary.BigEndian.Uint16(buf[base+5 : base+7]),
		fragFree:         buf[base+7],
		headerLen:        8,
	}
	switch h.kind {
	case PageTableLeaf, PageIndexLeaf:
		// no right pointer
	case PageTableInterior, PageIndexInterior:
		if base+12 > len(buf) {
			return nil, dberr.New(dberr.KindCorrupt, "btree.parsePageHeader").WithContext(map[string]interface{}{"reason": "truncated interior header"})
		}
		h.rightPage = binary.BigEndian.Uint32(buf[base+8 : base+12])
		h.headerLen = 12
	default:
		return nil, dberr.New(dberr.KindCorrupt, "btree.parsePageHeader").WithContext(map[string]interface{}{"reason": "invalid page type byte", "byte": h.kind})
	}
	return h, nil
}

// cellPointers reads the cellCount two-byte cell offsets immediately
// following the page header.
func cellPointers(buf []byte, base int, h *pageHeader) ([]uint16, error) {
	start := base + h.headerLen
	need := start + int(h.cellCount)*2
	if need > len(buf) {
		return nil, dberr.New(dberr.KindCorrupt, "btree.cellPointers").WithContext(map[string]interface{}{"reason": "truncated cell pointer array"})
	}
	ptrs := make([]uint16, h.cellCount)
	for i := 0; i < int(h.cellCount); i++ {
		off := start + i*2
		ptrs[i] = binary.BigEndian.Uint16(buf[off : off+2])
	}
	return ptrs, nil
}

// localPayloadSplit computes how many of a table-leaf cell's P payload
// bytes are stored locally on the page versus spilled to overflow pages,
// per SQLite's file-format formula (grounded on the M/K computation in
// riyaz-ali-dotlite/btree.go).
func localPayloadSplit(usable int, payloadSize int) (local, overflow int) {
	x := usable - 35
	if payloadSize <= x {
		return payloadSize, 0
	}
	m := ((usable-12)*32/255) - 23
	k := m + ((payloadSize - m) % (usable - 4))
	if k > x {
		local = m
	} else {
		local = k
	}
	return local, payloadSize - local
}
