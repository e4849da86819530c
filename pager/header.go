package pager

import (
	"bytes"
	"encoding/binary"

	"github.com/kavelabs/litesql/dberr"
)

const headerSize = 100

var magic = []byte("SQLite format 3\x00")

// FileHeader is the 100-byte SQLite database header on page 1.
type FileHeader struct {
	PageSize      uint32
	ReservedSpace uint8
	TextEncoding  uint32
	ChangeCounter uint32
	DatabaseSize  uint32
}

// parseHeader validates and decodes the 100-byte header per SPEC_FULL.md §6.
func parseHeader(buf []byte) (*FileHeader, error) {
	if len(buf) < headerSize {
		return nil, dberr.New(dberr.KindFormat, "pager.parseHeader").WithContext(map[string]interface{}{"reason": "file too small"})
	}
	if !bytes.Equal(buf[0:16], magic) {
		return nil, dberr.New(dberr.KindFormat, "pager.parseHeader").WithContext(map[string]interface{}{"reason": "bad magic"})
	}

	rawPageSize := binary.BigEndian.Uint16(buf[16:18])
	var pageSize uint32
	switch {
	case rawPageSize == 1:
		pageSize = 65536
	case rawPageSize >= 512 && (rawPageSize&(rawPageSize-1)) == 0:
		pageSize = uint32(rawPageSize)
	default:
		return nil, dberr.New(dberr.KindFormat, "pager.parseHeader").WithContext(map[string]interface{}{"reason": "invalid page size", "page_size": rawPageSize})
	}

	reserved := buf[20]
	if reserved != 0 {
		return nil, dberr.New(dberr.KindUnsupported, "pager.parseHeader").WithContext(map[string]interface{}{"reason": "reserved space not supported"})
	}

	textEncoding := binary.BigEndian.Uint32(buf[56:60])
	if textEncoding != 1 {
		return nil, dberr.New(dberr.KindUnsupported, "pager.parseHeader").WithContext(map[string]interface{}{"reason": "non-UTF-8 text encoding", "encoding": textEncoding})
	}

	return &FileHeader{
		PageSize:      pageSize,
		ReservedSpace: reserved,
		TextEncoding:  textEncoding,
		ChangeCounter: binary.BigEndian.Uint32(buf[24:28]),
		DatabaseSize:  binary.BigEndian.Uint32(buf[28:32]),
	}, nil
}
