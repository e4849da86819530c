// Package sqlitetest builds minimal, single-leaf-page SQLite files in
// memory for use by other packages' tests. It only ever emits the shapes
// this module itself can read back: one table-leaf sqlite_schema page and
// zero or more single-leaf-page tables, with no overflow and no interior
// pages.
package sqlitetest

import (
	"encoding/binary"
	"sort"

	"github.com/kavelabs/litesql/record"
	"github.com/kavelabs/litesql/sqlvalue"
	"github.com/kavelabs/litesql/varint"
)

// Row is one rowid/value-list pair to append to a table-leaf page.
type Row struct {
	Rowid  int64
	Values []sqlvalue.Value
}

// Table describes one user table: its root page number, the CREATE TABLE
// text registered in sqlite_schema, and its rows.
type Table struct {
	Name     string
	RootPage uint32
	SQL      string
	Rows     []Row
}

// Build assembles a full database file: page 1 holds sqlite_schema (one
// row per table), and each table gets its own single-leaf page at its
// RootPage. pageSize must be large enough to hold every page's cells.
func Build(pageSize int, tables []Table) []byte {
	pageCount := 1
	for _, t := range tables {
		if int(t.RootPage) > pageCount {
			pageCount = int(t.RootPage)
		}
	}

	buf := make([]byte, pageSize*pageCount)
	writeFileHeader(buf, pageSize)

	schemaRows := make([]Row, len(tables))
	for i, t := range tables {
		schemaRows[i] = Row{
			Rowid: int64(i + 1),
			Values: []sqlvalue.Value{
				sqlvalue.Text("table"),
				sqlvalue.Text(t.Name),
				sqlvalue.Text(t.Name),
				sqlvalue.Int(int64(t.RootPage)),
				sqlvalue.Text(t.SQL),
			},
		}
	}
	writeLeafPage(buf, pageSize, 1, schemaRows)

	for _, t := range tables {
		writeLeafPage(buf, pageSize, int(t.RootPage), t.Rows)
	}
	return buf
}

func writeFileHeader(buf []byte, pageSize int) {
	copy(buf[0:16], []byte("SQLite format 3\x00"))
	binary.BigEndian.PutUint16(buf[16:18], uint16(pageSize))
	buf[18] = 1 // file format write version
	buf[19] = 1 // file format read version
	buf[20] = 0 // reserved space per page
	buf[21] = 64
	buf[22] = 32
	buf[23] = 32
	binary.BigEndian.PutUint32(buf[24:28], 1) // file change counter
	binary.BigEndian.PutUint32(buf[28:32], uint32(len(buf)/pageSize))
	binary.BigEndian.PutUint32(buf[56:60], 1) // text encoding: UTF-8
}

// writeLeafPage writes a table-leaf page (page number n, 1-based) packed
// with rows, growing cell content downward from the end of the page as
// SQLite itself does.
func writeLeafPage(buf []byte, pageSize, n int, rows []Row) {
	pageStart := (n - 1) * pageSize
	base := 0
	if n == 1 {
		base = 100
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rowid < sorted[j].Rowid })

	contentEnd := pageSize
	ptrs := make([]uint16, 0, len(sorted))

	for _, row := range sorted {
		payload := record.Encode(row.Values)
		cell := append(varint.Encode(int64(len(payload))), varint.Encode(row.Rowid)...)
		cell = append(cell, payload...)

		contentEnd -= len(cell)
		copy(buf[pageStart+contentEnd:pageStart+contentEnd+len(cell)], cell)
		ptrs = append(ptrs, uint16(contentEnd))
	}

	page := buf[pageStart:]
	page[base] = 0x0D // table leaf
	binary.BigEndian.PutUint16(page[base+1:base+3], 0)
	binary.BigEndian.PutUint16(page[base+3:base+5], uint16(len(rows)))
	binary.BigEndian.PutUint16(page[base+5:base+7], uint16(contentEnd))
	page[base+7] = 0

	ptrStart := base + 8
	for i, p := range ptrs {
		off := ptrStart + i*2
		binary.BigEndian.PutUint16(page[off:off+2], p)
	}
}
