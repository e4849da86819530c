// Package record decodes and encodes SQLite cell payloads: a record header
// of serial-type codes followed by a body of tightly packed values.
package record

import (
	"encoding/binary"
	"math"

	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/sqlvalue"
	"github.com/kavelabs/litesql/varint"
)

// SerialWidth returns the number of body bytes a serial type code occupies,
// and the logical SqlValue.Type it decodes to. It fails with KindCorrupt on
// the two reserved codes (10, 11).
func SerialWidth(code int64) (width int, typ sqlvalue.Type, err error) {
	switch {
	case code == 0:
		return 0, sqlvalue.TypeNull, nil
	case code >= 1 && code <= 4:
		return int(code), sqlvalue.TypeInt, nil
	case code == 5:
		return 6, sqlvalue.TypeInt, nil
	case code == 6:
		return 8, sqlvalue.TypeInt, nil
	case code == 7:
		return 8, sqlvalue.TypeReal, nil
	case code == 8 || code == 9:
		return 0, sqlvalue.TypeInt, nil
	case code == 10 || code == 11:
		return 0, sqlvalue.TypeNull, dberr.New(dberr.KindCorrupt, "record.SerialWidth").WithContext(map[string]interface{}{"code": code, "reason": "reserved serial type"})
	case code >= 12 && code%2 == 0:
		return int((code - 12) / 2), sqlvalue.TypeBlob, nil
	case code >= 13:
		return int((code - 13) / 2), sqlvalue.TypeText, nil
	default:
		return 0, sqlvalue.TypeNull, dberr.New(dberr.KindCorrupt, "record.SerialWidth").WithContext(map[string]interface{}{"code": code, "reason": "negative serial type"})
	}
}

// decodeValue interprets width bytes of buf as the value for the given
// serial type code.
func decodeValue(code int64, buf []byte) (sqlvalue.Value, error) {
	switch {
	case code == 0:
		return sqlvalue.Null(), nil
	case code >= 1 && code <= 6:
		return sqlvalue.Int(decodeIntN(buf)), nil
	case code == 7:
		bits := binary.BigEndian.Uint64(buf)
		return sqlvalue.Real(math.Float64frombits(bits)), nil
	case code == 8:
		return sqlvalue.Int(0), nil
	case code == 9:
		return sqlvalue.Int(1), nil
	case code >= 12 && code%2 == 0:
		cp := make([]byte, len(buf))
		copy(cp, buf)
		return sqlvalue.Blob(cp), nil
	case code >= 13:
		return sqlvalue.Text(string(buf)), nil
	default:
		return sqlvalue.Value{}, dberr.New(dberr.KindCorrupt, "record.decodeValue").WithContext(map[string]interface{}{"code": code})
	}
}

// decodeIntN sign-extends a big-endian two's-complement integer of
// len(buf) in {1,2,3,4,6,8} bytes.
func decodeIntN(buf []byte) int64 {
	var u uint64
	for _, b := range buf {
		u = (u << 8) | uint64(b)
	}
	bits := uint(len(buf)) * 8
	if bits < 64 && u&(1<<(bits-1)) != 0 {
		u |= ^uint64(0) << bits
	}
	return int64(u)
}

// encodeIntN returns the narrowest of {1,2,3,4,6,8}-byte big-endian
// two's-complement encodings of v, along with its serial type code.
func encodeIntN(v int64) (code int64, buf []byte) {
	fits := func(bits uint) bool {
		if bits >= 64 {
			return true
		}
		lo, hi := -(int64(1) << (bits - 1)), (int64(1)<<(bits-1))-1
		return v >= lo && v <= hi
	}
	widths := []struct {
		bits int
		code int64
	}{
		{8, 1}, {16, 2}, {24, 3}, {32, 4}, {48, 5}, {64, 6},
	}
	for _, w := range widths {
		if fits(uint(w.bits)) {
			n := w.bits / 8
			buf = make([]byte, n)
			u := uint64(v)
			for i := n - 1; i >= 0; i-- {
				buf[i] = byte(u)
				u >>= 8
			}
			return w.code, buf
		}
	}
	// unreachable: 64 bits always fits
	return 6, make([]byte, 8)
}

// Decode parses a cell payload into an ordered slice of values, one per
// serial type in the record header.
func Decode(payload []byte) ([]sqlvalue.Value, error) {
	headerSize, hn, err := varint.Decode(payload)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindCorrupt, "record.Decode", err)
	}
	if int(headerSize) > len(payload) || headerSize < int64(hn) {
		return nil, dberr.New(dberr.KindCorrupt, "record.Decode").WithContext(map[string]interface{}{"reason": "header size out of range"})
	}

	var codes []int64
	pos := hn
	for pos < int(headerSize) {
		code, n, err := varint.Decode(payload[pos:])
		if err != nil {
			return nil, dberr.Wrap(dberr.KindCorrupt, "record.Decode", err)
		}
		codes = append(codes, code)
		pos += n
	}

	values := make([]sqlvalue.Value, len(codes))
	bodyPos := int(headerSize)
	for i, code := range codes {
		width, _, err := SerialWidth(code)
		if err != nil {
			return nil, err
		}
		if bodyPos+width > len(payload) {
			return nil, dberr.New(dberr.KindCorrupt, "record.Decode").WithContext(map[string]interface{}{"reason": "truncated body", "column": i})
		}
		v, err := decodeValue(code, payload[bodyPos:bodyPos+width])
		if err != nil {
			return nil, err
		}
		values[i] = v
		bodyPos += width
	}
	return values, nil
}

// Encode serializes values into a cell payload, choosing the narrowest
// serial type for each value.
func Encode(values []sqlvalue.Value) []byte {
	codes := make([]int64, len(values))
	bodies := make([][]byte, len(values))

	for i, v := range values {
		switch v.Typ {
		case sqlvalue.TypeNull:
			codes[i] = 0
		case sqlvalue.TypeInt:
			if v.I == 0 {
				codes[i] = 8
			} else if v.I == 1 {
				codes[i] = 9
			} else {
				codes[i], bodies[i] = encodeIntN(v.I)
			}
		case sqlvalue.TypeReal:
			codes[i] = 7
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, math.Float64bits(v.R))
			bodies[i] = buf
		case sqlvalue.TypeText:
			b := []byte(v.S)
			codes[i] = int64(len(b)*2 + 13)
			bodies[i] = b
		case sqlvalue.TypeBlob:
			codes[i] = int64(len(v.B)*2 + 12)
			bodies[i] = v.B
		case sqlvalue.TypeBool:
			if v.Bool {
				codes[i] = 9
			} else {
				codes[i] = 8
			}
		}
	}

	headerBody := []byte{}
	for _, c := range codes {
		headerBody = append(headerBody, varint.Encode(c)...)
	}

	// header_size itself is varint-encoded and included in its own count;
	// account for the width this adds before freezing the final size.
	headerSize := len(headerBody) + 1
	for varint.Size(int64(headerSize)) != headerSize-len(headerBody) {
		headerSize = len(headerBody) + varint.Size(int64(headerSize))
	}

	out := append([]byte{}, varint.Encode(int64(headerSize))...)
	out = append(out, headerBody...)
	for _, b := range bodies {
		out = append(out, b...)
	}
	return out
}
