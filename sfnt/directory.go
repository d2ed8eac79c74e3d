package sfnt

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	scalerTrueType   = 0x00010000
	scalerApple      = 0x74727565 // 'true'
	scalerCFF        = 0x4F54544F // 'OTTO'
	scalerCollection = 0x74746366 // 'ttcf'

	headerSize = 12
	recordSize = 16

	checksumMagic = 0xB1B0AFBA
	headAdjustOff = 8
)

// Record is one entry of the sfnt table directory.
type Record struct {
	Tag      string
	Checksum uint32
	Offset   uint32
	Length   uint32
}

// Directory is the decoded sfnt table directory.
type Directory struct {
	ScalerType uint32
	Records    []Record
	byTag      map[string]int
}

// ParseDirectory decodes the table directory at the start of data and checks
// that every table lies inside data.
func ParseDirectory(data []byte) (*Directory, error) {
	d := NewData(data)
	dir := &Directory{ScalerType: d.ReadUint32()}
	numTables := int(d.ReadUint16())
	d.Skip(6) // searchRange, entrySelector, rangeShift
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read directory header: %w", err)
	}
	switch dir.ScalerType {
	case scalerTrueType, scalerApple:
	case scalerCFF:
		return nil, fmt.Errorf("%w: CFF outlines", ErrUnsupported)
	case scalerCollection:
		return nil, fmt.Errorf("%w: font collection", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown scaler type %08x", ErrMalformed, dir.ScalerType)
	}

	dir.Records = make([]Record, 0, numTables)
	dir.byTag = make(map[string]int, numTables)
	for i := 0; i < numTables; i++ {
		rec := Record{
			Tag:      d.ReadString(4),
			Checksum: d.ReadUint32(),
			Offset:   d.ReadUint32(),
			Length:   d.ReadUint32(),
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("table directory truncated: %w", err)
		}
		if uint64(rec.Offset)+uint64(rec.Length) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: table %q out of bounds", ErrMalformed, rec.Tag)
		}
		dir.byTag[rec.Tag] = len(dir.Records)
		dir.Records = append(dir.Records, rec)
	}
	return dir, nil
}

// Has reports whether the directory lists tag.
func (dir *Directory) Has(tag string) bool {
	_, ok := dir.byTag[tag]
	return ok
}

// Record returns the directory entry for tag.
func (dir *Directory) Record(tag string) (Record, bool) {
	i, ok := dir.byTag[tag]
	if !ok {
		return Record{}, false
	}
	return dir.Records[i], true
}

// Table returns the bytes of table tag inside data.
func (dir *Directory) Table(data []byte, tag string) ([]byte, error) {
	rec, ok := dir.Record(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, tag)
	}
	return data[rec.Offset : rec.Offset+rec.Length], nil
}

// VerifyChecksums returns the tags whose stored checksum differs from the
// computed one. The head table is summed with checkSumAdjustment zeroed.
func (dir *Directory) VerifyChecksums(data []byte) []string {
	var bad []string
	for _, rec := range dir.Records {
		table := data[rec.Offset : rec.Offset+rec.Length]
		sum := Checksum(table)
		if rec.Tag == "head" && len(table) >= headAdjustOff+4 {
			sum -= binary.BigEndian.Uint32(table[headAdjustOff:])
		}
		if sum != rec.Checksum {
			bad = append(bad, rec.Tag)
		}
	}
	return bad
}

// Checksum sums data as big-endian uint32 words, zero padding the tail.
// The sum wraps at 32 bits.
func Checksum(data []byte) uint32 {
	var sum uint32
	n := len(data) &^ 3
	for i := 0; i < n; i += 4 {
		sum += binary.BigEndian.Uint32(data[i:])
	}
	if n < len(data) {
		var tail [4]byte
		copy(tail[:], data[n:])
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

// TableData is a tagged table blob handed to EncodeDirectory.
type TableData struct {
	Tag  string
	Data []byte
}

// searchParams returns the binary search fields of the directory header for n tables.
func searchParams(n int) (searchRange, entrySelector, rangeShift uint16) {
	if n == 0 {
		return 0, 0, 0
	}
	sel := bits.Len(uint(n)) - 1
	searchRange = uint16(16 << sel)
	entrySelector = uint16(sel)
	rangeShift = uint16(16*n) - searchRange
	return
}

// EncodeDirectory assembles tables, in the order given, into an sfnt binary.
// Every table is padded to a 4-byte boundary. If a head table is present its
// checkSumAdjustment is recomputed over the whole file.
//
// The input slices are not modified.
func EncodeDirectory(tables []TableData) []byte {
	out := NewData(make([]byte, 0, encodedSize(tables)))
	searchRange, entrySelector, rangeShift := searchParams(len(tables))
	out.WriteUint32(scalerTrueType)
	out.WriteUint16(uint16(len(tables)))
	out.WriteUint16(searchRange)
	out.WriteUint16(entrySelector)
	out.WriteUint16(rangeShift)

	headOffset := -1
	offset := uint32(headerSize + recordSize*len(tables))
	for _, t := range tables {
		sum := Checksum(t.Data)
		if t.Tag == "head" && len(t.Data) >= headAdjustOff+4 {
			sum -= binary.BigEndian.Uint32(t.Data[headAdjustOff:])
			headOffset = int(offset)
		}
		out.WriteString(padTag(t.Tag))
		out.WriteUint32(sum)
		out.WriteUint32(offset)
		out.WriteUint32(uint32(len(t.Data)))
		offset += uint32(padded(len(t.Data)))
	}
	for _, t := range tables {
		out.Write(t.Data)
		for i := len(t.Data); i < padded(len(t.Data)); i++ {
			out.WriteUint8(0)
		}
	}

	buf := out.Bytes()
	if headOffset >= 0 {
		adj := buf[headOffset+headAdjustOff : headOffset+headAdjustOff+4]
		binary.BigEndian.PutUint32(adj, 0)
		binary.BigEndian.PutUint32(adj, checksumMagic-Checksum(buf))
	}
	return buf
}

func encodedSize(tables []TableData) int {
	n := headerSize + recordSize*len(tables)
	for _, t := range tables {
		n += padded(len(t.Data))
	}
	return n
}

func padded(n int) int { return (n + 3) &^ 3 }

func padTag(tag string) string {
	for len(tag) < 4 {
		tag += " "
	}
	return tag[:4]
}
