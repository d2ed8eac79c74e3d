package sfnt

import (
	"fmt"
	"sort"
)

// CmapSubtable is one decoded character-to-glyph subtable.
type CmapSubtable struct {
	PlatformID uint16
	EncodingID uint16
	Format     uint16
	Map        map[rune]uint16
}

// Cmap holds every subtable the decoder understands. Subtables of other
// formats are listed with a nil Map.
type Cmap struct {
	Version   uint16
	Subtables []*CmapSubtable
}

func (*Cmap) Tag() string { return "cmap" }

func (c *Cmap) Parse(d *Data) error {
	c.Version = d.ReadUint16()
	n := int(d.ReadUint16())
	type record struct {
		platform, encoding uint16
		offset             int
	}
	records := make([]record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, record{d.ReadUint16(), d.ReadUint16(), int(d.ReadUint32())})
	}
	if err := d.Err(); err != nil {
		return err
	}
	decoded := make(map[int]*CmapSubtable)
	for _, r := range records {
		if r.offset+2 > d.Len() {
			return fmt.Errorf("%w: cmap subtable offset %d", ErrMalformed, r.offset)
		}
		st := &CmapSubtable{PlatformID: r.platform, EncodingID: r.encoding}
		if prev, ok := decoded[r.offset]; ok {
			st.Format, st.Map = prev.Format, prev.Map
			c.Subtables = append(c.Subtables, st)
			continue
		}
		d.Seek(r.offset)
		st.Format = d.ReadUint16()
		var err error
		switch st.Format {
		case 0:
			st.Map, err = parseCmap0(d)
		case 4:
			st.Map, err = parseCmap4(d, r.offset)
		case 6:
			st.Map, err = parseCmap6(d)
		case 12:
			st.Map, err = parseCmap12(d)
		}
		if err != nil {
			return fmt.Errorf("cmap (%d,%d) format %d: %w", r.platform, r.encoding, st.Format, err)
		}
		decoded[r.offset] = st
		c.Subtables = append(c.Subtables, st)
	}
	return nil
}

func parseCmap0(d *Data) (map[rune]uint16, error) {
	d.Skip(4) // length, language
	ids := d.Read(256)
	if err := d.Err(); err != nil {
		return nil, err
	}
	m := make(map[rune]uint16)
	for code, gid := range ids {
		if gid != 0 {
			m[rune(code)] = uint16(gid)
		}
	}
	return m, nil
}

// parseCmap4 decodes a segment mapping to delta values table. start is the
// subtable offset; the glyph id array runs to the end of the subtable.
func parseCmap4(d *Data, start int) (map[rune]uint16, error) {
	length := int(d.ReadUint16())
	d.Skip(2) // language
	segCount := int(d.ReadUint16() / 2)
	d.Skip(6) // searchRange, entrySelector, rangeShift
	end := readUint16s(d, segCount)
	d.Skip(2) // reservedPad
	startCodes := readUint16s(d, segCount)
	delta := readUint16s(d, segCount)
	rangeOffset := readUint16s(d, segCount)
	if err := d.Err(); err != nil {
		return nil, err
	}
	limit := start + length
	if limit > d.Len() {
		limit = d.Len()
	}
	remaining := (limit - d.Pos()) / 2
	if remaining < 0 {
		remaining = 0
	}
	glyphIDs := readUint16s(d, remaining)

	m := make(map[rune]uint16)
	for i := 0; i < segCount; i++ {
		if startCodes[i] > end[i] {
			return nil, fmt.Errorf("%w: segment %d start %d after end %d", ErrMalformed, i, startCodes[i], end[i])
		}
		for code := int(startCodes[i]); code <= int(end[i]); code++ {
			var gid uint16
			if rangeOffset[i] == 0 {
				gid = uint16(code) + delta[i]
			} else {
				idx := int(rangeOffset[i])/2 + (code - int(startCodes[i])) - (segCount - i)
				if idx < 0 || idx >= len(glyphIDs) {
					continue
				}
				gid = glyphIDs[idx]
				if gid != 0 {
					gid += delta[i]
				}
			}
			if gid != 0 && code != 0xFFFF {
				m[rune(code)] = gid
			}
		}
	}
	return m, nil
}

func parseCmap6(d *Data) (map[rune]uint16, error) {
	d.Skip(4) // length, language
	first := rune(d.ReadUint16())
	ids := readUint16s(d, int(d.ReadUint16()))
	if err := d.Err(); err != nil {
		return nil, err
	}
	m := make(map[rune]uint16)
	for i, gid := range ids {
		if gid != 0 {
			m[first+rune(i)] = gid
		}
	}
	return m, nil
}

func parseCmap12(d *Data) (map[rune]uint16, error) {
	d.Skip(10) // reserved, length, language
	groups := int(d.ReadUint32())
	if groups*12 > d.Len()-d.Pos() {
		return nil, fmt.Errorf("%w: %d groups overflow table", ErrMalformed, groups)
	}
	m := make(map[rune]uint16)
	for i := 0; i < groups; i++ {
		first := d.ReadUint32()
		last := d.ReadUint32()
		gid := d.ReadUint32()
		if last < first || last > 0x10FFFF {
			return nil, fmt.Errorf("%w: group %d range %x-%x", ErrMalformed, i, first, last)
		}
		for c := first; c <= last; c++ {
			if g := gid + c - first; g != 0 && g <= 0xFFFF {
				m[rune(c)] = uint16(g)
			}
		}
	}
	return m, d.Err()
}

func readUint16s(d *Data, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = d.ReadUint16()
	}
	return out
}

// cmapPreference lists (platform, encoding) pairs in lookup order; -1 matches any encoding.
var cmapPreference = [][2]int{{3, 10}, {0, 4}, {3, 1}, {0, 3}, {0, -1}, {1, 0}}

// Unicode returns the preferred Unicode-capable subtable, or nil.
func (c *Cmap) Unicode() *CmapSubtable {
	for _, p := range cmapPreference {
		for _, st := range c.Subtables {
			if st.Map == nil || int(st.PlatformID) != p[0] {
				continue
			}
			if p[1] == -1 || int(st.EncodingID) == p[1] {
				return st
			}
		}
	}
	return nil
}

// EncodeCmap builds a cmap table with a (1,0) format 0 subtable for codes
// below 256 and a (3,1) format 4 subtable for BMP codes.
func EncodeCmap(m map[rune]uint16) []byte {
	f0 := encodeCmap0(m)
	f4 := encodeCmap4(m)

	d := NewData(make([]byte, 0, 20+len(f0)+len(f4)))
	d.WriteUint16(0) // version
	d.WriteUint16(2)
	d.WriteUint16(1)
	d.WriteUint16(0)
	d.WriteUint32(20)
	d.WriteUint16(3)
	d.WriteUint16(1)
	d.WriteUint32(uint32(20 + len(f0)))
	d.Write(f0)
	d.Write(f4)
	return d.Bytes()
}

func encodeCmap0(m map[rune]uint16) []byte {
	d := NewData(make([]byte, 0, 262))
	d.WriteUint16(0)
	d.WriteUint16(262)
	d.WriteUint16(0)
	ids := make([]byte, 256)
	for r, gid := range m {
		if r >= 0 && r < 256 && gid < 256 {
			ids[r] = byte(gid)
		}
	}
	d.Write(ids)
	return d.Bytes()
}

type cmapSegment struct {
	start, end uint16
	delta      uint16
}

// encodeCmap4 emits one segment per run of consecutive codes with
// consecutive glyph ids, all resolved through idDelta.
func encodeCmap4(m map[rune]uint16) []byte {
	codes := make([]int, 0, len(m))
	for r := range m {
		if r >= 0 && r < 0xFFFF {
			codes = append(codes, int(r))
		}
	}
	sort.Ints(codes)

	var segs []cmapSegment
	for _, c := range codes {
		gid := m[rune(c)]
		if n := len(segs); n > 0 {
			last := &segs[n-1]
			if int(last.end)+1 == c && uint16(c)+last.delta == gid {
				last.end = uint16(c)
				continue
			}
		}
		segs = append(segs, cmapSegment{start: uint16(c), end: uint16(c), delta: gid - uint16(c)})
	}
	segs = append(segs, cmapSegment{start: 0xFFFF, end: 0xFFFF, delta: 1})

	segCount := len(segs)
	sr, sel, _ := searchParams(segCount)
	searchRange := uint16(sr / 8) // 2 * 2^floor(log2 segCount)
	length := 16 + 8*segCount

	d := NewData(make([]byte, 0, length))
	d.WriteUint16(4)
	d.WriteUint16(uint16(length))
	d.WriteUint16(0)
	d.WriteUint16(uint16(2 * segCount))
	d.WriteUint16(searchRange)
	d.WriteUint16(uint16(sel))
	d.WriteUint16(uint16(2*segCount) - searchRange)
	for _, s := range segs {
		d.WriteUint16(s.end)
	}
	d.WriteUint16(0)
	for _, s := range segs {
		d.WriteUint16(s.start)
	}
	for _, s := range segs {
		d.WriteUint16(s.delta)
	}
	for range segs {
		d.WriteUint16(0)
	}
	return d.Bytes()
}
