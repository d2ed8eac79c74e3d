package sfnt

import (
	"encoding/binary"
	"fmt"
)

// Loca holds glyph data offsets. Format and NumGlyphs come from head and
// maxp and must be set before Parse.
type Loca struct {
	Format    int16
	NumGlyphs int

	Offsets []uint32 // NumGlyphs+1 entries
}

func (*Loca) Tag() string { return "loca" }

func (l *Loca) Parse(d *Data) error {
	n := l.NumGlyphs + 1
	width := 2
	if l.Format == 1 {
		width = 4
	}
	if d.Len() < n*width {
		return fmt.Errorf("%w: loca holds %d entries, want %d", ErrMalformed, d.Len()/width, n)
	}
	l.Offsets = make([]uint32, n)
	for i := range l.Offsets {
		if l.Format == 1 {
			l.Offsets[i] = d.ReadUint32()
		} else {
			l.Offsets[i] = uint32(d.ReadUint16()) * 2
		}
		if i > 0 && l.Offsets[i] < l.Offsets[i-1] {
			return fmt.Errorf("%w: loca offset %d decreases at glyph %d", ErrMalformed, l.Offsets[i], i)
		}
	}
	return d.Err()
}

// Encode writes long offsets.
func (l *Loca) Encode() []byte {
	d := NewData(make([]byte, 0, 4*len(l.Offsets)))
	for _, off := range l.Offsets {
		d.WriteUint32(off)
	}
	return d.Bytes()
}

// Glyf holds the raw glyph data table. Glyphs are decoded on first access.
type Glyf struct {
	Loca *Loca

	raw   []byte
	cache map[uint16]Glyph
}

func (*Glyf) Tag() string { return "glyf" }

func (g *Glyf) Parse(d *Data) error {
	if g.Loca == nil {
		return fmt.Errorf("%w: glyf parsed before loca", ErrMalformed)
	}
	g.raw = d.Bytes()
	if last := g.Loca.Offsets[len(g.Loca.Offsets)-1]; int(last) > len(g.raw) {
		return fmt.Errorf("%w: loca ends at %d past glyf length %d", ErrMalformed, last, len(g.raw))
	}
	g.cache = make(map[uint16]Glyph)
	return nil
}

// Glyph returns the decoded glyph gid. Empty glyphs decode to a SimpleGlyph
// with no bytes.
func (g *Glyf) Glyph(gid uint16) (Glyph, error) {
	if glyph, ok := g.cache[gid]; ok {
		return glyph, nil
	}
	if int(gid) >= g.Loca.NumGlyphs {
		return nil, fmt.Errorf("%w: glyph %d out of range", ErrMalformed, gid)
	}
	start, end := g.Loca.Offsets[gid], g.Loca.Offsets[gid+1]
	glyph, err := decodeGlyph(g.raw[start:end])
	if err != nil {
		return nil, fmt.Errorf("glyph %d: %w", gid, err)
	}
	g.cache[gid] = glyph
	return glyph, nil
}

// BBox is a glyph bounding box in font units.
type BBox struct {
	XMin, YMin, XMax, YMax int16
}

// Glyph is a decoded glyph: either *SimpleGlyph or *CompoundGlyph.
type Glyph interface {
	Bytes() []byte
	Bounds() BBox
	Components() []uint16
}

// SimpleGlyph keeps its outline as opaque bytes.
type SimpleGlyph struct {
	NumberOfContours int16
	BBox             BBox
	Raw              []byte
}

func (s *SimpleGlyph) Bytes() []byte        { return s.Raw }
func (s *SimpleGlyph) Bounds() BBox         { return s.BBox }
func (s *SimpleGlyph) Components() []uint16 { return nil }

// Component glyph flags.
const (
	argsAreWords     = 0x0001
	weHaveAScale     = 0x0008
	moreComponents   = 0x0020
	weHaveXAndYScale = 0x0040
	weHaveTwoByTwo   = 0x0080
)

// Component is one reference inside a compound glyph.
type Component struct {
	Flags      uint16
	GlyphIndex uint16
	offset     int // position of GlyphIndex within Raw
}

// CompoundGlyph references other glyphs through its component chain.
type CompoundGlyph struct {
	BBox          BBox
	Raw           []byte
	ComponentList []Component
}

func (c *CompoundGlyph) Bytes() []byte { return c.Raw }
func (c *CompoundGlyph) Bounds() BBox  { return c.BBox }

func (c *CompoundGlyph) Components() []uint16 {
	ids := make([]uint16, len(c.ComponentList))
	for i, comp := range c.ComponentList {
		ids[i] = comp.GlyphIndex
	}
	return ids
}

// Remap returns a copy of the raw glyph with component glyph indices
// rewritten through m. Indices missing from m are left unchanged.
func (c *CompoundGlyph) Remap(m map[uint16]uint16) []byte {
	out := append([]byte(nil), c.Raw...)
	for _, comp := range c.ComponentList {
		if nid, ok := m[comp.GlyphIndex]; ok {
			binary.BigEndian.PutUint16(out[comp.offset:], nid)
		}
	}
	return out
}

func decodeGlyph(raw []byte) (Glyph, error) {
	if len(raw) == 0 {
		return &SimpleGlyph{}, nil
	}
	d := NewData(raw)
	contours := d.ReadInt16()
	box := BBox{d.ReadInt16(), d.ReadInt16(), d.ReadInt16(), d.ReadInt16()}
	if err := d.Err(); err != nil {
		return nil, err
	}
	if contours >= 0 {
		return &SimpleGlyph{NumberOfContours: contours, BBox: box, Raw: raw}, nil
	}
	cg := &CompoundGlyph{BBox: box, Raw: raw}
	for {
		flags := d.ReadUint16()
		off := d.Pos()
		gid := d.ReadUint16()
		if flags&argsAreWords != 0 {
			d.Skip(4)
		} else {
			d.Skip(2)
		}
		switch {
		case flags&weHaveAScale != 0:
			d.Skip(2)
		case flags&weHaveXAndYScale != 0:
			d.Skip(4)
		case flags&weHaveTwoByTwo != 0:
			d.Skip(8)
		}
		if err := d.Err(); err != nil {
			return nil, err
		}
		cg.ComponentList = append(cg.ComponentList, Component{Flags: flags, GlyphIndex: gid, offset: off})
		if flags&moreComponents == 0 {
			break
		}
	}
	return cg, nil
}
