package sfnt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// Table is implemented by every decoded sfnt table. Parse reads the table
// from a cursor positioned at the start of the table bytes.
type Table interface {
	Tag() string
	Parse(d *Data) error
}

// Encodable is implemented by tables that can be written back.
type Encodable interface {
	Table
	Encode() []byte
}

// Head is the font header table.
type Head struct {
	Version            float64
	FontRevision       float64
	CheckSumAdjustment uint32
	MagicNumber        uint32
	Flags              uint16
	UnitsPerEm         uint16
	Created            time.Time
	Modified           time.Time
	XMin, YMin         int16
	XMax, YMax         int16
	MacStyle           uint16
	LowestRecPPEM      uint16
	FontDirectionHint  int16
	IndexToLocFormat   int16
	GlyphDataFormat    int16
}

const headMagic = 0x5F0F3CF5

func (*Head) Tag() string { return "head" }

func (h *Head) Parse(d *Data) error {
	h.Version = d.ReadFixed()
	h.FontRevision = d.ReadFixed()
	h.CheckSumAdjustment = d.ReadUint32()
	h.MagicNumber = d.ReadUint32()
	h.Flags = d.ReadUint16()
	h.UnitsPerEm = d.ReadUint16()
	h.Created = d.ReadLongDateTime()
	h.Modified = d.ReadLongDateTime()
	h.XMin = d.ReadInt16()
	h.YMin = d.ReadInt16()
	h.XMax = d.ReadInt16()
	h.YMax = d.ReadInt16()
	h.MacStyle = d.ReadUint16()
	h.LowestRecPPEM = d.ReadUint16()
	h.FontDirectionHint = d.ReadInt16()
	h.IndexToLocFormat = d.ReadInt16()
	h.GlyphDataFormat = d.ReadInt16()
	if err := d.Err(); err != nil {
		return err
	}
	if h.MagicNumber != headMagic {
		return fmt.Errorf("%w: head magic number %08x", ErrMalformed, h.MagicNumber)
	}
	if h.UnitsPerEm == 0 {
		return fmt.Errorf("%w: unitsPerEm is zero", ErrMalformed)
	}
	if h.IndexToLocFormat != 0 && h.IndexToLocFormat != 1 {
		return fmt.Errorf("%w: indexToLocFormat %d", ErrMalformed, h.IndexToLocFormat)
	}
	return nil
}

func (h *Head) Encode() []byte {
	d := NewData(make([]byte, 0, 54))
	d.WriteFixed(h.Version)
	d.WriteFixed(h.FontRevision)
	d.WriteUint32(h.CheckSumAdjustment)
	d.WriteUint32(headMagic)
	d.WriteUint16(h.Flags)
	d.WriteUint16(h.UnitsPerEm)
	d.WriteLongDateTime(h.Created)
	d.WriteLongDateTime(h.Modified)
	d.WriteInt16(h.XMin)
	d.WriteInt16(h.YMin)
	d.WriteInt16(h.XMax)
	d.WriteInt16(h.YMax)
	d.WriteUint16(h.MacStyle)
	d.WriteUint16(h.LowestRecPPEM)
	d.WriteInt16(h.FontDirectionHint)
	d.WriteInt16(h.IndexToLocFormat)
	d.WriteInt16(h.GlyphDataFormat)
	return d.Bytes()
}

// Hhea is the horizontal header table.
type Hhea struct {
	Version             float64
	Ascender            int16
	Descender           int16
	LineGap             int16
	AdvanceWidthMax     uint16
	MinLeftSideBearing  int16
	MinRightSideBearing int16
	XMaxExtent          int16
	CaretSlopeRise      int16
	CaretSlopeRun       int16
	CaretOffset         int16
	MetricDataFormat    int16
	NumberOfHMetrics    uint16
}

func (*Hhea) Tag() string { return "hhea" }

func (h *Hhea) Parse(d *Data) error {
	h.Version = d.ReadFixed()
	h.Ascender = d.ReadInt16()
	h.Descender = d.ReadInt16()
	h.LineGap = d.ReadInt16()
	h.AdvanceWidthMax = d.ReadUint16()
	h.MinLeftSideBearing = d.ReadInt16()
	h.MinRightSideBearing = d.ReadInt16()
	h.XMaxExtent = d.ReadInt16()
	h.CaretSlopeRise = d.ReadInt16()
	h.CaretSlopeRun = d.ReadInt16()
	h.CaretOffset = d.ReadInt16()
	d.Skip(8) // reserved
	h.MetricDataFormat = d.ReadInt16()
	h.NumberOfHMetrics = d.ReadUint16()
	if err := d.Err(); err != nil {
		return err
	}
	if h.NumberOfHMetrics == 0 {
		return fmt.Errorf("%w: hhea numberOfHMetrics is zero", ErrMalformed)
	}
	return nil
}

func (h *Hhea) Encode() []byte {
	d := NewData(make([]byte, 0, 36))
	d.WriteFixed(h.Version)
	d.WriteInt16(h.Ascender)
	d.WriteInt16(h.Descender)
	d.WriteInt16(h.LineGap)
	d.WriteUint16(h.AdvanceWidthMax)
	d.WriteInt16(h.MinLeftSideBearing)
	d.WriteInt16(h.MinRightSideBearing)
	d.WriteInt16(h.XMaxExtent)
	d.WriteInt16(h.CaretSlopeRise)
	d.WriteInt16(h.CaretSlopeRun)
	d.WriteInt16(h.CaretOffset)
	d.Write(make([]byte, 8))
	d.WriteInt16(h.MetricDataFormat)
	d.WriteUint16(h.NumberOfHMetrics)
	return d.Bytes()
}

// Maxp holds the glyph count. Version 1.0 limits are kept verbatim.
type Maxp struct {
	Version   uint32
	NumGlyphs uint16
	Limits    []byte
}

func (*Maxp) Tag() string { return "maxp" }

func (m *Maxp) Parse(d *Data) error {
	m.Version = d.ReadUint32()
	m.NumGlyphs = d.ReadUint16()
	if m.Version == 0x00010000 {
		m.Limits = append([]byte(nil), d.Read(26)...)
	}
	if err := d.Err(); err != nil {
		return err
	}
	if m.NumGlyphs == 0 {
		return fmt.Errorf("%w: maxp numGlyphs is zero", ErrMalformed)
	}
	return nil
}

func (m *Maxp) Encode() []byte {
	d := NewData(make([]byte, 0, 6+len(m.Limits)))
	d.WriteUint32(m.Version)
	d.WriteUint16(m.NumGlyphs)
	d.Write(m.Limits)
	return d.Bytes()
}

// Post holds the PostScript information of the font. Glyph names are not decoded.
type Post struct {
	Version            float64
	ItalicAngle        float64
	UnderlinePosition  int16
	UnderlineThickness int16
	IsFixedPitch       bool
}

func (*Post) Tag() string { return "post" }

func (p *Post) Parse(d *Data) error {
	p.Version = d.ReadFixed()
	p.ItalicAngle = d.ReadFixed()
	p.UnderlinePosition = d.ReadInt16()
	p.UnderlineThickness = d.ReadInt16()
	p.IsFixedPitch = d.ReadUint32() != 0
	return d.Err()
}

// Encode writes a version 3.0 table, which carries no glyph names.
func (p *Post) Encode() []byte {
	d := NewData(make([]byte, 0, 32))
	d.WriteUint32(0x00030000)
	d.WriteFixed(p.ItalicAngle)
	d.WriteInt16(p.UnderlinePosition)
	d.WriteInt16(p.UnderlineThickness)
	if p.IsFixedPitch {
		d.WriteUint32(1)
	} else {
		d.WriteUint32(0)
	}
	d.Write(make([]byte, 16)) // memory usage hints
	return d.Bytes()
}

// OS2 is the subset of the OS/2 table needed for PDF font descriptors.
type OS2 struct {
	Version       uint16
	XAvgCharWidth int16
	WeightClass   uint16
	WidthClass    uint16
	FsType        uint16
	FsSelection   uint16
	TypoAscender  int16
	TypoDescender int16
	TypoLineGap   int16
	WinAscent     uint16
	WinDescent    uint16
	XHeight       int16
	CapHeight     int16
}

func (*OS2) Tag() string { return "OS/2" }

func (o *OS2) Parse(d *Data) error {
	start := d.Pos()
	o.Version = d.ReadUint16()
	o.XAvgCharWidth = d.ReadInt16()
	o.WeightClass = d.ReadUint16()
	o.WidthClass = d.ReadUint16()
	o.FsType = d.ReadUint16()
	d.Seek(start + 62)
	o.FsSelection = d.ReadUint16()
	d.Skip(4) // first/last char index
	o.TypoAscender = d.ReadInt16()
	o.TypoDescender = d.ReadInt16()
	o.TypoLineGap = d.ReadInt16()
	o.WinAscent = d.ReadUint16()
	o.WinDescent = d.ReadUint16()
	if o.Version >= 2 {
		d.Seek(start + 86)
		o.XHeight = d.ReadInt16()
		o.CapHeight = d.ReadInt16()
	}
	return d.Err()
}

// Name ids decoded from the naming table.
const (
	NameFamily         = 1
	NameSubfamily      = 2
	NameFull           = 4
	NamePostScriptName = 6
)

// Name holds the decoded strings of the naming table, keyed by name id.
type Name struct {
	Strings map[uint16]string
}

func (*Name) Tag() string { return "name" }

func (n *Name) Parse(d *Data) error {
	start := d.Pos()
	d.Skip(2) // format
	count := int(d.ReadUint16())
	storage := start + int(d.ReadUint16())
	n.Strings = make(map[uint16]string)
	rank := make(map[uint16]int)
	for i := 0; i < count; i++ {
		platform := d.ReadUint16()
		encoding := d.ReadUint16()
		lang := d.ReadUint16()
		id := d.ReadUint16()
		length := int(d.ReadUint16())
		offset := int(d.ReadUint16())
		if err := d.Err(); err != nil {
			return err
		}
		r := nameRank(platform, encoding, lang)
		if r == 0 || r <= rank[id] {
			continue
		}
		if storage+offset+length > d.Len() {
			continue
		}
		raw := d.Bytes()[storage+offset : storage+offset+length]
		s, ok := decodeName(platform, raw)
		if !ok {
			continue
		}
		n.Strings[id] = s
		rank[id] = r
	}
	return nil
}

// Get returns the string for id, or "".
func (n *Name) Get(id uint16) string {
	if n == nil {
		return ""
	}
	return n.Strings[id]
}

// nameRank orders name records: Windows English first, then any Unicode, then Mac Roman.
func nameRank(platform, encoding, lang uint16) int {
	switch {
	case platform == 3 && (encoding == 1 || encoding == 0) && lang == 0x409:
		return 4
	case platform == 3 && (encoding == 1 || encoding == 0):
		return 3
	case platform == 0:
		return 2
	case platform == 1 && encoding == 0:
		return 1
	}
	return 0
}

func decodeName(platform uint16, raw []byte) (string, bool) {
	if platform == 1 {
		s, err := charmap.Macintosh.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(s), true
	}
	if len(raw)%2 != 0 {
		return "", false
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return strings.TrimSpace(string(utf16.Decode(units))), true
}
