package sfnt

import (
	"fmt"
	"strings"

	"github.com/wudi/pdfgen/observability"
)

// Font is a parsed TrueType font. Optional tables are nil when absent.
type Font struct {
	Directory *Directory

	Head *Head
	Hhea *Hhea
	Maxp *Maxp
	Hmtx *Hmtx
	Cmap *Cmap
	Loca *Loca
	Glyf *Glyf
	Post *Post
	OS2  *OS2
	Name *Name

	data    []byte
	unicode *CmapSubtable
}

type parseConfig struct {
	logger          observability.Logger
	strictChecksums bool
}

// Option configures Parse.
type Option func(*parseConfig)

// WithLogger routes parse warnings to l.
func WithLogger(l observability.Logger) Option {
	return func(c *parseConfig) { c.logger = l }
}

// WithStrictChecksums turns table checksum mismatches into errors.
func WithStrictChecksums() Option {
	return func(c *parseConfig) { c.strictChecksums = true }
}

// Parse decodes a TrueType font. The returned Font keeps a reference to data.
func Parse(data []byte, opts ...Option) (*Font, error) {
	cfg := parseConfig{logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, err := ParseDirectory(data)
	if err != nil {
		return nil, err
	}
	if bad := dir.VerifyChecksums(data); len(bad) > 0 {
		if cfg.strictChecksums {
			return nil, fmt.Errorf("%w: %s", ErrChecksum, strings.Join(bad, ", "))
		}
		cfg.logger.Warn("table checksum mismatch", observability.String("tables", strings.Join(bad, ",")))
	}

	f := &Font{Directory: dir, data: data}
	f.Head = &Head{}
	f.Hhea = &Hhea{}
	f.Maxp = &Maxp{}
	f.Cmap = &Cmap{}
	for _, t := range []Table{f.Head, f.Hhea, f.Maxp, f.Cmap} {
		if err := f.parseTable(t); err != nil {
			return nil, err
		}
	}

	numGlyphs := int(f.Maxp.NumGlyphs)
	if int(f.Hhea.NumberOfHMetrics) > numGlyphs {
		return nil, fmt.Errorf("%w: hhea declares %d metrics for %d glyphs", ErrMalformed, f.Hhea.NumberOfHMetrics, numGlyphs)
	}
	f.Hmtx = &Hmtx{NumberOfHMetrics: int(f.Hhea.NumberOfHMetrics), NumGlyphs: numGlyphs}
	f.Loca = &Loca{Format: f.Head.IndexToLocFormat, NumGlyphs: numGlyphs}
	f.Glyf = &Glyf{Loca: f.Loca}
	for _, t := range []Table{f.Hmtx, f.Loca, f.Glyf} {
		if err := f.parseTable(t); err != nil {
			return nil, err
		}
	}

	if dir.Has("post") {
		f.Post = &Post{}
		if err := f.parseTable(f.Post); err != nil {
			return nil, err
		}
	}
	if dir.Has("OS/2") {
		f.OS2 = &OS2{}
		if err := f.parseTable(f.OS2); err != nil {
			return nil, err
		}
	}
	if dir.Has("name") {
		f.Name = &Name{}
		if err := f.parseTable(f.Name); err != nil {
			cfg.logger.Warn("ignoring unreadable name table", observability.Error("error", err))
			f.Name = nil
		}
	}

	f.unicode = f.Cmap.Unicode()
	if f.unicode == nil {
		return nil, fmt.Errorf("%w: no unicode cmap subtable", ErrMissingTable)
	}
	return f, nil
}

func (f *Font) parseTable(t Table) error {
	raw, err := f.Directory.Table(f.data, t.Tag())
	if err != nil {
		return err
	}
	if err := t.Parse(NewData(raw)); err != nil {
		return fmt.Errorf("parse %s: %w", t.Tag(), err)
	}
	return nil
}

// RawTable returns the original bytes of tag, or nil when absent.
func (f *Font) RawTable(tag string) []byte {
	raw, err := f.Directory.Table(f.data, tag)
	if err != nil {
		return nil
	}
	return raw
}

// NumGlyphs returns the glyph count from maxp.
func (f *Font) NumGlyphs() int { return int(f.Maxp.NumGlyphs) }

// UnitsPerEm returns head.unitsPerEm.
func (f *Font) UnitsPerEm() int { return int(f.Head.UnitsPerEm) }

// GlyphIndex maps r through the preferred Unicode cmap. Unmapped runes
// return 0 and false.
func (f *Font) GlyphIndex(r rune) (uint16, bool) {
	gid, ok := f.unicode.Map[r]
	return gid, ok
}

// Runes returns the Unicode cmap as a rune to glyph map.
func (f *Font) Runes() map[rune]uint16 { return f.unicode.Map }

// AdvanceWidth returns the advance of gid in font units.
func (f *Font) AdvanceWidth(gid uint16) int { return int(f.Hmtx.Advance(gid)) }

// Metrics are vertical font metrics in font units.
type Metrics struct {
	Ascent    int
	Descent   int
	LineGap   int
	CapHeight int
	XHeight   int
}

// Metrics returns the vertical metrics. OS/2 typo values win over hhea.
func (f *Font) Metrics() Metrics {
	m := Metrics{
		Ascent:  int(f.Hhea.Ascender),
		Descent: int(f.Hhea.Descender),
		LineGap: int(f.Hhea.LineGap),
	}
	if f.OS2 != nil {
		m.Ascent = int(f.OS2.TypoAscender)
		m.Descent = int(f.OS2.TypoDescender)
		m.LineGap = int(f.OS2.TypoLineGap)
		m.CapHeight = int(f.OS2.CapHeight)
		m.XHeight = int(f.OS2.XHeight)
	}
	if m.CapHeight == 0 {
		m.CapHeight = m.Ascent
	}
	return m
}

// PostScriptName returns name id 6 with spaces removed, falling back to the
// full name and then the family name.
func (f *Font) PostScriptName() string {
	for _, id := range []uint16{NamePostScriptName, NameFull, NameFamily} {
		if s := f.Name.Get(id); s != "" {
			return strings.ReplaceAll(s, " ", "")
		}
	}
	return ""
}

// ItalicAngle returns post.italicAngle, or 0 without a post table.
func (f *Font) ItalicAngle() float64 {
	if f.Post == nil {
		return 0
	}
	return f.Post.ItalicAngle
}

// IsFixedPitch reports post.isFixedPitch.
func (f *Font) IsFixedPitch() bool { return f.Post != nil && f.Post.IsFixedPitch }

// IsEmbeddable reports whether OS/2 fsType allows embedding. Only the
// restricted license bit (0x0002) alone forbids it.
func (f *Font) IsEmbeddable() bool {
	if f.OS2 == nil {
		return true
	}
	return f.OS2.FsType&0x000F != 0x0002
}
