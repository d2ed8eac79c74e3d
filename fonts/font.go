// Package fonts holds the font entries of a document and turns text into
// the byte codes and widths the content stream needs.
package fonts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfgen/sfnt"
	"github.com/wudi/pdfgen/writer"
)

// ErrUnknownFont reports a family or style that was never registered.
var ErrUnknownFont = errors.New("fonts: unknown font")

const (
	StyleNormal     = "normal"
	StyleBold       = "bold"
	StyleItalic     = "italic"
	StyleBoldItalic = "bolditalic"
)

const (
	EncodingWinAnsi   = "WinAnsiEncoding"
	EncodingStandard  = "StandardEncoding"
	EncodingIdentityH = "Identity-H"
)

// NormalizeStyle maps the accepted spellings of a style onto one of the
// four style constants.
func NormalizeStyle(style string) (string, error) {
	s := strings.ToLower(strings.Join(strings.Fields(style), ""))
	switch s {
	case "", StyleNormal, "regular", "roman":
		return StyleNormal, nil
	case StyleBold:
		return StyleBold, nil
	case StyleItalic, "oblique":
		return StyleItalic, nil
	case StyleBoldItalic, "italicbold", "boldoblique":
		return StyleBoldItalic, nil
	}
	return "", fmt.Errorf("%w: style %q", ErrUnknownFont, style)
}

// Font is one font registered with a document.
type Font struct {
	Key            string // resource name, e.g. F1
	PostScriptName string
	Family         string
	Style          string
	Encoding       string
	Standard       bool

	Metrics  *Metrics   // standard fonts
	Metadata *sfnt.Font // embedded fonts
	Subset   *sfnt.Subset

	Used bool
}

// NewStandardFont returns the entry of a core font.
func NewStandardFont(key string, sf StandardFont, m *Metrics) *Font {
	enc := EncodingWinAnsi
	if m != nil && m.Symbolic {
		enc = EncodingStandard
	}
	return &Font{
		Key:            key,
		PostScriptName: sf.PostScriptName,
		Family:         sf.Family,
		Style:          sf.Style,
		Encoding:       enc,
		Standard:       true,
		Metrics:        m,
	}
}

// NewTrueTypeFont returns the entry of an embedded TrueType font.
func NewTrueTypeFont(key, postScriptName, family, style string, f *sfnt.Font) *Font {
	if postScriptName == "" {
		postScriptName = f.PostScriptName()
	}
	return &Font{
		Key:            key,
		PostScriptName: postScriptName,
		Family:         family,
		Style:          style,
		Encoding:       EncodingIdentityH,
		Metadata:       f,
		Subset:         sfnt.NewSubset(f),
	}
}

// IsIdentity reports whether text is written as 2-byte glyph ids.
func (f *Font) IsIdentity() bool { return f.Encoding == EncodingIdentityH }

// Encode converts s into character codes: one WinAnsi byte per rune for
// standard fonts, a big-endian glyph id per rune for Identity-H fonts.
// Glyphs are recorded in the subset.
func (f *Font) Encode(s string) []byte {
	if !f.IsIdentity() {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, winAnsiByte(r))
		}
		return out
	}
	out := make([]byte, 0, 2*len(s))
	for _, r := range s {
		gid, _ := f.Subset.UseRune(r)
		out = append(out, byte(gid>>8), byte(gid))
	}
	return out
}

// Lookup encodes s like Encode without recording glyphs in the subset.
func (f *Font) Lookup(s string) []byte {
	if !f.IsIdentity() {
		return f.Encode(s)
	}
	out := make([]byte, 0, 2*len(s))
	for _, r := range s {
		gid, _ := f.Metadata.GlyphIndex(r)
		out = append(out, byte(gid>>8), byte(gid))
	}
	return out
}

// Operand returns s encoded as a string operand for Tj or TJ.
func (f *Font) Operand(s string) string {
	f.Used = true
	b := f.Encode(s)
	if f.IsIdentity() {
		return writer.HexString(b)
	}
	return "(" + writer.EscapeString(string(b)) + ")"
}

func winAnsiByte(r rune) byte {
	if b, ok := charmap.Windows1252.EncodeRune(r); ok {
		return b
	}
	return '?'
}

// RuneWidth returns the advance of r in thousandths of an em.
func (f *Font) RuneWidth(r rune) float64 {
	if f.Metrics != nil {
		return float64(f.Metrics.Width(r))
	}
	if f.Metadata == nil {
		return 0
	}
	gid, _ := f.Metadata.GlyphIndex(r)
	return float64(f.Metadata.AdvanceWidth(gid)) * 1000 / float64(f.Metadata.UnitsPerEm())
}

// StringUnitWidth returns the width of s in ems, including pair kerning
// for standard fonts.
func (f *Font) StringUnitWidth(s string) float64 {
	var w float64
	prev := rune(-1)
	for _, r := range s {
		w += f.RuneWidth(r)
		if f.Metrics != nil && prev >= 0 {
			w += float64(f.Metrics.Kern(prev, r))
		}
		prev = r
	}
	return w / 1000
}

// Ascent returns the ascender in thousandths of an em.
func (f *Font) Ascent() float64 {
	if f.Metrics != nil {
		return float64(f.Metrics.Ascender)
	}
	return f.scale(f.Metadata.Metrics().Ascent)
}

// Descent returns the descender in thousandths of an em, negative below
// the baseline.
func (f *Font) Descent() float64 {
	if f.Metrics != nil {
		return float64(f.Metrics.Descender)
	}
	return f.scale(f.Metadata.Metrics().Descent)
}

func (f *Font) scale(v int) float64 {
	return math.Round(float64(v) * 1000 / float64(f.Metadata.UnitsPerEm()))
}

// GlyphWidths returns the /W widths of every used glyph keyed by original
// glyph id.
func (f *Font) GlyphWidths() map[int]int {
	out := make(map[int]int)
	if f.Subset == nil {
		return out
	}
	for _, gid := range f.Subset.Used() {
		out[int(gid)] = int(f.scale(f.Metadata.AdvanceWidth(gid)))
	}
	return out
}

// ToUnicode maps the used glyph ids back to their text.
func (f *Font) ToUnicode() map[int][]rune {
	out := make(map[int][]rune)
	if f.Subset == nil {
		return out
	}
	for _, r := range f.Subset.Runes() {
		gid, _ := f.Subset.GlyphFor(r)
		if _, ok := out[int(gid)]; !ok {
			out[int(gid)] = []rune{r}
		}
	}
	return out
}

// SubsetTag returns the six letter prefix naming a subset, derived from
// the glyphs it holds.
func SubsetTag(gids []uint16) string {
	var h uint32 = 2166136261
	for _, g := range gids {
		h = (h ^ uint32(g)) * 16777619
	}
	var b [6]byte
	for i := range b {
		b[i] = 'A' + byte(h%26)
		h /= 26
	}
	return string(b[:])
}
