package fonts

import (
	"golang.org/x/text/unicode/norm"
)

// Metrics describes one of the fourteen standard Type 1 fonts. Widths are
// in thousandths of an em.
type Metrics struct {
	Name         string
	Ascender     int
	Descender    int
	CapHeight    int
	XHeight      int
	ItalicAngle  float64
	StemV        int
	BBox         [4]int
	DefaultWidth int
	FixedPitch   bool
	Symbolic     bool

	// ASCII holds the widths of codes 32 to 126.
	ASCII [95]int
	// Extra holds widths of the WinAnsi upper half.
	Extra map[rune]int
	// Kerning holds pair adjustments, negative values tighten.
	Kerning map[[2]rune]int
}

// Width returns the advance width of r. Accented letters missing from the
// table take the width of their base letter.
func (m *Metrics) Width(r rune) int {
	if m.FixedPitch {
		return m.DefaultWidth
	}
	if w, ok := m.lookup(r); ok {
		return w
	}
	if d := []rune(norm.NFD.String(string(r))); len(d) > 1 {
		if w, ok := m.lookup(d[0]); ok {
			return w
		}
	}
	return m.DefaultWidth
}

func (m *Metrics) lookup(r rune) (int, bool) {
	if r >= 32 && r <= 126 && m.ASCII[r-32] > 0 {
		return m.ASCII[r-32], true
	}
	w, ok := m.Extra[r]
	return w, ok
}

// Kern returns the pair adjustment between a and b.
func (m *Metrics) Kern(a, b rune) int {
	return m.Kerning[[2]rune{a, b}]
}

// MetricsTable maps PostScript names to standard font metrics.
type MetricsTable map[string]*Metrics

// StandardFont names one core font and the family and style it is
// registered under.
type StandardFont struct {
	PostScriptName string
	Family         string
	Style          string
}

// StandardFonts lists the core fonts in registration order.
var StandardFonts = []StandardFont{
	{"Helvetica", "helvetica", StyleNormal},
	{"Helvetica-Bold", "helvetica", StyleBold},
	{"Helvetica-Oblique", "helvetica", StyleItalic},
	{"Helvetica-BoldOblique", "helvetica", StyleBoldItalic},
	{"Courier", "courier", StyleNormal},
	{"Courier-Bold", "courier", StyleBold},
	{"Courier-Oblique", "courier", StyleItalic},
	{"Courier-BoldOblique", "courier", StyleBoldItalic},
	{"Times-Roman", "times", StyleNormal},
	{"Times-Bold", "times", StyleBold},
	{"Times-Italic", "times", StyleItalic},
	{"Times-BoldItalic", "times", StyleBoldItalic},
	{"ZapfDingbats", "zapfdingbats", StyleNormal},
	{"Symbol", "symbol", StyleNormal},
}

// StandardMetrics returns a fresh metrics table for the core fonts.
func StandardMetrics() MetricsTable {
	helv := func(name string, bold, oblique bool) *Metrics {
		m := &Metrics{
			Name: name, Ascender: 718, Descender: -207, CapHeight: 718, XHeight: 523,
			StemV: 88, BBox: [4]int{-166, -225, 1000, 931}, DefaultWidth: 556,
			ASCII: helveticaWidths, Extra: helveticaExtra, Kerning: helveticaKerning,
		}
		if bold {
			m.StemV, m.ASCII = 140, helveticaBoldWidths
			m.BBox = [4]int{-170, -228, 1003, 962}
			m.XHeight = 532
		}
		if oblique {
			m.ItalicAngle = -12
		}
		return m
	}
	times := func(name string, ascii [95]int, bold bool, angle float64) *Metrics {
		m := &Metrics{
			Name: name, Ascender: 683, Descender: -217, CapHeight: 662, XHeight: 450,
			StemV: 84, BBox: [4]int{-168, -218, 1000, 898}, DefaultWidth: 500,
			ItalicAngle: angle, ASCII: ascii, Extra: timesExtra, Kerning: timesKerning,
		}
		if bold {
			m.StemV = 139
			m.CapHeight, m.XHeight = 676, 461
		}
		return m
	}
	courier := func(name string, bold bool, angle float64) *Metrics {
		m := &Metrics{
			Name: name, Ascender: 629, Descender: -157, CapHeight: 562, XHeight: 426,
			StemV: 51, BBox: [4]int{-23, -250, 715, 805}, DefaultWidth: 600,
			FixedPitch: true, ItalicAngle: angle,
		}
		if bold {
			m.StemV = 106
		}
		return m
	}
	return MetricsTable{
		"Helvetica":             helv("Helvetica", false, false),
		"Helvetica-Bold":        helv("Helvetica-Bold", true, false),
		"Helvetica-Oblique":     helv("Helvetica-Oblique", false, true),
		"Helvetica-BoldOblique": helv("Helvetica-BoldOblique", true, true),
		"Times-Roman":           times("Times-Roman", timesWidths, false, 0),
		"Times-Bold":            times("Times-Bold", timesBoldWidths, true, 0),
		"Times-Italic":          times("Times-Italic", timesItalicWidths, false, -15.5),
		"Times-BoldItalic":      times("Times-BoldItalic", timesBoldItalicWidths, true, -15),
		"Courier":               courier("Courier", false, 0),
		"Courier-Bold":          courier("Courier-Bold", true, 0),
		"Courier-Oblique":       courier("Courier-Oblique", false, -12),
		"Courier-BoldOblique":   courier("Courier-BoldOblique", true, -12),
		"Symbol": {
			Name: "Symbol", Ascender: 1010, Descender: -293, CapHeight: 673,
			StemV: 85, BBox: [4]int{-180, -293, 1090, 1010}, DefaultWidth: 500,
			Symbolic: true, ASCII: [95]int{0: 250},
		},
		"ZapfDingbats": {
			Name: "ZapfDingbats", Ascender: 820, Descender: -143, CapHeight: 820,
			StemV: 90, BBox: [4]int{-1, -143, 981, 820}, DefaultWidth: 788,
			Symbolic: true, ASCII: [95]int{0: 278},
		},
	}
}

var helveticaWidths = [95]int{
	// space to /
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	// 0-9
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556,
	// : to @
	278, 278, 584, 584, 584, 556, 1015,
	667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833,
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611,
	278, 278, 278, 469, 556, 333, // [ to `
	556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833,
	556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500,
	334, 260, 334, 584, // { to ~
}

var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556,
	333, 333, 584, 584, 584, 611, 975,
	722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833,
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611,
	333, 278, 333, 584, 556, 333,
	556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889,
	611, 611, 611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500,
	389, 280, 389, 584,
}

var timesWidths = [95]int{
	250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	278, 278, 564, 564, 564, 444, 921,
	722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889,
	722, 722, 556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611,
	333, 278, 333, 469, 500, 333,
	444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778,
	500, 500, 500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444,
	480, 200, 480, 541,
}

var timesBoldWidths = [95]int{
	250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	333, 333, 570, 570, 570, 500, 930,
	722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944,
	722, 778, 611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667,
	333, 278, 333, 581, 500, 333,
	500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833,
	556, 500, 556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444,
	394, 220, 394, 520,
}

var timesItalicWidths = [95]int{
	250, 333, 420, 500, 500, 833, 778, 214, 333, 333, 500, 675, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	333, 333, 675, 675, 675, 500, 920,
	611, 611, 667, 722, 611, 611, 722, 722, 333, 444, 667, 556, 833,
	667, 722, 611, 722, 611, 500, 556, 722, 611, 833, 611, 556, 556,
	389, 278, 389, 422, 500, 333,
	500, 500, 444, 500, 444, 278, 500, 500, 278, 278, 444, 278, 722,
	500, 500, 500, 500, 389, 389, 278, 500, 444, 667, 444, 444, 389,
	400, 275, 400, 541,
}

var timesBoldItalicWidths = [95]int{
	250, 389, 555, 500, 500, 833, 778, 278, 333, 333, 500, 570, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	333, 333, 570, 570, 570, 500, 832,
	667, 667, 667, 722, 667, 667, 722, 778, 389, 500, 667, 611, 889,
	722, 722, 611, 722, 667, 556, 611, 722, 667, 889, 667, 611, 611,
	333, 278, 333, 570, 500, 333,
	500, 500, 444, 500, 444, 333, 500, 556, 278, 278, 500, 278, 778,
	556, 500, 500, 500, 389, 389, 278, 556, 444, 667, 500, 444, 389,
	348, 220, 348, 570,
}

var helveticaExtra = map[rune]int{
	'€': 556, '‚': 222, 'ƒ': 556, '„': 333, '…': 1000, '†': 556, '‡': 556, 'ˆ': 333,
	'‰': 1000, '‹': 333, 'Œ': 1000, '‘': 222, '’': 222, '“': 333, '”': 333, '•': 350,
	'–': 556, '—': 1000, '˜': 333, '™': 1000, '›': 333, 'œ': 944,
	'\u00a0': 278, '¡': 333, '¢': 556, '£': 556, '¤': 556, '¥': 556, '¦': 260, '§': 556,
	'¨': 333, '©': 737, 'ª': 370, '«': 556, '¬': 584, '\u00ad': 333, '®': 737, '¯': 333,
	'°': 400, '±': 584, '²': 333, '³': 333, '´': 333, 'µ': 556, '¶': 537, '·': 278,
	'¸': 333, '¹': 333, 'º': 365, '»': 556, '¼': 834, '½': 834, '¾': 834, '¿': 611,
	'Æ': 1000, 'Ð': 722, '×': 584, 'Ø': 778, 'Þ': 667, 'ß': 611,
	'æ': 889, 'ð': 556, '÷': 584, 'ø': 611, 'þ': 556,
}

var timesExtra = map[rune]int{
	'€': 500, '‚': 333, 'ƒ': 500, '„': 444, '…': 1000, '†': 500, '‡': 500, 'ˆ': 333,
	'‰': 1000, '‹': 333, 'Œ': 889, '‘': 333, '’': 333, '“': 444, '”': 444, '•': 350,
	'–': 500, '—': 1000, '˜': 333, '™': 980, '›': 333, 'œ': 722,
	'\u00a0': 250, '¡': 333, '¢': 500, '£': 500, '¤': 500, '¥': 500, '¦': 200, '§': 500,
	'¨': 333, '©': 760, 'ª': 276, '«': 500, '¬': 564, '\u00ad': 333, '®': 760, '¯': 333,
	'°': 400, '±': 564, '²': 300, '³': 300, '´': 333, 'µ': 500, '¶': 453, '·': 250,
	'¸': 333, '¹': 300, 'º': 310, '»': 500, '¼': 750, '½': 750, '¾': 750, '¿': 444,
	'Æ': 889, 'Ð': 722, '×': 564, 'Ø': 722, 'Þ': 556, 'ß': 500,
	'æ': 667, 'ð': 500, '÷': 564, 'ø': 500, 'þ': 500,
}

var helveticaKerning = map[[2]rune]int{
	{'A', 'T'}: -120, {'A', 'V'}: -70, {'A', 'W'}: -50, {'A', 'Y'}: -100,
	{'L', 'T'}: -110, {'L', 'V'}: -110, {'L', 'W'}: -70, {'L', 'Y'}: -140,
	{'P', 'A'}: -120, {'T', 'A'}: -120, {'V', 'A'}: -80, {'W', 'A'}: -60,
	{'Y', 'A'}: -110, {'T', 'o'}: -120, {'T', 'a'}: -120, {'V', 'a'}: -70,
	{'Y', 'o'}: -140, {'F', 'A'}: -80, {'r', '.'}: -50, {'r', ','}: -50,
}

var timesKerning = map[[2]rune]int{
	{'A', 'T'}: -111, {'A', 'V'}: -135, {'A', 'W'}: -90, {'A', 'Y'}: -105,
	{'L', 'T'}: -92, {'L', 'V'}: -100, {'L', 'W'}: -74, {'L', 'Y'}: -100,
	{'P', 'A'}: -92, {'T', 'A'}: -93, {'V', 'A'}: -135, {'W', 'A'}: -90,
	{'Y', 'A'}: -120, {'T', 'o'}: -80, {'T', 'a'}: -80, {'V', 'a'}: -111,
	{'Y', 'o'}: -110, {'F', 'A'}: -74, {'r', '.'}: -55, {'r', ','}: -40,
}
