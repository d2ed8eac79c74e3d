package builder

import (
	"fmt"
	"strings"

	"github.com/wudi/pdfgen/coords"
	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/writer"
)

// Text alignments.
const (
	AlignLeft    = "left"
	AlignCenter  = "center"
	AlignRight   = "right"
	AlignJustify = "justify"
)

var renderingModes = map[string]int{
	"fill":                                  0,
	"stroke":                                1,
	"fillThenStroke":                        2,
	"invisible":                             3,
	"fillAndAddForClipping":                 4,
	"strokeAndAddPathForClipping":           5,
	"fillThenStrokeAndAddToPathForClipping": 6,
	"addToPathForClipping":                  7,
}

// TextOptions adjusts a single Text call. Zero values keep the document
// settings.
type TextOptions struct {
	Align            string
	MaxWidth         float64 // wrap width in user units
	Angle            float64 // degrees, counterclockwise
	RenderingMode    string
	CharSpace        float64 // user units
	LineHeightFactor float64
	Direction        fonts.Direction
}

// Text writes text with its first baseline at (x, y). Newlines start new
// lines; with MaxWidth set the text is also wrapped.
func (d *Document) Text(text string, x, y float64, opts TextOptions) error {
	if err := validNumbers(x, y, opts.MaxWidth, opts.Angle, opts.CharSpace, opts.LineHeightFactor); err != nil {
		return err
	}
	switch opts.Align {
	case "", AlignLeft, AlignCenter, AlignRight, AlignJustify:
	default:
		return fmt.Errorf("%w: align %q", ErrInvalidArgument, opts.Align)
	}
	mode := -1
	if opts.RenderingMode != "" {
		m, ok := renderingModes[opts.RenderingMode]
		if !ok {
			return fmt.Errorf("%w: rendering mode %q", ErrInvalidArgument, opts.RenderingMode)
		}
		mode = m
	}
	cs := d.charSpace
	if opts.CharSpace != 0 {
		cs = opts.CharSpace
	}
	lhf := d.lineHeightFactor
	if opts.LineHeightFactor > 0 {
		lhf = opts.LineHeightFactor
	}

	var lines []string
	if opts.MaxWidth > 0 {
		lines = d.SplitTextToSize(text, opts.MaxWidth)
	} else {
		lines = strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}
	if opts.Direction != fonts.DirectionLTR {
		for i, l := range lines {
			lines[i] = fonts.Reorder(l, opts.Direction)
		}
	}

	if f := d.font; d.totalPagesAlias != "" && f.IsIdentity() && strings.Contains(text, d.totalPagesAlias) {
		// digits replace the alias at output
		f.Encode("0123456789")
	}

	widths := make([]float64, len(lines))
	target := opts.MaxWidth
	for i, l := range lines {
		widths[i] = d.lineWidthOf(l, cs)
		if opts.MaxWidth == 0 && widths[i] > target {
			target = widths[i]
		}
	}
	offsets := make([]float64, len(lines))
	for i, w := range widths {
		switch opts.Align {
		case AlignCenter:
			offsets[i] = -w / 2
		case AlignRight:
			offsets[i] = -w
		}
	}

	leading := d.fontSize * lhf
	f := d.font
	body := []string{
		"BT",
		"/" + f.Key + " " + d.hpf(d.fontSize) + " Tf",
		d.hpf(leading) + " TL",
		d.textColor,
	}
	if cs != 0 {
		body = append(body, d.hpf(cs*d.k)+" Tc")
	}
	if mode >= 0 {
		body = append(body, fmt.Sprintf("%d Tr", mode))
	}
	if opts.Angle != 0 {
		// the alignment offset runs along the rotated baseline
		m := coords.Translate(offsets[0]*d.k, 0).
			Multiply(coords.Rotate(opts.Angle)).
			Multiply(coords.Translate(x*d.k, (d.pageHeight()-y)*d.k))
		body = append(body, strings.Join([]string{
			writer.F2(m[0]), writer.F2(m[1]), writer.F2(m[2]), writer.F2(m[3]),
			writer.F2(m[4]), writer.F2(m[5]), "Tm",
		}, " "))
	} else {
		body = append(body, d.x(x+offsets[0])+" "+d.y(y)+" Td")
	}

	justified := false
	for i, l := range lines {
		if i > 0 {
			body = append(body, writer.F2((offsets[i]-offsets[i-1])*d.k)+" "+writer.F2(-leading)+" Td")
		}
		words := strings.Count(l, " ")
		if opts.Align == AlignJustify && i < len(lines)-1 && words > 0 {
			ws := (target - widths[i]) / float64(words) * d.k
			if f.IsIdentity() {
				body = append(body, d.justifiedTJ(l, ws))
				continue
			}
			body = append(body, d.hpf(ws)+" Tw")
			justified = true
		} else if justified {
			body = append(body, "0 Tw")
			justified = false
		}
		body = append(body, f.Operand(l)+" Tj")
	}
	if justified {
		body = append(body, "0 Tw")
	}
	if mode > 0 {
		body = append(body, "0 Tr")
	}
	if cs != 0 {
		body = append(body, "0 Tc")
	}
	body = append(body, "ET")
	for _, s := range body {
		d.out(s)
	}
	return nil
}

// justifiedTJ spaces the words of line by ws points with TJ adjustments,
// used where Tw has no effect on two byte codes.
func (d *Document) justifiedTJ(line string, ws float64) string {
	words := strings.Split(line, " ")
	adj := d.hpf(-ws * 1000 / d.fontSize)
	parts := make([]string, 0, 2*len(words))
	for i, w := range words {
		if i < len(words)-1 {
			parts = append(parts, d.font.Operand(w+" "), adj)
			continue
		}
		parts = append(parts, d.font.Operand(w))
	}
	return "[" + strings.Join(parts, " ") + "] TJ"
}

// lineWidthOf measures one line in user units.
func (d *Document) lineWidthOf(line string, cs float64) float64 {
	w := d.font.StringUnitWidth(line) * d.fontSize / d.k
	if n := len([]rune(line)); n > 1 {
		w += cs * float64(n-1)
	}
	return w
}

// SplitTextToSize wraps text to maxWidth user units in the current font.
func (d *Document) SplitTextToSize(text string, maxWidth float64) []string {
	return d.font.SplitTextToSize(text, maxWidth*d.k, d.fontSize)
}

// StringUnitWidth returns the width of text in ems of the current font.
func (d *Document) StringUnitWidth(text string) float64 {
	return d.font.StringUnitWidth(text)
}

// TextWidth returns the width of the widest line of text in user units.
func (d *Document) TextWidth(text string) float64 {
	var max float64
	for _, l := range strings.Split(text, "\n") {
		if w := d.lineWidthOf(l, d.charSpace); w > max {
			max = w
		}
	}
	return max
}

// LineHeight returns the leading of the current font in user units.
func (d *Document) LineHeight() float64 {
	return d.fontSize * d.lineHeightFactor / d.k
}
