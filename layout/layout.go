// Package layout flows structured text (Markdown, HTML) onto the pages of
// a document, breaking lines and pages as it goes.
package layout

import (
	"errors"
	"strings"

	"github.com/wudi/pdfgen/builder"
	"github.com/wudi/pdfgen/observability"
)

// Target is the drawing surface the engine writes to. *builder.Document
// implements it.
type Target interface {
	SetFont(family, style string) error
	SetFontSize(size float64) error
	SetTextColor(ch ...float64) error
	TextWidth(text string) float64
	SplitTextToSize(text string, maxWidth float64) []string
	Text(text string, x, y float64, opts builder.TextOptions) error
	Line(x1, y1, x2, y2 float64, style string) error
	Link(x, y, w, h float64, opts builder.LinkOptions) error
	AddPage(opts ...builder.PageOption) (*builder.Page, error)
	PageSize() (width, height float64)
	ScaleFactor() float64
}

// Engine handles the layout of structured content into PDF pages.
type Engine struct {
	t   Target
	log observability.Logger

	// Configuration
	DefaultFont     string
	DefaultFontSize float64 // points
	LineHeight      float64 // multiple of the font size
	Margins         Margins

	// cursorY is the top of the next line in user units; 0 before the
	// first block.
	cursorY float64
	started bool
}

// Margins defines page margins in the document's user units.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithDefaultFont sets the body font family.
func WithDefaultFont(family string) Option {
	return func(e *Engine) {
		e.DefaultFont = family
	}
}

// WithDefaultFontSize sets the body font size in points.
func WithDefaultFontSize(size float64) Option {
	return func(e *Engine) {
		e.DefaultFontSize = size
	}
}

// WithLineHeight sets the line height multiplier.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		e.LineHeight = height
	}
}

// WithMargins sets the page margins.
func WithMargins(margins Margins) Option {
	return func(e *Engine) {
		e.Margins = margins
	}
}

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates a layout engine drawing on t. Margins default to 15
// points expressed in t's user unit.
func NewEngine(t Target, opts ...Option) *Engine {
	m := 15 / t.ScaleFactor()
	e := &Engine{
		t:               t,
		log:             observability.NopLogger{},
		DefaultFont:     "helvetica",
		DefaultFontSize: 12,
		LineHeight:      1.2,
		Margins:         Margins{Top: m, Bottom: m, Left: m, Right: m},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cursor returns the top of the next line in user units.
func (e *Engine) Cursor() float64 {
	if !e.started {
		return e.Margins.Top
	}
	return e.cursorY
}

// SetCursor moves the top of the next line, e.g. below content drawn
// directly on the document.
func (e *Engine) SetCursor(y float64) {
	e.cursorY = y
	e.started = true
}

func (e *Engine) ensureStarted() {
	if !e.started {
		e.cursorY = e.Margins.Top
		e.started = true
	}
}

// checkPageBreak adds a page when a line of height h does not fit.
func (e *Engine) checkPageBreak(h float64) error {
	e.ensureStarted()
	_, ph := e.t.PageSize()
	if e.cursorY+h <= ph-e.Margins.Bottom || e.cursorY <= e.Margins.Top {
		return nil
	}
	if _, err := e.t.AddPage(); err != nil {
		return err
	}
	e.log.Debug("page break", observability.Float64("cursor", e.cursorY))
	e.cursorY = e.Margins.Top
	return nil
}

// lineHeight converts a font size in points to a line advance in user units.
func (e *Engine) lineHeight(size float64) float64 {
	return size * e.LineHeight / e.t.ScaleFactor()
}

// space adds vertical space unless the cursor sits at the top of a page.
func (e *Engine) space(h float64) {
	e.ensureStarted()
	if e.cursorY > e.Margins.Top {
		e.cursorY += h
	}
}

func (e *Engine) contentWidth(indent float64) float64 {
	pw, _ := e.t.PageSize()
	return pw - e.Margins.Left - e.Margins.Right - indent
}

// style is the inline formatting of a span.
type style struct {
	bold   bool
	italic bool
	code   bool
	strike bool
	link   string
}

// TextSpan is a run of text sharing one style. A span whose text is "\n"
// forces a line break.
type TextSpan struct {
	Text string
	style
}

func (e *Engine) applyStyle(s style) error {
	family := e.DefaultFont
	if s.code {
		family = "courier"
	}
	st := "normal"
	switch {
	case s.bold && s.italic:
		st = "bolditalic"
	case s.bold:
		st = "bold"
	case s.italic:
		st = "italic"
	}
	err := e.t.SetFont(family, st)
	if errors.Is(err, builder.ErrUnknownFont) {
		// Families added from a single TTF often lack styled faces.
		err = e.t.SetFont(family, "normal")
	}
	return err
}

// piece is a measured fragment of a line.
type piece struct {
	text  string
	style style
	width float64
	space bool
}

// renderSpans wraps spans into lines at most the content width wide,
// starting indent user units from the left margin.
func (e *Engine) renderSpans(spans []TextSpan, size, indent float64) error {
	if err := e.t.SetFontSize(size); err != nil {
		return err
	}
	maxWidth := e.contentWidth(indent)
	lh := e.lineHeight(size)

	var line []piece
	lineWidth := 0.0
	flush := func() error {
		for len(line) > 0 && line[len(line)-1].space {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			return nil
		}
		err := e.emitLine(line, size, lh, e.Margins.Left+indent)
		line, lineWidth = nil, 0
		return err
	}

	for _, span := range spans {
		if span.Text == "\n" {
			if len(line) == 0 {
				e.ensureStarted()
				e.cursorY += lh
			}
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if err := e.applyStyle(span.style); err != nil {
			return err
		}
		spaceW := e.t.TextWidth(" ")
		for _, tok := range tokenize(span.Text) {
			if tok == " " {
				if len(line) == 0 || line[len(line)-1].space {
					continue
				}
				line = append(line, piece{text: " ", style: span.style, width: spaceW, space: true})
				lineWidth += spaceW
				continue
			}
			w := e.t.TextWidth(tok)
			if lineWidth+w <= maxWidth {
				line = append(line, piece{text: tok, style: span.style, width: w})
				lineWidth += w
				continue
			}
			if err := flush(); err != nil {
				return err
			}
			parts := []string{tok}
			if w > maxWidth {
				parts = e.t.SplitTextToSize(tok, maxWidth)
			}
			for i, p := range parts {
				if i > 0 {
					if err := flush(); err != nil {
						return err
					}
				}
				pw := e.t.TextWidth(p)
				line = append(line, piece{text: p, style: span.style, width: pw})
				lineWidth += pw
			}
		}
	}
	return flush()
}

func tokenize(s string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\n', '\t', '\r':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, " ")
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// emitLine draws one wrapped line, merging neighbouring pieces of the same
// style into a single text call.
func (e *Engine) emitLine(line []piece, size, lh, x float64) error {
	if err := e.checkPageBreak(lh); err != nil {
		return err
	}
	top := e.cursorY
	baseline := top + size/e.t.ScaleFactor()

	var runs []piece
	for _, p := range line {
		if n := len(runs); n > 0 && runs[n-1].style == p.style {
			runs[n-1].text += p.text
			runs[n-1].width += p.width
			continue
		}
		runs = append(runs, p)
	}
	for _, r := range runs {
		if err := e.drawRun(r, x, top, baseline, size, lh); err != nil {
			return err
		}
		x += r.width
	}
	e.cursorY += lh
	return nil
}

func (e *Engine) drawRun(r piece, x, top, baseline, size, lh float64) error {
	if err := e.applyStyle(r.style); err != nil {
		return err
	}
	if r.style.link != "" {
		if err := e.t.SetTextColor(0, 0, 238); err != nil {
			return err
		}
	}
	if err := e.t.Text(r.text, x, baseline, builder.TextOptions{}); err != nil {
		return err
	}
	k := e.t.ScaleFactor()
	if r.style.strike {
		y := baseline - size*0.3/k
		if err := e.t.Line(x, y, x+r.width, y, "S"); err != nil {
			return err
		}
	}
	if r.style.link == "" {
		return nil
	}
	if err := e.t.SetTextColor(0); err != nil {
		return err
	}
	under := baseline + size*0.1/k
	if err := e.t.Line(x, under, x+r.width, under, "S"); err != nil {
		return err
	}
	return e.t.Link(x, top, r.width, lh, builder.LinkOptions{URL: r.style.link})
}

// RenderText renders plain text. Blank lines separate paragraphs and
// single newlines break lines.
func (e *Engine) RenderText(source string) error {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	for _, para := range strings.Split(source, "\n\n") {
		var spans []TextSpan
		for i, l := range strings.Split(para, "\n") {
			if i > 0 {
				spans = append(spans, TextSpan{Text: "\n"})
			}
			spans = append(spans, TextSpan{Text: l})
		}
		if !hasText(spans) {
			continue
		}
		if err := e.paragraph(spans, 0); err != nil {
			return err
		}
	}
	return nil
}

// heading renders a heading of level 1 to 6 in bold.
func (e *Engine) heading(spans []TextSpan, level int) error {
	scale := []float64{2, 1.5, 1.25, 1.1, 1, 0.9}
	if level < 1 {
		level = 1
	}
	if level > len(scale) {
		level = len(scale)
	}
	size := e.DefaultFontSize * scale[level-1]
	for i := range spans {
		spans[i].bold = true
	}
	e.space(e.lineHeight(size) / 2)
	if err := e.renderSpans(spans, size, 0); err != nil {
		return err
	}
	e.space(e.lineHeight(e.DefaultFontSize) / 4)
	return nil
}

// paragraph renders body text followed by half a line of space.
func (e *Engine) paragraph(spans []TextSpan, indent float64) error {
	if err := e.renderSpans(spans, e.DefaultFontSize, indent); err != nil {
		return err
	}
	e.space(e.lineHeight(e.DefaultFontSize) / 2)
	return nil
}

// listItem draws a marker in the gutter and the item text beside it.
func (e *Engine) listItem(marker string, spans []TextSpan, indent float64) error {
	size := e.DefaultFontSize
	gutter := 1.5 * size / e.t.ScaleFactor()
	if err := e.t.SetFontSize(size); err != nil {
		return err
	}
	if err := e.checkPageBreak(e.lineHeight(size)); err != nil {
		return err
	}
	if err := e.applyStyle(style{}); err != nil {
		return err
	}
	baseline := e.cursorY + size/e.t.ScaleFactor()
	if err := e.t.Text(marker, e.Margins.Left+indent, baseline, builder.TextOptions{}); err != nil {
		return err
	}
	start := e.cursorY
	if err := e.renderSpans(spans, size, indent+gutter); err != nil {
		return err
	}
	if e.cursorY == start {
		e.cursorY += e.lineHeight(size)
	}
	return nil
}

// preformatted draws lines verbatim in Courier without wrapping.
func (e *Engine) preformatted(text string, indent float64) error {
	size := e.DefaultFontSize * 0.9
	if err := e.t.SetFontSize(size); err != nil {
		return err
	}
	lh := e.lineHeight(size)
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if err := e.checkPageBreak(lh); err != nil {
			return err
		}
		l = strings.ReplaceAll(strings.TrimRight(l, " \t\r"), "\t", "    ")
		if l != "" {
			if err := e.applyStyle(style{code: true}); err != nil {
				return err
			}
			if err := e.t.Text(l, e.Margins.Left+indent, e.cursorY+size/e.t.ScaleFactor(), builder.TextOptions{}); err != nil {
				return err
			}
		}
		e.cursorY += lh
	}
	e.space(e.lineHeight(e.DefaultFontSize) / 2)
	return nil
}

// rule draws a horizontal line across the content width.
func (e *Engine) rule() error {
	lh := e.lineHeight(e.DefaultFontSize)
	if err := e.checkPageBreak(lh); err != nil {
		return err
	}
	y := e.cursorY + lh/2
	pw, _ := e.t.PageSize()
	if err := e.t.Line(e.Margins.Left, y, pw-e.Margins.Right, y, "S"); err != nil {
		return err
	}
	e.cursorY += lh
	return nil
}
