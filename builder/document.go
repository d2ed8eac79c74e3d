// Package builder assembles a PDF document in memory. Drawing and text
// calls append operators to the current page; Output serializes the whole
// object graph in one pass.
package builder

import (
	"fmt"
	"time"

	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/writer"
)

// Box is a page boundary in points.
type Box struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.URX - b.LLX }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.URY - b.LLY }

func (b Box) String() string {
	return "[" + writer.F2(b.LLX) + " " + writer.F2(b.LLY) + " " + writer.F2(b.URX) + " " + writer.F2(b.URY) + "]"
}

// Page is one page and its content. A page keeps its identity when the
// document's pages are reordered.
type Page struct {
	MediaBox Box
	CropBox  Box
	BleedBox Box
	TrimBox  Box
	ArtBox   Box
	UserUnit float64
	Rotate   int

	content     []string
	annotations []annotation
}

// Content returns the operators written to the page so far.
func (p *Page) Content() []string { return append([]string(nil), p.content...) }

// PageInfo describes a page by its current position.
type PageInfo struct {
	PageNumber int
	Page       *Page
	Width      float64 // user units
	Height     float64
}

// Document is a PDF under construction. It is not safe for concurrent use.
type Document struct {
	cfg    config
	k      float64
	log    observability.Logger
	tracer observability.Tracer
	w      *writer.Writer

	pages   []*Page
	current int

	fonts    []*fonts.Font
	fontMap  map[string]map[string]*fonts.Font
	font     *fonts.Font
	fontSize float64

	lineHeightFactor float64
	charSpace        float64
	lineWidth        float64
	lineCap          int
	lineJoin         int
	drawColor        string
	fillColor        string
	textColor        string

	images []*imageEntry

	props           Properties
	lang            string
	zoom            string
	layout          string
	pageMode        string
	creationDate    time.Time
	fileID          string
	totalPagesAlias string
	javascript      string

	hooks []any
}

// New creates a document holding one empty page.
func New(opts ...Option) (*Document, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	d := &Document{
		cfg:              cfg,
		k:                unitScale[cfg.unit],
		log:              cfg.logger,
		tracer:           cfg.tracer,
		w:                writer.New(writer.Config{Version: writer.PDF13, Compress: cfg.compress}),
		fontMap:          make(map[string]map[string]*fonts.Font),
		fontSize:         16,
		lineHeightFactor: 1.15,
		lineWidth:        0.200025,
		drawColor:        "0 G",
		fillColor:        "0 g",
		textColor:        "0 g",
		creationDate:     cfg.creationDate,
		fileID:           cfg.fileID,
		zoom:             "/FitH null",
		layout:           "/OneColumn",
	}
	if d.creationDate.IsZero() {
		d.creationDate = time.Now()
	}
	if d.fileID == "" {
		d.fileID = writer.FileID()
	}
	d.hooks = append(d.hooks, &annotationHook{}, &javaScriptHook{})
	d.hooks = append(d.hooks, cfg.hooks...)

	if err := d.addStandardFonts(); err != nil {
		return nil, err
	}
	if _, err := d.AddPage(); err != nil {
		return nil, err
	}
	return d, nil
}

// ScaleFactor returns the number of points per user unit.
func (d *Document) ScaleFactor() float64 { return d.k }

// AddHook registers a hook after construction.
func (d *Document) AddHook(h any) error {
	if !isHook(h) {
		return fmt.Errorf("%w: %T implements no hook", ErrInvalidArgument, h)
	}
	d.hooks = append(d.hooks, h)
	return nil
}

// page returns the current page, adding one to an empty document.
func (d *Document) page() *Page {
	if len(d.pages) == 0 {
		// the default page settings were validated by New
		d.AddPage()
	}
	return d.pages[d.current]
}

func (d *Document) out(s string) {
	p := d.page()
	p.content = append(p.content, s)
}

// pageHeight returns the height of the current page in user units.
func (d *Document) pageHeight() float64 { return d.page().MediaBox.Height() / d.k }

func (d *Document) hpf(v float64) string { return writer.HPF(v, d.cfg.precision) }

// x and y convert user coordinates, origin top left, to points.
func (d *Document) x(v float64) string { return writer.F2(v * d.k) }
func (d *Document) y(v float64) string { return writer.F2((d.pageHeight() - v) * d.k) }

func validNumbers(vs ...float64) error {
	for _, v := range vs {
		if !writer.ValidNumber(v) {
			return fmt.Errorf("%w: %v is not a finite number", ErrInvalidArgument, v)
		}
	}
	return nil
}
