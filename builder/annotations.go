package builder

import (
	"fmt"
	"strings"

	"github.com/wudi/pdfgen/scripting"
	"github.com/wudi/pdfgen/writer"
)

type annotationKind int

const (
	annotLink annotationKind = iota
	annotText
)

type annotation struct {
	kind     annotationKind
	rect     Box
	url      string
	page     int
	top      float64 // user units from the top of the target page
	title    string
	contents string
	open     bool
}

// LinkOptions selects the target of a link: a URL, or a page number with
// an optional vertical position.
type LinkOptions struct {
	URL        string
	PageNumber int
	Top        float64
}

// Link makes the rectangle at (x, y) with size w×h clickable on the
// current page.
func (d *Document) Link(x, y, w, h float64, opts LinkOptions) error {
	if err := validNumbers(x, y, w, h, opts.Top); err != nil {
		return err
	}
	if (opts.URL == "") == (opts.PageNumber == 0) {
		return fmt.Errorf("%w: link needs exactly one of URL or page", ErrInvalidArgument)
	}
	if opts.PageNumber < 0 {
		return fmt.Errorf("%w: page %d", ErrPageOutOfRange, opts.PageNumber)
	}
	p := d.page()
	p.annotations = append(p.annotations, annotation{
		kind: annotLink,
		rect: d.rect(x, y, w, h),
		url:  opts.URL,
		page: opts.PageNumber,
		top:  opts.Top,
	})
	return nil
}

// TextAnnotation attaches a note icon at (x, y) on the current page.
func (d *Document) TextAnnotation(x, y float64, title, contents string, open bool) error {
	if err := validNumbers(x, y); err != nil {
		return err
	}
	p := d.page()
	p.annotations = append(p.annotations, annotation{
		kind:     annotText,
		rect:     d.rect(x, y, 20/d.k, 20/d.k),
		title:    title,
		contents: contents,
		open:     open,
	})
	return nil
}

// rect converts a top-left anchored rectangle into a page box in points.
func (d *Document) rect(x, y, w, h float64) Box {
	ph := d.pageHeight()
	return Box{LLX: x * d.k, LLY: (ph - y - h) * d.k, URX: (x + w) * d.k, URY: (ph - y) * d.k}
}

// annotationHook writes page annotations as additional objects.
type annotationHook struct{}

func (annotationHook) PagePut(ctx *PageContext) error {
	if len(ctx.Page.annotations) == 0 {
		return nil
	}
	w := ctx.Writer
	refs := make([]string, 0, len(ctx.Page.annotations))
	for _, a := range ctx.Page.annotations {
		obj := w.NewAdditionalObject()
		refs = append(refs, fmt.Sprintf("%d 0 R", obj.Num))
		switch a.kind {
		case annotLink:
			obj.Out("<</Type /Annot /Subtype /Link /Rect " + a.rect.String() + " /Border [0 0 0]")
			if a.url != "" {
				obj.Out("/A <</S /URI /URI " + w.StringFor(obj.Num, a.url) + ">>")
			} else {
				target := ctx.PageObject(a.page)
				if target == 0 {
					return fmt.Errorf("%w: link to page %d", ErrPageOutOfRange, a.page)
				}
				tp := ctx.Doc.pages[a.page-1]
				top := tp.MediaBox.Height() - a.top*ctx.Doc.k
				obj.Out(fmt.Sprintf("/Dest [%d 0 R /XYZ 0 %s null]", target, writer.F2(top)))
			}
			obj.Out(">>")
		case annotText:
			popup := w.NewAdditionalObject()
			open := "false"
			if a.open {
				open = "true"
			}
			obj.Out("<</Type /Annot /Subtype /Text /Rect " + a.rect.String())
			obj.Out("/T " + w.StringFor(obj.Num, writer.TextString(a.title)))
			obj.Out("/Contents " + w.StringFor(obj.Num, writer.TextString(a.contents)))
			obj.Out(fmt.Sprintf("/Name /Comment /Open %s /Popup %d 0 R>>", open, popup.Num))
			pr := Box{LLX: a.rect.URX, LLY: a.rect.URY - 120, URX: a.rect.URX + 180, URY: a.rect.URY}
			popup.Out(fmt.Sprintf("<</Type /Annot /Subtype /Popup /Parent %d 0 R /Rect %s /Open %s>>", obj.Num, pr.String(), open))
			refs = append(refs, fmt.Sprintf("%d 0 R", popup.Num))
		}
	}
	ctx.AddEntry("/Annots [" + strings.Join(refs, " ") + "]")
	return nil
}

// AddJavaScript appends document-level JavaScript run when the file
// opens. Scripts that do not compile are rejected.
func (d *Document) AddJavaScript(src string) error {
	if err := scripting.Check(src); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if d.javascript != "" {
		d.javascript += "\n"
	}
	d.javascript += src
	return nil
}

// JavaScript returns the document-level script.
func (d *Document) JavaScript() string { return d.javascript }

// javaScriptHook writes the document script and names it in the catalog.
type javaScriptHook struct {
	names int
}

func (h *javaScriptHook) ResourcesPut(ctx *OutputContext) error {
	h.names = 0
	src := ctx.Doc.javascript
	if src == "" {
		return nil
	}
	w := ctx.Writer
	js := w.NewObjectDeferred()
	h.names = w.NewObject()
	w.Out("<<")
	w.Outf("/Names [%s %d 0 R]", w.String("EmbeddedJS"), js)
	w.Out(">>")
	w.EndObject()
	if err := w.BeginDeferred(js); err != nil {
		return err
	}
	w.Out("<<")
	w.Out("/S /JavaScript")
	w.Out("/JS " + w.String(src))
	w.Out(">>")
	w.EndObject()
	return nil
}

func (h *javaScriptHook) CatalogPut(ctx *OutputContext) error {
	if h.names > 0 {
		ctx.AddEntry(fmt.Sprintf("/Names <</JavaScript %d 0 R>>", h.names))
	}
	return nil
}
