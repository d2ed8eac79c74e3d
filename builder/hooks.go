package builder

import (
	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/writer"
)

// FontRegisteredHook observes every font added to the document, including
// the core fonts registered by New.
type FontRegisteredHook interface {
	FontRegistered(d *Document, f *fonts.Font)
}

// PageAddedHook observes new pages after their initial state is written.
type PageAddedHook interface {
	PageAdded(d *Document, p *Page)
}

// PagePutHook runs while a page dictionary is open. It may add entries to
// the dictionary and allocate additional objects.
type PagePutHook interface {
	PagePut(ctx *PageContext) error
}

// ResourcesPutHook runs after fonts and images are written and before the
// resource dictionary. Entries added go into the resource dictionary.
type ResourcesPutHook interface {
	ResourcesPut(ctx *OutputContext) error
}

// CatalogPutHook adds entries to the document catalog.
type CatalogPutHook interface {
	CatalogPut(ctx *OutputContext) error
}

// BuildDocumentHook runs at the start of every Output, before anything is
// written.
type BuildDocumentHook interface {
	BuildDocument(d *Document) error
}

func isHook(h any) bool {
	switch h.(type) {
	case FontRegisteredHook, PageAddedHook, PagePutHook, ResourcesPutHook, CatalogPutHook, BuildDocumentHook:
		return true
	}
	return false
}

// OutputContext is handed to hooks during serialization.
type OutputContext struct {
	Doc    *Document
	Writer *writer.Writer

	pageObjects []int
	entries     []string
}

// AddEntry appends a line to the dictionary being written.
func (c *OutputContext) AddEntry(s string) { c.entries = append(c.entries, s) }

// PageObject returns the object number of page n, or 0.
func (c *OutputContext) PageObject(n int) int {
	if n < 1 || n > len(c.pageObjects) {
		return 0
	}
	return c.pageObjects[n-1]
}

func (c *OutputContext) takeEntries() []string {
	e := c.entries
	c.entries = nil
	return e
}

// PageContext is the OutputContext of one page dictionary.
type PageContext struct {
	*OutputContext
	Page       *Page
	PageNumber int
	Object     int
}
