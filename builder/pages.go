package builder

import (
	"fmt"
	"slices"
	"strings"
)

// PageOption overrides the document page settings for one page.
type PageOption func(*pageSpec) error

type pageSpec struct {
	format      string
	size        [2]float64
	orientation string
}

// PageFormat selects a named format for the new page.
func PageFormat(name string) PageOption {
	return func(s *pageSpec) error {
		f := strings.ToLower(name)
		if _, ok := pageFormats[f]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidFormat, name)
		}
		s.format, s.size = f, [2]float64{}
		return nil
	}
}

// PageSize sets the size of the new page in user units.
func PageSize(width, height float64) PageOption {
	return func(s *pageSpec) error {
		if !(width > 0 && height > 0) || width > 14400 || height > 14400 {
			return fmt.Errorf("%w: size %vx%v", ErrInvalidFormat, width, height)
		}
		s.size = [2]float64{width, height}
		return nil
	}
}

// PageOrientation sets the orientation of the new page.
func PageOrientation(o string) PageOption {
	return func(s *pageSpec) error {
		n, err := normalizeOrientation(o)
		if err != nil {
			return err
		}
		s.orientation = n
		return nil
	}
}

func (d *Document) newPage(opts []PageOption) (*Page, error) {
	spec := pageSpec{format: d.cfg.format, size: d.cfg.size, orientation: d.cfg.orientation}
	for _, opt := range opts {
		if err := opt(&spec); err != nil {
			return nil, err
		}
	}
	var w, h float64
	if spec.size[0] > 0 {
		w, h = spec.size[0]*d.k, spec.size[1]*d.k
	} else {
		dims := pageFormats[spec.format]
		w, h = dims[0], dims[1]
	}
	if (spec.orientation == "portrait" && w > h) || (spec.orientation == "landscape" && h > w) {
		w, h = h, w
	}
	box := Box{URX: w, URY: h}
	return &Page{
		MediaBox: box,
		CropBox:  box,
		BleedBox: box,
		TrimBox:  box,
		ArtBox:   box,
		UserUnit: d.cfg.userUnit,
	}, nil
}

// AddPage appends a page and makes it current.
func (d *Document) AddPage(opts ...PageOption) (*Page, error) {
	p, err := d.newPage(opts)
	if err != nil {
		return nil, err
	}
	d.pages = append(d.pages, p)
	d.current = len(d.pages) - 1
	d.beginPage()
	for _, h := range d.hooks {
		if hook, ok := h.(PageAddedHook); ok {
			hook.PageAdded(d, p)
		}
	}
	return p, nil
}

// beginPage writes the graphics state every page starts from.
func (d *Document) beginPage() {
	d.out(d.hpf(d.lineWidth*d.k) + " w")
	d.out(d.drawColor)
	if d.lineCap != 0 {
		d.out(fmt.Sprintf("%d J", d.lineCap))
	}
	if d.lineJoin != 0 {
		d.out(fmt.Sprintf("%d j", d.lineJoin))
	}
}

// InsertPage adds a page and moves it before page number before.
func (d *Document) InsertPage(before int, opts ...PageOption) (*Page, error) {
	if err := d.checkPage(before); err != nil {
		return nil, err
	}
	p, err := d.AddPage(opts...)
	if err != nil {
		return nil, err
	}
	if err := d.MovePage(len(d.pages), before); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePage removes page n. Deleting the last page leaves the document
// empty; the next drawing call starts a new page.
func (d *Document) DeletePage(n int) error {
	if err := d.checkPage(n); err != nil {
		return err
	}
	d.pages = slices.Delete(d.pages, n-1, n)
	if d.current >= len(d.pages) {
		d.current = max(len(d.pages)-1, 0)
	}
	return nil
}

// MovePage moves page target so that it becomes page number before. The
// moved page becomes current.
func (d *Document) MovePage(target, before int) error {
	if err := d.checkPage(target); err != nil {
		return err
	}
	if err := d.checkPage(before); err != nil {
		return err
	}
	p := d.pages[target-1]
	d.pages = slices.Delete(d.pages, target-1, target)
	d.pages = slices.Insert(d.pages, before-1, p)
	d.current = before - 1
	return nil
}

// SetPage makes page n current.
func (d *Document) SetPage(n int) error {
	if err := d.checkPage(n); err != nil {
		return err
	}
	d.current = n - 1
	return nil
}

// CurrentPage returns the 1-based number of the current page, or 0 when
// the document has no pages.
func (d *Document) CurrentPage() int {
	if len(d.pages) == 0 {
		return 0
	}
	return d.current + 1
}

func (d *Document) NumberOfPages() int { return len(d.pages) }

// PageInfo returns page n and its size in user units.
func (d *Document) PageInfo(n int) (PageInfo, error) {
	if err := d.checkPage(n); err != nil {
		return PageInfo{}, err
	}
	p := d.pages[n-1]
	return PageInfo{
		PageNumber: n,
		Page:       p,
		Width:      p.MediaBox.Width() / d.k,
		Height:     p.MediaBox.Height() / d.k,
	}, nil
}

// PageSize returns the size of the current page in user units.
func (d *Document) PageSize() (width, height float64) {
	p := d.page()
	return p.MediaBox.Width() / d.k, p.MediaBox.Height() / d.k
}

// SetPageRotation sets /Rotate on the current page. deg must be a
// multiple of 90.
func (d *Document) SetPageRotation(deg int) error {
	if deg%90 != 0 {
		return fmt.Errorf("%w: rotation %d", ErrInvalidArgument, deg)
	}
	d.page().Rotate = ((deg % 360) + 360) % 360
	return nil
}

func (d *Document) checkPage(n int) error {
	if n < 1 || n > len(d.pages) {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, len(d.pages))
	}
	return nil
}
