package builder

import (
	"fmt"
	"strconv"
	"strings"

	xsfnt "golang.org/x/image/font/sfnt"

	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/sfnt"
)

const defaultFamily = "helvetica"

func (d *Document) addStandardFonts() error {
	table := d.cfg.metrics
	if table == nil {
		table = fonts.StandardMetrics()
	}
	for _, sf := range fonts.StandardFonts {
		m, ok := table[sf.PostScriptName]
		if !ok {
			return fmt.Errorf("%w: no metrics for %s", ErrFontData, sf.PostScriptName)
		}
		d.registerFont(fonts.NewStandardFont(d.nextFontKey(), sf, m))
	}
	d.font = d.fontMap[defaultFamily][fonts.StyleNormal]
	return nil
}

func (d *Document) nextFontKey() string { return "F" + strconv.Itoa(len(d.fonts)+1) }

func (d *Document) registerFont(f *fonts.Font) {
	d.fonts = append(d.fonts, f)
	fam := strings.ToLower(f.Family)
	if d.fontMap[fam] == nil {
		d.fontMap[fam] = make(map[string]*fonts.Font)
	}
	d.fontMap[fam][f.Style] = f
	for _, h := range d.hooks {
		if hook, ok := h.(FontRegisteredHook); ok {
			hook.FontRegistered(d, f)
		}
	}
}

// AddFont registers a TrueType font under family and style. Text set in it
// is written with Identity-H encoding and the font is embedded as a subset
// holding only the glyphs used.
func (d *Document) AddFont(postScriptName, family, style string, ttf []byte) (*fonts.Font, error) {
	st, err := fonts.NormalizeStyle(style)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(family) == "" {
		return nil, fmt.Errorf("%w: empty font family", ErrInvalidArgument)
	}
	if _, err := xsfnt.Parse(ttf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontData, err)
	}
	meta, err := sfnt.Parse(ttf, sfnt.WithLogger(d.log))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFontData, err)
	}
	if !meta.IsEmbeddable() {
		d.log.Warn("font license restricts embedding",
			observability.String("family", family),
			observability.Int("fsType", int(meta.OS2.FsType)))
	}
	f := fonts.NewTrueTypeFont(d.nextFontKey(), postScriptName, strings.ToLower(family), st, meta)
	d.registerFont(f)
	d.log.Info("font registered",
		observability.String("key", f.Key),
		observability.String("postscript", f.PostScriptName),
		observability.String("family", f.Family),
		observability.String("style", f.Style),
		observability.Int("glyphs", meta.NumGlyphs()))
	return f, nil
}

// SetFont selects the font for subsequent text. An unknown family falls
// back to Helvetica; a known family without the style is an error.
func (d *Document) SetFont(family, style string) error {
	st, err := fonts.NormalizeStyle(style)
	if err != nil {
		return err
	}
	fam := strings.ToLower(family)
	styles, ok := d.fontMap[fam]
	if !ok {
		d.log.Warn("unknown font family, using default",
			observability.String("family", family),
			observability.String("default", defaultFamily))
		styles = d.fontMap[defaultFamily]
	}
	f, ok := styles[st]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrUnknownFont, family, st)
	}
	d.font = f
	return nil
}

// Font returns the current font.
func (d *Document) Font() *fonts.Font { return d.font }

// FontList returns the registered styles per family.
func (d *Document) FontList() map[string][]string {
	out := make(map[string][]string, len(d.fontMap))
	for _, f := range d.fonts {
		fam := strings.ToLower(f.Family)
		out[fam] = append(out[fam], f.Style)
	}
	return out
}

// SetFontSize sets the font size in points.
func (d *Document) SetFontSize(size float64) error {
	if err := validNumbers(size); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: font size %v", ErrInvalidArgument, size)
	}
	d.fontSize = size
	return nil
}

func (d *Document) FontSize() float64 { return d.fontSize }

// SetLineHeightFactor sets the leading as a multiple of the font size.
func (d *Document) SetLineHeightFactor(f float64) error {
	if err := validNumbers(f); err != nil {
		return err
	}
	if f <= 0 {
		return fmt.Errorf("%w: line height factor %v", ErrInvalidArgument, f)
	}
	d.lineHeightFactor = f
	return nil
}

// SetCharSpace sets extra spacing between characters in user units.
func (d *Document) SetCharSpace(cs float64) error {
	if err := validNumbers(cs); err != nil {
		return err
	}
	d.charSpace = cs
	return nil
}
