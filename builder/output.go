package builder

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/security"
	"github.com/wudi/pdfgen/writer"
)

// Output serializes the document. The document stays editable and may be
// output again.
func (d *Document) Output() ([]byte, error) {
	return d.OutputContext(context.Background())
}

// OutputContext is Output with cancellation and tracing.
func (d *Document) OutputContext(ctx context.Context) ([]byte, error) {
	ctx, span := d.tracer.StartSpan(ctx, "pdf.output")
	defer span.Finish()

	start := time.Now()
	if err := d.build(ctx); err != nil {
		span.SetError(err)
		d.log.Error("output failed", observability.Error("error", err))
		return nil, err
	}
	out := bytes.Clone(d.w.Bytes())
	elapsed := time.Since(start)

	span.SetTag(observability.MetricPageCount, len(d.pages))
	span.SetTag(observability.MetricObjectCount, d.w.ObjectCount())
	span.SetTag(observability.MetricOutputBytes, len(out))
	d.log.Info("document written",
		observability.Duration(observability.MetricWriteTime, elapsed),
		observability.Int(observability.MetricPageCount, len(d.pages)),
		observability.Int(observability.MetricObjectCount, d.w.ObjectCount()),
		observability.Int(observability.MetricOutputBytes, len(out)))
	return out, nil
}

// WriteTo writes the serialized document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	out, err := d.Output()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(out)
	return int64(n), err
}

// Save writes the document to a file.
func (d *Document) Save(path string) error {
	out, err := d.Output()
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func (d *Document) build(ctx context.Context) error {
	for _, h := range d.hooks {
		if hook, ok := h.(BuildDocumentHook); ok {
			if err := hook.BuildDocument(d); err != nil {
				return err
			}
		}
	}

	var handler *security.Handler
	version := writer.PDF13
	if d.cfg.encryption != nil {
		id, err := hex.DecodeString(d.fileID)
		if err != nil {
			return fmt.Errorf("%w: file id: %v", ErrInvalidArgument, err)
		}
		handler, err = security.NewStandard(*d.cfg.encryption, id)
		if err != nil {
			return err
		}
		version = writer.Version(handler.Version())
	}

	w := writer.New(writer.Config{Version: version, Compress: d.cfg.compress})
	d.w = w
	w.Header()
	if handler != nil {
		w.SetEncryptor(handler)
	}
	oc := &OutputContext{Doc: d, Writer: w}

	root := w.NewObjectDeferred()
	resources := w.NewObjectDeferred()
	contents := make([]int, len(d.pages))
	oc.pageObjects = make([]int, len(d.pages))
	for i := range d.pages {
		oc.pageObjects[i] = w.NewObjectDeferred()
		contents[i] = w.NewObjectDeferred()
	}
	for i, p := range d.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.putPage(oc, p, i, root, resources, contents[i]); err != nil {
			return err
		}
	}
	if err := w.BeginDeferred(root); err != nil {
		return err
	}
	kids := make([]string, len(oc.pageObjects))
	for i, n := range oc.pageObjects {
		kids[i] = fmt.Sprintf("%d 0 R", n)
	}
	w.Out("<</Type /Pages")
	w.Out("/Kids [" + strings.Join(kids, " ") + "]")
	w.Outf("/Count %d", len(d.pages))
	w.Out(">>")
	w.EndObject()

	if err := w.PutAdditionalObjects(); err != nil {
		return err
	}
	encrypt, err := d.putResources(ctx, oc, resources, handler)
	if err != nil {
		return err
	}
	info := d.putInfo()
	metadata := 0
	if d.cfg.xmp {
		if metadata, err = d.putMetadata(); err != nil {
			return err
		}
	}
	catalog, err := d.putCatalog(oc, root, metadata)
	if err != nil {
		return err
	}
	if err := w.PutXRef(); err != nil {
		return err
	}
	w.PutTrailer(writer.Trailer{
		Root:    catalog,
		Info:    info,
		Encrypt: encrypt,
		ID:      [2]string{d.fileID, d.fileID},
	})
	return nil
}

func (d *Document) putPage(oc *OutputContext, p *Page, i, parent, resources, content int) error {
	w := oc.Writer
	obj := oc.pageObjects[i]
	if err := w.BeginDeferred(obj); err != nil {
		return err
	}
	w.Out("<</Type /Page")
	w.Outf("/Parent %d 0 R", parent)
	w.Outf("/Resources %d 0 R", resources)
	w.Out("/MediaBox " + p.MediaBox.String())
	for _, b := range []struct {
		name string
		box  Box
	}{
		{"CropBox", p.CropBox},
		{"BleedBox", p.BleedBox},
		{"TrimBox", p.TrimBox},
		{"ArtBox", p.ArtBox},
	} {
		if b.box != p.MediaBox && b.box != (Box{}) {
			w.Out("/" + b.name + " " + b.box.String())
		}
	}
	if p.UserUnit > 0 && p.UserUnit != 1 {
		w.Out("/UserUnit " + d.hpf(p.UserUnit))
	}
	if p.Rotate != 0 {
		w.Outf("/Rotate %d", p.Rotate)
	}
	pc := &PageContext{OutputContext: oc, Page: p, PageNumber: i + 1, Object: obj}
	for _, h := range d.hooks {
		if hook, ok := h.(PagePutHook); ok {
			if err := hook.PagePut(pc); err != nil {
				return err
			}
		}
	}
	for _, e := range oc.takeEntries() {
		w.Out(e)
	}
	w.Outf("/Contents %d 0 R", content)
	w.Out(">>")
	w.EndObject()

	if err := w.BeginDeferred(content); err != nil {
		return err
	}
	data := strings.Join(p.content, "\n")
	if d.totalPagesAlias != "" {
		data = d.replaceTotalPages(data)
	}
	if err := w.PutStream(writer.Stream{Data: []byte(data)}); err != nil {
		return err
	}
	w.EndObject()
	return nil
}

// replaceTotalPages substitutes the page count for the alias. Literal
// strings are replaced directly; hex strings of Identity-H fonts are
// replaced glyph by glyph in the font selected by the preceding Tf.
func (d *Document) replaceTotalPages(data string) string {
	alias := d.totalPagesAlias
	total := strconv.Itoa(len(d.pages))
	data = strings.ReplaceAll(data, writer.EscapeString(alias), total)

	byKey := make(map[string]*fonts.Font, len(d.fonts))
	for _, f := range d.fonts {
		byKey[f.Key] = f
	}
	lines := strings.Split(data, "\n")
	var font *fonts.Font
	for i, l := range lines {
		if fields := strings.Fields(l); len(fields) == 3 && fields[2] == "Tf" {
			font = byKey[strings.TrimPrefix(fields[0], "/")]
			continue
		}
		if font == nil || !font.IsIdentity() || !strings.Contains(l, "<") {
			continue
		}
		lines[i] = replaceGlyphRuns(l, hexDigits(font.Lookup(alias)), hexDigits(font.Lookup(total)))
	}
	return strings.Join(lines, "\n")
}

// replaceGlyphRuns replaces from with to inside the <...> hex strings of
// line. Matches start on 4-digit glyph boundaries only.
func replaceGlyphRuns(line, from, to string) string {
	if from == "" || !strings.Contains(line, from) {
		return line
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(line, '<')
		if open < 0 {
			break
		}
		end := strings.IndexByte(line[open:], '>')
		if end < 0 {
			break
		}
		end += open
		b.WriteString(line[:open+1])
		run := line[open+1 : end]
		for k := 0; k < len(run); {
			if strings.HasPrefix(run[k:], from) {
				b.WriteString(to)
				k += len(from)
				continue
			}
			n := min(k+4, len(run))
			b.WriteString(run[k:n])
			k = n
		}
		line = line[end:]
	}
	b.WriteString(line)
	return b.String()
}

func hexDigits(b []byte) string {
	s := writer.HexString(b)
	return s[1 : len(s)-1]
}

func (d *Document) putResources(ctx context.Context, oc *OutputContext, resources int, handler *security.Handler) (int, error) {
	w := oc.Writer
	var fontRefs []string
	for _, f := range d.fonts {
		if d.cfg.putOnlyUsedFonts && !f.Used {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := d.putFont(w, f)
		if err != nil {
			return 0, fmt.Errorf("font %s: %w", f.PostScriptName, err)
		}
		fontRefs = append(fontRefs, fmt.Sprintf("/%s %d 0 R", f.Key, n))
	}
	var imageRefs []string
	for _, img := range d.images {
		n, err := d.putImage(img)
		if err != nil {
			return 0, fmt.Errorf("image %s: %w", img.key, err)
		}
		imageRefs = append(imageRefs, fmt.Sprintf("/%s %d 0 R", img.key, n))
	}
	for _, h := range d.hooks {
		if hook, ok := h.(ResourcesPutHook); ok {
			if err := hook.ResourcesPut(oc); err != nil {
				return 0, err
			}
		}
	}
	extra := oc.takeEntries()

	encrypt := 0
	if handler != nil {
		w.SetEncryptor(nil)
		encrypt = w.NewObject()
		w.Out("<<")
		for _, e := range handler.Dictionary() {
			w.Out(e)
		}
		w.Out(">>")
		w.EndObject()
		w.SetEncryptor(handler)
	}

	if err := w.BeginDeferred(resources); err != nil {
		return 0, err
	}
	w.Out("<<")
	w.Out("/ProcSet [/PDF /Text /ImageB /ImageC /ImageI]")
	w.Out("/Font <<")
	for _, r := range fontRefs {
		w.Out(r)
	}
	w.Out(">>")
	if len(imageRefs) > 0 {
		w.Out("/XObject <<")
		for _, r := range imageRefs {
			w.Out(r)
		}
		w.Out(">>")
	}
	for _, e := range extra {
		w.Out(e)
	}
	w.Out(">>")
	w.EndObject()
	return encrypt, nil
}

func (d *Document) putFont(w *writer.Writer, f *fonts.Font) (int, error) {
	if f.Standard {
		n := w.NewObject()
		w.Out("<<")
		w.Out("/Type /Font")
		w.Out("/BaseFont /" + f.PostScriptName)
		w.Out("/Subtype /Type1")
		if f.Encoding == fonts.EncodingWinAnsi {
			w.Out("/Encoding /WinAnsiEncoding")
		}
		w.Out("/FirstChar 32")
		w.Out("/LastChar 255")
		w.Out(">>")
		w.EndObject()
		return n, nil
	}
	return d.putType0(w, f)
}

// putType0 embeds the subset of a TrueType font as a Type0 font with an
// Identity-H encoding. Codes in content streams are original glyph ids;
// the CIDToGIDMap carries them to the subset's ids.
func (d *Document) putType0(w *writer.Writer, f *fonts.Font) (int, error) {
	start := time.Now()
	res, err := f.Subset.Encode()
	if err != nil {
		return 0, err
	}
	meta := f.Metadata
	name := fonts.SubsetTag(f.Subset.Used()) + "+" + f.PostScriptName
	d.log.Debug("font subset",
		observability.String("font", name),
		observability.Duration(observability.MetricSubsettingTime, time.Since(start)),
		observability.Int(observability.MetricSubsetGlyphs, res.NumGlyphs()),
		observability.Int(observability.MetricSubsetBytes, len(res.Data)))

	fontFile := w.NewObject()
	err = w.PutStream(writer.Stream{
		Entries: []string{"/Length1 " + strconv.Itoa(len(res.Data))},
		Data:    res.Data,
	})
	if err != nil {
		return 0, err
	}
	w.EndObject()

	cidMap := w.NewObject()
	if err := w.PutStream(writer.Stream{Data: res.CIDToGID()}); err != nil {
		return 0, err
	}
	w.EndObject()

	toUnicode := 0
	if cmap := writer.ToUnicodeCMap(name, f.ToUnicode()); cmap != nil {
		toUnicode = w.NewObject()
		if err := w.PutStream(writer.Stream{Data: cmap}); err != nil {
			return 0, err
		}
		w.EndObject()
	}

	upem := float64(meta.UnitsPerEm())
	scale := func(v int16) string { return strconv.Itoa(int(math.Round(float64(v) * 1000 / upem))) }
	flags := 32
	if meta.IsFixedPitch() {
		flags |= 1
	}
	if meta.ItalicAngle() != 0 || meta.Head.MacStyle&2 != 0 {
		flags |= 64
	}
	stemV := 80
	if meta.OS2 != nil && meta.OS2.WeightClass > 0 {
		stemV = 10 + 220*(int(meta.OS2.WeightClass)-50)/900
	}
	vm := meta.Metrics()

	descriptor := w.NewObject()
	w.Out("<<")
	w.Out("/Type /FontDescriptor")
	w.Out("/FontName /" + name)
	w.Outf("/FontFile2 %d 0 R", fontFile)
	w.Outf("/Flags %d", flags)
	w.Out("/FontBBox [" + strings.Join([]string{
		scale(meta.Head.XMin), scale(meta.Head.YMin), scale(meta.Head.XMax), scale(meta.Head.YMax),
	}, " ") + "]")
	w.Out("/ItalicAngle " + d.hpf(meta.ItalicAngle()))
	w.Outf("/Ascent %s", scale(int16(vm.Ascent)))
	w.Outf("/Descent %s", scale(int16(vm.Descent)))
	w.Outf("/CapHeight %s", scale(int16(vm.CapHeight)))
	w.Outf("/StemV %d", stemV)
	w.Out(">>")
	w.EndObject()

	descendant := w.NewObject()
	w.Out("<<")
	w.Out("/Type /Font")
	w.Out("/Subtype /CIDFontType2")
	w.Out("/BaseFont /" + name)
	w.Out("/CIDSystemInfo <</Registry " + w.String("Adobe") + " /Ordering " + w.String("Identity") + " /Supplement 0>>")
	w.Outf("/FontDescriptor %d 0 R", descriptor)
	w.Out("/W " + writer.CIDWidths(f.GlyphWidths()))
	w.Outf("/CIDToGIDMap %d 0 R", cidMap)
	w.Out(">>")
	w.EndObject()

	n := w.NewObject()
	w.Out("<<")
	w.Out("/Type /Font")
	w.Out("/Subtype /Type0")
	w.Out("/BaseFont /" + name)
	w.Out("/Encoding /Identity-H")
	w.Outf("/DescendantFonts [%d 0 R]", descendant)
	if toUnicode > 0 {
		w.Outf("/ToUnicode %d 0 R", toUnicode)
	}
	w.Out(">>")
	w.EndObject()
	return n, nil
}

func (d *Document) putInfo() int {
	w := d.w
	n := w.NewObject()
	w.Out("<<")
	w.Out("/Producer " + w.TextString(Producer))
	for _, e := range []struct{ key, val string }{
		{"Title", d.props.Title},
		{"Subject", d.props.Subject},
		{"Author", d.props.Author},
		{"Keywords", d.props.Keywords},
		{"Creator", d.props.Creator},
	} {
		if e.val != "" {
			w.Out("/" + e.key + " " + w.TextString(e.val))
		}
	}
	w.Out("/CreationDate " + w.String(writer.Date(d.creationDate)))
	w.Out(">>")
	w.EndObject()
	return n
}

func (d *Document) putMetadata() (int, error) {
	packet, err := d.xmpPacket()
	if err != nil {
		return 0, err
	}
	n := d.w.NewObject()
	err = d.w.PutStream(writer.Stream{
		Entries:  []string{"/Type /Metadata", "/Subtype /XML"},
		Data:     packet,
		NoFilter: true,
	})
	if err != nil {
		return 0, err
	}
	d.w.EndObject()
	return n, nil
}

func (d *Document) putCatalog(oc *OutputContext, root, metadata int) (int, error) {
	w := oc.Writer
	n := w.NewObject()
	w.Out("<<")
	w.Out("/Type /Catalog")
	w.Outf("/Pages %d 0 R", root)
	if d.zoom != "" && len(d.pages) > 0 {
		w.Outf("/OpenAction [%d 0 R %s]", oc.PageObject(1), d.zoom)
	}
	if d.layout != "" {
		w.Out("/PageLayout " + d.layout)
	}
	if d.pageMode != "" {
		w.Out("/PageMode /" + d.pageMode)
	}
	if d.lang != "" {
		w.Out("/Lang " + w.String(d.lang))
	}
	if metadata > 0 {
		w.Outf("/Metadata %d 0 R", metadata)
	}
	for _, h := range d.hooks {
		if hook, ok := h.(CatalogPutHook); ok {
			if err := hook.CatalogPut(oc); err != nil {
				return 0, err
			}
		}
	}
	for _, e := range oc.takeEntries() {
		w.Out(e)
	}
	w.Out(">>")
	w.EndObject()
	return n, nil
}
