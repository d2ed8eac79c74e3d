package builder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"
	xsfnt "golang.org/x/image/font/sfnt"

	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/security"
)

const testFileID = "00112233445566778899AABBCCDDEEFF"

func newTestDoc(t *testing.T, opts ...Option) *Document {
	t.Helper()
	base := []Option{
		WithUnit("pt"),
		WithCreationDate(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		WithFileID(testFileID),
	}
	d, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func output(t *testing.T, d *Document) []byte {
	t.Helper()
	out, err := d.Output()
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	return out
}

// indexOfSequence returns the position of want as consecutive lines in
// content, or -1.
func indexOfSequence(content, want []string) int {
	for i := 0; i+len(want) <= len(content); i++ {
		if cmp.Equal(content[i:i+len(want)], want) {
			return i
		}
	}
	return -1
}

func checkXRef(t *testing.T, out []byte) {
	t.Helper()
	m := regexp.MustCompile(`startxref\n(\d+)\n%%EOF$`).FindSubmatch(out)
	if m == nil {
		t.Fatalf("no startxref trailer at end of output")
	}
	at, _ := strconv.Atoi(string(m[1]))
	if !bytes.HasPrefix(out[at:], []byte("xref\n0 ")) {
		t.Fatalf("startxref %d does not point at the xref table", at)
	}
	lines := strings.Split(string(out[at:]), "\n")
	var size int
	if _, err := fmt.Sscanf(lines[1], "0 %d", &size); err != nil {
		t.Fatalf("xref subsection header %q: %v", lines[1], err)
	}
	if lines[2] != "0000000000 65535 f " {
		t.Fatalf("free entry = %q", lines[2])
	}
	for n := 1; n < size; n++ {
		entry := lines[2+n]
		if len(entry) != 19 || !strings.HasSuffix(entry, " 00000 n ") {
			t.Fatalf("xref entry %d = %q", n, entry)
		}
		off, _ := strconv.Atoi(entry[:10])
		if want := fmt.Sprintf("%d 0 obj", n); !bytes.HasPrefix(out[off:], []byte(want)) {
			t.Fatalf("object %d offset %d points at %q", n, off, out[off:min(off+20, len(out))])
		}
	}
	if !bytes.Contains(out, []byte(fmt.Sprintf("/Size %d", size))) {
		t.Errorf("trailer /Size does not match xref size %d", size)
	}
}

func TestDocument_DefaultA4InPoints(t *testing.T) {
	d := newTestDoc(t, WithFormat("a4"))
	if got := d.NumberOfPages(); got != 1 {
		t.Fatalf("NumberOfPages = %d, want 1", got)
	}
	out := output(t, d)
	if !bytes.HasPrefix(out, []byte("%PDF-1.3\n")) {
		t.Fatalf("header = %q", out[:10])
	}
	if !bytes.Contains(out, []byte("/MediaBox [0.00 0.00 595.28 841.89]")) {
		t.Fatalf("missing A4 media box")
	}
	if !bytes.HasSuffix(out, []byte("%%EOF")) {
		t.Fatalf("output does not end with %%%%EOF")
	}
	for _, want := range []string{"/Type /Catalog", "/Type /Pages", "/Count 1", "/Producer (pdfgen)", "/CreationDate (D:20240501120000+00'00')", "/ID [ <" + testFileID + "> <" + testFileID + "> ]"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	checkXRef(t, out)
}

func TestDocument_UnitsAndOrientation(t *testing.T) {
	d := newTestDoc(t, WithUnit("mm"), WithFormat("letter"), WithOrientation("landscape"))
	w, h := d.PageSize()
	if math.Abs(w-792/d.ScaleFactor()) > 1e-9 || math.Abs(h-612/d.ScaleFactor()) > 1e-9 {
		t.Fatalf("landscape letter = %vx%v mm", w, h)
	}
	if _, err := d.AddPage(PageSize(100, 50), PageOrientation("p")); err != nil {
		t.Fatal(err)
	}
	info, err := d.PageInfo(2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(info.Width-50) > 1e-9 || math.Abs(info.Height-100) > 1e-9 {
		t.Fatalf("custom portrait page = %vx%v", info.Width, info.Height)
	}
}

func TestDocument_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"unit", WithUnit("furlong"), ErrInvalidUnit},
		{"format", WithFormat("a11"), ErrInvalidFormat},
		{"size", WithPageSize(0, 10), ErrInvalidFormat},
		{"orientation", WithOrientation("sideways"), ErrInvalidOrientation},
		{"file id", WithFileID("xyz"), ErrInvalidArgument},
		{"hook", WithHooks(42), ErrInvalidArgument},
		{"precision", WithPrecision(-1), ErrInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opt); !errors.Is(err, tc.want) {
				t.Fatalf("New error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDocument_PageOperations(t *testing.T) {
	d := newTestDoc(t)
	p1 := d.pages[0]
	p2, err := d.AddPage()
	if err != nil {
		t.Fatal(err)
	}
	p3, err := d.AddPage()
	if err != nil {
		t.Fatal(err)
	}
	if d.NumberOfPages() != 3 || d.CurrentPage() != 3 {
		t.Fatalf("pages=%d current=%d", d.NumberOfPages(), d.CurrentPage())
	}

	if err := d.MovePage(3, 1); err != nil {
		t.Fatalf("MovePage: %v", err)
	}
	if !slices.Equal([]*Page{p3, p1, p2}, d.pages) {
		t.Fatalf("wrong order after MovePage(3, 1)")
	}
	if d.CurrentPage() != 1 {
		t.Errorf("current page after move = %d", d.CurrentPage())
	}
	if err := d.MovePage(1, 3); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal([]*Page{p1, p2, p3}, d.pages) {
		t.Fatalf("wrong order after MovePage(1, 3)")
	}

	if err := d.DeletePage(2); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if d.NumberOfPages() != 2 {
		t.Fatalf("pages after delete = %d", d.NumberOfPages())
	}
	info, _ := d.PageInfo(2)
	if info.Page != p3 {
		t.Errorf("page 2 after delete is not the former page 3")
	}

	p0, err := d.InsertPage(1)
	if err != nil {
		t.Fatal(err)
	}
	if info, _ := d.PageInfo(1); info.Page != p0 || d.NumberOfPages() != 3 {
		t.Errorf("InsertPage(1) did not put the new page first")
	}

	for _, n := range []int{0, 4} {
		if err := d.SetPage(n); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("SetPage(%d) error = %v", n, err)
		}
		if err := d.DeletePage(n); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("DeletePage(%d) error = %v", n, err)
		}
	}

}

func TestDocument_PageOrderInOutput(t *testing.T) {
	d := newTestDoc(t)
	d.AddPage()
	if err := d.Text("second", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := d.MovePage(2, 1); err != nil {
		t.Fatal(err)
	}
	out := output(t, d)
	first := bytes.Index(out, []byte("(second) Tj"))
	kids := regexp.MustCompile(`/Kids \[(\d+) 0 R`).FindSubmatch(out)
	if kids == nil {
		t.Fatal("no /Kids")
	}
	page := bytes.Index(out, []byte(string(kids[1])+" 0 obj"))
	if page < 0 || first < page {
		t.Fatalf("moved page is not written first")
	}
	checkXRef(t, out)
}

func TestDocument_FillColorBeforeRect(t *testing.T) {
	d := newTestDoc(t)
	if err := d.SetFillColor(255, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Rect(10, 10, 50, 50, "F"); err != nil {
		t.Fatal(err)
	}
	want := []string{"1.00 0.00 0.00 rg", "10.00 831.89 50.00 -50.00 re", "f"}
	if indexOfSequence(d.pages[0].Content(), want) < 0 {
		t.Fatalf("content %q lacks %q", d.pages[0].Content(), want)
	}
	out := output(t, d)
	if !bytes.Contains(out, []byte(strings.Join(want, "\n"))) {
		t.Errorf("content stream lacks the fill sequence")
	}
}

func TestDocument_Colors(t *testing.T) {
	d := newTestDoc(t)
	tests := []struct {
		name string
		set  func() error
		want string
	}{
		{"gray stroke", func() error { return d.SetDrawColor(51) }, "0.20 G"},
		{"rgb stroke", func() error { return d.SetDrawColor(0, 0, 255) }, "0.00 0.00 1.00 RG"},
		{"cmyk fill", func() error { return d.SetFillColor(0, 0.5, 1, 0) }, "0.00 0.50 1.00 0.00 k"},
		{"hex fill", func() error { return d.SetFillColorString("#ff0000") }, "1.00 0.00 0.00 rg"},
		{"named stroke", func() error { return d.SetDrawColorString("white") }, "1.00 1.00 1.00 RG"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.set(); err != nil {
				t.Fatal(err)
			}
			c := d.pages[0].Content()
			if got := c[len(c)-1]; got != tc.want {
				t.Fatalf("last operator = %q, want %q", got, tc.want)
			}
		})
	}
	before := len(d.pages[0].content)
	for _, bad := range [][]float64{{}, {1, 2}, {300}, {0, 0, 2, 0}, {math.NaN()}} {
		if err := d.SetFillColor(bad...); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetFillColor(%v) error = %v", bad, err)
		}
	}
	if len(d.pages[0].content) != before {
		t.Errorf("invalid colors appended operators")
	}
	if err := d.SetTextColor(255, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Text("x", 0, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if indexOfSequence(d.pages[0].Content(), []string{"18.4 TL", "1.00 0.00 0.00 rg"}) < 0 {
		t.Errorf("text color not written in the text object")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
	}{
		{"#f00", []float64{255, 0, 0}},
		{"#00FF80", []float64{0, 255, 128}},
		{"rgb(1, 2, 3)", []float64{1, 2, 3}},
		{"CornflowerBlue", []float64{100, 149, 237}},
		{"128", []float64{128}},
	}
	for _, tc := range tests {
		got, err := ParseColor(tc.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseColor(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
	for _, bad := range []string{"", "#12", "#gggggg", "rgb(1,2)", "rgb(1,2,300)", "nocolor"} {
		if _, err := ParseColor(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseColor(%q) error = %v", bad, err)
		}
	}
}

func TestDocument_DrawingPrimitives(t *testing.T) {
	d := newTestDoc(t)
	if err := d.Line(0, 0, 10, 10, ""); err != nil {
		t.Fatal(err)
	}
	if indexOfSequence(d.pages[0].Content(), []string{"0.00 841.89 m", "10.00 831.89 l", "S"}) < 0 {
		t.Fatalf("line operators missing: %q", d.pages[0].Content())
	}
	if err := d.Triangle(0, 0, 10, 0, 0, 10, "FD"); err != nil {
		t.Fatal(err)
	}
	if indexOfSequence(d.pages[0].Content(), []string{"0.00 841.89 m", "10.00 841.89 l", "0.00 831.89 l", "0.00 841.89 l", "h", "B"}) < 0 {
		t.Fatalf("triangle operators missing")
	}
	if err := d.Circle(50, 50, 10, "F"); err != nil {
		t.Fatal(err)
	}
	c := d.pages[0].Content()
	if c[len(c)-1] != "f" || c[len(c)-6] != "60.00 791.89 m" {
		t.Fatalf("circle operators: %q", c[len(c)-6:])
	}
	if err := d.RoundedRect(10, 10, 100, 50, 5, 5, "S"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLineDash([]float64{3, 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLineCap("round"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLineJoin("bevel"); err != nil {
		t.Fatal(err)
	}
	c = d.pages[0].Content()
	if diff := cmp.Diff([]string{"[3 1] 0 d", "1 J", "2 j"}, c[len(c)-3:]); diff != "" {
		t.Errorf("line style operators (-want +got):\n%s", diff)
	}
	if _, err := d.AddPage(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"0.2 w", "0 G", "1 J", "2 j"}, d.pages[1].Content()); diff != "" {
		t.Errorf("new page state (-want +got):\n%s", diff)
	}
}

func TestDocument_DrawingValidation(t *testing.T) {
	d := newTestDoc(t)
	before := len(d.pages[0].content)
	calls := map[string]error{
		"nan rect":      d.Rect(math.NaN(), 0, 1, 1, "F"),
		"inf line":      d.Line(0, 0, math.Inf(1), 0, "S"),
		"bad style":     d.Rect(0, 0, 1, 1, "X"),
		"bad segment":   d.Lines([][]float64{{1, 2, 3}}, 0, 0, [2]float64{1, 1}, "S", false),
		"nan ellipse":   d.Ellipse(0, 0, math.NaN(), 1, ""),
		"bad cap":       d.SetLineCap("pointy"),
		"negative dash": d.SetLineDash([]float64{-1}, 0),
		"bad align":     d.Text("x", 0, 0, TextOptions{Align: "middle"}),
		"bad mode":      d.Text("x", 0, 0, TextOptions{RenderingMode: "glow"}),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: error = %v, want ErrInvalidArgument", name, err)
		}
	}
	if got := len(d.pages[0].content); got != before {
		t.Errorf("failed calls appended %d operators", got-before)
	}
}

func TestDocument_TextOperators(t *testing.T) {
	d := newTestDoc(t)
	if err := d.Text("Hello\nWorld", 10, 20, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"BT",
		"/F1 16 Tf",
		"18.4 TL",
		"0 g",
		"10.00 821.89 Td",
		"(Hello) Tj",
		"0.00 -18.40 Td",
		"(World) Tj",
		"ET",
	}
	if indexOfSequence(d.pages[0].Content(), want) < 0 {
		t.Fatalf("text object %q lacks %q", d.pages[0].Content(), want)
	}
}

func TestDocument_TextAlignment(t *testing.T) {
	d := newTestDoc(t)
	if err := d.Text("Hello", 100, 20, TextOptions{Align: AlignRight}); err != nil {
		t.Fatal(err)
	}
	x := 100 - d.TextWidth("Hello")
	c := d.pages[0].Content()
	if want := fmt.Sprintf("%.2f 821.89 Td", x); indexOfSequence(c, []string{want}) < 0 {
		t.Fatalf("right aligned text lacks %q in %q", want, c)
	}

	if err := d.Text("ab", 100, 20, TextOptions{Angle: 90, CharSpace: 1, RenderingMode: "stroke"}); err != nil {
		t.Fatal(err)
	}
	c = d.pages[0].Content()
	for _, want := range []string{"1 Tc", "1 Tr", "0.00 1.00 -1.00 0.00 100.00 821.89 Tm", "0 Tr", "0 Tc"} {
		if indexOfSequence(c, []string{want}) < 0 {
			t.Errorf("rotated text lacks %q", want)
		}
	}

	// right aligned rotated text ends at its anchor along the baseline
	if err := d.Text("Hello", 100, 20, TextOptions{Angle: 90, Align: AlignRight}); err != nil {
		t.Fatal(err)
	}
	w := d.TextWidth("Hello")
	want := fmt.Sprintf("0.00 1.00 -1.00 0.00 100.00 %.2f Tm", d.pageHeight()-20-w)
	if c := d.pages[0].Content(); indexOfSequence(c, []string{want}) < 0 {
		t.Errorf("rotated right aligned text lacks %q in %q", want, c)
	}
}

func TestDocument_JustifiedText(t *testing.T) {
	d := newTestDoc(t)
	text := "the quick brown fox jumps over the lazy dog again and again"
	if err := d.Text(text, 10, 20, TextOptions{Align: AlignJustify, MaxWidth: 120}); err != nil {
		t.Fatal(err)
	}
	lines := d.SplitTextToSize(text, 120)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %q", lines)
	}
	c := d.pages[0].Content()
	tw := 0
	for _, op := range c {
		if strings.HasSuffix(op, " Tw") && op != "0 Tw" {
			tw++
		}
	}
	if tw != len(lines)-1 {
		t.Errorf("%d word spacing operators for %d lines", tw, len(lines))
	}
	if indexOfSequence(c, []string{"0 Tw", fmt.Sprintf("(%s) Tj", lines[len(lines)-1])}) < 0 {
		t.Errorf("last line is not reset to normal spacing")
	}
}

func TestDocument_SplitTextToSizeIdempotent(t *testing.T) {
	d := newTestDoc(t, WithUnit("mm"))
	text := "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore."
	lines := d.SplitTextToSize(text, 50)
	again := d.SplitTextToSize(strings.Join(lines, "\n"), 50)
	if diff := cmp.Diff(lines, again); diff != "" {
		t.Fatalf("re-splitting changed lines (-first +second):\n%s", diff)
	}
	for _, l := range lines {
		if d.TextWidth(l) > 50 {
			t.Errorf("line %q is %v mm wide", l, d.TextWidth(l))
		}
	}
	if got, want := d.StringUnitWidth("A"), 0.667; math.Abs(got-want) > 1e-9 {
		t.Errorf("StringUnitWidth(A) = %v", got)
	}
}

func TestDocument_SetFont(t *testing.T) {
	d := newTestDoc(t)
	if err := d.SetFont("times", "bold"); err != nil {
		t.Fatal(err)
	}
	if got := d.Font().PostScriptName; got != "Times-Bold" {
		t.Fatalf("font = %s", got)
	}
	if err := d.SetFont("no-such-family", "italic"); err != nil {
		t.Fatalf("unknown family should fall back: %v", err)
	}
	if got := d.Font().PostScriptName; got != "Helvetica-Oblique" {
		t.Fatalf("fallback font = %s", got)
	}
	if err := d.SetFont("zapfdingbats", "bold"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("missing style error = %v", err)
	}
	if err := d.SetFont("courier", "heavy"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("bad style error = %v", err)
	}
	if got := len(d.FontList()["courier"]); got != 4 {
		t.Errorf("courier styles = %d", got)
	}
}

func TestDocument_EmbeddedFontSubset(t *testing.T) {
	d := newTestDoc(t)
	f, err := d.AddFont("", "Go", "normal", goregular.TTF)
	if err != nil {
		t.Fatalf("AddFont: %v", err)
	}
	if f.Key != "F15" || !f.IsIdentity() {
		t.Fatalf("font entry %+v", f)
	}
	if err := d.SetFont("go", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.Text("A", 10, 20, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if indexOfSequence(d.pages[0].Content(), []string{"/F15 16 Tf"}) < 0 ||
		indexOfSequence(d.pages[0].Content(), []string{"<0024> Tj"}) < 0 {
		t.Fatalf("content %q", d.pages[0].Content())
	}
	out := output(t, d)
	for _, re := range []string{
		`/BaseFont /[A-Z]{6}\+\S+`,
		`/Subtype /CIDFontType2`,
		`/Encoding /Identity-H`,
		`/CIDToGIDMap \d+ 0 R`,
		`/ToUnicode \d+ 0 R`,
		`/W \[.*\b36 36 \d+\]`,
	} {
		if !regexp.MustCompile(re).Match(out) {
			t.Errorf("output does not match %s", re)
		}
	}

	sub := fontFile(t, out)
	parsed, err := xsfnt.Parse(sub)
	if err != nil {
		t.Fatalf("subset does not parse: %v", err)
	}
	if n := parsed.NumGlyphs(); n != 2 {
		t.Fatalf("subset has %d glyphs, want .notdef and A", n)
	}
	var buf xsfnt.Buffer
	if gid, err := parsed.GlyphIndex(&buf, 'A'); err != nil || gid == 0 {
		t.Errorf("A maps to %d, %v", gid, err)
	}
	if gid, _ := parsed.GlyphIndex(&buf, 'Z'); gid != 0 {
		t.Errorf("Z present in subset as glyph %d", gid)
	}
	checkXRef(t, out)
}

// fontFile extracts the uncompressed FontFile2 stream.
func fontFile(t *testing.T, out []byte) []byte {
	t.Helper()
	m := regexp.MustCompile(`/Length1 (\d+)`).FindSubmatchIndex(out)
	if m == nil {
		t.Fatal("no /Length1")
	}
	n, _ := strconv.Atoi(string(out[m[2]:m[3]]))
	start := bytes.Index(out[m[1]:], []byte("stream\n"))
	if start < 0 {
		t.Fatal("no font stream")
	}
	start += m[1] + len("stream\n")
	return out[start : start+n]
}

func TestDocument_PutOnlyUsedFonts(t *testing.T) {
	d := newTestDoc(t, WithPutOnlyUsedFonts(true))
	if err := d.Text("x", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	out := output(t, d)
	if got := bytes.Count(out, []byte("/Subtype /Type1")); got != 1 {
		t.Fatalf("%d Type1 fonts written, want 1", got)
	}
	all := output(t, newTestDoc(t))
	if got := bytes.Count(all, []byte("/Subtype /Type1")); got != 14 {
		t.Fatalf("%d Type1 fonts written, want 14", got)
	}
}

func TestDocument_OutputIsRepeatable(t *testing.T) {
	d := newTestDoc(t, WithCompression(true))
	if err := d.Text("repeat", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	first := output(t, d)
	second := output(t, d)
	if !bytes.Equal(first, second) {
		t.Fatalf("two outputs differ")
	}
	if !bytes.Contains(first, []byte("/Filter /FlateDecode")) {
		t.Errorf("compressed output lacks FlateDecode")
	}
	checkXRef(t, first)
}

func TestDocument_DisplayModeAndLanguage(t *testing.T) {
	d := newTestDoc(t)
	if err := d.SetDisplayMode("150%", "two", "UseOutlines"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLanguage("en-US"); err != nil {
		t.Fatal(err)
	}
	d.SetProperties(Properties{Title: "Report", Author: "Zoë"})
	out := output(t, d)
	for _, want := range []string{
		"/OpenAction [3 0 R /XYZ null null 1.50]",
		"/PageLayout /TwoColumnLeft",
		"/PageMode /UseOutlines",
		"/Lang (en-US)",
		"/Title (Report)",
		"/Author (Zo\xeb)",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, bad := range [][3]string{{"huge", "", ""}, {"", "spiral", ""}, {"", "", "UseMagic"}, {"-5%", "", ""}} {
		if err := d.SetDisplayMode(bad[0], bad[1], bad[2]); !errors.Is(err, ErrInvalidDisplayMode) {
			t.Errorf("SetDisplayMode%q error = %v", bad, err)
		}
	}
	if err := d.SetLanguage("not a tag!"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetLanguage error = %v", err)
	}
}

type recordingHook struct {
	fonts  int
	pages  int
	builds int
}

func (h *recordingHook) FontRegistered(*Document, *fonts.Font) { h.fonts++ }
func (h *recordingHook) PageAdded(*Document, *Page)            { h.pages++ }
func (h *recordingHook) BuildDocument(*Document) error         { h.builds++; return nil }

func (h *recordingHook) PagePut(ctx *PageContext) error {
	ctx.AddEntry(fmt.Sprintf("/PZ %d", ctx.PageNumber))
	return nil
}

func (h *recordingHook) CatalogPut(ctx *OutputContext) error {
	ctx.AddEntry("/NeedsRendering false")
	return nil
}

func TestDocument_Hooks(t *testing.T) {
	h := &recordingHook{}
	d := newTestDoc(t, WithHooks(h))
	if h.fonts != 14 || h.pages != 1 {
		t.Fatalf("after New: fonts=%d pages=%d", h.fonts, h.pages)
	}
	d.AddPage()
	out := output(t, d)
	if h.builds != 1 || h.pages != 2 {
		t.Fatalf("builds=%d pages=%d", h.builds, h.pages)
	}
	for _, want := range []string{"/PZ 1\n/Contents", "/PZ 2\n/Contents", "/NeedsRendering false"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if err := d.AddHook("not a hook"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AddHook error = %v", err)
	}
}

func TestDocument_Annotations(t *testing.T) {
	d := newTestDoc(t)
	d.AddPage()
	if err := d.SetPage(1); err != nil {
		t.Fatal(err)
	}
	if err := d.Link(10, 10, 100, 20, LinkOptions{URL: "https://example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Link(10, 40, 100, 20, LinkOptions{PageNumber: 2, Top: 100}); err != nil {
		t.Fatal(err)
	}
	if err := d.TextAnnotation(200, 200, "Note", "Check this", true); err != nil {
		t.Fatal(err)
	}
	if err := d.Link(0, 0, 1, 1, LinkOptions{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("link without target: %v", err)
	}
	out := output(t, d)
	page2 := regexp.MustCompile(`/Kids \[\d+ 0 R (\d+) 0 R\]`).FindSubmatch(out)
	if page2 == nil {
		t.Fatal("no /Kids")
	}
	for _, want := range []string{
		"/Rect [10.00 811.89 110.00 831.89]",
		"/A <</S /URI /URI (https://example.com)>>",
		"/Dest [" + string(page2[1]) + " 0 R /XYZ 0 741.89 null]",
		"/Subtype /Text",
		"/Contents (Check this)",
		"/Subtype /Popup",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if !regexp.MustCompile(`/Annots \[\d+ 0 R \d+ 0 R \d+ 0 R \d+ 0 R\]`).Match(out) {
		t.Errorf("page 1 should reference four annotations")
	}
	checkXRef(t, out)

	if err := d.Link(0, 0, 1, 1, LinkOptions{PageNumber: 9}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Output(); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("link to a missing page: %v", err)
	}
}

func TestDocument_JavaScript(t *testing.T) {
	d := newTestDoc(t)
	if err := d.AddJavaScript("function ("); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("malformed script error = %v", err)
	}
	if err := d.AddJavaScript(`app.alert("hello");`); err != nil {
		t.Fatal(err)
	}
	out := output(t, d)
	for _, want := range []string{"/Names [(EmbeddedJS) ", "/S /JavaScript", `/JS (app.alert\("hello"\);)`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if !regexp.MustCompile(`/Names <</JavaScript \d+ 0 R>>`).Match(out) {
		t.Errorf("catalog does not name the script")
	}
	checkXRef(t, out)
}

func TestDocument_TotalPagesAlias(t *testing.T) {
	d := newTestDoc(t)
	if err := d.SetTotalPagesAlias("{total}"); err != nil {
		t.Fatal(err)
	}
	if err := d.Text("Page 1 of {total}", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	d.AddPage()
	d.AddPage()
	out := output(t, d)
	if !bytes.Contains(out, []byte("(Page 1 of 3) Tj")) {
		t.Fatalf("alias not replaced")
	}
	if !strings.Contains(strings.Join(d.pages[0].Content(), "\n"), "{total}") {
		t.Errorf("replacement leaked into the page buffer")
	}
}

func TestDocument_TotalPagesAliasEmbeddedFont(t *testing.T) {
	d := newTestDoc(t)
	f, err := d.AddFont("", "Go", "normal", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetFont("Go", "normal"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetTotalPagesAlias("{total}"); err != nil {
		t.Fatal(err)
	}
	if err := d.Text("Page 1 of {total}", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	d.AddPage()
	if _, ok := f.Subset.GlyphFor('2'); !ok {
		t.Errorf("digit glyphs not recorded when the alias was drawn")
	}

	used := f.Subset.Used()
	first := output(t, d)
	if diff := cmp.Diff(used, f.Subset.Used()); diff != "" {
		t.Errorf("Output changed the subset (-before +after):\n%s", diff)
	}
	if want := fmt.Sprintf("<%X> Tj", f.Lookup("Page 1 of 2")); !bytes.Contains(first, []byte(want)) {
		t.Errorf("alias not replaced with %s", want)
	}
	if second := output(t, d); !bytes.Equal(first, second) {
		t.Errorf("second Output differs from the first")
	}
}

func TestReplaceGlyphRuns(t *testing.T) {
	tests := []struct {
		line, from, to, want string
	}{
		{"<AB12003400AB> Tj", "0034", "0035", "<AB12003500AB> Tj"},
		// 1200 spans two glyphs
		{"<00120034> Tj", "1200", "9999", "<00120034> Tj"},
		{"[<00110022> -250 <00220033>] TJ", "00220033", "0044", "[<00110022> -250 <0044>] TJ"},
		{"(plain) Tj", "0034", "0035", "(plain) Tj"},
	}
	for _, tt := range tests {
		if got := replaceGlyphRuns(tt.line, tt.from, tt.to); got != tt.want {
			t.Errorf("replaceGlyphRuns(%q, %q, %q) = %q, want %q", tt.line, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDocument_Images(t *testing.T) {
	d := newTestDoc(t)

	rgba := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	rgba.Set(0, 0, color.NRGBA{R: 255, A: 128})
	rgba.Set(1, 1, color.NRGBA{G: 255, A: 255})
	var pngData bytes.Buffer
	if err := png.Encode(&pngData, rgba); err != nil {
		t.Fatal(err)
	}
	if err := d.AddImage(pngData.Bytes(), 10, 10, 20, 0); err != nil {
		t.Fatalf("AddImage png: %v", err)
	}
	if err := d.AddImage(pngData.Bytes(), 40, 10, 0, 0); err != nil {
		t.Fatal(err)
	}

	var jpegData bytes.Buffer
	if err := jpeg.Encode(&jpegData, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	if err := d.AddImage(jpegData.Bytes(), 10, 50, 8, 8); err != nil {
		t.Fatalf("AddImage jpeg: %v", err)
	}
	if err := d.AddImage([]byte("not an image"), 0, 0, 1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad image error = %v", err)
	}
	if err := d.DrawImage(nil, 0, 0, 1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil image error = %v", err)
	}
	if err := d.DrawImage(image.NewRGBA(image.Rectangle{}), 0, 0, 0, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty image error = %v", err)
	}
	if err := d.placeImage(&imageEntry{key: "I9"}, 0, 0, 10, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero pixel image error = %v", err)
	}

	c := d.pages[0].Content()
	if indexOfSequence(c, []string{"q", "20.00 0 0 20.00 10.00 811.89 cm", "/I1 Do", "Q"}) < 0 {
		t.Fatalf("image placement missing in %q", c)
	}
	if indexOfSequence(c, []string{"/I2 Do"}) < 0 || len(d.images) != 2 {
		t.Fatalf("duplicate image data stored twice")
	}

	out := output(t, d)
	for _, want := range []string{"/Subtype /Image", "/SMask ", "/Filter /DCTDecode", "/I1 ", "/I2 ", "/XObject <<"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	checkXRef(t, out)
}

func TestDocument_Encryption(t *testing.T) {
	d := newTestDoc(t, WithEncryption(security.Config{
		UserPassword:  "user",
		OwnerPassword: "owner",
		Permissions:   security.Permissions{Print: true},
		Algorithm:     security.RC4,
	}))
	if err := d.Text("secret", 10, 10, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	out := output(t, d)
	if !regexp.MustCompile(`/Encrypt \d+ 0 R`).Match(out) {
		t.Fatalf("trailer lacks /Encrypt")
	}
	for _, want := range []string{"/Filter /Standard", "/P -60"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, leak := range []string{"(pdfgen)", "(secret) Tj"} {
		if bytes.Contains(out, []byte(leak)) {
			t.Errorf("plaintext %q in encrypted output", leak)
		}
	}
	checkXRef(t, out)

	aes := newTestDoc(t, WithEncryption(security.Config{OwnerPassword: "owner", Algorithm: security.AES256}))
	if out := output(t, aes); !bytes.HasPrefix(out, []byte("%PDF-2.0")) {
		t.Errorf("AES-256 output header %q", out[:8])
	}
}

func TestDocument_XMPMetadata(t *testing.T) {
	d := newTestDoc(t, WithXMPMetadata(true))
	d.SetProperties(Properties{Title: "Quarterly Figures", Keywords: "finance", Creator: "Ledger Export"})
	out := output(t, d)
	for _, want := range []string{"/Type /Metadata", "/Subtype /XML", "Quarterly Figures", "finance", "pdfgen", "CreatorTool>Ledger Export<"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if !regexp.MustCompile(`/Metadata \d+ 0 R`).Match(out) {
		t.Errorf("catalog lacks /Metadata")
	}
	checkXRef(t, out)
}
