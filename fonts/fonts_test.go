package fonts

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-text/typesetting/di"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfgen/sfnt"
)

func helvetica(t *testing.T) *Font {
	t.Helper()
	return NewStandardFont("F1", StandardFonts[0], StandardMetrics()["Helvetica"])
}

func goRegular(t *testing.T) *Font {
	t.Helper()
	f, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse Go Regular: %v", err)
	}
	return NewTrueTypeFont("F15", "", "go", StyleNormal, f)
}

func TestStandardMetricsCoverAllCoreFonts(t *testing.T) {
	table := StandardMetrics()
	if len(table) != len(StandardFonts) {
		t.Fatalf("metrics for %d fonts, %d core fonts", len(table), len(StandardFonts))
	}
	for _, sf := range StandardFonts {
		m, ok := table[sf.PostScriptName]
		if !ok {
			t.Errorf("no metrics for %s", sf.PostScriptName)
			continue
		}
		if m.Name != sf.PostScriptName {
			t.Errorf("metrics name %q for %s", m.Name, sf.PostScriptName)
		}
		if m.Width(' ') == 0 {
			t.Errorf("%s has no space width", sf.PostScriptName)
		}
	}
}

func TestMetricsWidth(t *testing.T) {
	table := StandardMetrics()
	tests := []struct {
		font string
		r    rune
		want int
	}{
		{"Helvetica", 'A', 667},
		{"Helvetica", 'i', 222},
		{"Helvetica", '~', 584},
		{"Helvetica", 'À', 667},
		{"Helvetica", 'ç', 500},
		{"Helvetica", '€', 556},
		{"Helvetica", '中', 556},
		{"Helvetica-Bold", 'A', 722},
		{"Helvetica-BoldOblique", 'b', 611},
		{"Times-Roman", 'W', 944},
		{"Times-Italic", 'A', 611},
		{"Times-BoldItalic", '@', 832},
		{"Courier", 'W', 600},
		{"Courier-Bold", 'é', 600},
	}
	for _, tc := range tests {
		if got := table[tc.font].Width(tc.r); got != tc.want {
			t.Errorf("%s width of %q = %d, want %d", tc.font, tc.r, got, tc.want)
		}
	}
}

func TestStringUnitWidthKerning(t *testing.T) {
	f := helvetica(t)
	if got, want := f.StringUnitWidth("AV"), (667.0+667-70)/1000; math.Abs(got-want) > 1e-9 {
		t.Errorf("StringUnitWidth(AV) = %v, want %v", got, want)
	}
	if got, want := f.StringUnitWidth("AB"), (667.0+667)/1000; math.Abs(got-want) > 1e-9 {
		t.Errorf("StringUnitWidth(AB) = %v, want %v", got, want)
	}
}

func TestStandardEncoding(t *testing.T) {
	f := helvetica(t)
	if got := f.Encode("é€中"); string(got) != "\xe9\x80?" {
		t.Errorf("Encode = %q", got)
	}
	if got := f.Operand(`(a)\`); got != `(\(a\)\\)` {
		t.Errorf("Operand = %q", got)
	}
	if !f.Used {
		t.Errorf("Operand should mark the font used")
	}
}

func TestIdentityEncoding(t *testing.T) {
	f := goRegular(t)
	if got := f.Operand("A"); got != "<0024>" {
		t.Fatalf("Operand(A) = %q, want <0024>", got)
	}
	if got := f.Operand("AZ"); got != "<0024003D>" {
		t.Fatalf("Operand(AZ) = %q", got)
	}
	if diff := cmp.Diff([]rune{'A', 'Z'}, f.Subset.Runes()); diff != "" {
		t.Errorf("recorded runes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int][]rune{36: {'A'}, 61: {'Z'}}, f.ToUnicode()); diff != "" {
		t.Errorf("ToUnicode (-want +got):\n%s", diff)
	}
	widths := f.GlyphWidths()
	for _, gid := range []int{0, 36, 61} {
		want := int(math.Round(float64(f.Metadata.AdvanceWidth(uint16(gid))) * 1000 / 2048))
		if widths[gid] != want {
			t.Errorf("width of glyph %d = %d, want %d", gid, widths[gid], want)
		}
	}
	if f.PostScriptName != "GoRegular" {
		t.Errorf("PostScriptName = %q", f.PostScriptName)
	}
	if f.Ascent() <= 0 || f.Descent() >= 0 {
		t.Errorf("ascent %v descent %v", f.Ascent(), f.Descent())
	}
}

func TestNormalizeStyle(t *testing.T) {
	tests := map[string]string{
		"":             StyleNormal,
		"Normal":       StyleNormal,
		"bold":         StyleBold,
		"oblique":      StyleItalic,
		"bold italic":  StyleBoldItalic,
		"ItalicBold":   StyleBoldItalic,
		"bold oblique": StyleBoldItalic,
	}
	for in, want := range tests {
		got, err := NormalizeStyle(in)
		if err != nil || got != want {
			t.Errorf("NormalizeStyle(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeStyle("heavy"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("NormalizeStyle(heavy) error = %v", err)
	}
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		in   string
		want di.Direction
	}{
		{"hello", di.DirectionLTR},
		{"123 שלום", di.DirectionRTL},
		{"مرحبا", di.DirectionRTL},
		{"...", di.DirectionLTR},
		{"abc שלום", di.DirectionLTR},
	}
	for _, tc := range tests {
		if got := DetectDirection(tc.in); got != tc.want {
			t.Errorf("DetectDirection(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		dir  Direction
		want string
	}{
		{"latin untouched", "abc", DirectionAuto, "abc"},
		{"hebrew reversed", "שלום", DirectionAuto, "םולש"},
		{"forced rtl", "שלום", DirectionRTL, "םולש"},
		{"embedded rtl run", "abc אבג", DirectionAuto, "abc גבא"},
		{"empty", "", DirectionRTL, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reorder(tc.in, tc.dir); got != tc.want {
				t.Errorf("Reorder(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitText(t *testing.T) {
	byLen := func(s string) float64 { return float64(len([]rune(s))) }
	tests := []struct {
		name string
		text string
		max  float64
		want []string
	}{
		{"fits", "short line", 20, []string{"short line"}},
		{"greedy", "the quick brown fox jumps", 10, []string{"the quick", "brown fox", "jumps"}},
		{"newlines", "a b\nc d", 3, []string{"a b", "c d"}},
		{"long word", "abcdefghij xy", 4, []string{"abcd", "efgh", "ij", "xy"}},
		{"long word tail joins", "abcdef g", 4, []string{"abcd", "ef g"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitText(tc.text, tc.max, byLen)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("SplitText (-want +got):\n%s", diff)
			}
			again := SplitText(strings.Join(got, "\n"), tc.max, byLen)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("re-splitting changed lines (-first +second):\n%s", diff)
			}
		})
	}
}

func TestSplitTextToSizeIdempotent(t *testing.T) {
	f := helvetica(t)
	text := "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Supercalifragilisticexpialidocious words wrap too.\nSecond paragraph."
	for _, width := range []float64{40, 90, 150, 400} {
		lines := f.SplitTextToSize(text, width, 12)
		for _, l := range lines {
			if w := f.StringUnitWidth(l) * 12; w > width && len([]rune(l)) > 1 {
				t.Errorf("width %v: line %q is %v wide", width, l, w)
			}
		}
		again := f.SplitTextToSize(strings.Join(lines, "\n"), width, 12)
		if diff := cmp.Diff(lines, again); diff != "" {
			t.Errorf("width %v: not idempotent (-first +second):\n%s", width, diff)
		}
	}
}

func TestSubsetTag(t *testing.T) {
	a := SubsetTag([]uint16{0, 36})
	if len(a) != 6 || strings.Trim(a, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		t.Fatalf("SubsetTag = %q", a)
	}
	if a != SubsetTag([]uint16{0, 36}) {
		t.Errorf("SubsetTag not deterministic")
	}
	if a == SubsetTag([]uint16{0, 37}) {
		t.Errorf("different glyph sets share a tag")
	}
}
