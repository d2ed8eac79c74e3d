package writer

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// F2 formats v with two decimals, the precision used for page geometry.
func F2(v float64) string { return fixed(v, 2) }

// F3 formats v with three decimals.
func F3(v float64) string { return fixed(v, 3) }

// HPF formats v with up to prec decimals, dropping trailing zeros.
func HPF(v float64, prec int) string {
	s := fixed(v, prec)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

func fixed(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	// avoid negative zero
	if strings.TrimLeft(s, "-0.") == "" {
		return strings.TrimPrefix(s, "-")
	}
	return s
}

// ValidNumber reports whether v can be written as a PDF number.
func ValidNumber(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// EscapeString escapes backslashes, parentheses and line breaks for a
// literal string body.
func EscapeString(s string) string {
	if !strings.ContainsAny(s, "\\()\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// HexString returns b as an uppercase hex string operand.
func HexString(b []byte) string {
	return "<" + strings.ToUpper(hex.EncodeToString(b)) + ">"
}

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// TextString encodes s for a PDF text string: Latin-1 bytes when every rune
// fits, otherwise UTF-16BE with a byte order mark.
func TextString(s string) string {
	if latin, err := charmap.ISO8859_1.NewEncoder().String(s); err == nil {
		return latin
	}
	enc, err := utf16BOM.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return enc
}

// Date formats t as a PDF date string, D:YYYYMMDDHHmmSS+HH'mm'.
func Date(t time.Time) string {
	_, off := t.Zone()
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("D:%s%c%02d'%02d'", t.Format("20060102150405"), sign, off/3600, off%3600/60)
}

// FileID derives a 16-byte document identifier from seed, hex encoded.
// With no seed a random identifier is returned.
func FileID(seed ...string) string {
	if len(seed) == 0 {
		id := make([]byte, 16)
		if _, err := rand.Read(id); err == nil {
			return strings.ToUpper(hex.EncodeToString(id))
		}
		seed = []string{time.Now().String()}
	}
	h := sha256.New()
	for _, s := range seed {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)[:16]))
}

// ToUnicodeCMap builds a ToUnicode CMap stream body mapping 2-byte codes to
// their Unicode text.
func ToUnicodeCMap(name string, m map[int][]rune) []byte {
	if len(m) == 0 {
		return nil
	}
	keys := maps.Keys(m)
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.WriteString("/CIDInit /ProcSet findresource begin\n")
	buf.WriteString("12 dict begin\n")
	buf.WriteString("begincmap\n")
	buf.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	fmt.Fprintf(&buf, "/CMapName /%s def\n", strings.ReplaceAll(name, " ", "")+"-UTF16")
	buf.WriteString("/CMapType 2 def\n")
	buf.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for i := 0; i < len(keys); i += 100 {
		chunk := keys[i:min(i+100, len(keys))]
		fmt.Fprintf(&buf, "%d beginbfchar\n", len(chunk))
		for _, cid := range chunk {
			fmt.Fprintf(&buf, "<%04X> <%s>\n", cid, utf16Hex(m[cid]))
		}
		buf.WriteString("endbfchar\n")
	}
	buf.WriteString("endcmap\n")
	buf.WriteString("CMapName currentdict /CMap defineresource pop\n")
	buf.WriteString("end\nend\n")
	return buf.Bytes()
}

func utf16Hex(runes []rune) string {
	var b strings.Builder
	for _, u := range utf16.Encode(runes) {
		fmt.Fprintf(&b, "%04X", u)
	}
	return b.String()
}

// CIDWidths renders a CIDFont /W array. Consecutive codes sharing a width
// collapse into "first last width" ranges.
func CIDWidths(widths map[int]int) string {
	if len(widths) == 0 {
		return "[]"
	}
	codes := maps.Keys(widths)
	slices.Sort(codes)

	var parts []string
	emit := func(first, last, w int) {
		parts = append(parts, fmt.Sprintf("%d %d %d", first, last, w))
	}
	start, prev := codes[0], codes[0]
	current := widths[start]
	for _, code := range codes[1:] {
		w := widths[code]
		if w == current && code == prev+1 {
			prev = code
			continue
		}
		emit(start, prev, current)
		start, prev, current = code, code, w
	}
	emit(start, prev, current)
	return "[" + strings.Join(parts, " ") + "]"
}
