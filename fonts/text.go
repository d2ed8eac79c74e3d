package fonts

import (
	"strings"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"
)

// Direction selects how text runs are ordered before encoding.
type Direction int

const (
	DirectionAuto Direction = iota
	DirectionLTR
	DirectionRTL
)

// DetectDirection returns the direction of the first strongly typed script
// in s. Text without one is left to right.
func DetectDirection(s string) di.Direction {
	for _, r := range s {
		script := language.LookupScript(r)
		if !script.Strong() || script == language.Unknown {
			continue
		}
		switch script {
		case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
			return di.DirectionRTL
		}
		return di.DirectionLTR
	}
	return di.DirectionLTR
}

func hasRTL(s string) bool {
	for _, r := range s {
		switch language.LookupScript(r) {
		case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
			return true
		}
	}
	return false
}

// Reorder returns one line of s in visual order. Right-to-left runs are
// reversed, and with a right-to-left paragraph the run order is reversed too.
func Reorder(s string, dir Direction) string {
	if s == "" {
		return s
	}
	rtl := dir == DirectionRTL || (dir == DirectionAuto && DetectDirection(s) == di.DirectionRTL)
	if !rtl && !hasRTL(s) {
		return s
	}
	var p bidi.Paragraph
	def := bidi.LeftToRight
	if rtl {
		def = bidi.RightToLeft
	}
	if _, err := p.SetString(s, bidi.DefaultDirection(def)); err != nil {
		return s
	}
	order, err := p.Order()
	if err != nil {
		return s
	}
	runs := make([]string, order.NumRuns())
	for i := range runs {
		run := order.Run(i)
		if run.Direction() == bidi.RightToLeft {
			runs[i] = bidi.ReverseString(run.String())
		} else {
			runs[i] = run.String()
		}
	}
	if rtl {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	return strings.Join(runs, "")
}

// SplitText breaks text into lines no wider than maxWidth. Paragraphs
// split on newlines; words are packed greedily and a word wider than a
// whole line is broken between characters. measure returns the width of
// a string in the unit of maxWidth.
//
// Splitting the returned lines again yields the same lines.
func SplitText(text string, maxWidth float64, measure func(string) float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, splitParagraph(para, maxWidth, measure)...)
	}
	return lines
}

func splitParagraph(para string, maxWidth float64, measure func(string) float64) []string {
	if measure(para) <= maxWidth {
		return []string{para}
	}
	var lines []string
	line, open := "", false
	flush := func() {
		if open {
			lines = append(lines, line)
		}
		line, open = "", false
	}
	for _, word := range strings.Split(para, " ") {
		if open {
			if candidate := line + " " + word; measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			flush()
		}
		if measure(word) <= maxWidth {
			line, open = word, true
			continue
		}
		chunks := breakWord(word, maxWidth, measure)
		lines = append(lines, chunks[:len(chunks)-1]...)
		line, open = chunks[len(chunks)-1], true
	}
	flush()
	return lines
}

// breakWord splits word into pieces that each fit maxWidth. A piece holds
// at least one character.
func breakWord(word string, maxWidth float64, measure func(string) float64) []string {
	var chunks []string
	var cur []rune
	for _, r := range word {
		if len(cur) > 0 && measure(string(append(cur, r))) > maxWidth {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	return append(chunks, string(cur))
}

// SplitTextToSize wraps text for this font at fontSize. maxWidth is in the
// same unit as fontSize.
func (f *Font) SplitTextToSize(text string, maxWidth, fontSize float64) []string {
	return SplitText(text, maxWidth, func(s string) float64 {
		return f.StringUnitWidth(s) * fontSize
	})
}
