package layout

import (
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

// RenderMarkdown renders a markdown string using goldmark.
func (e *Engine) RenderMarkdown(source string) error {
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))
	return e.walkMarkdown(doc, src, 0)
}

func (e *Engine) walkMarkdown(node ast.Node, source []byte, indent float64) error {
	return e.markdownBlocks(node.FirstChild(), source, indent)
}

// markdownBlocks renders first and its following siblings.
func (e *Engine) markdownBlocks(first ast.Node, source []byte, indent float64) error {
	for child := first; child != nil; child = child.NextSibling() {
		var err error
		switch n := child.(type) {
		case *ast.Heading:
			err = e.heading(markdownSpans(n, source, style{}), n.Level)
		case *ast.Paragraph:
			err = e.paragraph(markdownSpans(n, source, style{}), indent)
		case *ast.TextBlock:
			err = e.renderSpans(markdownSpans(n, source, style{}), e.DefaultFontSize, indent)
		case *ast.List:
			err = e.renderMarkdownList(n, source, indent)
		case *ast.Blockquote:
			err = e.walkMarkdown(n, source, indent+2*e.DefaultFontSize/e.t.ScaleFactor())
		case *ast.FencedCodeBlock:
			err = e.preformatted(blockLines(n, source), indent)
		case *ast.CodeBlock:
			err = e.preformatted(blockLines(n, source), indent)
		case *ast.ThematicBreak:
			err = e.rule()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) renderMarkdownList(n *ast.List, source []byte, indent float64) error {
	num := n.Start
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "•"
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + string(n.Marker)
			num++
		}
		var spans []TextSpan
		first := item.FirstChild()
		if first != nil {
			switch first.Kind() {
			case ast.KindParagraph, ast.KindTextBlock:
				spans = markdownSpans(first, source, style{})
				first = first.NextSibling()
			}
		}
		if err := e.listItem(marker, spans, indent); err != nil {
			return err
		}
		gutter := 1.5 * e.DefaultFontSize / e.t.ScaleFactor()
		if err := e.markdownBlocks(first, source, indent+gutter); err != nil {
			return err
		}
	}
	e.space(e.lineHeight(e.DefaultFontSize) / 2)
	return nil
}

func blockLines(n ast.Node, source []byte) string {
	var b []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b = append(b, seg.Value(source)...)
	}
	return string(b)
}

// markdownSpans flattens the inline children of n into styled spans.
func markdownSpans(n ast.Node, source []byte, st style) []TextSpan {
	var out []TextSpan
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			out = append(out, TextSpan{Text: string(v.Segment.Value(source)), style: st})
			if v.HardLineBreak() {
				out = append(out, TextSpan{Text: "\n"})
			} else if v.SoftLineBreak() {
				out = append(out, TextSpan{Text: " ", style: st})
			}
		case *ast.String:
			out = append(out, TextSpan{Text: string(v.Value), style: st})
		case *ast.CodeSpan:
			s := st
			s.code = true
			out = append(out, markdownSpans(v, source, s)...)
		case *ast.Emphasis:
			s := st
			if v.Level >= 2 {
				s.bold = true
			} else {
				s.italic = true
			}
			out = append(out, markdownSpans(v, source, s)...)
		case *extast.Strikethrough:
			s := st
			s.strike = true
			out = append(out, markdownSpans(v, source, s)...)
		case *ast.Link:
			s := st
			s.link = string(v.Destination)
			out = append(out, markdownSpans(v, source, s)...)
		case *ast.AutoLink:
			s := st
			s.link = string(v.URL(source))
			if v.AutoLinkType == ast.AutoLinkEmail && !hasScheme(s.link) {
				s.link = "mailto:" + s.link
			}
			out = append(out, TextSpan{Text: string(v.Label(source)), style: s})
		case *ast.Image:
			s := st
			s.italic = true
			out = append(out, markdownSpans(v, source, s)...)
		case *ast.RawHTML:
		default:
			out = append(out, markdownSpans(v, source, st)...)
		}
	}
	return out
}

func hasScheme(u string) bool {
	for i, r := range u {
		switch {
		case r == ':':
			return i > 0
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return false
}
