package layout

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderHTML renders an HTML string. Block elements (headings,
// paragraphs, lists, pre, blockquote, hr) start new blocks; b, strong, i,
// em, code, s, del, a and br style the text inside them.
func (e *Engine) RenderHTML(source string) error {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return err
	}
	return e.walkHTML(doc, 0)
}

func isHTMLBlock(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.P, atom.Ul, atom.Ol, atom.Li, atom.Pre, atom.Blockquote, atom.Hr,
		atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main,
		atom.Body, atom.Html, atom.Table, atom.Tr, atom.Td, atom.Th:
		return true
	}
	return false
}

// walkHTML renders the children of n. Runs of inline content between
// block children become paragraphs.
func (e *Engine) walkHTML(n *html.Node, indent float64) error {
	var pending []TextSpan
	flush := func() error {
		if !hasText(pending) {
			pending = nil
			return nil
		}
		err := e.paragraph(pending, indent)
		pending = nil
		return err
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipHTML(c.DataAtom) {
			continue
		}
		if c.Type != html.ElementNode || !isHTMLBlock(c.DataAtom) {
			pending = append(pending, htmlSpans(c, style{})...)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := e.renderHTMLBlock(c, indent); err != nil {
			return err
		}
	}
	return flush()
}

func skipHTML(a atom.Atom) bool {
	switch a {
	case atom.Head, atom.Script, atom.Style, atom.Template, atom.Noscript:
		return true
	}
	return false
}

func (e *Engine) renderHTMLBlock(n *html.Node, indent float64) error {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		return e.heading(htmlChildSpans(n, style{}), level)
	case atom.P:
		return e.paragraph(htmlChildSpans(n, style{}), indent)
	case atom.Ul, atom.Ol:
		return e.renderHTMLList(n, indent)
	case atom.Li:
		return e.renderHTMLListItem(n, "•", indent)
	case atom.Pre:
		return e.preformatted(rawText(n), indent)
	case atom.Blockquote:
		return e.walkHTML(n, indent+2*e.DefaultFontSize/e.t.ScaleFactor())
	case atom.Hr:
		return e.rule()
	case atom.Tr:
		// cells flow as one line
		var spans []TextSpan
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			st := style{bold: c.DataAtom == atom.Th}
			if len(spans) > 0 {
				spans = append(spans, TextSpan{Text: "  "})
			}
			spans = append(spans, htmlChildSpans(c, st)...)
		}
		return e.renderSpans(spans, e.DefaultFontSize, indent)
	}
	return e.walkHTML(n, indent)
}

func (e *Engine) renderHTMLList(n *html.Node, indent float64) error {
	num := 1
	if v, ok := attr(n, "start"); ok {
		if s, err := strconv.Atoi(v); err == nil {
			num = s
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		marker := "•"
		if n.DataAtom == atom.Ol {
			marker = strconv.Itoa(num) + "."
			num++
		}
		if err := e.renderHTMLListItem(c, marker, indent); err != nil {
			return err
		}
	}
	e.space(e.lineHeight(e.DefaultFontSize) / 2)
	return nil
}

// renderHTMLListItem draws the inline content of li beside the marker and
// nested blocks (sub-lists) below it.
func (e *Engine) renderHTMLListItem(n *html.Node, marker string, indent float64) error {
	var spans []TextSpan
	var blocks []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isHTMLBlock(c.DataAtom) {
			blocks = append(blocks, c)
			continue
		}
		spans = append(spans, htmlSpans(c, style{})...)
	}
	if err := e.listItem(marker, spans, indent); err != nil {
		return err
	}
	gutter := 1.5 * e.DefaultFontSize / e.t.ScaleFactor()
	for _, b := range blocks {
		if err := e.renderHTMLBlock(b, indent+gutter); err != nil {
			return err
		}
	}
	return nil
}

func htmlChildSpans(n *html.Node, st style) []TextSpan {
	var out []TextSpan
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlSpans(c, st)...)
	}
	return out
}

// htmlSpans flattens inline content. Whitespace collapses as in HTML.
func htmlSpans(n *html.Node, st style) []TextSpan {
	switch n.Type {
	case html.TextNode:
		return textSpans(n.Data, st)
	case html.ElementNode:
	default:
		return nil
	}
	if skipHTML(n.DataAtom) {
		return nil
	}
	switch n.DataAtom {
	case atom.B, atom.Strong:
		st.bold = true
	case atom.I, atom.Em, atom.Cite:
		st.italic = true
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		st.code = true
	case atom.S, atom.Del, atom.Strike:
		st.strike = true
	case atom.A:
		if href, ok := attr(n, "href"); ok {
			st.link = href
		}
	case atom.Br:
		return []TextSpan{{Text: "\n"}}
	case atom.Img:
		if alt, ok := attr(n, "alt"); ok {
			st.italic = true
			return []TextSpan{{Text: alt, style: st}}
		}
		return nil
	}
	return htmlChildSpans(n, st)
}

// textSpans collapses whitespace in raw, keeping a single space where it
// began or ended with whitespace.
func textSpans(raw string, st style) []TextSpan {
	if raw == "" {
		return nil
	}
	text := strings.Join(strings.Fields(raw), " ")
	if text == "" {
		return []TextSpan{{Text: " ", style: st}}
	}
	if strings.TrimLeft(raw, " \t\r\n") != raw {
		text = " " + text
	}
	if strings.TrimRight(raw, " \t\r\n") != raw {
		text += " "
	}
	return []TextSpan{{Text: text, style: st}}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.DataAtom == atom.Br {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.TrimPrefix(sb.String(), "\n")
}

func hasText(spans []TextSpan) bool {
	for _, s := range spans {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}
