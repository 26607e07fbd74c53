package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/researchlens/internal/document"
	"golang.org/x/net/html"
)

// HTMLParser is the generic HTML text pass: it drops scripts, styles and page
// chrome, then concatenates block-level text under the nearest heading. Text
// sitting directly in containers like <div> is kept as its own paragraph.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*document.Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &document.Tree{Title: baseTitle(filename)}
	if title := findTitle(doc); title != "" {
		tree.Title = title
	}

	b := newSectionBuilder()
	// loose collects text outside paragraph-like tags, e.g. directly inside a
	// <div>, until the next block boundary.
	var loose strings.Builder
	flushLoose := func() {
		b.paragraph(strings.Join(strings.Fields(loose.String()), " "))
		loose.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			loose.WriteString(n.Data)
			loose.WriteByte(' ')
			return
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 {
				flushLoose()
				if title := textContent(n); title != "" {
					b.heading(level, title)
				}
				return
			}
			switch n.Data {
			case "script", "style", "noscript", "template", "svg", "iframe",
				"nav", "footer", "header", "aside", "form":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dd", "dt", "figcaption":
				flushLoose()
				b.paragraph(textContent(n))
				return
			}
			if blockElements[n.Data] {
				flushLoose()
				defer flushLoose()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flushLoose()
	tree.Children = b.nodes()
	return tree, nil
}

// blockElements end a run of loose text. Inline elements such as <span> or
// <a> continue it.
var blockElements = map[string]bool{
	"body": true, "div": true, "section": true, "article": true, "main": true,
	"ul": true, "ol": true, "dl": true, "table": true, "tr": true, "br": true,
	"hr": true, "address": true, "details": true, "summary": true, "center": true,
}

// textContent concatenates descendant text nodes with collapsed whitespace.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return textContent(t)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
