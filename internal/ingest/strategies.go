package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/researchlens/internal/parser"
	"github.com/dgallion1/researchlens/internal/textstat"
)

// Strategy extracts a title and body text from an HTML page.
type Strategy struct {
	Name    string
	Extract func(body []byte) (title, text string, err error)
}

// DefaultStrategies tries structured article extraction, then the generic
// block-text pass over the whole page.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "article", Extract: extractArticle},
		{Name: "generic", Extract: extractGeneric},
	}
}

// articleContainers are tried in order; the container holding the most
// paragraph words wins.
var articleContainers = []string{
	"article",
	"[itemprop=articleBody]",
	"main",
	"[role=main]",
	"div[class*=article]",
	"div[class*=content]",
	"div[class*=post]",
}

const chromeSelector = "script, style, noscript, template, nav, footer, header, aside, form, figure, iframe"

func extractArticle(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse document: %w", err)
	}
	title := articleTitle(doc)
	doc.Find(chromeSelector).Remove()

	best, bestWords := "", 0
	for _, sel := range articleContainers {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := paragraphText(s)
			if wc := textstat.WordCount(text); wc > bestWords {
				best, bestWords = text, wc
			}
		})
	}
	if best == "" {
		best = paragraphText(doc.Selection)
	}
	return title, best, nil
}

// paragraphText joins the <p> elements under s, one paragraph per block.
func paragraphText(s *goquery.Selection) string {
	var paras []string
	s.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.Join(strings.Fields(p.Text()), " "); t != "" {
			paras = append(paras, t)
		}
	})
	return strings.Join(paras, "\n\n")
}

func articleTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractGeneric(body []byte) (string, string, error) {
	tree, err := (&parser.HTMLParser{}).Parse(bytes.NewReader(body), "")
	if err != nil {
		return "", "", err
	}
	return tree.Title, tree.Text(), nil
}
