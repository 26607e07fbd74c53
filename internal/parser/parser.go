package parser

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/researchlens/internal/document"
)

// Parser converts raw document bytes into a document.Tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Tree, error)
}

// SupportedExtensions lists upload extensions this service can analyze.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, pdfFallback bool) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: pdfFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ForContentType returns a parser for non-HTML media types served at a URL.
// ok is false for HTML and unknown types, which go through the article strategies.
func ForContentType(contentType string, pdfFallback bool) (p Parser, ok bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	switch mt {
	case "application/pdf":
		return &PDFParser{FallbackPdftotext: pdfFallback}, true
	case "text/markdown", "text/x-markdown":
		return &MarkdownParser{}, true
	case "text/plain":
		return &TextParser{}, true
	}
	return nil, false
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// baseTitle strips directory and extension from a filename.
func baseTitle(filename string) string {
	if filename == "" {
		return ""
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type sectionEntry struct {
	node  *document.Node
	level int
}

// sectionBuilder nests paragraphs under the most recent heading of lower level.
type sectionBuilder struct {
	root    *document.Node
	stack   []sectionEntry
	current strings.Builder
}

func newSectionBuilder() *sectionBuilder {
	root := &document.Node{}
	return &sectionBuilder{root: root, stack: []sectionEntry{{node: root, level: 0}}}
}

func (b *sectionBuilder) heading(level int, title string) {
	b.flush()
	n := &document.Node{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, sectionEntry{node: n, level: level})
}

func (b *sectionBuilder) paragraph(text string) {
	if text == "" {
		return
	}
	if b.current.Len() > 0 {
		b.current.WriteString("\n\n")
	}
	b.current.WriteString(text)
}

func (b *sectionBuilder) flush() {
	t := strings.TrimSpace(b.current.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].node
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.current.Reset()
}

// nodes returns the finished top-level sections. Text that preceded the first
// heading becomes the first child.
func (b *sectionBuilder) nodes() []*document.Node {
	b.flush()
	var out []*document.Node
	if b.root.Text != "" {
		out = append(out, &document.Node{Text: b.root.Text})
	}
	return append(out, b.root.Children...)
}

func headingLevel(tag string) int {
	if len(tag) == 2 && (tag[0] == 'h' || tag[0] == 'H') && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
