package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/researchlens/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx uploads. Heading styles become sections; tables are
// flattened row by row.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*document.Tree, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	tmp, err := os.CreateTemp("", "researchlens-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &document.Tree{Title: baseTitle(filename)}
	titled := false

	b := newSectionBuilder()
	for _, item := range doc.Document.Body.Items {
		var text string
		level := 0
		switch it := item.(type) {
		case *docx.Paragraph:
			level = docxHeadingLevel(it)
			text = docxParagraphText(it)
		case *docx.Table:
			text = docxTableText(it)
		default:
			continue
		}
		if text == "" {
			continue
		}
		if level > 0 {
			if !titled && level == 1 {
				tree.Title = text
				titled = true
			}
			b.heading(level, text)
			continue
		}
		b.paragraph(text)
	}
	tree.Children = b.nodes()
	return tree, nil
}

// docxHeadingLevel reads "Heading1".."Heading6" (or "heading 1") styles; "Title" counts as level 1.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableText(tbl *docx.Table) string {
	var rows []string
	for _, row := range tbl.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					cells = append(cells, t)
				}
			}
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	return strings.Join(rows, "\n")
}
