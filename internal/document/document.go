// Package document defines the immutable text document handed from ingestion to analysis.
package document

import (
	"github.com/dgallion1/researchlens/internal/textstat"
)

// SourceKind identifies where a document came from.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourcePDF    SourceKind = "pdf"
	SourceUpload SourceKind = "upload"
)

// Document is raw document text plus minimal metadata. It is built once by the
// extractor and only read afterwards.
type Document struct {
	Title      string
	Text       string
	SourceKind SourceKind
	SourceRef  string
	PageCount  int

	// WordCount is measured on the extracted text before truncation.
	WordCount int
	// Truncated reports that Text was cut at the configured ceiling.
	Truncated bool
}

// New builds a Document from extracted text, applying the length ceiling.
// A maxChars of zero disables the ceiling.
func New(title, text string, kind SourceKind, ref string, maxChars int) Document {
	wc := textstat.WordCount(text)
	text, truncated := textstat.TruncateChars(text, maxChars)
	return Document{
		Title:      title,
		Text:       text,
		SourceKind: kind,
		SourceRef:  ref,
		WordCount:  wc,
		Truncated:  truncated,
	}
}
