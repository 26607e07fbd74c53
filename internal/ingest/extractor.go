// Package ingest turns URLs and uploaded files into documents ready for analysis.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/parser"
	"github.com/dgallion1/researchlens/internal/textstat"
)

type Config struct {
	// MaxTextChars is the ceiling on extracted text; longer text is truncated and flagged.
	MaxTextChars int
	// MinArticleWords is the least a URL extraction must yield to count as success.
	MinArticleWords int
	FetchTimeout    time.Duration
	MaxBodyBytes    int64
	MaxUploadBytes  int64
	UserAgent       string
	PDFFallback     bool
}

func (c Config) withDefaults() Config {
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = 50000
	}
	if c.MinArticleWords <= 0 {
		c.MinArticleWords = 50
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "ResearchLens/1.0"
	}
	return c
}

// Extractor produces Documents from URLs and uploaded bytes.
type Extractor struct {
	cfg        Config
	client     *http.Client
	strategies []Strategy
	log        *slog.Logger
}

func New(cfg Config, client *http.Client, log *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{}
	}
	return &Extractor{
		cfg:        cfg.withDefaults(),
		client:     client,
		strategies: DefaultStrategies(),
		log:        log.With("component", "ingest"),
	}
}

// MaxUploadBytes is the upload size limit in effect.
func (e *Extractor) MaxUploadBytes() int64 {
	return e.cfg.MaxUploadBytes
}

// FromURL fetches a page and extracts its main text. HTML goes through the
// strategies in order until one yields MinArticleWords; PDF, Markdown and
// plain-text responses use their parsers directly. A non-2xx response is an
// ExtractionError carrying the status.
func (e *Extractor) FromURL(ctx context.Context, rawURL string) (document.Document, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return document.Document{}, err
	}
	source := u.String()

	body, contentType, status, err := e.fetch(ctx, source)
	if err != nil {
		return document.Document{}, &apperr.FetchError{URL: source, Err: err}
	}

	var (
		title, text string
		pages       int
		strategy    string
		parseErr    error
	)
	if p, ok := parser.ForContentType(contentType, e.cfg.PDFFallback); ok {
		strategy = contentType
		tree, err := p.Parse(bytes.NewReader(body), urlFilename(u))
		if err != nil {
			parseErr = err
		} else {
			title, text, pages = tree.Title, tree.Text(), tree.Pages
		}
	} else {
		title, text, strategy, parseErr = e.runStrategies(body)
	}

	words := textstat.WordCount(text)
	if status < 200 || status > 299 {
		return document.Document{}, &apperr.ExtractionError{
			Source:     source,
			Reason:     fmt.Sprintf("upstream responded %d", status),
			StatusCode: status,
		}
	}
	if words < e.cfg.MinArticleWords {
		return document.Document{}, &apperr.ExtractionError{
			Source: source,
			Reason: fmt.Sprintf("extracted %d words, need at least %d", words, e.cfg.MinArticleWords),
			Err:    parseErr,
		}
	}

	if strings.TrimSpace(title) == "" {
		title = u.Host + strings.TrimSuffix(u.Path, "/")
	}
	doc := document.New(title, text, document.SourceURL, source, e.cfg.MaxTextChars)
	doc.PageCount = pages
	e.log.Info("url extracted", "url", source, "strategy", strategy,
		"word_count", doc.WordCount, "truncated", doc.Truncated)
	return doc, nil
}

// runStrategies returns the first strategy result with enough words, or the
// longest attempt when none qualifies.
func (e *Extractor) runStrategies(body []byte) (title, text, name string, err error) {
	var errs []error
	bestWords := -1
	for _, s := range e.strategies {
		t, x, serr := s.Extract(body)
		if serr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, serr))
			continue
		}
		wc := textstat.WordCount(x)
		if wc >= e.cfg.MinArticleWords {
			return t, x, s.Name, nil
		}
		e.log.Debug("strategy below minimum", "strategy", s.Name, "word_count", wc)
		if wc > bestWords {
			title, text, name, bestWords = t, x, s.Name, wc
		}
	}
	return title, text, name, errors.Join(errs...)
}

func (e *Extractor) fetch(ctx context.Context, target string) ([]byte, string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
	if err != nil {
		return nil, "", 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// urlFilename is the last path segment, or empty for a bare host.
func urlFilename(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

func validateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Validation("url", "must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("url", "could not be parsed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperr.Validation("url", "scheme must be http or https")
	}
	if u.Host == "" {
		return nil, apperr.Validation("url", "host is missing")
	}
	return u, nil
}

// FromPDF extracts text from PDF bytes page by page. Bytes without a PDF
// header are a ValidationError; a PDF that cannot be parsed or has no text
// layer is an ExtractionError.
func (e *Extractor) FromPDF(data []byte, filename string) (document.Document, error) {
	if filename == "" {
		filename = "upload.pdf"
	}
	if err := e.checkUpload(data); err != nil {
		return document.Document{}, err
	}
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return document.Document{}, apperr.Validation("file", "not a PDF document")
	}
	doc, err := e.parseUpload(&parser.PDFParser{FallbackPdftotext: e.cfg.PDFFallback}, data, filename, document.SourcePDF)
	if err != nil {
		return document.Document{}, err
	}
	e.log.Info("pdf extracted", "file", filename, "pages", doc.PageCount,
		"word_count", doc.WordCount, "truncated", doc.Truncated)
	return doc, nil
}

// FromFile extracts an uploaded document, choosing the parser by extension.
func (e *Extractor) FromFile(data []byte, filename string) (document.Document, error) {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return e.FromPDF(data, filename)
	}
	if !parser.IsSupportedExtension(filename) {
		return document.Document{}, apperr.Validation("file", fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)))
	}
	if err := e.checkUpload(data); err != nil {
		return document.Document{}, err
	}
	p, err := parser.ForFile(filename, e.cfg.PDFFallback)
	if err != nil {
		return document.Document{}, apperr.Validation("file", err.Error())
	}
	doc, err := e.parseUpload(p, data, filename, document.SourceUpload)
	if err != nil {
		return document.Document{}, err
	}
	e.log.Info("file extracted", "file", filename, "word_count", doc.WordCount, "truncated", doc.Truncated)
	return doc, nil
}

func (e *Extractor) checkUpload(data []byte) error {
	if len(data) == 0 {
		return apperr.Validation("file", "empty upload")
	}
	if int64(len(data)) > e.cfg.MaxUploadBytes {
		return apperr.Validation("file", fmt.Sprintf("exceeds %d bytes", e.cfg.MaxUploadBytes))
	}
	return nil
}

func (e *Extractor) parseUpload(p parser.Parser, data []byte, filename string, kind document.SourceKind) (document.Document, error) {
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return document.Document{}, apperr.Extraction(filename, "could not parse document", err)
	}
	text := tree.Text()
	if strings.TrimSpace(text) == "" {
		return document.Document{}, apperr.Extraction(filename, "no extractable text", nil)
	}
	doc := document.New(tree.Title, text, kind, filename, e.cfg.MaxTextChars)
	doc.PageCount = tree.Pages
	return doc, nil
}
