package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/document"
	"github.com/dgallion1/researchlens/internal/parser/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// prose returns n words grouped into ten-word sentences.
func prose(n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%10 == 0 {
			b.WriteString("Word")
		} else {
			b.WriteString("word")
		}
		if i%10 == 9 || i == n-1 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func serve(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFromURL_ArticleStrategy(t *testing.T) {
	page := fmt.Sprintf(`<html><head><title>Site | Story</title>
<meta property="og:title" content="The Real Headline"></head>
<body>
<nav><p>%s</p></nav>
<article><h1>Headline</h1><p>%s</p><p>%s</p></article>
<footer><p>Copyright notice for everyone.</p></footer>
</body></html>`, prose(30), prose(40), prose(40))

	srv := serve(t, http.StatusOK, "text/html; charset=utf-8", page)
	e := New(Config{}, srv.Client(), discard())

	doc, err := e.FromURL(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, "The Real Headline", doc.Title)
	assert.Equal(t, 80, doc.WordCount, "nav and footer are excluded")
	assert.Equal(t, document.SourceURL, doc.SourceKind)
	assert.Equal(t, srv.URL+"/story", doc.SourceRef)
	assert.False(t, doc.Truncated)
}

func TestFromURL_FallsBackToGeneric(t *testing.T) {
	var items strings.Builder
	for range 6 {
		items.WriteString("<li>" + prose(10) + "</li>")
	}
	page := "<html><head><title>List Page</title></head><body><ul>" + items.String() + "</ul></body></html>"

	srv := serve(t, http.StatusOK, "text/html", page)
	doc, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "List Page", doc.Title)
	assert.Equal(t, 60, doc.WordCount)
}

func TestFromURL_DivOnlyPage(t *testing.T) {
	page := `<html><head><title>Story</title></head><body>
<div class="story">` + prose(120) + `</div>
<div>` + prose(120) + `</div>
</body></html>`

	srv := serve(t, http.StatusOK, "text/html", page)
	doc, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 240, doc.WordCount)
	assert.Equal(t, prose(120)+"\n\n"+prose(120), doc.Text)
}

func TestFromURL_ShortArticleIsExtractionErrorForAnyStatus(t *testing.T) {
	page := "<html><body><article><p>" + prose(40) + "</p></article></body></html>"
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			srv := serve(t, status, "text/html", page)
			_, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL)

			var extErr *apperr.ExtractionError
			require.ErrorAs(t, err, &extErr)
			assert.Equal(t, apperr.CodeExtraction, apperr.CodeOf(err))
		})
	}
}

func TestFromURL_ErrorStatusCarriesCode(t *testing.T) {
	page := "<html><body><article><p>" + prose(200) + "</p></article></body></html>"
	srv := serve(t, http.StatusForbidden, "text/html", page)

	_, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL)
	var extErr *apperr.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, http.StatusForbidden, extErr.StatusCode)
}

func TestFromURL_UnreachableIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	_, err := New(Config{}, nil, discard()).FromURL(context.Background(), target)
	var fetchErr *apperr.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadGateway, apperr.HTTPStatus(err))
}

func TestFromURL_TimeoutIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{FetchTimeout: 50 * time.Millisecond}, srv.Client(), discard()).
		FromURL(context.Background(), srv.URL)
	var fetchErr *apperr.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFromURL_Validation(t *testing.T) {
	e := New(Config{}, nil, discard())
	for _, raw := range []string{"", "   ", "ftp://example.com/file", "example.com/no-scheme", "http://", "://bad"} {
		_, err := e.FromURL(context.Background(), raw)
		var valErr *apperr.ValidationError
		assert.ErrorAs(t, err, &valErr, "url %q", raw)
	}
}

func TestFromURL_PlainTextContentType(t *testing.T) {
	body := "Field Notes\n\n" + prose(60)
	srv := serve(t, http.StatusOK, "text/plain; charset=utf-8", body)

	doc, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, 62, doc.WordCount)
}

func TestFromURL_MarkdownContentType(t *testing.T) {
	body := "# Design Notes\n\n" + prose(60) + "\n\n```\ncode block here\n```\n"
	srv := serve(t, http.StatusOK, "text/markdown", body)

	doc, err := New(Config{}, srv.Client(), discard()).FromURL(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Design Notes", doc.Title)
	assert.NotContains(t, doc.Text, "code block")
}

func TestFromURL_TextCeiling(t *testing.T) {
	page := "<html><body><article><p>" + prose(300) + "</p></article></body></html>"
	srv := serve(t, http.StatusOK, "text/html", page)

	doc, err := New(Config{MaxTextChars: 200}, srv.Client(), discard()).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.LessOrEqual(t, len([]rune(doc.Text)), 200)
	assert.Equal(t, 300, doc.WordCount)
}

func TestFromPDF_Validation(t *testing.T) {
	e := New(Config{MaxUploadBytes: 64}, nil, discard())

	_, err := e.FromPDF(nil, "a.pdf")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = e.FromPDF([]byte("hello, this is plain text"), "a.pdf")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = e.FromPDF([]byte(strings.Repeat("x", 65)), "big.pdf")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestFromPDF_CorruptIsExtractionError(t *testing.T) {
	e := New(Config{}, nil, discard())
	_, err := e.FromPDF([]byte("%PDF-1.7\n1 0 obj garbage"), "broken.pdf")

	var extErr *apperr.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "broken.pdf", extErr.Source)
}

func TestFromPDF_TwoPages(t *testing.T) {
	e := New(Config{}, nil, discard())
	doc, err := e.FromPDF(pdftest.Build("", "Alpha page one text", "Beta page two text"), "paper.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Alpha page one text\n\nBeta page two text", doc.Text)
	assert.Equal(t, "Alpha page one text", doc.Title)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, 8, doc.WordCount)
	assert.Equal(t, document.SourcePDF, doc.SourceKind)
	assert.False(t, doc.Truncated)
}

func TestFromPDF_InfoTitle(t *testing.T) {
	e := New(Config{}, nil, discard())
	doc, err := e.FromFile(pdftest.Build("Quarterly Report", "Revenue grew in every region."), "q3.PDF")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, document.SourcePDF, doc.SourceKind)
}

func TestFromPDF_NoTextLayerIsExtractionError(t *testing.T) {
	e := New(Config{}, nil, discard())
	_, err := e.FromPDF(pdftest.Build("", "", ""), "scan.pdf")

	var extErr *apperr.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "scan.pdf", extErr.Source)
}

func TestFromFile(t *testing.T) {
	e := New(Config{}, nil, discard())

	doc, err := e.FromFile([]byte("# Quarterly Review\n\n"+prose(20)), "review.md")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Review", doc.Title)
	assert.Equal(t, document.SourceUpload, doc.SourceKind)
	assert.Equal(t, "review.md", doc.SourceRef)

	_, err = e.FromFile([]byte("a,b\n1,2"), "data.csv")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = e.FromFile([]byte("\n\n   \n"), "blank.txt")
	assert.Equal(t, apperr.CodeExtraction, apperr.CodeOf(err))

	_, err = e.FromFile([]byte("not a pdf"), "scan.PDF")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
