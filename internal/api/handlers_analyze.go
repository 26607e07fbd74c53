package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/researchlens/internal/apperr"
	"github.com/dgallion1/researchlens/internal/pipeline"
)

const maxJSONBody = 1 << 20

// IncludeRelated is a pointer so an absent field can default to true.
type analyzeURLRequest struct {
	URL            string `json:"url"`
	IncludeRelated *bool  `json:"include_related"`
}

type analyzeBatchRequest struct {
	URLs           []string `json:"urls"`
	IncludeRelated *bool    `json:"include_related"`
}

func options(includeRelated *bool) pipeline.Options {
	return pipeline.Options{IncludeRelated: includeRelated == nil || *includeRelated}
}

func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.analyzer.AnalyzeURL(r.Context(), req.URL, options(req.IncludeRelated))
	if err != nil {
		s.analysisError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	data, filename, opts, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	resp, err := s.analyzer.AnalyzePDF(r.Context(), data, filename, opts)
	if err != nil {
		s.analysisError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	data, filename, opts, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	resp, err := s.analyzer.AnalyzeFile(r.Context(), data, filename, opts)
	if err != nil {
		s.analysisError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req analyzeBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	items, err := s.analyzer.AnalyzeBatch(r.Context(), req.URLs, options(req.IncludeRelated))
	if err != nil {
		s.analysisError(w, r, err)
		return
	}

	failed := 0
	for _, it := range items {
		if it.Error != nil {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":   items,
		"succeeded": len(items) - failed,
		"failed":    failed,
	})
}

// readUpload pulls the multipart "file" field and the include_related flag,
// which defaults to true when the field is absent.
// It writes the error response itself and reports ok=false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, filename string, opts pipeline.Options, ok bool) {
	// Limit total request size. Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, "", opts, false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", opts, false
	}
	defer r.MultipartForm.RemoveAll()

	opts.IncludeRelated = true
	if v := r.FormValue("include_related"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "include_related must be a boolean", http.StatusBadRequest)
			return nil, "", opts, false
		}
		opts.IncludeRelated = b
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", opts, false
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, "", opts, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", opts, false
	}
	return data, sanitizeFilename(header.Filename), opts, true
}

// analysisError maps pipeline errors onto status codes. Internal errors are
// logged with detail but reported generically.
func (s *Server) analysisError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("analysis failed", "path", r.URL.Path, "code", apperr.CodeOf(err), "error", err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, map[string]string{
		"error": msg,
		"code":  string(apperr.CodeOf(err)),
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
