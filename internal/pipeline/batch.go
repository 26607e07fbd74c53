package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/researchlens/internal/apperr"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome for one URL in a batch. Exactly one of Result and Error is set.
type BatchItem struct {
	URL    string            `json:"url"`
	Result *AnalysisResponse `json:"result,omitempty"`
	Error  *ItemError        `json:"error,omitempty"`
}

type ItemError struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// AnalyzeBatch analyzes each URL independently with at most BatchConcurrency
// in flight. Items come back in request order; one failure does not affect
// the others. Only an empty or oversized batch fails as a whole.
func (s *Service) AnalyzeBatch(ctx context.Context, urls []string, opts Options) ([]BatchItem, error) {
	if len(urls) == 0 {
		return nil, apperr.Validation("urls", "must contain at least one url")
	}
	if len(urls) > s.cfg.MaxBatchURLs {
		return nil, apperr.Validation("urls", fmt.Sprintf("at most %d urls per batch", s.cfg.MaxBatchURLs))
	}

	items := make([]BatchItem, len(urls))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, u := range urls {
		u = strings.TrimSpace(u)
		items[i].URL = u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Error = &ItemError{Code: apperr.CodeOf(err), Message: err.Error()}
				return nil
			}
			resp, err := s.AnalyzeURL(ctx, u, opts)
			if err != nil {
				items[i].Error = &ItemError{Code: apperr.CodeOf(err), Message: err.Error()}
				return nil
			}
			items[i].Result = resp
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("batch complete", "urls", len(urls))
	return items, nil
}
