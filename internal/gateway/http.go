package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPRuntime talks to a model server that speaks the Hugging Face
// Inference API: POST /models/{model} with {"inputs", "parameters", "options"}.
type HTTPRuntime struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPRuntime(baseURL, token string, timeout time.Duration) *HTTPRuntime {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPRuntime{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type inferenceRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

type infoResponse struct {
	Device string `json:"device"`
}

type statusResponse struct {
	Loaded bool   `json:"loaded"`
	State  string `json:"state"`
	Error  string `json:"error"`
}

type summaryResponse []struct {
	SummaryText string `json:"summary_text"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// SelectDevice asks the server which device it runs models on.
func (r *HTTPRuntime) SelectDevice(ctx context.Context) (Device, error) {
	var info infoResponse
	if err := r.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return "", err
	}
	switch d := strings.ToLower(info.Device); {
	case d == "":
		return DeviceCPU, nil
	case strings.HasPrefix(d, "cuda"), strings.HasPrefix(d, "gpu"):
		return DeviceCUDA, nil
	default:
		return Device(d), nil
	}
}

func (r *HTTPRuntime) LoadSummarizer(ctx context.Context, model string, _ Device) (Summarizer, error) {
	if err := r.checkModel(ctx, model); err != nil {
		return nil, err
	}
	return &httpSummarizer{rt: r, model: model}, nil
}

func (r *HTTPRuntime) LoadClassifier(ctx context.Context, model string, _ Device) (Classifier, error) {
	if err := r.checkModel(ctx, model); err != nil {
		return nil, err
	}
	return &httpClassifier{rt: r, model: model}, nil
}

func (r *HTTPRuntime) LoadSentiment(ctx context.Context, model string, _ Device) (SentimentModel, error) {
	if err := r.checkModel(ctx, model); err != nil {
		return nil, err
	}
	return &httpSentiment{rt: r, model: model}, nil
}

// Close releases idle connections.
func (r *HTTPRuntime) Close() {
	r.httpClient.CloseIdleConnections()
}

// checkModel confirms the server can serve the model before it is cached.
func (r *HTTPRuntime) checkModel(ctx context.Context, model string) error {
	var status statusResponse
	if err := r.do(ctx, http.MethodGet, "/status/"+modelPath(model), nil, &status); err != nil {
		return err
	}
	if status.Error != "" {
		return fmt.Errorf("model %s: %s", model, status.Error)
	}
	return nil
}

func (r *HTTPRuntime) infer(ctx context.Context, model string, req inferenceRequest, out any) error {
	req.Options = map[string]any{"wait_for_model": true}
	return r.do(ctx, http.MethodPost, "/models/"+modelPath(model), req, out)
}

func (r *HTTPRuntime) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type httpSummarizer struct {
	rt    *HTTPRuntime
	model string
}

func (s *httpSummarizer) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	var resp summaryResponse
	err := s.rt.infer(ctx, s.model, inferenceRequest{
		Inputs: text,
		Parameters: map[string]any{
			"min_length": minLen,
			"max_length": maxLen,
			"do_sample":  false,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("empty summary response")
	}
	return resp[0].SummaryText, nil
}

type httpClassifier struct {
	rt    *HTTPRuntime
	model string
}

func (c *httpClassifier) Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error) {
	var resp zeroShotResponse
	err := c.rt.infer(ctx, c.model, inferenceRequest{
		Inputs: text,
		Parameters: map[string]any{
			"candidate_labels": labels,
			"multi_label":      false,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels and %d scores", len(resp.Labels), len(resp.Scores))
	}
	out := make([]LabelScore, len(resp.Labels))
	for i := range resp.Labels {
		out[i] = LabelScore{Label: resp.Labels[i], Score: resp.Scores[i]}
	}
	return out, nil
}

type httpSentiment struct {
	rt    *HTTPRuntime
	model string
}

// Score returns the top label. Servers answer either [[{label,score}...]] or [{label,score}...].
func (s *httpSentiment) Score(ctx context.Context, text string) (LabelScore, error) {
	var raw json.RawMessage
	if err := s.rt.infer(ctx, s.model, inferenceRequest{Inputs: text}, &raw); err != nil {
		return LabelScore{}, err
	}

	var candidates []LabelScore
	var nested [][]LabelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		candidates = nested[0]
	} else if err := json.Unmarshal(raw, &candidates); err != nil {
		return LabelScore{}, fmt.Errorf("decode sentiment: %w", err)
	}
	if len(candidates) == 0 {
		return LabelScore{}, fmt.Errorf("empty sentiment response")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, nil
}

func modelPath(model string) string {
	parts := strings.Split(model, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
