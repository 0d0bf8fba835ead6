package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/model"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ErrNotFound is matched by errors.Is for 404 responses from the analysis service
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the analysis service
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("analysis service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Report is a downloaded analysis report
type Report struct {
	Data        []byte
	ContentType string
	Filename    string
}

// AnalysisClient talks to the external document analysis service
type AnalysisClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewAnalysisClient(cfg *config.AnalysisConfig) *AnalysisClient {
	d := time.Duration(cfg.TimeoutSeconds) * time.Second
	if d <= 0 {
		d = 30 * time.Second
	}
	return &AnalysisClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: d,
		httpClient: &http.Client{
			Timeout: d,
		},
	}
}

func (s *AnalysisClient) BaseURL() string {
	return s.baseURL
}

// withDeadline runs fn under the client's fixed timeout. There is no retry:
// a failed call is reported once and the caller decides what the user sees.
func withDeadline[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	t := timeout.New[T](timeout.Config{
		DefaultTimeout: d,
	})
	return t.Execute(ctx, d, fn)
}

// Upload sends the document as multipart field "file"
func (s *AnalysisClient) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*model.ContractSummary, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filename,
	}))
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	payload := body.Bytes()
	return withDeadline(ctx, s.timeout, func(ctx context.Context) (*model.ContractSummary, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/upload", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		var result model.ContractSummary
		if err := s.doJSON(req, &result); err != nil {
			return nil, err
		}
		return &result, nil
	})
}

// Analyze runs the full analysis for an uploaded contract
func (s *AnalysisClient) Analyze(ctx context.Context, contractID string) (*model.Analysis, error) {
	return s.analysis(ctx, http.MethodPost, "/analyze/"+url.PathEscape(contractID))
}

// GetResult fetches a previously computed analysis
func (s *AnalysisClient) GetResult(ctx context.Context, contractID string) (*model.Analysis, error) {
	return s.analysis(ctx, http.MethodGet, "/result/"+url.PathEscape(contractID))
}

func (s *AnalysisClient) analysis(ctx context.Context, method, path string) (*model.Analysis, error) {
	return withDeadline(ctx, s.timeout, func(ctx context.Context) (*model.Analysis, error) {
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		var result model.Analysis
		if err := s.doJSON(req, &result); err != nil {
			return nil, err
		}
		result.Normalize()
		return &result, nil
	})
}

// ListContracts returns every contract the service knows about
func (s *AnalysisClient) ListContracts(ctx context.Context) ([]model.ContractSummary, error) {
	return withDeadline(ctx, s.timeout, func(ctx context.Context) ([]model.ContractSummary, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/contracts", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		var result []model.ContractSummary
		if err := s.doJSON(req, &result); err != nil {
			return nil, err
		}
		if result == nil {
			result = []model.ContractSummary{}
		}
		return result, nil
	})
}

// DownloadReport fetches the binary analysis report
func (s *AnalysisClient) DownloadReport(ctx context.Context, contractID string) (*Report, error) {
	return withDeadline(ctx, s.timeout, func(ctx context.Context) (*Report, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/download/"+url.PathEscape(contractID), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "*/*")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read report: %w", err)
		}

		report := &Report{
			Data:        data,
			ContentType: resp.Header.Get("Content-Type"),
			Filename:    "analysis_report_" + contractID + ".pdf",
		}
		if report.ContentType == "" {
			report.ContentType = "application/pdf"
		}
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
			report.Filename = params["filename"]
		}
		return report, nil
	})
}

// Ping checks that the service answers at its root
func (s *AnalysisClient) Ping(ctx context.Context) error {
	_, err := withDeadline(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return struct{}{}, checkStatus(resp)
	})
	return err
}

func (s *AnalysisClient) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, truncate(string(body), 200))
	}
	return nil
}

// checkStatus turns a non-2xx response into an *APIError carrying the
// service's "detail" message when it sent one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		switch d := payload.Detail.(type) {
		case string:
			apiErr.Detail = d
		default:
			raw, _ := json.Marshal(d)
			apiErr.Detail = string(raw)
		}
	} else {
		apiErr.Detail = truncate(strings.TrimSpace(string(body)), 200)
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
