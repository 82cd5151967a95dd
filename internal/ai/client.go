package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultBetaHeader = "assistants=v2"
)

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	BetaHeader string
	Timeout    time.Duration
}

// Client talks to the hosted assistants, files and vector store endpoints.
// A failed call is returned as is; there is no retry policy.
type Client struct {
	baseURL    string
	apiKey     string
	betaHeader string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	beta := strings.TrimSpace(cfg.BetaHeader)
	if beta == "" {
		beta = DefaultBetaHeader
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		betaHeader: beta,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the remote service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in any, out any) error {
	if in == nil {
		in = map[string]any{}
	}
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request failed: %w", path, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// PostMultipart sends fields plus one file part named fileField.
func (c *Client) PostMultipart(
	ctx context.Context,
	path string,
	fields map[string]string,
	fileField, fileName string,
	content io.Reader,
	out any,
) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("write multipart field %s failed: %w", key, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("create multipart file part failed: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy %s into multipart body failed: %w", fileName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body failed: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request failed: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", c.betaHeader)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response failed: %w", req.URL.Path, err)
	}
	if resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s json failed: %w", req.URL.Path, err)
	}
	return nil
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Code    any    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
		if envelope.Error.Code != nil {
			apiErr.Code = fmt.Sprint(envelope.Error.Code)
		}
	}
	return apiErr
}
