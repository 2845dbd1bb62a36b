package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotCollection means the listing endpoint answered with valid JSON
	// that is not an array. The cache treats it as an empty list.
	ErrNotCollection = errors.New("task listing is not a collection")
	// ErrMalformed means the listing body could not be decoded.
	ErrMalformed = errors.New("malformed task listing")
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// ServiceError is an application-level failure the service reports with a
// 2xx status and an {"error": "..."} body.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "task service: " + e.Message
}

// Client talks to the remote task service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service rooted at baseURL
// (e.g. http://localhost:8000/api/v1). A nil httpClient gets a default with
// the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// List fetches the ordered task list.
func (c *Client) List(ctx context.Context) ([]Task, error) {
	body, err := c.do(ctx, http.MethodGet, "/tasks/list", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

// Filter fetches the tasks matching f.
func (c *Client) Filter(ctx context.Context, f Filter) ([]Task, error) {
	body, err := c.do(ctx, http.MethodPost, "/tasks/filter", f)
	if err != nil {
		return nil, err
	}
	if msg := serviceError(body); msg != "" {
		return nil, &ServiceError{Message: msg}
	}
	return decodeList(body)
}

// UpdateStatus changes exactly the status field of one task.
func (c *Client) UpdateStatus(ctx context.Context, id ID, status Status) error {
	req := struct {
		TaskID ID     `json:"task_id"`
		Status Status `json:"status"`
	}{TaskID: id, Status: status}

	body, err := c.do(ctx, http.MethodPut, "/tasks/update", req)
	if err != nil {
		return err
	}
	if msg := serviceError(body); msg != "" {
		return &ServiceError{Message: msg}
	}
	return nil
}

// Create adds a task and returns its id.
func (c *Client) Create(ctx context.Context, t NewTask) (ID, error) {
	body, err := c.do(ctx, http.MethodPost, "/tasks/create", t)
	if err != nil {
		return "", err
	}
	var resp struct {
		TaskID ID     `json:"task_id"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.Error != "" {
		return "", &ServiceError{Message: resp.Error}
	}
	return resp.TaskID, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id ID) error {
	req := struct {
		TaskID ID `json:"task_id"`
	}{TaskID: id}

	body, err := c.do(ctx, http.MethodDelete, "/tasks/delete", req)
	if err != nil {
		return err
	}
	if msg := serviceError(body); msg != "" {
		return &ServiceError{Message: msg}
	}
	return nil
}

// Health checks that the service answers on its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

// decodeList requires valid JSON. A non-array document yields ErrNotCollection;
// an array whose elements are not task records yields ErrMalformed.
func decodeList(body []byte) ([]Task, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotCollection
	}

	var list []Task
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if list == nil {
		list = []Task{}
	}
	return list, nil
}

func serviceError(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &resp) != nil {
		return ""
	}
	return resp.Error
}
