// Package attemptapi talks to a remote persistence service over its HTTP API.
package attemptapi

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

	"assessment-session-service/internal/domain"
)

// StatusError is a non-2xx API response. Unwrap yields the matching domain error, if any.
type StatusError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("attempt api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }

// StatusCode exposes the HTTP status for failure classification.
func (e *StatusError) StatusCode() int { return e.Status }

var codeErrors = map[string]error{
	"not_found":          domain.ErrAssessmentNotFound,
	"attempts_exhausted": domain.ErrAttemptsExhausted,
	"not_yet_available":  domain.ErrNotYetAvailable,
	"attempt_not_found":  domain.ErrAttemptNotFound,
	"invalid_submission": domain.ErrInvalidSubmission,
	"result_not_found":   domain.ErrResultNotFound,
	"data_integrity":     domain.ErrDataIntegrity,
}

// Client implements the content provider and attempt gateway against the persistence API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	var def domain.AssessmentDefinition
	err := c.do(ctx, http.MethodGet, "/v1/assessments/"+url.PathEscape(assessmentID), nil, &def)
	return def, err
}

func (c *Client) StartAttempt(ctx context.Context, assessmentID, learnerID string) (domain.Attempt, error) {
	var attempt domain.Attempt
	body := map[string]string{"learnerId": learnerID}
	err := c.do(ctx, http.MethodPost, "/v1/assessments/"+url.PathEscape(assessmentID)+"/attempts", body, &attempt)
	return attempt, err
}

func (c *Client) SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error) {
	var result domain.Result
	path := "/v1/assessments/" + url.PathEscape(assessmentID) + "/attempts/" + url.PathEscape(sub.AttemptID) + "/submission"
	err := c.do(ctx, http.MethodPost, path, sub, &result)
	return result, err
}

func (c *Client) GetResults(ctx context.Context, assessmentID, attemptID string) (domain.Result, error) {
	var result domain.Result
	path := "/v1/assessments/" + url.PathEscape(assessmentID) + "/attempts/" + url.PathEscape(attemptID) + "/results"
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Message = strings.TrimSpace(string(raw))
	}
	return &StatusError{
		Status:  resp.StatusCode,
		Code:    payload.Code,
		Message: payload.Message,
		err:     codeErrors[payload.Code],
	}
}
