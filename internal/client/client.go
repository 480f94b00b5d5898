package client

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

// APIError is a structured server rejection. Deterministic errors (validation
// failures, permission problems, state conflicts) will fail identically on
// every retry, so the sweeper stops retrying them immediately.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Deterministic reports whether retrying can ever change the outcome.
// 429 and 5xx are worth retrying; everything else 4xx is not, with one
// exception: action_in_progress means the server still holds the idempotency
// reservation for this key, and a later retry resolves once it settles.
func (e *APIError) Deterministic() bool {
	if e.Status == http.StatusTooManyRequests {
		return false
	}
	if e.Code == "action_in_progress" {
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

// IsDeterministic classifies an attempt error. Network failures and
// timeouts are transient by definition.
func IsDeterministic(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Deterministic()
	}
	return false
}

// APIClient talks to the helpem server. It never retries on its own; retry
// policy belongs to the sweeper and the journal.
type APIClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewAPIClient(baseURL, authToken string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Submit sends one journaled operation. The operation's idempotency key goes
// on the wire unchanged so the server can dedupe retried deliveries.
func (c *APIClient) Submit(ctx context.Context, op Operation) error {
	method, path, err := routeFor(op)
	if err != nil {
		return err
	}

	var body io.Reader
	if len(op.Body) > 0 {
		body = bytes.NewReader(op.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", op.IdempotencyKey)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit %s: %w", op.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return decodeAPIError(resp)
}

func routeFor(op Operation) (string, string, error) {
	switch op.Type {
	case OpCreateItem:
		return http.MethodPost, "/api/tribes/" + op.TribeID + "/items", nil
	case OpTransition:
		switch op.Action {
		case "accept", "not-now", "maybe":
			return http.MethodPost, "/api/tribes/" + op.TribeID + "/proposals/" + op.ProposalID + "/" + op.Action, nil
		case "dismiss":
			return http.MethodDelete, "/api/tribes/" + op.TribeID + "/proposals/" + op.ProposalID, nil
		default:
			return "", "", fmt.Errorf("unknown transition action %q", op.Action)
		}
	case OpDeletePersonal:
		return http.MethodDelete, "/api/personal/items/" + op.ItemID, nil
	default:
		return "", "", fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &envelope)

	code := envelope.Error.Code
	if code == "" {
		code = "unknown_error"
	}
	message := envelope.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Code: code, Message: message}
}

// GetInbox fetches the server-side inbox projection for a tribe.
func (c *APIClient) GetInbox(ctx context.Context, tribeID string) (*RemoteInbox, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tribes/"+tribeID+"/inbox", nil)
	if err != nil {
		return nil, err
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var inbox RemoteInbox
	if err := json.NewDecoder(resp.Body).Decode(&inbox); err != nil {
		return nil, err
	}
	return &inbox, nil
}
