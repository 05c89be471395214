// Package assistant – HTTP client.
//
// The client is a thin, retry-free wrapper over the remote REST surface.
// Retry budgets are owned by the call sites (see internal/runs and
// internal/threads): different operations tolerate failure differently, so
// the transport layer stays deliberately dumb.
//
// Error semantics:
//   - Transport-level failures (dial, timeout, reset) surface as ordinary
//     wrapped errors.
//   - Remote 4xx/5xx responses surface as *APIError carrying the HTTP status
//     and the service's error body; IsNotFound distinguishes the structural
//     "thread not found" case that drives the registry correction path.
package assistant

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production endpoint of the remote assistant service.
const DefaultBaseURL = "https://api.openai.com/v1"

// betaHeader opts in to the v2 assistants wire protocol.
const betaHeader = "assistants=v2"

// ErrMissingAPIKey is a configuration-class error: the process has no
// credential for the remote service. It is the only assistant error that the
// orchestrator surfaces to its caller as an error rather than a fallback reply.
var ErrMissingAPIKey = errors.New("assistant: api key is not configured")

// APIError is a non-2xx response from the remote service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("assistant: remote error %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a definitive 404 from the remote service.
// Only this case may trigger the thread verify/rebind correction path.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// apiCalls counts remote calls by operation and outcome ("ok", "not_found",
// "remote_error", "transport_error"). Registered once at package init, same
// pattern as the HTTP middleware metrics.
var apiCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assistant_api_calls_total",
		Help: "Total calls to the remote assistant service.",
	},
	[]string{"op", "outcome"},
)

func init() { prometheus.MustRegister(apiCalls) }

// Config carries the client settings (see config.AssistantConfig).
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// Client talks to the remote assistant service. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	log     zerolog.Logger
}

// NewClient validates the credential and returns a ready client.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "assistant").Logger(),
	}, nil
}

//
// Operations
//

// CreateThread creates a new remote conversation thread and returns its handle.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ID        string `json:"id"`
		CreatedAt int64  `json:"created_at"`
	}
	if err := c.do(ctx, "create_thread", http.MethodPost, "/threads", struct{}{}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &APIError{Status: http.StatusBadGateway, Code: "malformed_response", Message: "thread id missing from response"}
	}
	return out.ID, nil
}

// GetThread issues the lightweight existence check used by the registry's
// verify step.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var out struct {
		ID        string `json:"id"`
		CreatedAt int64  `json:"created_at"`
	}
	if err := c.do(ctx, "get_thread", http.MethodGet, "/threads/"+threadID, nil, &out); err != nil {
		return nil, err
	}
	return &Thread{ID: out.ID, CreatedAt: time.Unix(out.CreatedAt, 0).UTC()}, nil
}

// CreateMessage appends a message to the thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, text string) error {
	body := map[string]string{"role": role, "content": text}
	return c.do(ctx, "create_message", http.MethodPost, "/threads/"+threadID+"/messages", body, nil)
}

// CreateRun starts an assistant run on the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	body := map[string]string{"assistant_id": assistantID}
	var out apiRun
	if err := c.do(ctx, "create_run", http.MethodPost, "/threads/"+threadID+"/runs", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Code: "malformed_response", Message: "run id missing from response"}
	}
	return out.toRun(threadID), nil
}

// GetRun fetches the current run status.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var out apiRun
	if err := c.do(ctx, "get_run", http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
		return nil, err
	}
	return out.toRun(threadID), nil
}

// CancelRun requests cancellation of an in-flight run. Best effort: callers
// treat failures as advisory.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	return c.do(ctx, "cancel_run", http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/cancel", struct{}{}, nil)
}

// ListMessages returns the newest messages on the thread, newest first
// (the remote service's default ordering). limit <= 0 uses the server default.
func (c *Client) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	path := "/threads/" + threadID + "/messages"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out struct {
		Data []apiMessage `json:"data"`
	}
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(out.Data))
	for _, m := range out.Data {
		msgs = append(msgs, m.toMessage())
	}
	return msgs, nil
}

// LatestAssistantText returns the text of the newest assistant message on the
// thread, or ok=false when none exists. This is the best-effort fallback used
// when a run fails or times out.
func (c *Client) LatestAssistantText(ctx context.Context, threadID string) (string, bool, error) {
	msgs, err := c.ListMessages(ctx, threadID, 20)
	if err != nil {
		return "", false, err
	}
	for _, m := range msgs {
		if m.Role == RoleAssistant && strings.TrimSpace(m.Text) != "" {
			return m.Text, true, nil
		}
	}
	return "", false, nil
}

//
// Wire types
//

type apiRun struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

func (r apiRun) toRun(threadID string) *Run {
	run := &Run{ID: r.ID, ThreadID: threadID, Status: r.Status}
	if r.LastError != nil {
		run.LastError = strings.TrimSpace(r.LastError.Code + ": " + r.LastError.Message)
	}
	return run
}

type apiMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

func (m apiMessage) toMessage() Message {
	out := Message{ID: m.ID, Role: m.Role, CreatedAt: time.Unix(m.CreatedAt, 0).UTC()}
	for _, part := range m.Content {
		if part.Type == "text" {
			out.Text = part.Text.Value
			break
		}
	}
	return out
}

//
// Transport
//

// do executes one request/response cycle with auth and protocol headers,
// decoding JSON into out when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("assistant: encode %s request: %w", op, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("assistant: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		apiCalls.WithLabelValues(op, "transport_error").Inc()
		return fmt.Errorf("assistant: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := decodeAPIError(resp)
		if ae.Status == http.StatusNotFound {
			apiCalls.WithLabelValues(op, "not_found").Inc()
		} else {
			apiCalls.WithLabelValues(op, "remote_error").Inc()
		}
		c.log.Warn().
			Str("op", op).
			Int("status", ae.Status).
			Str("code", ae.Code).
			Msg("remote call failed")
		return ae
	}

	apiCalls.WithLabelValues(op, "ok").Inc()
	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: http.StatusBadGateway, Code: "malformed_response", Message: err.Error()}
	}
	return nil
}

// decodeAPIError extracts the service's error envelope, tolerating arbitrary
// bodies.
func decodeAPIError(resp *http.Response) *APIError {
	ae := &APIError{Status: resp.StatusCode, Code: "unknown"}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && (envelope.Error.Message != "" || envelope.Error.Code != "") {
		if envelope.Error.Code != "" {
			ae.Code = envelope.Error.Code
		} else {
			ae.Code = envelope.Error.Type
		}
		ae.Message = envelope.Error.Message
		return ae
	}
	ae.Message = strings.TrimSpace(string(raw))
	return ae
}
