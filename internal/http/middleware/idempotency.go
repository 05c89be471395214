// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent replay for unsafe HTTP methods (e.g., POST).
// The key is taken from the Idempotency-Key request header, or, for JSON
// bodies, from a top-level "request_id" field; WhatsApp bridge retries resend
// the same payload with the same request_id, so both spellings must map to the
// same cache slot.
//
// On a cache hit the previously captured response is replayed verbatim (same
// status, same bytes, same content headers) without invoking the handler. On a
// miss the response is captured on the way out and stored for the cache's TTL.
// Server errors and throttled requests are never cached; a request that has
// not been definitively handled must stay retryable.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/idempotency"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marks responses served from the replay cache.
const HeaderIdempotentReplay = "X-Idempotent-Replay"

// Context keys used internally to stash idempotency state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay was served
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// maxBodyPeek bounds how much of a JSON body is read while looking for a
// request_id.
const maxBodyPeek = 64 << 10

// GetIdempotencyKey returns the resolved idempotency key stored in the Gin
// context by Idempotency. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request was served from the replay cache.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ReplayStore is the slice of the idempotency cache the middleware needs.
type ReplayStore interface {
	Lookup(key string) (idempotency.Entry, bool)
	Store(key string, e idempotency.Entry)
}

// IdempotencyOptions configures key validation for Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// Idempotency deduplicates unsafe requests through cache.
//
// Behavior:
//   - Safe methods and requests without a key pass through untouched.
//   - A malformed key is rejected with 400 before any work happens.
//   - A cache hit replays the stored status and payload verbatim and marks the
//     request for rate-limit bypass (a replay costs no tokens).
//   - A cache miss runs the handler with a capturing writer and stores the
//     response when the status is below 500 and the request was not throttled.
//     A later middleware (the rate limiter) can abort with 429 before the
//     handler ever runs; caching that would pin the key to a transient failure
//     for the full TTL.
func Idempotency(opts IdempotencyOptions, cache ReplayStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token + common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			key = requestIDFromBody(c)
		}
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid idempotency key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if entry, ok := cache.Lookup(key); ok {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotentReplay, "true")
			if entry.ContentEncoding != "" {
				c.Header("Content-Encoding", entry.ContentEncoding)
				c.Header("Vary", "Accept-Encoding")
			}
			contentType := entry.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(entry.StatusCode, contentType, entry.Payload)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		// 5xx responses stay retryable, and so do throttled ones: a 429 (or
		// any Retry-After) is the limiter talking, not the handler.
		status := cw.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		header := cw.Header()
		if status == http.StatusTooManyRequests || header.Get("Retry-After") != "" {
			return
		}
		cache.Store(key, idempotency.Entry{
			StatusCode:      status,
			ContentType:     header.Get("Content-Type"),
			ContentEncoding: header.Get("Content-Encoding"),
			Payload:         cw.body.Bytes(),
		})
	}
}

// requestIDFromBody peeks into a JSON request body for a top-level request_id
// and restores the body for the handler. Non-JSON and oversized bodies yield
// no key.
func requestIDFromBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyPeek+1))
	c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil || len(data) > maxBodyPeek {
		return ""
	}

	var probe struct {
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(data, &probe) != nil {
		return ""
	}
	return probe.RequestID
}

// captureWriter tees the response body so a copy can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
