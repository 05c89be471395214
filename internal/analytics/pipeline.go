// Package analytics runs the extraction assistant over a parallel thread
// namespace and turns its JSON replies into persisted user insights.
//
// Every answered end-user message is forwarded, asynchronously, to a second
// assistant whose instructions ask for a structured profile of the sender
// (summary, sentiment, topics, urgency). The extractor writes with Indonesian
// field names about as often as English ones, so parsing accepts both and
// normalizes values before storage. Extraction failures are logged and
// counted, never surfaced to the end user.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/identity"
	"github.com/rsh-ai/assistant-backend/internal/repo"
	"github.com/rsh-ai/assistant-backend/internal/runs"
)

// ErrExtractionFailed is returned when the extraction run did not complete or
// its reply carried no parseable JSON object.
var ErrExtractionFailed = errors.New("analytics extraction failed")

var extractions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_extractions_total",
		Help: "Analytics extraction attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() { prometheus.MustRegister(extractions) }

// Threads resolves an identity to its remote thread handle.
type Threads interface {
	GetOrCreate(ctx context.Context, rawIdentity string) (string, error)
}

// Runner drives one assistant run to a resolved reply.
type Runner interface {
	Respond(ctx context.Context, identity, threadID, text string) runs.Result
}

// Broadcaster pushes dashboard events. Optional; nil disables pushes.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Pipeline extracts and stores one insight per answered message.
type Pipeline struct {
	DB      *gorm.DB
	Threads Threads
	Runner  Runner
	Push    Broadcaster
	Log     zerolog.Logger

	// Timeout bounds one asynchronous extraction end to end.
	Timeout time.Duration
}

// NewPipeline wires a pipeline with the default per-extraction timeout.
func NewPipeline(db *gorm.DB, threads Threads, runner Runner, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		DB:      db,
		Threads: threads,
		Runner:  runner,
		Log:     log.With().Str("component", "analytics").Logger(),
		Timeout: 3 * time.Minute,
	}
}

// AnalyzeAsync schedules an extraction for one answered message and returns
// immediately. The extraction runs on a detached context so it survives the
// originating HTTP request.
func (p *Pipeline) AnalyzeAsync(ctx context.Context, rawIdentity, text string) {
	go func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.Timeout)
		defer cancel()
		if _, err := p.Analyze(dctx, rawIdentity, text); err != nil {
			p.Log.Warn().Err(err).Str("identity", identity.Bare(rawIdentity)).
				Msg("background extraction failed")
		}
	}()
}

// Analyze runs the extractor on the identity's analytics thread, parses the
// structured reply, and persists the resulting insight row.
func (p *Pipeline) Analyze(ctx context.Context, rawIdentity, text string) (*domain.UserInsight, error) {
	bare := identity.Bare(rawIdentity)
	if bare == "" {
		extractions.WithLabelValues("invalid_identity").Inc()
		return nil, fmt.Errorf("%w: empty identity", ErrExtractionFailed)
	}
	aID := identity.Analytics(bare)

	threadID, err := p.Threads.GetOrCreate(ctx, aID)
	if err != nil {
		extractions.WithLabelValues("thread_failed").Inc()
		return nil, fmt.Errorf("analytics thread for %s: %w", bare, err)
	}

	result := p.Runner.Respond(ctx, aID, threadID, text)
	if !result.Completed {
		extractions.WithLabelValues("run_failed").Inc()
		return nil, fmt.Errorf("%w: run did not complete for %s", ErrExtractionFailed, bare)
	}

	insight, err := ParseInsight(result.Reply)
	if err != nil {
		extractions.WithLabelValues("parse_failed").Inc()
		p.Log.Warn().Err(err).Str("identity", bare).Str("reply", result.Reply).
			Msg("extractor reply is not a usable insight")
		return nil, err
	}
	insight.Identity = bare

	row, err := repo.CreateInsight(ctx, p.DB, insight)
	if err != nil {
		extractions.WithLabelValues("store_failed").Inc()
		return nil, fmt.Errorf("store insight for %s: %w", bare, err)
	}
	extractions.WithLabelValues("completed").Inc()

	p.Log.Info().Str("identity", bare).Str("sentiment", row.Sentiment).
		Str("urgency", row.Urgency).Msg("insight stored")
	if p.Push != nil {
		p.Push.Broadcast("analytics_update", map[string]any{
			"identity": bare,
			"insight":  row,
		})
	}
	return row, nil
}

// titler capitalizes free-form Indonesian topic labels for display.
var titler = cases.Title(language.Indonesian)

// sentiments and urgencies fold the extractor's bilingual label variants onto
// the canonical values the dashboard filters on.
var sentiments = map[string]string{
	"positive": "positive", "positif": "positive",
	"neutral": "neutral", "netral": "neutral",
	"negative": "negative", "negatif": "negative",
}

var urgencies = map[string]string{
	"low": "low", "rendah": "low",
	"medium": "medium", "sedang": "medium",
	"high": "high", "tinggi": "high",
}

// ParseInsight decodes one extractor reply into an insight row. The reply may
// be wrapped in a Markdown code fence, and every field accepts its Indonesian
// alias. Unknown sentiment labels fall back to "neutral"; unknown urgency
// labels are dropped.
func ParseInsight(reply string) (*domain.UserInsight, error) {
	raw := stripFence(reply)
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrExtractionFailed)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	insight := &domain.UserInsight{Raw: reply}
	insight.Summary = firstString(m, "summary", "ringkasan", "kesimpulan")

	if s := strings.ToLower(firstString(m, "sentiment", "sentimen", "emotion", "emosi")); s != "" {
		if canon, ok := sentiments[s]; ok {
			insight.Sentiment = canon
		} else {
			insight.Sentiment = "neutral"
		}
	}

	if u := strings.ToLower(firstString(m, "urgency", "urgensi", "urgency_level", "tingkat_urgensi")); u != "" {
		insight.Urgency = urgencies[u]
	}

	topics := firstList(m, "topics", "topik", "complaints", "keluhan", "jenis_keluhan")
	for i, topic := range topics {
		topics[i] = titler.String(strings.TrimSpace(topic))
	}
	insight.Topics = strings.Join(topics, ", ")

	return insight, nil
}

// stripFence removes a surrounding ```json ... ``` fence when present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstList returns the first present key as a string slice, accepting both a
// JSON array and a single string value.
func firstList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return []string{v}
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
