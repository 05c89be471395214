// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the remote assistant credentials, run
// polling budgets, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "assistant-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AssistantConfig defines the remote assistant service connection.
type AssistantConfig struct {
	APIKey      string        // OPENAI_API_KEY
	BaseURL     string        // OPENAI_BASE_URL (defaults to the production endpoint)
	AssistantID string        // OPENAI_ASSISTANT_ID
	HTTPTimeout time.Duration // ASSISTANT_HTTP_TIMEOUT per-call transport timeout
}

// RunConfig defines the run polling budgets.
type RunConfig struct {
	PollInitial time.Duration // RUN_POLL_INITIAL first poll interval
	PollGrowth  float64       // RUN_POLL_GROWTH geometric growth factor
	PollMax     time.Duration // RUN_POLL_MAX interval cap
	WallBudget  time.Duration // RUN_WALL_BUDGET overall wait for a terminal state
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed Run.WallBudget so slow runs can still reply
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Remote assistant
	Assistant AssistantConfig
	Run       RunConfig

	// App state
	DBPath       string // SQLite path (chat logs, feedback, insights)
	ThreadsPath  string // identity→thread binding file
	SettingsPath string // dashboard settings document

	// Message limits
	MaxMessageRunes int // longest accepted inbound message (0 disables the check)

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL        time.Duration // how long a given request key replays
	IdempotencyMaxEntries int           // cache capacity before LRU eviction

	// Bot gate
	BotGatePersist bool // persist gate state and counters across restarts

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 150*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Remote assistant
		Assistant: AssistantConfig{
			APIKey:      getenv("OPENAI_API_KEY", ""),
			BaseURL:     getenv("OPENAI_BASE_URL", ""),
			AssistantID: getenv("OPENAI_ASSISTANT_ID", ""),
			HTTPTimeout: getdur("ASSISTANT_HTTP_TIMEOUT", 30*time.Second),
		},
		Run: RunConfig{
			PollInitial: getdur("RUN_POLL_INITIAL", 500*time.Millisecond),
			PollGrowth:  getfloat("RUN_POLL_GROWTH", 1.5),
			PollMax:     getdur("RUN_POLL_MAX", 5*time.Second),
			WallBudget:  getdur("RUN_WALL_BUDGET", 2*time.Minute),
		},

		// App state
		DBPath:       getenv("DB_PATH", "app.db"),
		ThreadsPath:  getenv("THREADS_PATH", "data/assistant_threads.json"),
		SettingsPath: getenv("SETTINGS_PATH", "data/settings.json"),

		// Message limits
		MaxMessageRunes: getint("MAX_MESSAGE_RUNES", 4096),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL:        getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyMaxEntries: getint("IDEMPOTENCY_MAX_ENTRIES", 1024),

		// Bot gate
		BotGatePersist: getbool("BOT_GATE_PERSIST", false),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "assistant-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Assistant.APIKey) == "" {
		return cfg, errors.New("OPENAI_API_KEY must not be empty")
	}
	if strings.TrimSpace(cfg.Assistant.AssistantID) == "" {
		return cfg, errors.New("OPENAI_ASSISTANT_ID must not be empty")
	}
	if cfg.Assistant.HTTPTimeout <= 0 {
		return cfg, errors.New("ASSISTANT_HTTP_TIMEOUT must be > 0")
	}
	if cfg.Run.PollInitial <= 0 || cfg.Run.PollMax < cfg.Run.PollInitial {
		return cfg, errors.New("RUN_POLL_INITIAL must be > 0 and RUN_POLL_MAX >= RUN_POLL_INITIAL")
	}
	if cfg.Run.PollGrowth < 1 {
		return cfg, errors.New("RUN_POLL_GROWTH must be >= 1")
	}
	if cfg.Run.WallBudget <= 0 {
		return cfg, errors.New("RUN_WALL_BUDGET must be > 0")
	}
	if cfg.WriteTimeout <= cfg.Run.WallBudget {
		return cfg, errors.New("WRITE_TIMEOUT must be greater than RUN_WALL_BUDGET")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ThreadsPath) == "" {
		return cfg, errors.New("THREADS_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.SettingsPath) == "" {
		return cfg, errors.New("SETTINGS_PATH must not be empty")
	}
	if cfg.MaxMessageRunes < 0 {
		return cfg, errors.New("MAX_MESSAGE_RUNES must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.IdempotencyMaxEntries < 1 {
		return cfg, errors.New("IDEMPOTENCY_MAX_ENTRIES must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
