package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DBDSN           string
	BaseURL         string // used for returning absolute short URLs
	AdminToken      string
	AdminUsername   string
	AdminPassword   string
	CreateRateRPS   float64
	CreateRateBurst int
	SpamWindow      time.Duration
	SpamMax         int
	GatePrefixes    []string // first entry is used when building short URLs
	GateStepDwell   time.Duration
	SessionTTL      time.Duration
	SessionBackend  string // memory | redis
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	BlockedDomains  []string
	CookieSecure    bool
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// getduration accepts Go durations ("15s") or a bare number of seconds.
func getduration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func getlist(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func normalizePrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = "/" + strings.Trim(p, "/")
		if p == "/" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{"/l"}
	}
	return out
}

// Load reads the environment, after merging a local .env file if one exists.
// Variables already present in the environment win over .env entries.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getint("PORT", 8080),
		DBDSN:           getenv("DB_DSN", "file:linkgate.db?_foreign_keys=on&_busy_timeout=5000"),
		BaseURL:         strings.TrimRight(getenv("BASE_URL", ""), "/"),
		AdminToken:      getenv("ADMIN_TOKEN", ""),
		AdminUsername:   getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin123"),
		CreateRateRPS:   getfloat("CREATE_RATE_RPS", 5.0/60.0),
		CreateRateBurst: getint("CREATE_RATE_BURST", 5),
		SpamWindow:      getduration("SPAM_WINDOW", 10*time.Second),
		SpamMax:         getint("SPAM_MAX", 3),
		GatePrefixes:    normalizePrefixes(getlist("GATE_PREFIXES", []string{"/l"})),
		GateStepDwell:   getduration("GATE_STEP_DWELL", 15*time.Second),
		SessionTTL:      getduration("SESSION_TTL", 30*time.Minute),
		SessionBackend:  strings.ToLower(getenv("SESSION_BACKEND", "memory")),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         getint("REDIS_DB", 0),
		BlockedDomains:  getlist("BLOCKED_DOMAINS", []string{"malware.com", "phishing.com", "spam.com"}),
		CookieSecure:    getbool("COOKIE_SECURE", false),
	}
}
