package core

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxURLLength = 2048

var defaultBlockedDomains = []string{"malware.com", "phishing.com", "spam.com"}

var forbiddenSchemes = []string{"javascript:", "data:", "file:", "ftp:"}

var botIndicators = []string{
	"bot", "crawler", "spider", "scraper", "curl", "wget",
	"python-requests", "http", "automated", "script",
}

var validate = validator.New()

// ValidateURL checks a shorten target and returns its normalised form.
// Unsafe targets (blocked hosts, script-capable schemes) yield ErrUnsafeURL,
// malformed ones ErrInvalidURL.
func ValidateURL(raw string, blocked []string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLength {
		return "", ErrInvalidURL
	}
	lower := strings.ToLower(raw)
	for _, scheme := range forbiddenSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", ErrUnsafeURL
		}
	}
	if err := validate.Var(raw, "url"); err != nil {
		return "", ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", ErrInvalidURL
	}
	for _, d := range blocked {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return "", ErrUnsafeURL
		}
	}
	return parsed.String(), nil
}

// IsAutomatedAgent classifies a User-Agent as a script or crawler.
// An empty agent is not classified.
func IsAutomatedAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, ind := range botIndicators {
		if strings.Contains(ua, ind) {
			return true
		}
	}
	return false
}
