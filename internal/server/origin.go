// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigins returns the canonical form of every valid origin, whether
// "*" was present, and the entries that could not be parsed.
func normalizeOrigins(origins []string) (normalized []string, allowAll bool, invalid []string) {
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			invalid = append(invalid, origin)
			continue
		}

		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll, invalid
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func isOriginAllowed(r *http.Request) bool {
	normalizedOrigin, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}

	_, exists := allowedOrigins[normalizedOrigin]
	return exists
}

// InvalidOrigins lists configured origins that were ignored because they are
// not of the form scheme://host.
func InvalidOrigins(cfg *Config) []string {
	_, _, invalid := normalizeOrigins(cfg.AllowedOrigins)
	return invalid
}
