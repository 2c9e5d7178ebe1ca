package chatapi

import (
	"net"
	"strings"
)

// ChatURL returns the chat route for a backend base URL.
func ChatURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultProductionBaseURL
	}
	if strings.HasSuffix(base, "/chat") {
		return base
	}
	return base + "/chat"
}

// IsLocalHost reports whether host names the developer's own machine.
func IsLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if strings.Contains(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// ResolveBaseURL picks localBase for local hosts and productionBase otherwise.
func ResolveBaseURL(host, localBase, productionBase string) string {
	if IsLocalHost(host) {
		return localBase
	}
	return productionBase
}

// Candidates builds the ordered endpoint list: the primary chat URL followed
// by the fallbacks, each normalised with ChatURL.
func Candidates(primaryBase string, fallbacks ...string) []string {
	out := []string{ChatURL(primaryBase)}
	for _, f := range fallbacks {
		if strings.TrimSpace(f) == "" {
			continue
		}
		out = append(out, ChatURL(f))
	}
	return dedupe(out)
}
