package signal

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// AnonymityTLDs resolve only inside overlay networks.
var AnonymityTLDs = []string{"onion", "i2p", "bit", "loki", "exit"}

// AbusedTLDs are free or low-friction registries heavily used for throwaway infrastructure.
var AbusedTLDs = []string{"tk", "ml", "ga", "cf", "gq", "zip", "mov"}

var internalCIDRs = mustCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

var metadataHosts = []string{
	"metadata.google.internal",
	"metadata.azure.internal",
	"metadata",
	"instance-data",
}

var (
	reURL  = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^\s"'<>)\]]+`)
	reIPv4 = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
)

func mustCIDRs(blocks ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, n, err := net.ParseCIDR(b)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

// IsInternalHost reports loopback, private, link-local, CGNAT and cloud metadata hosts.
func IsInternalHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") || strings.HasSuffix(host, ".local") {
		return true
	}
	for _, m := range metadataHosts {
		if host == m {
			return true
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, n := range internalCIDRs {
			if n.Contains(ip) {
				return true
			}
		}
	}
	return false
}

// IsUnsafeScheme flags URL schemes that reach local resources or raw sockets.
func IsUnsafeScheme(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, s := range []string{"file://", "gopher://", "dict://", "ldap://", "jar:", "netdoc:"} {
		if strings.HasPrefix(v, s) {
			return true
		}
	}
	return false
}

// InternalReferences lists URLs, bare IPv4 addresses and unsafe schemes in text
// that point at internal infrastructure.
func InternalReferences(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, raw := range reURL.FindAllString(text, -1) {
		raw = strings.TrimRight(raw, ".,;:")
		if IsUnsafeScheme(raw) {
			add(raw)
			continue
		}
		if u, err := url.Parse(raw); err == nil && IsInternalHost(u.Hostname()) {
			add(raw)
		}
	}
	for _, ip := range reIPv4.FindAllString(reURL.ReplaceAllString(text, " "), -1) {
		if IsInternalHost(ip) {
			add(ip)
		}
	}
	return out
}

// TLD returns the last label of host.
func TLD(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return host
}

// HostWithin reports whether host equals domain or is a subdomain of it.
func HostWithin(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = strings.TrimPrefix(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), "."), "*.")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ClassifyTLD names why a TLD is suspicious, or returns "".
func ClassifyTLD(tld string, extra []string) string {
	tld = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
	for _, t := range AnonymityTLDs {
		if tld == t {
			return "anonymity network TLD ." + tld
		}
	}
	for _, t := range AbusedTLDs {
		if tld == t {
			return "abused TLD ." + tld
		}
	}
	for _, t := range extra {
		if tld == strings.TrimPrefix(strings.ToLower(strings.TrimSpace(t)), ".") {
			return "suspicious TLD ." + tld
		}
	}
	return ""
}
