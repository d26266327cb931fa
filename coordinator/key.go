package coordinator

import (
	"net/url"
	"strings"
)

// NormalizeURL lowercases scheme and host, drops the fragment and default
// ports, and sorts query parameters so equivalent links share a key.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	host := strings.ToLower(n.Host)
	if port := n.Port(); (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}
	n.Host = host
	n.Fragment = ""
	n.RawFragment = ""
	n.User = nil
	if n.Path == "" {
		n.Path = "/"
	}
	if n.RawQuery != "" {
		n.RawQuery = n.Query().Encode()
	}
	return n.String()
}
