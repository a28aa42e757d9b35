package security

import (
	"net/url"
	"strings"
)

// IsCSPCompliantURL reports whether rawURL is an absolute URL whose host
// equals, or is a subdomain of, one of allowedDomains. Comparison is
// case-insensitive and ignores the port.
func IsCSPCompliantURL(rawURL string, allowedDomains []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.Trim(strings.TrimSpace(domain), "."))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// CSPHeader renders a Content-Security-Policy that admits 'self' plus each
// allowed domain and its subdomains over https. scriptSources are appended
// to script-src only.
func CSPHeader(allowedDomains []string, scriptSources ...string) string {
	sources := []string{"'self'"}
	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.Trim(strings.TrimSpace(domain), "."))
		if domain == "" {
			continue
		}
		sources = append(sources, "https://"+domain, "https://*."+domain)
	}
	allowed := strings.Join(sources, " ")

	script := allowed
	for _, src := range scriptSources {
		if src = strings.TrimSpace(src); src != "" {
			script += " " + src
		}
	}

	directives := []string{
		"default-src 'self'",
		"script-src " + script,
		"connect-src " + allowed,
		"img-src " + allowed + " data:",
		"style-src 'self' 'unsafe-inline'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
