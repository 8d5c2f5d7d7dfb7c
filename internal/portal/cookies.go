package portal

import (
	"net/http"
	"strings"
)

var cookieAttributes = map[string]struct{}{
	"path":     {},
	"domain":   {},
	"expires":  {},
	"max-age":  {},
	"secure":   {},
	"httponly": {},
	"samesite": {},
}

// ParseCookies reads cookie material in either "k=v; k2=v2" form or a raw
// Set-Cookie value, attributes like Path or HttpOnly are dropped.
func ParseCookies(material string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(material, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, isAttr := cookieAttributes[strings.ToLower(name)]; isAttr {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}
	return cookies
}

func FormatCookies(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
