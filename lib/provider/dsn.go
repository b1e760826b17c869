package provider

import (
	"net/url"
	"strings"
)

// DataSourceName adds credentials to a connection URL. URL shaped DSNs get a userinfo section,
// mysql DSNs get a user:password@ prefix, and key=value DSNs get user and password keys.
// Credentials already present in the URL win.
func DataSourceName(driver, rawURL, username, password string) string {
	if username == "" && password == "" {
		return rawURL
	}

	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" || u.User != nil {
			return rawURL
		}
		if password != "" {
			u.User = url.UserPassword(username, password)
		} else {
			u.User = url.User(username)
		}
		return u.String()
	}

	if driver == "mysql" {
		if strings.Contains(rawURL, "@") {
			return rawURL
		}
		creds := username
		if password != "" {
			creds += ":" + password
		}
		return creds + "@" + rawURL
	}

	if strings.Contains(rawURL, "=") {
		var b strings.Builder
		b.WriteString(rawURL)
		if username != "" && !hasKeyword(rawURL, "user") {
			b.WriteString(" user=")
			b.WriteString(quoteValue(username))
		}
		if password != "" && !hasKeyword(rawURL, "password") {
			b.WriteString(" password=")
			b.WriteString(quoteValue(password))
		}
		return b.String()
	}

	return rawURL
}

func hasKeyword(dsn, keyword string) bool {
	for _, field := range strings.Fields(dsn) {
		if strings.HasPrefix(field, keyword+"=") {
			return true
		}
	}
	return false
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
