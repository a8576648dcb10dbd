package logger

import "strings"

// SanitizedIdentifier masks a login identifier for logging. Email-shaped
// identifiers keep the first character and the TLD (e.g. "u***@***.com");
// anything else keeps only the first character.
func SanitizedIdentifier(identifier string) string {
	if identifier == "" {
		return "[empty]"
	}

	parts := strings.Split(identifier, "@")
	if len(parts) != 2 {
		return string(identifier[0]) + strings.Repeat("*", len(identifier)-1)
	}

	username := parts[0]
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(parts[1], ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// SanitizeQueryString reports whether a query string carries sensitive
// parameters and should be redacted wholesale from access logs
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"token",
		"secret",
		"api_key",
		"apikey",
		"email",
		"auth",
		"csrf",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
