package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var slugRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSlugs cannot be claimed by tenants
var reservedSlugs = map[string]struct{}{
	"admin":  {},
	"api":    {},
	"app":    {},
	"auth":   {},
	"oauth":  {},
	"pierre": {},
	"www":    {},
}

// allowedRedirectSchemes is the approved scheme set for client redirect
// URIs and mobile deep links
var allowedRedirectSchemes = map[string]struct{}{
	"https":  {},
	"pierre": {},
	"exp":    {},
}

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword validates a password
// Minimum 8 characters, at least one uppercase letter, one lowercase letter, one number
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	hasUpper := false
	hasLower := false
	hasNumber := false

	for _, char := range password {
		switch {
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case 'a' <= char && char <= 'z':
			hasLower = true
		case '0' <= char && char <= '9':
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// ValidateSlug validates a tenant slug: lowercase alphanumeric plus
// hyphen, 1..=63 characters, no leading/trailing hyphen, not reserved.
func ValidateSlug(slug string) bool {
	if len(slug) == 0 || len(slug) > 63 {
		return false
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return false
	}
	return slugRegex.MatchString(slug)
}

// ValidateRedirectURI checks a redirect URI or deep link against the
// approved scheme set. http is only allowed for localhost.
func ValidateRedirectURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	}

	_, ok := allowedRedirectSchemes[scheme]
	return ok
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
