package util

import (
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug creates a URL-friendly slug from a title
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	// Limit length
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.Trim(slug, "-")
	}

	return slug
}

// ParseKeywords splits a comma-separated keyword string into clean entries
func ParseKeywords(raw string) []string {
	if raw == "" {
		return []string{}
	}

	raw = strings.Trim(raw, "[]")

	parts := strings.Split(raw, ",")
	var keywords []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "\"'")
		if part != "" {
			keywords = append(keywords, part)
		}
	}

	return keywords
}
