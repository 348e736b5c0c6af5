package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// DetermineLocale resolves a locale to use based on explicit query param, Accept-Language header,
// supported locales, and a default fallback. Supported values should be base languages like "ru", "en".
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	if len(supported) == 0 {
		return def
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tags = append(tags, language.Make(strings.ToLower(s)))
	}
	matcher := language.NewMatcher(tags)

	if queryLang != "" {
		if tag, err := language.Parse(queryLang); err == nil {
			if _, idx, conf := matcher.Match(tag); conf >= language.High {
				return strings.ToLower(supported[idx])
			}
		}
	}

	if acceptLang != "" {
		if prefs, _, err := language.ParseAcceptLanguage(acceptLang); err == nil && len(prefs) > 0 {
			if _, idx, conf := matcher.Match(prefs...); conf >= language.High {
				return strings.ToLower(supported[idx])
			}
		}
	}

	for _, s := range supported {
		if strings.EqualFold(s, def) {
			return strings.ToLower(s)
		}
	}
	// If def not in supported, pick first supported to avoid empty
	return strings.ToLower(supported[0])
}
